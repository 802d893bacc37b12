package testfixtures

import (
	"sync"
	"time"
)

// Clock is a controllable time source for recurrence tests. Calendar moves
// happen in the location of the starting instant.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for service constructors.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	return c.update(func(t time.Time) time.Time { return t.Add(d) })
}

// AdvanceDays moves n calendar days forward keeping the wall-clock time.
func (c *Clock) AdvanceDays(n int) time.Time {
	return c.update(func(t time.Time) time.Time { return t.AddDate(0, 0, n) })
}

// At moves the clock to hour:minute of its current calendar day.
func (c *Clock) At(hour, minute int) time.Time {
	return c.update(func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
	})
}

// NextWeekday moves to the next date falling on day, keeping the wall-clock
// time. It always moves at least one day.
func (c *Clock) NextWeekday(day time.Weekday) time.Time {
	return c.update(func(t time.Time) time.Time {
		offset := (int(day) - int(t.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return t.AddDate(0, 0, offset)
	})
}

func (c *Clock) update(move func(time.Time) time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = move(c.current)
	return c.current
}
