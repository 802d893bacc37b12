package recurrence

import (
	"strings"
	"time"
)

// Periodicity names the recurrence cadence of a checklist.
type Periodicity string

const (
	// PeriodicityLoose marks a one-shot checklist from the shared pool.
	PeriodicityLoose      Periodicity = "loose"
	PeriodicityDaily      Periodicity = "daily"
	PeriodicityWeekly     Periodicity = "weekly"
	PeriodicityMonthly    Periodicity = "monthly"
	PeriodicityQuarterly  Periodicity = "quarterly"
	PeriodicitySemiannual Periodicity = "semiannual"
	PeriodicityAnnual     Periodicity = "annual"
	// PeriodicityCustom repeats on the weekdays listed in Checklist.CustomDays.
	PeriodicityCustom Periodicity = "custom"
)

// Checklist carries the fields of a checklist definition that drive due-date evaluation.
type Checklist struct {
	ID          string
	AssignedTo  string
	Periodicity Periodicity
	// CustomDays holds weekday numbers, 0 for Sunday through 6 for Saturday.
	CustomDays []int
	// Time is the optional "HH:MM" threshold after which a period re-opens.
	Time     string
	Validity *time.Time
	Active   bool
}

// Unassigned reports whether the checklist belongs to the shared pool.
func (c Checklist) Unassigned() bool {
	return strings.TrimSpace(c.AssignedTo) == ""
}

// VisibleTo reports whether a technician may pick up the checklist.
func (c Checklist) VisibleTo(userID string) bool {
	return c.Active && (c.Unassigned() || c.AssignedTo == userID)
}

// Expired reports whether the validity instant has been reached.
func (c Checklist) Expired(now time.Time) bool {
	if c.Validity == nil || c.Validity.IsZero() {
		return false
	}
	return !now.Before(*c.Validity)
}

// Execution is a completed run of a checklist by a technician.
type Execution struct {
	ChecklistID string
	UserID      string
	CompletedAt time.Time
}

// ParseTimeOfDay parses an "HH:MM" string. Malformed values report ok=false.
func ParseTimeOfDay(value string) (hour, minute int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, false
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}

func weekdaySet(days []int) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		set[time.Weekday(d)] = struct{}{}
	}
	return set
}
