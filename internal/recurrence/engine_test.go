package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brt = time.FixedZone("BRT", -3*60*60)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, brt)
}

func ran(checklistID, userID string, when time.Time) Execution {
	return Execution{ChecklistID: checklistID, UserID: userID, CompletedAt: when}
}

func TestEngine_NeverExecutedIsDue(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)

	for _, p := range []Periodicity{
		PeriodicityLoose, PeriodicityDaily, PeriodicityWeekly, PeriodicityMonthly,
		PeriodicityQuarterly, PeriodicitySemiannual, PeriodicityAnnual, PeriodicityCustom,
	} {
		p := p
		t.Run(string(p), func(t *testing.T) {
			t.Parallel()
			c := Checklist{ID: "c1", Periodicity: p, CustomDays: []int{1}, Time: "08:00", Active: true}
			status := engine.Status(c, "tech", at(2024, time.May, 1, 12, 0), nil)
			assert.True(t, status.Due)
			assert.Equal(t, ReasonNeverExecuted, status.Reason)
			assert.Nil(t, status.LastCompletedAt)
		})
	}
}

func TestEngine_LooseIsOneShot(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "loose-1", Periodicity: PeriodicityLoose, Active: true}
	history := []Execution{ran("loose-1", "tech", at(2024, time.May, 1, 9, 0))}

	for _, now := range []time.Time{
		at(2024, time.May, 1, 9, 1),
		at(2024, time.May, 2, 9, 0),
		at(2025, time.May, 1, 9, 0),
	} {
		status := engine.Status(c, "tech", now, history)
		assert.False(t, status.Due, "now=%s", now)
		assert.Equal(t, ReasonOneShotSatisfied, status.Reason)
	}

	assert.True(t, engine.IsDue(c, "someone-else", at(2024, time.May, 2, 9, 0), history))
}

func TestEngine_ExpiryDominates(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	validity := at(2024, time.May, 1, 0, 0)
	c := Checklist{ID: "c1", Periodicity: PeriodicityDaily, Validity: &validity, Active: true}

	status := engine.Status(c, "tech", at(2024, time.May, 2, 10, 0), nil)
	assert.False(t, status.Due)
	assert.Equal(t, ReasonExpired, status.Reason)

	assert.False(t, engine.IsDue(c, "tech", validity, nil), "validity instant itself is expired")
	assert.True(t, engine.IsDue(c, "tech", validity.Add(-time.Minute), nil))
}

func TestEngine_DailyWithoutTime(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "d1", Periodicity: PeriodicityDaily, Active: true}
	history := []Execution{ran("d1", "tech", at(2024, time.May, 1, 8, 0))}

	status := engine.Status(c, "tech", at(2024, time.May, 1, 23, 59), history)
	assert.False(t, status.Due)
	assert.Equal(t, ReasonSatisfied, status.Reason)
	require.NotNil(t, status.LastCompletedAt)
	assert.True(t, status.LastCompletedAt.Equal(at(2024, time.May, 1, 8, 0)))

	status = engine.Status(c, "tech", at(2024, time.May, 2, 0, 0), history)
	assert.True(t, status.Due)
	assert.Equal(t, ReasonNewPeriod, status.Reason)
}

func TestEngine_DailyTimeThreshold(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "d1", Periodicity: PeriodicityDaily, Time: "08:00", Active: true}
	history := []Execution{ran("d1", "tech", at(2024, time.May, 1, 7, 0))}

	status := engine.Status(c, "tech", at(2024, time.May, 1, 7, 30), history)
	assert.False(t, status.Due)
	assert.Equal(t, ReasonAwaitingThreshold, status.Reason)

	status = engine.Status(c, "tech", at(2024, time.May, 1, 9, 0), history)
	assert.True(t, status.Due)
	assert.Equal(t, ReasonThresholdReached, status.Reason)

	history = append(history, ran("d1", "tech", at(2024, time.May, 1, 9, 5)))
	status = engine.Status(c, "tech", at(2024, time.May, 1, 9, 6), history)
	assert.False(t, status.Due)
	assert.Equal(t, ReasonSatisfied, status.Reason)
}

func TestEngine_MalformedTimeIsIgnored(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	history := []Execution{ran("d1", "tech", at(2024, time.May, 1, 7, 0))}

	for _, value := range []string{"8h", "25:00", "abc", " "} {
		c := Checklist{ID: "d1", Periodicity: PeriodicityDaily, Time: value, Active: true}
		assert.False(t, engine.IsDue(c, "tech", at(2024, time.May, 1, 23, 0), history), "time=%q", value)
	}
}

func TestEngine_PeriodBoundaries(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)

	tests := []struct {
		name       string
		checklist  Checklist
		executedAt time.Time
		notDueAt   time.Time
		dueAt      time.Time
	}{
		{
			name:       "weekly opens on sunday",
			checklist:  Checklist{Periodicity: PeriodicityWeekly},
			executedAt: at(2024, time.May, 1, 10, 0), // Wednesday
			notDueAt:   at(2024, time.May, 4, 23, 59),
			dueAt:      at(2024, time.May, 5, 0, 0),
		},
		{
			name:       "monthly",
			checklist:  Checklist{Periodicity: PeriodicityMonthly},
			executedAt: at(2024, time.May, 2, 10, 0),
			notDueAt:   at(2024, time.May, 31, 23, 59),
			dueAt:      at(2024, time.June, 1, 0, 0),
		},
		{
			name:       "monthly across years",
			checklist:  Checklist{Periodicity: PeriodicityMonthly},
			executedAt: at(2023, time.May, 20, 10, 0),
			notDueAt:   at(2023, time.May, 21, 10, 0),
			dueAt:      at(2024, time.May, 20, 10, 0),
		},
		{
			name:       "quarterly",
			checklist:  Checklist{Periodicity: PeriodicityQuarterly},
			executedAt: at(2024, time.February, 10, 10, 0),
			notDueAt:   at(2024, time.March, 31, 23, 59),
			dueAt:      at(2024, time.April, 1, 0, 0),
		},
		{
			name:       "semiannual",
			checklist:  Checklist{Periodicity: PeriodicitySemiannual},
			executedAt: at(2024, time.January, 15, 10, 0),
			notDueAt:   at(2024, time.June, 30, 23, 59),
			dueAt:      at(2024, time.July, 1, 0, 0),
		},
		{
			name:       "annual",
			checklist:  Checklist{Periodicity: PeriodicityAnnual},
			executedAt: at(2024, time.March, 3, 10, 0),
			notDueAt:   at(2024, time.December, 31, 23, 59),
			dueAt:      at(2025, time.January, 1, 0, 0),
		},
		{
			name:       "custom opens on listed weekdays",
			checklist:  Checklist{Periodicity: PeriodicityCustom, CustomDays: []int{1, 4}},
			executedAt: at(2024, time.April, 29, 10, 0), // Monday
			notDueAt:   at(2024, time.May, 1, 23, 59),
			dueAt:      at(2024, time.May, 2, 0, 0), // Thursday
		},
		{
			name:       "custom executed off-schedule belongs to the previous opening",
			checklist:  Checklist{Periodicity: PeriodicityCustom, CustomDays: []int{1}},
			executedAt: at(2024, time.May, 1, 10, 0), // Wednesday
			notDueAt:   at(2024, time.May, 5, 23, 59),
			dueAt:      at(2024, time.May, 6, 0, 0), // Monday
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := tc.checklist
			c.ID = "c1"
			c.Active = true
			history := []Execution{ran("c1", "tech", tc.executedAt)}

			assert.False(t, engine.IsDue(c, "tech", tc.notDueAt, history))
			status := engine.Status(c, "tech", tc.dueAt, history)
			assert.True(t, status.Due)
			assert.Equal(t, ReasonNewPeriod, status.Reason)
		})
	}
}

func TestEngine_WeeklyAppliesThresholdWithinWeek(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "w1", Periodicity: PeriodicityWeekly, Time: "08:00", Active: true}
	history := []Execution{ran("w1", "tech", at(2024, time.April, 29, 10, 0))}

	assert.False(t, engine.IsDue(c, "tech", at(2024, time.April, 29, 12, 0), history))
	assert.False(t, engine.IsDue(c, "tech", at(2024, time.April, 30, 7, 59), history))
	assert.True(t, engine.IsDue(c, "tech", at(2024, time.April, 30, 8, 1), history))
}

func TestEngine_FailsOpen(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	history := []Execution{ran("c1", "tech", at(2024, time.May, 1, 10, 0))}
	now := at(2024, time.May, 1, 11, 0)

	status := engine.Status(Checklist{ID: "c1", Periodicity: "fortnightly"}, "tech", now, history)
	assert.True(t, status.Due)
	assert.Equal(t, ReasonUnknownPeriodicity, status.Reason)

	status = engine.Status(Checklist{ID: "c1", Periodicity: PeriodicityCustom, CustomDays: []int{9, -1}}, "tech", now, history)
	assert.True(t, status.Due)
	assert.Equal(t, ReasonUndefinedPeriod, status.Reason)
}

func TestEngine_UsesLatestOwnExecution(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "d1", Periodicity: PeriodicityDaily, Active: true}
	history := []Execution{
		ran("d1", "tech", at(2024, time.May, 2, 9, 0)),
		ran("d1", "tech", at(2024, time.April, 30, 9, 0)),
		ran("d1", "other", at(2024, time.May, 3, 9, 0)),
		ran("d2", "tech", at(2024, time.May, 3, 9, 0)),
	}

	status := engine.Status(c, "tech", at(2024, time.May, 3, 10, 0), history)
	assert.True(t, status.Due)
	require.NotNil(t, status.LastCompletedAt)
	assert.True(t, status.LastCompletedAt.Equal(at(2024, time.May, 2, 9, 0)))
}

func TestEngine_CalendarFollowsEngineLocation(t *testing.T) {
	t.Parallel()
	engine := NewEngine(brt)
	c := Checklist{ID: "d1", Periodicity: PeriodicityDaily, Active: true}
	// 23:30 local on May 1 is already May 2 in UTC.
	history := []Execution{ran("d1", "tech", at(2024, time.May, 1, 23, 30).UTC())}

	assert.False(t, engine.IsDue(c, "tech", at(2024, time.May, 1, 23, 45).UTC(), history))
	assert.True(t, engine.IsDue(c, "tech", at(2024, time.May, 2, 0, 15).UTC(), history))
}

func TestRegistry_RegisterNewPeriodicity(t *testing.T) {
	t.Parallel()
	registry := DefaultRegistry()
	hourly := Rule{
		Periodicity: "hourly",
		Start: func(t time.Time, _ Checklist) (time.Time, bool) {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()), true
		},
	}
	require.NoError(t, registry.Register(hourly))
	assert.Contains(t, registry.Periodicities(), Periodicity("hourly"))

	engine := NewEngineWithRegistry(brt, registry)
	c := Checklist{ID: "h1", Periodicity: "hourly", Active: true}
	history := []Execution{ran("h1", "tech", at(2024, time.May, 1, 10, 15))}

	assert.False(t, engine.IsDue(c, "tech", at(2024, time.May, 1, 10, 59), history))
	assert.True(t, engine.IsDue(c, "tech", at(2024, time.May, 1, 11, 0), history))
}

func TestRegistry_RejectsInvalidRules(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()

	assert.ErrorIs(t, registry.Register(Rule{Periodicity: ""}), ErrInvalidRule)
	assert.ErrorIs(t, registry.Register(Rule{Periodicity: "weekly"}), ErrInvalidRule)
	require.NoError(t, registry.Register(Rule{Periodicity: "once", OneShot: true}))

	_, ok := registry.Lookup("once")
	assert.True(t, ok)
	_, ok = registry.Lookup("weekly")
	assert.False(t, ok)
}
