package recurrence

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrInvalidRule indicates a rule cannot be registered.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// PeriodFunc returns the first instant of the period containing t, in t's
// location. ok is false when the checklist does not define a usable period.
type PeriodFunc func(t time.Time, c Checklist) (start time.Time, ok bool)

// Rule maps a periodicity to its period boundaries.
type Rule struct {
	Periodicity Periodicity
	Start       PeriodFunc
	// OneShot rules have a single period that never closes, so the first
	// execution satisfies them for good and time thresholds do not apply.
	OneShot bool
}

// PeriodStart returns the key of the period containing t.
func (r Rule) PeriodStart(t time.Time, c Checklist) (time.Time, bool) {
	if r.OneShot {
		return time.Time{}, true
	}
	if r.Start == nil {
		return time.Time{}, false
	}
	return r.Start(t, c)
}

// SamePeriod reports whether a and b fall within the same period. ok is false
// when either period cannot be determined.
func (r Rule) SamePeriod(a, b time.Time, c Checklist) (same bool, ok bool) {
	pa, okA := r.PeriodStart(a, c)
	pb, okB := r.PeriodStart(b, c)
	if !okA || !okB {
		return false, false
	}
	return pa.Equal(pb), true
}

// Registry resolves periodicity tags to rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[Periodicity]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[Periodicity]Rule)}
}

// DefaultRegistry returns a registry holding the built-in periodicities.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		{Periodicity: PeriodicityLoose, OneShot: true},
		{Periodicity: PeriodicityDaily, Start: startOfDay},
		{Periodicity: PeriodicityWeekly, Start: startOfWeek},
		{Periodicity: PeriodicityMonthly, Start: startOfMonth},
		{Periodicity: PeriodicityQuarterly, Start: startOfQuarter},
		{Periodicity: PeriodicitySemiannual, Start: startOfHalfYear},
		{Periodicity: PeriodicityAnnual, Start: startOfYear},
		{Periodicity: PeriodicityCustom, Start: startOfCustomPeriod},
	} {
		_ = r.Register(rule)
	}
	return r
}

// Register adds or replaces the rule for its periodicity.
func (r *Registry) Register(rule Rule) error {
	if r == nil {
		return ErrInvalidRule
	}
	if strings.TrimSpace(string(rule.Periodicity)) == "" {
		return ErrInvalidRule
	}
	if !rule.OneShot && rule.Start == nil {
		return ErrInvalidRule
	}
	r.mu.Lock()
	r.rules[rule.Periodicity] = rule
	r.mu.Unlock()
	return nil
}

// Lookup returns the rule registered for p.
func (r *Registry) Lookup(p Periodicity) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[p]
	return rule, ok
}

// Periodicities lists the registered tags in lexical order.
func (r *Registry) Periodicities() []Periodicity {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]Periodicity, 0, len(r.rules))
	for p := range r.rules {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func startOfDay(t time.Time, _ Checklist) (time.Time, bool) {
	return midnight(t), true
}

// Weeks start on Sunday.
func startOfWeek(t time.Time, _ Checklist) (time.Time, bool) {
	day := midnight(t)
	return day.AddDate(0, 0, -int(day.Weekday())), true
}

func startOfMonth(t time.Time, _ Checklist) (time.Time, bool) {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), true
}

func startOfQuarter(t time.Time, _ Checklist) (time.Time, bool) {
	month := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location()), true
}

func startOfHalfYear(t time.Time, _ Checklist) (time.Time, bool) {
	month := time.January
	if t.Month() > time.June {
		month = time.July
	}
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location()), true
}

func startOfYear(t time.Time, _ Checklist) (time.Time, bool) {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()), true
}

// A custom period opens at midnight of every listed weekday and runs until the
// next listed weekday.
func startOfCustomPeriod(t time.Time, c Checklist) (time.Time, bool) {
	days := weekdaySet(c.CustomDays)
	if len(days) == 0 {
		return time.Time{}, false
	}
	day := midnight(t)
	for i := 0; i < 7; i++ {
		candidate := day.AddDate(0, 0, -i)
		if _, ok := days[candidate.Weekday()]; ok {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
