package recurrence

import (
	"time"
)

// Reason labels why a checklist is or is not due.
type Reason string

const (
	ReasonExpired            Reason = "expired"
	ReasonNeverExecuted      Reason = "never_executed"
	ReasonOneShotSatisfied   Reason = "one_shot_satisfied"
	ReasonNewPeriod          Reason = "new_period"
	ReasonThresholdReached   Reason = "threshold_reached"
	ReasonAwaitingThreshold  Reason = "awaiting_threshold"
	ReasonSatisfied          Reason = "satisfied"
	ReasonUndefinedPeriod    Reason = "undefined_period"
	ReasonUnknownPeriodicity Reason = "unknown_periodicity"
	ReasonInactive           Reason = "inactive"
	ReasonNotAssigned        Reason = "not_assigned"
)

// DueStatus is the derived evaluation of one checklist for one technician.
type DueStatus struct {
	Due             bool
	LastCompletedAt *time.Time
	Reason          Reason
}

// Engine evaluates checklist due status on the technicians' local calendar.
type Engine struct {
	location *time.Location
	registry *Registry
}

// NewEngine constructs an Engine using the built-in periodicities.
// If loc is nil, the process local time zone is used.
func NewEngine(loc *time.Location) *Engine {
	return NewEngineWithRegistry(loc, nil)
}

// NewEngineWithRegistry constructs an Engine backed by a custom rule registry.
func NewEngineWithRegistry(loc *time.Location, registry *Registry) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{location: loc, registry: registry}
}

// Location returns the calendar location used for period boundaries.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.Local
	}
	return e.location
}

// Registry exposes the rule registry so callers can add periodicities.
func (e *Engine) Registry() *Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// IsDue reports whether userID should execute c at now.
func (e *Engine) IsDue(c Checklist, userID string, now time.Time, history []Execution) bool {
	return e.Status(c, userID, now, history).Due
}

// Status evaluates c for userID at now against the execution history.
//
// The evaluation follows these rules:
//   - A checklist whose validity has been reached is never due.
//   - A checklist the technician never executed is due.
//   - One-shot (loose) checklists are satisfied by their first execution.
//   - Otherwise the checklist is due once a new period has opened since the
//     latest execution, or, within the same period, once today's time
//     threshold has passed without an execution at or after it.
//   - Unknown periodicities and undeterminable periods fail open as due.
//
// Only executions by userID count; other technicians' runs never satisfy it.
func (e *Engine) Status(c Checklist, userID string, now time.Time, history []Execution) DueStatus {
	loc := e.Location()
	now = now.In(loc)

	if c.Expired(now) {
		status := DueStatus{Reason: ReasonExpired}
		if last, ok := LastCompletion(c.ID, userID, history); ok {
			status.LastCompletedAt = &last
		}
		return status
	}

	last, ok := LastCompletion(c.ID, userID, history)
	if !ok {
		return DueStatus{Due: true, Reason: ReasonNeverExecuted}
	}
	last = last.In(loc)
	status := DueStatus{LastCompletedAt: &last}

	rule, ok := e.registry.Lookup(c.Periodicity)
	if !ok {
		status.Due = true
		status.Reason = ReasonUnknownPeriodicity
		return status
	}
	if rule.OneShot {
		status.Reason = ReasonOneShotSatisfied
		return status
	}

	same, ok := rule.SamePeriod(last, now, c)
	switch {
	case !ok:
		status.Due = true
		status.Reason = ReasonUndefinedPeriod
		return status
	case !same:
		status.Due = true
		status.Reason = ReasonNewPeriod
		return status
	}

	dueAt, ok := e.DueInstant(c, now)
	if !ok {
		status.Reason = ReasonSatisfied
		return status
	}
	if !now.After(dueAt) {
		status.Reason = ReasonAwaitingThreshold
		return status
	}
	if last.Before(dueAt) {
		status.Due = true
		status.Reason = ReasonThresholdReached
		return status
	}
	status.Reason = ReasonSatisfied
	return status
}

// DueInstant returns now's calendar date at the checklist's time threshold.
// ok is false when the checklist has no usable threshold.
func (e *Engine) DueInstant(c Checklist, now time.Time) (time.Time, bool) {
	hour, minute, ok := ParseTimeOfDay(c.Time)
	if !ok {
		return time.Time{}, false
	}
	now = now.In(e.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
}

// LastCompletion returns the latest execution instant of checklistID by userID.
func LastCompletion(checklistID, userID string, history []Execution) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, exec := range history {
		if exec.ChecklistID != checklistID || exec.UserID != userID {
			continue
		}
		if !found || exec.CompletedAt.After(latest) {
			latest = exec.CompletedAt
			found = true
		}
	}
	return latest, found
}
