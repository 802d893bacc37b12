package recurrence

import (
	"time"
)

// DailyProgress summarises a technician's daily checklists for today.
type DailyProgress struct {
	TotalDailyChecklists          int
	CompletedDailyChecklistsToday int
	PendingChecklistsToday        []Checklist
}

// CompletionPercent returns the completed share as a whole percentage.
// An empty day counts as fully complete.
func (d DailyProgress) CompletionPercent() int {
	return percent(d.CompletedDailyChecklistsToday, d.TotalDailyChecklists)
}

// OverallStats summarises a technician's lifetime activity.
type OverallStats struct {
	TotalCompletedOverall int
	TotalScheduledOverall int
}

// CompletionPercent returns the completed share as a whole percentage, capped at 100.
func (o OverallStats) CompletionPercent() int {
	return percent(o.TotalCompletedOverall, o.TotalScheduledOverall)
}

// ProfessionalView is the evaluated agenda of one technician at one instant.
type ProfessionalView struct {
	UserID            string
	EvaluatedAt       time.Time
	PendingChecklists []Checklist
	DailyProgress     DailyProgress
	OverallStats      OverallStats
	// Statuses holds the evaluation of every checklist visible to the technician.
	Statuses map[string]DueStatus
}

// ProfessionalView evaluates every checklist visible to userID at a single now.
func (e *Engine) ProfessionalView(userID string, checklists []Checklist, history []Execution, now time.Time) ProfessionalView {
	now = now.In(e.Location())
	view := ProfessionalView{
		UserID:            userID,
		EvaluatedAt:       now,
		PendingChecklists: []Checklist{},
		DailyProgress:     DailyProgress{PendingChecklistsToday: []Checklist{}},
		Statuses:          make(map[string]DueStatus),
	}

	own := make([]Execution, 0, len(history))
	executed := make(map[string]struct{})
	for _, exec := range history {
		if exec.UserID != userID {
			continue
		}
		own = append(own, exec)
		executed[exec.ChecklistID] = struct{}{}
	}
	view.OverallStats.TotalCompletedOverall = len(executed)

	today := midnight(now)
	for _, c := range checklists {
		if !c.VisibleTo(userID) {
			continue
		}

		status := e.Status(c, userID, now, own)
		view.Statuses[c.ID] = status
		if status.Due {
			view.PendingChecklists = append(view.PendingChecklists, c)
		}

		if c.Periodicity != PeriodicityLoose && !c.Expired(now) {
			view.OverallStats.TotalScheduledOverall++
		}

		if c.Periodicity != PeriodicityDaily {
			continue
		}
		view.DailyProgress.TotalDailyChecklists++
		if status.Due {
			view.DailyProgress.PendingChecklistsToday = append(view.DailyProgress.PendingChecklistsToday, c)
		}
		if e.completedToday(c, status.LastCompletedAt, today, now) {
			view.DailyProgress.CompletedDailyChecklistsToday++
		}
	}

	return view
}

func (e *Engine) completedToday(c Checklist, last *time.Time, today, now time.Time) bool {
	if last == nil || !midnight(last.In(today.Location())).Equal(today) {
		return false
	}
	dueAt, ok := e.DueInstant(c, now)
	if !ok {
		return true
	}
	return !last.Before(dueAt)
}

func percent(part, total int) int {
	if total <= 0 {
		return 100
	}
	p := part * 100 / total
	if p > 100 {
		return 100
	}
	return p
}
