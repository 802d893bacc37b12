package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-checklists/internal/recurrence"
)

// AgendaServiceDeps lists the collaborators of an AgendaService.
type AgendaServiceDeps struct {
	Checklists Repository[Checklist]
	Executions ExecutionLog
	Users      Repository[User]
	Engine     *recurrence.Engine
	Metrics    Metrics
	Now        func() time.Time
	Logger     *slog.Logger
}

// AgendaService evaluates which checklists each technician still has to run.
type AgendaService struct {
	checklists Repository[Checklist]
	executions ExecutionLog
	users      Repository[User]
	engine     *recurrence.Engine
	metrics    Metrics
	now        func() time.Time
	logger     *slog.Logger
}

// NewAgendaService constructs an agenda service.
func NewAgendaService(deps AgendaServiceDeps) *AgendaService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Engine == nil {
		deps.Engine = recurrence.NewEngine(nil)
	}
	return &AgendaService{
		checklists: deps.Checklists,
		executions: deps.Executions,
		users:      deps.Users,
		engine:     deps.Engine,
		metrics:    defaultMetrics(deps.Metrics),
		now:        deps.Now,
		logger:     defaultLogger(deps.Logger),
	}
}

func (s *AgendaService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AgendaService", operation, attrs...)
}

// EvaluateForTechnician builds the agenda of userID. Technicians may only read
// their own agenda; an empty userID means the principal.
func (s *AgendaService) EvaluateForTechnician(ctx context.Context, principal Principal, userID string) (agenda Agenda, err error) {
	if s == nil {
		err = fmt.Errorf("AgendaService is nil")
		return
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = principal.UserID
	}
	logger := s.loggerWith(ctx, "EvaluateForTechnician",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to evaluate agenda", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"pending", len(agenda.Pending),
			"pending_today", len(agenda.PendingToday),
		).DebugContext(ctx, "agenda evaluated")
	}()

	if userID == "" || (!principal.IsAdmin && principal.UserID != userID) {
		err = ErrUnauthorized
		return
	}

	var (
		checklists []Checklist
		history    []Execution
	)
	if checklists, err = s.listChecklists(ctx); err != nil {
		return
	}
	if history, err = s.listHistory(ctx); err != nil {
		return
	}

	agenda = s.evaluate(ctx, logger, userID, checklists, executionSchedules(history))
	s.metrics.PendingChecklists(userID, len(agenda.Pending))
	return
}

// IsDue reports whether checklistID is due for userID, with the reason.
func (s *AgendaService) IsDue(ctx context.Context, principal Principal, checklistID, userID string) (DueCheck, error) {
	if s == nil {
		return DueCheck{}, fmt.Errorf("AgendaService is nil")
	}
	if s.checklists == nil {
		return DueCheck{}, fmt.Errorf("agenda service not configured")
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = principal.UserID
	}
	if userID == "" || (!principal.IsAdmin && principal.UserID != userID) {
		return DueCheck{}, ErrUnauthorized
	}

	checklist, err := s.checklists.Get(ctx, strings.TrimSpace(checklistID))
	if err != nil {
		return DueCheck{}, mapRepoError(err)
	}
	schedule := checklist.Schedule()
	var status recurrence.DueStatus
	switch {
	case !schedule.Active:
		status = recurrence.DueStatus{Reason: recurrence.ReasonInactive}
	case !schedule.VisibleTo(userID):
		status = recurrence.DueStatus{Reason: recurrence.ReasonNotAssigned}
	default:
		var history []Execution
		if s.executions != nil {
			if history, err = s.executions.ListFor(ctx, checklist.ID, userID); err != nil {
				return DueCheck{}, err
			}
		}
		status = s.engine.Status(schedule, userID, s.now(), executionSchedules(history))
	}
	s.metrics.DueEvaluated(string(status.Reason))
	return DueCheck{ChecklistID: checklist.ID, UserID: userID, Status: status}, nil
}

// Digest summarises the pending work of every technician, ordered by username.
func (s *AgendaService) Digest(ctx context.Context) (digests []TechnicianDigest, err error) {
	if s == nil {
		err = fmt.Errorf("AgendaService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("agenda service not configured")
		return
	}

	logger := s.loggerWith(ctx, "Digest")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build digest", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("technicians", len(digests)).InfoContext(ctx, "digest built")
	}()

	var (
		users      []User
		checklists []Checklist
		history    []Execution
	)
	if users, err = s.users.List(ctx); err != nil {
		return
	}
	if checklists, err = s.listChecklists(ctx); err != nil {
		return
	}
	if history, err = s.listHistory(ctx); err != nil {
		return
	}

	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	schedules := executionSchedules(history)
	digests = make([]TechnicianDigest, 0, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		agenda := s.evaluate(ctx, logger, u.ID, checklists, schedules)
		s.metrics.PendingChecklists(u.ID, len(agenda.Pending))
		digests = append(digests, TechnicianDigest{
			UserID:       u.ID,
			Username:     u.Username,
			Pending:      len(agenda.Pending),
			PendingToday: len(agenda.PendingToday),
		})
	}
	return
}

func (s *AgendaService) evaluate(ctx context.Context, logger *slog.Logger, userID string, checklists []Checklist, history []recurrence.Execution) Agenda {
	byID := make(map[string]Checklist, len(checklists))
	schedules := make([]recurrence.Checklist, 0, len(checklists))
	registry := s.engine.Registry()
	for _, c := range checklists {
		byID[c.ID] = c
		schedule := c.Schedule()
		if schedule.VisibleTo(userID) {
			if _, ok := registry.Lookup(schedule.Periodicity); !ok {
				logger.WarnContext(ctx, "checklist has unknown periodicity",
					"checklist_id", c.ID,
					"periodicity", string(c.Periodicity),
				)
			}
		}
		schedules = append(schedules, schedule)
	}

	view := s.engine.ProfessionalView(userID, schedules, history, s.now())
	for _, status := range view.Statuses {
		s.metrics.DueEvaluated(string(status.Reason))
	}

	entries := func(in []recurrence.Checklist) []AgendaEntry {
		out := make([]AgendaEntry, 0, len(in))
		for _, c := range in {
			out = append(out, AgendaEntry{Checklist: byID[c.ID], Status: view.Statuses[c.ID]})
		}
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := strings.ToLower(out[i].Checklist.Title), strings.ToLower(out[j].Checklist.Title)
			if ti == tj {
				return out[i].Checklist.ID < out[j].Checklist.ID
			}
			return ti < tj
		})
		return out
	}

	return Agenda{
		UserID:        userID,
		EvaluatedAt:   view.EvaluatedAt,
		Pending:       entries(view.PendingChecklists),
		PendingToday:  entries(view.DailyProgress.PendingChecklistsToday),
		DailyProgress: view.DailyProgress,
		OverallStats:  view.OverallStats,
	}
}

func (s *AgendaService) listChecklists(ctx context.Context) ([]Checklist, error) {
	if s.checklists == nil {
		return nil, nil
	}
	return s.checklists.List(ctx)
}

func (s *AgendaService) listHistory(ctx context.Context) ([]Execution, error) {
	if s.executions == nil {
		return nil, nil
	}
	return s.executions.List(ctx)
}
