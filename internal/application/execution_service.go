package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-checklists/internal/recurrence"
)

// ExecutionExporter writes execution reports in a downloadable format.
type ExecutionExporter interface {
	Export(w io.Writer, rows []ExecutionReport) error
}

// ExecutionServiceDeps lists the collaborators of an ExecutionService.
type ExecutionServiceDeps struct {
	Executions  ExecutionLog
	Checklists  Repository[Checklist]
	Clients     Repository[Client]
	Locations   Repository[Location]
	Users       Repository[User]
	Engine      *recurrence.Engine
	Exporter    ExecutionExporter
	Metrics     Metrics
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// ExecutionService records checklist executions and reports on them.
type ExecutionService struct {
	executions  ExecutionLog
	checklists  Repository[Checklist]
	clients     Repository[Client]
	locations   Repository[Location]
	users       Repository[User]
	engine      *recurrence.Engine
	exporter    ExecutionExporter
	metrics     Metrics
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewExecutionService constructs an execution service.
func NewExecutionService(deps ExecutionServiceDeps) *ExecutionService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Engine == nil {
		deps.Engine = recurrence.NewEngine(nil)
	}
	return &ExecutionService{
		executions:  deps.Executions,
		checklists:  deps.Checklists,
		clients:     deps.Clients,
		locations:   deps.Locations,
		users:       deps.Users,
		engine:      deps.Engine,
		exporter:    deps.Exporter,
		metrics:     defaultMetrics(deps.Metrics),
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *ExecutionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ExecutionService", operation, attrs...)
}

// Submit records the principal's execution of a checklist. The due status is
// re-evaluated against the history read under the execution log lock, so a
// checklist that is not due is rejected with ErrAlreadyExecuted even when two
// submissions race.
func (s *ExecutionService) Submit(ctx context.Context, params SubmitExecutionParams) (execution Execution, err error) {
	if s == nil {
		err = fmt.Errorf("ExecutionService is nil")
		return
	}
	if s.executions == nil || s.checklists == nil {
		err = fmt.Errorf("execution service not configured")
		return
	}

	input := normalizeExecutionInput(params.Input)
	logger := s.loggerWith(ctx, "Submit",
		"principal_id", params.Principal.UserID,
		"checklist_id", input.ChecklistID,
	)
	defer func() {
		if err != nil {
			kind := ErrorKind(err)
			s.metrics.ExecutionRejected(kind)
			if kind == "unexpected" {
				logger.ErrorContext(ctx, "failed to record execution", "error", err, "error_kind", kind)
				return
			}
			logger.WarnContext(ctx, "execution rejected", "error", err, "error_kind", kind)
			return
		}
		logger.With("execution_id", execution.ID).InfoContext(ctx, "execution recorded")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var checklist Checklist
	checklist, err = s.checklists.Get(ctx, input.ChecklistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now()
	schedule := checklist.Schedule()
	switch {
	case !checklist.Active:
		err = ErrChecklistInactive
		return
	case !schedule.Unassigned() && schedule.AssignedTo != params.Principal.UserID:
		err = ErrUnauthorized
		return
	case schedule.Expired(now.In(s.engine.Location())):
		err = ErrChecklistExpired
		return
	}

	if vErr := validateCompletedItems(checklist, input); vErr.HasErrors() {
		err = vErr
		return
	}

	execution = Execution{
		ID:             s.idGenerator(),
		ChecklistID:    checklist.ID,
		UserID:         params.Principal.UserID,
		CompletedAt:    now,
		CompletedItems: input.CompletedItems,
		Photos:         input.Photos,
		Notes:          input.Notes,
	}

	err = s.executions.Append(ctx, execution, func(history []Execution) error {
		status := s.engine.Status(schedule, execution.UserID, now, executionSchedules(history))
		if status.Due {
			return nil
		}
		if status.Reason == recurrence.ReasonExpired {
			return ErrChecklistExpired
		}
		return ErrAlreadyExecuted
	})
	if err != nil {
		err = mapRepoError(err)
		execution = Execution{}
		return
	}

	s.metrics.ExecutionRecorded(string(checklist.Periodicity))
	return
}

// ListExecutions returns the executions matching filter, newest first, for administrators.
func (s *ExecutionService) ListExecutions(ctx context.Context, principal Principal, filter ExecutionFilter) (reports []ExecutionReport, err error) {
	if s == nil {
		err = fmt.Errorf("ExecutionService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.executions == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListExecutions", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list executions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reports)).DebugContext(ctx, "executions listed")
	}()

	var history []Execution
	if history, err = s.executions.List(ctx); err != nil {
		return
	}

	var (
		checklists    map[string]Checklist
		clientNames   map[string]string
		locationNames map[string]string
		userNames     map[string]string
	)
	if checklists, err = checklistIndex(ctx, s.checklists); err != nil {
		return
	}
	if clientNames, err = namesOf(ctx, s.clients, func(c Client) (string, string) { return c.ID, c.Name }); err != nil {
		return
	}
	if locationNames, err = namesOf(ctx, s.locations, func(l Location) (string, string) { return l.ID, l.Name }); err != nil {
		return
	}
	if userNames, err = namesOf(ctx, s.users, func(u User) (string, string) { return u.ID, u.Name }); err != nil {
		return
	}

	reports = make([]ExecutionReport, 0, len(history))
	for _, e := range history {
		checklist := checklists[e.ChecklistID]
		if !filter.matches(e, checklist) {
			continue
		}
		reports = append(reports, ExecutionReport{
			Execution:      e,
			ChecklistTitle: checklist.Title,
			ClientName:     clientNames[checklist.ClientID],
			LocationName:   locationNames[checklist.LocationID],
			UserName:       userNames[e.UserID],
		})
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Execution.CompletedAt.After(reports[j].Execution.CompletedAt)
	})
	return
}

// ExportExecutions writes the executions matching filter through the configured exporter.
func (s *ExecutionService) ExportExecutions(ctx context.Context, principal Principal, filter ExecutionFilter, w io.Writer) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ExecutionService is nil")
	}
	if s.exporter == nil {
		return 0, fmt.Errorf("execution exporter not configured")
	}
	reports, err := s.ListExecutions(ctx, principal, filter)
	if err != nil {
		return 0, err
	}
	if err := s.exporter.Export(w, reports); err != nil {
		s.loggerWith(ctx, "ExportExecutions", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to export executions", "error", err, "error_kind", ErrorKind(err))
		return 0, fmt.Errorf("export executions: %w", err)
	}
	return len(reports), nil
}

func (f ExecutionFilter) matches(e Execution, c Checklist) bool {
	if f.From != nil && e.CompletedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.CompletedAt.Before(*f.To) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ChecklistID != "" && e.ChecklistID != f.ChecklistID {
		return false
	}
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	return true
}

func validateCompletedItems(checklist Checklist, input ExecutionInput) *ValidationError {
	vErr := &ValidationError{}
	for _, id := range input.CompletedItems {
		if _, ok := checklist.Item(id); !ok {
			vErr.add("completedItems", "completed item does not belong to checklist")
			break
		}
	}
	for itemID := range input.Photos {
		if _, ok := checklist.Item(itemID); !ok {
			vErr.add("photos", "photo item does not belong to checklist")
			break
		}
	}
	if checklist.RequirePhotos {
		for _, id := range input.CompletedItems {
			item, _ := checklist.Item(id)
			if item.RequirePhoto && strings.TrimSpace(input.Photos[id]) == "" {
				vErr.add("photos", "photo is required for item")
				break
			}
		}
	}
	return vErr
}

func checklistIndex(ctx context.Context, repo Repository[Checklist]) (map[string]Checklist, error) {
	index := make(map[string]Checklist)
	if repo == nil {
		return index, nil
	}
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		index[c.ID] = c
	}
	return index, nil
}

func normalizeExecutionInput(input ExecutionInput) ExecutionInput {
	out := ExecutionInput{
		ChecklistID:    strings.TrimSpace(input.ChecklistID),
		CompletedItems: make([]string, 0, len(input.CompletedItems)),
		Notes:          strings.TrimSpace(input.Notes),
	}
	seen := make(map[string]struct{}, len(input.CompletedItems))
	for _, id := range input.CompletedItems {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.CompletedItems = append(out.CompletedItems, id)
	}
	if len(input.Photos) > 0 {
		out.Photos = make(map[string]string, len(input.Photos))
		for itemID, path := range input.Photos {
			itemID, path = strings.TrimSpace(itemID), strings.TrimSpace(path)
			if itemID == "" || path == "" {
				continue
			}
			out.Photos[itemID] = path
		}
	}
	return out
}
