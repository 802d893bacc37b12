package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-checklists/internal/recurrence"
)

// QRCodeEncoder renders content as a QR code image.
type QRCodeEncoder interface {
	Encode(content string) ([]byte, error)
}

// ChecklistServiceDeps lists the collaborators of a ChecklistService.
type ChecklistServiceDeps struct {
	Checklists     Repository[Checklist]
	Clients        Repository[Client]
	Locations      Repository[Location]
	ChecklistTypes Repository[Term]
	Users          Repository[User]
	Executions     ExecutionLog
	Engine         *recurrence.Engine
	QRCodes        QRCodeEncoder
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// ChecklistService manages checklist definitions and answers catalog queries.
type ChecklistService struct {
	checklists  Repository[Checklist]
	clients     Repository[Client]
	locations   Repository[Location]
	types       Repository[Term]
	users       Repository[User]
	executions  ExecutionLog
	engine      *recurrence.Engine
	qrCodes     QRCodeEncoder
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewChecklistService constructs a checklist service.
func NewChecklistService(deps ChecklistServiceDeps) *ChecklistService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Engine == nil {
		deps.Engine = recurrence.NewEngine(nil)
	}
	return &ChecklistService{
		checklists:  deps.Checklists,
		clients:     deps.Clients,
		locations:   deps.Locations,
		types:       deps.ChecklistTypes,
		users:       deps.Users,
		executions:  deps.Executions,
		engine:      deps.Engine,
		qrCodes:     deps.QRCodes,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *ChecklistService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChecklistService", operation, attrs...)
}

// ExecutionPath is the address encoded in a checklist's QR code label.
func ExecutionPath(checklistID string) string {
	return "/professional/execute-checklist/" + checklistID
}

// CreateChecklist validates input and persists a new, active checklist for administrators.
func (s *ChecklistService) CreateChecklist(ctx context.Context, params CreateChecklistParams) (checklist Checklist, err error) {
	if s == nil {
		err = fmt.Errorf("ChecklistService is nil")
		return
	}
	if s.checklists == nil {
		err = fmt.Errorf("checklist repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateChecklist", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create checklist", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"checklist_id", checklist.ID,
			"periodicity", checklist.Periodicity,
			"assigned_to", checklist.AssignedTo,
		).InfoContext(ctx, "checklist created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input := normalizeChecklistInput(params.Input)
	if err = s.validateChecklistInput(ctx, input); err != nil {
		return
	}

	id := s.idGenerator()
	checklist = Checklist{
		ID:         id,
		Active:     true,
		QRCodePath: "/checklists/" + id + "/qrcode",
		CreatedAt:  s.now(),
	}
	checklist.UpdatedAt = checklist.CreatedAt
	s.applyInput(&checklist, input)

	if err = s.checklists.Put(ctx, checklist); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateChecklist validates input and replaces the definition of an existing checklist.
// Items sent with a known id keep it; new items get fresh ids.
func (s *ChecklistService) UpdateChecklist(ctx context.Context, params UpdateChecklistParams) (checklist Checklist, err error) {
	if s == nil {
		err = fmt.Errorf("ChecklistService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.checklists == nil {
		err = fmt.Errorf("checklist repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateChecklist",
		"principal_id", params.Principal.UserID,
		"checklist_id", params.ChecklistID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update checklist", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "checklist updated")
	}()

	var existing Checklist
	existing, err = s.checklists.Get(ctx, params.ChecklistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeChecklistInput(params.Input)
	if err = s.validateChecklistInput(ctx, input); err != nil {
		return
	}

	checklist = existing
	s.applyInput(&checklist, input)
	checklist.UpdatedAt = s.now()

	if err = s.checklists.Put(ctx, checklist); err != nil {
		err = mapRepoError(err)
	}
	return
}

// SetActive switches a checklist on or off for administrators.
func (s *ChecklistService) SetActive(ctx context.Context, principal Principal, checklistID string, active bool) (checklist Checklist, err error) {
	if s == nil {
		err = fmt.Errorf("ChecklistService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.checklists == nil {
		err = fmt.Errorf("checklist repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetActive",
		"principal_id", principal.UserID,
		"checklist_id", checklistID,
		"active", active,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change checklist state", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "checklist state changed")
	}()

	checklist, err = s.checklists.Get(ctx, checklistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	checklist.Active = active
	checklist.UpdatedAt = s.now()
	if err = s.checklists.Put(ctx, checklist); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteChecklist removes a checklist definition. Executions stay in the log.
func (s *ChecklistService) DeleteChecklist(ctx context.Context, principal Principal, checklistID string) error {
	if s == nil {
		return fmt.Errorf("ChecklistService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.checklists == nil {
		return fmt.Errorf("checklist repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteChecklist",
		"principal_id", principal.UserID,
		"checklist_id", checklistID,
	)
	if err := s.checklists.Delete(ctx, checklistID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete checklist", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "checklist deleted")
	return nil
}

// GetChecklist returns a checklist. Technicians may only open checklists
// assigned to them or taken from the shared pool.
func (s *ChecklistService) GetChecklist(ctx context.Context, principal Principal, checklistID string) (Checklist, error) {
	if s == nil {
		return Checklist{}, fmt.Errorf("ChecklistService is nil")
	}
	if s.checklists == nil {
		return Checklist{}, ErrNotFound
	}
	checklist, err := s.checklists.Get(ctx, checklistID)
	if err != nil {
		return Checklist{}, mapRepoError(err)
	}
	if !principal.IsAdmin && checklist.AssignedTo != "" && checklist.AssignedTo != principal.UserID {
		return Checklist{}, ErrUnauthorized
	}
	return checklist, nil
}

// ListChecklists returns every checklist to administrators. Technicians only
// see the active checklists they can pick up that are currently due.
func (s *ChecklistService) ListChecklists(ctx context.Context, principal Principal, filter ChecklistFilter) (checklists []Checklist, err error) {
	if s == nil {
		err = fmt.Errorf("ChecklistService is nil")
		return
	}
	if s.checklists == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListChecklists", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list checklists", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(checklists)).DebugContext(ctx, "checklists listed")
	}()

	var all []Checklist
	all, err = s.checklists.List(ctx)
	if err != nil {
		return
	}

	clientID := strings.TrimSpace(filter.ClientID)
	if principal.IsAdmin {
		checklists = make([]Checklist, 0, len(all))
		for _, c := range all {
			if clientID == "" || c.ClientID == clientID {
				checklists = append(checklists, c)
			}
		}
		sortChecklists(checklists)
		return
	}

	var history []Execution
	history, err = s.history(ctx)
	if err != nil {
		return
	}
	now := s.now()
	schedules := executionSchedules(history)
	checklists = make([]Checklist, 0)
	for _, c := range all {
		if clientID != "" && c.ClientID != clientID {
			continue
		}
		if !c.Schedule().VisibleTo(principal.UserID) {
			continue
		}
		if s.engine.IsDue(c.Schedule(), principal.UserID, now, schedules) {
			checklists = append(checklists, c)
		}
	}
	sortChecklists(checklists)
	return
}

// ChecklistsForTechnician returns the active checklists assigned to userID or
// left in the shared pool.
func (s *ChecklistService) ChecklistsForTechnician(ctx context.Context, userID string) ([]Checklist, error) {
	if s == nil {
		return nil, fmt.Errorf("ChecklistService is nil")
	}
	if s.checklists == nil {
		return nil, nil
	}
	all, err := s.checklists.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Checklist, 0, len(all))
	for _, c := range all {
		if c.Schedule().VisibleTo(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ActiveQRCodes lists active checklists with their client and location names
// for printing labels, narrowed to clientID when set.
func (s *ChecklistService) ActiveQRCodes(ctx context.Context, principal Principal, clientID string) ([]QRCodeEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("ChecklistService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.checklists == nil {
		return nil, nil
	}

	all, err := s.checklists.List(ctx)
	if err != nil {
		return nil, err
	}
	clientNames, err := namesOf(ctx, s.clients, func(c Client) (string, string) { return c.ID, c.Name })
	if err != nil {
		return nil, err
	}
	locationNames, err := namesOf(ctx, s.locations, func(l Location) (string, string) { return l.ID, l.Name })
	if err != nil {
		return nil, err
	}

	clientID = strings.TrimSpace(clientID)
	entries := make([]QRCodeEntry, 0)
	for _, c := range all {
		if !c.Active || (clientID != "" && c.ClientID != clientID) {
			continue
		}
		entries = append(entries, QRCodeEntry{
			Checklist:    c,
			ClientName:   clientNames[c.ClientID],
			LocationName: locationNames[c.LocationID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ClientName != entries[j].ClientName {
			return entries[i].ClientName < entries[j].ClientName
		}
		if entries[i].LocationName != entries[j].LocationName {
			return entries[i].LocationName < entries[j].LocationName
		}
		return entries[i].Checklist.Title < entries[j].Checklist.Title
	})
	return entries, nil
}

// QRCode renders the label image of a checklist.
func (s *ChecklistService) QRCode(ctx context.Context, principal Principal, checklistID string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("ChecklistService is nil")
	}
	if s.qrCodes == nil {
		return nil, fmt.Errorf("qr code encoder not configured")
	}
	checklist, err := s.GetChecklist(ctx, principal, checklistID)
	if err != nil {
		return nil, err
	}
	png, err := s.qrCodes.Encode(ExecutionPath(checklist.ID))
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

func (s *ChecklistService) history(ctx context.Context) ([]Execution, error) {
	if s.executions == nil {
		return nil, nil
	}
	return s.executions.List(ctx)
}

func (s *ChecklistService) applyInput(c *Checklist, input ChecklistInput) {
	c.Title = input.Title
	c.Description = input.Description
	c.ClientID = input.ClientID
	c.LocationID = input.LocationID
	c.TypeID = input.TypeID
	c.Periodicity = recurrence.Periodicity(input.Periodicity)
	c.CustomDays = nil
	if c.Periodicity == recurrence.PeriodicityCustom {
		c.CustomDays = input.CustomDays
	}
	c.Time = input.Time
	c.Validity = input.Validity
	c.RequirePhotos = input.RequirePhotos
	c.AssignedTo = input.AssignedTo
	if c.Periodicity == recurrence.PeriodicityLoose {
		c.AssignedTo = ""
	}

	known := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		known[item.ID] = struct{}{}
	}
	items := make([]ChecklistItem, 0, len(input.Items))
	for _, in := range input.Items {
		id := in.ID
		if _, ok := known[id]; !ok || id == "" {
			id = s.idGenerator()
		}
		items = append(items, ChecklistItem{ID: id, Description: in.Description, RequirePhoto: in.RequirePhoto})
	}
	c.Items = items
}

func (s *ChecklistService) validateChecklistInput(ctx context.Context, input ChecklistInput) error {
	vErr := validateStruct(input)

	periodicity := recurrence.Periodicity(input.Periodicity)
	if input.Periodicity != "" {
		if _, ok := s.engine.Registry().Lookup(periodicity); !ok {
			vErr.add("periodicity", "periodicity is invalid")
		}
	}
	if periodicity == recurrence.PeriodicityCustom && len(input.CustomDays) == 0 {
		vErr.add("customDays", "custom days are required for custom periodicity")
	}
	if input.Periodicity != "" && periodicity != recurrence.PeriodicityLoose {
		if input.Time == "" {
			vErr.add("time", "time is required")
		}
		if input.Validity == nil || input.Validity.IsZero() {
			vErr.add("validity", "validity is required")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err := s.ensureReferences(ctx, input, vErr); err != nil {
		return err
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *ChecklistService) ensureReferences(ctx context.Context, input ChecklistInput, vErr *ValidationError) error {
	if s.clients != nil {
		if err := exists(ctx, s.clients, input.ClientID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("clientId", "client does not exist")
		}
	}
	if s.locations != nil {
		location, err := s.locations.Get(ctx, input.LocationID)
		switch {
		case errors.Is(mapRepoError(err), ErrNotFound):
			vErr.add("locationId", "location does not exist")
		case err != nil:
			return err
		case location.ClientID != input.ClientID:
			vErr.add("locationId", "location does not belong to client")
		}
	}
	if s.types != nil {
		if err := exists(ctx, s.types, input.TypeID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("typeId", "checklist type does not exist")
		}
	}
	if s.users != nil && input.AssignedTo != "" && recurrence.Periodicity(input.Periodicity) != recurrence.PeriodicityLoose {
		if err := exists(ctx, s.users, input.AssignedTo); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("assignedTo", "assigned user does not exist")
		}
	}
	return nil
}

func exists[T any](ctx context.Context, repo Repository[T], id string) error {
	_, err := repo.Get(ctx, id)
	return mapRepoError(err)
}

func namesOf[T any](ctx context.Context, repo Repository[T], pair func(T) (string, string)) (map[string]string, error) {
	names := make(map[string]string)
	if repo == nil {
		return names, nil
	}
	records, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		id, name := pair(rec)
		names[id] = name
	}
	return names, nil
}

func executionSchedules(history []Execution) []recurrence.Execution {
	out := make([]recurrence.Execution, 0, len(history))
	for _, e := range history {
		out = append(out, recurrence.Execution{ChecklistID: e.ChecklistID, UserID: e.UserID, CompletedAt: e.CompletedAt})
	}
	return out
}

func sortChecklists(checklists []Checklist) {
	sort.SliceStable(checklists, func(i, j int) bool {
		ti, tj := strings.ToLower(checklists[i].Title), strings.ToLower(checklists[j].Title)
		if ti == tj {
			return checklists[i].ID < checklists[j].ID
		}
		return ti < tj
	})
}

func normalizeChecklistInput(input ChecklistInput) ChecklistInput {
	out := ChecklistInput{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		ClientID:      strings.TrimSpace(input.ClientID),
		LocationID:    strings.TrimSpace(input.LocationID),
		TypeID:        strings.TrimSpace(input.TypeID),
		AssignedTo:    strings.TrimSpace(input.AssignedTo),
		Periodicity:   strings.ToLower(strings.TrimSpace(input.Periodicity)),
		Time:          strings.TrimSpace(input.Time),
		Validity:      input.Validity,
		RequirePhotos: input.RequirePhotos,
	}

	seen := make(map[int]struct{}, len(input.CustomDays))
	for _, d := range input.CustomDays {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out.CustomDays = append(out.CustomDays, d)
	}
	sort.Ints(out.CustomDays)

	out.Items = make([]ChecklistItemInput, 0, len(input.Items))
	for _, item := range input.Items {
		out.Items = append(out.Items, ChecklistItemInput{
			ID:           strings.TrimSpace(item.ID),
			Description:  strings.TrimSpace(item.Description),
			RequirePhoto: item.RequirePhoto,
		})
	}
	return out
}
