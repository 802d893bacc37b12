package testfixtures

import (
	"fmt"
	"time"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/persistence"
	"github.com/example/facility-checklists/internal/recurrence"
)

var (
	userIDs      = NewIDGenerator("user")
	checklistIDs = NewIDGenerator("checklist")
	executionIDs = NewIDGenerator("execution")
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string
	IsAdmin      bool
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx, id := userIDs.next()
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Username:     fmt.Sprintf("tecnico%03d", idx),
		Name:         fmt.Sprintf("Técnico %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUsername overrides the generated login name.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserCategory sets the category term of the fixture.
func WithUserCategory(categoryID string) UserOption {
	return func(f *UserFixture) {
		f.Category = categoryID
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:           f.ID,
		Username:     f.Username,
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Category:     f.Category,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		Name:         f.Name,
		IsAdmin:      f.IsAdmin,
		Category:     f.Category,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// --------------------------- Checklist fixtures ---------------------------

// ChecklistFixture represents a deterministic checklist definition.
type ChecklistFixture struct {
	ID            string
	Title         string
	ClientID      string
	LocationID    string
	TypeID        string
	AssignedTo    string
	Periodicity   recurrence.Periodicity
	CustomDays    []int
	Time          string
	Validity      *time.Time
	RequirePhotos bool
	Items         []application.ChecklistItem
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChecklistOption configures the generated checklist fixture.
type ChecklistOption func(*ChecklistFixture)

// NewChecklistFixture returns an active daily checklist with two items.
func NewChecklistFixture(opts ...ChecklistOption) ChecklistFixture {
	idx, id := checklistIDs.next()
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := ChecklistFixture{
		ID:          id,
		Title:       fmt.Sprintf("Checklist %03d", idx),
		ClientID:    "client-001",
		LocationID:  "location-001",
		TypeID:      "type-001",
		Periodicity: recurrence.PeriodicityDaily,
		Items: []application.ChecklistItem{
			{ID: id + "-item-1", Description: "Verificar extintores"},
			{ID: id + "-item-2", Description: "Testar iluminação de emergência"},
		},
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithChecklistID overrides the generated checklist ID.
func WithChecklistID(id string) ChecklistOption {
	return func(f *ChecklistFixture) {
		f.ID = id
	}
}

// WithAssignee assigns the checklist; an empty id leaves it in the loose pool.
func WithAssignee(userID string) ChecklistOption {
	return func(f *ChecklistFixture) {
		f.AssignedTo = userID
	}
}

// WithPeriodicity sets the recurrence and, for custom rules, the weekdays.
func WithPeriodicity(p recurrence.Periodicity, customDays ...int) ChecklistOption {
	return func(f *ChecklistFixture) {
		f.Periodicity = p
		f.CustomDays = customDays
	}
}

// WithTimeOfDay sets the HH:MM the checklist becomes due.
func WithTimeOfDay(hhmm string) ChecklistOption {
	return func(f *ChecklistFixture) {
		f.Time = hhmm
	}
}

// WithValidity sets the expiry instant.
func WithValidity(t time.Time) ChecklistOption {
	return func(f *ChecklistFixture) {
		f.Validity = &t
	}
}

// WithPhotoItem marks the first item as requiring a photo.
func WithPhotoItem() ChecklistOption {
	return func(f *ChecklistFixture) {
		if len(f.Items) > 0 {
			f.Items[0].RequirePhoto = true
		}
	}
}

// Inactive disables the checklist.
func Inactive() ChecklistOption {
	return func(f *ChecklistFixture) {
		f.Active = false
	}
}

// Application returns the fixture as an application.Checklist value.
func (f ChecklistFixture) Application() application.Checklist {
	return application.Checklist{
		ID:            f.ID,
		Title:         f.Title,
		ClientID:      f.ClientID,
		LocationID:    f.LocationID,
		TypeID:        f.TypeID,
		AssignedTo:    f.AssignedTo,
		Periodicity:   f.Periodicity,
		CustomDays:    append([]int(nil), f.CustomDays...),
		Time:          f.Time,
		Validity:      copyTimePtr(f.Validity),
		RequirePhotos: f.RequirePhotos,
		Items:         append([]application.ChecklistItem(nil), f.Items...),
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Checklist value.
func (f ChecklistFixture) Persistence() persistence.Checklist {
	items := make([]persistence.ChecklistItem, 0, len(f.Items))
	for _, item := range f.Items {
		items = append(items, persistence.ChecklistItem{ID: item.ID, Description: item.Description, RequirePhoto: item.RequirePhoto})
	}
	var assigned *string
	if f.AssignedTo != "" {
		a := f.AssignedTo
		assigned = &a
	}
	return persistence.Checklist{
		ID:            f.ID,
		Title:         f.Title,
		ClientID:      f.ClientID,
		LocationID:    f.LocationID,
		TypeID:        f.TypeID,
		AssignedTo:    assigned,
		Periodicity:   string(f.Periodicity),
		CustomDays:    append([]int(nil), f.CustomDays...),
		Time:          f.Time,
		Validity:      copyTimePtr(f.Validity),
		RequirePhotos: f.RequirePhotos,
		Items:         items,
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// --------------------------- Execution fixtures ---------------------------

// ExecutionFixture represents a deterministic completed run.
type ExecutionFixture struct {
	ID             string
	ChecklistID    string
	UserID         string
	CompletedAt    time.Time
	CompletedItems []string
	Photos         map[string]string
	Notes          string
}

// ExecutionOption configures the generated execution fixture.
type ExecutionOption func(*ExecutionFixture)

// NewExecutionFixture returns an execution of checklist c by userID that
// completes every item of c.
func NewExecutionFixture(c ChecklistFixture, userID string, opts ...ExecutionOption) ExecutionFixture {
	idx, id := executionIDs.next()
	completed := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		completed = append(completed, item.ID)
	}
	fixture := ExecutionFixture{
		ID:             id,
		ChecklistID:    c.ID,
		UserID:         userID,
		CompletedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
		CompletedItems: completed,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// CompletedAt sets the completion instant.
func CompletedAt(t time.Time) ExecutionOption {
	return func(f *ExecutionFixture) {
		f.CompletedAt = t
	}
}

// WithPhoto attaches a stored photo path to itemID.
func WithPhoto(itemID, path string) ExecutionOption {
	return func(f *ExecutionFixture) {
		if f.Photos == nil {
			f.Photos = make(map[string]string)
		}
		f.Photos[itemID] = path
	}
}

// WithNotes sets the technician's remarks.
func WithNotes(notes string) ExecutionOption {
	return func(f *ExecutionFixture) {
		f.Notes = notes
	}
}

// Application returns the fixture as an application.Execution value.
func (f ExecutionFixture) Application() application.Execution {
	return application.Execution{
		ID:             f.ID,
		ChecklistID:    f.ChecklistID,
		UserID:         f.UserID,
		CompletedAt:    f.CompletedAt,
		CompletedItems: append([]string(nil), f.CompletedItems...),
		Photos:         copyPhotos(f.Photos),
		Notes:          f.Notes,
	}
}

// Persistence returns the fixture as a persistence.Execution value.
func (f ExecutionFixture) Persistence() persistence.Execution {
	return persistence.Execution{
		ID:             f.ID,
		ChecklistID:    f.ChecklistID,
		UserID:         f.UserID,
		CompletedAt:    f.CompletedAt,
		CompletedItems: append([]string(nil), f.CompletedItems...),
		Photos:         copyPhotos(f.Photos),
		Notes:          f.Notes,
	}
}

// Schedule returns the fixture as the recurrence engine sees it.
func (f ExecutionFixture) Schedule() recurrence.Execution {
	return recurrence.Execution{ChecklistID: f.ChecklistID, UserID: f.UserID, CompletedAt: f.CompletedAt}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func copyPhotos(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
