package application

import (
	"context"
	"time"

	"github.com/example/facility-checklists/internal/recurrence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Repository is the keyed record store behind the catalog services.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Put(ctx context.Context, record T) error
	Delete(ctx context.Context, id string) error
}

// ExecutionLog is the append-only store of checklist executions.
type ExecutionLog interface {
	// Append stores the execution once guard accepts the history read under
	// the same lock. A guard error aborts the append and is returned wrapped.
	Append(ctx context.Context, execution Execution, guard func(history []Execution) error) error
	List(ctx context.Context) ([]Execution, error)
	// ListFor returns the executions of checklistID, narrowed to userID when
	// it is not empty.
	ListFor(ctx context.Context, checklistID, userID string) ([]Execution, error)
}

// User is a technician or administrator account.
type User struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string
	IsAdmin      bool
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInput captures caller provided user fields. An empty password on update
// keeps the stored hash.
type UserInput struct {
	Username string `field:"username" validate:"required,max=64"`
	Name     string `field:"name" validate:"required,max=120"`
	Password string `field:"password" validate:"omitempty,min=6"`
	IsAdmin  bool
	Category string
}

// Client owns the locations where checklists are executed.
type Client struct {
	ID            string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ClientInput captures caller provided client fields.
type ClientInput struct {
	Name          string `field:"name" validate:"required,max=120"`
	ContactPerson string
	Phone         string
	Email         string `field:"email" validate:"omitempty,email"`
	Address       string
}

// Location is a place of a client.
type Location struct {
	ID          string
	ClientID    string
	Name        string
	Address     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LocationInput captures caller provided location fields.
type LocationInput struct {
	ClientID    string `field:"clientId" validate:"required"`
	Name        string `field:"name" validate:"required,max=120"`
	Address     string
	Description string
}

// Term is an entry of a named taxonomy: user categories or checklist types.
type Term struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TermInput captures caller provided taxonomy fields.
type TermInput struct {
	Name        string `field:"name" validate:"required,max=120"`
	Description string
}

// ChecklistItem is one step of a checklist.
type ChecklistItem struct {
	ID           string
	Description  string
	RequirePhoto bool
}

// Checklist is a checklist definition.
type Checklist struct {
	ID            string
	Title         string
	Description   string
	ClientID      string
	LocationID    string
	TypeID        string
	AssignedTo    string
	Periodicity   recurrence.Periodicity
	CustomDays    []int
	Time          string
	Validity      *time.Time
	RequirePhotos bool
	Items         []ChecklistItem
	Active        bool
	QRCodePath    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Schedule returns the fields the recurrence engine evaluates.
func (c Checklist) Schedule() recurrence.Checklist {
	return recurrence.Checklist{
		ID:          c.ID,
		AssignedTo:  c.AssignedTo,
		Periodicity: c.Periodicity,
		CustomDays:  c.CustomDays,
		Time:        c.Time,
		Validity:    c.Validity,
		Active:      c.Active,
	}
}

// Item returns the item with id.
func (c Checklist) Item(id string) (ChecklistItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return ChecklistItem{}, false
}

// ChecklistItemInput captures one caller provided item. A known ID keeps the
// item identity across updates.
type ChecklistItemInput struct {
	ID           string
	Description  string `field:"description" validate:"required"`
	RequirePhoto bool
}

// ChecklistInput captures caller provided checklist fields.
type ChecklistInput struct {
	Title         string `field:"title" validate:"required,max=200"`
	Description   string
	ClientID      string `field:"clientId" validate:"required"`
	LocationID    string `field:"locationId" validate:"required"`
	TypeID        string `field:"typeId" validate:"required"`
	AssignedTo    string
	Periodicity   string `field:"periodicity" validate:"required"`
	CustomDays    []int  `field:"customDays" validate:"dive,min=0,max=6"`
	Time          string `field:"time" validate:"omitempty,timeofday"`
	Validity      *time.Time
	RequirePhotos bool
	Items         []ChecklistItemInput `field:"items" validate:"min=1,dive"`
}

// ChecklistFilter narrows checklist listings.
type ChecklistFilter struct {
	ClientID string
}

// QRCodeEntry is an active checklist with the names printed on its label.
type QRCodeEntry struct {
	Checklist    Checklist
	ClientName   string
	LocationName string
}

// Execution is a completed checklist run.
type Execution struct {
	ID             string
	ChecklistID    string
	UserID         string
	CompletedAt    time.Time
	CompletedItems []string
	// Photos maps item ids to stored photo paths.
	Photos map[string]string
	Notes  string
}

// ExecutionInput captures a technician's submission.
type ExecutionInput struct {
	ChecklistID    string `field:"checklistId" validate:"required"`
	CompletedItems []string
	Photos         map[string]string
	Notes          string `field:"notes" validate:"max=2000"`
}

// ExecutionFilter narrows the administrative execution listing.
type ExecutionFilter struct {
	From        *time.Time
	To          *time.Time
	ClientID    string
	UserID      string
	ChecklistID string
}

// ExecutionReport is an execution joined with the names of what it refers to.
type ExecutionReport struct {
	Execution      Execution
	ChecklistTitle string
	ClientName     string
	LocationName   string
	UserName       string
}

// AgendaEntry is a checklist together with its evaluated due status.
type AgendaEntry struct {
	Checklist Checklist
	Status    recurrence.DueStatus
}

// Agenda is the evaluated view of one technician.
type Agenda struct {
	UserID        string
	EvaluatedAt   time.Time
	Pending       []AgendaEntry
	PendingToday  []AgendaEntry
	DailyProgress recurrence.DailyProgress
	OverallStats  recurrence.OverallStats
}

// DueCheck is the answer to whether one checklist is due for one technician.
type DueCheck struct {
	ChecklistID string
	UserID      string
	Status      recurrence.DueStatus
}

// TechnicianDigest summarises one technician's pending work.
type TechnicianDigest struct {
	UserID       string
	Username     string
	Pending      int
	PendingToday int
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// CreateChecklistParams wraps the data required to create a checklist.
type CreateChecklistParams struct {
	Principal Principal
	Input     ChecklistInput
}

// UpdateChecklistParams wraps the data required to update a checklist.
type UpdateChecklistParams struct {
	Principal   Principal
	ChecklistID string
	Input       ChecklistInput
}

// SubmitExecutionParams wraps a technician's execution submission.
type SubmitExecutionParams struct {
	Principal Principal
	Input     ExecutionInput
}

// AuthenticateParams carries login credentials.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult is a verified user and the token issued for them.
type AuthenticateResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
