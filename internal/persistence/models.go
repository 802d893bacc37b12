package persistence

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is implemented by every stored model.
type Record interface {
	RecordID() string
}

// User is the stored form of an account. JSON field names match the files
// written by earlier deployments so existing data directories load unchanged.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password"`
	Name         string    `json:"name"`
	IsAdmin      bool      `json:"isAdmin"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) RecordID() string { return u.ID }

// Client is a customer site owner.
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contactPerson"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (c Client) RecordID() string { return c.ID }

// Location is a place belonging to a client where checklists are executed.
type Location struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (l Location) RecordID() string { return l.ID }

// Term is a named taxonomy entry such as a user category or checklist type.
type Term struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t Term) RecordID() string { return t.ID }

// ChecklistItem is one step of a checklist.
type ChecklistItem struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	RequirePhoto bool   `json:"requirePhoto"`
}

// Checklist is the stored checklist definition.
type Checklist struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	ClientID      string          `json:"clientId"`
	LocationID    string          `json:"locationId"`
	TypeID        string          `json:"typeId"`
	AssignedTo    *string         `json:"assignedTo"`
	Periodicity   string          `json:"periodicity"`
	CustomDays    []int           `json:"customDays,omitempty"`
	Time          string          `json:"time,omitempty"`
	Validity      *time.Time      `json:"validity,omitempty"`
	RequirePhotos bool            `json:"requirePhotos"`
	Items         []ChecklistItem `json:"items"`
	Active        bool            `json:"active"`
	QRCodePath    string          `json:"qrCodePath,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (c Checklist) RecordID() string { return c.ID }

// UnmarshalJSON tolerates the validity and customDays values older front ends
// wrote: a blank or unparsable validity reads as absent, and non-integer
// weekdays are skipped.
func (c *Checklist) UnmarshalJSON(data []byte) error {
	type plain Checklist
	var raw struct {
		plain
		CustomDays []json.RawMessage `json:"customDays"`
		Validity   json.RawMessage   `json:"validity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Checklist(raw.plain)
	c.CustomDays = decodeWeekdays(raw.CustomDays)
	c.Validity = decodeValidity(raw.Validity)
	return nil
}

func decodeValidity(raw json.RawMessage) *time.Time {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return nil
	}
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func decodeWeekdays(raw []json.RawMessage) []int {
	var days []int
	for _, entry := range raw {
		var n int
		if json.Unmarshal(entry, &n) == nil {
			days = append(days, n)
			continue
		}
		var text string
		if json.Unmarshal(entry, &text) != nil {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			days = append(days, n)
		}
	}
	return days
}

// Execution is an append-only record of a completed checklist run.
type Execution struct {
	ID             string            `json:"id"`
	ChecklistID    string            `json:"checklistId"`
	UserID         string            `json:"userId"`
	CompletedAt    time.Time         `json:"completedAt"`
	CompletedItems []string          `json:"completedItems"`
	Photos         map[string]string `json:"photos,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

func (e Execution) RecordID() string { return e.ID }
