// Package sqlite stores collections as JSON documents in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/facility-checklists/internal/persistence"
)

// Stores returns every collection of the application backed by d.
func (d *DB) Stores() persistence.Stores {
	return persistence.Stores{
		Users:          NewCollection[persistence.User](d, persistence.CollectionUsers),
		Clients:        NewCollection[persistence.Client](d, persistence.CollectionClients),
		Locations:      NewCollection[persistence.Location](d, persistence.CollectionLocations),
		Categories:     NewCollection[persistence.Term](d, persistence.CollectionCategories),
		ChecklistTypes: NewCollection[persistence.Term](d, persistence.CollectionChecklistTypes),
		Checklists:     NewCollection[persistence.Checklist](d, persistence.CollectionChecklists),
		Executions:     persistence.NewExecutionLog(NewCollection[persistence.Execution](d, persistence.CollectionExecutions)),
	}
}

// Collection stores records of one kind under a collection name.
type Collection[T persistence.Record] struct {
	db   *DB
	name string
	now  func() time.Time
}

// NewCollection binds a collection name to d.
func NewCollection[T persistence.Record](d *DB, name string) *Collection[T] {
	return &Collection[T]{db: d, name: name, now: time.Now}
}

// List returns every record in insertion order.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.db.db.QueryContext(ctx,
		`SELECT body FROM records WHERE collection = ? ORDER BY rowid`, c.name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", c.name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", c.name, err)
		}
		rec, err := decode[T](body)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode %s: %w", c.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", c.name, err)
	}
	return out, nil
}

// Get returns the record with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var body string
	err := c.db.db.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND id = ?`, c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, persistence.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("sqlite: get %s/%s: %w", c.name, id, err)
	}
	rec, err := decode[T](body)
	if err != nil {
		return zero, fmt.Errorf("sqlite: decode %s/%s: %w", c.name, id, err)
	}
	return rec, nil
}

// Put inserts the record or replaces the stored body, keeping its position.
func (c *Collection[T]) Put(ctx context.Context, record T) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s/%s: %w", c.name, record.RecordID(), err)
	}
	_, err = c.db.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		c.name, record.RecordID(), string(body), c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: put %s/%s: %w", c.name, record.RecordID(), err)
	}
	return nil
}

// Delete removes the record with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", c.name, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", c.name, id, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func decode[T any](body string) (T, error) {
	var rec T
	err := json.Unmarshal([]byte(body), &rec)
	return rec, err
}
