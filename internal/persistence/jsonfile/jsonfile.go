// Package jsonfile stores each collection as a JSON array in its own file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/facility-checklists/internal/persistence"
)

// DB is a directory of collection files.
type DB struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// Open prepares dir for use, creating it when missing.
func Open(dir string) (*DB, error) {
	if dir == "" {
		return nil, errors.New("jsonfile: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create data directory: %w", err)
	}
	return &DB{dir: dir, locks: make(map[string]*sync.RWMutex)}, nil
}

// Dir returns the data directory.
func (db *DB) Dir() string { return db.dir }

// Close releases resources held by the database. Files are written eagerly so
// there is nothing to flush.
func (db *DB) Close() error { return nil }

// Stores returns every collection of the application backed by db.
func (db *DB) Stores() persistence.Stores {
	return persistence.Stores{
		Users:          NewCollection[persistence.User](db, persistence.CollectionUsers),
		Clients:        NewCollection[persistence.Client](db, persistence.CollectionClients),
		Locations:      NewCollection[persistence.Location](db, persistence.CollectionLocations),
		Categories:     NewCollection[persistence.Term](db, persistence.CollectionCategories),
		ChecklistTypes: NewCollection[persistence.Term](db, persistence.CollectionChecklistTypes),
		Checklists:     NewCollection[persistence.Checklist](db, persistence.CollectionChecklists),
		Executions:     persistence.NewExecutionLog(NewCollection[persistence.Execution](db, persistence.CollectionExecutions)),
	}
}

func (db *DB) lockFor(name string) *sync.RWMutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	lock, ok := db.locks[name]
	if !ok {
		lock = &sync.RWMutex{}
		db.locks[name] = lock
	}
	return lock
}

// Collection is one JSON file holding an array of records.
type Collection[T persistence.Record] struct {
	path string
	mu   *sync.RWMutex
}

// NewCollection binds the collection name to <dir>/<name>.json.
func NewCollection[T persistence.Record](db *DB, name string) *Collection[T] {
	return &Collection[T]{
		path: filepath.Join(db.dir, name+".json"),
		mu:   db.lockFor(name),
	}
}

// List returns every record in file order.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.read()
}

// Get returns the record with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	records, err := c.List(ctx)
	if err != nil {
		return zero, err
	}
	for _, rec := range records {
		if rec.RecordID() == id {
			return rec, nil
		}
	}
	return zero, persistence.ErrNotFound
}

// Put replaces the record with the same id or appends it.
func (c *Collection[T]) Put(ctx context.Context, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range records {
		if records[i].RecordID() == record.RecordID() {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	return c.write(records)
}

// Delete removes the record with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.RecordID() != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return persistence.ErrNotFound
	}
	return c.write(kept)
}

func (c *Collection[T]) read() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", filepath.Base(c.path), err)
	}
	records := []T{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", filepath.Base(c.path), err)
	}
	return records, nil
}

// write replaces the file atomically through a temporary sibling.
func (c *Collection[T]) write(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode %s: %w", filepath.Base(c.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("jsonfile: write %s: %w", filepath.Base(c.path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("jsonfile: sync %s: %w", filepath.Base(c.path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("jsonfile: close %s: %w", filepath.Base(c.path), err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		cleanup()
		return fmt.Errorf("jsonfile: replace %s: %w", filepath.Base(c.path), err)
	}
	return nil
}
