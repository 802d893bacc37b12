package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memoryRepository implements Repository[T] over a map for tests.
type memoryRepository[T any] struct {
	mu      sync.Mutex
	id      func(T) string
	records map[string]T
	order   []string
	listErr error
}

func newMemoryRepository[T any](id func(T) string, seed ...T) *memoryRepository[T] {
	repo := &memoryRepository[T]{id: id, records: make(map[string]T)}
	for _, rec := range seed {
		_ = repo.Put(context.Background(), rec)
	}
	return repo
}

func (r *memoryRepository[T]) List(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out, nil
}

func (r *memoryRepository[T]) Get(ctx context.Context, id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return rec, nil
}

func (r *memoryRepository[T]) Put(ctx context.Context, record T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.id(record)
	if id == "" {
		return fmt.Errorf("record id is required")
	}
	if _, ok := r.records[id]; !ok {
		r.order = append(r.order, id)
	}
	r.records[id] = record
	return nil
}

func (r *memoryRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryRepository[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func newUserRepository(seed ...User) *memoryRepository[User] {
	return newMemoryRepository(func(u User) string { return u.ID }, seed...)
}

func newClientRepository(seed ...Client) *memoryRepository[Client] {
	return newMemoryRepository(func(c Client) string { return c.ID }, seed...)
}

func newLocationRepository(seed ...Location) *memoryRepository[Location] {
	return newMemoryRepository(func(l Location) string { return l.ID }, seed...)
}

func newTermRepository(seed ...Term) *memoryRepository[Term] {
	return newMemoryRepository(func(t Term) string { return t.ID }, seed...)
}

func newChecklistRepository(seed ...Checklist) *memoryRepository[Checklist] {
	return newMemoryRepository(func(c Checklist) string { return c.ID }, seed...)
}

// executionLogStub implements ExecutionLog with the same locking contract as
// the persistent log.
type executionLogStub struct {
	mu      sync.Mutex
	entries []Execution
}

func (l *executionLogStub) Append(ctx context.Context, execution Execution, guard func([]Execution) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	history := append([]Execution(nil), l.entries...)
	if guard != nil {
		if err := guard(history); err != nil {
			return fmt.Errorf("execution rejected: %w", err)
		}
	}
	l.entries = append(l.entries, execution)
	return nil
}

func (l *executionLogStub) List(ctx context.Context) ([]Execution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Execution(nil), l.entries...), nil
}

func (l *executionLogStub) ListFor(ctx context.Context, checklistID, userID string) ([]Execution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Execution
	for _, e := range l.entries {
		if e.ChecklistID == checklistID && (userID == "" || e.UserID == userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// metricsRecorder counts the Metrics callbacks.
type metricsRecorder struct {
	mu       sync.Mutex
	recorded map[string]int
	rejected map[string]int
	due      map[string]int
	pending  map[string]int
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		recorded: make(map[string]int),
		rejected: make(map[string]int),
		due:      make(map[string]int),
		pending:  make(map[string]int),
	}
}

func (m *metricsRecorder) ExecutionRecorded(periodicity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[periodicity]++
}

func (m *metricsRecorder) ExecutionRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *metricsRecorder) DueEvaluated(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.due[reason]++
}

func (m *metricsRecorder) PendingChecklists(userID string, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[userID] = pending
}

// sequenceIDs returns prefix-1, prefix-2, ... on each call.
func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	adminPrincipal = Principal{UserID: "admin-1", IsAdmin: true}
	techPrincipal  = Principal{UserID: "tech-1"}
)
