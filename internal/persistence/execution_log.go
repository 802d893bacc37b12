package persistence

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ExecutionLog is the append-only store of checklist executions. Appends are
// serialised so that the guard sees every record committed before it.
type ExecutionLog struct {
	mu      sync.Mutex
	records Collection[Execution]
}

// NewExecutionLog wraps a collection as an execution log.
func NewExecutionLog(records Collection[Execution]) *ExecutionLog {
	return &ExecutionLog{records: records}
}

// Append stores rec after guard accepts the current history. A guard error is
// returned wrapped in ErrRejected and nothing is written.
func (l *ExecutionLog) Append(ctx context.Context, rec Execution, guard func(history []Execution) error) error {
	if l == nil || l.records == nil {
		return fmt.Errorf("execution log not configured")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("execution id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.records.List(ctx)
	if err != nil {
		return fmt.Errorf("read execution history: %w", err)
	}
	for _, existing := range history {
		if existing.ID == rec.ID {
			return ErrDuplicate
		}
	}
	if guard != nil {
		if err := guard(history); err != nil {
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	return l.records.Put(ctx, rec)
}

// List returns every execution in append order.
func (l *ExecutionLog) List(ctx context.Context) ([]Execution, error) {
	if l == nil || l.records == nil {
		return nil, nil
	}
	return l.records.List(ctx)
}

// ListFor returns the executions of checklistID, optionally narrowed to userID.
func (l *ExecutionLog) ListFor(ctx context.Context, checklistID, userID string) ([]Execution, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Execution, 0)
	for _, rec := range all {
		if rec.ChecklistID != checklistID {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
