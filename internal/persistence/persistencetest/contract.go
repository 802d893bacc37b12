// Package persistencetest holds behaviour checks shared by every storage backend.
package persistencetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/persistence"
)

var errAlreadyRan = errors.New("already ran")

// RunStoresContract exercises the collections and execution log of a backend.
// stores must be empty.
func RunStoresContract(t *testing.T, stores persistence.Stores) {
	t.Helper()

	t.Run("collection round trip", func(t *testing.T) {
		ctx := context.Background()
		clients := stores.Clients
		now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

		list, err := clients.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
			require.NoError(t, clients.Put(ctx, persistence.Client{ID: "client-" + name, Name: name, CreatedAt: now, UpdatedAt: now}))
		}

		updated := persistence.Client{ID: "client-Alpha", Name: "Alpha Updated", Phone: "123", CreatedAt: now, UpdatedAt: now.Add(time.Hour)}
		require.NoError(t, clients.Put(ctx, updated))

		got, err := clients.Get(ctx, "client-Alpha")
		require.NoError(t, err)
		assert.Equal(t, "Alpha Updated", got.Name)
		assert.Equal(t, "123", got.Phone)
		assert.True(t, got.UpdatedAt.Equal(now.Add(time.Hour)))

		list, err = clients.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"client-Alpha", "client-Bravo", "client-Charlie"}, []string{list[0].ID, list[1].ID, list[2].ID})

		require.NoError(t, clients.Delete(ctx, "client-Bravo"))
		assert.ErrorIs(t, clients.Delete(ctx, "client-Bravo"), persistence.ErrNotFound)
		_, err = clients.Get(ctx, "client-Bravo")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("checklist optional fields survive storage", func(t *testing.T) {
		ctx := context.Background()
		validity := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		assignee := "user-1"
		in := persistence.Checklist{
			ID:          "checklist-1",
			Title:       "Pump room",
			AssignedTo:  &assignee,
			Periodicity: "custom",
			CustomDays:  []int{1, 4},
			Time:        "08:00",
			Validity:    &validity,
			Items:       []persistence.ChecklistItem{{ID: "item-1", Description: "Check pressure", RequirePhoto: true}},
			Active:      true,
		}
		require.NoError(t, stores.Checklists.Put(ctx, in))

		out, err := stores.Checklists.Get(ctx, in.ID)
		require.NoError(t, err)
		require.NotNil(t, out.AssignedTo)
		assert.Equal(t, assignee, *out.AssignedTo)
		require.NotNil(t, out.Validity)
		assert.True(t, out.Validity.Equal(validity))
		assert.Equal(t, in.CustomDays, out.CustomDays)
		assert.Equal(t, in.Items, out.Items)

		loose := persistence.Checklist{ID: "checklist-2", Periodicity: "loose", Items: []persistence.ChecklistItem{}}
		require.NoError(t, stores.Checklists.Put(ctx, loose))
		out, err = stores.Checklists.Get(ctx, loose.ID)
		require.NoError(t, err)
		assert.Nil(t, out.AssignedTo)
		assert.Nil(t, out.Validity)
	})

	t.Run("execution log rejects duplicates", func(t *testing.T) {
		ctx := context.Background()
		log := stores.Executions
		rec := persistence.Execution{ID: "exec-1", ChecklistID: "c1", UserID: "u1", CompletedAt: time.Now().UTC()}

		require.NoError(t, log.Append(ctx, rec, nil))
		assert.ErrorIs(t, log.Append(ctx, rec, nil), persistence.ErrDuplicate)

		err := log.Append(ctx, persistence.Execution{ID: "exec-2", ChecklistID: "c1", UserID: "u1"}, onePerPair("c1", "u1"))
		assert.ErrorIs(t, err, persistence.ErrRejected)
		assert.ErrorIs(t, err, errAlreadyRan)

		history, err := log.ListFor(ctx, "c1", "u1")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("concurrent appends for one pair admit a single record", func(t *testing.T) {
		ctx := context.Background()
		log := stores.Executions

		const workers = 8
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := persistence.Execution{
					ID:          fmt.Sprintf("race-%d", i),
					ChecklistID: "loose-1",
					UserID:      "u2",
					CompletedAt: time.Now().UTC(),
				}
				if err := log.Append(ctx, rec, onePerPair("loose-1", "u2")); err == nil {
					succeeded.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		history, err := log.ListFor(ctx, "loose-1", "")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

func onePerPair(checklistID, userID string) func([]persistence.Execution) error {
	return func(history []persistence.Execution) error {
		for _, rec := range history {
			if rec.ChecklistID == checklistID && rec.UserID == userID {
				return errAlreadyRan
			}
		}
		return nil
	}
}
