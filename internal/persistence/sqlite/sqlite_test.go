package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/persistence"
	"github.com/example/facility-checklists/internal/persistence/persistencetest"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "checklists.db")
	db, err := Open(context.Background(), DefaultConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestStores(t *testing.T) {
	persistencetest.RunStoresContract(t, newTestDB(t).Stores())
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestCollections_AreIsolated(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	categories := NewCollection[persistence.Term](db, persistence.CollectionCategories)
	types := NewCollection[persistence.Term](db, persistence.CollectionChecklistTypes)

	require.NoError(t, categories.Put(ctx, persistence.Term{ID: "t-1", Name: "Eletricista"}))

	_, err := types.Get(ctx, "t-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	list, err := types.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}
