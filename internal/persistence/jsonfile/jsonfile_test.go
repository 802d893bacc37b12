package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/persistence"
	"github.com/example/facility-checklists/internal/persistence/persistencetest"
)

func TestStores(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	persistencetest.RunStoresContract(t, db.Stores())
}

func TestCollection_ReadsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	legacy := `[
  {
    "id": "u-1",
    "username": "admin",
    "password": "$argon2id$stub",
    "name": "Administrador",
    "isAdmin": true,
    "createdAt": "2024-03-01T12:00:00.000Z",
    "updatedAt": "2024-03-01T12:00:00.000Z"
  }
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(legacy), 0o644))

	db, err := Open(dir)
	require.NoError(t, err)

	user, err := db.Stores().Users.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, 2024, user.CreatedAt.Year())
}

func TestCollection_ToleratesLooseChecklistFields(t *testing.T) {
	dir := t.TempDir()
	legacy := `[
  {"id": "blank", "title": "Avulso", "periodicity": "loose", "validity": "", "assignedTo": null, "items": [], "active": true},
  {"id": "dated", "title": "Diário", "periodicity": "daily", "time": "08:00", "validity": "2026-12-31", "items": [], "active": true},
  {"id": "custom", "title": "Seg/Qua", "periodicity": "custom", "customDays": [1, "3", "x", 2.5], "validity": "amanhã", "items": [], "active": true},
  {"id": "stamped", "title": "Mensal", "periodicity": "monthly", "validity": "2026-11-30T03:00:00.000Z", "items": [], "active": true}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checklists.json"), []byte(legacy), 0o644))

	db, err := Open(dir)
	require.NoError(t, err)

	list, err := db.Stores().Checklists.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 4)

	byID := make(map[string]persistence.Checklist, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}
	assert.Nil(t, byID["blank"].Validity)
	require.NotNil(t, byID["dated"].Validity)
	assert.Equal(t, "2026-12-31", byID["dated"].Validity.Format("2006-01-02"))
	assert.Equal(t, []int{1, 3}, byID["custom"].CustomDays)
	assert.Nil(t, byID["custom"].Validity)
	require.NotNil(t, byID["stamped"].Validity)
	assert.Equal(t, 3, byID["stamped"].Validity.Hour())
}

func TestCollection_EmptyFileIsEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clients.json"), nil, 0o644))

	db, err := Open(dir)
	require.NoError(t, err)

	list, err := NewCollection[persistence.Client](db, persistence.CollectionClients).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollection_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)

	clients := NewCollection[persistence.Client](db, persistence.CollectionClients)
	require.NoError(t, clients.Put(context.Background(), persistence.Client{ID: "c-1", Name: "Acme"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "clients.json", entries[0].Name())
}

func TestCollection_HonoursCancelledContext(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewCollection[persistence.Client](db, persistence.CollectionClients).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_RequiresDirectory(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
