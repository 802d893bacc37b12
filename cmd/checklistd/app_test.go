package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/config"
	"github.com/example/facility-checklists/internal/recurrence"
	"github.com/example/facility-checklists/internal/testfixtures"
)

type appHarness struct {
	app   *app
	clock *testfixtures.Clock
}

func newAppHarness(t *testing.T, driver string) *appHarness {
	t.Helper()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	dataDir := filepath.Join(t.TempDir(), "data")
	cfg := config.Config{
		DataDir:       dataDir,
		StorageDriver: driver,
		SQLiteDSN:     "file:" + filepath.Join(dataDir, "checklists.db"),
		TokenSecret:   "test-secret",
		TokenTTL:      time.Hour,
		Timezone:      "America/Sao_Paulo",
		Location:      loc,
		UploadDir:     filepath.Join(dataDir, "uploads"),
	}
	clock := testfixtures.NewClock(time.Date(2026, 10, 15, 9, 30, 0, 0, loc))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger, clock.NowFunc())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.bootstrap(context.Background(), "admin-secret", logger))
	return &appHarness{app: a, clock: clock}
}

func (h *appHarness) call(t *testing.T, method, target, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.app.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (h *appHarness) login(t *testing.T, username, password string) string {
	t.Helper()
	rec, body := h.call(t, http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["token"].(string)
}

func field(t *testing.T, body map[string]any, path ...string) any {
	t.Helper()
	var current any = body
	for _, key := range path {
		m, ok := current.(map[string]any)
		require.Truef(t, ok, "expected object at %q in %v", key, body)
		current = m[key]
	}
	return current
}

func TestApp_ChecklistLifecycle(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{config.StorageJSONFile, config.StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			h := newAppHarness(t, driver)
			admin := h.login(t, "admin", "admin-secret")

			rec, body := h.call(t, http.MethodGet, "/checklist-types", admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			types := body["checklistTypes"].([]any)
			require.Len(t, types, len(defaultChecklistTypes))
			typeID := types[0].(map[string]any)["id"].(string)

			rec, body = h.call(t, http.MethodPost, "/clients", admin, map[string]string{"name": "Condomínio Aurora"})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			clientID := field(t, body, "client", "id").(string)

			rec, body = h.call(t, http.MethodPost, "/locations", admin, map[string]string{"clientId": clientID, "name": "Torre A"})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			locationID := field(t, body, "location", "id").(string)

			rec, body = h.call(t, http.MethodPost, "/users", admin, map[string]any{"username": "joao", "name": "João", "password": "segredo1"})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			techID := field(t, body, "user", "id").(string)

			rec, body = h.call(t, http.MethodPost, "/checklists", admin, map[string]any{
				"title":       "Ronda da manhã",
				"clientId":    clientID,
				"locationId":  locationID,
				"typeId":      typeID,
				"assignedTo":  techID,
				"periodicity": "daily",
				"time":        "08:00",
				"validity":    "2026-12-31",
				"items":       []map[string]any{{"description": "Verificar portão"}},
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			checklistID := field(t, body, "checklist", "id").(string)
			itemID := field(t, body, "checklist", "items").([]any)[0].(map[string]any)["id"].(string)

			tech := h.login(t, "joao", "segredo1")

			rec, body = h.call(t, http.MethodGet, "/agenda", tech, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, body["pendingChecklists"], 1)
			assert.Equal(t, string(recurrence.ReasonNeverExecuted), field(t, body, "pendingChecklists").([]any)[0].(map[string]any)["status"].(map[string]any)["reason"])

			submission := map[string]any{"checklistId": checklistID, "completedItems": []string{itemID}}
			rec, _ = h.call(t, http.MethodPost, "/executions", tech, submission)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec, body = h.call(t, http.MethodPost, "/executions", tech, submission)
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, "CHECKLIST_ALREADY_EXECUTED", body["error_code"])

			rec, body = h.call(t, http.MethodGet, "/agenda", tech, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, body["pendingChecklists"])
			assert.EqualValues(t, 100, field(t, body, "dailyProgress", "completionPercent"))
			assert.EqualValues(t, 1, field(t, body, "overallStats", "totalCompletedOverall"))

			// The next day opens a new period.
			h.clock.AdvanceDays(1)
			rec, body = h.call(t, http.MethodGet, "/checklists/"+checklistID+"/due", tech, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, field(t, body, "status", "due"))

			rec, body = h.call(t, http.MethodGet, "/executions", admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, body["executions"], 1)

			rec, _ = h.call(t, http.MethodGet, "/metrics", "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `checklists_executions_recorded_total{periodicity="daily"} 1`)
			assert.Contains(t, rec.Body.String(), `checklists_executions_rejected_total{reason="already_executed"} 1`)
		})
	}
}

func TestApp_BootstrapIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newAppHarness(t, config.StorageJSONFile)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, h.app.bootstrap(context.Background(), "other-password", logger))

	admin := h.login(t, "admin", "admin-secret")
	rec, body := h.call(t, http.MethodGet, "/categories", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["categories"], len(defaultCategories))

	users, err := h.app.users.ListUsers(context.Background(), application.Principal{UserID: "test", IsAdmin: true})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestApp_DigestCountsPending(t *testing.T) {
	t.Parallel()

	h := newAppHarness(t, config.StorageJSONFile)
	admin := h.login(t, "admin", "admin-secret")

	rec, _ := h.call(t, http.MethodPost, "/users", admin, map[string]any{"username": "ana", "name": "Ana", "password": "segredo2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	digests, err := h.app.agenda.Digest(context.Background())
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, "ana", digests[0].Username)
	assert.Zero(t, digests[0].Pending)
}

func TestPrintAgenda(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	last := time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)
	agenda := application.Agenda{
		UserID:      "tech-1",
		EvaluatedAt: time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC),
		Pending: []application.AgendaEntry{{
			Checklist: application.Checklist{ID: "k1", Title: "Ronda", Periodicity: recurrence.PeriodicityDaily},
			Status:    recurrence.DueStatus{Due: true, Reason: recurrence.ReasonNewPeriod, LastCompletedAt: &last},
		}},
		DailyProgress: recurrence.DailyProgress{TotalDailyChecklists: 4, CompletedDailyChecklistsToday: 3},
		OverallStats:  recurrence.OverallStats{TotalCompletedOverall: 1, TotalScheduledOverall: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, printAgenda(&buf, agenda, loc))

	out := buf.String()
	assert.Contains(t, out, "15/10/2026 09:30")
	assert.Contains(t, out, "3/4 (75%)")
	assert.Contains(t, out, "1/4 (25%)")
	assert.Contains(t, out, "new_period")
	assert.Contains(t, out, "14/10/2026 08:00")
}
