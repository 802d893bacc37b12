package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-checklists/internal/recurrence"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

type serviceFixture struct {
	now        time.Time
	engine     *recurrence.Engine
	users      *memoryRepository[User]
	clients    *memoryRepository[Client]
	locations  *memoryRepository[Location]
	types      *memoryRepository[Term]
	checklists *memoryRepository[Checklist]
	executions *executionLogStub
	metrics    *metricsRecorder
}

func newServiceFixture(now time.Time) *serviceFixture {
	return &serviceFixture{
		now:    now,
		engine: recurrence.NewEngine(saoPaulo),
		users: newUserRepository(
			User{ID: "admin-1", Username: "admin", IsAdmin: true},
			User{ID: "tech-1", Username: "joao", Name: "João"},
			User{ID: "tech-2", Username: "ana", Name: "Ana"},
		),
		clients: newClientRepository(
			Client{ID: "c1", Name: "Acme"},
			Client{ID: "c2", Name: "Beta"},
		),
		locations: newLocationRepository(
			Location{ID: "l1", ClientID: "c1", Name: "Portaria"},
			Location{ID: "l2", ClientID: "c2", Name: "Garagem"},
		),
		types:      newTermRepository(Term{ID: "t1", Name: "Preventiva"}),
		checklists: newChecklistRepository(),
		executions: &executionLogStub{},
		metrics:    newMetricsRecorder(),
	}
}

func (f *serviceFixture) checklistService(qr QRCodeEncoder) *ChecklistService {
	return NewChecklistService(ChecklistServiceDeps{
		Checklists:     f.checklists,
		Clients:        f.clients,
		Locations:      f.locations,
		ChecklistTypes: f.types,
		Users:          f.users,
		Executions:     f.executions,
		Engine:         f.engine,
		QRCodes:        qr,
		IDGenerator:    sequenceIDs("id"),
		Now:            fixedNow(f.now),
	})
}

func (f *serviceFixture) executionService() *ExecutionService {
	return NewExecutionService(ExecutionServiceDeps{
		Executions:  f.executions,
		Checklists:  f.checklists,
		Clients:     f.clients,
		Locations:   f.locations,
		Users:       f.users,
		Engine:      f.engine,
		Exporter:    &exporterStub{},
		Metrics:     f.metrics,
		IDGenerator: sequenceIDs("exec"),
		Now:         fixedNow(f.now),
	})
}

func (f *serviceFixture) agendaService() *AgendaService {
	return NewAgendaService(AgendaServiceDeps{
		Checklists: f.checklists,
		Executions: f.executions,
		Users:      f.users,
		Engine:     f.engine,
		Metrics:    f.metrics,
		Now:        fixedNow(f.now),
	})
}

func (f *serviceFixture) seed(t *testing.T, checklists ...Checklist) {
	t.Helper()
	for _, c := range checklists {
		if err := f.checklists.Put(context.Background(), c); err != nil {
			t.Fatalf("seed checklist %s: %v", c.ID, err)
		}
	}
}

func (f *serviceFixture) ran(checklistID, userID string, at time.Time) {
	f.executions.entries = append(f.executions.entries, Execution{
		ID:          checklistID + "@" + at.Format(time.RFC3339),
		ChecklistID: checklistID,
		UserID:      userID,
		CompletedAt: at,
	})
}

func validChecklistInput() ChecklistInput {
	validity := time.Date(2025, time.January, 1, 0, 0, 0, 0, saoPaulo)
	return ChecklistInput{
		Title:       "Ronda da portaria",
		ClientID:    "c1",
		LocationID:  "l1",
		TypeID:      "t1",
		AssignedTo:  "tech-1",
		Periodicity: "daily",
		Time:        "08:00",
		Validity:    &validity,
		Items: []ChecklistItemInput{
			{Description: "Verificar extintores"},
			{Description: "Fotografar painel", RequirePhoto: true},
		},
	}
}

type qrEncoderStub struct {
	content string
}

func (q *qrEncoderStub) Encode(content string) ([]byte, error) {
	q.content = content
	return []byte("png:" + content), nil
}

func TestChecklistService_CreateChecklist(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(now)
		_, err := f.checklistService(nil).CreateChecklist(context.Background(), CreateChecklistParams{Principal: techPrincipal, Input: validChecklistInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("persists active checklists with item ids", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(now)
		checklist, err := f.checklistService(nil).CreateChecklist(context.Background(), CreateChecklistParams{Principal: adminPrincipal, Input: validChecklistInput()})
		if err != nil {
			t.Fatalf("CreateChecklist failed: %v", err)
		}
		if !checklist.Active || checklist.ID != "id-1" {
			t.Fatalf("unexpected checklist %#v", checklist)
		}
		if checklist.QRCodePath != "/checklists/id-1/qrcode" {
			t.Fatalf("unexpected qr code path %q", checklist.QRCodePath)
		}
		if len(checklist.Items) != 2 || checklist.Items[0].ID == "" || checklist.Items[0].ID == checklist.Items[1].ID {
			t.Fatalf("expected distinct item ids, got %#v", checklist.Items)
		}
		if f.checklists.len() != 1 {
			t.Fatalf("expected checklist stored, got %d", f.checklists.len())
		}
	})

	t.Run("clears the assignee of loose checklists", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(now)
		input := validChecklistInput()
		input.Periodicity = "loose"
		input.Time = ""
		input.Validity = nil

		checklist, err := f.checklistService(nil).CreateChecklist(context.Background(), CreateChecklistParams{Principal: adminPrincipal, Input: input})
		if err != nil {
			t.Fatalf("CreateChecklist failed: %v", err)
		}
		if checklist.AssignedTo != "" {
			t.Fatalf("expected loose checklist in the shared pool, got %q", checklist.AssignedTo)
		}
	})

	t.Run("keeps sorted unique custom days", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(now)
		input := validChecklistInput()
		input.Periodicity = "custom"
		input.CustomDays = []int{4, 1, 4}

		checklist, err := f.checklistService(nil).CreateChecklist(context.Background(), CreateChecklistParams{Principal: adminPrincipal, Input: input})
		if err != nil {
			t.Fatalf("CreateChecklist failed: %v", err)
		}
		if len(checklist.CustomDays) != 2 || checklist.CustomDays[0] != 1 || checklist.CustomDays[1] != 4 {
			t.Fatalf("unexpected custom days %v", checklist.CustomDays)
		}
	})

	t.Run("reports field errors", func(t *testing.T) {
		t.Parallel()

		cases := map[string]struct {
			mutate func(*ChecklistInput)
			field  string
		}{
			"unknown periodicity":        {func(in *ChecklistInput) { in.Periodicity = "fortnightly" }, "periodicity"},
			"custom without days":        {func(in *ChecklistInput) { in.Periodicity = "custom" }, "customDays"},
			"custom day out of range":    {func(in *ChecklistInput) { in.Periodicity = "custom"; in.CustomDays = []int{7} }, "customDays[0]"},
			"recurring without time":     {func(in *ChecklistInput) { in.Time = "" }, "time"},
			"malformed time":             {func(in *ChecklistInput) { in.Time = "8h" }, "time"},
			"recurring without validity": {func(in *ChecklistInput) { in.Validity = nil }, "validity"},
			"no items":                   {func(in *ChecklistInput) { in.Items = nil }, "items"},
			"missing client":             {func(in *ChecklistInput) { in.ClientID = "missing" }, "clientId"},
			"location of other client":   {func(in *ChecklistInput) { in.LocationID = "l2" }, "locationId"},
			"unknown type":               {func(in *ChecklistInput) { in.TypeID = "missing" }, "typeId"},
			"unknown assignee":           {func(in *ChecklistInput) { in.AssignedTo = "ghost" }, "assignedTo"},
		}
		for name, tc := range cases {
			tc := tc
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				f := newServiceFixture(now)
				input := validChecklistInput()
				tc.mutate(&input)

				_, err := f.checklistService(nil).CreateChecklist(context.Background(), CreateChecklistParams{Principal: adminPrincipal, Input: input})
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s error, got %v", tc.field, sortedKeys(vErr.FieldErrors))
				}
				if f.checklists.len() != 0 {
					t.Fatal("expected nothing stored")
				}
			})
		}
	})
}

func TestChecklistService_UpdateChecklist(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)
	f := newServiceFixture(now)
	svc := f.checklistService(nil)

	created, err := svc.CreateChecklist(context.Background(), CreateChecklistParams{Principal: adminPrincipal, Input: validChecklistInput()})
	if err != nil {
		t.Fatalf("CreateChecklist failed: %v", err)
	}

	input := validChecklistInput()
	input.Title = "Ronda noturna"
	input.Items = []ChecklistItemInput{
		{ID: created.Items[1].ID, Description: "Fotografar painel"},
		{ID: "forged", Description: "Novo item"},
	}
	updated, err := svc.UpdateChecklist(context.Background(), UpdateChecklistParams{Principal: adminPrincipal, ChecklistID: created.ID, Input: input})
	if err != nil {
		t.Fatalf("UpdateChecklist failed: %v", err)
	}
	if updated.Title != "Ronda noturna" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected checklist %#v", updated)
	}
	if updated.Items[0].ID != created.Items[1].ID {
		t.Fatalf("expected known item id kept, got %q", updated.Items[0].ID)
	}
	if updated.Items[1].ID == "forged" {
		t.Fatal("expected unknown item id replaced")
	}

	if _, err := svc.UpdateChecklist(context.Background(), UpdateChecklistParams{Principal: adminPrincipal, ChecklistID: "missing", Input: input}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChecklistService_ListChecklists(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)
	f := newServiceFixture(now)
	f.seed(t,
		Checklist{ID: "done", Title: "A", ClientID: "c1", AssignedTo: "tech-1", Periodicity: recurrence.PeriodicityDaily, Active: true},
		Checklist{ID: "open", Title: "B", ClientID: "c1", AssignedTo: "tech-1", Periodicity: recurrence.PeriodicityDaily, Active: true},
		Checklist{ID: "pool", Title: "C", ClientID: "c2", Periodicity: recurrence.PeriodicityLoose, Active: true},
		Checklist{ID: "other", Title: "D", ClientID: "c1", AssignedTo: "tech-2", Periodicity: recurrence.PeriodicityDaily, Active: true},
		Checklist{ID: "off", Title: "E", ClientID: "c1", AssignedTo: "tech-1", Periodicity: recurrence.PeriodicityDaily},
	)
	f.ran("done", "tech-1", now.Add(-time.Hour))
	svc := f.checklistService(nil)

	t.Run("technicians see what is due for them", func(t *testing.T) {
		got, err := svc.ListChecklists(context.Background(), techPrincipal, ChecklistFilter{})
		if err != nil {
			t.Fatalf("ListChecklists failed: %v", err)
		}
		if ids := checklistIDs(got); len(ids) != 2 || ids[0] != "open" || ids[1] != "pool" {
			t.Fatalf("unexpected checklists %v", ids)
		}
	})

	t.Run("administrators see everything of a client", func(t *testing.T) {
		got, err := svc.ListChecklists(context.Background(), adminPrincipal, ChecklistFilter{ClientID: "c1"})
		if err != nil {
			t.Fatalf("ListChecklists failed: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected four checklists of c1, got %v", checklistIDs(got))
		}
	})

	t.Run("technicians cannot open checklists assigned to others", func(t *testing.T) {
		if _, err := svc.GetChecklist(context.Background(), techPrincipal, "other"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.GetChecklist(context.Background(), techPrincipal, "pool"); err != nil {
			t.Fatalf("expected pool checklist readable, got %v", err)
		}
	})
}

func TestChecklistService_QRCodes(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)
	f := newServiceFixture(now)
	f.seed(t,
		Checklist{ID: "k1", Title: "Ronda", ClientID: "c2", LocationID: "l2", Active: true},
		Checklist{ID: "k2", Title: "Bombas", ClientID: "c1", LocationID: "l1", Active: true},
		Checklist{ID: "k3", Title: "Desligado", ClientID: "c1", LocationID: "l1"},
	)
	qr := &qrEncoderStub{}
	svc := f.checklistService(qr)

	png, err := svc.QRCode(context.Background(), adminPrincipal, "k1")
	if err != nil {
		t.Fatalf("QRCode failed: %v", err)
	}
	if qr.content != "/professional/execute-checklist/k1" || string(png) != "png:"+qr.content {
		t.Fatalf("unexpected qr content %q", qr.content)
	}

	entries, err := svc.ActiveQRCodes(context.Background(), adminPrincipal, "")
	if err != nil {
		t.Fatalf("ActiveQRCodes failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Checklist.ID != "k2" || entries[0].ClientName != "Acme" || entries[1].LocationName != "Garagem" {
		t.Fatalf("unexpected entries %#v", entries)
	}

	if _, err := svc.ActiveQRCodes(context.Background(), techPrincipal, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestChecklistService_SetActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)
	f := newServiceFixture(now)
	f.seed(t, Checklist{ID: "k1", Title: "Ronda", Active: true})
	svc := f.checklistService(nil)

	checklist, err := svc.SetActive(context.Background(), adminPrincipal, "k1", false)
	if err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if checklist.Active {
		t.Fatal("expected checklist deactivated")
	}
	if _, err := svc.SetActive(context.Background(), techPrincipal, "k1", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func checklistIDs(checklists []Checklist) []string {
	out := make([]string, 0, len(checklists))
	for _, c := range checklists {
		out = append(out, c.ID)
	}
	return out
}
