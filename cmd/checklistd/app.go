package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/config"
	httptransport "github.com/example/facility-checklists/internal/http"
	"github.com/example/facility-checklists/internal/media"
	"github.com/example/facility-checklists/internal/metrics"
	"github.com/example/facility-checklists/internal/persistence"
	"github.com/example/facility-checklists/internal/persistence/jsonfile"
	"github.com/example/facility-checklists/internal/persistence/sqlite"
	"github.com/example/facility-checklists/internal/recurrence"
	"github.com/example/facility-checklists/internal/report"
)

// app holds the services and transport of one process.
type app struct {
	storage io.Closer

	users          *application.UserService
	categories     *application.TaxonomyService
	checklistTypes *application.TaxonomyService
	agenda         *application.AgendaService
	recorder       *metrics.Recorder
	handler        http.Handler
}

func openStorage(ctx context.Context, cfg config.Config) (persistence.Stores, io.Closer, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return persistence.Stores{}, nil, fmt.Errorf("create data directory: %w", err)
		}
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return persistence.Stores{}, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return persistence.Stores{}, nil, err
		}
		return db.Stores(), db, nil
	case config.StorageJSONFile:
		db, err := jsonfile.Open(cfg.DataDir)
		if err != nil {
			return persistence.Stores{}, nil, err
		}
		return db.Stores(), db, nil
	default:
		return persistence.Stores{}, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (*app, error) {
	if now == nil {
		now = time.Now
	}
	stores, storage, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	repos := newRepositories(stores)
	engine := recurrence.NewEngine(cfg.Location)
	recorder := metrics.NewRecorder()
	idGenerator := uuid.NewString
	hashPassword := func(password string) (string, error) {
		return application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	}

	photos, err := media.NewPhotoStore(cfg.UploadDir, cfg.PhotoMaxWidth, now, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	userService := application.NewUserServiceWithLogger(repos.users, hashPassword, idGenerator, now, logger)
	clientService := application.NewClientServiceWithLogger(repos.clients, repos.locations, idGenerator, now, logger)
	locationService := application.NewLocationServiceWithLogger(repos.locations, repos.clients, idGenerator, now, logger)
	categoryService := application.NewTaxonomyServiceWithLogger(persistence.CollectionCategories, repos.categories, idGenerator, now, logger)
	typeService := application.NewTaxonomyServiceWithLogger(persistence.CollectionChecklistTypes, repos.checklistTypes, idGenerator, now, logger)
	checklistService := application.NewChecklistService(application.ChecklistServiceDeps{
		Checklists:     repos.checklists,
		Clients:        repos.clients,
		Locations:      repos.locations,
		ChecklistTypes: repos.checklistTypes,
		Users:          repos.users,
		Executions:     repos.executions,
		Engine:         engine,
		QRCodes:        media.QREncoder{BaseURL: cfg.PublicURL},
		IDGenerator:    idGenerator,
		Now:            now,
		Logger:         logger,
	})
	executionService := application.NewExecutionService(application.ExecutionServiceDeps{
		Executions:  repos.executions,
		Checklists:  repos.checklists,
		Clients:     repos.clients,
		Locations:   repos.locations,
		Users:       repos.users,
		Engine:      engine,
		Exporter:    report.XLSXExporter{Location: cfg.Location},
		Metrics:     recorder,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})
	agendaService := application.NewAgendaService(application.AgendaServiceDeps{
		Checklists: repos.checklists,
		Executions: repos.executions,
		Users:      repos.users,
		Engine:     engine,
		Metrics:    recorder,
		Now:        now,
		Logger:     logger,
	})
	authService := application.NewAuthServiceWithLogger(userService, application.VerifyPassword, []byte(cfg.TokenSecret), now, cfg.TokenTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, userService, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Clients:        httptransport.NewClientHandler(clientService, logger),
		Locations:      httptransport.NewLocationHandler(locationService, logger),
		Categories:     httptransport.NewTermHandler(persistence.CollectionCategories, categoryService, logger),
		ChecklistTypes: httptransport.NewTermHandler("checklistTypes", typeService, logger),
		Checklists:     httptransport.NewChecklistHandler(checklistService, cfg.Location, logger),
		Agenda:         httptransport.NewAgendaHandler(agendaService, logger),
		Executions:     httptransport.NewExecutionHandler(executionService, cfg.Location, now, logger),
		Uploads:        httptransport.NewUploadHandler(photos, logger),
		Tokens:         authService,
		PhotoDir:       photos.Dir(),
		Metrics:        recorder.Handler(),
		Middleware:     []func(http.Handler) http.Handler{recorder.InstrumentHandler},
		Logger:         logger,
	})

	return &app{
		storage:        storage,
		users:          userService,
		categories:     categoryService,
		checklistTypes: typeService,
		agenda:         agendaService,
		recorder:       recorder,
		handler:        router,
	}, nil
}

// bootstrap creates the default administrator and the default catalog terms.
func (a *app) bootstrap(ctx context.Context, adminPassword string, logger *slog.Logger) error {
	created, err := a.users.EnsureAdmin(ctx, adminPassword)
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	if created {
		logger.InfoContext(ctx, "default administrator created", "username", application.DefaultAdminUsername)
	}

	if _, err := a.categories.EnsureTerms(ctx, defaultCategories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if _, err := a.checklistTypes.EnsureTerms(ctx, defaultChecklistTypes); err != nil {
		return fmt.Errorf("seed checklist types: %w", err)
	}
	return nil
}

func (a *app) Close() error {
	if a == nil || a.storage == nil {
		return nil
	}
	return a.storage.Close()
}

var defaultCategories = []application.TermInput{
	{Name: "Manutenção Geral", Description: "Profissionais de manutenção geral do prédio"},
	{Name: "Eletricista", Description: "Profissionais especializados em sistemas elétricos"},
	{Name: "Encanador", Description: "Profissionais especializados em sistemas hidráulicos"},
	{Name: "Faxina", Description: "Profissionais de limpeza e conservação"},
}

var defaultChecklistTypes = []application.TermInput{
	{Name: "Manutenção Preventiva", Description: "Checklist para manutenção preventiva de equipamentos e instalações"},
	{Name: "Limpeza", Description: "Checklist para verificação de limpeza de áreas comuns"},
	{Name: "Segurança", Description: "Checklist para verificação de itens de segurança"},
}
