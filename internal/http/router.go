package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/example/facility-checklists/internal/media"
)

type RouterConfig struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Clients        *ClientHandler
	Locations      *LocationHandler
	Categories     *TermHandler
	ChecklistTypes *TermHandler
	Checklists     *ChecklistHandler
	Agenda         *AgendaHandler
	Executions     *ExecutionHandler
	Uploads        *UploadHandler
	Tokens         TokenValidator
	// PhotoDir is served read-only under media.PhotoURLPrefix when set.
	PhotoDir string
	// Metrics is mounted at /metrics without authentication when set.
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.PhotoDir != "" {
		prefix := strings.TrimSuffix(media.PhotoURLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(media.PhotoURLPrefix, http.FileServer(http.Dir(cfg.PhotoDir))))
	}

	if cfg.Auth != nil {
		r.Post("/login", cfg.Auth.Login)
		r.Post("/logout", cfg.Auth.Logout)
	}

	r.Group(func(r chi.Router) {
		if cfg.Tokens != nil {
			r.Use(RequireSession(cfg.Tokens, logger))
		}

		if cfg.Auth != nil {
			r.Get("/me", cfg.Auth.Me)
		}
		if cfg.Users != nil {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.Users.List)
				r.Post("/", cfg.Users.Create)
				r.Get("/{id}", cfg.Users.Get)
				r.Put("/{id}", cfg.Users.Update)
				r.Delete("/{id}", cfg.Users.Delete)
			})
		}
		if cfg.Clients != nil {
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", cfg.Clients.List)
				r.Post("/", cfg.Clients.Create)
				r.Get("/{id}", cfg.Clients.Get)
				r.Put("/{id}", cfg.Clients.Update)
				r.Delete("/{id}", cfg.Clients.Delete)
			})
		}
		if cfg.Locations != nil {
			r.Route("/locations", func(r chi.Router) {
				r.Get("/", cfg.Locations.List)
				r.Post("/", cfg.Locations.Create)
				r.Get("/{id}", cfg.Locations.Get)
				r.Put("/{id}", cfg.Locations.Update)
				r.Delete("/{id}", cfg.Locations.Delete)
			})
		}
		mountTerms(r, "/categories", cfg.Categories)
		mountTerms(r, "/checklist-types", cfg.ChecklistTypes)

		if cfg.Checklists != nil {
			r.Route("/checklists", func(r chi.Router) {
				r.Get("/", cfg.Checklists.List)
				r.Post("/", cfg.Checklists.Create)
				r.Get("/qrcodes", cfg.Checklists.QRCodes)
				r.Get("/{id}", cfg.Checklists.Get)
				r.Put("/{id}", cfg.Checklists.Update)
				r.Delete("/{id}", cfg.Checklists.Delete)
				r.Patch("/{id}/active", cfg.Checklists.SetActive)
				r.Get("/{id}/qrcode", cfg.Checklists.QRCode)
				if cfg.Agenda != nil {
					r.Get("/{id}/due", cfg.Agenda.Due)
				}
			})
		}
		if cfg.Agenda != nil {
			r.Get("/agenda", cfg.Agenda.Agenda)
		}
		if cfg.Executions != nil {
			r.Route("/executions", func(r chi.Router) {
				r.Get("/", cfg.Executions.List)
				r.Post("/", cfg.Executions.Submit)
				r.Get("/export", cfg.Executions.Export)
			})
		}
		if cfg.Uploads != nil {
			r.Post("/uploads/photos", cfg.Uploads.UploadPhoto)
		}
	})

	return r
}

func mountTerms(r chi.Router, path string, h *TermHandler) {
	if h == nil {
		return
	}
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
