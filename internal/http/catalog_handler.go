package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/facility-checklists/internal/application"
)

type clientService interface {
	CreateClient(ctx context.Context, principal application.Principal, input application.ClientInput) (application.Client, error)
	UpdateClient(ctx context.Context, principal application.Principal, clientID string, input application.ClientInput) (application.Client, error)
	DeleteClient(ctx context.Context, principal application.Principal, clientID string) error
	GetClient(ctx context.Context, principal application.Principal, clientID string) (application.Client, error)
	ListClients(ctx context.Context, principal application.Principal) ([]application.Client, error)
}

type ClientHandler struct {
	service   clientService
	responder responder
	logger    *slog.Logger
}

func NewClientHandler(service clientService, logger *slog.Logger) *ClientHandler {
	base := defaultLogger(logger)
	return &ClientHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ClientHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ClientHandler", operation, attrs...)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	clients, err := h.service.ListClients(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "client list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]clientDTO, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientDTO(c))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"clients": out})
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	client, err := h.service.GetClient(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "client_id", id).
			ErrorContext(r.Context(), "client lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"client": toClientDTO(client)})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode client request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	client, err := h.service.CreateClient(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "client creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.With("client_id", client.ID).InfoContext(r.Context(), "client created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]any{"client": toClientDTO(client)})
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "client_id", id)

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode client update", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	client, err := h.service.UpdateClient(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "client update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "client updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"client": toClientDTO(client)})
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "client_id", id)
	if err := h.service.DeleteClient(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "client delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "client deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type clientRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

func (r clientRequest) toInput() application.ClientInput {
	return application.ClientInput{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Email:         r.Email,
		Address:       r.Address,
	}
}

type clientDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toClientDTO(c application.Client) clientDTO {
	return clientDTO{
		ID:            c.ID,
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		CreatedAt:     formatTime(c.CreatedAt),
		UpdatedAt:     formatTime(c.UpdatedAt),
	}
}

type locationService interface {
	CreateLocation(ctx context.Context, principal application.Principal, input application.LocationInput) (application.Location, error)
	UpdateLocation(ctx context.Context, principal application.Principal, locationID string, input application.LocationInput) (application.Location, error)
	DeleteLocation(ctx context.Context, principal application.Principal, locationID string) error
	GetLocation(ctx context.Context, locationID string) (application.Location, error)
	ListLocations(ctx context.Context, clientID string) ([]application.Location, error)
}

type LocationHandler struct {
	service   locationService
	responder responder
	logger    *slog.Logger
}

func NewLocationHandler(service locationService, logger *slog.Logger) *LocationHandler {
	base := defaultLogger(logger)
	return &LocationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LocationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "LocationHandler", operation, attrs...)
}

// List accepts an optional clientId query parameter.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))
	locations, err := h.service.ListLocations(r.Context(), clientID)
	if err != nil {
		h.log(r.Context(), "List", "client_id", clientID).
			ErrorContext(r.Context(), "location list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]locationDTO, 0, len(locations))
	for _, l := range locations {
		out = append(out, toLocationDTO(l))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"locations": out})
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	location, err := h.service.GetLocation(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"location": toLocationDTO(location)})
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode location request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	location, err := h.service.CreateLocation(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "location creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.With("location_id", location.ID).InfoContext(r.Context(), "location created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]any{"location": toLocationDTO(location)})
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "location_id", id)

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode location update", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	location, err := h.service.UpdateLocation(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "location update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "location updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"location": toLocationDTO(location)})
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "location_id", id)
	if err := h.service.DeleteLocation(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "location delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "location deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type locationRequest struct {
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (r locationRequest) toInput() application.LocationInput {
	return application.LocationInput{
		ClientID:    r.ClientID,
		Name:        r.Name,
		Address:     r.Address,
		Description: r.Description,
	}
}

type locationDTO struct {
	ID          string `json:"id"`
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toLocationDTO(l application.Location) locationDTO {
	return locationDTO{
		ID:          l.ID,
		ClientID:    l.ClientID,
		Name:        l.Name,
		Address:     l.Address,
		Description: l.Description,
		CreatedAt:   formatTime(l.CreatedAt),
		UpdatedAt:   formatTime(l.UpdatedAt),
	}
}

type termService interface {
	CreateTerm(ctx context.Context, principal application.Principal, input application.TermInput) (application.Term, error)
	UpdateTerm(ctx context.Context, principal application.Principal, termID string, input application.TermInput) (application.Term, error)
	DeleteTerm(ctx context.Context, principal application.Principal, termID string) error
	GetTerm(ctx context.Context, termID string) (application.Term, error)
	ListTerms(ctx context.Context) ([]application.Term, error)
}

// TermHandler serves one taxonomy; collection names the JSON list field.
type TermHandler struct {
	service    termService
	collection string
	responder  responder
	logger     *slog.Logger
}

func NewTermHandler(collection string, service termService, logger *slog.Logger) *TermHandler {
	base := defaultLogger(logger)
	return &TermHandler{service: service, collection: collection, responder: newResponder(base), logger: base}
}

func (h *TermHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TermHandler", operation, append([]any{"taxonomy", h.collection}, attrs...)...)
}

func (h *TermHandler) List(w http.ResponseWriter, r *http.Request) {
	terms, err := h.service.ListTerms(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "term list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]termDTO, 0, len(terms))
	for _, t := range terms {
		out = append(out, toTermDTO(t))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{h.collection: out})
}

func (h *TermHandler) Get(w http.ResponseWriter, r *http.Request) {
	term, err := h.service.GetTerm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, termResponse{Term: toTermDTO(term)})
}

func (h *TermHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode term request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	term, err := h.service.CreateTerm(r.Context(), principal, application.TermInput{Name: req.Name, Description: req.Description})
	if err != nil {
		logger.ErrorContext(r.Context(), "term creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.With("term_id", term.ID).InfoContext(r.Context(), "term created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, termResponse{Term: toTermDTO(term)})
}

func (h *TermHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "term_id", id)

	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode term update", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	term, err := h.service.UpdateTerm(r.Context(), principal, id, application.TermInput{Name: req.Name, Description: req.Description})
	if err != nil {
		logger.ErrorContext(r.Context(), "term update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "term updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, termResponse{Term: toTermDTO(term)})
}

func (h *TermHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "term_id", id)
	if err := h.service.DeleteTerm(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "term delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "term deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type termRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type termResponse struct {
	Term termDTO `json:"term"`
}

type termDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toTermDTO(t application.Term) termDTO {
	return termDTO{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}
