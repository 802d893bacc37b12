package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/facility-checklists/internal/application"
)

type checklistService interface {
	CreateChecklist(ctx context.Context, params application.CreateChecklistParams) (application.Checklist, error)
	UpdateChecklist(ctx context.Context, params application.UpdateChecklistParams) (application.Checklist, error)
	SetActive(ctx context.Context, principal application.Principal, checklistID string, active bool) (application.Checklist, error)
	DeleteChecklist(ctx context.Context, principal application.Principal, checklistID string) error
	GetChecklist(ctx context.Context, principal application.Principal, checklistID string) (application.Checklist, error)
	ListChecklists(ctx context.Context, principal application.Principal, filter application.ChecklistFilter) ([]application.Checklist, error)
	ActiveQRCodes(ctx context.Context, principal application.Principal, clientID string) ([]application.QRCodeEntry, error)
	QRCode(ctx context.Context, principal application.Principal, checklistID string) ([]byte, error)
}

type ChecklistHandler struct {
	service   checklistService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewChecklistHandler reads bare validity dates in loc.
func NewChecklistHandler(service checklistService, loc *time.Location, logger *slog.Logger) *ChecklistHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.Local
	}
	return &ChecklistHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *ChecklistHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ChecklistHandler", operation, attrs...)
}

// List returns all checklists to administrators and the due ones to technicians.
func (h *ChecklistHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	filter := application.ChecklistFilter{ClientID: strings.TrimSpace(r.URL.Query().Get("clientId"))}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "client_id", filter.ClientID)

	checklists, err := h.service.ListChecklists(r.Context(), principal, filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "checklist list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listChecklistsResponse{Checklists: toChecklistDTOs(checklists)})
}

func (h *ChecklistHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	checklist, err := h.service.GetChecklist(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.UserID, "checklist_id", id).
			ErrorContext(r.Context(), "checklist lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checklistResponse{Checklist: toChecklistDTO(checklist)})
}

func (h *ChecklistHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	checklist, err := h.service.CreateChecklist(r.Context(), application.CreateChecklistParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "checklist creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("checklist_id", checklist.ID).InfoContext(r.Context(), "checklist created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, checklistResponse{Checklist: toChecklistDTO(checklist)})
}

func (h *ChecklistHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "checklist_id", id)

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	checklist, err := h.service.UpdateChecklist(r.Context(), application.UpdateChecklistParams{
		Principal:   principal,
		ChecklistID: id,
		Input:       input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "checklist update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "checklist updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checklistResponse{Checklist: toChecklistDTO(checklist)})
}

// SetActive expects {"active": bool}.
func (h *ChecklistHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "SetActive", "principal_id", principal.UserID, "checklist_id", id)

	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		logger.ErrorContext(r.Context(), "failed to decode active flag", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	checklist, err := h.service.SetActive(r.Context(), principal, id, *req.Active)
	if err != nil {
		logger.ErrorContext(r.Context(), "checklist activation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("active", checklist.Active).InfoContext(r.Context(), "checklist activation changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checklistResponse{Checklist: toChecklistDTO(checklist)})
}

func (h *ChecklistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "checklist_id", id)
	if err := h.service.DeleteChecklist(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "checklist delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "checklist deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// QRCodes lists the labels of active checklists, narrowed by clientId.
func (h *ChecklistHandler) QRCodes(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))
	entries, err := h.service.ActiveQRCodes(r.Context(), principal, clientID)
	if err != nil {
		h.log(r.Context(), "QRCodes", "principal_id", principal.UserID, "client_id", clientID).
			ErrorContext(r.Context(), "qr code list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]qrCodeDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, qrCodeDTO{
			ChecklistID:  e.Checklist.ID,
			Title:        e.Checklist.Title,
			ClientName:   e.ClientName,
			LocationName: e.LocationName,
			URL:          application.ExecutionPath(e.Checklist.ID),
			ImagePath:    e.Checklist.QRCodePath,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"qrCodes": out})
}

// QRCode renders the PNG label of one checklist.
func (h *ChecklistHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	png, err := h.service.QRCode(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "QRCode", "principal_id", principal.UserID, "checklist_id", id).
			ErrorContext(r.Context(), "qr code rendering failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *ChecklistHandler) decodeInput(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (application.ChecklistInput, bool) {
	var req checklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode checklist request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.ChecklistInput{}, false
	}
	validity, err := parseInstant(req.Validity, h.location)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "Há erros nos dados informados.",
			Errors:  map[string]string{"validity": errInvalidDate.Error()},
		})
		return application.ChecklistInput{}, false
	}
	return req.toInput(validity), true
}

type checklistRequest struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	ClientID      string                 `json:"clientId"`
	LocationID    string                 `json:"locationId"`
	TypeID        string                 `json:"typeId"`
	AssignedTo    string                 `json:"assignedTo"`
	Periodicity   string                 `json:"periodicity"`
	CustomDays    []int                  `json:"customDays"`
	Time          string                 `json:"time"`
	Validity      string                 `json:"validity"`
	RequirePhotos bool                   `json:"requirePhotos"`
	Items         []checklistItemPayload `json:"items"`
}

func (r checklistRequest) toInput(validity *time.Time) application.ChecklistInput {
	items := make([]application.ChecklistItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, application.ChecklistItemInput{
			ID:           item.ID,
			Description:  item.Description,
			RequirePhoto: item.RequirePhoto,
		})
	}
	return application.ChecklistInput{
		Title:         r.Title,
		Description:   r.Description,
		ClientID:      r.ClientID,
		LocationID:    r.LocationID,
		TypeID:        r.TypeID,
		AssignedTo:    r.AssignedTo,
		Periodicity:   r.Periodicity,
		CustomDays:    r.CustomDays,
		Time:          r.Time,
		Validity:      validity,
		RequirePhotos: r.RequirePhotos,
		Items:         items,
	}
}

type checklistItemPayload struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	RequirePhoto bool   `json:"requirePhoto"`
}

type checklistResponse struct {
	Checklist checklistDTO `json:"checklist"`
}

type listChecklistsResponse struct {
	Checklists []checklistDTO `json:"checklists"`
}

type checklistDTO struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	ClientID      string                 `json:"clientId"`
	LocationID    string                 `json:"locationId"`
	TypeID        string                 `json:"typeId"`
	AssignedTo    string                 `json:"assignedTo,omitempty"`
	Periodicity   string                 `json:"periodicity"`
	CustomDays    []int                  `json:"customDays,omitempty"`
	Time          string                 `json:"time,omitempty"`
	Validity      *string                `json:"validity,omitempty"`
	RequirePhotos bool                   `json:"requirePhotos"`
	Items         []checklistItemPayload `json:"items"`
	Active        bool                   `json:"active"`
	QRCodeURL     string                 `json:"qrCodeUrl"`
	QRCodePath    string                 `json:"qrCodePath,omitempty"`
	CreatedAt     string                 `json:"createdAt"`
	UpdatedAt     string                 `json:"updatedAt"`
}

func toChecklistDTO(c application.Checklist) checklistDTO {
	items := make([]checklistItemPayload, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, checklistItemPayload{ID: item.ID, Description: item.Description, RequirePhoto: item.RequirePhoto})
	}
	return checklistDTO{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		ClientID:      c.ClientID,
		LocationID:    c.LocationID,
		TypeID:        c.TypeID,
		AssignedTo:    c.AssignedTo,
		Periodicity:   string(c.Periodicity),
		CustomDays:    c.CustomDays,
		Time:          c.Time,
		Validity:      formatTimePtr(c.Validity),
		RequirePhotos: c.RequirePhotos,
		Items:         items,
		Active:        c.Active,
		QRCodeURL:     application.ExecutionPath(c.ID),
		QRCodePath:    c.QRCodePath,
		CreatedAt:     formatTime(c.CreatedAt),
		UpdatedAt:     formatTime(c.UpdatedAt),
	}
}

func toChecklistDTOs(checklists []application.Checklist) []checklistDTO {
	out := make([]checklistDTO, 0, len(checklists))
	for _, c := range checklists {
		out = append(out, toChecklistDTO(c))
	}
	return out
}

type qrCodeDTO struct {
	ChecklistID  string `json:"checklistId"`
	Title        string `json:"title"`
	ClientName   string `json:"clientName"`
	LocationName string `json:"locationName"`
	URL          string `json:"url"`
	ImagePath    string `json:"imagePath"`
}
