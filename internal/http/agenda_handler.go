package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/recurrence"
)

type agendaService interface {
	EvaluateForTechnician(ctx context.Context, principal application.Principal, userID string) (application.Agenda, error)
	IsDue(ctx context.Context, principal application.Principal, checklistID, userID string) (application.DueCheck, error)
}

type AgendaHandler struct {
	service   agendaService
	responder responder
	logger    *slog.Logger
}

func NewAgendaHandler(service agendaService, logger *slog.Logger) *AgendaHandler {
	base := defaultLogger(logger)
	return &AgendaHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AgendaHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AgendaHandler", operation, attrs...)
}

// Agenda evaluates the caller, or the userId query parameter for administrators.
func (h *AgendaHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	logger := h.log(r.Context(), "Agenda", "principal_id", principal.UserID, "user_id", userID)

	agenda, err := h.service.EvaluateForTechnician(r.Context(), principal, userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "agenda evaluation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAgendaDTO(agenda))
}

// Due answers whether one checklist is due for the caller or userId.
func (h *AgendaHandler) Due(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	checklistID := chi.URLParam(r, "id")
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))

	check, err := h.service.IsDue(r.Context(), principal, checklistID, userID)
	if err != nil {
		h.log(r.Context(), "Due", "principal_id", principal.UserID, "checklist_id", checklistID).
			ErrorContext(r.Context(), "due evaluation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dueDTO{
		ChecklistID: check.ChecklistID,
		UserID:      check.UserID,
		Status:      toStatusDTO(check.Status),
	})
}

type statusDTO struct {
	Due             bool    `json:"due"`
	Reason          string  `json:"reason"`
	LastCompletedAt *string `json:"lastCompletedAt,omitempty"`
}

func toStatusDTO(s recurrence.DueStatus) statusDTO {
	return statusDTO{Due: s.Due, Reason: string(s.Reason), LastCompletedAt: formatTimePtr(s.LastCompletedAt)}
}

type dueDTO struct {
	ChecklistID string    `json:"checklistId"`
	UserID      string    `json:"userId"`
	Status      statusDTO `json:"status"`
}

type agendaEntryDTO struct {
	Checklist checklistDTO `json:"checklist"`
	Status    statusDTO    `json:"status"`
}

type dailyProgressDTO struct {
	Total             int `json:"totalDailyChecklists"`
	CompletedToday    int `json:"completedDailyChecklistsToday"`
	CompletionPercent int `json:"completionPercent"`
}

type overallStatsDTO struct {
	TotalCompleted    int `json:"totalCompletedOverall"`
	TotalScheduled    int `json:"totalScheduledOverall"`
	CompletionPercent int `json:"completionPercent"`
}

type agendaDTO struct {
	UserID        string           `json:"userId"`
	EvaluatedAt   string           `json:"evaluatedAt"`
	Pending       []agendaEntryDTO `json:"pendingChecklists"`
	PendingToday  []agendaEntryDTO `json:"pendingChecklistsToday"`
	DailyProgress dailyProgressDTO `json:"dailyProgress"`
	OverallStats  overallStatsDTO  `json:"overallStats"`
}

func toAgendaDTO(a application.Agenda) agendaDTO {
	return agendaDTO{
		UserID:       a.UserID,
		EvaluatedAt:  formatTime(a.EvaluatedAt),
		Pending:      toAgendaEntryDTOs(a.Pending),
		PendingToday: toAgendaEntryDTOs(a.PendingToday),
		DailyProgress: dailyProgressDTO{
			Total:             a.DailyProgress.TotalDailyChecklists,
			CompletedToday:    a.DailyProgress.CompletedDailyChecklistsToday,
			CompletionPercent: a.DailyProgress.CompletionPercent(),
		},
		OverallStats: overallStatsDTO{
			TotalCompleted:    a.OverallStats.TotalCompletedOverall,
			TotalScheduled:    a.OverallStats.TotalScheduledOverall,
			CompletionPercent: a.OverallStats.CompletionPercent(),
		},
	}
}

func toAgendaEntryDTOs(entries []application.AgendaEntry) []agendaEntryDTO {
	out := make([]agendaEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, agendaEntryDTO{Checklist: toChecklistDTO(e.Checklist), Status: toStatusDTO(e.Status)})
	}
	return out
}
