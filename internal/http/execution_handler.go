package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-checklists/internal/application"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type executionService interface {
	Submit(ctx context.Context, params application.SubmitExecutionParams) (application.Execution, error)
	ListExecutions(ctx context.Context, principal application.Principal, filter application.ExecutionFilter) ([]application.ExecutionReport, error)
	ExportExecutions(ctx context.Context, principal application.Principal, filter application.ExecutionFilter, w io.Writer) (int, error)
}

type ExecutionHandler struct {
	service   executionService
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

// NewExecutionHandler reads bare filter dates as calendar days in loc.
func NewExecutionHandler(service executionService, loc *time.Location, now func() time.Time, logger *slog.Logger) *ExecutionHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ExecutionHandler{service: service, location: loc, now: now, responder: newResponder(base), logger: base}
}

func (h *ExecutionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ExecutionHandler", operation, attrs...)
}

func (h *ExecutionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req executionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Submit", "principal_id", principal.UserID, "error_kind", "bad_request").
			ErrorContext(r.Context(), "failed to decode execution request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "principal_id", principal.UserID, "checklist_id", req.ChecklistID)

	execution, err := h.service.Submit(r.Context(), application.SubmitExecutionParams{
		Principal: principal,
		Input: application.ExecutionInput{
			ChecklistID:    req.ChecklistID,
			CompletedItems: req.CompletedItems,
			Photos:         req.Photos,
			Notes:          req.Notes,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "execution rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("execution_id", execution.ID).InfoContext(r.Context(), "execution recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]any{"execution": toExecutionDTO(execution)})
}

// List accepts from, to, clientId, userId and checklistId query parameters.
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	reports, err := h.service.ListExecutions(r.Context(), principal, filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "execution list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]executionReportDTO, 0, len(reports))
	for _, report := range reports {
		out = append(out, executionReportDTO{
			Execution:      toExecutionDTO(report.Execution),
			ChecklistTitle: report.ChecklistTitle,
			ClientName:     report.ClientName,
			LocationName:   report.LocationName,
			UserName:       report.UserName,
		})
	}
	logger.With("result_count", len(out)).DebugContext(r.Context(), "executions listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"executions": out})
}

// Export streams the filtered executions as an Excel workbook.
func (h *ExecutionHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Export", "principal_id", principal.UserID)

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	rows, err := h.service.ExportExecutions(r.Context(), principal, filter, &buf)
	if err != nil {
		logger.ErrorContext(r.Context(), "execution export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	filename := "execucoes-" + h.now().In(h.location).Format("20060102-1504") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.ErrorContext(r.Context(), "failed to write export", "error", err)
		return
	}
	logger.With("rows", rows).InfoContext(r.Context(), "executions exported")
}

// parseFilter reads a bare "to" date as the end of that day.
func (h *ExecutionHandler) parseFilter(w http.ResponseWriter, r *http.Request) (application.ExecutionFilter, bool) {
	q := r.URL.Query()
	filter := application.ExecutionFilter{
		ClientID:    strings.TrimSpace(q.Get("clientId")),
		UserID:      strings.TrimSpace(q.Get("userId")),
		ChecklistID: strings.TrimSpace(q.Get("checklistId")),
	}

	from, err := parseInstant(q.Get("from"), h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return filter, false
	}
	to, err := parseInstant(q.Get("to"), h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return filter, false
	}
	if to != nil && isBareDate(q.Get("to")) {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	filter.From = from
	filter.To = to
	return filter, true
}

func isBareDate(value string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(value))
	return err == nil
}

type executionRequest struct {
	ChecklistID    string            `json:"checklistId"`
	CompletedItems []string          `json:"completedItems"`
	Photos         map[string]string `json:"photos"`
	Notes          string            `json:"notes"`
}

type executionDTO struct {
	ID             string            `json:"id"`
	ChecklistID    string            `json:"checklistId"`
	UserID         string            `json:"userId"`
	CompletedAt    string            `json:"completedAt"`
	CompletedItems []string          `json:"completedItems"`
	Photos         map[string]string `json:"photos,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

func toExecutionDTO(e application.Execution) executionDTO {
	items := e.CompletedItems
	if items == nil {
		items = []string{}
	}
	return executionDTO{
		ID:             e.ID,
		ChecklistID:    e.ChecklistID,
		UserID:         e.UserID,
		CompletedAt:    formatTime(e.CompletedAt),
		CompletedItems: items,
		Photos:         e.Photos,
		Notes:          e.Notes,
	}
}

type executionReportDTO struct {
	Execution      executionDTO `json:"execution"`
	ChecklistTitle string       `json:"checklistTitle"`
	ClientName     string       `json:"clientName"`
	LocationName   string       `json:"locationName"`
	UserName       string       `json:"userName"`
}
