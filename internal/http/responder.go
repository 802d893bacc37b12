package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/media"
)

var (
	errBadRequestBody   = errors.New("Formato de requisição inválido.")
	errInvalidID        = errors.New("Identificador inválido.")
	errInvalidDate      = errors.New("Data inválida. Use o formato AAAA-MM-DD.")
	errMissingToken     = errors.New("Informe o token de autenticação.")
	errMissingPhotoFile = errors.New("Nenhuma foto foi enviada.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Usuário ou senha inválidos.",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "Você não tem permissão para executar esta operação.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Recurso não encontrado."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "Já existe um registro com este nome.",
		})
	case errors.Is(err, application.ErrAlreadyExecuted):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CHECKLIST_ALREADY_EXECUTED",
			Message:   "Este checklist já foi executado no período atual.",
		})
	case errors.Is(err, application.ErrChecklistExpired):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CHECKLIST_EXPIRED",
			Message:   "Este checklist está fora da validade.",
		})
	case errors.Is(err, application.ErrChecklistInactive):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CHECKLIST_INACTIVE",
			Message:   "Este checklist está desativado.",
		})
	case errors.Is(err, media.ErrPhotoTooLarge):
		r.writeJSON(ctx, w, http.StatusRequestEntityTooLarge, errorResponse{Message: "A foto excede o limite de 10 MB."})
	case errors.Is(err, media.ErrUnsupportedPhoto):
		r.writeJSON(ctx, w, http.StatusUnsupportedMediaType, errorResponse{Message: "Apenas imagens JPEG, PNG ou GIF são aceitas."})
	case errors.Is(err, media.ErrInvalidPhotoKey):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: "Checklist ou item inválido para a foto."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "Há erros nos dados informados.",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Erro interno do servidor."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return "Você não tem permissão para executar esta operação."
	case http.StatusNotFound:
		return "Recurso não encontrado."
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Há erros nos dados informados."
	default:
		return "Erro interno do servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var fieldLabels = map[string]string{
	"name":           "Nome",
	"username":       "Usuário",
	"password":       "Senha",
	"email":          "E-mail",
	"title":          "Título",
	"clientId":       "Cliente",
	"locationId":     "Local",
	"typeId":         "Tipo de checklist",
	"periodicity":    "Periodicidade",
	"checklistId":    "Checklist",
	"description":    "Descrição",
	"notes":          "Observações",
	"time":           "Horário",
	"validity":       "Validade",
	"customDays":     "Dias personalizados",
	"items":          "Itens",
	"assignedTo":     "Responsável",
	"completedItems": "Itens concluídos",
}

func translateValidationMessage(message string) string {
	switch message {
	case "input is invalid":
		return "Dados inválidos."
	case "time must use HH:MM":
		return "Horário deve estar no formato HH:MM."
	case "time is required":
		return "O horário é obrigatório para checklists periódicos."
	case "validity is required":
		return "A data de validade é obrigatória para checklists periódicos."
	case "at least one item is required":
		return "Informe ao menos um item."
	case "custom days must be between 0 and 6":
		return "Os dias personalizados devem estar entre 0 (domingo) e 6 (sábado)."
	case "custom days are required for custom periodicity":
		return "Informe os dias da semana para a periodicidade personalizada."
	case "periodicity is invalid":
		return "Periodicidade inválida."
	case "client does not exist":
		return "O cliente informado não existe."
	case "location does not exist":
		return "O local informado não existe."
	case "location does not belong to client":
		return "O local não pertence ao cliente informado."
	case "checklist type does not exist":
		return "O tipo de checklist informado não existe."
	case "assigned user does not exist":
		return "O responsável informado não existe."
	case "client has locations":
		return "O cliente possui locais cadastrados."
	case "completed item does not belong to checklist":
		return "Há itens concluídos que não pertencem ao checklist."
	case "photo item does not belong to checklist":
		return "Há fotos de itens que não pertencem ao checklist."
	case "photo is required for item":
		return "Foto obrigatória para um ou mais itens."
	}

	if field, ok := strings.CutSuffix(message, " is required"); ok {
		return labelFor(field) + " é obrigatório."
	}
	if field, ok := strings.CutSuffix(message, " is invalid"); ok {
		return labelFor(field) + " é inválido."
	}
	return message
}

func labelFor(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
