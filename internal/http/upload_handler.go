package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/media"
)

// multipartOverhead leaves room for the form fields around the photo.
const multipartOverhead = 1 << 20

type photoStore interface {
	Save(ctx context.Context, checklistID, itemID string, r io.Reader) (string, error)
}

type UploadHandler struct {
	photos    photoStore
	responder responder
	logger    *slog.Logger
}

func NewUploadHandler(photos photoStore, logger *slog.Logger) *UploadHandler {
	base := defaultLogger(logger)
	return &UploadHandler{photos: photos, responder: newResponder(base), logger: base}
}

func (h *UploadHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UploadHandler", operation, attrs...)
}

// UploadPhoto stores the multipart "photo" file of one checklist item and
// returns the path to reference from an execution.
func (h *UploadHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UploadPhoto", "principal_id", principal.UserID)

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxPhotoSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.responder.handleServiceError(r.Context(), w, media.ErrPhotoTooLarge)
			return
		}
		logger.ErrorContext(r.Context(), "failed to parse upload", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("photo")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPhotoFile)
		return
	}
	defer file.Close()

	checklistID := strings.TrimSpace(r.FormValue("checklistId"))
	itemID := strings.TrimSpace(r.FormValue("itemId"))
	logger = logger.With("checklist_id", checklistID, "item_id", itemID)

	path, err := h.photos.Save(r.Context(), checklistID, itemID, file)
	if err != nil {
		logger.ErrorContext(r.Context(), "photo upload failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("path", path).InfoContext(r.Context(), "photo stored")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]string{"url": path})
}
