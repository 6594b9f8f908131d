package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"trackmark/internal/batch"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/httputil"
	"trackmark/pkg/requestcontext"
)

// maxManifestBytes bounds uploaded manifests.
const maxManifestBytes = 16 << 20

// Processor runs a CSV manifest through the registrar.
type Processor interface {
	ProcessCSV(ctx context.Context, r io.Reader) (batch.Report, error)
}

// Handler wires the bulk-registration endpoint to the batch processor.
type Handler struct {
	processor Processor
	logger    *slog.Logger
}

// New constructs a batch handler with its dependencies.
func New(processor Processor, logger *slog.Logger) *Handler {
	return &Handler{processor: processor, logger: logger}
}

// Register mounts batch endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/batches", h.HandleProcess)
}

// HandleProcess handles POST /batches requests. The manifest arrives as a
// multipart "manifest" file or as a raw text/csv body. Responses default
// to JSON; Accept: text/csv switches to the CSV report.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	manifest, err := manifestReader(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer manifest.Close()

	report, err := h.processor.ProcessCSV(ctx, manifest)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch accepted",
		"request_id", requestID,
		"batch_id", report.BatchID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)

	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="batch-`+report.BatchID+`.csv"`)
		if err := batch.WriteReportCSV(w, report); err != nil {
			h.logger.ErrorContext(ctx, "batch report write failed",
				"request_id", requestID,
				"batch_id", report.BatchID,
				"error", err,
			)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func manifestReader(r *http.Request) (io.ReadCloser, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxManifestBytes); err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "multipart form data is unreadable")
		}
		file, _, err := r.FormFile("manifest")
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "manifest file is required")
		}
		return file, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxManifestBytes), nil
}
