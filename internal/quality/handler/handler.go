package handler

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"trackmark/internal/audit"
	"trackmark/internal/codec"
	"trackmark/internal/quality"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/httputil"
	"trackmark/pkg/requestcontext"
)

// maxUploadBytes bounds scored image uploads.
const maxUploadBytes = 8 << 20

// Scorer computes quality reports for captured marking images.
type Scorer interface {
	Score(ctx context.Context, img image.Image, declaredSizeMm float64, expected string) quality.Report
}

// Handler wires the quality scoring endpoint to the engine.
type Handler struct {
	scorer    Scorer
	logger    *slog.Logger
	publisher audit.Publisher
}

// Option configures the handler.
type Option func(*Handler)

// WithAuditPublisher attaches an audit publisher; verdicts are emitted
// best-effort.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// New constructs a quality handler with its dependencies.
func New(scorer Scorer, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{scorer: scorer, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts quality endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/quality/score", h.HandleScore)
}

// HandleScore handles POST /quality/score requests. The request is
// multipart form data: an "image" file, the expected "identifier", and an
// optional "marking_size_mm" override. When the override is absent the
// size comes from the identifier's component type.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart form data is required"))
		return
	}

	encoded := strings.TrimSpace(r.FormValue("identifier"))
	if encoded == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "identifier is required"))
		return
	}
	id, err := codec.Decode(encoded)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed identifier"))
		return
	}

	sizeMm := id.ComponentType.MarkingSizeMm()
	if raw := r.FormValue("marking_size_mm"); raw != "" {
		sizeMm, err = strconv.ParseFloat(raw, 64)
		if err != nil || sizeMm <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "marking_size_mm must be a positive number"))
			return
		}
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "image file is required"))
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "image is not a readable PNG or JPEG"))
		return
	}

	report := h.scorer.Score(ctx, img, sizeMm, encoded)

	audit.Emit(ctx, h.logger, h.publisher, audit.Event{
		Action:     audit.ActionQualityScored,
		Identifier: encoded,
		Partition:  id.Partition().String(),
		Serial:     id.Serial,
		Detail:     string(report.Verdict),
	})

	h.logger.InfoContext(ctx, "quality scored",
		"request_id", requestID,
		"identifier", encoded,
		"format", format,
		"overall", report.OverallScore,
		"verdict", report.Verdict,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}
