package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trackmark/internal/codec"
	"trackmark/internal/component"
	"trackmark/internal/validation"
	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/httputil"
	"trackmark/pkg/requestcontext"
)

// Service defines the registrar operations the HTTP layer needs.
type Service interface {
	Register(ctx context.Context, raw validation.RawComponent) (component.Record, error)
	GetByEncoded(ctx context.Context, encoded string) (component.Record, error)
	Search(ctx context.Context, filter component.SearchFilter) ([]component.Record, error)
	UpdateStatus(ctx context.Context, encoded string, status domain.Status) (component.Record, error)
	Stats(ctx context.Context) (component.Stats, error)
	ExportCSV(ctx context.Context, w io.Writer, filter component.SearchFilter) error
}

// Renderer produces the QR image for an encoded identifier.
type Renderer interface {
	RenderPNG(encoded string) ([]byte, error)
}

// Handler wires registrar endpoints to the component service.
type Handler struct {
	service  Service
	renderer Renderer
	logger   *slog.Logger
}

// New constructs a component handler with its dependencies. The renderer
// is optional; without one the QR endpoint responds 404.
func New(service Service, renderer Renderer, logger *slog.Logger) *Handler {
	return &Handler{service: service, renderer: renderer, logger: logger}
}

// Register mounts registrar endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/components", h.HandleRegister)
	r.Get("/components", h.HandleSearch)
	r.Get("/components/export", h.HandleExport)
	r.Get("/components/stats", h.HandleStats)
	r.Get("/components/{encoded}", h.HandleGet)
	r.Get("/components/{encoded}/qr", h.HandleQR)
	r.Patch("/components/{encoded}/status", h.HandleUpdateStatus)
	r.Post("/identifiers/decode", h.HandleDecode)
}

// HandleRegister handles POST /components requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Register(ctx, req.Raw())
	if err != nil {
		h.logger.ErrorContext(ctx, "component registration failed",
			"request_id", requestID,
			"region", req.Region,
			"component_type", req.ComponentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "component registered",
		"request_id", requestID,
		"identifier", record.Encoded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleGet handles GET /components/{encoded} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.service.GetByEncoded(ctx, chi.URLParam(r, "encoded"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleQR handles GET /components/{encoded}/qr requests, returning the
// marking image for a registered component.
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.renderer == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "rendering is not enabled"))
		return
	}

	record, err := h.service.GetByEncoded(ctx, chi.URLParam(r, "encoded"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	png, err := h.renderer.RenderPNG(record.Encoded)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "render identifier"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// HandleSearch handles GET /components requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.Search(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []component.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"components": records,
		"count":      len(records),
	})
}

// HandleUpdateStatus handles PATCH /components/{encoded}/status requests.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "encoded"), req.ParsedStatus())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleStats handles GET /components/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleExport handles GET /components/export requests, streaming CSV.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="components.csv"`)
	if err := h.service.ExportCSV(ctx, w, filter); err != nil {
		// Headers may already be gone; log instead of rewriting the body.
		h.logger.ErrorContext(ctx, "component export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// HandleDecode handles POST /identifiers/decode requests. Malformed
// identifiers return every grammar defect at once.
func (h *Handler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DecodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := codec.Decode(req.Identifier)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":   string(dErrors.CodeBadRequest),
				"defects": decodeErr.Reasons,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identifier": id,
		"partition":  id.Partition().String(),
	})
}

func filterFromQuery(r *http.Request) (component.SearchFilter, error) {
	q := r.URL.Query()
	filter := component.SearchFilter{
		Region:   q.Get("region"),
		Division: q.Get("division"),
	}
	if t := q.Get("component_type"); t != "" {
		filter.ComponentType = domain.ComponentType(t)
	}
	if s := q.Get("status"); s != "" {
		status, err := domain.ParseStatus(s)
		if err != nil {
			return component.SearchFilter{}, err
		}
		filter.Status = status
	}
	for param, dst := range map[string]*int{
		"year":   &filter.Year,
		"limit":  &filter.Limit,
		"offset": &filter.Offset,
	} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return component.SearchFilter{}, dErrors.New(dErrors.CodeBadRequest, param+" must be a non-negative integer")
		}
		*dst = v
	}
	return filter, nil
}
