package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trackmark/internal/audit"
	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/httputil"
	"trackmark/pkg/requestcontext"
)

// Service defines the ledger operations the admin surface needs.
type Service interface {
	ReserveExplicit(ctx context.Context, key domain.PartitionKey, serial int) error
	Peek(ctx context.Context, key domain.PartitionKey) (int, error)
	ReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error)
}

// Handler wires admin serial-ledger endpoints to the allocator.
type Handler struct {
	service   Service
	publisher audit.Publisher
	logger    *slog.Logger
}

// New constructs a serial handler with its dependencies.
func New(service Service, publisher audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{service: service, publisher: publisher, logger: logger}
}

// Register mounts serial ledger endpoints on the router. The caller is
// expected to wrap them in the admin middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/serials/reserve", h.HandleReserve)
	r.Get("/admin/serials/status", h.HandleStatus)
}

// HandleReserve handles POST /admin/serials/reserve requests.
func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ReserveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	key := req.Partition()
	if err := h.service.ReserveExplicit(ctx, key, req.Serial); err != nil {
		h.logger.WarnContext(ctx, "serial reservation rejected",
			"request_id", requestID,
			"partition", key.String(),
			"serial", req.Serial,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	audit.Emit(ctx, h.logger, h.publisher, audit.Event{
		Action:    audit.ActionSerialReserve,
		Partition: key.String(),
		Serial:    req.Serial,
		Detail:    "by " + requestcontext.AdminSubject(ctx),
	})
	h.logger.InfoContext(ctx, "serial reserved",
		"request_id", requestID,
		"partition", key.String(),
		"serial", req.Serial,
		"admin", requestcontext.AdminSubject(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"partition": key.String(),
		"serial":    req.Serial,
	})
}

// HandleStatus handles GET /admin/serials/status requests. The partition
// is addressed by query parameters.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := partitionFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	last, err := h.service.Peek(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reserved, err := h.service.ReservedSerials(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	serials := make([]int, 0, len(reserved))
	for s := range reserved {
		serials = append(serials, s)
	}
	sort.Ints(serials)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"partition":   key.String(),
		"last_issued": last,
		"remaining":   domain.MaxSerial - last,
		"reserved":    serials,
	})
}

func partitionFromQuery(r *http.Request) (domain.PartitionKey, error) {
	q := r.URL.Query()
	req := ReserveRequest{
		Region:        q.Get("region"),
		Division:      q.Get("division"),
		ComponentType: q.Get("component_type"),
		Serial:        domain.MinSerial, // satisfy the shared validator
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return domain.PartitionKey{}, dErrors.New(dErrors.CodeBadRequest, "year must be an integer")
	}
	req.Year = year
	if err := req.Validate(); err != nil {
		return domain.PartitionKey{}, err
	}
	return req.Partition(), nil
}
