package component

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"trackmark/internal/audit"
	"trackmark/internal/codec"
	"trackmark/internal/component/metrics"
	"trackmark/internal/validation"
	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/sentinel"
)

// Validator checks candidate records before any serial is minted.
type Validator interface {
	Validate(ctx context.Context, raw validation.RawComponent) (validation.Result, error)
}

// SerialAllocator mints serials for a partition.
type SerialAllocator interface {
	AllocateNext(ctx context.Context, key domain.PartitionKey) (int, error)
	ReserveExplicit(ctx context.Context, key domain.PartitionKey, serial int) error
}

// Service orchestrates registration: validate, mint the serial, encode the
// identifier, persist, and emit the audit event.
type Service struct {
	store     Store
	validator Validator
	serials   SerialAllocator
	publisher audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditPublisher routes lifecycle events onto the audit trail.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the registrar service.
func New(store Store, validator Validator, serials SerialAllocator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if serials == nil {
		return nil, errors.New("serial allocator is required")
	}
	s := &Service{
		store:     store,
		validator: validator,
		serials:   serials,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates the candidate, mints its serial (auto-allocated when
// raw.Serial is zero, reserved otherwise), and persists the record. The
// serial ledger is the authority on uniqueness; a ledger conflict aborts
// registration before anything is written.
func (s *Service) Register(ctx context.Context, raw validation.RawComponent) (Record, error) {
	start := s.now()

	result, err := s.validator.Validate(ctx, raw)
	if err != nil {
		return Record{}, s.registerFailed(err)
	}
	if vErr := result.Err(); vErr != nil {
		return Record{}, s.registerFailed(vErr)
	}

	id := domain.ComponentIdentifier{
		Region:        raw.Region,
		Division:      raw.Division,
		TrackID:       raw.TrackID,
		KMMarker:      raw.KMMarker,
		ComponentType: domain.ComponentType(raw.ComponentType),
		Year:          raw.Year,
	}
	key := id.Partition()

	if raw.Serial == 0 {
		serial, err := s.serials.AllocateNext(ctx, key)
		if err != nil {
			return Record{}, s.registerFailed(err)
		}
		id.Serial = serial
	} else {
		if err := s.serials.ReserveExplicit(ctx, key, raw.Serial); err != nil {
			return Record{}, s.registerFailed(err)
		}
		id.Serial = raw.Serial
	}

	now := s.now().UTC()
	record := Record{
		Identifier: id,
		Encoded:    codec.Encode(id),
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, w := range result.Warnings() {
		record.Warnings = append(record.Warnings, w.Field+": "+w.Message)
	}

	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Record{}, s.registerFailed(dErrors.Wrap(err, dErrors.CodeConflict, "identifier already registered"))
		}
		return Record{}, s.registerFailed(dErrors.Wrap(err, dErrors.CodeUnavailable, "persist component"))
	}

	audit.Emit(ctx, s.logger, s.publisher, audit.Event{
		Action:     audit.ActionRegistered,
		Identifier: record.Encoded,
		Partition:  key.String(),
		Serial:     id.Serial,
	})

	if s.metrics != nil {
		s.metrics.Registered.WithLabelValues(string(id.ComponentType)).Inc()
		s.metrics.RegisterLatency.Observe(s.now().Sub(start).Seconds())
	}
	s.logger.InfoContext(ctx, "component registered",
		"identifier", record.Encoded,
		"partition", key.String(),
		"serial", id.Serial,
		"warnings", len(record.Warnings),
	)
	return record, nil
}

func (s *Service) registerFailed(err error) error {
	if s.metrics != nil {
		s.metrics.RegisterFailed.WithLabelValues(string(dErrors.GetCode(err))).Inc()
	}
	return err
}

// GetByEncoded fetches a record by its encoded identifier. The identifier
// must parse before the store is consulted, so malformed input is a
// bad-request rather than a miss.
func (s *Service) GetByEncoded(ctx context.Context, encoded string) (Record, error) {
	if _, err := codec.Decode(encoded); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed identifier")
	}
	record, err := s.store.GetByEncoded(ctx, encoded)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, dErrors.Wrap(err, dErrors.CodeNotFound, "component not registered")
	}
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "fetch component")
	}
	return record, nil
}

// Search lists registered components matching the filter, newest first.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Record, error) {
	records, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "search components")
	}
	return records, nil
}

// UpdateStatus transitions a component's lifecycle status.
func (s *Service) UpdateStatus(ctx context.Context, encoded string, status domain.Status) (Record, error) {
	record, err := s.store.UpdateStatus(ctx, encoded, status)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, dErrors.Wrap(err, dErrors.CodeNotFound, "component not registered")
	}
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "update component status")
	}

	audit.Emit(ctx, s.logger, s.publisher, audit.Event{
		Action:     audit.ActionStatusChanged,
		Identifier: encoded,
		Partition:  record.Identifier.Partition().String(),
		Serial:     record.Identifier.Serial,
		Detail:     string(status),
	})
	if s.metrics != nil {
		s.metrics.StatusChanged.WithLabelValues(string(status)).Inc()
	}
	s.logger.InfoContext(ctx, "component status changed",
		"identifier", encoded,
		"status", status,
	)
	return record, nil
}

// Stats aggregates registry counts for the operator dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "component stats")
	}
	return stats, nil
}

// csvHeader is the export column order.
var csvHeader = []string{
	"encoded", "region", "division", "track_id", "km_marker",
	"component_type", "year", "serial", "status", "created_at",
}

// ExportCSV streams matching records as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, filter SearchFilter) error {
	records, err := s.Search(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write csv header")
	}
	for _, r := range records {
		row := []string{
			r.Encoded,
			r.Identifier.Region,
			r.Identifier.Division,
			strconv.Itoa(r.Identifier.TrackID),
			strconv.Itoa(r.Identifier.KMMarker),
			string(r.Identifier.ComponentType),
			strconv.Itoa(r.Identifier.Year),
			strconv.Itoa(r.Identifier.Serial),
			string(r.Status),
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush csv")
	}
	return nil
}
