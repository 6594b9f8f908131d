package serial

import (
	"context"
	"fmt"
	"log/slog"

	"trackmark/internal/serial/metrics"
	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
	"trackmark/pkg/platform/sentinel"
)

// Allocator mints serials against the counter ledger. The compare-and-swap
// loop is the single synchronization point of the whole core; it is scoped
// per partition key, so partitions never contend with each other.
type Allocator struct {
	store   CounterStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the allocator.
type Option func(*Allocator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) { a.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

// New constructs an allocator over a counter store.
func New(store CounterStore, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	a := &Allocator{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AllocateNext mints the next serial for the partition: lastIssued + 1.
// Concurrent callers for the same partition each receive a distinct serial;
// the allocator itself never creates gaps. A lost CAS race is retried
// immediately (someone else made progress); a storage failure is surfaced
// as-is for the caller to retry with backoff, never retried internally.
func (a *Allocator) AllocateNext(ctx context.Context, key domain.PartitionKey) (int, error) {
	for {
		cur, err := a.store.ReadCounter(ctx, key)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "read serial counter")
		}
		if cur >= domain.MaxSerial {
			if a.metrics != nil {
				a.metrics.PartitionExhausted.WithLabelValues(key.String()).Inc()
			}
			if a.logger != nil {
				a.logger.ErrorContext(ctx, "serial partition exhausted",
					"partition", key.String(),
					"last_issued", cur,
				)
			}
			return 0, dErrors.Wrap(sentinel.ErrExhausted, dErrors.CodeExhausted,
				fmt.Sprintf("partition %s has no serials left", key))
		}

		next := cur + 1
		ok, err := a.store.CompareAndSwapCounter(ctx, key, cur, next)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "advance serial counter")
		}
		if ok {
			if a.metrics != nil {
				a.metrics.Allocations.Inc()
			}
			return next, nil
		}
		// Lost the race; the counter moved, re-read and try again.
		if a.metrics != nil {
			a.metrics.CASRetries.Inc()
		}
	}
}

// ReserveExplicit claims a caller-supplied serial (legacy migrations, manual
// mode). It conflicts iff the serial was already issued or reserved for the
// partition. On success the counter advances to max(lastIssued, serial), so
// AllocateNext can never re-collide with it; the serials skipped over are
// silently spent. That is accepted ledger behavior, not a defect.
func (a *Allocator) ReserveExplicit(ctx context.Context, key domain.PartitionKey, serial int) error {
	if serial < domain.MinSerial || serial > domain.MaxSerial {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("serial must be %d-%d, got %d", domain.MinSerial, domain.MaxSerial, serial))
	}

	for {
		cur, err := a.store.ReadCounter(ctx, key)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "read serial counter")
		}
		if serial <= cur {
			// Every serial at or below the watermark is spent, whether it
			// was allocated, reserved, or skipped by an earlier jump.
			if a.metrics != nil {
				a.metrics.ReservationConflict.Inc()
			}
			return dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict,
				fmt.Sprintf("serial %d already issued for partition %s", serial, key))
		}

		ok, err := a.store.CompareAndSwapCounter(ctx, key, cur, serial)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "advance serial counter")
		}
		if ok {
			break
		}
		if a.metrics != nil {
			a.metrics.CASRetries.Inc()
		}
	}

	if err := a.store.RecordReservation(ctx, key, serial); err != nil {
		// The counter already covers the serial, so uniqueness holds even
		// if the reservation record is lost; report the failure anyway.
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record serial reservation")
	}
	if a.metrics != nil {
		a.metrics.Reservations.Inc()
	}
	if a.logger != nil {
		a.logger.InfoContext(ctx, "serial reserved explicitly",
			"partition", key.String(),
			"serial", serial,
		)
	}
	return nil
}

// Peek returns lastIssued without mutating the ledger.
func (a *Allocator) Peek(ctx context.Context, key domain.PartitionKey) (int, error) {
	cur, err := a.store.ReadCounter(ctx, key)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "read serial counter")
	}
	return cur, nil
}

// ReservedSerials returns the explicit reservations for a partition.
func (a *Allocator) ReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error) {
	reserved, err := a.store.ReadReservedSerials(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read reserved serials")
	}
	return reserved, nil
}
