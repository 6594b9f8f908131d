package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the serial allocator.
type Metrics struct {
	Allocations         prometheus.Counter
	Reservations        prometheus.Counter
	ReservationConflict prometheus.Counter
	CASRetries          prometheus.Counter
	PartitionExhausted  *prometheus.CounterVec
}

// New creates and registers allocator metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Allocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trackmark_serials_allocated_total",
			Help: "Total serials minted by the allocator",
		}),
		Reservations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trackmark_serials_reserved_total",
			Help: "Total explicit serial reservations accepted",
		}),
		ReservationConflict: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trackmark_serial_reservation_conflicts_total",
			Help: "Explicit reservations rejected because the serial was already issued",
		}),
		CASRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trackmark_serial_cas_retries_total",
			Help: "Compare-and-swap retries caused by concurrent allocators",
		}),
		PartitionExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmark_serial_partition_exhausted_total",
			Help: "Allocation attempts against a partition with no serials left",
		}, []string{"partition"}),
	}
}
