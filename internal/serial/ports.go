// Package serial mints partition-scoped serial numbers. The ledger behind it
// is append-only: serials are never reused, replacement of a component never
// frees its serial, and a crashed caller may burn a serial without a record.
package serial

import (
	"context"

	"trackmark/pkg/domain"
)

// CounterStore is the persistence collaborator contract for the serial
// ledger. The core is agnostic to the storage technology; it only requires
// an atomic compare-and-swap over the per-partition counter.
type CounterStore interface {
	// ReadCounter returns lastIssued for the partition, 0 if the partition
	// has never allocated.
	ReadCounter(ctx context.Context, key domain.PartitionKey) (int, error)

	// CompareAndSwapCounter sets the counter to next iff it still equals
	// expected. Returns false (and no error) when the counter moved.
	CompareAndSwapCounter(ctx context.Context, key domain.PartitionKey, expected, next int) (bool, error)

	// ReadReservedSerials returns the explicitly reserved serials for the
	// partition, for manual-mode conflict checks.
	ReadReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error)

	// RecordReservation marks a serial as explicitly reserved so the set
	// returned by ReadReservedSerials has content.
	RecordReservation(ctx context.Context, key domain.PartitionKey, serial int) error
}
