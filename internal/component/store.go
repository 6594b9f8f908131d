package component

import (
	"context"

	"trackmark/pkg/domain"
)

// Store persists component records.
type Store interface {
	// Insert saves a new record. Returns sentinel.ErrConflict when the
	// encoded identifier already exists.
	Insert(ctx context.Context, record Record) error

	// GetByEncoded fetches a record by its encoded identifier. Returns
	// sentinel.ErrNotFound when absent.
	GetByEncoded(ctx context.Context, encoded string) (Record, error)

	// Search lists records matching the filter, newest first.
	Search(ctx context.Context, filter SearchFilter) ([]Record, error)

	// UpdateStatus transitions a record's lifecycle status. Returns
	// sentinel.ErrNotFound when absent.
	UpdateStatus(ctx context.Context, encoded string, status domain.Status) (Record, error)

	// Stats aggregates registry counts.
	Stats(ctx context.Context) (Stats, error)
}
