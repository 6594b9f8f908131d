//go:build integration

package component_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmark/internal/component"
	"trackmark/pkg/domain"
	"trackmark/pkg/platform/sentinel"
	"trackmark/pkg/testutil/containers"
)

func pgRecord(encoded string, serial int) component.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return component.Record{
		Identifier: domain.ComponentIdentifier{
			Region:        "WR",
			Division:      "BCT",
			TrackID:       21,
			KMMarker:      114320,
			ComponentType: domain.TypeBolt,
			Year:          2024,
			Serial:        serial,
		},
		Encoded:   encoded,
		Status:    domain.StatusActive,
		Warnings:  []string{"division: not listed for region WR"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := component.NewPostgresStore(pg.DB)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	t.Run("insert and fetch", func(t *testing.T) {
		rec := pgRecord("IR-WR-BCT-021-114320-BOLT-2024-000001", 1)
		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.GetByEncoded(ctx, rec.Encoded)
		require.NoError(t, err)
		assert.Equal(t, rec.Identifier, got.Identifier)
		assert.Equal(t, rec.Warnings, got.Warnings)
	})

	t.Run("duplicate insert conflicts", func(t *testing.T) {
		rec := pgRecord("IR-WR-BCT-021-114320-BOLT-2024-000001", 1)
		err := store.Insert(ctx, rec)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("missing record is not found", func(t *testing.T) {
		_, err := store.GetByEncoded(ctx, "IR-WR-BCT-021-114320-BOLT-2024-999998")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("search filters and paginates", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, pgRecord("IR-WR-BCT-021-114320-BOLT-2024-000002", 2)))

		records, err := store.Search(ctx, component.SearchFilter{ComponentType: domain.TypeBolt, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, records, 1)

		records, err = store.Search(ctx, component.SearchFilter{Region: "NR"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("status update round-trips", func(t *testing.T) {
		got, err := store.UpdateStatus(ctx, "IR-WR-BCT-021-114320-BOLT-2024-000001", domain.StatusRetired)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRetired, got.Status)

		_, err = store.UpdateStatus(ctx, "IR-WR-BCT-021-114320-BOLT-2024-999998", domain.StatusRetired)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("stats aggregates", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.ByType[domain.TypeBolt])
		assert.Equal(t, 1, stats.ByStatus[domain.StatusRetired])
	})
}
