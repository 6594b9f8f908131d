//go:build integration

package counter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmark/internal/serial"
	"trackmark/internal/serial/store/counter"
	"trackmark/pkg/domain"
	"trackmark/pkg/testutil/containers"
)

func newPostgresStore(t *testing.T) *counter.PostgresStore {
	t.Helper()
	pg := containers.NewPostgresContainer(t)
	store := counter.NewPostgresStore(pg.DB)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestPostgresStore_Integration(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := domain.PartitionKey{Region: "WR", Division: "BCT", ComponentType: domain.TypeBolt, Year: 2024}

	t.Run("fresh partition reads zero", func(t *testing.T) {
		last, err := store.ReadCounter(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, last)
	})

	t.Run("CAS from zero creates the row", func(t *testing.T) {
		ok, err := store.CompareAndSwapCounter(ctx, key, 0, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		last, err := store.ReadCounter(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, last)
	})

	t.Run("stale CAS fails without error", func(t *testing.T) {
		ok, err := store.CompareAndSwapCounter(ctx, key, 0, 5)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reservations round-trip", func(t *testing.T) {
		require.NoError(t, store.RecordReservation(ctx, key, 500))
		reserved, err := store.ReadReservedSerials(ctx, key)
		require.NoError(t, err)
		assert.Contains(t, reserved, 500)
	})

	t.Run("allocator end to end", func(t *testing.T) {
		allocator, err := serial.New(store)
		require.NoError(t, err)

		fresh := domain.PartitionKey{Region: "CR", Division: "CSMT", ComponentType: domain.TypeClip, Year: 2024}
		first, err := allocator.AllocateNext(ctx, fresh)
		require.NoError(t, err)
		second, err := allocator.AllocateNext(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, 1, first)
		assert.Equal(t, 2, second)
	})
}
