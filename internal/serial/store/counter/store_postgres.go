package counter

import (
	"context"
	"database/sql"
	"fmt"

	"trackmark/pkg/domain"
)

// PostgresStore persists the serial ledger in PostgreSQL. The conditional
// UPDATE doubles as the compare-and-swap primitive.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS serial_counters (
			partition_key TEXT PRIMARY KEY,
			last_issued   INTEGER NOT NULL DEFAULT 0,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS serial_reservations (
			partition_key TEXT NOT NULL,
			serial        INTEGER NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (partition_key, serial)
		)`)
	if err != nil {
		return fmt.Errorf("migrate serial ledger: %w", err)
	}
	return nil
}

// ReadCounter returns lastIssued; partitions without a row read as 0.
func (s *PostgresStore) ReadCounter(ctx context.Context, key domain.PartitionKey) (int, error) {
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_issued FROM serial_counters WHERE partition_key = $1`,
		key.String()).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read serial counter: %w", err)
	}
	return last, nil
}

// CompareAndSwapCounter advances the counter iff it still equals expected.
// New partitions have an implicit counter of 0, so a CAS from 0 may insert
// the row.
func (s *PostgresStore) CompareAndSwapCounter(ctx context.Context, key domain.PartitionKey, expected, next int) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO serial_counters (partition_key, last_issued)
			VALUES ($1, $2)
			ON CONFLICT (partition_key) DO UPDATE
				SET last_issued = EXCLUDED.last_issued, updated_at = now()
				WHERE serial_counters.last_issued = 0`,
			key.String(), next)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE serial_counters
			SET last_issued = $2, updated_at = now()
			WHERE partition_key = $1 AND last_issued = $3`,
			key.String(), next, expected)
	}
	if err != nil {
		return false, fmt.Errorf("cas serial counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cas serial counter: %w", err)
	}
	return affected == 1, nil
}

// ReadReservedSerials returns the explicit reservations for a partition.
func (s *PostgresStore) ReadReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT serial FROM serial_reservations WHERE partition_key = $1`,
		key.String())
	if err != nil {
		return nil, fmt.Errorf("read serial reservations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]struct{})
	for rows.Next() {
		var serial int
		if err := rows.Scan(&serial); err != nil {
			return nil, fmt.Errorf("scan serial reservation: %w", err)
		}
		out[serial] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read serial reservations: %w", err)
	}
	return out, nil
}

// RecordReservation marks a serial as explicitly reserved. Re-recording the
// same reservation is a no-op.
func (s *PostgresStore) RecordReservation(ctx context.Context, key domain.PartitionKey, serial int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO serial_reservations (partition_key, serial)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		key.String(), serial)
	if err != nil {
		return fmt.Errorf("record serial reservation: %w", err)
	}
	return nil
}
