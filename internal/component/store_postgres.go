package component

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"trackmark/pkg/domain"
	"trackmark/pkg/platform/sentinel"
)

// PostgresStore persists records in Postgres. Encoded identifiers are the
// primary key so duplicate registrations fail at the constraint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the components table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS components (
			encoded        TEXT PRIMARY KEY,
			region         TEXT NOT NULL,
			division       TEXT NOT NULL,
			track_id       INTEGER NOT NULL,
			km_marker      INTEGER NOT NULL,
			component_type TEXT NOT NULL,
			year           INTEGER NOT NULL,
			serial         INTEGER NOT NULL,
			status         TEXT NOT NULL,
			warnings       TEXT[] NOT NULL DEFAULT '{}',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS components_partition_idx
			ON components (region, division, component_type, year);
	`)
	if err != nil {
		return fmt.Errorf("migrate components: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO components
			(encoded, region, division, track_id, km_marker, component_type,
			 year, serial, status, warnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.Encoded,
		record.Identifier.Region,
		record.Identifier.Division,
		record.Identifier.TrackID,
		record.Identifier.KMMarker,
		string(record.Identifier.ComponentType),
		record.Identifier.Year,
		record.Identifier.Serial,
		string(record.Status),
		pq.Array(record.Warnings),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert component: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByEncoded(ctx context.Context, encoded string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT encoded, region, division, track_id, km_marker, component_type,
		       year, serial, status, warnings, created_at, updated_at
		FROM components WHERE encoded = $1`, encoded)
	return scanRecord(row)
}

func (s *PostgresStore) Search(ctx context.Context, filter SearchFilter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Region != "" {
		add("region", filter.Region)
	}
	if filter.Division != "" {
		add("division", filter.Division)
	}
	if filter.ComponentType != "" {
		add("component_type", string(filter.ComponentType))
	}
	if filter.Year != 0 {
		add("year", filter.Year)
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}

	query := `
		SELECT encoded, region, division, track_id, km_marker, component_type,
		       year, serial, status, warnings, created_at, updated_at
		FROM components`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, encoded ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search components: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search components: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, encoded string, status domain.Status) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE components SET status = $2, updated_at = $3
		WHERE encoded = $1
		RETURNING encoded, region, division, track_id, km_marker, component_type,
		          year, serial, status, warnings, created_at, updated_at`,
		encoded, string(status), time.Now().UTC())
	return scanRecord(row)
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByType:   make(map[domain.ComponentType]int),
		ByRegion: make(map[string]int),
		ByStatus: make(map[domain.Status]int),
		ByYear:   make(map[int]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT region, component_type, status, year, COUNT(*)
		FROM components
		GROUP BY region, component_type, status, year`)
	if err != nil {
		return Stats{}, fmt.Errorf("component stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			region, componentType, status string
			year, count                   int
		)
		if err := rows.Scan(&region, &componentType, &status, &year, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}
		stats.Total += count
		stats.ByType[domain.ComponentType(componentType)] += count
		stats.ByRegion[region] += count
		stats.ByStatus[domain.Status(status)] += count
		stats.ByYear[year] += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("component stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record        Record
		componentType string
		status        string
		warnings      pq.StringArray
	)
	err := row.Scan(
		&record.Encoded,
		&record.Identifier.Region,
		&record.Identifier.Division,
		&record.Identifier.TrackID,
		&record.Identifier.KMMarker,
		&componentType,
		&record.Identifier.Year,
		&record.Identifier.Serial,
		&status,
		&warnings,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan component: %w", err)
	}
	record.Identifier.ComponentType = domain.ComponentType(componentType)
	record.Status = domain.Status(status)
	record.Warnings = []string(warnings)
	return record, nil
}
