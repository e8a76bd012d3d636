// Package postgres stores felt reports in a felt_reports table with a
// SERIAL id.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	_ "github.com/lib/pq"
)

const createTable = `
CREATE TABLE IF NOT EXISTS felt_reports (
    id                  SERIAL PRIMARY KEY,
    location            TEXT             NOT NULL DEFAULT '',
    shaking             INTEGER          NOT NULL,
    duration            INTEGER          NOT NULL,
    objects             INTEGER          NOT NULL,
    reaction            INTEGER          NOT NULL,
    damage              INTEGER          NOT NULL,
    predicted_magnitude DOUBLE PRECISION NOT NULL,
    submission_time     TEXT             NOT NULL,
    strategy            TEXT             NOT NULL DEFAULT ''
);
`

const insertReport = `
INSERT INTO felt_reports (location, shaking, duration, objects, reaction, damage, predicted_magnitude, submission_time, strategy)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id;
`

const selectReports = `
SELECT id, location, shaking, duration, objects, reaction, damage, predicted_magnitude, submission_time, strategy
FROM felt_reports
ORDER BY id;
`

// Store is a ReportStore over database/sql.
type Store struct {
	db *sql.DB
}

// Open connects with the postgres driver, pings, and ensures the table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table felt_reports: %w", err)
	}
	return nil
}

// Load returns all reports ordered by id.
func (s *Store) Load(ctx context.Context) ([]domain.FeltReport, error) {
	rows, err := s.db.QueryContext(ctx, selectReports)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.FeltReport{}
	for rows.Next() {
		var r domain.FeltReport
		if err := rows.Scan(
			&r.ID,
			&r.Location,
			&r.Shaking,
			&r.Duration,
			&r.Objects,
			&r.Reaction,
			&r.Damage,
			&r.PredictedMagnitude,
			&r.SubmissionTime,
			&r.Strategy,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Append inserts r and returns it with the generated id.
func (s *Store) Append(ctx context.Context, r domain.FeltReport) (domain.FeltReport, error) {
	row := s.db.QueryRowContext(ctx, insertReport,
		r.Location,
		r.Shaking,
		r.Duration,
		r.Objects,
		r.Reaction,
		r.Damage,
		r.PredictedMagnitude,
		r.SubmissionTime,
		r.Strategy,
	)
	if err := row.Scan(&r.ID); err != nil {
		return domain.FeltReport{}, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
