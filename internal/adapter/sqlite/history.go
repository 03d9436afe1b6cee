// Package sqlite persists observed market probabilities so prediction changes
// can be measured against real earlier values.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultRetention keeps enough observations to answer a 24h lookback with
// some slack.
const DefaultRetention = 48 * time.Hour

// HistoryStore records probability observations per market.
type HistoryStore struct {
	db        *sql.DB
	retention time.Duration
}

// Open opens (or creates) the history database at path. ":memory:" keeps the
// history in process memory.
func Open(ctx context.Context, path string, retention time.Duration) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &HistoryStore{db: db, retention: retention}
	if err := s.initDB(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) initDB(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS probability_observations (
			market_id   TEXT    NOT NULL,
			observed_at INTEGER NOT NULL,
			probability REAL    NOT NULL,
			PRIMARY KEY (market_id, observed_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("create probability_observations table: %w", err)
	}
	return nil
}

// Record stores one observation and drops that market's observations older
// than the retention window.
func (s *HistoryStore) Record(ctx context.Context, marketID string, at time.Time, probability float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO probability_observations (market_id, observed_at, probability) VALUES (?, ?, ?)`,
		marketID, at.UnixMilli(), probability,
	); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM probability_observations WHERE market_id = ? AND observed_at < ?`,
		marketID, at.Add(-s.retention).UnixMilli(),
	); err != nil {
		return fmt.Errorf("prune observations: %w", err)
	}
	return tx.Commit()
}

// PreviousProbability returns the latest observation at or before at. When
// the history does not reach back that far, the oldest later observation is
// used instead. ok is false when the market was never observed.
func (s *HistoryStore) PreviousProbability(ctx context.Context, marketID string, at time.Time) (float64, bool, error) {
	cutoff := at.UnixMilli()

	p, err := s.queryProbability(ctx,
		`SELECT probability FROM probability_observations
		WHERE market_id = ? AND observed_at <= ?
		ORDER BY observed_at DESC LIMIT 1`,
		marketID, cutoff)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	p, err = s.queryProbability(ctx,
		`SELECT probability FROM probability_observations
		WHERE market_id = ? AND observed_at > ?
		ORDER BY observed_at ASC LIMIT 1`,
		marketID, cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return p, true, nil
}

func (s *HistoryStore) queryProbability(ctx context.Context, query string, args ...any) (float64, error) {
	var p float64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query previous probability: %w", err)
	}
	return p, err
}

// Trail returns up to n of the market's most recent observations, oldest first.
func (s *HistoryStore) Trail(ctx context.Context, marketID string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT probability FROM (
			SELECT probability, observed_at FROM probability_observations
			WHERE market_id = ?
			ORDER BY observed_at DESC LIMIT ?
		) ORDER BY observed_at ASC`,
		marketID, n)
	if err != nil {
		return nil, fmt.Errorf("query trail: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan trail: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trail: %w", err)
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
