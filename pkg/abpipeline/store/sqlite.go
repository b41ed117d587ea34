package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline"
)

// SQLiteStore persists marts to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite mart store.
// The path should be a file path (e.g., "./marts.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS mart_user_exposure (
			experiment_name TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			variant TEXT NOT NULL,
			exposure_ts TEXT NOT NULL,
			PRIMARY KEY (experiment_name, user_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create exposure table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS mart_user_outcomes (
			experiment_name TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			purchased INTEGER NOT NULL,
			net_revenue REAL NOT NULL,
			events_in_window INTEGER NOT NULL,
			PRIMARY KEY (experiment_name, user_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create outcomes table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ReplaceMarts overwrites both mart tables with the given run's output in a
// single transaction. Matches the pipeline's wholesale-recompute lifecycle:
// no incremental patching, no partial state on failure.
func (s *SQLiteStore) ReplaceMarts(marts *abpipeline.Marts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mart_user_exposure`); err != nil {
		return fmt.Errorf("clear exposure mart: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM mart_user_outcomes`); err != nil {
		return fmt.Errorf("clear outcomes mart: %w", err)
	}

	for _, exp := range marts.Exposure {
		if _, err := tx.Exec(`
			INSERT INTO mart_user_exposure (experiment_name, user_id, variant, exposure_ts)
			VALUES (?, ?, ?, ?)
		`, exp.Experiment, exp.UserID, string(exp.Variant), exp.ExposureTS.UTC().Format(timestampLayout)); err != nil {
			return fmt.Errorf("insert exposure row: %w", err)
		}
	}
	for _, out := range marts.Outcomes {
		purchased := 0
		if out.Purchased {
			purchased = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO mart_user_outcomes (experiment_name, user_id, purchased, net_revenue, events_in_window)
			VALUES (?, ?, ?, ?, ?)
		`, out.Experiment, out.UserID, purchased, out.NetRevenue, out.EventsInWindow); err != nil {
			return fmt.Errorf("insert outcome row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit marts: %w", err)
	}
	return nil
}

// LoadMarts reads both mart tables back, ordered by (experiment, user) to
// match the builder's deterministic row order.
func (s *SQLiteStore) LoadMarts() (*abpipeline.Marts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	marts := &abpipeline.Marts{}

	rows, err := s.db.Query(`
		SELECT experiment_name, user_id, variant, exposure_ts
		FROM mart_user_exposure
		ORDER BY experiment_name, user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query exposure mart: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var exp abpipeline.ExposureRecord
		var variant, ts string
		if err := rows.Scan(&exp.Experiment, &exp.UserID, &variant, &ts); err != nil {
			return nil, fmt.Errorf("scan exposure row: %w", err)
		}
		exp.Variant = abpipeline.Variant(variant)
		exp.ExposureTS, err = time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse exposure timestamp: %w", err)
		}
		marts.Exposure = append(marts.Exposure, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exposure mart: %w", err)
	}

	outRows, err := s.db.Query(`
		SELECT experiment_name, user_id, purchased, net_revenue, events_in_window
		FROM mart_user_outcomes
		ORDER BY experiment_name, user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes mart: %w", err)
	}
	defer outRows.Close()
	for outRows.Next() {
		var out abpipeline.OutcomeRecord
		var purchased int
		if err := outRows.Scan(&out.Experiment, &out.UserID, &purchased, &out.NetRevenue, &out.EventsInWindow); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		out.Purchased = purchased != 0
		marts.Outcomes = append(marts.Outcomes, out)
	}
	if err := outRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes mart: %w", err)
	}

	if len(marts.Exposure) == 0 && len(marts.Outcomes) == 0 {
		return nil, ErrNoMarts
	}
	return marts, nil
}

// Close closes the store. Subsequent operations return ErrStoreClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
