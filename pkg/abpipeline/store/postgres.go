package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline"
)

// PostgresLoader ships the marts to the warehouse where BI tools read them.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

// NewPostgresLoader connects to the warehouse.
func NewPostgresLoader(ctx context.Context, dsn string) (*PostgresLoader, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresLoader{pool: pool}, nil
}

// martDDL drops and recreates both mart tables so the schema always matches
// the current run's output.
const martDDL = `
DROP TABLE IF EXISTS mart_user_exposure;
DROP TABLE IF EXISTS mart_user_outcomes;

CREATE TABLE mart_user_exposure (
  experiment_name TEXT NOT NULL,
  user_id BIGINT NOT NULL,
  variant TEXT NOT NULL,
  exposure_ts TIMESTAMP NOT NULL,
  PRIMARY KEY (experiment_name, user_id)
);

CREATE TABLE mart_user_outcomes (
  experiment_name TEXT NOT NULL,
  user_id BIGINT NOT NULL,
  purchased BOOLEAN NOT NULL,
  net_revenue DOUBLE PRECISION NOT NULL,
  events_in_window BIGINT NOT NULL,
  PRIMARY KEY (experiment_name, user_id)
);
`

// Load recreates the mart tables and bulk-loads the given run's output in a
// single transaction using the COPY protocol.
func (l *PostgresLoader) Load(ctx context.Context, marts *abpipeline.Marts) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, martDDL); err != nil {
		return fmt.Errorf("create mart tables: %w", err)
	}

	exposureRows := make([][]interface{}, len(marts.Exposure))
	for i, exp := range marts.Exposure {
		exposureRows[i] = []interface{}{exp.Experiment, exp.UserID, string(exp.Variant), exp.ExposureTS.UTC()}
	}
	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"mart_user_exposure"},
		[]string{"experiment_name", "user_id", "variant", "exposure_ts"},
		pgx.CopyFromRows(exposureRows),
	); err != nil {
		return fmt.Errorf("copy exposure mart: %w", err)
	}

	outcomeRows := make([][]interface{}, len(marts.Outcomes))
	for i, out := range marts.Outcomes {
		outcomeRows[i] = []interface{}{out.Experiment, out.UserID, out.Purchased, out.NetRevenue, out.EventsInWindow}
	}
	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"mart_user_outcomes"},
		[]string{"experiment_name", "user_id", "purchased", "net_revenue", "events_in_window"},
		pgx.CopyFromRows(outcomeRows),
	); err != nil {
		return fmt.Errorf("copy outcomes mart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit marts: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (l *PostgresLoader) Close() {
	l.pool.Close()
}
