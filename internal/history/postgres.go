package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/coinsight/internal/model"
)

// PostgresRepository implements Repository on a pgx connection pool
type PostgresRepository struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS coinsight_runs (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_coinsight_runs_kind_started ON coinsight_runs(kind, started_at DESC);
`

// NewPostgresRepository connects to databaseURL and creates the table
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Record upserts a run
func (r *PostgresRepository) Record(ctx context.Context, run *model.RunRecord) error {
	if err := prepare(run); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO coinsight_runs (id, kind, started_at, finished_at, status, stage, provider, model, output, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			output = EXCLUDED.output,
			error = EXCLUDED.error`,
		run.ID, run.Kind, run.StartedAt, run.FinishedAt, run.Status, run.Stage,
		run.Provider, run.Model, run.Output, run.Error)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Get returns one run
func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.RunRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, kind, started_at, finished_at, status, stage, provider, model, output, error
		FROM coinsight_runs WHERE id = $1`, id)
	var run model.RunRecord
	err := row.Scan(&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.Stage, &run.Provider, &run.Model, &run.Output, &run.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// List returns recent runs, newest first
func (r *PostgresRepository) List(ctx context.Context, kind string, limit int) ([]model.RunRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, kind, started_at, finished_at, status, stage, provider, model, output, error
		FROM coinsight_runs WHERE ($1 = '' OR kind = $1)
		ORDER BY started_at DESC LIMIT $2`, kind, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RunRecord, error) {
		var run model.RunRecord
		err := row.Scan(&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status,
			&run.Stage, &run.Provider, &run.Model, &run.Output, &run.Error)
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// Close releases the pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
