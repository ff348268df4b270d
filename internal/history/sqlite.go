package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/coinsight/internal/model"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens or creates the database at dbPath.
// Parent directories are created if they do not exist.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite history path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL,
	stage TEXT,
	provider TEXT,
	model TEXT,
	output TEXT,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_kind_started ON runs(kind, started_at);
`

// Record inserts or replaces a run. An empty ID is filled in.
func (s *SQLiteRepository) Record(ctx context.Context, run *model.RunRecord) error {
	if err := prepare(run); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, kind, started_at, finished_at, status, stage, provider, model, output, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Status, run.Stage,
		run.Provider, run.Model, run.Output, run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Get returns one run
func (s *SQLiteRepository) Get(ctx context.Context, id string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, started_at, finished_at, status, stage, provider, model, output, error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns recent runs, newest first
func (s *SQLiteRepository) List(ctx context.Context, kind string, limit int) ([]model.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, status, stage, provider, model, output, error
		 FROM runs WHERE (? = '' OR kind = ?) ORDER BY started_at DESC LIMIT ?`,
		kind, kind, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the database
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.RunRecord, error) {
	var run model.RunRecord
	var stage, provider, mdl, output, errText sql.NullString
	if err := row.Scan(&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status,
		&stage, &provider, &mdl, &output, &errText); err != nil {
		return nil, err
	}
	run.Stage = stage.String
	run.Provider = provider.String
	run.Model = mdl.String
	run.Output = output.String
	run.Error = errText.String
	return &run, nil
}
