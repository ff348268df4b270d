// Package history records every analysis run.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/coinsight/internal/model"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

const (
	KindAnnualReport = "annual_report"
	KindBackground   = "background"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Repository stores run records
type Repository interface {
	Record(ctx context.Context, run *model.RunRecord) error
	Get(ctx context.Context, id string) (*model.RunRecord, error)
	// List returns the most recent runs first. An empty kind lists all.
	List(ctx context.Context, kind string, limit int) ([]model.RunRecord, error)
	Close() error
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// Open returns the repository selected by cfg. A disabled history
// returns a repository that discards records.
func Open(ctx context.Context, cfg model.HistoryConfig) (Repository, error) {
	if !cfg.Enabled {
		return Discard{}, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		return NewSQLiteRepository(cfg.SQLitePath)
	case "postgres", "postgresql", "pgx":
		return NewPostgresRepository(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown history driver: %s", cfg.Driver)
	}
}

// Discard drops every record
type Discard struct{}

func (Discard) Record(context.Context, *model.RunRecord) error { return nil }

func (Discard) Get(_ context.Context, id string) (*model.RunRecord, error) {
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

func (Discard) List(context.Context, string, int) ([]model.RunRecord, error) { return nil, nil }

func (Discard) Close() error { return nil }

func prepare(run *model.RunRecord) error {
	if run.ID == "" {
		run.ID = NewRunID()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}
	if run.Kind == "" {
		return fmt.Errorf("run %s has no kind", run.ID)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 50
	}
	return limit
}
