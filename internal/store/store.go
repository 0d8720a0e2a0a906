// Package store persists completed analysis runs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/config"
	"github.com/urbanmetric/walkability-cli/internal/db"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Filter specifies criteria for listing runs.
type Filter struct {
	Label    string  `json:"label,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	SaveRun(ctx context.Context, result *analysis.Result) error
	SaveRuns(ctx context.Context, results []*analysis.Result) error
	GetRun(ctx context.Context, runID string) (*analysis.Result, error)
	ListRuns(ctx context.Context, filter Filter) ([]analysis.Result, error)
	DeleteRun(ctx context.Context, runID string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store from configuration and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var s Store
	switch cfg.Driver {
	case "sqlite", "":
		sq, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = sq
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = NewPostgres(pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
