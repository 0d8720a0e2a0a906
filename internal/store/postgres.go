package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/db"
)

// PostgresStore implements Store against a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	lon         DOUBLE PRECISION NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	minutes     INTEGER NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	grade       TEXT NOT NULL,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
CREATE INDEX IF NOT EXISTS idx_runs_total_score ON runs(total_score);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, result *analysis.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, label, lon, lat, minutes, total_score, grade, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.Label, result.Origin[0], result.Origin[1],
		result.Minutes, result.Score.TotalScore, result.Grade, resultJSON, result.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

// SaveRuns bulk-inserts results via the COPY protocol.
func (s *PostgresStore) SaveRuns(ctx context.Context, results []*analysis.Result) error {
	rows := make([][]any, 0, len(results))
	for _, result := range results {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		rows = append(rows, []any{
			result.ID, result.Label, result.Origin[0], result.Origin[1],
			result.Minutes, result.Score.TotalScore, result.Grade, resultJSON, result.CreatedAt,
		})
	}

	_, err := db.CopyRows(ctx, s.pool, "runs",
		[]string{"id", "label", "lon", "lat", "minutes", "total_score", "grade", "result", "created_at"},
		rows,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*analysis.Result, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM runs WHERE id = $1`, runID,
	).Scan(&resultJSON)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	var result analysis.Result
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &result, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter Filter) ([]analysis.Result, error) {
	query := `SELECT result FROM runs WHERE 1=1`
	var args []any

	if filter.Label != "" {
		args = append(args, filter.Label)
		query += ` AND label = $1`
	}
	if filter.MinScore > 0 {
		args = append(args, filter.MinScore)
		query += ` AND total_score >= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var results []analysis.Result
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		var result analysis.Result
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
