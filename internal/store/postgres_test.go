package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockStore(t)

	result := testResult("Centrum", 72.5)
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(result.ID, result.Label, result.Origin[0], result.Origin[1],
			result.Minutes, result.Score.TotalScore, result.Grade, pgxmock.AnyArg(), result.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRun(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRuns(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"runs"},
		[]string{"id", "label", "lon", "lat", "minutes", "total_score", "grade", "result", "created_at"}).
		WillReturnResult(2)

	batch := []*analysis.Result{testResult("Centrum", 80), testResult("Hiltrup", 55)}
	require.NoError(t, s.SaveRuns(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockStore(t)

	want := testResult("Centrum", 72.5)
	resultJSON, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT result FROM runs WHERE id").
		WithArgs(want.ID.String()).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(resultJSON))

	got, err := s.GetRun(context.Background(), want.ID.String())
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "Centrum", got.Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT result FROM runs WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	a := testResult("Centrum", 80)
	b := testResult("Centrum", 40)
	aJSON, err := json.Marshal(a)
	require.NoError(t, err)
	bJSON, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT result FROM runs").
		WithArgs("Centrum", 100).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(aJSON).AddRow(bJSON))

	results, err := s.ListRuns(context.Background(), Filter{Label: "Centrum"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM runs").
		WithArgs("some-id").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteRun(context.Background(), "some-id"))

	mock.ExpectExec("DELETE FROM runs").
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteRun(context.Background(), "gone")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
