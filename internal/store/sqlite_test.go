package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmetric/walkability-cli/internal/aggregate"
	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/score"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResult(label string, total float64) *analysis.Result {
	return &analysis.Result{
		ID:         uuid.New(),
		Label:      label,
		Origin:     []float64{7.6261347, 51.9606649},
		Minutes:    15,
		Categories: []string{"grocery", "pharmacy"},
		POIs: map[string][]aggregate.POI{
			"grocery":  {{ID: "1", Kind: aggregate.KindPoint, Name: "Edeka", Category: "grocery"}},
			"pharmacy": {},
		},
		Score: &score.Scorecard{
			TotalScore: total,
			Categories: []score.CategoryScore{
				{Category: "grocery", Count: 1, MinCount: 1, RawScore: 100},
			},
			TotalPOIs:   1,
			TotalWeight: 0.45,
		},
		Grade:     score.Grade(total),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := testResult("Centrum", 72.5)
	require.NoError(t, s.SaveRun(ctx, want))

	got, err := s.GetRun(ctx, want.ID.String())
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "Centrum", got.Label)
	assert.Equal(t, 15, got.Minutes)
	assert.InDelta(t, 72.5, got.Score.TotalScore, 1e-9)
	assert.Equal(t, "good", got.Grade)
	assert.Len(t, got.POIs["grocery"], 1)
	assert.Equal(t, "Edeka", got.POIs["grocery"][0].Name)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), uuid.New().String())
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteStore_SaveRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []*analysis.Result{
		testResult("Centrum", 80),
		testResult("Hiltrup", 55),
		testResult("Roxel", 30),
	}
	require.NoError(t, s.SaveRuns(ctx, batch))

	all, err := s.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testResult("Centrum", 85)))
	require.NoError(t, s.SaveRun(ctx, testResult("Centrum", 40)))
	require.NoError(t, s.SaveRun(ctx, testResult("Hiltrup", 60)))

	byLabel, err := s.ListRuns(ctx, Filter{Label: "Centrum"})
	require.NoError(t, err)
	assert.Len(t, byLabel, 2)

	byScore, err := s.ListRuns(ctx, Filter{MinScore: 50})
	require.NoError(t, err)
	assert.Len(t, byScore, 2)

	limited, err := s.ListRuns(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := testResult("Centrum", 70)
	require.NoError(t, s.SaveRun(ctx, result))

	require.NoError(t, s.DeleteRun(ctx, result.ID.String()))

	_, err := s.GetRun(ctx, result.ID.String())
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.DeleteRun(ctx, result.ID.String())
	assert.True(t, eris.Is(err, ErrNotFound))
}
