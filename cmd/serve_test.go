package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/urbanmetric/walkability-cli/internal/aggregate"
	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
	"github.com/urbanmetric/walkability-cli/internal/store"
)

type fakeRouting struct {
	area *geometry.Area
	err  error
}

func (f *fakeRouting) Isochrone(_ context.Context, origin geom.Coord, minutes int) (*geometry.Area, error) {
	if f.err != nil {
		return nil, f.err
	}
	area := *f.area
	area.Origin = origin
	area.Minutes = minutes
	return &area, nil
}

func (f *fakeRouting) Ping(context.Context) error { return f.err }

type fakePOIs struct {
	elements []aggregate.RawElement
	err      error
}

func (f *fakePOIs) Fetch(context.Context, *geometry.Area, []category.TagRule) ([]aggregate.RawElement, error) {
	return f.elements, f.err
}

func testMux(t *testing.T, elements []aggregate.RawElement) (*http.ServeMux, store.Store) {
	t.Helper()

	reg, err := category.NewRegistry(category.Defaults())
	require.NoError(t, err)

	area := &geometry.Area{
		Ring: []geom.Coord{
			{7.0, 51.0}, {8.0, 51.0}, {8.0, 52.0}, {7.0, 52.0}, {7.0, 51.0},
		},
	}
	analyzer := analysis.New(&fakeRouting{area: area}, &fakePOIs{elements: elements}, reg)

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	return newMux(analyzer, st), st
}

func doJSON(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	mux, _ := testMux(t, nil)

	rec := doJSON(mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Analyze_InvalidBody(t *testing.T) {
	mux, _ := testMux(t, nil)

	rec := doJSON(mux, http.MethodPost, "/analyze", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Analyze_RejectsBadCoordinates(t *testing.T) {
	mux, _ := testMux(t, nil)

	for name, body := range map[string]string{
		"missing":         `{}`,
		"zero origin":     `{"lat": 0, "lon": 0}`,
		"lat above range": `{"lat": 95, "lon": 7.6}`,
		"lat below range": `{"lat": -95, "lon": 7.6}`,
		"lon above range": `{"lat": 51.9, "lon": 190}`,
		"lon below range": `{"lat": 51.9, "lon": -190}`,
	} {
		rec := doJSON(mux, http.MethodPost, "/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), name)
		assert.Contains(t, resp["error"], "lat and lon", name)
	}
}

func TestServer_Analyze_Success(t *testing.T) {
	mux, _ := testMux(t, []aggregate.RawElement{
		{ID: "1", Kind: aggregate.KindPoint, Coord: geom.Coord{7.5, 51.5}, Tags: map[string]string{"shop": "supermarket", "name": "Edeka"}},
		{ID: "2", Kind: aggregate.KindPoint, Coord: geom.Coord{7.5, 51.5}, Tags: map[string]string{"amenity": "pharmacy"}},
	})

	rec := doJSON(mux, http.MethodPost, "/analyze", `{"lat": 51.5, "lon": 7.5, "label": "Centrum", "categories": ["grocery", "pharmacy"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Centrum", result.Label)
	assert.Equal(t, 15, result.Minutes)
	assert.InDelta(t, 100.0, result.Score.TotalScore, 1e-9)
	assert.Equal(t, "excellent", result.Grade)
	assert.Len(t, result.POIs["grocery"], 1)
}

func TestServer_Analyze_UpstreamFailure(t *testing.T) {
	reg, err := category.NewRegistry(category.Defaults())
	require.NoError(t, err)

	analyzer := analysis.New(&fakeRouting{err: assert.AnError}, &fakePOIs{}, reg)
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	rec := doJSON(newMux(analyzer, st), http.MethodPost, "/analyze", `{"lat": 51.5, "lon": 7.5}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_GetRun_NotFound(t *testing.T) {
	mux, _ := testMux(t, nil)

	rec := doJSON(mux, http.MethodGet, "/runs/no-such-run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run not found", resp["error"])
}

func TestServer_SaveAndFetchRun(t *testing.T) {
	mux, _ := testMux(t, []aggregate.RawElement{
		{ID: "1", Kind: aggregate.KindPoint, Coord: geom.Coord{7.5, 51.5}, Tags: map[string]string{"shop": "supermarket"}},
	})

	rec := doJSON(mux, http.MethodPost, "/analyze", `{"lat": 51.5, "lon": 7.5, "label": "Hiltrup", "save": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var saved analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	rec = doJSON(mux, http.MethodGet, "/runs/"+saved.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, saved.ID, fetched.ID)
	assert.Equal(t, "Hiltrup", fetched.Label)
}

func TestServer_ListRuns(t *testing.T) {
	mux, _ := testMux(t, nil)

	for _, label := range []string{"Centrum", "Hiltrup"} {
		rec := doJSON(mux, http.MethodPost, "/analyze", `{"lat": 51.5, "lon": 7.5, "label": "`+label+`", "save": true}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(mux, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = doJSON(mux, http.MethodGet, "/runs?label=Hiltrup", "")
	require.Equal(t, http.StatusOK, rec.Code)

	runs = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "Hiltrup", runs[0].Label)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 200, map[string]string{"status": "ok"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHTTPError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpError(rec, 404, "run not found")

	assert.Equal(t, 404, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run not found", body["error"])
}
