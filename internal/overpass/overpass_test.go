package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/urbanmetric/walkability-cli/internal/aggregate"
	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/config"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
)

func testArea() *geometry.Area {
	return &geometry.Area{
		Origin:  geom.Coord{7.5, 51.5},
		Minutes: 15,
		Ring: []geom.Coord{
			{7.0, 51.0}, {8.0, 51.0}, {8.0, 52.0}, {7.0, 52.0}, {7.0, 51.0},
		},
	}
}

func TestBuildQuery(t *testing.T) {
	rules := []category.TagRule{
		{Key: "shop", Value: "supermarket"},
		{Key: "amenity", Value: "pharmacy"},
	}
	bbox := geometry.BBox{South: 51.0, West: 7.0, North: 52.0, East: 8.0}

	query := BuildQuery(rules, bbox, 25)

	assert.Contains(t, query, "[out:json][timeout:25];(")
	assert.Contains(t, query, `node["shop"="supermarket"](51.0000000,7.0000000,52.0000000,8.0000000);`)
	assert.Contains(t, query, `way["shop"="supermarket"](51.0000000,7.0000000,52.0000000,8.0000000);`)
	assert.Contains(t, query, `node["amenity"="pharmacy"]`)
	assert.Contains(t, query, ");out center meta;")
}

func TestBuildQuery_Wildcard(t *testing.T) {
	rules := []category.TagRule{{Key: "healthcare", Value: category.Wildcard}}
	bbox := geometry.BBox{South: 51.0, West: 7.0, North: 52.0, East: 8.0}

	query := BuildQuery(rules, bbox, 25)

	assert.Contains(t, query, `node["healthcare"](`)
	assert.NotContains(t, query, `"*"`)
}

func TestClient_Fetch(t *testing.T) {
	var gotContentType, gotData string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotData = r.PostFormValue("data")

		_, _ = w.Write([]byte(`{
			"elements": [
				{"type": "node", "id": 101, "lat": 51.5, "lon": 7.5,
				 "tags": {"shop": "supermarket", "name": "Edeka"}},
				{"type": "way", "id": 202, "center": {"lat": 51.6, "lon": 7.6},
				 "tags": {"amenity": "school"}},
				{"type": "way", "id": 303,
				 "tags": {"amenity": "pharmacy"}},
				{"type": "area", "id": 404, "tags": {"amenity": "bank"}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(config.OverpassConfig{
		URL:              server.URL,
		TimeoutSecs:      5,
		QueryTimeoutSecs: 25,
		RatePerSec:       100,
	})

	rules := []category.TagRule{{Key: "shop", Value: "supermarket"}}
	elements, err := client.Fetch(context.Background(), testArea(), rules)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Contains(t, gotData, `node["shop"="supermarket"]`)

	// The unknown "area" type is skipped; the way without a center is kept
	// with an empty coordinate.
	require.Len(t, elements, 3)

	assert.Equal(t, "101", elements[0].ID)
	assert.Equal(t, aggregate.KindPoint, elements[0].Kind)
	assert.Equal(t, geom.Coord{7.5, 51.5}, elements[0].Coord)
	assert.Equal(t, "Edeka", elements[0].Tags["name"])

	assert.Equal(t, "202", elements[1].ID)
	assert.Equal(t, aggregate.KindAreaCentroid, elements[1].Kind)
	assert.Equal(t, geom.Coord{7.6, 51.6}, elements[1].Coord)

	assert.Equal(t, "303", elements[2].ID)
	assert.Empty(t, elements[2].Coord)
}

func TestClient_Fetch_NoRules(t *testing.T) {
	client := NewClient(config.OverpassConfig{URL: "http://unused.invalid", RatePerSec: 100})

	elements, err := client.Fetch(context.Background(), testArea(), nil)
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestClient_Fetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(config.OverpassConfig{URL: server.URL, RatePerSec: 100})
	rules := []category.TagRule{{Key: "shop", Value: "supermarket"}}

	_, err := client.Fetch(context.Background(), testArea(), rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_Fetch_MalformedArea(t *testing.T) {
	client := NewClient(config.OverpassConfig{URL: "http://unused.invalid", RatePerSec: 100})
	rules := []category.TagRule{{Key: "shop", Value: "supermarket"}}

	area := &geometry.Area{Origin: geom.Coord{7.5, 51.5}, Minutes: 15, Ring: nil}
	_, err := client.Fetch(context.Background(), area, rules)
	assert.Error(t, err)
}
