// Package routing computes walking isochrones via the openrouteservice API.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanmetric/walkability-cli/internal/config"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
)

// ErrNoArea indicates the routing service returned no reachable area for
// the requested origin, typically because the point is not near any
// routable edge.
var ErrNoArea = eris.New("routing: no reachable area for origin")

// Service produces a walkable area around an origin point.
type Service interface {
	// Isochrone returns the area reachable on foot from origin within the
	// given number of minutes. Origin is (lon, lat).
	Isochrone(ctx context.Context, origin geom.Coord, minutes int) (*geometry.Area, error)

	// Ping verifies the service is reachable and credentials are accepted.
	Ping(ctx context.Context) error
}

// ORSClient talks to an openrouteservice instance.
type ORSClient struct {
	baseURL    string
	apiKey     string
	profile    string
	httpClient *http.Client
}

var _ Service = (*ORSClient)(nil)

// NewORSClient builds a client from routing configuration.
func NewORSClient(cfg config.RoutingConfig) *ORSClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ORSClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		profile:    cfg.Profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// isochroneRequest is the openrouteservice isochrone request body.
type isochroneRequest struct {
	Locations [][]float64 `json:"locations"`
	Range     []int       `json:"range"`
	RangeType string      `json:"range_type"`
}

// isochroneResponse is the GeoJSON FeatureCollection returned by the API.
type isochroneResponse struct {
	Features []struct {
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (c *ORSClient) Isochrone(ctx context.Context, origin geom.Coord, minutes int) (*geometry.Area, error) {
	if len(origin) < 2 {
		return nil, eris.New("routing: origin must have lon and lat")
	}
	if minutes <= 0 {
		return nil, eris.Errorf("routing: invalid range %d minutes", minutes)
	}

	reqBody := isochroneRequest{
		Locations: [][]float64{{origin.X(), origin.Y()}},
		Range:     []int{minutes * 60},
		RangeType: "time",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "routing: marshal request")
	}

	reqURL := c.baseURL + "/v2/isochrones/" + c.profile
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "routing: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	zap.L().Debug("requesting isochrone",
		zap.Float64("lon", origin.X()),
		zap.Float64("lat", origin.Y()),
		zap.Int("minutes", minutes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "routing: isochrone request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "routing: read body")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, eris.Errorf("routing: authentication failed (status %d)", resp.StatusCode)
	case http.StatusNotFound:
		return nil, ErrNoArea
	default:
		return nil, eris.Errorf("routing: isochrone returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var isoResp isochroneResponse
	if err := json.Unmarshal(body, &isoResp); err != nil {
		return nil, eris.Wrap(err, "routing: parse response")
	}
	if len(isoResp.Features) == 0 {
		return nil, ErrNoArea
	}

	feat := isoResp.Features[0]
	if feat.Geometry.Type != "Polygon" || len(feat.Geometry.Coordinates) == 0 {
		return nil, eris.Errorf("routing: unexpected geometry type %q", feat.Geometry.Type)
	}

	// Outer ring only; isochrone polygons have no holes in practice.
	outer := feat.Geometry.Coordinates[0]
	ring := make([]geom.Coord, 0, len(outer))
	for _, pos := range outer {
		if len(pos) < 2 {
			return nil, eris.New("routing: malformed ring coordinate")
		}
		ring = append(ring, geom.Coord{pos[0], pos[1]})
	}

	area := &geometry.Area{
		Origin:  origin,
		Minutes: minutes,
		Ring:    ring,
	}
	if err := area.Validate(); err != nil {
		return nil, eris.Wrap(err, "routing: isochrone ring")
	}
	return area, nil
}

// Ping issues a minimal isochrone request for a known-routable point to
// confirm connectivity and credentials.
func (c *ORSClient) Ping(ctx context.Context) error {
	_, err := c.Isochrone(ctx, geom.Coord{7.6261, 51.9607}, 1)
	if err != nil && !eris.Is(err, ErrNoArea) {
		return err
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
