// Package overpass fetches OpenStreetMap elements through the Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbanmetric/walkability-cli/internal/aggregate"
	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/config"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
)

// Client queries an Overpass API endpoint.
type Client struct {
	url          string
	queryTimeout int
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient builds a rate-limited Overpass client.
func NewClient(cfg config.OverpassConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	queryTimeout := cfg.QueryTimeoutSecs
	if queryTimeout <= 0 {
		queryTimeout = 25
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 0.5
	}
	return &Client{
		url:          cfg.URL,
		queryTimeout: queryTimeout,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// BuildQuery assembles an Overpass QL query selecting every node and way
// matching any of the given tag rules inside bbox. Wildcard rules select on
// key presence alone.
func BuildQuery(rules []category.TagRule, bbox geometry.BBox, timeoutSecs int) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:")
	b.WriteString(strconv.Itoa(timeoutSecs))
	b.WriteString("];(")

	box := bbox.String()
	for _, rule := range rules {
		var selector string
		if rule.Value == category.Wildcard {
			selector = `["` + rule.Key + `"]`
		} else {
			selector = `["` + rule.Key + `"="` + rule.Value + `"]`
		}
		b.WriteString("node")
		b.WriteString(selector)
		b.WriteString("(")
		b.WriteString(box)
		b.WriteString(");")
		b.WriteString("way")
		b.WriteString(selector)
		b.WriteString("(")
		b.WriteString(box)
		b.WriteString(");")
	}

	b.WriteString(");out center meta;")
	return b.String()
}

// element is one entry of the Overpass JSON "elements" array.
type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *elementCenter    `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type elementCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type queryResponse struct {
	Elements []element `json:"elements"`
}

// Fetch runs a tag query over the bounding box of area and returns the raw
// elements. Membership in the area itself is the aggregation pipeline's job;
// the bbox only narrows the search.
func (c *Client) Fetch(ctx context.Context, area *geometry.Area, rules []category.TagRule) ([]aggregate.RawElement, error) {
	if err := area.Validate(); err != nil {
		return nil, eris.Wrap(err, "overpass: area")
	}
	if len(rules) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	bbox, err := geometry.BoundingBox(area.Ring)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: bounding box")
	}

	query := BuildQuery(rules, bbox, c.queryTimeout)
	zap.L().Debug("overpass query", zap.Int("rules", len(rules)), zap.String("query", query))

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, eris.New("overpass: rate limited by server")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	return decodeElements(qr.Elements), nil
}

// decodeElements converts Overpass elements into raw pipeline elements.
// Nodes carry their own position; ways carry a computed center. Elements
// without a resolvable position are kept with an empty coordinate so the
// pipeline can account for dropping them.
func decodeElements(elems []element) []aggregate.RawElement {
	out := make([]aggregate.RawElement, 0, len(elems))
	for _, el := range elems {
		raw := aggregate.RawElement{
			ID:   strconv.FormatInt(el.ID, 10),
			Tags: el.Tags,
		}
		switch el.Type {
		case "node":
			raw.Kind = aggregate.KindPoint
			raw.Coord = geom.Coord{el.Lon, el.Lat}
		case "way", "relation":
			raw.Kind = aggregate.KindAreaCentroid
			if el.Center != nil {
				raw.Coord = geom.Coord{el.Center.Lon, el.Center.Lat}
			}
		default:
			zap.L().Debug("skipping unknown element type", zap.String("type", el.Type))
			continue
		}
		out = append(out, raw)
	}
	return out
}
