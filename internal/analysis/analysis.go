// Package analysis orchestrates a full walkability run: isochrone, POI
// fetch, aggregation and scoring.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanmetric/walkability-cli/internal/aggregate"
	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
	"github.com/urbanmetric/walkability-cli/internal/routing"
	"github.com/urbanmetric/walkability-cli/internal/score"
)

// DefaultMinutes is the walking range used when a request does not set one.
const DefaultMinutes = 15

// POISource fetches raw map elements matching tag rules within an area.
type POISource interface {
	Fetch(ctx context.Context, area *geometry.Area, rules []category.TagRule) ([]aggregate.RawElement, error)
}

// Request describes one analysis run.
type Request struct {
	Origin     geom.Coord // (lon, lat)
	Label      string
	Minutes    int
	Categories []string
}

// Normalize fills in defaults: a 15 minute range and the standard category
// set.
func (r *Request) Normalize() {
	if r.Minutes <= 0 {
		r.Minutes = DefaultMinutes
	}
	if len(r.Categories) == 0 {
		r.Categories = category.DefaultNames()
	}
}

// Result is a completed analysis.
type Result struct {
	ID          uuid.UUID                  `json:"id"`
	Label       string                     `json:"label,omitempty"`
	Origin      []float64                  `json:"origin"`
	Minutes     int                        `json:"minutes"`
	Categories  []string                   `json:"categories"`
	Area        *geometry.Area             `json:"-"`
	POIs        map[string][]aggregate.POI `json:"pois"`
	Score       *score.Scorecard           `json:"score"`
	Grade       string                     `json:"grade"`
	Suggestions []string                   `json:"suggestions,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// Analyzer wires the routing service, the POI source and the category
// registry into a single Run entry point.
type Analyzer struct {
	routing  routing.Service
	pois     POISource
	registry *category.Registry
}

// New creates an Analyzer.
func New(rs routing.Service, pois POISource, reg *category.Registry) *Analyzer {
	return &Analyzer{routing: rs, pois: pois, registry: reg}
}

// Run executes a full analysis for the request.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Result, error) {
	req.Normalize()
	if len(req.Origin) < 2 {
		return nil, eris.New("analysis: origin must have lon and lat")
	}

	log := zap.L().With(
		zap.String("label", req.Label),
		zap.Int("minutes", req.Minutes),
	)
	log.Info("starting analysis",
		zap.Float64("lon", req.Origin.X()),
		zap.Float64("lat", req.Origin.Y()),
		zap.Strings("categories", req.Categories))

	area, err := a.routing.Isochrone(ctx, req.Origin, req.Minutes)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: isochrone")
	}

	rules := a.rulesFor(req.Categories)
	elements, err := a.pois.Fetch(ctx, area, rules)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: fetch elements")
	}
	log.Debug("fetched elements", zap.Int("count", len(elements)))

	pois, err := aggregate.Aggregate(elements, area, req.Categories, a.registry)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: aggregate")
	}

	card, err := score.Compute(aggregate.Counts(pois), req.Categories, a.registry)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: score")
	}

	result := &Result{
		ID:          uuid.New(),
		Label:       req.Label,
		Origin:      []float64{req.Origin.X(), req.Origin.Y()},
		Minutes:     req.Minutes,
		Categories:  req.Categories,
		Area:        area,
		POIs:        pois,
		Score:       card,
		Grade:       score.Grade(card.TotalScore),
		Suggestions: suggestions(card),
		CreatedAt:   time.Now().UTC(),
	}

	log.Info("analysis complete",
		zap.String("id", result.ID.String()),
		zap.Float64("total_score", card.TotalScore),
		zap.String("grade", result.Grade))
	return result, nil
}

// rulesFor collects the tag rules of the requested categories. Unknown
// names are ignored here; the aggregation step reports them.
func (a *Analyzer) rulesFor(requested []string) []category.TagRule {
	var rules []category.TagRule
	for _, name := range requested {
		cfg, err := a.registry.Lookup(name)
		if err != nil {
			continue
		}
		rules = append(rules, cfg.Rules...)
	}
	return rules
}

// suggestions lists the categories that have not met their minimum count.
func suggestions(card *score.Scorecard) []string {
	var out []string
	for _, cs := range card.Categories {
		if cs.Count >= cs.MinCount {
			continue
		}
		missing := cs.MinCount - cs.Count
		if missing == 1 {
			out = append(out, fmt.Sprintf("%s: 1 more facility needed", cs.Category))
		} else {
			out = append(out, fmt.Sprintf("%s: %d more facilities needed", cs.Category, missing))
		}
	}
	return out
}
