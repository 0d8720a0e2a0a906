package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/geocode"
	"github.com/urbanmetric/walkability-cli/internal/overpass"
	"github.com/urbanmetric/walkability-cli/internal/routing"
	"github.com/urbanmetric/walkability-cli/internal/store"
)

// loadRegistry builds the category registry from config: a YAML file when
// one is configured, the built-in set otherwise.
func loadRegistry() (*category.Registry, error) {
	if cfg.Categories.File != "" {
		configs, err := category.LoadFile(cfg.Categories.File)
		if err != nil {
			return nil, err
		}
		return category.NewRegistry(configs)
	}

	configs := category.Defaults()
	if cfg.Categories.Extended {
		configs = append(configs, category.Extended()...)
	}
	return category.NewRegistry(configs)
}

// initAnalyzer wires the routing client, the Overpass client and the
// registry into an Analyzer.
func initAnalyzer() (*analysis.Analyzer, *category.Registry, error) {
	if cfg.Routing.APIKey == "" {
		return nil, nil, eris.New("routing API key not set (WALK_ROUTING_API_KEY)")
	}

	reg, err := loadRegistry()
	if err != nil {
		return nil, nil, err
	}

	ors := routing.NewORSClient(cfg.Routing)
	ovp := overpass.NewClient(cfg.Overpass)
	return analysis.New(ors, ovp, reg), reg, nil
}

// initStore opens the configured run store and migrates it.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// newGeocoder builds the resolution cascade: district presets first, then
// Nominatim.
func newGeocoder() *geocode.Cascade {
	return geocode.NewCascade(
		geocode.NewDistrictProvider(),
		geocode.NewNominatimProvider(cfg.Nominatim),
	)
}

// resolveOrigin turns the analyze flags into an origin coordinate and a
// label. Exactly one of coordinates, district or address must be given.
func resolveOrigin(ctx context.Context, lat, lon float64, district, address string) (geom.Coord, string, error) {
	hasCoords := lat != 0 || lon != 0

	given := 0
	if hasCoords {
		given++
	}
	if district != "" {
		given++
	}
	if address != "" {
		given++
	}
	if given == 0 {
		return nil, "", eris.New("one of --lat/--lon, --district or --address is required")
	}
	if given > 1 {
		return nil, "", eris.New("--lat/--lon, --district and --address are mutually exclusive")
	}

	if hasCoords {
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, "", eris.Errorf("coordinates out of range: lat=%f lon=%f", lat, lon)
		}
		return geom.Coord{lon, lat}, "", nil
	}

	query := district
	if address != "" {
		query = address
	}

	result, err := newGeocoder().Resolve(ctx, query)
	if err != nil {
		return nil, "", eris.Wrap(err, "resolve origin")
	}
	if !result.Matched {
		return nil, "", eris.Errorf("could not resolve %q to a location", query)
	}

	label := result.Label
	if district != "" {
		label = district
	}
	return result.Coord, label, nil
}

// splitCategories parses a comma-separated category list.
func splitCategories(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
