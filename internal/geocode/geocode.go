// Package geocode resolves place names and addresses to coordinates.
package geocode

import (
	"context"
	"sort"
	"strings"

	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Result is a resolved location.
type Result struct {
	Coord   geom.Coord // (lon, lat)
	Label   string
	Source  string
	Matched bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// DistrictProvider resolves well-known district names from a static table.
// It answers instantly and never needs the network, so it goes first in the
// cascade.
type DistrictProvider struct {
	districts map[string]geom.Coord
}

// muensterDistricts maps district names to their (lon, lat) centers.
var muensterDistricts = map[string]geom.Coord{
	"Centrum":     {7.6261347, 51.9606649},
	"Hiltrup":     {7.6333333, 51.8833333},
	"Kinderhaus":  {7.6166667, 51.9833333},
	"Gievenbeck":  {7.5833333, 51.9500000},
	"Mauritz":     {7.6500000, 51.9666667},
	"Roxel":       {7.5166667, 51.9333333},
	"Albachten":   {7.5333333, 51.9000000},
	"Gremmendorf": {7.7000000, 51.9333333},
	"Angelmodde":  {7.7000000, 51.9000000},
	"Wolbeck":     {7.7500000, 51.9000000},
	"Berg Fidel":  {7.6500000, 51.9333333},
	"Coerde":      {7.6000000, 52.0000000},
	"Handorf":     {7.7833333, 51.9666667},
	"Amelsbüren":  {7.5000000, 51.8833333},
	"Sprakel":     {7.5833333, 52.0166667},
}

// NewDistrictProvider creates a provider backed by the built-in district
// table.
func NewDistrictProvider() *DistrictProvider {
	return &DistrictProvider{districts: muensterDistricts}
}

// Name implements Provider.
func (p *DistrictProvider) Name() string { return "district" }

// Available implements Provider.
func (p *DistrictProvider) Available() bool { return true }

// Districts returns the known district names in sorted order.
func (p *DistrictProvider) Districts() []string {
	names := make([]string, 0, len(p.districts))
	for name := range p.districts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve implements Provider. Lookup is case-insensitive on the district
// name.
func (p *DistrictProvider) Resolve(_ context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	for name, coord := range p.districts {
		if strings.EqualFold(name, query) {
			return &Result{Coord: coord, Label: name, Source: "district", Matched: true}, nil
		}
	}
	return &Result{Source: "district", Matched: false}, nil
}

// Cascade tries providers in order until one returns a match.
type Cascade struct {
	providers []Provider
}

// NewCascade creates a Cascade over the given providers.
func NewCascade(providers ...Provider) *Cascade {
	return &Cascade{providers: providers}
}

// Resolve tries each provider in order. A provider error is logged and the
// next provider is tried; only an exhausted cascade returns unmatched.
func (c *Cascade) Resolve(ctx context.Context, query string) (*Result, error) {
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Resolve(ctx, query)
		if err != nil {
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
	}
	return &Result{Source: "cascade", Matched: false}, nil
}
