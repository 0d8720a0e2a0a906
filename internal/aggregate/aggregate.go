// Package aggregate turns raw map elements into a classified,
// deduplicated POI collection per service category, filtered to a
// travel-time area.
package aggregate

import (
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanmetric/walkability-cli/internal/category"
	"github.com/urbanmetric/walkability-cli/internal/classify"
	"github.com/urbanmetric/walkability-cli/internal/geometry"
)

// UnnamedPOI is the name recorded for elements without a name tag.
const UnnamedPOI = "unnamed"

// ElementKind distinguishes how an element's representative point was
// obtained.
type ElementKind string

const (
	// KindPoint is an element that is itself a point.
	KindPoint ElementKind = "point"
	// KindAreaCentroid is an area element represented by its centroid.
	KindAreaCentroid ElementKind = "area-with-centroid"
)

// RawElement is one unclassified candidate from the map-data source.
// Coord is the resolved representative point; a Coord with fewer than
// two ordinates means the element could not be resolved and will be
// dropped with a diagnostic.
type RawElement struct {
	ID    string
	Kind  ElementKind
	Coord geom.Coord
	Tags  map[string]string
}

// resolved reports whether the element carries a usable representative
// point.
func (e RawElement) resolved() bool {
	return len(e.Coord) >= 2
}

// POI is a raw element confirmed inside the travel-time area and
// assigned to exactly one category.
type POI struct {
	ID         string      `json:"id"`
	Kind       ElementKind `json:"kind"`
	Coord      geom.Coord  `json:"coord"`
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	MatchedTag string      `json:"matched_tag"`
}

// dedupKey identifies an element across overlapping queries. Keyed on
// (kind, id) rather than id alone: some sources issue the same numeric
// id for both a point and an area record.
type dedupKey struct {
	kind ElementKind
	id   string
}

// Aggregate classifies and filters elements into per-category POI
// lists. The returned map has exactly the requested category names as
// keys (empty lists for categories with no matches). Within each list
// elements keep the order in which they appeared in elements. The call
// is pure: identical inputs always yield identical output, and no state
// is shared between calls.
//
// Requested names missing from the registry contribute an empty list
// and a diagnostic; they never fail the batch. A malformed area fails
// the whole aggregation.
func Aggregate(elements []RawElement, area *geometry.Area, requested []string, reg *category.Registry) (map[string][]POI, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}

	log := zap.L()

	// Resolve the requested names once, keeping the caller's order for
	// first-match-wins classification.
	ordered := make([]category.Config, 0, len(requested))
	for _, name := range requested {
		cfg, err := reg.Lookup(name)
		if err != nil {
			log.Warn("skipping unknown category", zap.String("category", name))
			continue
		}
		ordered = append(ordered, cfg)
	}

	grouped := make(map[string][]POI, len(requested))
	for _, name := range requested {
		grouped[name] = []POI{}
	}

	seen := make(map[dedupKey]bool, len(elements))
	dropped := 0
	for _, el := range elements {
		if !el.resolved() {
			dropped++
			log.Debug("dropping unresolvable element",
				zap.String("id", el.ID),
				zap.String("kind", string(el.Kind)),
			)
			continue
		}
		if !geometry.Contains(area.Ring, el.Coord) {
			continue
		}

		match, ok := classify.First(el.Tags, ordered)
		if !ok {
			continue
		}

		key := dedupKey{kind: el.Kind, id: el.ID}
		if seen[key] {
			continue
		}
		seen[key] = true

		name := el.Tags["name"]
		if name == "" {
			name = UnnamedPOI
		}

		grouped[match.Category] = append(grouped[match.Category], POI{
			ID:         el.ID,
			Kind:       el.Kind,
			Coord:      el.Coord,
			Name:       name,
			Category:   match.Category,
			MatchedTag: match.Tag,
		})
	}

	if dropped > 0 {
		log.Debug("aggregation dropped unresolvable elements", zap.Int("count", dropped))
	}
	return grouped, nil
}

// Counts reduces grouped POIs to per-category counts.
func Counts(grouped map[string][]POI) map[string]int {
	counts := make(map[string]int, len(grouped))
	for name, pois := range grouped {
		counts[name] = len(pois)
	}
	return counts
}
