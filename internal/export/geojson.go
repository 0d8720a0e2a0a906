// Package export renders analysis results to GeoJSON and XLSX files.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
)

// feature is a minimal GeoJSON feature.
type feature struct {
	Type       string         `json:"type"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// GeoJSON renders the result as a FeatureCollection: the reachable area
// polygon, the origin point and one point per POI.
func GeoJSON(result *analysis.Result) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection"}

	if result.Area != nil {
		ring := make([][]float64, 0, len(result.Area.Ring))
		for _, c := range result.Area.Ring {
			ring = append(ring, []float64{c.X(), c.Y()})
		}
		// GeoJSON polygons must be closed.
		if len(ring) > 0 && (ring[0][0] != ring[len(ring)-1][0] || ring[0][1] != ring[len(ring)-1][1]) {
			ring = append(ring, []float64{ring[0][0], ring[0][1]})
		}
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Geometry: map[string]any{
				"type":        "Polygon",
				"coordinates": [][][]float64{ring},
			},
			Properties: map[string]any{
				"kind":    "reachable-area",
				"minutes": result.Minutes,
			},
		})
	}

	fc.Features = append(fc.Features, feature{
		Type: "Feature",
		Geometry: map[string]any{
			"type":        "Point",
			"coordinates": result.Origin,
		},
		Properties: map[string]any{
			"kind":        "origin",
			"label":       result.Label,
			"total_score": result.Score.TotalScore,
			"grade":       result.Grade,
		},
	})

	for _, name := range result.Categories {
		for _, poi := range result.POIs[name] {
			if len(poi.Coord) < 2 {
				continue
			}
			fc.Features = append(fc.Features, feature{
				Type: "Feature",
				Geometry: map[string]any{
					"type":        "Point",
					"coordinates": []float64{poi.Coord.X(), poi.Coord.Y()},
				},
				Properties: map[string]any{
					"kind":     "poi",
					"id":       poi.ID,
					"name":     poi.Name,
					"category": poi.Category,
					"tag":      poi.MatchedTag,
				},
			})
		}
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal geojson")
	}
	return data, nil
}

// WriteGeoJSON renders the result and writes it to path.
func WriteGeoJSON(result *analysis.Result, path string) error {
	data, err := GeoJSON(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
