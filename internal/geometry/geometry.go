// Package geometry provides the point-in-polygon membership test and
// bounding-box extraction used to filter map elements against a
// travel-time area. It is deliberately minimal: the polygon itself is
// computed by an external routing service.
package geometry

import (
	"fmt"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// ErrMalformedGeometry indicates a travel-time area that is missing,
// empty, or not a simple single polygon. Fatal to the analysis.
var ErrMalformedGeometry = eris.New("geometry: malformed travel-time area")

// Area is a travel-time polygon: the closed outer ring of all points
// reachable within Minutes of walking from Origin. Holes are not
// supported. Coordinates are WGS84 (lng, lat).
type Area struct {
	Origin  geom.Coord   `json:"origin"`
	Minutes int          `json:"minutes"`
	Ring    []geom.Coord `json:"ring"`
}

// Validate checks that the area carries a usable polygon ring.
func (a *Area) Validate() error {
	if a == nil || len(a.Ring) == 0 {
		return eris.Wrap(ErrMalformedGeometry, "empty ring")
	}
	if distinctVertices(a.Ring) < 3 {
		return eris.Wrapf(ErrMalformedGeometry, "ring has %d distinct vertices", distinctVertices(a.Ring))
	}
	for i, c := range a.Ring {
		if len(c) < 2 {
			return eris.Wrapf(ErrMalformedGeometry, "vertex %d has no lng/lat", i)
		}
	}
	return nil
}

// distinctVertices counts ring vertices ignoring an explicit closing
// vertex that repeats the first.
func distinctVertices(ring []geom.Coord) int {
	n := len(ring)
	if n > 1 && len(ring[0]) >= 2 && len(ring[n-1]) >= 2 &&
		ring[0][0] == ring[n-1][0] && ring[0][1] == ring[n-1][1] {
		n--
	}
	return n
}

// BBox is an axis-aligned geographic bounding box.
type BBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// String renders the box in south,west,north,east order.
func (b BBox) String() string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", b.South, b.West, b.North, b.East)
}

// BoundingBox returns the axis-aligned min/max of the ring's latitudes
// and longitudes. It is the coarse pre-filter used to scope the map
// data query before exact containment testing.
func BoundingBox(ring []geom.Coord) (BBox, error) {
	if len(ring) == 0 {
		return BBox{}, eris.Wrap(ErrMalformedGeometry, "empty ring")
	}
	b := BBox{
		South: ring[0][1], West: ring[0][0],
		North: ring[0][1], East: ring[0][0],
	}
	for _, c := range ring {
		if len(c) < 2 {
			return BBox{}, eris.Wrap(ErrMalformedGeometry, "vertex has no lng/lat")
		}
		lng, lat := c[0], c[1]
		if lat < b.South {
			b.South = lat
		}
		if lat > b.North {
			b.North = lat
		}
		if lng < b.West {
			b.West = lng
		}
		if lng > b.East {
			b.East = lng
		}
	}
	return b, nil
}

// Contains reports whether the point lies strictly inside the ring,
// using an even-odd ray cast. Works for both clockwise and
// counter-clockwise vertex ordering.
//
// Boundary convention: points exactly on a ring edge or vertex are
// OUTSIDE. The convention is fixed so counts near the area boundary
// stay stable across runs.
func Contains(ring []geom.Coord, point geom.Coord) bool {
	n := len(ring)
	if n < 3 || len(point) < 2 {
		return false
	}

	px, py := point[0], point[1]

	// Boundary check first: on-edge points are excluded.
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(ring[j], ring[i], px, py) {
			return false
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > py) != (yj > py) {
			cross := xi + (py-yi)/(yj-yi)*(xj-xi)
			if px < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether (px,py) lies on the segment a-b.
func onSegment(a, b geom.Coord, px, py float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	ax, ay := a[0], a[1]
	bx, by := b[0], b[1]

	// Degenerate segment: a repeated vertex.
	if ax == bx && ay == by {
		return px == ax && py == ay
	}

	cross := (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	if cross != 0 {
		return false
	}
	return min(ax, bx) <= px && px <= max(ax, bx) &&
		min(ay, by) <= py && py <= max(ay, by)
}
