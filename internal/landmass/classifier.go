// Package landmass loads land polygons and classifies points as land or water.
package landmass

import (
	"fmt"

	"github.com/woozymasta/farpoint/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GeometryError reports a polygon that cannot be tested for containment.
type GeometryError struct {
	Reason string
	Index  int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("malformed polygon %d: %s", e.Index, e.Reason)
}

// worldBound makes malformed polygons candidates for every query so that
// the first classification reaching them fails loudly.
var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Classifier decides land versus water against a read-only polygon set.
// It is safe for concurrent use.
type Classifier struct {
	polys  []orb.Polygon
	bounds []orb.Bound
	broken []string
	zone   Zone
}

// NewClassifier borrows polys for its lifetime; the slice must not be mutated.
func NewClassifier(polys []orb.Polygon, zone Zone) *Classifier {
	c := &Classifier{
		polys:  polys,
		bounds: make([]orb.Bound, len(polys)),
		broken: make([]string, len(polys)),
		zone:   zone,
	}

	for i, p := range polys {
		if reason := malformed(p); reason != "" {
			c.broken[i] = reason
			c.bounds[i] = worldBound
			continue
		}
		c.bounds[i] = p[0].Bound()
	}

	return c
}

// Len returns the number of polygons.
func (c *Classifier) Len() int { return len(c.polys) }

// Zone returns the configured exclusion zone.
func (c *Classifier) Zone() Zone { return c.zone }

// IsLand reports whether p is inside or on the boundary of any polygon.
// Points inside the exclusion zone are water.
func (c *Classifier) IsLand(p geo.GeoPoint) (bool, error) {
	if c.zone.Contains(p) {
		return false, nil
	}

	pt := ToOrbPoint(p)
	for i, poly := range c.polys {
		if !c.bounds[i].Contains(pt) {
			continue
		}
		if c.broken[i] != "" {
			return false, &GeometryError{Index: i, Reason: c.broken[i]}
		}
		if polygonContains(poly, pt) {
			return true, nil
		}
	}

	return false, nil
}

// ToOrbPoint converts a GeoPoint to planar geometry coordinates.
// orb.Point is [lon, lat]; this is the only place the order is swapped.
func ToOrbPoint(p geo.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// polygonContains is planar.PolygonContains with hole edges counted as land:
// a point on a shoreline belongs to the polygon, including lake shores.
func polygonContains(poly orb.Polygon, pt orb.Point) bool {
	if !planar.RingContains(poly[0], pt) {
		return false
	}

	for _, hole := range poly[1:] {
		if planar.RingContains(hole, pt) && !onRing(hole, pt) {
			return false
		}
	}

	return true
}

func onRing(r orb.Ring, pt orb.Point) bool {
	for i := 1; i < len(r); i++ {
		if planar.DistanceFromSegmentSquared(r[i-1], r[i], pt) == 0 {
			return true
		}
	}
	return false
}

func malformed(p orb.Polygon) string {
	switch {
	case len(p) == 0:
		return "no rings"
	case len(p[0]) < 4:
		return fmt.Sprintf("shell has %d points, need at least 4", len(p[0]))
	case !p[0].Closed():
		return "shell is not closed"
	}

	return ""
}
