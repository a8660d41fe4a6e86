// Package zones holds the fixed, ordered set of named zones statistics are
// aggregated over.
//
// The identifier order of a Catalog never changes once it is built and is
// the column order of every table built from it.
package zones

import (
	"github.com/xtxerr/zonalseries/internal/logging"
)

var log = logging.Component("zones")

// Point is a map coordinate.
type Point struct {
	X, Y float64
}

// Ring is a closed sequence of points. The closing point may be omitted.
type Ring []Point

// Polygon is an outer ring followed by zero or more holes.
type Polygon []Ring

// Geometry is the opaque area handle consumed by aggregators.
type Geometry struct {
	Polygons []Polygon
}

// Contains reports whether (x, y) lies inside the geometry: inside an outer
// ring and outside all holes of the same polygon.
func (g Geometry) Contains(x, y float64) bool {
	for _, poly := range g.Polygons {
		if len(poly) == 0 || !poly[0].contains(x, y) {
			continue
		}
		inHole := false
		for _, hole := range poly[1:] {
			if hole.contains(x, y) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Bounds returns the bounding box of every outer ring.
func (g Geometry) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	for _, poly := range g.Polygons {
		if len(poly) == 0 {
			continue
		}
		for _, p := range poly[0] {
			if !ok {
				minX, minY, maxX, maxY, ok = p.X, p.Y, p.X, p.Y, true
				continue
			}
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}
	}
	return minX, minY, maxX, maxY, ok
}

// contains is the even-odd ray casting test.
func (r Ring) contains(x, y float64) bool {
	n := len(r)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := r[i], r[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Zone is a named area.
type Zone struct {
	ID       string
	Geometry Geometry
}

// Catalog is an ordered, de-duplicated zone set.
type Catalog struct {
	zones []Zone
	ids   []string
	index map[string]int
}

// New builds a catalog from zones in the given order. When an identifier
// appears more than once the first zone wins.
func New(zs ...Zone) *Catalog {
	c := &Catalog{
		zones: make([]Zone, 0, len(zs)),
		ids:   make([]string, 0, len(zs)),
		index: make(map[string]int, len(zs)),
	}

	for _, z := range zs {
		if _, dup := c.index[z.ID]; dup {
			log.Warn("duplicate zone dropped", "zone", z.ID)
			continue
		}
		c.index[z.ID] = len(c.zones)
		c.zones = append(c.zones, z)
		c.ids = append(c.ids, z.ID)
	}

	return c
}

// IDs returns the zone identifiers in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Zones returns the zones in catalog order.
func (c *Catalog) Zones() []Zone {
	return append([]Zone(nil), c.zones...)
}

// Len returns the number of zones.
func (c *Catalog) Len() int {
	return len(c.zones)
}

// Index returns the column position of id.
func (c *Catalog) Index(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}
