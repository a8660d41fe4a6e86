package zones

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/validation"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any `json:"properties"`
	Geometry   *geometry      `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadGeoJSON reads a FeatureCollection and names each zone after the
// nameProperty feature property. Only Polygon and MultiPolygon features are
// accepted; coordinates are used as-is, without reprojection.
func LoadGeoJSON(path, nameProperty string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}

	c, err := ParseGeoJSON(data, nameProperty)
	if err != nil {
		return nil, fmt.Errorf("zones %s: %w", path, err)
	}

	log.Info("zone catalog loaded", "path", path, "zones", c.Len())
	return c, nil
}

// ParseGeoJSON decodes a FeatureCollection document. See LoadGeoJSON.
func ParseGeoJSON(data []byte, nameProperty string) (*Catalog, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", errors.Join(errors.ErrConfiguration, err))
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q: %w", fc.Type, errors.ErrConfiguration)
	}

	zs := make([]Zone, 0, len(fc.Features))
	for i, f := range fc.Features {
		raw, ok := f.Properties[nameProperty]
		if !ok || raw == nil {
			return nil, fmt.Errorf("feature %d has no %q property: %w", i, nameProperty, errors.ErrConfiguration)
		}
		id := fmt.Sprint(raw)
		if err := validation.ValidateZoneID(id); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %q has no geometry: %w", id, errors.ErrConfiguration)
		}
		geom, err := decodeGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", id, err)
		}

		zs = append(zs, Zone{ID: id, Geometry: geom})
	}

	return New(zs...), nil
}

func decodeGeometry(g *geometry) (Geometry, error) {
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return Geometry{}, fmt.Errorf("polygon coordinates: %w", errors.Join(errors.ErrConfiguration, err))
		}
		p, err := toPolygon(coords)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{Polygons: []Polygon{p}}, nil

	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return Geometry{}, fmt.Errorf("multipolygon coordinates: %w", errors.Join(errors.ErrConfiguration, err))
		}
		polys := make([]Polygon, 0, len(coords))
		for _, pc := range coords {
			p, err := toPolygon(pc)
			if err != nil {
				return Geometry{}, err
			}
			polys = append(polys, p)
		}
		return Geometry{Polygons: polys}, nil

	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %q: %w", g.Type, errors.ErrConfiguration)
	}
}

func toPolygon(rings [][][]float64) (Polygon, error) {
	p := make(Polygon, 0, len(rings))
	for _, rc := range rings {
		r := make(Ring, 0, len(rc))
		for _, pos := range rc {
			if len(pos) < 2 {
				return nil, fmt.Errorf("position with %d coordinates: %w", len(pos), errors.ErrConfiguration)
			}
			r = append(r, Point{X: pos[0], Y: pos[1]})
		}
		p = append(p, r)
	}
	return p, nil
}
