package landmass

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFormat is returned for dataset files that are neither
// shapefiles nor GeoJSON.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// DatasetError wraps any failure to open or parse a land dataset.
type DatasetError struct {
	Err  error
	Path string
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("land dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }

// Load reads land polygons from a shapefile (.shp) or GeoJSON (.geojson, .json)
// file. Coordinates are kept in (lon, lat) order.
func Load(path string) ([]orb.Polygon, error) {
	var (
		polys []orb.Polygon
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		polys, err = loadShapefile(path)
	case ".geojson", ".json":
		polys, err = loadGeoJSON(path)
	default:
		err = ErrUnsupportedFormat
	}

	if err != nil {
		return nil, &DatasetError{Path: path, Err: err}
	}

	log.Debug().
		Str("path", path).
		Int("polygons", len(polys)).
		Msg("Land dataset loaded")

	return polys, nil
}

func loadShapefile(path string) ([]orb.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	var polys []orb.Polygon
	for reader.Next() {
		n, shape := reader.Shape()

		var parts []int32
		var points []shp.Point
		switch s := shape.(type) {
		case *shp.Polygon:
			parts, points = s.Parts, s.Points
		case *shp.PolygonZ:
			parts, points = s.Parts, s.Points
		case *shp.PolygonM:
			parts, points = s.Parts, s.Points
		case *shp.Null:
			continue
		default:
			return nil, fmt.Errorf("shape %d: unexpected type %T", n, shape)
		}

		polys = append(polys, shapeRings(parts, points)...)
	}

	if err := reader.Err(); err != nil {
		return nil, err
	}

	return polys, nil
}

// shapeRings splits a shapefile polygon record into orb polygons.
// Shapefile shells are clockwise and holes counter-clockwise; a hole
// belongs to the shell preceding it.
func shapeRings(parts []int32, points []shp.Point) []orb.Polygon {
	var polys []orb.Polygon

	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}

		if ring.Orientation() == orb.CW || len(polys) == 0 {
			polys = append(polys, orb.Polygon{ring})
			continue
		}

		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}

	return polys
}

func loadGeoJSON(path string) ([]orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var polys []orb.Polygon
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			polys = appendGeometry(polys, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		polys = appendGeometry(polys, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		polys = appendGeometry(polys, g.Geometry())
	}

	return polys, nil
}

// appendGeometry keeps areal geometries and ignores points and lines.
func appendGeometry(polys []orb.Polygon, g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return append(polys, v)
	case orb.MultiPolygon:
		return append(polys, v...)
	case orb.Collection:
		for _, child := range v {
			polys = appendGeometry(polys, child)
		}
	}

	return polys
}
