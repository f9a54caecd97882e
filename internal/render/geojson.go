package render

import (
	"encoding/json"
	"fmt"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/search"

	"gopkg.in/yaml.v3"
)

// ResultGeoJSON returns refs as "reference" points and, when the search
// found something, the best cell plus a line to its nearest reference.
func ResultGeoJSON(res search.Result, refs []Marker) geo.FeatureCollection {
	fc := geo.NewFeatureCollection()

	for _, r := range refs {
		props := map[string]interface{}{"role": "reference"}
		if r.Name != "" {
			props["name"] = r.Name
		}
		fc.Features = append(fc.Features, geo.PointFeature(r.Point, props))
	}

	if !res.Found {
		return fc
	}

	fc.Features = append(fc.Features,
		geo.PointFeature(res.Best, map[string]interface{}{
			"role":        "farthest",
			"distance_km": res.DistanceKm,
			"step":        res.Step,
		}),
		geo.LineFeature(res.Best, res.Nearest, map[string]interface{}{
			"role":        "nearest",
			"distance_km": res.DistanceKm,
		}),
	)

	return fc
}

// Encode serializes v as "json" (indented) or "yaml".
func Encode(v interface{}, format string) ([]byte, error) {
	switch format {
	case "json", "":
		return json.MarshalIndent(v, "", "  ")
	case "yaml":
		return yaml.Marshal(v)
	}

	return nil, fmt.Errorf("unsupported output format %q", format)
}
