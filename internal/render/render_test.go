package render

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/landmask"
	"github.com/woozymasta/farpoint/internal/search"

	"github.com/chai2010/webp"
	"gopkg.in/yaml.v3"
)

var testGrid = geo.Grid{North: 10, South: -10, West: 0, East: 30}

func TestMaskImage(t *testing.T) {
	ctx := context.Background()
	store := landmask.NewMemoryStore()

	// row 0 (lat 10) fully known, row 1 (lat 0) partially, row 2 missing
	north := map[int32]bool{}
	for j := 0; j < testGrid.Cols(10); j++ {
		north[geo.FixedDegrees(testGrid.Lon(j, 10))] = j%2 == 0
	}
	if err := store.SaveRow(ctx, 10, geo.FixedDegrees(10), north); err != nil {
		t.Fatalf("SaveRow failed: %v", err)
	}
	if err := store.SaveRow(ctx, 10, 0, map[int32]bool{geo.FixedDegrees(20): false}); err != nil {
		t.Fatalf("SaveRow failed: %v", err)
	}

	img, err := MaskImage(ctx, store, 10, testGrid)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("Expected 4x3 image, got %dx%d", b.Dx(), b.Dy())
	}

	want := [3][4]uint8{
		{Land, Water, Land, Water},
		{Unknown, Unknown, Water, Unknown},
		{Unknown, Unknown, Unknown, Unknown},
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if got := img.ColorIndexAt(x, y); got != want[y][x] {
				t.Errorf("Pixel %d,%d: expected %d, got %d", x, y, want[y][x], got)
			}
		}
	}
}

func TestMaskImageEmptyGrid(t *testing.T) {
	_, err := MaskImage(context.Background(), landmask.NewMemoryStore(), 10, geo.Grid{North: 0, South: 10})
	if err == nil {
		t.Error("Expected error for empty grid")
	}
}

func TestWriteWebP(t *testing.T) {
	img, err := MaskImage(context.Background(), landmask.NewMemoryStore(), 10, testGrid)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteWebP(&buf, img, 40); err != nil {
		t.Fatalf("WriteWebP failed: %v", err)
	}

	cfg, err := webp.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("Expected 40x30, got %dx%d", cfg.Width, cfg.Height)
	}
}

var (
	testRefs = []Marker{
		{Name: "Porto", Point: geo.GeoPoint{Lat: 41.1579, Lon: -8.6291}},
		{Point: geo.GeoPoint{Lat: -21.1151, Lon: 55.5364}},
	}
	testResult = search.Result{
		Best:       geo.GeoPoint{Lat: -48, Lon: -123},
		Nearest:    geo.GeoPoint{Lat: 41.1579, Lon: -8.6291},
		DistanceKm: 13000.5,
		Step:       1,
		Found:      true,
	}
)

func TestResultSVG(t *testing.T) {
	out, err := ResultSVG(testResult, testRefs, 720)
	if err != nil {
		t.Fatalf("ResultSVG failed: %v", err)
	}

	if !strings.Contains(out, "<svg") {
		t.Fatalf("Expected svg element, got %q", out)
	}
	if !strings.Contains(out, "13000.5 km") {
		t.Errorf("Expected distance label in %q", out)
	}
	if strings.Contains(out, "\n  ") {
		t.Error("Expected minified output")
	}

	empty, err := ResultSVG(search.Result{}, testRefs, 0)
	if err != nil {
		t.Fatalf("ResultSVG failed: %v", err)
	}
	if strings.Contains(empty, " km") {
		t.Error("Expected no result marker when nothing was found")
	}
}

func TestResultGeoJSON(t *testing.T) {
	fc := ResultGeoJSON(testResult, testRefs)

	if fc.Type != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 4 {
		t.Fatalf("Expected 4 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["name"] != "Porto" {
		t.Errorf("Expected first reference named Porto, got %v", fc.Features[0].Properties)
	}
	if _, ok := fc.Features[1].Properties["name"]; ok {
		t.Error("Expected unnamed reference without name property")
	}

	best := fc.Features[2]
	coords, ok := best.Geometry.Coordinates.([]float64)
	if !ok || coords[0] != -123 || coords[1] != -48 {
		t.Errorf("Expected best at [-123 -48], got %v", best.Geometry.Coordinates)
	}
	if fc.Features[3].Geometry.Type != "LineString" {
		t.Errorf("Expected LineString, got %s", fc.Features[3].Geometry.Type)
	}

	if got := ResultGeoJSON(search.Result{}, testRefs); len(got.Features) != 2 {
		t.Errorf("Expected only references when nothing was found, got %d features", len(got.Features))
	}
}

func TestEncode(t *testing.T) {
	fc := ResultGeoJSON(testResult, testRefs)

	data, err := Encode(fc, "json")
	if err != nil {
		t.Fatalf("Encode json failed: %v", err)
	}
	var decoded geo.FeatureCollection
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(decoded.Features) != 4 {
		t.Errorf("Expected 4 features, got %d", len(decoded.Features))
	}

	data, err = Encode(fc, "yaml")
	if err != nil {
		t.Fatalf("Encode yaml failed: %v", err)
	}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid YAML: %v", err)
	}

	if _, err := Encode(fc, "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestResultSVGEscapesNames(t *testing.T) {
	refs := []Marker{{Name: `Trinidad & Tobago <"west">`, Point: geo.GeoPoint{Lat: 10.5, Lon: -61.3}}}

	out, err := ResultSVG(testResult, refs, 360)
	if err != nil {
		t.Fatalf("ResultSVG failed: %v", err)
	}
	if strings.Contains(out, `<"west">`) {
		t.Errorf("Expected name to be escaped, got %q", out)
	}

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Expected well-formed SVG, got %v in %q", err, out)
		}
	}
}
