package geo

import "math"

// Grid is the rectangular window swept by a search pass.
// Rows run from North down to South, columns from West to East, both inclusive.
type Grid struct {
	North float64 `yaml:"north" json:"north"`
	South float64 `yaml:"south" json:"south"`
	West  float64 `yaml:"west" json:"west"`
	East  float64 `yaml:"east" json:"east"`
}

// World is the default sweep window. Nothing poleward of 84N is land worth
// considering and the Antarctic interior below 63S is left out of the scan.
var World = Grid{North: 84, South: -63, West: -180, East: 180}

// gridEpsilon absorbs float error when counting steps, e.g. 147/0.1.
const gridEpsilon = 1e-9

// Rows returns the number of latitude rows at the given step.
func (g Grid) Rows(step float64) int {
	return steps(g.North-g.South, step)
}

// Cols returns the number of longitude columns at the given step.
func (g Grid) Cols(step float64) int {
	return steps(g.East-g.West, step)
}

// Lat returns the latitude of row i. Coordinates come from integer indices
// so repeated passes at one step produce identical cells.
func (g Grid) Lat(i int, step float64) float64 {
	return clean(g.North - float64(i)*step)
}

// Lon returns the longitude of column j.
func (g Grid) Lon(j int, step float64) float64 {
	return clean(g.West + float64(j)*step)
}

// Cell returns the point at row i, column j.
func (g Grid) Cell(i, j int, step float64) GeoPoint {
	return GeoPoint{Lat: g.Lat(i, step), Lon: g.Lon(j, step)}
}

// Valid reports whether the window is non-empty and inside world bounds.
func (g Grid) Valid() bool {
	return g.North >= g.South && g.East >= g.West &&
		g.North <= 90 && g.South >= -90 && g.West >= -180 && g.East <= 180
}

func steps(span, step float64) int {
	if span < 0 || step <= 0 {
		return 0
	}

	return int(math.Floor(span/step+gridEpsilon)) + 1
}

// clean drops accumulated binary noise below a nanodegree.
func clean(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
