// Package geo handles geographic points, great-circle distances and scan grids.
package geo

import (
	"fmt"
	"math"
)

// GeoPoint is an immutable latitude/longitude pair in degrees.
// Two points are equal only when both fields compare equal exactly.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// String formats the point as "lat,lon".
func (p GeoPoint) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lon)
}

// Valid reports whether the point is finite and within [-90,90] x [-180,180].
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// keyScale is the fixed-point resolution of Key: one microdegree (~0.11 m).
const keyScale = 1e6

// Key is the fixed-point form of a GeoPoint used for cache lookups.
// Integer fields round-trip exactly through any codec.
type Key struct {
	Lat int32 `json:"lat"`
	Lon int32 `json:"lon"`
}

// KeyOf quantizes a point to microdegrees.
func KeyOf(p GeoPoint) Key {
	return Key{Lat: FixedDegrees(p.Lat), Lon: FixedDegrees(p.Lon)}
}

// Point converts the key back to degrees.
func (k Key) Point() GeoPoint {
	return GeoPoint{Lat: float64(k.Lat) / keyScale, Lon: float64(k.Lon) / keyScale}
}

// FixedDegrees converts degrees to integer microdegrees.
func FixedDegrees(deg float64) int32 {
	return int32(math.Round(deg * keyScale))
}
