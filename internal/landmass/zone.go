package landmass

import "github.com/woozymasta/farpoint/internal/geo"

// Zone is an axis-aligned open-ocean box. Points strictly inside it are
// water without consulting any polygon. All four bounds are independent.
type Zone struct {
	LatMin float64 `yaml:"lat_min" json:"lat_min"`
	LatMax float64 `yaml:"lat_max" json:"lat_max"`
	LonMin float64 `yaml:"lon_min" json:"lon_min"`
	LonMax float64 `yaml:"lon_max" json:"lon_max"`
}

// PointNemo is a land-free box around the oceanic pole of inaccessibility
// (48.88S 123.39W) in the South Pacific.
var PointNemo = Zone{LatMin: -60, LatMax: -35, LonMin: -140, LonMax: -100}

// Enabled reports whether the zone has any extent. The zero Zone is disabled.
func (z Zone) Enabled() bool {
	return z.LatMax > z.LatMin && z.LonMax > z.LonMin
}

// Contains reports whether p lies strictly inside the zone.
func (z Zone) Contains(p geo.GeoPoint) bool {
	if !z.Enabled() {
		return false
	}

	return p.Lat > z.LatMin && p.Lat < z.LatMax &&
		p.Lon > z.LonMin && p.Lon < z.LonMax
}
