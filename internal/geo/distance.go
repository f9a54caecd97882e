package geo

import "math"

// EarthRadiusKm is the mean radius of the spherical Earth model.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers
// using the haversine formula. The result is exactly symmetric in its arguments.
func Distance(a, b GeoPoint) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon

	// rounding can push h slightly outside [0,1] near antipodes
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the reference closest to p and its distance.
// On ties the first minimal reference in input order wins.
// ok is false when refs is empty.
func Nearest(p GeoPoint, refs []GeoPoint) (ref GeoPoint, dist float64, ok bool) {
	if len(refs) == 0 {
		return GeoPoint{}, 0, false
	}

	ref = refs[0]
	dist = Distance(p, ref)
	for _, r := range refs[1:] {
		if d := Distance(p, r); d < dist {
			ref, dist = r, d
		}
	}

	return ref, dist, true
}

func radians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
