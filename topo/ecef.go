/*package topo contains the topography side of navigation: conversions
between Earth-Centered-Earth-Fixed (ECEF) coordinates, geodetic coordinates
and local horizontal directions on the WGS-84 ellipsoid, and steppers which
map an ECEF position to a topography layer.

Angles are in degrees and lengths in meters throughout.
*/
package topo

import (
	"math"
)

// WGS-84 ellipsoid.
const (
	SemiMajorAxis = 6378137.0
	Flattening    = 1.0 / 298.257223563

	e2 = Flattening * (2 - Flattening)

	deg = math.Pi / 180

	geodeticIters = 10
	geodeticTol   = 1e-15
)

// FromGeodetic returns the ECEF position of the point at the given latitude,
// longitude and altitude above the ellipsoid.
func FromGeodetic(latitude, longitude, altitude float64) [3]float64 {
	sinLat, cosLat := math.Sincos(latitude * deg)
	sinLon, cosLon := math.Sincos(longitude * deg)

	// Radius of curvature in the prime vertical.
	N := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)

	return [3]float64{
		(N + altitude) * cosLat * cosLon,
		(N + altitude) * cosLat * sinLon,
		(N*(1-e2) + altitude) * sinLat,
	}
}

// ToGeodetic returns the latitude, longitude and altitude of an ECEF
// position. The latitude is found by fixed point iteration on Bowring's
// relation, which converges to machine precision in a handful of steps.
func ToGeodetic(r [3]float64) (latitude, longitude, altitude float64) {
	x, y, z := r[0], r[1], r[2]
	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-e2))
	for i := 0; i < geodeticIters; i++ {
		sinLat := math.Sin(lat)
		N := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)
		next := math.Atan2(z+e2*N*sinLat, p)
		if math.Abs(next-lat) < geodeticTol {
			lat = next
			break
		}
		lat = next
	}

	sinLat, cosLat := math.Sincos(lat)
	N := SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)
	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - N*(1-e2)
	}

	return lat / deg, lon / deg, alt
}

// enu returns the local East, North and Up unit vectors, in ECEF, at the
// given latitude and longitude.
func enu(latitude, longitude float64) (east, north, up [3]float64) {
	sl, cl := math.Sincos(latitude * deg)
	so, co := math.Sincos(longitude * deg)

	east = [3]float64{-so, co, 0}
	north = [3]float64{-sl * co, -sl * so, cl}
	up = [3]float64{cl * co, cl * so, sl}
	return east, north, up
}

// FromHorizontal returns the ECEF unit vector pointing along the given
// azimuth (clockwise from North) and elevation (above the horizon) at the
// given location.
func FromHorizontal(latitude, longitude, azimuth, elevation float64) [3]float64 {
	se, ce := math.Sincos(elevation * deg)
	sa, ca := math.Sincos(azimuth * deg)
	e, n, u := ce*sa, ce*ca, se

	east, north, up := enu(latitude, longitude)
	var d [3]float64
	for i := 0; i < 3; i++ {
		d[i] = e*east[i] + n*north[i] + u*up[i]
	}
	return d
}

// ToHorizontal returns the azimuth and elevation of the ECEF direction d as
// seen at the given location. d does not need to be normalized.
func ToHorizontal(latitude, longitude float64, d [3]float64) (azimuth, elevation float64) {
	east, north, up := enu(latitude, longitude)
	e := east[0]*d[0] + east[1]*d[1] + east[2]*d[2]
	n := north[0]*d[0] + north[1]*d[1] + north[2]*d[2]
	u := up[0]*d[0] + up[1]*d[1] + up[2]*d[2]

	norm := math.Sqrt(e*e + n*n + u*u)
	if norm == 0 {
		return 0, 0
	}
	azimuth = math.Atan2(e, n) / deg
	elevation = math.Asin(u/norm) / deg
	return azimuth, elevation
}
