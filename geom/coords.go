package geom

import (
	"math"

	"github.com/phil-mansfield/geonav/topo"
)

// angleEpsilon is the polar angle below which the azimuthal angle of a
// spherical coordinate is set to zero.
const angleEpsilon = 1.1920929e-07

// CartesianPoint is a position expressed in Frame.
type CartesianPoint struct {
	X, Y, Z float64
	Frame   *Frame
}

// CartesianVector is a direction or a field expressed in Frame. Vectors are
// only rotated by frame changes.
type CartesianVector struct {
	X, Y, Z float64
	Frame   *Frame
}

// SphericalPoint is a position with polar angle Theta measured from +z and
// azimuthal angle Phi measured from +x, in radians.
type SphericalPoint struct {
	R, Theta, Phi float64
	Frame         *Frame
}

// SphericalVector is a vector in spherical form.
type SphericalVector struct {
	Norm, Theta, Phi float64
	Frame            *Frame
}

// HorizontalVector is a vector given by its elevation above the xy plane
// and its azimuth measured clockwise from +y, in radians.
type HorizontalVector struct {
	Norm, Elevation, Azimuth float64
	Frame                    *Frame
}

// GeodeticPoint is a WGS-84 position. Latitude and longitude are in degrees
// and altitude in meters. Geodetic points are always absolute.
type GeodeticPoint struct {
	Latitude, Longitude, Altitude float64
}

// Array returns the coordinates of p.
func (p CartesianPoint) Array() [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

// Array returns the components of v.
func (v CartesianVector) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Transform expresses p in frame. It is a no-op if p is already expressed in
// frame.
func (p CartesianPoint) Transform(frame *Frame) CartesianPoint {
	if frame == p.Frame {
		return p
	}
	r := transformPoint(p.Array(), p.Frame, frame)
	return CartesianPoint{r[0], r[1], r[2], frame}
}

// Transform expresses v in frame.
func (v CartesianVector) Transform(frame *Frame) CartesianVector {
	if frame == v.Frame {
		return v
	}
	r := transformVector(v.Array(), v.Frame, frame)
	return CartesianVector{r[0], r[1], r[2], frame}
}

// Transform expresses p in frame.
func (p SphericalPoint) Transform(frame *Frame) SphericalPoint {
	if frame == p.Frame {
		return p
	}
	return p.Cartesian().Transform(frame).Spherical()
}

// Transform expresses v in frame.
func (v SphericalVector) Transform(frame *Frame) SphericalVector {
	if frame == v.Frame {
		return v
	}
	return v.Cartesian().Transform(frame).Spherical()
}

// Transform expresses v in frame.
func (v HorizontalVector) Transform(frame *Frame) HorizontalVector {
	if frame == v.Frame {
		return v
	}
	return v.Cartesian().Transform(frame).Horizontal()
}

func toSpherical(r [3]float64) (norm, theta, phi float64) {
	norm = math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if norm == 0 {
		return 0, 0, 0
	}
	theta = math.Acos(math.Max(-1, math.Min(1, r[2]/norm)))
	if math.Abs(theta) <= angleEpsilon || math.Abs(math.Pi-theta) <= angleEpsilon {
		return norm, theta, 0
	}
	return norm, theta, math.Atan2(r[1], r[0])
}

func fromSpherical(norm, theta, phi float64) [3]float64 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return [3]float64{norm * st * cp, norm * st * sp, norm * ct}
}

// Spherical returns p in spherical form, in the same frame.
func (p CartesianPoint) Spherical() SphericalPoint {
	r, theta, phi := toSpherical(p.Array())
	return SphericalPoint{r, theta, phi, p.Frame}
}

// Cartesian returns p in Cartesian form, in the same frame.
func (p SphericalPoint) Cartesian() CartesianPoint {
	r := fromSpherical(p.R, p.Theta, p.Phi)
	return CartesianPoint{r[0], r[1], r[2], p.Frame}
}

// Spherical returns v in spherical form, in the same frame.
func (v CartesianVector) Spherical() SphericalVector {
	n, theta, phi := toSpherical(v.Array())
	return SphericalVector{n, theta, phi, v.Frame}
}

// Cartesian returns v in Cartesian form, in the same frame.
func (v SphericalVector) Cartesian() CartesianVector {
	r := fromSpherical(v.Norm, v.Theta, v.Phi)
	return CartesianVector{r[0], r[1], r[2], v.Frame}
}

// Horizontal returns v in horizontal form.
func (v SphericalVector) Horizontal() HorizontalVector {
	return HorizontalVector{
		Norm:      v.Norm,
		Elevation: 0.5*math.Pi - v.Theta,
		Azimuth:   0.5*math.Pi - v.Phi,
		Frame:     v.Frame,
	}
}

// Spherical returns v in spherical form.
func (v HorizontalVector) Spherical() SphericalVector {
	return SphericalVector{
		Norm:  v.Norm,
		Theta: 0.5*math.Pi - v.Elevation,
		Phi:   0.5*math.Pi - v.Azimuth,
		Frame: v.Frame,
	}
}

// Horizontal returns v in horizontal form.
func (v CartesianVector) Horizontal() HorizontalVector {
	return v.Spherical().Horizontal()
}

// Cartesian returns v in Cartesian form.
func (v HorizontalVector) Cartesian() CartesianVector {
	return v.Spherical().Cartesian()
}

// Geodetic returns the geodetic coordinates of p. Points expressed in a
// frame are first brought back to absolute coordinates.
func (p CartesianPoint) Geodetic() GeodeticPoint {
	lat, lon, alt := topo.ToGeodetic(p.Transform(nil).Array())
	return GeodeticPoint{lat, lon, alt}
}

// Cartesian returns the absolute Cartesian coordinates of g.
func (g GeodeticPoint) Cartesian() CartesianPoint {
	r := topo.FromGeodetic(g.Latitude, g.Longitude, g.Altitude)
	return CartesianPoint{r[0], r[1], r[2], nil}
}

// Geodetic returns the geodetic coordinates of p.
func (p SphericalPoint) Geodetic() GeodeticPoint {
	return p.Cartesian().Geodetic()
}

// Spherical returns the absolute spherical coordinates of g.
func (g GeodeticPoint) Spherical() SphericalPoint {
	return g.Cartesian().Spherical()
}
