/*package geom implements the coordinate algebra used by the medium resolvers:
points and vectors in Cartesian, spherical, horizontal and geodetic
representations, and changes of frame between them.

A Frame maps coordinates expressed in the frame to absolute (ECEF-like)
coordinates with a := R*v + T. Every point or vector remembers the frame it
is currently expressed in; a nil frame means absolute coordinates.
*/
package geom

import (
	"errors"
	"fmt"
	. "math"

	"github.com/phil-mansfield/geonav/math/mat"
	"github.com/phil-mansfield/geonav/topo"
)

// UnitaryTolerance is the largest deviation from an orthonormal rotation
// accepted by NewFrame.
const UnitaryTolerance = 1e-9

// ErrNotUnitary is returned by NewFrame for rotations which are not proper
// orthonormal matrices.
var ErrNotUnitary = errors.New("geom: rotation is not unitary")

// Frame is a rotation followed by a translation. Rotation is row-major.
type Frame struct {
	Translation [3]float64
	Rotation    [3][3]float64
}

func (f *Frame) matrix() *mat.Matrix {
	vals := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		vals = append(vals, f.Rotation[i][:]...)
	}
	return mat.NewMatrix(vals, 3, 3)
}

// NewFrame creates a frame after checking that rotation is a proper
// rotation: its determinant is one and its inverse is its transpose.
func NewFrame(rotation [3][3]float64, translation [3]float64) (*Frame, error) {
	f := &Frame{Translation: translation, Rotation: rotation}
	m := f.matrix()

	if det := m.Determinant(); Abs(det-1) > UnitaryTolerance {
		return nil, fmt.Errorf("%w: determinant is %g", ErrNotUnitary, det)
	}
	inv, ok := m.Invert()
	if !ok {
		return nil, fmt.Errorf("%w: matrix is singular", ErrNotUnitary)
	}
	if d := inv.MaxAbsDiff(m.Transpose()); d > UnitaryTolerance {
		return nil, fmt.Errorf(
			"%w: inverse differs from transpose by %g", ErrNotUnitary, d,
		)
	}
	return f, nil
}

// EulerFrame creates a frame from the Euler angles phi, theta, and psi.
// These represent three consecutive rotations around the x, y, and z axes,
// respectively.
func EulerFrame(phi, theta, psi float64, origin [3]float64) *Frame {
	return &Frame{
		Translation: origin,
		Rotation: [3][3]float64{
			{
				Cos(theta) * Cos(psi),
				Cos(phi)*Sin(psi) + Sin(phi)*Sin(theta)*Cos(psi),
				Sin(phi)*Sin(psi) - Cos(phi)*Sin(theta)*Cos(psi),
			},
			{
				-Cos(theta) * Sin(psi),
				Cos(phi)*Cos(psi) - Sin(phi)*Sin(theta)*Sin(psi),
				Sin(phi)*Cos(psi) + Cos(phi)*Sin(theta)*Sin(psi),
			},
			{
				Sin(theta),
				-Sin(phi) * Cos(theta),
				Cos(phi) * Cos(theta),
			},
		},
	}
}

// LocalFrame returns the East-North-Up frame at geo, translated to origin.
// The columns of the rotation are the East, North and Up unit vectors in
// absolute coordinates.
func LocalFrame(origin CartesianPoint, geo GeodeticPoint) *Frame {
	east := topo.FromHorizontal(geo.Latitude, geo.Longitude, 90, 0)
	north := topo.FromHorizontal(geo.Latitude, geo.Longitude, 0, 0)
	up := topo.FromHorizontal(geo.Latitude, geo.Longitude, 0, 90)

	f := &Frame{Translation: origin.Transform(nil).Array()}
	for i := 0; i < 3; i++ {
		f.Rotation[i] = [3]float64{east[i], north[i], up[i]}
	}
	return f
}

// rotate returns R*v.
func (f *Frame) rotate(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		r := &f.Rotation[i]
		out[i] = r[0]*v[0] + r[1]*v[1] + r[2]*v[2]
	}
	return out
}

// unrotate returns R^T*v.
func (f *Frame) unrotate(v [3]float64) [3]float64 {
	var out [3]float64
	for j := 0; j < 3; j++ {
		out[j] = f.Rotation[0][j]*v[0] + f.Rotation[1][j]*v[1] +
			f.Rotation[2][j]*v[2]
	}
	return out
}

func transformPoint(r [3]float64, from, to *Frame) [3]float64 {
	if from != nil {
		r = from.rotate(r)
		for i := range r {
			r[i] += from.Translation[i]
		}
	}
	if to != nil {
		for i := range r {
			r[i] -= to.Translation[i]
		}
		r = to.unrotate(r)
	}
	return r
}

func transformVector(v [3]float64, from, to *Frame) [3]float64 {
	if from != nil {
		v = from.rotate(v)
	}
	if to != nil {
		v = to.unrotate(v)
	}
	return v
}
