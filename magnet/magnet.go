/*package magnet provides geomagnetic field snapshots: models which return
the Earth's magnetic field at a geodetic location.

Fields are returned in the local East-North-Up frame, in tesla.
*/
package magnet

import (
	"errors"
	"math"
	"sync"

	"github.com/phil-mansfield/geonav/topo"
)

// ErrOrigin is returned for positions at the center of the Earth, where a
// multipole field is singular.
var ErrOrigin = errors.New("magnet: field undefined at the origin")

// Snapshot is a geomagnetic field model frozen at some epoch.
type Snapshot interface {
	// Field returns the (East, North, Up) field in tesla at the given
	// latitude and longitude (degrees) and altitude (meters).
	Field(latitude, longitude, altitude float64) ([3]float64, error)
}

// IGRF-13 degree 1 Gauss coefficients at epoch 2020.0, in nT.
const (
	igrfG10 = -29404.8
	igrfG11 = -1450.9
	igrfH11 = 4652.5

	// Geomagnetic reference radius, in meters.
	ReferenceRadius = 6371200.0

	nanoTesla = 1e-9
)

// Dipole is the degree 1 (tilted dipole) part of a spherical harmonic
// model. Coefficients are in nT. Unlike WMM it has no validity period.
type Dipole struct {
	G10, G11, H11 float64
	Radius        float64
}

// NewDipole returns the IGRF-13 dipole at epoch 2020.0.
func NewDipole() *Dipole {
	return &Dipole{G10: igrfG10, G11: igrfG11, H11: igrfH11, Radius: ReferenceRadius}
}

// Field evaluates the dipole field. The field is computed in geocentric
// spherical coordinates and projected onto the geodetic ENU basis.
func (d *Dipole) Field(latitude, longitude, altitude float64) ([3]float64, error) {
	r := topo.FromGeodetic(latitude, longitude, altitude)
	rho := math.Hypot(r[0], r[1])
	norm := math.Hypot(rho, r[2])
	if norm == 0 {
		return [3]float64{}, report(ErrOrigin)
	}

	sinTh, cosTh := rho/norm, r[2]/norm
	phi := math.Atan2(r[1], r[0])
	sinPh, cosPh := math.Sincos(phi)

	a := d.Radius / norm
	a3 := a * a * a
	gh := d.G11*cosPh + d.H11*sinPh

	// Spherical components of B = -grad V.
	bR := 2 * a3 * (d.G10*cosTh + gh*sinTh)
	bTh := a3 * (d.G10*sinTh - gh*cosTh)
	bPh := a3 * (d.G11*sinPh - d.H11*cosPh)

	// Spherical unit vectors in ECEF.
	eR := [3]float64{sinTh * cosPh, sinTh * sinPh, cosTh}
	eTh := [3]float64{cosTh * cosPh, cosTh * sinPh, -sinTh}
	ePh := [3]float64{-sinPh, cosPh, 0}

	var b [3]float64
	for i := 0; i < 3; i++ {
		b[i] = (bR*eR[i] + bTh*eTh[i] + bPh*ePh[i]) * nanoTesla
	}

	east := topo.FromHorizontal(latitude, longitude, 90, 0)
	north := topo.FromHorizontal(latitude, longitude, 0, 0)
	up := topo.FromHorizontal(latitude, longitude, 0, 90)
	return [3]float64{dot(b, east), dot(b, north), dot(b, up)}, nil
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// Uniform is a snapshot returning the same ENU field everywhere. It is
// mostly useful for tests and toy geometries.
type Uniform [3]float64

// Field returns u.
func (u Uniform) Field(latitude, longitude, altitude float64) ([3]float64, error) {
	return [3]float64(u), nil
}

var handler struct {
	sync.RWMutex
	f func(error)
}

// SetErrorHandler installs a function which is called with every error
// produced by a snapshot of this package. A nil f removes the handler.
func SetErrorHandler(f func(error)) {
	handler.Lock()
	handler.f = f
	handler.Unlock()
}

func report(err error) error {
	handler.RLock()
	f := handler.f
	handler.RUnlock()
	if f != nil {
		f(err)
	}
	return err
}
