package geonav

import (
	"math"

	"github.com/phil-mansfield/geonav/topo"
)

const (
	// GradientResolution is the relative density change allowed over one
	// step in a Gradient medium.
	GradientResolution = 1e-2
	// MinProjection floors the cosine between the direction of motion and
	// the gradient axis.
	MinProjection = 5e-2
	// VerticalUpdateDistance is the distance over which the local vertical
	// of an AltitudeProjector is reused.
	VerticalUpdateDistance = 1e3
)

/////////////
// Uniform //
/////////////

// Uniform is a medium with constant density and magnetic field.
type Uniform struct {
	material int
	Density  float64
	Magnet   [3]float64
}

// NewUniform creates a uniform medium.
func NewUniform(material int, density float64, magnet [3]float64) *Uniform {
	return &Uniform{material: material, Density: density, Magnet: magnet}
}

// Material returns the material index of the medium.
func (m *Uniform) Material() int { return m.material }

// Locals returns the constant properties plus the global magnetic field.
// The step is the one of the global field.
func (m *Uniform) Locals(ctx *Context, st *State) (Locals, float64, error) {
	b, step, err := ctx.GlobalField(st)
	if err != nil {
		return Locals{}, 0, err
	}
	return Locals{Density: m.Density, Magnet: add(m.Magnet, b)}, step, nil
}

//////////////
// Gradient //
//////////////

// GradientKind selects the density law of a Gradient medium.
type GradientKind int

const (
	// Linear density: rho0 * (1 + (z - z0) / lambda).
	Linear GradientKind = iota
	// Exponential density: rho0 * exp((z - z0) / lambda).
	Exponential
)

// Projector returns the coordinate z along which a Gradient medium varies,
// and the local direction of increasing z.
type Projector interface {
	Project(st *State) (z float64, axis [3]float64)
}

// Gradient is a medium whose density varies along an axis. If Projector is
// nil, z is the projection of the position onto Axis.
type Gradient struct {
	material  int
	Kind      GradientKind
	Lambda    float64
	Z0, Rho0  float64
	Axis      [3]float64
	Magnet    [3]float64
	Projector Projector
}

// NewGradient creates a gradient medium along the z axis.
func NewGradient(
	material int, kind GradientKind, lambda, z0, rho0 float64, magnet [3]float64,
) *Gradient {
	return &Gradient{
		material: material, Kind: kind, Lambda: lambda, Z0: z0, Rho0: rho0,
		Axis: [3]float64{0, 0, 1}, Magnet: magnet,
	}
}

// Material returns the material index of the medium.
func (g *Gradient) Material() int { return g.material }

// Density returns the density at coordinate z.
func (g *Gradient) Density(z float64) float64 {
	if g.Kind == Exponential {
		return g.Rho0 * math.Exp((z-g.Z0)/g.Lambda)
	}
	return g.Rho0 * (1 + (z-g.Z0)/g.Lambda)
}

// Locals returns the density at st and the distance over which it changes
// by about GradientResolution, bounded by the step of the global field.
func (g *Gradient) Locals(ctx *Context, st *State) (Locals, float64, error) {
	b, step, err := ctx.GlobalField(st)
	if err != nil {
		return Locals{}, 0, err
	}

	var z float64
	axis := g.Axis
	if g.Projector != nil {
		z, axis = g.Projector.Project(st)
	} else {
		z = dot(st.Position, axis)
	}

	d := math.Abs(dot(axis, st.Direction))
	if d < MinProjection {
		d = MinProjection
	}
	step2 := math.Abs(g.Lambda/d) * GradientResolution
	if step > 0 && step < step2 {
		step2 = step
	}

	return Locals{Density: g.Density(z), Magnet: add(g.Magnet, b)}, step2, nil
}

// AltitudeProjector projects states onto their altitude above the WGS-84
// ellipsoid. The local vertical is recomputed every VerticalUpdateDistance
// travelled.
type AltitudeProjector struct{}

// Project returns the altitude of st and the local vertical.
func (AltitudeProjector) Project(st *State) (float64, [3]float64) {
	lat, lon, alt := st.Geodetic()

	v := &st.vertical
	if !v.valid || st.Distance < v.from || st.Distance >= v.validUntil {
		v.up = topo.FromHorizontal(lat, lon, 0, 90)
		v.from = st.Distance
		v.validUntil = st.Distance + VerticalUpdateDistance
		v.valid = true
	}
	return alt, v.up
}
