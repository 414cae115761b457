/*package geonav locates transported particles in a hierarchical geometry.
At every step of a simulated path, Context.Locate returns the medium around
the particle and how far it may travel before that answer can change; the
medium then resolves its local density and magnetic field.
*/
package geonav

import (
	"github.com/phil-mansfield/geonav/topo"
)

// Mode is the direction in which the transport engine follows particles.
type Mode int

const (
	// Forward follows particles along their direction of motion.
	Forward Mode = iota
	// Backward follows particles back in time, against their direction.
	Backward
)

func (m Mode) String() string {
	switch m {
	case Forward:
		return "Forward"
	case Backward:
		return "Backward"
	}
	return "Mode(?)"
}

// State is the part of a transported particle's state that navigation
// reads. Position and Direction are absolute (ECEF) coordinates and Distance
// is the total distance travelled so far.
//
// A State carries per-particle caches and should not be copied while in use.
type State struct {
	Position, Direction [3]float64
	Distance            float64
	Kinetic, Charge     float64

	geodetic geodeticCache
	vertical verticalCache
}

type geodeticCache struct {
	valid                         bool
	latitude, longitude, altitude float64
}

type verticalCache struct {
	valid            bool
	from, validUntil float64
	up               [3]float64
}

// NewState creates a state at the given position, moving along direction.
func NewState(position, direction [3]float64) *State {
	return &State{Position: position, Direction: direction}
}

// ResetCaches drops all cached derived quantities. It must be called when a
// State is reused for a new particle.
func (st *State) ResetCaches() {
	st.geodetic = geodeticCache{}
	st.vertical = verticalCache{}
}

// Geodetic returns the geodetic coordinates of the current position. They
// are computed at most once between two calls to Context.Locate.
func (st *State) Geodetic() (latitude, longitude, altitude float64) {
	if !st.geodetic.valid {
		lat, lon, alt := topo.ToGeodetic(st.Position)
		st.setGeodetic(lat, lon, alt)
	}
	g := &st.geodetic
	return g.latitude, g.longitude, g.altitude
}

func (st *State) setGeodetic(lat, lon, alt float64) {
	st.geodetic = geodeticCache{true, lat, lon, alt}
}

// Locals are the local properties of a medium at some state. Density is in
// kg/m^3 and Magnet is the absolute magnetic field in tesla.
type Locals struct {
	Density float64
	Magnet  [3]float64
}

// Medium is a material region. Locals returns the local properties at st
// together with the distance over which they may be considered constant.
// Zero gives no distance and is combined like the bounds of Locate. ctx may
// be nil, in which case no global magnetic field is added.
type Medium interface {
	Material() int
	Locals(ctx *Context, st *State) (Locals, float64, error)
}

type transparentMedium struct{}

func (*transparentMedium) Material() int { return -1 }

func (*transparentMedium) Locals(ctx *Context, st *State) (Locals, float64, error) {
	return Locals{}, 0, nil
}

// Transparent is returned by shapes which are geometrically present but
// physically empty, like bounding boxes. Navigation lets the daughters of a
// transparent node claim the point and otherwise treats it as absent: Locate
// never returns Transparent.
var Transparent Medium = &transparentMedium{}

func add(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
