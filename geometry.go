package geonav

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
)

const (
	// StepMin is the smallest step returned by a Polyhedron.
	StepMin = 1e-5
	// GeomagnetUpdateDistance is the distance over which an Earth's
	// magnetic field is reused.
	GeomagnetUpdateDistance = 1e3

	fltEpsilon = 1.1920929e-07
)

// NodeID identifies a node of a Tree.
type NodeID int

// NoNode is the mother of root nodes.
const NoNode NodeID = -1

////////////////
// Interfaces //
////////////////

// Shape is the geometric kind of a node: one of *Infinite, *Earth,
// *Polyhedron or *User.
type Shape interface {
	// locate returns the medium at st, or nil, and a bound on the distance
	// over which that answer holds.
	locate(ctx *Context, id NodeID, st *State) (Medium, float64, error)
}

// fieldShape is implemented by shapes which may provide a global magnetic
// field to the media below them.
type fieldShape interface {
	hasField() bool
	field(ctx *Context, id NodeID, st *State) ([3]float64, float64, error)
}

// Locator is the capability wrapped by a User shape.
type Locator interface {
	Locate(ctx *Context, st *State) (Medium, float64, error)
}

// Resetter is implemented by Locators holding per-run state.
type Resetter interface {
	Reset()
}

var (
	_ Shape      = &Infinite{}
	_ Shape      = &Earth{}
	_ Shape      = &Polyhedron{}
	_ Shape      = &User{}
	_ fieldShape = &Earth{}
)

//////////
// Tree //
//////////

type node struct {
	shape                     Shape
	mother, first, last, next NodeID
}

// Tree is an arena of geometry nodes. Nodes are created with Add and linked
// with Push. A Tree is not safe for concurrent modification, but once built
// it can be navigated by any number of Contexts at once.
type Tree struct {
	nodes []node
}

// NewTree creates an empty tree.
func NewTree() *Tree { return &Tree{} }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) check(id NodeID) {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("Node %d not in a tree of %d nodes.", id, len(t.nodes)))
	}
}

// Add adds a detached node with the given shape.
func (t *Tree) Add(s Shape) NodeID {
	if s == nil {
		panic("Cannot add a nil shape.")
	}
	t.nodes = append(t.nodes, node{shape: s, mother: NoNode, first: NoNode, last: NoNode, next: NoNode})
	return NodeID(len(t.nodes) - 1)
}

// Push appends daughter to the daughters of mother. Daughters are visited
// in the order they were pushed.
func (t *Tree) Push(mother, daughter NodeID) {
	t.check(mother)
	t.check(daughter)
	if t.nodes[daughter].mother != NoNode {
		panic(fmt.Sprintf("Node %d already has a mother.", daughter))
	}
	for id := mother; id != NoNode; id = t.nodes[id].mother {
		if id == daughter {
			panic(fmt.Sprintf("Pushing %d under %d makes a cycle.", daughter, mother))
		}
	}

	m := &t.nodes[mother]
	if m.last == NoNode {
		m.first = daughter
	} else {
		t.nodes[m.last].next = daughter
	}
	m.last = daughter
	t.nodes[daughter].mother = mother
}

// Mother returns the mother of id, or NoNode.
func (t *Tree) Mother(id NodeID) NodeID {
	t.check(id)
	return t.nodes[id].mother
}

// Daughters returns the daughters of id in visiting order.
func (t *Tree) Daughters(id NodeID) []NodeID {
	t.check(id)
	var out []NodeID
	for d := t.nodes[id].first; d != NoNode; d = t.nodes[d].next {
		out = append(out, d)
	}
	return out
}

// Shape returns the shape of id.
func (t *Tree) Shape(id NodeID) Shape {
	t.check(id)
	return t.nodes[id].shape
}

// Reset reinitializes per-run state held by the shapes of the tree.
func (t *Tree) Reset() {
	for i := range t.nodes {
		if u, ok := t.nodes[i].shape.(*User); ok {
			if r, ok := u.Locator.(Resetter); ok {
				r.Reset()
			}
		}
	}
}

// Destroy releases the resources held by the shapes of the tree, daughters
// before their mothers, and empties the tree. All errors are returned.
func (t *Tree) Destroy() error {
	var errs []error
	var visit func(id NodeID)
	visit = func(id NodeID) {
		for d := t.nodes[id].first; d != NoNode; d = t.nodes[d].next {
			visit(d)
		}
		if c, ok := closer(t.nodes[id].shape); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("node %d: %w", id, err))
			}
		}
	}
	for i := range t.nodes {
		if t.nodes[i].mother == NoNode {
			visit(NodeID(i))
		}
	}
	t.nodes = nil
	return errors.Join(errs...)
}

func closer(s Shape) (io.Closer, bool) {
	switch s := s.(type) {
	case *Earth:
		return s, s.Stepper != nil
	case *User:
		c, ok := s.Locator.(io.Closer)
		return c, ok
	}
	return nil, false
}

//////////////
// Infinite //
//////////////

// Infinite fills all of space with one medium, which may be nil. It never
// limits the step.
type Infinite struct {
	Medium Medium
}

func (s *Infinite) locate(ctx *Context, id NodeID, st *State) (Medium, float64, error) {
	return s.Medium, 0, nil
}

////////////////
// Polyhedron //
////////////////

// Face is a plane bounding a Polyhedron, with an outward Normal.
type Face struct {
	Origin, Normal [3]float64
}

// Polyhedron is a convex volume filled with one medium.
type Polyhedron struct {
	Medium Medium
	Faces  []Face
}

// NewPolyhedron creates a polyhedron. faces is copied.
func NewPolyhedron(medium Medium, faces []Face) *Polyhedron {
	return &Polyhedron{Medium: medium, Faces: append([]Face(nil), faces...)}
}

// NewBox creates an axis-aligned box with the given center and half widths.
func NewBox(medium Medium, center, half [3]float64) *Polyhedron {
	p := &Polyhedron{Medium: medium, Faces: make([]Face, 0, 6)}
	for i := 0; i < 3; i++ {
		for _, sgn := range []float64{-1, 1} {
			f := Face{Origin: center}
			f.Origin[i] += sgn * half[i]
			f.Normal[i] = sgn
			p.Faces = append(p.Faces, f)
		}
	}
	return p
}

func (p *Polyhedron) locate(ctx *Context, id NodeID, st *State) (Medium, float64, error) {
	u := st.Direction
	if ctx != nil && ctx.Mode == Backward {
		u = [3]float64{-u[0], -u[1], -u[2]}
	}

	dE, dL := -math.MaxFloat64, math.MaxFloat64
	inside := true
	for i := range p.Faces {
		f := &p.Faces[i]
		r := [3]float64{
			st.Position[0] - f.Origin[0],
			st.Position[1] - f.Origin[1],
			st.Position[2] - f.Origin[2],
		}
		rn := dot(r, f.Normal)
		if rn > 0 {
			inside = false
		}
		un := dot(u, f.Normal)
		if math.Abs(un) <= fltEpsilon {
			continue
		}
		d := 0.0
		if rn != 0 {
			d = -rn / un
		}
		if un > 0 && d < dL {
			dL = d
		} else if un < 0 && d > dE {
			dE = d
		}
	}

	switch {
	case inside && dL > 0:
		return p.Medium, math.Max(dL, StepMin), nil
	case !inside && dE > 0:
		return nil, math.Max(dE, StepMin), nil
	case inside && dL == 0:
		// Leaving through the face the point sits on.
		return p.Medium, StepMin, nil
	}
	return nil, math.MaxFloat64, nil
}

///////////
// Earth //
///////////

// Earth is a layered Earth described by a topography stepper, with one
// medium per layer starting from the bottom. If Snapshot is set, the Earth
// provides a geomagnetic field to all media located below it.
type Earth struct {
	Stepper  topo.Stepper
	Media    []Medium
	Snapshot magnet.Snapshot
}

// NewEarth creates an Earth. media is copied.
func NewEarth(stepper topo.Stepper, media []Medium, snapshot magnet.Snapshot) *Earth {
	return &Earth{
		Stepper: stepper, Media: append([]Medium(nil), media...), Snapshot: snapshot,
	}
}

func (e *Earth) locate(ctx *Context, id NodeID, st *State) (Medium, float64, error) {
	step, err := e.Stepper.Step(st.Position)
	if err != nil {
		return nil, 0, err
	}
	st.setGeodetic(step.Latitude, step.Longitude, step.Altitude)

	n := len(e.Media)
	if step.Index < 0 || n == 0 {
		return nil, step.Length, nil
	}
	if n > 1 {
		if step.Index < n && step.Elevation[1] != math.MaxFloat64 {
			return e.Media[step.Index], step.Length, nil
		}
	} else if step.Altitude < step.Elevation[0] {
		return e.Media[0], step.Length, nil
	}
	return nil, step.Length, nil
}

func (e *Earth) hasField() bool { return e.Snapshot != nil }

// field returns the absolute geomagnetic field at st. Samples are cached
// per context and reused over GeomagnetUpdateDistance.
func (e *Earth) field(ctx *Context, id NodeID, st *State) ([3]float64, float64, error) {
	c := ctx.fieldCache(id)
	if c.valid && st.Distance >= c.from && st.Distance < c.validUntil {
		return c.field, GeomagnetUpdateDistance, nil
	}

	b, err := localField(e.Snapshot, st)
	if err != nil {
		return [3]float64{}, 0, err
	}
	*c = fieldSample{
		valid: true, from: st.Distance,
		validUntil: st.Distance + GeomagnetUpdateDistance, field: b,
	}
	return b, GeomagnetUpdateDistance, nil
}

// Close closes the topography stepper.
func (e *Earth) Close() error { return e.Stepper.Close() }

//////////
// User //
//////////

// User is a shape defined by the caller. Locators which implement Resetter
// or io.Closer are reset or closed with the tree.
type User struct {
	Locator Locator
}

func (u *User) locate(ctx *Context, id NodeID, st *State) (Medium, float64, error) {
	return u.Locator.Locate(ctx, st)
}

