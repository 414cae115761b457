package geonav

import (
	"github.com/phil-mansfield/geonav/geom"
	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/rand"
)

// Callback observes navigation. It is called for every node visited by
// Locate, with the answer of that node alone.
type Callback func(id NodeID, st *State, m Medium, step float64)

// Context is the per-simulation navigation state: the active geometry, the
// node where the last particle was found, a random stream and cached field
// samples. A Context must not be shared between goroutines; run one per
// worker instead.
type Context struct {
	Mode Mode

	tree         *Tree
	top, current NodeID
	callback     Callback
	random       *rand.Generator
	fields       map[NodeID]*fieldSample
}

type fieldSample struct {
	valid            bool
	from, validUntil float64
	field            [3]float64
}

// NewContext creates a context without geometry, with its random stream
// seeded by seed.
func NewContext(seed uint32) *Context {
	return &Context{
		Mode:    Forward,
		top:     NoNode,
		current: NoNode,
		random:  rand.NewGenerator(seed),
		fields:  map[NodeID]*fieldSample{},
	}
}

// Set attaches tree to the context, with top as the node navigation starts
// from. top need not be a root: searches which leave it go on through its
// mothers, as GlobalField does.
func (ctx *Context) Set(tree *Tree, top NodeID) {
	tree.check(top)
	ctx.tree, ctx.top, ctx.current = tree, top, top
	ctx.clearFields()
}

// Geometry returns the attached tree and its starting node.
func (ctx *Context) Geometry() (*Tree, NodeID) { return ctx.tree, ctx.top }

// Current returns the node where the last particle was found.
func (ctx *Context) Current() NodeID { return ctx.current }

// Detach removes the geometry from the context without destroying it.
func (ctx *Context) Detach() {
	ctx.tree, ctx.top, ctx.current = nil, NoNode, NoNode
	ctx.clearFields()
}

// Reset restarts navigation from the starting node and drops all cached samples.
// The attached tree is reset as well.
func (ctx *Context) Reset() {
	ctx.current = ctx.top
	ctx.clearFields()
	if ctx.tree != nil {
		ctx.tree.Reset()
	}
}

// Destroy destroys the attached tree and detaches it.
func (ctx *Context) Destroy() error {
	var err error
	if ctx.tree != nil {
		err = ctx.tree.Destroy()
	}
	ctx.Detach()
	return err
}

// SetCallback registers a navigation callback. A nil cb removes it.
func (ctx *Context) SetCallback(cb Callback) { ctx.callback = cb }

// Seed reseeds the random stream of the context.
func (ctx *Context) Seed(seed uint32) { ctx.random.Seed(seed) }

// Uniform01 draws a number in [0, 1) from the random stream of the context.
func (ctx *Context) Uniform01() float64 { return ctx.random.Uniform01() }

func (ctx *Context) clearFields() {
	for id := range ctx.fields {
		delete(ctx.fields, id)
	}
}

func (ctx *Context) fieldCache(id NodeID) *fieldSample {
	c, ok := ctx.fields[id]
	if !ok {
		c = &fieldSample{}
		ctx.fields[id] = c
	}
	return c
}

// GlobalField returns the magnetic field of the closest node, starting at
// the current node and going up through its mothers, which provides one,
// together with the distance over which it may be reused. A nil context or
// a geometry without field sources gives a zero field and a zero step.
func (ctx *Context) GlobalField(st *State) ([3]float64, float64, error) {
	if ctx == nil || ctx.tree == nil {
		return [3]float64{}, 0, nil
	}
	id := ctx.current
	if id == NoNode || int(id) >= ctx.tree.Len() {
		id = ctx.top
	}
	for ; id != NoNode; id = ctx.tree.nodes[id].mother {
		if f, ok := ctx.tree.nodes[id].shape.(fieldShape); ok && f.hasField() {
			return f.field(ctx, id, st)
		}
	}
	return [3]float64{}, 0, nil
}

// localField samples a snapshot at st and rotates the field from the local
// East-North-Up frame to absolute coordinates.
func localField(s magnet.Snapshot, st *State) ([3]float64, error) {
	lat, lon, alt := st.Geodetic()
	enu, err := s.Field(lat, lon, alt)
	if err != nil {
		return [3]float64{}, err
	}

	origin := geom.CartesianPoint{X: st.Position[0], Y: st.Position[1], Z: st.Position[2]}
	frame := geom.LocalFrame(origin, geom.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: alt})
	b := geom.CartesianVector{X: enu[0], Y: enu[1], Z: enu[2], Frame: frame}
	return b.Transform(nil).Array(), nil
}
