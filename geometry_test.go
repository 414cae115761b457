package geonav

import (
	"errors"
	"math"
	"testing"

	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
	"github.com/stretchr/testify/assert"
)

func TestEarthLayers(t *testing.T) {
	stepper, err := topo.NewLayeredStepper([]float64{-1000, 0}, false)
	assert.Nil(t, err)

	air := NewUniform(0, 1.2, [3]float64{})
	deep := NewUniform(1, 3.0, [3]float64{})
	shallow := NewUniform(2, 2.0, [3]float64{})

	tree := NewTree()
	root := tree.Add(&Infinite{Medium: air})
	earth := tree.Add(NewEarth(stepper, []Medium{deep, shallow}, nil))
	tree.Push(root, earth)

	ctx := NewContext(1)
	ctx.Set(tree, root)

	table := []struct {
		alt     float64
		m       Medium
		step    float64
		current NodeID
	}{
		{-500, shallow, 500, earth},
		{-2000, deep, 1000, earth},
		{-100, shallow, 100, earth},
		// Above ground, the root answers alone, without a bound.
		{100, air, 0, root},
		{-1200, deep, 200, earth},
	}

	for i, test := range table {
		st := NewState(topo.FromGeodetic(20, 30, test.alt), [3]float64{0, 0, 1})
		m, step, err := ctx.Locate(st)
		if err != nil {
			t.Errorf("%d) unexpected error %v", i+1, err)
			continue
		}
		if m != test.m {
			t.Errorf("%d) altitude %g: got %v, expected %v", i+1, test.alt, m, test.m)
		}
		if math.Abs(step-test.step) > 1e-6 {
			t.Errorf("%d) altitude %g: step = %g, expected %g", i+1, test.alt, step, test.step)
		}
		if ctx.Current() != test.current {
			t.Errorf("%d) altitude %g: current = %d, expected %d",
				i+1, test.alt, ctx.Current(), test.current)
		}

		// The stepper fills the geodetic cache of the state.
		lat, lon, alt := st.Geodetic()
		assert.InDelta(t, 20, lat, 1e-9)
		assert.InDelta(t, 30, lon, 1e-9)
		assert.InDelta(t, test.alt, alt, 1e-6)
	}
}

func TestEarthSingleLayer(t *testing.T) {
	stepper, _ := topo.NewLayeredStepper([]float64{0}, false)
	ground := NewUniform(0, 2.65e3, [3]float64{})

	tree := NewTree()
	earth := tree.Add(NewEarth(stepper, []Medium{ground}, nil))
	ctx := NewContext(1)
	ctx.Set(tree, earth)

	m, step, err := ctx.Locate(NewState(topo.FromGeodetic(0, 0, -10), [3]float64{1, 0, 0}))
	assert.Nil(t, err)
	assert.True(t, m == Medium(ground))
	assert.InDelta(t, 10, step, 1e-6)

	m, _, err = ctx.Locate(NewState(topo.FromGeodetic(0, 0, 10), [3]float64{1, 0, 0}))
	assert.Nil(t, err)
	assert.Nil(t, m)

	// Without media, an Earth never claims anything.
	tree2 := NewTree()
	ctx.Set(tree2, tree2.Add(NewEarth(stepper, nil, nil)))
	m, _, err = ctx.Locate(NewState(topo.FromGeodetic(0, 0, -10), [3]float64{1, 0, 0}))
	assert.Nil(t, err)
	assert.Nil(t, m)
}

type failingStepper struct {
	err error
}

func (s failingStepper) Step(r [3]float64) (topo.Step, error) { return topo.Step{}, s.err }
func (s failingStepper) Close() error                          { return s.err }

func TestEarthError(t *testing.T) {
	fail := failingStepper{errors.New("no topography")}
	tree := NewTree()
	root := tree.Add(&Infinite{Medium: NewUniform(0, 1, [3]float64{})})
	earth := tree.Add(NewEarth(fail, []Medium{NewUniform(1, 2, [3]float64{})}, nil))
	tree.Push(root, earth)

	ctx := NewContext(1)
	ctx.Set(tree, root)
	m, _, err := ctx.Locate(NewState(topo.FromGeodetic(0, 0, 0), [3]float64{1, 0, 0}))
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, fail.err))

	assert.True(t, errors.Is(tree.Destroy(), fail.err))
	assert.Equal(t, 0, tree.Len())
}

type countingSnapshot struct {
	field magnet.Snapshot
	calls int
}

func (s *countingSnapshot) Field(lat, lon, alt float64) ([3]float64, error) {
	s.calls++
	return s.field.Field(lat, lon, alt)
}

func TestEarthField(t *testing.T) {
	stepper, _ := topo.NewLayeredStepper([]float64{0, 1e5}, false)
	rock := NewUniform(0, 2.65e3, [3]float64{})
	air := NewUniform(1, 1.2, [3]float64{1, 1, 1})
	snap := &countingSnapshot{field: magnet.Uniform{1, 2, 3}}

	tree := NewTree()
	earth := tree.Add(NewEarth(stepper, []Medium{rock, air}, snap))
	ctx := NewContext(1)
	ctx.Set(tree, earth)

	// At (0, 0), East, North and Up are y, z and x.
	table := []struct {
		distance float64
		calls    int
	}{
		{0, 1},
		{500, 1},
		{999, 1},
		{1000, 2},
		{1500, 2},
		// A new track.
		{10, 3},
		{20, 3},
	}

	for i, test := range table {
		st := NewState(topo.FromGeodetic(0, 0, 100), [3]float64{1, 0, 0})
		st.Distance = test.distance
		m, _, err := ctx.Locate(st)
		if err != nil || m != Medium(air) {
			t.Fatalf("%d) Locate = %v, %v", i+1, m, err)
		}

		locals, step, err := m.Locals(ctx, st)
		assert.Nil(t, err)
		assert.Equal(t, GeomagnetUpdateDistance, step)
		assertVecEqual(t, [3]float64{4, 2, 3}, locals.Magnet, 1e-12)
		if snap.calls != test.calls {
			t.Errorf("%d) %d snapshot samples, expected %d", i+1, snap.calls, test.calls)
		}
	}

	ctx.Reset()
	st := NewState(topo.FromGeodetic(0, 0, 100), [3]float64{1, 0, 0})
	st.Distance = 20
	ctx.Locate(st)
	air.Locals(ctx, st)
	assert.Equal(t, 4, snap.calls)

	// Each context keeps its own samples.
	ctx2 := NewContext(2)
	ctx2.Set(tree, earth)
	ctx2.Locate(st)
	air.Locals(ctx2, st)
	assert.Equal(t, 5, snap.calls)
}

func TestGlobalFieldMothers(t *testing.T) {
	stepper, _ := topo.NewLayeredStepper([]float64{0, 1e5}, false)
	rock := NewUniform(0, 2.65e3, [3]float64{})
	air := NewUniform(1, 1.2, [3]float64{})
	lab := NewUniform(2, 1.0, [3]float64{})

	tree := NewTree()
	earth := tree.Add(NewEarth(stepper, []Medium{rock, air}, magnet.Uniform{0, 0, 1}))
	center := topo.FromGeodetic(0, 0, 100)
	box := tree.Add(NewBox(lab, center, [3]float64{10, 10, 10}))
	tree.Push(earth, box)

	ctx := NewContext(1)
	ctx.Set(tree, earth)
	st := NewState(center, [3]float64{1, 0, 0})
	m, _, err := ctx.Locate(st)
	assert.Nil(t, err)
	assert.True(t, m == Medium(lab))
	assert.Equal(t, box, ctx.Current())

	b, step, err := ctx.GlobalField(st)
	assert.Nil(t, err)
	assert.Equal(t, GeomagnetUpdateDistance, step)
	assertVecEqual(t, [3]float64{1, 0, 0}, b, 1e-12)

	var nilCtx *Context
	b, step, err = nilCtx.GlobalField(st)
	assert.Nil(t, err)
	assert.Equal(t, [3]float64{}, b)
	assert.Equal(t, 0.0, step)
}

func TestTreeLinks(t *testing.T) {
	tree := NewTree()
	var ids []NodeID
	for i := 0; i < 5; i++ {
		ids = append(ids, tree.Add(&Infinite{}))
	}
	tree.Push(ids[0], ids[2])
	tree.Push(ids[0], ids[1])
	tree.Push(ids[0], ids[4])
	tree.Push(ids[1], ids[3])

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, []NodeID{ids[2], ids[1], ids[4]}, tree.Daughters(ids[0]))
	assert.Equal(t, []NodeID{ids[3]}, tree.Daughters(ids[1]))
	assert.Nil(t, tree.Daughters(ids[2]))
	assert.Equal(t, NoNode, tree.Mother(ids[0]))
	assert.Equal(t, ids[1], tree.Mother(ids[3]))

	panics := []struct {
		name string
		f    func()
	}{
		{"second mother", func() { tree.Push(ids[2], ids[3]) }},
		{"cycle", func() { tree.Push(ids[3], ids[0]) }},
		{"self", func() { tree.Push(ids[2], ids[2]) }},
		{"unknown mother", func() { tree.Push(17, ids[2]) }},
		{"unknown daughter", func() { tree.Push(ids[0], -3) }},
		{"nil shape", func() { tree.Add(nil) }},
		{"unknown top", func() { NewContext(1).Set(tree, 5) }},
	}
	for i, test := range panics {
		assert.Panics(t, test.f, "%d) %s", i+1, test.name)
	}
}

type orderedCloser struct {
	name  string
	order *[]string
	err   error
}

func (c *orderedCloser) Locate(ctx *Context, st *State) (Medium, float64, error) {
	return nil, 0, nil
}

func (c *orderedCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestTreeDestroy(t *testing.T) {
	var order []string
	errA, errB := errors.New("a"), errors.New("b")
	shape := func(name string, err error) Shape {
		return &User{Locator: &orderedCloser{name, &order, err}}
	}

	tree := NewTree()
	root := tree.Add(shape("root", nil))
	d1 := tree.Add(shape("d1", errA))
	d2 := tree.Add(shape("d2", nil))
	d11 := tree.Add(shape("d11", errB))
	tree.Add(shape("lone", nil))
	tree.Add(&Infinite{})
	tree.Push(root, d1)
	tree.Push(root, d2)
	tree.Push(d1, d11)

	err := tree.Destroy()
	assert.Equal(t, []string{"d11", "d1", "d2", "root", "lone"}, order)
	assert.True(t, errors.Is(err, errA))
	assert.True(t, errors.Is(err, errB))
	assert.Equal(t, 0, tree.Len())

	assert.Nil(t, NewTree().Destroy())
}
