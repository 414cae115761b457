package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/flux"
	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
	"github.com/stretchr/testify/assert"
)

const baseConfig = `[Run]
Root = world
Steps = 1
DirX = 1

[Medium "a"]
Kind = Uniform
Density = 1

[Medium "b"]
Kind = Uniform
Material = 1
Density = 5

[Infinite "world"]
Medium = a
`

func TestExampleTrace(t *testing.T) {
	wrap, err := ParseTraceConfig(ExampleTraceFile)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, 200, wrap.Run.Steps)
	assert.Equal(t, geonav.Forward, wrap.Run.NavigationMode())
	assert.Equal(t, int64(5489), wrap.Run.Seed)

	g, err := wrap.Build()
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, 2, g.Tree.Len())
	assert.Equal(t, []geonav.NodeID{g.Nodes["hall"]}, g.Tree.Daughters(g.Nodes["world"]))

	ctx := geonav.NewContext(uint32(wrap.Run.Seed))
	ctx.Set(g.Tree, g.Root)

	st := wrap.Run.State()
	m, _, err := ctx.Locate(st)
	assert.Nil(t, err)
	assert.True(t, m == g.Media["air"])

	table := []struct {
		alt  float64
		m    string
		step float64
	}{
		{-10, "rock", 10},
		{500, "lab", 5},
		{502, "lab", 3},
		{50, "air", 50},
	}
	for i, test := range table {
		st := geonav.NewState(topo.FromGeodetic(0, 0, test.alt), [3]float64{1, 0, 0})
		m, step, err := ctx.Locate(st)
		if err != nil {
			t.Errorf("%d) unexpected error %v", i+1, err)
			continue
		}
		if m != g.Media[test.m] {
			t.Errorf("%d) altitude %g: got %v, expected %s", i+1, test.alt, m, test.m)
		}
		if test.step > 0 && math.Abs(step-test.step) > 1e-6 {
			t.Errorf("%d) altitude %g: step = %g, expected %g", i+1, test.alt, step, test.step)
		}
	}

	assert.Nil(t, ctx.Destroy())
}

func TestBuildOrder(t *testing.T) {
	s := baseConfig + `
[Box "b1"]
Mother = world
Medium = b
Order = 2
XWidth = 1
YWidth = 1
ZWidth = 1

[Box "b2"]
Mother = world
Medium = Transparent
Order = 1
XWidth = 4
YWidth = 4
ZWidth = 4

[Box "b3"]
Mother = world
Medium = b
Order = 1
X = 10
XWidth = 1
YWidth = 1
ZWidth = 1

[Polyhedron "slab"]
Mother = b2
Medium = b
Face = 0 0 0.5 0 0 1
Face = 0 0 -0.5 0 0 -1
`
	wrap, err := ParseTraceConfig(s)
	if !assert.Nil(t, err) {
		return
	}
	g, err := wrap.Build()
	if !assert.Nil(t, err) {
		return
	}

	assert.Equal(t, []geonav.NodeID{g.Nodes["b2"], g.Nodes["b3"], g.Nodes["b1"]},
		g.Tree.Daughters(g.Nodes["world"]))
	assert.Equal(t, g.Nodes["b2"], g.Tree.Mother(g.Nodes["slab"]))
	// Ids follow names.
	assert.Equal(t, geonav.NodeID(0), g.Nodes["b1"])
	assert.Equal(t, geonav.NodeID(4), g.Nodes["world"])

	ctx := geonav.NewContext(1)
	ctx.Set(g.Tree, g.Root)

	table := []struct {
		pos, dir [3]float64
		m        string
		step     float64
	}{
		{[3]float64{0, 0, 0}, [3]float64{0, 0, 1}, "b", 0.5},
		{[3]float64{1.5, 0, 1}, [3]float64{0, 0, 1}, "a", 0},
		{[3]float64{10, 0, 0}, [3]float64{1, 0, 0}, "b", 0.5},
	}
	for i, test := range table {
		m, step, err := ctx.Locate(geonav.NewState(test.pos, test.dir))
		if err != nil {
			t.Errorf("%d) unexpected error %v", i+1, err)
			continue
		}
		if m != g.Media[test.m] {
			t.Errorf("%d) Locate(%v) = %v, expected %s", i+1, test.pos, m, test.m)
		}
		if test.step > 0 && math.Abs(step-test.step) > 1e-9 {
			t.Errorf("%d) Locate(%v) step = %g, expected %g", i+1, test.pos, step, test.step)
		}
	}
}

func TestFrames(t *testing.T) {
	s := baseConfig + `
[Frame "shifted"]
X = 10
Psi = 1.5707963267948966

[Box "box"]
Mother = world
Medium = b
Frame = shifted
X = 1
XWidth = 1
YWidth = 1
ZWidth = 1
`
	wrap, err := ParseTraceConfig(s)
	if !assert.Nil(t, err) {
		return
	}
	g, err := wrap.Build()
	if !assert.Nil(t, err) {
		return
	}
	ctx := geonav.NewContext(1)
	ctx.Set(g.Tree, g.Root)

	// The frame maps its x axis onto -y.
	m, _, err := ctx.Locate(geonav.NewState([3]float64{10, -1, 0}, [3]float64{1, 0, 0}))
	assert.Nil(t, err)
	assert.True(t, m == g.Media["b"])

	m, _, err = ctx.Locate(geonav.NewState([3]float64{11, 0, 0}, [3]float64{1, 0, 0}))
	assert.Nil(t, err)
	assert.True(t, m == g.Media["a"])
}

func TestConfigErrors(t *testing.T) {
	table := []struct {
		name, extra string
	}{
		{"unknown medium", "[Box \"x\"]\nMother = world\nMedium = c\nXWidth = 1\nYWidth = 1\nZWidth = 1\n"},
		{"unknown mother", "[Infinite \"x\"]\nMother = nowhere\n"},
		{"cycle", "[Infinite \"x\"]\nMother = y\n[Infinite \"y\"]\nMother = x\n"},
		{"own mother", "[Infinite \"x\"]\nMother = x\n"},
		{"duplicate name", "[Box \"world\"]\nXWidth = 1\nYWidth = 1\nZWidth = 1\n"},
		{"bad kind", "[Medium \"c\"]\nKind = Plasma\n"},
		{"bad gradient", "[Medium \"c\"]\nKind = Gradient\nGradient = Cubic\nLambda = 1\nRho0 = 1\n"},
		{"zero lambda", "[Medium \"c\"]\nKind = Gradient\nGradient = Linear\nRho0 = 1\n"},
		{"reserved medium", "[Medium \"Transparent\"]\nKind = Uniform\n"},
		{"flat box", "[Box \"x\"]\nXWidth = 1\nYWidth = 1\n"},
		{"bad face", "[Polyhedron \"x\"]\nFace = 0 0 0 1 0\n"},
		{"zero normal", "[Polyhedron \"x\"]\nFace = 0 0 0 0 0 0\n"},
		{"layer media", "[Earth \"x\"]\nLayer = 0\nLayer = 1\nLayerMedium = a\n"},
		{"earth medium", "[Earth \"x\"]\nMedium = a\nLayer = 0\nLayerMedium = a\n"},
		{"unknown layer medium", "[Earth \"x\"]\nLayer = 0\nLayerMedium = c\n"},
		{"bad magnet", "[Earth \"x\"]\nLayer = 0\nLayerMedium = a\nMagnet = Quadrupole\n"},
		{"wmm without date", "[Earth \"x\"]\nLayer = 0\nLayerMedium = a\nMagnet = WMM\n"},
		{"wmm bad date", "[Earth \"x\"]\nLayer = 0\nLayerMedium = a\nMagnet = WMM\nDate = 1/6/2022\n"},
		{"wmm old date", "[Earth \"x\"]\nLayer = 0\nLayerMedium = a\nMagnet = WMM\nDate = 1990-01-01\n"},
		{"unknown frame", "[Box \"x\"]\nFrame = f\nXWidth = 1\nYWidth = 1\nZWidth = 1\n"},
		{"rotated geodetic frame", "[Frame \"f\"]\nGeodetic = true\nPhi = 1\n"},
	}

	for i, test := range table {
		_, err := ParseTraceConfig(baseConfig + test.extra)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%d) %s: expected a configuration error, got %v", i+1, test.name, err)
		}
	}

	runs := []struct {
		name, run string
	}{
		{"no root", "[Run]\nSteps = 1\nDirX = 1\n"},
		{"unknown root", "[Run]\nRoot = nowhere\nSteps = 1\nDirX = 1\n"},
		{"no steps", "[Run]\nRoot = world\nDirX = 1\n"},
		{"bad mode", "[Run]\nRoot = world\nSteps = 1\nDirX = 1\nMode = Sideways\n"},
		{"no direction", "[Run]\nRoot = world\nSteps = 1\n"},
		{"negative max step", "[Run]\nRoot = world\nSteps = 1\nDirX = 1\nMaxStep = -1\n"},
		{"negative kinetic", "[Run]\nRoot = world\nSteps = 1\nDirX = 1\nKinetic = -1\n"},
		{"large seed", "[Run]\nRoot = world\nSteps = 1\nDirX = 1\nSeed = 4294967296\n"},
	}
	for i, test := range runs {
		_, err := ParseTraceConfig(test.run + "[Infinite \"world\"]\n")
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%d) %s: expected a configuration error, got %v", i+1, test.name, err)
		}
	}

	// Unknown variables are rejected by the parser itself.
	_, err := ParseTraceConfig(baseConfig + "[Box \"x\"]\nRadius = 3\n")
	assert.NotNil(t, err)
}

func TestEarthMagnet(t *testing.T) {
	from, _, err := magnet.WMMValidity()
	if !assert.Nil(t, err) {
		return
	}
	date := from.AddDate(1, 0, 0).Format(DateLayout)

	table := []struct {
		magnet string
		want   magnet.Snapshot
	}{
		{"", nil},
		{"Dipole", magnet.NewDipole()},
		{"uniform\nFieldUp = -4e-5", magnet.Uniform{0, 0, -4e-5}},
		{"WMM\nDate = " + date, magnet.NewWMM(from.AddDate(1, 0, 0))},
	}

	for i, test := range table {
		s := baseConfig + "[Earth \"x\"]\nLayer = 0\nLayerMedium = a\nMagnet = " + test.magnet + "\n"
		wrap, err := ParseTraceConfig(s)
		if err != nil {
			t.Errorf("%d) unexpected error %v", i+1, err)
			continue
		}
		assert.Equal(t, test.want, wrap.Earth["x"].Snapshot(), "%d)", i+1)
	}
}

type failingCloser struct{ closed bool }

func (c *failingCloser) Locate(ctx *geonav.Context, st *geonav.State) (geonav.Medium, float64, error) {
	return nil, 0, nil
}

func (c *failingCloser) Close() error {
	c.closed = true
	return errClose
}

var errClose = errors.New("close failed")

func TestBuildAbort(t *testing.T) {
	// Layer tops are checked when the stepper is created.
	wrap, err := ParseTraceConfig(baseConfig + "[Earth \"x\"]\nLayer = 1\nLayer = 0\n" +
		"LayerMedium = a\nLayerMedium = b\n")
	if !assert.Nil(t, err) {
		return
	}
	_, err = wrap.Build()
	assert.True(t, errors.Is(err, ErrConfig))

	// Errors raised while tearing the tree down are kept.
	loc := &failingCloser{}
	tree := geonav.NewTree()
	tree.Add(&geonav.User{Locator: loc})
	err = abort(tree, ErrConfig)
	assert.True(t, loc.closed)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.True(t, errors.Is(err, errClose))

	assert.Equal(t, ErrConfig, abort(geonav.NewTree(), ErrConfig))
}

func TestRunState(t *testing.T) {
	con := &RunConfig{DirX: 3, DirY: 4, X: 1, Y: 2, Z: 3, Kinetic: 5, Charge: 1}
	st := con.State()
	assert.Equal(t, [3]float64{1, 2, 3}, st.Position)
	assert.Equal(t, 5.0, st.Kinetic)
	assert.Equal(t, 1.0, st.Charge)
	assert.InDelta(t, 0.6, st.Direction[0], 1e-15)
	assert.InDelta(t, 0.8, st.Direction[1], 1e-15)

	con = &RunConfig{Geodetic: true, Latitude: 0, Longitude: 90, Altitude: 10, Elevation: 90, Mode: "backward"}
	st = con.State()
	assert.InDelta(t, topo.SemiMajorAxis+10, st.Position[1], 1e-6)
	assert.InDelta(t, 1, st.Direction[1], 1e-12)
	assert.Equal(t, geonav.Backward, con.NavigationMode())
}

func TestTrackRoundTrip(t *testing.T) {
	con := &DefaultTraceWrapper().Run
	con.DirZ = 1
	con.Kinetic, con.Charge = 10, -1
	st := con.State()
	run := NewRunInfo(con, st)
	assert.Equal(t, 10.0, run.Kinetic)
	assert.Equal(t, -1.0, run.Charge)

	a := geonav.NewUniform(3, 2.5, [3]float64{})
	samples := []TrackSample{
		NewTrackSample(st, a, geonav.Locals{Density: 2.5, Magnet: [3]float64{0, 0, 1e-5}}, 10),
		NewTrackSample(st, nil, geonav.Locals{}, 0),
	}
	assert.Equal(t, int64(3), samples[0].Material)
	assert.Equal(t, int64(-1), samples[1].Material)

	buf := &bytes.Buffer{}
	assert.Nil(t, WriteTrack(buf, run, samples))

	hd, out, err := ReadTrack(bytes.NewReader(buf.Bytes()))
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, run, hd.Run)
	assert.Equal(t, int64(2), hd.Steps)
	assert.Equal(t, int64(-1), hd.Type.Endianness)
	assert.Equal(t, samples, out)

	// Corrupted flags and sizes.
	bad := append([]byte(nil), buf.Bytes()...)
	binary.LittleEndian.PutUint64(bad, 7)
	_, _, err = ReadTrack(bytes.NewReader(bad))
	assert.NotNil(t, err)

	bad = append([]byte(nil), buf.Bytes()...)
	binary.LittleEndian.PutUint64(bad[8:], 12)
	_, _, err = ReadTrack(bytes.NewReader(bad))
	assert.NotNil(t, err)

	_, _, err = ReadTrack(bytes.NewReader(buf.Bytes()[:len(buf.Bytes())-4]))
	assert.NotNil(t, err)
}

func TestFluxConfig(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "flux.gcfg")
	assert.Nil(t, os.WriteFile(fname, []byte(ExampleFluxFile), 0644))

	con, err := ReadFluxConfig(fname)
	if !assert.Nil(t, err) {
		return
	}
	ks := con.Energies()
	assert.Equal(t, 41, len(ks))
	assert.InDelta(t, 1, ks[0], 1e-12)
	assert.InDelta(t, 10, ks[10], 1e-9)
	assert.InDelta(t, 1e4, ks[40], 1e-8)
	assert.False(t, con.ValidTable())

	table := []struct {
		body string
	}{
		{"[Flux]\nKMin = 0\n"},
		{"[Flux]\nKMin = 10\nKMax = 1\n"},
		{"[Flux]\nN = 1\n"},
		{"[Flux]\nCosTheta = 1.5\n"},
		{"[Flux]\nTable = flux.txt\n"},
	}
	for i, test := range table {
		assert.Nil(t, os.WriteFile(fname, []byte(test.body), 0644))
		if _, err := ReadFluxConfig(fname); !errors.Is(err, ErrConfig) {
			t.Errorf("%d) expected a configuration error, got %v", i+1, err)
		}
	}
}

func TestFluxTabulation(t *testing.T) {
	con := &DefaultFluxWrapper().Flux
	tab, err := con.Tabulation()
	assert.Nil(t, err)
	assert.True(t, tab == flux.Default())

	fname := filepath.Join(t.TempDir(), "flux.bin")
	f, err := os.Create(fname)
	if !assert.Nil(t, err) {
		return
	}
	assert.Nil(t, flux.Encode(f, flux.Default(), flux.DefaultEndiannessFlag))
	assert.Nil(t, f.Close())

	con.Table = fname
	tab, err = con.Tabulation()
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, flux.Default().Data, tab.Data)
	assert.Equal(t, 1.0, con.CosTheta)
	assert.Equal(t, flux.Default().Get(10, 1, 0), tab.Get(10, 1, 0))

	con.Table = filepath.Join(t.TempDir(), "missing.bin")
	_, err = con.Tabulation()
	assert.NotNil(t, err)
}
