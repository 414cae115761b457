package io

import (
	"bufio"
	"errors"
	"os"
	"sort"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/flux"
	"github.com/phil-mansfield/geonav/geom"
	"github.com/phil-mansfield/geonav/topo"
)

// Geometry is a navigation tree built from a trace configuration.
type Geometry struct {
	Tree  *geonav.Tree
	Root  geonav.NodeID
	Nodes map[string]geonav.NodeID
	Media map[string]geonav.Medium
}

// ReadTraceConfig reads and checks a trace configuration file.
func ReadTraceConfig(fname string) (*TraceWrapper, error) {
	wrap := DefaultTraceWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}

// ParseTraceConfig is ReadTraceConfig for configurations held in memory.
func ParseTraceConfig(s string) (*TraceWrapper, error) {
	wrap := DefaultTraceWrapper()
	if err := gcfg.ReadStringInto(wrap, s); err != nil {
		return nil, err
	}
	if err := wrap.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}

// ReadFluxConfig reads and checks a flux configuration file.
func ReadFluxConfig(fname string) (*FluxConfig, error) {
	wrap := DefaultFluxWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Flux.CheckInit(); err != nil {
		return nil, err
	}
	return &wrap.Flux, nil
}

type nodeEntry struct {
	kind, name string
	node       *NodeConfig
	frame      string
}

// nodes lists every geometry node, sorted by name.
func (wrap *TraceWrapper) nodes() []nodeEntry {
	var out []nodeEntry
	for name, c := range wrap.Infinite {
		out = append(out, nodeEntry{"Infinite", name, &c.NodeConfig, ""})
	}
	for name, c := range wrap.Box {
		out = append(out, nodeEntry{"Box", name, &c.NodeConfig, c.Frame})
	}
	for name, c := range wrap.Polyhedron {
		out = append(out, nodeEntry{"Polyhedron", name, &c.NodeConfig, c.Frame})
	}
	for name, c := range wrap.Earth {
		out = append(out, nodeEntry{"Earth", name, &c.NodeConfig, ""})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (wrap *TraceWrapper) hasMedium(name string) bool {
	_, ok := wrap.Medium[name]
	return ok || name == TransparentMedium
}

// CheckInit checks every section and the references between them.
func (wrap *TraceWrapper) CheckInit() error {
	if err := wrap.Run.CheckInit(); err != nil {
		return err
	}
	for name, med := range wrap.Medium {
		if name == TransparentMedium {
			return configErr("'%s' is a reserved Medium name.", name)
		}
		if err := med.CheckInit(name); err != nil {
			return err
		}
	}
	for name, fc := range wrap.Frame {
		if err := fc.CheckInit(name); err != nil {
			return err
		}
	}
	for name, c := range wrap.Infinite {
		if err := c.CheckInit(name); err != nil {
			return err
		}
	}
	for name, c := range wrap.Box {
		if err := c.CheckInit(name); err != nil {
			return err
		}
	}
	for name, c := range wrap.Polyhedron {
		if err := c.CheckInit(name); err != nil {
			return err
		}
	}
	for name, c := range wrap.Earth {
		if err := c.CheckInit(name); err != nil {
			return err
		}
		for _, m := range c.LayerMedium {
			if _, ok := wrap.Medium[m]; !ok {
				return configErr("Earth '%s' uses the unknown Medium '%s'.", name, m)
			}
		}
	}

	nodes := wrap.nodes()
	byName := map[string]*NodeConfig{}
	for i, n := range nodes {
		if i > 0 && nodes[i-1].name == n.name {
			return configErr(
				"%s '%s' and %s '%s' have the same name.",
				nodes[i-1].kind, n.name, n.kind, n.name,
			)
		}
		byName[n.name] = n.node

		if n.node.Medium != "" && !wrap.hasMedium(n.node.Medium) {
			return configErr("%s '%s' uses the unknown Medium '%s'.", n.kind, n.name, n.node.Medium)
		}
		if n.frame != "" {
			if _, ok := wrap.Frame[n.frame]; !ok {
				return configErr("%s '%s' uses the unknown Frame '%s'.", n.kind, n.name, n.frame)
			}
		}
	}

	for _, n := range nodes {
		seen := map[string]bool{n.name: true}
		for m := n.node.Mother; m != ""; m = byName[m].Mother {
			if _, ok := byName[m]; !ok {
				return configErr("%s '%s' has the unknown Mother '%s'.", n.kind, n.name, m)
			} else if seen[m] {
				return configErr("The Mother of %s '%s' is one of its daughters.", n.kind, n.name)
			}
			seen[m] = true
		}
	}

	if _, ok := byName[wrap.Run.Root]; !ok {
		return configErr("Root '%s' is not a geometry node.", wrap.Run.Root)
	}
	return nil
}

// Build creates the media and the geometry tree of a checked configuration.
// Node ids follow the order of node names and daughters are pushed by
// increasing Order, then name.
func (wrap *TraceWrapper) Build() (*Geometry, error) {
	g := &Geometry{
		Tree:  geonav.NewTree(),
		Nodes: map[string]geonav.NodeID{},
		Media: map[string]geonav.Medium{TransparentMedium: geonav.Transparent},
	}
	for name, med := range wrap.Medium {
		g.Media[name] = med.Medium()
	}
	frames := map[string]*geom.Frame{}
	for name, fc := range wrap.Frame {
		frames[name] = fc.Frame()
	}

	nodes := wrap.nodes()
	for _, n := range nodes {
		shape, err := wrap.shape(n, g.Media, frames)
		if err != nil {
			return nil, abort(g.Tree, err)
		}
		g.Nodes[n.name] = g.Tree.Add(shape)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].node.Order < nodes[j].node.Order
	})
	for _, n := range nodes {
		if n.node.Mother != "" {
			g.Tree.Push(g.Nodes[n.node.Mother], g.Nodes[n.name])
		}
	}

	g.Root = g.Nodes[wrap.Run.Root]
	return g, nil
}

// abort destroys a partially built tree, keeping err and any error raised
// while closing its shapes.
func abort(tree *geonav.Tree, err error) error {
	if derr := tree.Destroy(); derr != nil {
		return errors.Join(err, derr)
	}
	return err
}

func (wrap *TraceWrapper) shape(
	n nodeEntry, media map[string]geonav.Medium, frames map[string]*geom.Frame,
) (geonav.Shape, error) {
	var med geonav.Medium
	if n.node.Medium != "" {
		med = media[n.node.Medium]
	}

	switch n.kind {
	case "Infinite":
		return &geonav.Infinite{Medium: med}, nil
	case "Box":
		return geonav.NewPolyhedron(med, wrap.Box[n.name].Faces(frames[n.frame])), nil
	case "Polyhedron":
		return geonav.NewPolyhedron(med, wrap.Polyhedron[n.name].Faces(frames[n.frame])), nil
	}

	c := wrap.Earth[n.name]
	stepper, err := topo.NewLayeredStepper(c.Layer, c.Geoid)
	if err != nil {
		return nil, configErr("Earth '%s': %s", n.name, err.Error())
	}
	layers := make([]geonav.Medium, len(c.LayerMedium))
	for i, m := range c.LayerMedium {
		layers[i] = media[m]
	}
	return geonav.NewEarth(stepper, layers, c.Snapshot()), nil
}

// Tabulation loads the flux table of con, or the built-in one if no Table
// is given.
func (con *FluxConfig) Tabulation() (*flux.Tabulation, error) {
	if !con.ValidTable() {
		return flux.Default(), nil
	}
	if !strings.HasSuffix(con.Table, ".bin") {
		return flux.ReadTable(con.Table, con.NK, con.NC)
	}

	f, err := os.Open(con.Table)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return flux.Decode(bufio.NewReader(f))
}
