package geonav

import (
	"fmt"
)

type navigator struct {
	ctx     *Context
	st      *State
	current NodeID
}

// Locate returns the medium at st, or nil outside of all media, and an
// upper bound on the distance st may travel before the answer must be
// checked again. A bound of zero gives no distance: the caller picks its own
// step and calls Locate again after it. When bounds are combined, a zero
// bound never wins over a positive one, so a daughter's positive bound
// replaces its mother's zero.
//
// The search starts at the node where the previous particle was found, or
// at the starting node given to Set.
// Daughters of a node are searched in order and claim the point before
// their mother does. A node which does not claim the point hands the search
// over to its mother, which never goes back into the daughter it came from.
func (ctx *Context) Locate(st *State) (Medium, float64, error) {
	st.geodetic.valid = false
	if ctx.tree == nil || ctx.top == NoNode {
		return nil, 0, nil
	}

	id := ctx.current
	if id == NoNode || int(id) >= ctx.tree.Len() {
		id = ctx.top
	}

	nav := navigator{ctx: ctx, st: st, current: NoNode}
	m, step, err := nav.visit(id, NoNode)
	if err != nil {
		return nil, 0, err
	}
	if m != nil {
		ctx.current = nav.current
	}
	return m, step, nil
}

func (nav *navigator) visit(id, exclude NodeID) (Medium, float64, error) {
	n := &nav.ctx.tree.nodes[id]
	m, step, err := n.shape.locate(nav.ctx, id, nav.st)
	if err != nil {
		return nil, 0, fmt.Errorf("geonav: node %d: %w", id, err)
	}
	if nav.ctx.callback != nil {
		nav.ctx.callback(id, nav.st, m, step)
	}

	own := true
	if m != nil && n.first != NoNode {
		for d := n.first; d != NoNode; d = nav.ctx.tree.nodes[d].next {
			if d == exclude {
				continue
			}
			dm, dStep, err := nav.visit(d, id)
			if err != nil {
				return nil, 0, err
			}
			if dm != nil {
				m, step, own = dm, dStep, false
				break
			}
			if dStep > 0 && (step <= 0 || dStep < step) {
				step = dStep
			}
		}
	}

	// A transparent node never claims the point itself.
	if m == Transparent {
		m = nil
	}
	if m != nil {
		if own {
			nav.current = id
		}
		return m, step, nil
	}

	if mother := n.mother; mother != NoNode && mother != exclude {
		return nav.visit(mother, id)
	}
	return nil, step, nil
}
