package main

import (
	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/io"
)

// trace follows a straight ray through the geometry. Every step goes as far
// as the smallest of the navigation bound, the medium's own bound and
// MaxStep. The ray stops early when it leaves all media.
func trace(con *io.RunConfig, g *io.Geometry, cb geonav.Callback) ([]io.TrackSample, error) {
	ctx := geonav.NewContext(uint32(con.Seed))
	ctx.Mode = con.NavigationMode()
	ctx.Set(g.Tree, g.Root)
	ctx.SetCallback(cb)
	defer ctx.Detach()

	sign := 1.0
	if ctx.Mode == geonav.Backward {
		sign = -1
	}

	st := con.State()
	samples := make([]io.TrackSample, 0, con.Steps)
	for i := 0; i < con.Steps; i++ {
		m, step, err := ctx.Locate(st)
		if err != nil {
			return samples, err
		}
		if m == nil {
			samples = append(samples, io.NewTrackSample(st, nil, geonav.Locals{}, 0))
			break
		}

		locals, localStep, err := m.Locals(ctx, st)
		if err != nil {
			return samples, err
		}

		ds := con.MaxStep
		if step > 0 && step < ds {
			ds = step
		}
		if localStep > 0 && localStep < ds {
			ds = localStep
		}
		samples = append(samples, io.NewTrackSample(st, m, locals, ds))

		for j := range st.Position {
			st.Position[j] += sign * ds * st.Direction[j]
		}
		st.Distance += ds
	}
	return samples, nil
}
