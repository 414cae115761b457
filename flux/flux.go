/*package flux interpolates tabulated differential fluxes of charged
particles, as a function of kinetic energy and of the cosine of the zenith
angle, separately for both charge signs.

A Tabulation is immutable reference data and may be read concurrently.
*/
package flux

import (
	"fmt"

	"github.com/phil-mansfield/geonav/math/interpolate"
)

const (
	// Negative is the index of negative charge values within a cell.
	Negative = 0
	// Positive is the index of positive charge values within a cell.
	Positive = 1
)

// Tabulation is a flux table binned on a log kinetic energy axis, with NK
// bins between KMin and KMax, and on a linear angle axis, with NC bins
// between CMin and CMax.
//
// Data holds two values per cell, negative then positive charge, ordered
// with the energy index running fastest: the value of component q in cell
// (ik, ic) is Data[2*(ic*NK + ik) + q].
type Tabulation struct {
	NK, NC     int
	KMin, KMax float64
	CMin, CMax float64
	Data       []float32
}

// New creates a tabulation after checking that the axes and data are
// consistent. data is not copied.
func New(
	nk, nc int, kMin, kMax, cMin, cMax float64, data []float32,
) (*Tabulation, error) {
	tab := &Tabulation{
		NK: nk, NC: nc, KMin: kMin, KMax: kMax, CMin: cMin, CMax: cMax,
		Data: data,
	}
	if err := tab.check(); err != nil {
		return nil, err
	}
	return tab, nil
}

func (tab *Tabulation) check() error {
	switch {
	case tab.NK <= 0 || tab.NC <= 0:
		return fmt.Errorf("%w: grid is %d x %d", ErrFormat, tab.NK, tab.NC)
	case !(tab.KMin > 0) || !(tab.KMax > tab.KMin):
		return fmt.Errorf("%w: energy range [%g, %g]", ErrFormat, tab.KMin, tab.KMax)
	case !(tab.CMax > tab.CMin):
		return fmt.Errorf("%w: angle range [%g, %g]", ErrFormat, tab.CMin, tab.CMax)
	case len(tab.Data) != 2*tab.NK*tab.NC:
		return fmt.Errorf(
			"%w: %d values for a %d x %d grid", ErrFormat,
			len(tab.Data), tab.NK, tab.NC,
		)
	}
	return nil
}

func (tab *Tabulation) axes() (k, c interpolate.BinAxis) {
	k = interpolate.BinAxis{
		Min: tab.KMin, Max: tab.KMax, N: tab.NK, Scale: interpolate.LogScale,
	}
	c = interpolate.BinAxis{
		Min: tab.CMin, Max: tab.CMax, N: tab.NC, Scale: interpolate.LinearScale,
	}
	return k, c
}

// Component returns an interpolator over one charge component, Negative or
// Positive.
func (tab *Tabulation) Component(q int) *interpolate.BinnedBiLinear {
	k, c := tab.axes()
	return interpolate.NewBinnedBiLinear(k, c, tab.Data, 2, q)
}

// Get returns the flux at kinetic energy k and angle cosine c for particles
// of the given charge. Negative charges read the negative component,
// positive charges the positive one, and a zero charge sums both. Points
// outside the table have no flux.
func (tab *Tabulation) Get(k, c, charge float64) float64 {
	kAxis, cAxis := tab.axes()
	ik, hk, ok := kAxis.Locate(k)
	if !ok {
		return 0
	}
	ic, hc, ok := cAxis.Locate(c)
	if !ok {
		return 0
	}

	flux := 0.0
	if charge <= 0 {
		bi := interpolate.BinnedBiLinear{X: kAxis, Y: cAxis, Vals: tab.Data, Stride: 2, Offset: Negative}
		flux += bi.EvalAt(ik, hk, ic, hc)
	}
	if charge >= 0 {
		bi := interpolate.BinnedBiLinear{X: kAxis, Y: cAxis, Vals: tab.Data, Stride: 2, Offset: Positive}
		flux += bi.EvalAt(ik, hk, ic, hc)
	}
	return flux
}

// Energies returns the centers of the energy bins.
func (tab *Tabulation) Energies() []float64 {
	k, _ := tab.axes()
	out := make([]float64, tab.NK)
	for i := range out {
		out[i] = k.Center(i)
	}
	return out
}

// Cosines returns the centers of the angle bins.
func (tab *Tabulation) Cosines() []float64 {
	_, c := tab.axes()
	out := make([]float64, tab.NC)
	for i := range out {
		out[i] = c.Center(i)
	}
	return out
}
