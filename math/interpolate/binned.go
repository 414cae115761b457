package interpolate

import (
	"fmt"
	"math"
)

// BinnedBiLinear interpolates a table of float32 values tabulated at the bin
// centers of two axes. The value at bin (ix, iy) is
// Vals[Stride*(iy*X.N + ix) + Offset], so several interleaved tables can
// share one slice.
//
// Values are blended linearly along Y, then geometrically along X when both
// endpoints are positive and linearly otherwise. Points outside either
// axis evaluate to zero.
type BinnedBiLinear struct {
	X, Y           BinAxis
	Vals           []float32
	Stride, Offset int
}

// NewBinnedBiLinear creates an interpolator over vals. vals is not copied
// and must not be modified afterwards.
func NewBinnedBiLinear(
	x, y BinAxis, vals []float32, stride, offset int,
) *BinnedBiLinear {
	if stride <= 0 || offset < 0 || offset >= stride {
		panic(fmt.Sprintf("stride = %d and offset = %d are invalid.", stride, offset))
	} else if len(vals) < stride*x.N*y.N {
		panic(fmt.Sprintf(
			"len(vals) = %d, but stride = %d, x.N = %d, and y.N = %d",
			len(vals), stride, x.N, y.N,
		))
	}
	return &BinnedBiLinear{X: x, Y: y, Vals: vals, Stride: stride, Offset: offset}
}

func (bi *BinnedBiLinear) val(ix, iy int) float64 {
	return float64(bi.Vals[bi.Stride*(iy*bi.X.N+ix)+bi.Offset])
}

// Eval returns the interpolated value at (x, y).
func (bi *BinnedBiLinear) Eval(x, y float64) float64 {
	ix, hx, ok := bi.X.Locate(x)
	if !ok {
		return 0
	}
	iy, hy, ok := bi.Y.Locate(y)
	if !ok {
		return 0
	}
	return bi.EvalAt(ix, hx, iy, hy)
}

// EvalAt interpolates at a location found by BinAxis.Locate on both axes.
func (bi *BinnedBiLinear) EvalAt(ix int, hx float64, iy int, hy float64) float64 {
	ix1, iy1 := ix+1, iy+1
	if ix1 > bi.X.N-1 {
		ix1 = bi.X.N - 1
	}
	if iy1 > bi.Y.N-1 {
		iy1 = bi.Y.N - 1
	}

	g0 := bi.val(ix, iy)*(1-hy) + bi.val(ix, iy1)*hy
	g1 := bi.val(ix1, iy)*(1-hy) + bi.val(ix1, iy1)*hy

	if g0 <= 0 || g1 <= 0 {
		return g0*(1-hx) + g1*hx
	}
	return math.Exp(math.Log(g0)*(1-hx) + math.Log(g1)*hx)
}

// EvalAll evaluates the interpolator at all the given (x, y) pairs. If an
// output array is given, the output is written to that array (the array is
// still returned as a convenience).
func (bi *BinnedBiLinear) EvalAll(xs, ys []float64, out ...[]float64) []float64 {
	if len(out) == 0 {
		out = [][]float64{make([]float64, len(xs))}
	}
	for i := range xs {
		out[0][i] = bi.Eval(xs[i], ys[i])
	}
	return out[0]
}
