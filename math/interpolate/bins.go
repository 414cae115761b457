package interpolate

import (
	"fmt"
	"math"
)

// Scale is the spacing of the bins of a BinAxis.
type Scale int

const (
	// LinearScale bins are uniform in x.
	LinearScale Scale = iota
	// LogScale bins are uniform in log(x).
	LogScale
)

// BinAxis is an axis split into N bins of equal width between Min and Max.
// Tabulated values sit at the bin centers.
type BinAxis struct {
	Min, Max float64
	N        int
	Scale    Scale
}

// NewBinAxis creates a bin axis. It panics on empty or inverted ranges and
// on non-positive bounds of a log axis.
func NewBinAxis(min, max float64, n int, scale Scale) BinAxis {
	if n <= 0 {
		panic(fmt.Sprintf("n = %d, must be positive.", n))
	} else if !(max > min) {
		panic(fmt.Sprintf("max = %g is not larger than min = %g.", max, min))
	} else if scale == LogScale && min <= 0 {
		panic(fmt.Sprintf("min = %g of a log axis must be positive.", min))
	}
	return BinAxis{Min: min, Max: max, N: n, Scale: scale}
}

// index returns the fractional bin index of x, counted from the lower edge
// of the first bin.
func (a BinAxis) index(x float64) float64 {
	if a.Scale == LogScale {
		return math.Log(x/a.Min) / (math.Log(a.Max/a.Min) / float64(a.N))
	}
	return (x - a.Min) / ((a.Max - a.Min) / float64(a.N))
}

// Locate returns the bin center i at or below x and the fraction h of the
// way from center i to center i+1. ok is false if x is outside the axis.
//
// Within half a bin of either edge there is no neighbouring center to
// interpolate towards and h is zero.
func (a BinAxis) Locate(x float64) (i int, h float64, ok bool) {
	h = a.index(x)
	if math.IsNaN(h) || h < 0 || h > float64(a.N) {
		return 0, 0, false
	}

	h -= 0.5
	i = int(h)
	if h < 0 || h > float64(a.N-1) {
		return i, 0, true
	}
	return i, h - float64(i), true
}

// Center returns the position of the center of bin i.
func (a BinAxis) Center(i int) float64 {
	u := (float64(i) + 0.5) / float64(a.N)
	if a.Scale == LogScale {
		return a.Min * math.Pow(a.Max/a.Min, u)
	}
	return a.Min + (a.Max-a.Min)*u
}
