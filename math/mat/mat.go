/*package mat contains small dense matrix routines. Operations are split into
easy to use methods which allocate their results and slightly less easy to
use methods which require explicitly managing the LU decomposition.

Everything past Transpose only works on square matrices, which is
all frame validation needs.
*/
package mat

import (
	"math"
)

// Matrix represents a row-major matrix of float64 values.
type Matrix struct {
	Vals          []float64
	Width, Height int
}

// LUFactors contains the LU decomposition of a square matrix with partial
// pivoting. Exporting this type lets callers reuse one decomposition for
// several solves.
type LUFactors struct {
	lu       Matrix
	pivot    []int
	d        float64
	singular bool
}

// NewMatrix creates a matrix with the specified values and dimensions.
func NewMatrix(vals []float64, width, height int) *Matrix {
	if width <= 0 {
		panic("width must be positive.")
	} else if height <= 0 {
		panic("height must be positive.")
	} else if width*height != len(vals) {
		panic("height * width must equal len(vals).")
	}

	return &Matrix{Vals: vals, Width: width, Height: height}
}

// Transpose returns a new matrix which is the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(make([]float64, len(m.Vals)), m.Height, m.Width)
	for i := 0; i < m.Height; i++ {
		for j := 0; j < m.Width; j++ {
			out.Vals[j*m.Height+i] = m.Vals[i*m.Width+j]
		}
	}
	return out
}

// MaxAbsDiff returns the largest absolute elementwise difference between two
// matrices of the same shape.
func (m1 *Matrix) MaxAbsDiff(m2 *Matrix) float64 {
	if m1.Width != m2.Width || m1.Height != m2.Height {
		panic("MaxAbsDiff of incompatible matrix sizes.")
	}
	max := 0.0
	for i := range m1.Vals {
		if d := math.Abs(m1.Vals[i] - m2.Vals[i]); d > max {
			max = d
		}
	}
	return max
}

// Invert computes the inverse of a matrix. ok is false if m is singular.
func (m *Matrix) Invert() (inv *Matrix, ok bool) {
	lu := m.LU()
	if lu.Singular() {
		return nil, false
	}
	inv = NewMatrix(make([]float64, len(m.Vals)), m.Width, m.Height)
	return lu.InvertAt(inv), true
}

// Determinant computes the determinant of a matrix.
func (m *Matrix) Determinant() float64 {
	return m.LU().Determinant()
}

// NewLUFactors creates an LUFactors instance of the requested dimensions.
func NewLUFactors(n int) *LUFactors {
	luf := new(LUFactors)

	luf.lu.Vals, luf.lu.Width, luf.lu.Height = make([]float64, n*n), n, n
	luf.pivot = make([]int, n)
	luf.d = 1

	return luf
}

// LU returns the LU decomposition of a matrix.
func (m *Matrix) LU() *LUFactors {
	if m.Width != m.Height {
		panic("m is non-square.")
	}

	lu := NewLUFactors(m.Width)
	m.LUFactorsAt(lu)
	return lu
}

// LUFactorsAt stores the LU decomposition of a matrix at the specified
// location. L has a unit diagonal and is stored below the diagonal of the
// factors, U on and above it.
func (m *Matrix) LUFactorsAt(luf *LUFactors) {
	if luf.lu.Width != m.Width || luf.lu.Height != m.Height {
		panic("luf has different dimensions than m.")
	}

	n := m.Width
	lu := luf.lu.Vals
	copy(lu, m.Vals)
	for i := range luf.pivot {
		luf.pivot[i] = i
	}
	luf.d = 1
	luf.singular = false

	for k := 0; k < n; k++ {
		maxRow := findMaxRow(n, lu, k)
		if maxRow != k {
			swapRows(k, maxRow, n, lu)
			luf.pivot[k], luf.pivot[maxRow] = luf.pivot[maxRow], luf.pivot[k]
			luf.d = -luf.d
		}

		p := lu[k*n+k]
		if p == 0 {
			luf.singular = true
			continue
		}
		for i := k + 1; i < n; i++ {
			f := lu[i*n+k] / p
			lu[i*n+k] = f
			for j := k + 1; j < n; j++ {
				lu[i*n+j] -= f * lu[k*n+j]
			}
		}
	}
}

// Finds the row at or below the diagonal with the largest value in the
// given column.
func findMaxRow(n int, lu []float64, col int) int {
	max, maxRow := -1.0, col
	for i := col; i < n; i++ {
		if val := math.Abs(lu[i*n+col]); val > max {
			max, maxRow = val, i
		}
	}
	return maxRow
}

func swapRows(i1, i2, n int, lu []float64) {
	i1Offset, i2Offset := n*i1, n*i2
	for j := 0; j < n; j++ {
		lu[i1Offset+j], lu[i2Offset+j] = lu[i2Offset+j], lu[i1Offset+j]
	}
}

// Singular returns true if the decomposed matrix has no inverse.
func (luf *LUFactors) Singular() bool { return luf.singular }

// SolveVector solves M * xs = bs for xs and returns xs. bs and xs may point
// to the same memory. The result is undefined for singular matrices.
func (luf *LUFactors) SolveVector(bs, xs []float64) []float64 {
	n := luf.lu.Width
	if n != len(bs) {
		panic("len(b) != luf.Width")
	} else if n != len(xs) {
		panic("len(x) != luf.Width")
	}

	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		ys[i] = bs[luf.pivot[i]]
	}

	lu := luf.lu.Vals
	// L y = P b
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			ys[i] -= lu[i*n+j] * ys[j]
		}
	}
	// U x = y
	for i := n - 1; i >= 0; i-- {
		sum := ys[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n+j] * xs[j]
		}
		xs[i] = sum / lu[i*n+i]
	}

	return xs
}

// InvertAt inverts the matrix represented by the given LU decomposition
// and writes the results into out.
func (luf *LUFactors) InvertAt(out *Matrix) *Matrix {
	n := luf.lu.Width
	if out.Width != out.Height {
		panic("out matrix is non-square.")
	} else if n != out.Width {
		panic("out matrix different size than m matrix.")
	}

	col, e := make([]float64, n), make([]float64, n)
	for j := 0; j < n; j++ {
		for i := range e {
			e[i] = 0
		}
		e[j] = 1
		luf.SolveVector(e, col)
		for i := 0; i < n; i++ {
			out.Vals[i*n+j] = col[i]
		}
	}
	return out
}

// Determinant computes the determinant of the matrix represented by the
// given LU decomposition.
func (luf *LUFactors) Determinant() float64 {
	if luf.singular {
		return 0
	}
	d := luf.d
	n := luf.lu.Width
	for i := 0; i < n; i++ {
		d *= luf.lu.Vals[i*n+i]
	}
	return d
}
