/*package interpolate contains interpolators over binned, regularly spaced
tables.
*/
package interpolate

// BiInterpolator is a function of two variables defined by a table.
type BiInterpolator interface {
	Eval(x, y float64) float64
	EvalAll(xs, ys []float64, out ...[]float64) []float64
}

var (
	_ BiInterpolator = &BinnedBiLinear{}
)
