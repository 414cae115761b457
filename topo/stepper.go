package topo

import (
	"fmt"
	"math"
	"sort"

	"github.com/westphae/geomag/pkg/egm96"
)

const (
	// DefaultMinStep is the smallest step length returned by a
	// LayeredStepper, in meters.
	DefaultMinStep = 1e-2
)

// Step is the answer of a Stepper for one position.
//
// Index is the layer containing the position, counted from the bottom
// layer, or len(layers) above the topmost one, or -1 where the stepper has
// no data. Elevation[0] is the elevation of the topmost boundary (the
// ground) and Elevation[1] the elevation of the boundary right above the
// position, or math.MaxFloat64 above the topmost boundary. Elevations are
// altitudes above the ellipsoid, like Altitude.
type Step struct {
	Latitude, Longitude, Altitude float64
	Elevation                     [2]float64
	Length                        float64
	Index                         int
}

// Stepper maps ECEF positions to topography layers. Steppers are long lived
// and must be closed once they are no longer needed.
type Stepper interface {
	Step(r [3]float64) (Step, error)
	Close() error
}

// LayeredStepper is a Stepper over layers bounded by surfaces of constant
// altitude. Layer tops are given above the WGS-84 ellipsoid, or above mean
// sea level (EGM96 geoid) when Geoid is set.
//
// A LayeredStepper is read-only once built and may be shared between
// goroutines.
type LayeredStepper struct {
	Tops    []float64
	Geoid   bool
	MinStep float64
}

// NewLayeredStepper creates a stepper with the given strictly increasing
// layer tops.
func NewLayeredStepper(tops []float64, geoid bool) (*LayeredStepper, error) {
	if len(tops) == 0 {
		return nil, report(fmt.Errorf("topo: no layers given"))
	}
	if !sort.Float64sAreSorted(tops) {
		return nil, report(fmt.Errorf("topo: layer tops %v are not increasing", tops))
	}
	for i := 1; i < len(tops); i++ {
		if tops[i] == tops[i-1] {
			return nil, report(fmt.Errorf(
				"topo: layers %d and %d have the same top, %g", i-1, i, tops[i],
			))
		}
	}

	s := &LayeredStepper{
		Tops:    append([]float64(nil), tops...),
		Geoid:   geoid,
		MinStep: DefaultMinStep,
	}
	return s, nil
}

// undulation returns the height of the geoid above the ellipsoid.
func (s *LayeredStepper) undulation(lat, lon, alt float64) (float64, error) {
	if !s.Geoid {
		return 0, nil
	}
	loc := egm96.NewLocationGeodetic(lat, lon, alt)
	h, err := loc.HeightAboveMSL()
	if err != nil {
		return 0, report(fmt.Errorf(
			"topo: no geoid height at (%g, %g): %v", lat, lon, err,
		))
	}
	return alt - h, nil
}

// Step locates r among the layers. The step length is the altitude
// difference to the closest boundary, floored at MinStep.
func (s *LayeredStepper) Step(r [3]float64) (Step, error) {
	lat, lon, alt := ToGeodetic(r)
	st := Step{Latitude: lat, Longitude: lon, Altitude: alt}

	offset, err := s.undulation(lat, lon, alt)
	if err != nil {
		return st, err
	}
	h := alt - offset

	n := len(s.Tops)
	idx := sort.Search(n, func(i int) bool { return h < s.Tops[i] })
	st.Index = idx
	st.Elevation[0] = s.Tops[n-1] + offset
	if idx < n {
		st.Elevation[1] = s.Tops[idx] + offset
	} else {
		st.Elevation[1] = math.MaxFloat64
	}

	length := math.MaxFloat64
	if idx < n {
		length = s.Tops[idx] - h
	}
	if idx > 0 {
		if d := h - s.Tops[idx-1]; d < length {
			length = d
		}
	}
	minStep := s.MinStep
	if minStep <= 0 {
		minStep = DefaultMinStep
	}
	if length < minStep {
		length = minStep
	}
	st.Length = length

	return st, nil
}

// Close releases the stepper. LayeredSteppers hold no external resources.
func (s *LayeredStepper) Close() error { return nil }
