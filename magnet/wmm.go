package magnet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// ErrDate is returned when a WMM snapshot is requested for a date outside
// of the validity period of the model coefficients.
var ErrDate = errors.New("magnet: date outside of the WMM validity period")

// The wmm package keeps its coefficients and its last evaluated location in
// package variables.
var wmmLock sync.Mutex

func loadWMM() error {
	if wmm.Epoch != 0 {
		return nil
	}
	return wmm.LoadWMMCOF("")
}

// WMMValidity returns the period over which the built-in World Magnetic
// Model coefficients may be used.
func WMMValidity() (from, to time.Time, err error) {
	wmmLock.Lock()
	defer wmmLock.Unlock()
	if err := loadWMM(); err != nil {
		return time.Time{}, time.Time{}, report(err)
	}
	return wmm.ValidDate, (wmm.Epoch + 5).ToTime(), nil
}

// WMM is the World Magnetic Model frozen at Date.
type WMM struct {
	Date time.Time
}

// NewWMM returns the WMM snapshot at date.
func NewWMM(date time.Time) *WMM { return &WMM{Date: date} }

// Field evaluates the model. WMM returns (North, East, Down) components in
// nT along the ellipsoid axes; they are converted to ENU tesla.
func (w *WMM) Field(latitude, longitude, altitude float64) ([3]float64, error) {
	wmmLock.Lock()
	defer wmmLock.Unlock()

	if err := loadWMM(); err != nil {
		return [3]float64{}, report(err)
	}
	end := (wmm.Epoch + 5).ToTime()
	if w.Date.Before(wmm.ValidDate) || w.Date.After(end) {
		return [3]float64{}, report(fmt.Errorf(
			"%w: %s is not in [%s, %s]", ErrDate, w.Date.Format("2006-01-02"),
			wmm.ValidDate.Format("2006-01-02"), end.Format("2006-01-02"),
		))
	}

	loc := egm96.NewLocationGeodetic(latitude, longitude, altitude)
	f, err := wmm.CalculateWMMMagneticField(loc, w.Date)
	if err != nil {
		return [3]float64{}, report(err)
	}
	north, east, down, _, _, _ := f.Ellipsoidal()
	return [3]float64{east * nanoTesla, north * nanoTesla, -down * nanoTesla}, nil
}
