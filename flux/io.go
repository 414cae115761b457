package flux

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/phil-mansfield/table"
)

/*
The binary format used for flux tabulations is as follows:
    |-- 1 --||-- 2 --||-- ... 3 ... --||-- ... 4 ... --|

    1 - (int32) Flag indicating the endianness of the file. 0 indicates a big
        endian byte ordering and -1 indicates a little endian byte order.
    2 - (int32) Size of a header struct. Should be checked for consistency.
    3 - (header) Grid counts and bounds.
    4 - ([]float32) 2*NK*NC flux values, in the order of Tabulation.Data.
*/
type header struct {
	NK, NC     int64
	KMin, KMax float64
	CMin, CMax float64
}

const (
	// DefaultEndiannessFlag is used by default when writing tabulations.
	// Tabulations of any endianness can be read.
	DefaultEndiannessFlag int32 = -1
)

// ErrFormat is returned for malformed tabulations.
var ErrFormat = errors.New("flux: malformed tabulation")

// endianness converts an endianness flag to a byte order.
func endianness(flag int32) (binary.ByteOrder, error) {
	switch flag {
	case 0:
		return binary.BigEndian, nil
	case -1:
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("%w: unrecognized endianness flag %d", ErrFormat, flag)
}

// Decode reads a binary tabulation.
func Decode(r io.Reader) (*Tabulation, error) {
	var flag int32
	// Order doesn't matter for this read, since flags are symmetric.
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	order, err := endianness(flag)
	if err != nil {
		return nil, err
	}

	var size int32
	if err := binary.Read(r, order, &size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if int(size) != binary.Size(header{}) {
		return nil, fmt.Errorf(
			"%w: expected header size of %d, found %d",
			ErrFormat, binary.Size(header{}), size,
		)
	}

	hd := header{}
	if err := binary.Read(r, order, &hd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if hd.NK <= 0 || hd.NC <= 0 || hd.NK*hd.NC > 1<<28 {
		return nil, fmt.Errorf("%w: grid is %d x %d", ErrFormat, hd.NK, hd.NC)
	}

	data := make([]float32, 2*hd.NK*hd.NC)
	if err := binary.Read(r, order, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return New(int(hd.NK), int(hd.NC), hd.KMin, hd.KMax, hd.CMin, hd.CMax, data)
}

// Encode writes tab in the binary format read by Decode, using the byte
// order given by an endianness flag.
func Encode(w io.Writer, tab *Tabulation, endiannessFlag int32) error {
	if err := tab.check(); err != nil {
		return err
	}
	order, err := endianness(endiannessFlag)
	if err != nil {
		return err
	}

	hd := header{
		NK: int64(tab.NK), NC: int64(tab.NC),
		KMin: tab.KMin, KMax: tab.KMax, CMin: tab.CMin, CMax: tab.CMax,
	}
	if err = binary.Write(w, order, endiannessFlag); err != nil {
		return err
	}
	if err = binary.Write(w, order, int32(binary.Size(hd))); err != nil {
		return err
	}
	if err = binary.Write(w, order, &hd); err != nil {
		return err
	}
	return binary.Write(w, order, tab.Data)
}

//go:embed data/flux.bin
var defaultData []byte

var defaultTab struct {
	once sync.Once
	tab  *Tabulation
	err  error
}

// Default returns the compiled-in tabulation of atmospheric muons at sea
// level. Energies are kinetic energies in GeV and fluxes are given in
// GeV^-1 m^-2 s^-1 sr^-1. The tabulation is decoded on first use and shared
// by all callers.
func Default() *Tabulation {
	defaultTab.once.Do(func() {
		defaultTab.tab, defaultTab.err = Decode(bytes.NewReader(defaultData))
	})
	if defaultTab.err != nil {
		panic(defaultTab.err.Error())
	}
	return defaultTab.tab
}

// ReadTable reads a tabulation from a text table with the columns: kinetic
// energy, angle cosine, negative flux and positive flux. Rows must list the
// bin centers with the energy running fastest, as in Tabulation.Data. Bin
// edges are recovered from the centers.
func ReadTable(fname string, nk, nc int) (*Tabulation, error) {
	if nk < 2 || nc < 2 {
		return nil, fmt.Errorf("%w: grid %d x %d is too small to recover its bounds", ErrFormat, nk, nc)
	}

	cols, err := table.ReadTable(fname, []int{0, 1, 2, 3}, nil)
	if err != nil {
		return nil, err
	}
	ks, cs, neg, pos := cols[0], cols[1], cols[2], cols[3]
	if len(ks) != nk*nc {
		return nil, fmt.Errorf(
			"%w: %s has %d rows, expected %d", ErrFormat, fname, len(ks), nk*nc,
		)
	}

	k0, k1 := ks[0], ks[nk-1]
	c0, c1 := cs[0], cs[(nc-1)*nk]
	if !(k0 > 0) || !(k1 > k0) || !(c1 > c0) {
		return nil, fmt.Errorf("%w: %s is not sorted", ErrFormat, fname)
	}
	kStep := math.Pow(k1/k0, 1/float64(nk-1))
	cStep := (c1 - c0) / float64(nc-1)

	data := make([]float32, 2*nk*nc)
	for i := range ks {
		ik, ic := i%nk, i/nk
		k := k0 * math.Pow(kStep, float64(ik))
		c := c0 + cStep*float64(ic)
		if math.Abs(ks[i]-k) > 1e-6*k || math.Abs(cs[i]-c) > 1e-6*(1+math.Abs(c)) {
			return nil, fmt.Errorf(
				"%w: row %d of %s is (%g, %g), expected bin center (%g, %g)",
				ErrFormat, i, fname, ks[i], cs[i], k, c,
			)
		}
		data[2*i+Negative] = float32(neg[i])
		data[2*i+Positive] = float32(pos[i])
	}

	return New(
		nk, nc,
		k0/math.Sqrt(kStep), k1*math.Sqrt(kStep),
		c0-cStep/2, c1+cStep/2,
		data,
	)
}
