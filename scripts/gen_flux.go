//go:build ignore

// gen_flux writes the default flux tabulation, flux/data/flux.bin.
//
// The flux is Gaisser's parameterisation of atmospheric muons at sea level,
// with the effective zenith angle of Chirkin and the low energy correction
// of Guan et al., split between charges with a mu+/mu- ratio of 1.27.
//
// Usage: go run scripts/gen_flux.go flux/data/flux.bin
package main

import (
	"log"
	"math"
	"os"

	"github.com/phil-mansfield/geonav/flux"
)

const (
	nk, nc      = 70, 20
	kMin, kMax  = 1e-1, 1e6
	cMin, cMax  = 0.0, 1.0
	muonMass    = 0.10566
	chargeRatio = 1.27
)

var chirkin = [5]float64{0.102573, -0.068287, 0.958633, 0.0407253, 0.817285}

func cosStar(c float64) float64 {
	p := chirkin
	num := c*c + p[0]*p[0] + p[1]*math.Pow(c, p[2]) + p[3]*math.Pow(c, p[4])
	den := 1 + p[0]*p[0] + p[1] + p[3]
	return math.Sqrt(math.Max(num, 0) / den)
}

// gaisser returns the total flux in GeV^-1 m^-2 s^-1 sr^-1.
func gaisser(k, c float64) float64 {
	e := k + muonMass
	cs := cosStar(c)
	if cs <= 0 {
		return 0
	}
	low := math.Pow(1+3.64/(e*math.Pow(cs, 1.29)), -2.7)
	f := 0.14 * math.Pow(e, -2.7) * low *
		(1/(1+1.1*e*cs/115) + 0.054/(1+1.1*e*cs/850))
	return 1e4 * f
}

func main() {
	if len(os.Args) != 2 {
		log.Fatal("Usage: go run gen_flux.go <output file>")
	}

	data := make([]float32, 2*nk*nc)
	for ic := 0; ic < nc; ic++ {
		c := cMin + (float64(ic)+0.5)*(cMax-cMin)/nc
		for ik := 0; ik < nk; ik++ {
			k := kMin * math.Pow(kMax/kMin, (float64(ik)+0.5)/nk)
			f := gaisser(k, c)
			idx := 2 * (ic*nk + ik)
			data[idx+flux.Negative] = float32(f / (1 + chargeRatio))
			data[idx+flux.Positive] = float32(f * chargeRatio / (1 + chargeRatio))
		}
	}

	tab, err := flux.New(nk, nc, kMin, kMax, cMin, cMax, data)
	if err != nil {
		log.Fatal(err.Error())
	}

	f, err := os.Create(os.Args[1])
	if err != nil {
		log.Fatal(err.Error())
	}
	if err = flux.Encode(f, tab, flux.DefaultEndiannessFlag); err != nil {
		log.Fatal(err.Error())
	}
	if err = f.Close(); err != nil {
		log.Fatal(err.Error())
	}
	log.Printf("Wrote %d x %d tabulation to %s", nk, nc, os.Args[1])
}
