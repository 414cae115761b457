package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strings"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/io"
)

func main() {
	var (
		traceFile, fluxFile string
		exampleConfig       string
		serveAddr           string
	)
	vars := map[string]*string{
		"Trace":         &traceFile,
		"Flux":          &fluxFile,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(&traceFile, "Trace", "", "Configuration file for [Trace] mode.")
	flag.StringVar(&fluxFile, "Flux", "", "Configuration file for [Flux] mode.")
	flag.StringVar(
		&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the specified type to "+
			"stdout. Accepted arguments are 'Trace' and 'Flux'.",
	)
	flag.StringVar(
		&serveAddr, "Serve", "",
		"With -Trace, serves navigation events over a websocket at this "+
			"address instead of tracing once.",
	)
	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}
	geonav.InitialiseErrors()

	switch modeName {
	case "Trace":
		wrap, err := io.ReadTraceConfig(traceFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		g, err := wrap.Build()
		if err != nil {
			log.Fatal(err.Error())
		}

		if serveAddr != "" {
			http.Handle("/ws", &server{run: &wrap.Run, geometry: g})
			log.Printf("Serving navigation events on ws://%s/ws", serveAddr)
			err = http.ListenAndServe(serveAddr, nil)
		} else {
			err = traceMain(&wrap.Run, g)
		}
		if derr := g.Tree.Destroy(); derr != nil {
			log.Println("Error while destroying the geometry:", derr)
		}
		if err != nil {
			log.Fatal(err.Error())
		}

	case "Flux":
		con, err := io.ReadFluxConfig(fluxFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		fluxMain(con)

	case "ExampleConfig":
		switch exampleConfig {
		case "Trace":
			fmt.Println(io.ExampleTraceFile)
		case "Flux":
			fmt.Println(io.ExampleFluxFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. Only recognized " +
					"arguments are 'Trace' and 'Flux'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but geonav "+
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func traceMain(con *io.RunConfig, g *io.Geometry) error {
	var cb geonav.Callback
	if con.Verbose {
		cb = func(id geonav.NodeID, st *geonav.State, m geonav.Medium, step float64) {
			log.Printf("  node %d: %s, step %.4g", id, mediumName(m), step)
		}
	}

	samples, err := trace(con, g, cb)
	for i, s := range samples {
		if con.Verbose {
			log.Printf(
				"Step %d: s = %.6g m, material %d, rho = %.4g kg/m^3, ds = %.4g m",
				i, s.Distance, s.Material, s.Density, s.Step,
			)
		}
	}
	if err != nil {
		return err
	}
	log.Printf("Traced %d steps over %.6g m.", len(samples), trackLength(samples))

	if con.ValidOutput() {
		if err := writeTrack(con, samples); err != nil {
			return err
		}
	}

	if con.ValidPlotFile() {
		plotTrack(samples, con.PlotFile)
		plt.Execute()
	}
	return nil
}

func writeTrack(con *io.RunConfig, samples []io.TrackSample) error {
	f, err := os.Create(con.Output)
	if err != nil {
		return err
	}
	wr := bufio.NewWriter(f)
	if err := io.WriteTrack(wr, io.NewRunInfo(con, con.State()), samples); err != nil {
		f.Close()
		return err
	}
	if err := wr.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func mediumName(m geonav.Medium) string {
	switch {
	case m == nil:
		return "no medium"
	case m == geonav.Transparent:
		return "transparent"
	}
	return fmt.Sprintf("material %d", m.Material())
}

func trackLength(samples []io.TrackSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	last := samples[len(samples)-1]
	return last.Distance + last.Step
}

func plotTrack(samples []io.TrackSample, fname string) {
	ss := make([]float64, 0, len(samples))
	rhos := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Material < 0 || s.Density <= 0 {
			continue
		}
		ss = append(ss, s.Distance)
		rhos = append(rhos, s.Density)
	}

	plt.Figure()
	plt.Plot(ss, rhos, "k", plt.LW(2))
	plt.XLabel(`$s$ [m]`, plt.FontSize(16))
	plt.YLabel(`$\rho$ [kg m$^{-3}$]`, plt.FontSize(16))
	plt.YScale("log")
	plt.Grid(plt.Axis("y"))
	plt.SaveFig(fname)
}

func fluxMain(con *io.FluxConfig) {
	tab, err := con.Tabulation()
	if err != nil {
		log.Fatal(err.Error())
	}

	ks := con.Energies()
	phis := make([]float64, len(ks))
	fmt.Printf("# %12s %12s\n", "K [GeV]", "flux")
	for i, k := range ks {
		phis[i] = tab.Get(k, con.CosTheta, con.Charge)
		fmt.Printf("%14.6g %12.6g\n", k, phis[i])
	}

	if con.ValidPlotFile() {
		weighted := make([]float64, len(ks))
		for i := range ks {
			weighted[i] = phis[i] * math.Pow(ks[i], 2.7)
		}

		plt.Figure()
		plt.Plot(ks, weighted, "k", plt.LW(2))
		plt.Title(fmt.Sprintf(`$\cos\theta$ = %.3g`, con.CosTheta))
		plt.XLabel(`$K$ [GeV]`, plt.FontSize(16))
		plt.YLabel(`$K^{2.7}\,\Phi$`, plt.FontSize(16))
		plt.XScale("log")
		plt.YScale("log")
		plt.Grid(plt.Axis("x"), plt.Which("both"))
		plt.SaveFig(con.PlotFile)
		plt.Execute()
	}
}
