package io

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/geom"
	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
)

const (
	ExampleTraceFile = `[Run]

#######################
# Required Parameters #
#######################

# Name of the geometry node which navigation starts from. It can be a node
# of any kind.
Root = world

# Number of steps taken along the ray.
Steps = 200

#######################
# Optional Parameters #
#######################

# Seed of the random stream. Default is 5489.
# Seed = 5489

# Must be one of [ Forward | Backward ]. Default is Forward.
# Mode = Forward

# Largest step taken along the ray, in meters. Default is 1000.
# MaxStep = 1000

# Start of the ray, in ECEF meters, and its direction.
X = 6378237
Y = 0
Z = 0
DirX = 1
DirY = 0
DirZ = 0

# Alternative way of specifying the start of the ray: a geodetic location
# (degrees and meters) and a horizontal direction (degrees, azimuth
# clockwise from North).
# Geodetic = true
# Latitude = 45
# Longitude = 3
# Altitude = 100
# Azimuth = 0
# Elevation = 90

# Kinetic energy (GeV) and charge of the particle, recorded in the track
# file. Defaults are 0.
# Kinetic = 10
# Charge = -1

# Binary track file, a plot of density along the ray and a line per step.
# Output = track.bin
# PlotFile = track.png
# Verbose = true

##########
# Media  #
##########

[Medium "rock"]
Kind = Uniform
Material = 0
Density = 2650

[Medium "air"]
Kind = Gradient
Material = 1
# Must be one of [ Linear | Exponential ].
Gradient = Exponential
Rho0 = 1.205
Lambda = -8500
Z0 = 0
# Must be one of [ Axis | Altitude ]. Axis projections use AxisX/Y/Z.
Projection = Altitude

[Medium "lab"]
Kind = Uniform
Material = 2
Density = 1.0
MagnetZ = 1e-4

##############
# Geometry   #
##############

# Nodes are linked with Mother. Daughters are searched in increasing Order,
# then by name.

[Earth "world"]
# Layer tops above the ellipsoid (or above sea level if Geoid is set), from
# the bottom up, and the medium of each layer.
Layer = 0
Layer = 100000
LayerMedium = rock
LayerMedium = air
# Must be one of [ None | Dipole | Uniform | WMM ]. WMM also needs a Date
# (YYYY-MM-DD) within the validity period of the model, e.g.
#   Magnet = WMM
#   Date = 2022-06-01
Magnet = Dipole

[Frame "site"]
# A local East-North-Up frame at a geodetic location.
Geodetic = true
Latitude = 0
Longitude = 0
Altitude = 500

[Box "hall"]
Mother = world
Medium = lab
Frame = site
X = 0
Y = 0
Z = 0
XWidth = 20
YWidth = 20
ZWidth = 10`

	ExampleFluxFile = `[Flux]

#######################
# Optional Parameters #
#######################

# Flux table. Files ending in .bin are read as binary tabulations, others
# as text tables with columns: energy, cos(theta), negative flux, positive
# flux, energies varying fastest. Text tables need NK and NC. The built-in
# tabulation is used if Table is not set.
# Table = flux.txt
# NK = 70
# NC = 20

# Energy range (GeV) and number of log-spaced points. Defaults are 1, 1e4
# and 41.
# KMin = 1
# KMax = 1e4
# N = 41

# Cosine of the zenith angle. Default is 1.
# CosTheta = 1

# Charge of the particle. Zero sums both charges. Default is 0.
# Charge = 0

# PlotFile = spectrum.png`
)

// ErrConfig is wrapped by every error describing an invalid configuration.
var ErrConfig = errors.New("invalid configuration")

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

/////////
// Run //
/////////

type RunConfig struct {
	// Required
	Root  string
	Steps int

	// Optional
	Seed    int64
	Mode    string
	MaxStep float64

	X, Y, Z          float64
	DirX, DirY, DirZ float64

	Geodetic                      bool
	Latitude, Longitude, Altitude float64
	Azimuth, Elevation            float64
	Kinetic, Charge               float64

	Output, PlotFile string
	Verbose          bool
}

func (con *RunConfig) ValidRoot() bool     { return con.Root != "" }
func (con *RunConfig) ValidSteps() bool    { return con.Steps > 0 }
func (con *RunConfig) ValidSeed() bool     { return con.Seed >= 0 && con.Seed <= math.MaxUint32 }
func (con *RunConfig) ValidMaxStep() bool  { return con.MaxStep > 0 }
func (con *RunConfig) ValidKinetic() bool  { return con.Kinetic >= 0 }
func (con *RunConfig) ValidOutput() bool   { return con.Output != "" }
func (con *RunConfig) ValidPlotFile() bool { return con.PlotFile != "" }

func (con *RunConfig) ValidMode() bool {
	_, ok := parseMode(con.Mode)
	return ok
}

func (con *RunConfig) ValidDirection() bool {
	return con.Geodetic || con.DirX != 0 || con.DirY != 0 || con.DirZ != 0
}

func parseMode(s string) (geonav.Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "":
		return geonav.Forward, true
	case "backward":
		return geonav.Backward, true
	}
	return geonav.Forward, false
}

// NavigationMode returns the parsed Mode.
func (con *RunConfig) NavigationMode() geonav.Mode {
	m, _ := parseMode(con.Mode)
	return m
}

// State returns the starting state of the ray, with a unit direction.
func (con *RunConfig) State() *geonav.State {
	var pos, dir [3]float64
	if con.Geodetic {
		pos = topo.FromGeodetic(con.Latitude, con.Longitude, con.Altitude)
		dir = topo.FromHorizontal(con.Latitude, con.Longitude, con.Azimuth, con.Elevation)
	} else {
		pos = [3]float64{con.X, con.Y, con.Z}
		dir = [3]float64{con.DirX, con.DirY, con.DirZ}
	}
	norm := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	for i := range dir {
		dir[i] /= norm
	}
	st := geonav.NewState(pos, dir)
	st.Kinetic, st.Charge = con.Kinetic, con.Charge
	return st
}

func (con *RunConfig) CheckInit() error {
	if !con.ValidRoot() {
		return configErr("Invalid/non-existent 'Root' value.")
	} else if !con.ValidSteps() {
		return configErr("Need to specify a positive 'Steps' value.")
	} else if !con.ValidSeed() {
		return configErr("'Seed' must fit in 32 bits, but is %d.", con.Seed)
	} else if !con.ValidMode() {
		return configErr(
			"'Mode' must be one of [Forward | Backward]. '%s' is not recognized.",
			con.Mode,
		)
	} else if !con.ValidMaxStep() {
		return configErr("'MaxStep' must be positive, but is %g.", con.MaxStep)
	} else if !con.ValidDirection() {
		return configErr("Need to specify a non-zero direction.")
	} else if !con.ValidKinetic() {
		return configErr("'Kinetic' must be non-negative, but is %g.", con.Kinetic)
	}
	return nil
}

////////////
// Medium //
////////////

type MediumConfig struct {
	// Required
	Kind     string
	Material int

	// Uniform
	Density                   float64
	MagnetX, MagnetY, MagnetZ float64

	// Gradient
	Gradient            string
	Lambda, Z0, Rho0    float64
	AxisX, AxisY, AxisZ float64
	Projection          string

	// Optional, "undocumented"
	Name string
}

func (med *MediumConfig) CheckInit(name string) error {
	med.Name = name
	med.Kind = strings.ToLower(strings.TrimSpace(med.Kind))

	switch med.Kind {
	case "uniform":
		if med.Density < 0 {
			return configErr("Medium '%s' has a negative Density, %g.", name, med.Density)
		}
	case "gradient":
		med.Gradient = strings.ToLower(strings.TrimSpace(med.Gradient))
		med.Projection = strings.ToLower(strings.TrimSpace(med.Projection))
		if med.Gradient != "linear" && med.Gradient != "exponential" {
			return configErr(
				"Gradient of Medium '%s' must be one of [Linear | Exponential].", name,
			)
		} else if med.Lambda == 0 {
			return configErr("Need to specify a non-zero Lambda for Medium '%s'.", name)
		} else if med.Rho0 <= 0 {
			return configErr("Need to specify a positive Rho0 for Medium '%s'.", name)
		}

		switch med.Projection {
		case "", "axis":
			med.Projection = "axis"
			if med.AxisX == 0 && med.AxisY == 0 && med.AxisZ == 0 {
				med.AxisZ = 1
			}
		case "altitude":
		default:
			return configErr(
				"Projection of Medium '%s' must be one of [Axis | Altitude].", name,
			)
		}
	default:
		return configErr(
			"Kind of Medium '%s' must be one of [Uniform | Gradient]. '%s' "+
				"is not recognized.", name, med.Kind,
		)
	}
	return nil
}

// Medium creates the medium described by med, which must have been checked.
func (med *MediumConfig) Medium() geonav.Medium {
	b := [3]float64{med.MagnetX, med.MagnetY, med.MagnetZ}
	if med.Kind == "uniform" {
		return geonav.NewUniform(med.Material, med.Density, b)
	}

	kind := geonav.Linear
	if med.Gradient == "exponential" {
		kind = geonav.Exponential
	}
	g := geonav.NewGradient(med.Material, kind, med.Lambda, med.Z0, med.Rho0, b)
	if med.Projection == "altitude" {
		g.Projector = geonav.AltitudeProjector{}
	} else {
		axis := [3]float64{med.AxisX, med.AxisY, med.AxisZ}
		norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
		for i := range axis {
			axis[i] /= norm
		}
		g.Axis = axis
	}
	return g
}

///////////
// Frame //
///////////

type FrameConfig struct {
	// Euler frames
	X, Y, Z         float64
	Phi, Theta, Psi float64

	// Local East-North-Up frames
	Geodetic                      bool
	Latitude, Longitude, Altitude float64

	Name string
}

func (fc *FrameConfig) CheckInit(name string) error {
	fc.Name = name
	if fc.Geodetic && (fc.Phi != 0 || fc.Theta != 0 || fc.Psi != 0) {
		return configErr("Frame '%s' cannot be both Geodetic and rotated.", name)
	} else if fc.Geodetic && math.Abs(fc.Latitude) > 90 {
		return configErr(
			"Latitude of Frame '%s' must be in range [-90, 90], but is %g.",
			name, fc.Latitude,
		)
	}
	return nil
}

// Frame creates the described frame.
func (fc *FrameConfig) Frame() *geom.Frame {
	if fc.Geodetic {
		geo := geom.GeodeticPoint{
			Latitude: fc.Latitude, Longitude: fc.Longitude, Altitude: fc.Altitude,
		}
		return geom.LocalFrame(geo.Cartesian(), geo)
	}
	return geom.EulerFrame(fc.Phi, fc.Theta, fc.Psi, [3]float64{fc.X, fc.Y, fc.Z})
}

//////////////
// Geometry //
//////////////

// NodeConfig holds the variables shared by all geometry nodes.
type NodeConfig struct {
	// Optional
	Mother, Medium string
	Order          int

	Name string
}

// TransparentMedium is the Medium name of physically empty volumes.
const TransparentMedium = "Transparent"

func (nc *NodeConfig) checkNode(kind, name string) error {
	nc.Name = name
	if nc.Mother == name {
		return configErr("%s '%s' is its own Mother.", kind, name)
	}
	return nil
}

type InfiniteConfig struct {
	NodeConfig
}

func (inf *InfiniteConfig) CheckInit(name string) error {
	return inf.checkNode("Infinite", name)
}

type BoxConfig struct {
	NodeConfig

	// Required
	XWidth, YWidth, ZWidth float64

	// Optional
	X, Y, Z float64
	Frame   string
}

func (box *BoxConfig) CheckInit(name string) error {
	if err := box.checkNode("Box", name); err != nil {
		return err
	}
	if box.XWidth <= 0 {
		return configErr("Need to specify a positive XWidth for Box '%s'", name)
	} else if box.YWidth <= 0 {
		return configErr("Need to specify a positive YWidth for Box '%s'", name)
	} else if box.ZWidth <= 0 {
		return configErr("Need to specify a positive ZWidth for Box '%s'", name)
	}
	return nil
}

// Faces returns the faces of the box, in the coordinates of frame.
func (box *BoxConfig) Faces(frame *geom.Frame) []geonav.Face {
	half := [3]float64{box.XWidth / 2, box.YWidth / 2, box.ZWidth / 2}
	local := geonav.NewBox(nil, [3]float64{box.X, box.Y, box.Z}, half)
	return absoluteFaces(local.Faces, frame)
}

type PolyhedronConfig struct {
	NodeConfig

	// Required: "ox oy oz nx ny nz", one line per face.
	Face []string

	// Optional
	Frame string
}

func (poly *PolyhedronConfig) CheckInit(name string) error {
	if err := poly.checkNode("Polyhedron", name); err != nil {
		return err
	}
	if len(poly.Face) == 0 {
		return configErr("Need to specify at least one Face for Polyhedron '%s'.", name)
	}
	for i, s := range poly.Face {
		if _, err := parseFace(s); err != nil {
			return configErr("Face %d of Polyhedron '%s': %s", i, name, err.Error())
		}
	}
	return nil
}

func parseFace(s string) (geonav.Face, error) {
	tok := strings.Fields(s)
	if len(tok) != 6 {
		return geonav.Face{}, fmt.Errorf("expected 6 numbers, got %d", len(tok))
	}
	var x [6]float64
	for i := range tok {
		var err error
		if x[i], err = strconv.ParseFloat(tok[i], 64); err != nil {
			return geonav.Face{}, err
		}
	}
	f := geonav.Face{
		Origin: [3]float64{x[0], x[1], x[2]},
		Normal: [3]float64{x[3], x[4], x[5]},
	}
	if f.Normal == [3]float64{} {
		return f, fmt.Errorf("zero normal")
	}
	return f, nil
}

// Faces returns the faces of the polyhedron, in the coordinates of frame.
func (poly *PolyhedronConfig) Faces(frame *geom.Frame) []geonav.Face {
	faces := make([]geonav.Face, len(poly.Face))
	for i, s := range poly.Face {
		faces[i], _ = parseFace(s)
	}
	return absoluteFaces(faces, frame)
}

func absoluteFaces(faces []geonav.Face, frame *geom.Frame) []geonav.Face {
	out := make([]geonav.Face, len(faces))
	for i, f := range faces {
		o := geom.CartesianPoint{X: f.Origin[0], Y: f.Origin[1], Z: f.Origin[2], Frame: frame}
		n := geom.CartesianVector{X: f.Normal[0], Y: f.Normal[1], Z: f.Normal[2], Frame: frame}
		out[i] = geonav.Face{Origin: o.Transform(nil).Array(), Normal: n.Transform(nil).Array()}
	}
	return out
}

type EarthConfig struct {
	NodeConfig

	// Required
	Layer       []float64
	LayerMedium []string

	// Optional
	Geoid                          bool
	Magnet                         string
	Date                           string
	FieldEast, FieldNorth, FieldUp float64
}

// DateLayout is the layout of EarthConfig.Date.
const DateLayout = "2006-01-02"

func (earth *EarthConfig) CheckInit(name string) error {
	if err := earth.checkNode("Earth", name); err != nil {
		return err
	}
	if earth.Medium != "" {
		return configErr("Earth '%s' takes LayerMedium values, not a Medium.", name)
	} else if len(earth.Layer) == 0 {
		return configErr("Need to specify at least one Layer for Earth '%s'.", name)
	} else if len(earth.LayerMedium) != len(earth.Layer) {
		return configErr(
			"Earth '%s' has %d Layer values but %d LayerMedium values.",
			name, len(earth.Layer), len(earth.LayerMedium),
		)
	}

	switch strings.ToLower(strings.TrimSpace(earth.Magnet)) {
	case "", "none":
		earth.Magnet = "none"
	case "dipole":
		earth.Magnet = "dipole"
	case "uniform":
		earth.Magnet = "uniform"
	case "wmm":
		earth.Magnet = "wmm"
		return earth.checkDate(name)
	default:
		return configErr(
			"Magnet of Earth '%s' must be one of [None | Dipole | Uniform | WMM]. "+
				"'%s' is not recognized.", name, earth.Magnet,
		)
	}
	return nil
}

func (earth *EarthConfig) checkDate(name string) error {
	date, err := time.Parse(DateLayout, earth.Date)
	if err != nil {
		return configErr(
			"Earth '%s' uses the WMM and needs a Date of the form YYYY-MM-DD, "+
				"but Date = '%s'.", name, earth.Date,
		)
	}
	from, to, err := magnet.WMMValidity()
	if err != nil {
		return err
	}
	if date.Before(from) || date.After(to) {
		return configErr(
			"Date %s of Earth '%s' is outside of the WMM validity period "+
				"[%s, %s].", earth.Date, name,
			from.Format(DateLayout), to.Format(DateLayout),
		)
	}
	return nil
}

// Snapshot returns the geomagnetic snapshot of the Earth, or nil.
func (earth *EarthConfig) Snapshot() magnet.Snapshot {
	switch earth.Magnet {
	case "dipole":
		return magnet.NewDipole()
	case "uniform":
		return magnet.Uniform{earth.FieldEast, earth.FieldNorth, earth.FieldUp}
	case "wmm":
		date, _ := time.Parse(DateLayout, earth.Date)
		return magnet.NewWMM(date)
	}
	return nil
}

//////////////
// Wrappers //
//////////////

type TraceWrapper struct {
	Run        RunConfig
	Medium     map[string]*MediumConfig
	Frame      map[string]*FrameConfig
	Infinite   map[string]*InfiniteConfig
	Box        map[string]*BoxConfig
	Polyhedron map[string]*PolyhedronConfig
	Earth      map[string]*EarthConfig
}

func DefaultTraceWrapper() *TraceWrapper {
	run := RunConfig{}
	run.Seed = 5489
	run.Mode = "Forward"
	run.MaxStep = 1e3
	return &TraceWrapper{Run: run}
}

type FluxConfig struct {
	// Optional
	Table    string
	NK, NC   int
	KMin     float64
	KMax     float64
	N        int
	CosTheta float64
	Charge   float64
	PlotFile string
}

func (con *FluxConfig) ValidTable() bool    { return con.Table != "" }
func (con *FluxConfig) ValidPlotFile() bool { return con.PlotFile != "" }
func (con *FluxConfig) ValidEnergies() bool {
	return con.KMin > 0 && con.KMax > con.KMin && con.N >= 2
}
func (con *FluxConfig) ValidCosTheta() bool {
	return con.CosTheta >= 0 && con.CosTheta <= 1
}
func (con *FluxConfig) ValidTableShape() bool {
	return strings.HasSuffix(con.Table, ".bin") || (con.NK >= 2 && con.NC >= 2)
}

func (con *FluxConfig) CheckInit() error {
	if !con.ValidEnergies() {
		return configErr(
			"Need 0 < KMin < KMax and N >= 2, but KMin = %g, KMax = %g, N = %d.",
			con.KMin, con.KMax, con.N,
		)
	} else if !con.ValidCosTheta() {
		return configErr("'CosTheta' must be in range [0, 1], but is %g.", con.CosTheta)
	} else if con.ValidTable() && !con.ValidTableShape() {
		return configErr("Text table '%s' needs NK >= 2 and NC >= 2.", con.Table)
	}
	return nil
}

// Energies returns N log-spaced energies from KMin to KMax.
func (con *FluxConfig) Energies() []float64 {
	ks := make([]float64, con.N)
	lmin, lmax := math.Log(con.KMin), math.Log(con.KMax)
	for i := range ks {
		ks[i] = math.Exp(lmin + (lmax-lmin)*float64(i)/float64(con.N-1))
	}
	return ks
}

type FluxWrapper struct {
	Flux FluxConfig
}

func DefaultFluxWrapper() *FluxWrapper {
	con := FluxConfig{}
	con.KMin, con.KMax, con.N = 1, 1e4, 41
	con.CosTheta = 1
	return &FluxWrapper{con}
}
