package io

import (
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/phil-mansfield/geonav"
)

var end = binary.LittleEndian

// TrackHeader starts a track file. It is followed by Steps TrackSamples.
type TrackHeader struct {
	Type  TypeInfo
	Run   RunInfo
	Steps int64
}

type TypeInfo struct {
	Endianness int64
	HeaderSize int64
	SampleSize int64
}

type RunInfo struct {
	Seed              int64
	Mode              int64
	Origin, Direction Vector
	MaxStep           float64
	Kinetic, Charge   float64
}

// TrackSample is the state of a ray at one step. Material is -1 outside of
// all media.
type TrackSample struct {
	Distance float64
	Position Vector
	Material int64
	Density  float64
	Magnet   Vector
	Step     float64
}

type Vector [3]float64

// NewRunInfo summarizes the configuration of a traced ray.
func NewRunInfo(con *RunConfig, st *geonav.State) RunInfo {
	return RunInfo{
		Seed:      con.Seed,
		Mode:      int64(con.NavigationMode()),
		Origin:    st.Position,
		Direction: st.Direction,
		MaxStep:   con.MaxStep,
		Kinetic:   st.Kinetic,
		Charge:    st.Charge,
	}
}

// NewTrackSample records st, located in medium m with properties locals.
func NewTrackSample(st *geonav.State, m geonav.Medium, locals geonav.Locals, step float64) TrackSample {
	s := TrackSample{
		Distance: st.Distance,
		Position: st.Position,
		Material: -1,
		Density:  locals.Density,
		Magnet:   locals.Magnet,
		Step:     step,
	}
	if m != nil {
		s.Material = int64(m.Material())
	}
	return s
}

// WriteTrack writes a track file.
func WriteTrack(wr io.Writer, run RunInfo, samples []TrackSample) error {
	var endFlag int64
	if end == binary.LittleEndian {
		endFlag = -1
	} else {
		endFlag = 0
	}

	hd := TrackHeader{}
	hd.Type.Endianness = endFlag
	hd.Type.HeaderSize = int64(unsafe.Sizeof(hd))
	hd.Type.SampleSize = int64(unsafe.Sizeof(TrackSample{}))
	hd.Run = run
	hd.Steps = int64(len(samples))

	if err := binary.Write(wr, end, &hd); err != nil {
		return err
	}
	if err := binary.Write(wr, end, samples); err != nil {
		return err
	}
	return nil
}
