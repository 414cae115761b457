package io

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

// ReadTrack reads a file written by WriteTrack.
func ReadTrack(rd io.Reader) (*TrackHeader, []TrackSample, error) {
	var flag int64
	// The flag reads the same in both byte orders.
	if err := binary.Read(rd, binary.LittleEndian, &flag); err != nil {
		return nil, nil, err
	}
	order, err := endianness(flag)
	if err != nil {
		return nil, nil, err
	}

	hd := &TrackHeader{}
	hd.Type.Endianness = flag
	if err := binary.Read(rd, order, &hd.Type.HeaderSize); err != nil {
		return nil, nil, err
	}
	if hd.Type.HeaderSize != int64(unsafe.Sizeof(TrackHeader{})) {
		return nil, nil, fmt.Errorf(
			"Expected TrackHeader size of %d, found %d.",
			unsafe.Sizeof(TrackHeader{}), hd.Type.HeaderSize,
		)
	}

	rest := struct {
		SampleSize int64
		Run        RunInfo
		Steps      int64
	}{}
	if err := binary.Read(rd, order, &rest); err != nil {
		return nil, nil, err
	}
	hd.Type.SampleSize, hd.Run, hd.Steps = rest.SampleSize, rest.Run, rest.Steps

	if hd.Type.SampleSize != int64(unsafe.Sizeof(TrackSample{})) {
		return nil, nil, fmt.Errorf(
			"Expected TrackSample size of %d, found %d.",
			unsafe.Sizeof(TrackSample{}), hd.Type.SampleSize,
		)
	} else if hd.Steps < 0 {
		return nil, nil, fmt.Errorf("Track file has %d steps.", hd.Steps)
	}

	samples := make([]TrackSample, hd.Steps)
	if err := binary.Read(rd, order, samples); err != nil {
		return nil, nil, err
	}
	return hd, samples, nil
}

// endianness converts an endianness flag to a byte order.
func endianness(flag int64) (binary.ByteOrder, error) {
	switch flag {
	case -1:
		return binary.LittleEndian, nil
	case 0:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("Unrecognized endianness flag, %d.", flag)
}
