package geonav

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
	"github.com/stretchr/testify/assert"
)

func TestContextRandom(t *testing.T) {
	ctx1, ctx2 := NewContext(5489), NewContext(5489)
	first := make([]float64, 100)
	for i := range first {
		first[i] = ctx1.Uniform01()
		if x := ctx2.Uniform01(); x != first[i] {
			t.Errorf("%d) contexts with the same seed differ: %g != %g", i+1, x, first[i])
		}
		if first[i] < 0 || first[i] >= 1 {
			t.Errorf("%d) %g not in [0, 1)", i+1, first[i])
		}
	}

	ctx1.Seed(5489)
	for i := range first {
		if x := ctx1.Uniform01(); x != first[i] {
			t.Errorf("%d) reseeded stream differs: %g != %g", i+1, x, first[i])
		}
	}

	ctx3 := NewContext(1)
	assert.NotEqual(t, first[0], ctx3.Uniform01())
}

func TestContextMode(t *testing.T) {
	ctx := NewContext(1)
	assert.Equal(t, Forward, ctx.Mode)
	assert.Equal(t, "Forward", Forward.String())
	assert.Equal(t, "Backward", Backward.String())
	assert.Equal(t, "Mode(?)", Mode(7).String())
}

func TestErrorSink(t *testing.T) {
	defer ClearError()

	ClearError()
	assert.Equal(t, "", LastError())

	ForwardError(nil)
	assert.Equal(t, "", LastError())

	ForwardError(errors.New("first"))
	ForwardError(errors.New("second"))
	assert.Equal(t, "second", LastError())

	table := []struct {
		msg string
		n   int
	}{
		{strings.Repeat("x", 3*MaxErrorSize), MaxErrorSize},
		{strings.Repeat("x", MaxErrorSize), MaxErrorSize},
		{"x" + strings.Repeat("é", MaxErrorSize), MaxErrorSize - 1},
		{strings.Repeat("€", MaxErrorSize), MaxErrorSize - 2},
	}
	for i, test := range table {
		ForwardError(errors.New(test.msg))
		got := LastError()
		if len(got) != test.n || !utf8.ValidString(got) || !strings.HasPrefix(test.msg, got) {
			t.Errorf("%d) kept %d bytes (valid UTF-8: %v), expected %d",
				i+1, len(got), utf8.ValidString(got), test.n)
		}
	}

	ClearError()
	assert.Equal(t, "", LastError())
}

func TestInitialiseErrors(t *testing.T) {
	defer func() {
		topo.SetErrorHandler(nil)
		magnet.SetErrorHandler(nil)
		ClearError()
	}()
	InitialiseErrors()

	ClearError()
	_, err := topo.NewLayeredStepper(nil, false)
	assert.NotNil(t, err)
	assert.Equal(t, err.Error(), LastError())

	ClearError()
	_, err = magnet.NewDipole().Field(0, 0, -topo.SemiMajorAxis)
	assert.True(t, errors.Is(err, magnet.ErrOrigin))
	assert.Equal(t, magnet.ErrOrigin.Error(), LastError())

	ClearError()
	_, err = magnet.NewWMM(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)).Field(45, 10, 0)
	assert.True(t, errors.Is(err, magnet.ErrDate))
	assert.Equal(t, err.Error(), LastError())
}
