package geonav

import (
	"sync"
	"unicode/utf8"

	"github.com/phil-mansfield/geonav/magnet"
	"github.com/phil-mansfield/geonav/topo"
)

// MaxErrorSize is the size, in bytes, at which forwarded error messages are
// truncated. Messages are cut on a character boundary.
const MaxErrorSize = 2048

var lastError struct {
	sync.Mutex
	msg string
}

// ForwardError records the message of err as the last error. A nil err is
// ignored.
//
// Errors are always returned by the functions which produce them. The last
// error is a process-wide copy kept for callers which can only poll, like
// foreign function bindings.
func ForwardError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if len(msg) > MaxErrorSize {
		// Cut before the rune which straddles the limit.
		n := MaxErrorSize
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	lastError.Lock()
	lastError.msg = msg
	lastError.Unlock()
}

// LastError returns the last forwarded error message, or "" if there is
// none.
func LastError() string {
	lastError.Lock()
	defer lastError.Unlock()
	return lastError.msg
}

// ClearError forgets the last error.
func ClearError() {
	lastError.Lock()
	lastError.msg = ""
	lastError.Unlock()
}

// InitialiseErrors forwards all errors raised by the topography and
// geomagnetic packages with ForwardError.
func InitialiseErrors() {
	topo.SetErrorHandler(ForwardError)
	magnet.SetErrorHandler(ForwardError)
}
