package topo

import (
	"sync"
)

var handler struct {
	sync.RWMutex
	f func(error)
}

// SetErrorHandler installs a function which is called with every error
// produced by this package, before the error is returned. A nil f removes
// the handler.
func SetErrorHandler(f func(error)) {
	handler.Lock()
	handler.f = f
	handler.Unlock()
}

func report(err error) error {
	handler.RLock()
	f := handler.f
	handler.RUnlock()
	if f != nil {
		f(err)
	}
	return err
}
