package form

import (
	"sync"

	formerrors "github.com/go-drift/form/pkg/errors"
)

// Disposable is implemented by resources that must be released when a scope ends.
type Disposable interface {
	Dispose()
}

// Scope collects cleanup work for a group of resources with one lifetime,
// such as a mounted form and its fields.
//
// Disposers run in reverse registration order. A disposer that panics is
// reported through the errors package and the remaining disposers still run.
//
// Example:
//
//	err := form.WithScope(func(s *form.Scope) error {
//	    ctrl := form.Use(s, mustController())
//	    input, err := form.Bind(s, ctrl, "input1")
//	    if err != nil {
//	        return err
//	    }
//	    return input.SetValue("x")
//	})
type Scope struct {
	mu        sync.Mutex
	disposers []func()
	disposed  bool
}

// OnDispose registers fn to run when the scope is disposed. If the scope has
// already been disposed, fn runs immediately.
func (s *Scope) OnDispose(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		runDisposer(fn)
		return
	}
	s.disposers = append(s.disposers, fn)
	s.mu.Unlock()
}

// Dispose runs the registered disposers. Calling it again does nothing.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		runDisposer(disposers[i])
	}
}

func runDisposer(fn func()) {
	defer formerrors.Recover("form.Scope.Dispose")
	fn()
}

// Use registers d for disposal with the scope and returns it.
func Use[D Disposable](s *Scope, d D) D {
	s.OnDispose(d.Dispose)
	return d
}

// Bind registers a binding for name and ties its lifetime to the scope.
func Bind(s *Scope, c *Controller, name string) (*Binding, error) {
	b, err := c.Register(name)
	if err != nil {
		return nil, err
	}
	return Use(s, b), nil
}

// WithScope runs fn with a fresh scope and disposes the scope when fn
// returns, including when it panics.
func WithScope(fn func(s *Scope) error) error {
	s := &Scope{}
	defer s.Dispose()
	return fn(s)
}
