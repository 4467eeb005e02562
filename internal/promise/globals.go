package promise

import (
	"fmt"
	"sync"
)

// Entrypoint is the callable a widget script publishes under its global name.
type Entrypoint func(command string, params WidgetParameters) error

type Resolver interface {
	Lookup(name string) (Entrypoint, bool)
}

// Globals is the process-wide name table the widget script registers into.
type Globals struct {
	mu      sync.RWMutex
	entries map[string]Entrypoint
}

func NewGlobals() *Globals {
	return &Globals{entries: make(map[string]Entrypoint)}
}

func (g *Globals) Register(name string, fn Entrypoint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[name] = fn
}

func (g *Globals) Unregister(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, name)
}

func (g *Globals) Lookup(name string) (Entrypoint, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.entries[name]
	return fn, ok && fn != nil
}

func (g *Globals) Defined(name string) bool {
	_, ok := g.Lookup(name)
	return ok
}

// Invoke calls fn and turns both a returned error and a panic into an
// *InvocationError.
func Invoke(fn Entrypoint, command string, params WidgetParameters) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			err = &InvocationError{Command: command, Err: perr}
		}
	}()

	if callErr := fn(command, params); callErr != nil {
		return &InvocationError{Command: command, Err: callErr}
	}
	return nil
}
