package trace

import (
	"fmt"
	"sync"
)

// Registry holds named tracers for processes that run more than one. It is
// created by the composition root and passed explicitly; there is no ambient
// global lookup.
type Registry struct {
	tracers sync.Map
}

// NewRegistry creates an empty tracer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a tracer under a unique name.
func (r *Registry) Register(name string, tracer *Tracer) error {
	if name == "" {
		return fmt.Errorf("tracer name cannot be empty")
	}
	if _, loaded := r.tracers.LoadOrStore(name, tracer); loaded {
		return fmt.Errorf("tracer %q already registered", name)
	}
	return nil
}

// Get retrieves a tracer by name.
func (r *Registry) Get(name string) (*Tracer, bool) {
	val, ok := r.tracers.Load(name)
	if !ok {
		return nil, false
	}
	return val.(*Tracer), true
}

// Names returns the registered tracer names.
func (r *Registry) Names() []string {
	var names []string
	r.tracers.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}

// CloseAll closes every registered tracer, returning the first error.
func (r *Registry) CloseAll() error {
	var firstErr error
	r.tracers.Range(func(_, value interface{}) bool {
		if err := value.(*Tracer).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}
