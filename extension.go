package bkoa

import "sync"

// Proto is an application owned extension point for one of the per-request types. Values defined on it are visible
// through the Ext method of every instance the application creates, and OnCreate hooks run for every new instance.
// Each application has its own protos, so extending one application never affects another.
type Proto[T any] struct {
	mu     sync.RWMutex
	values map[string]any
	hooks  []func(T)
}

func newProto[T any]() *Proto[T] {
	return &Proto[T]{values: map[string]any{}}
}

// Define sets a value that all instances inherit.
func (p *Proto[T]) Define(name string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = v
}

// Lookup returns a value set with Define.
func (p *Proto[T]) Lookup(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// OnCreate registers a hook that runs for every new instance.
func (p *Proto[T]) OnCreate(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, fn)
}

func (p *Proto[T]) create(v T) {
	p.mu.RLock()
	hooks := p.hooks
	p.mu.RUnlock()

	for _, fn := range hooks {
		fn(v)
	}
}

// extValues holds the values set on a single instance.
type extValues map[string]any

func (e *extValues) set(name string, v any) {
	if *e == nil {
		*e = extValues{}
	}
	(*e)[name] = v
}

// lookupExt returns the instance value and falls back to the proto.
func lookupExt[T any](e extValues, p *Proto[T], name string) (any, bool) {
	if v, ok := e[name]; ok {
		return v, true
	}

	return p.Lookup(name)
}

// Extender is implemented by the types that can be extended.
type Extender interface {
	Ext(name string) (any, bool)
}

// ExtOf returns an extension value as type V.
func ExtOf[V any](src Extender, name string) (V, bool) {
	var zero V
	v, ok := src.Ext(name)
	if !ok {
		return zero, false
	}

	tv, ok := v.(V)
	return tv, ok
}
