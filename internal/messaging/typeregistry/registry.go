// Package typeregistry resolves type names carried by records and envelopes
// to constructible Go struct types and their mutators.
package typeregistry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Registry maps type names to descriptors. Registration takes the write lock;
// resolution only reads, so a populated registry is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	allowUnknown bool
	types        map[string]*Descriptor
}

// Option configures a Registry.
type Option func(*Registry)

// WithAllowUnknown lets nested records of unregistered types be kept as
// generic maps instead of being dropped. Root resolution still fails.
func WithAllowUnknown() Option {
	return func(r *Registry) {
		r.allowUnknown = true
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{types: make(map[string]*Descriptor)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AllowUnknown reports whether unregistered nested types are tolerated.
func (r *Registry) AllowUnknown() bool {
	return r.allowUnknown
}

// Register adds a pointer-to-struct prototype under one or more names, such as
// a CloudEvent type and an Avro schema full name. New instances are zero values.
func (r *Registry) Register(prototype any, names ...string) error {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrInvalidPrototype, prototype)
	}
	return r.register(t.Elem(), nil, names)
}

// RegisterConstructor adds a type built by ctor, which must return a non-nil
// pointer to a struct. Use it when fresh instances need defaults.
func (r *Registry) RegisterConstructor(ctor func() any, names ...string) error {
	if ctor == nil {
		return fmt.Errorf("%w: nil constructor", ErrInvalidPrototype)
	}
	v, err := callConstructor(ctor)
	if err != nil {
		return err
	}
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: constructor returned %s", ErrInvalidPrototype, v.Kind())
	}
	return r.register(v.Elem().Type(), ctor, names)
}

func callConstructor(ctor func() any) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: constructor panicked: %v", ErrInvalidPrototype, r)
		}
	}()
	return reflect.ValueOf(ctor()), nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(prototype any, names ...string) {
	if err := r.Register(prototype, names...); err != nil {
		panic(err)
	}
}

func (r *Registry) register(t reflect.Type, ctor func() any, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("register %s: at least one name is required", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if name == "" {
			return fmt.Errorf("register %s: empty name", t)
		}
		if _, ok := r.types[name]; ok {
			return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
		}
	}

	base := newDescriptor(names[0], t, ctor)
	for _, name := range names {
		d := *base
		d.name = name
		r.types[name] = &d
	}
	return nil
}

// Resolve returns the descriptor registered under name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.types[name]
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	return d, nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
