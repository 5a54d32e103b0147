package typeregistry

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

var errorType = reflect.TypeFor[error]()

// Mutator is one way of assigning a source field onto a target object: a
// Set<Field> method or an exported (optionally avro-tagged) struct field.
type Mutator struct {
	Name  string
	Param reflect.Type
	Shape Shape

	method bool
	index  []int
}

// IsMethod reports whether the mutator is a setter method.
func (m Mutator) IsMethod() bool { return m.method }

// Apply assigns arg on target, which must be a pointer to the descriptor's
// struct. arg must be assignable to Param. A panicking mutator yields a
// *PanicError; a setter's own error is returned as is.
func (m Mutator) Apply(target, arg reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Func: m.Name, Value: r}
		}
	}()

	if m.method {
		out := target.Method(m.index[0]).Call([]reflect.Value{arg})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	target.Elem().FieldByIndex(m.index).Set(arg)
	return nil
}

// Descriptor describes a registered target type.
type Descriptor struct {
	name string
	typ  reflect.Type
	ctor func() any

	methods map[string]Mutator
	tagged  map[string]Mutator
	fields  map[string]Mutator
}

func newDescriptor(name string, typ reflect.Type, ctor func() any) *Descriptor {
	d := &Descriptor{
		name:    name,
		typ:     typ,
		ctor:    ctor,
		methods: make(map[string]Mutator),
		tagged:  make(map[string]Mutator),
		fields:  make(map[string]Mutator),
	}

	ptr := reflect.PointerTo(typ)
	for i := range ptr.NumMethod() {
		m := ptr.Method(i)
		if !strings.HasPrefix(m.Name, "Set") || !isSetter(m.Type) {
			continue
		}
		param := m.Type.In(1)
		d.methods[m.Name] = Mutator{
			Name:   m.Name,
			Param:  param,
			Shape:  ShapeOf(param),
			method: true,
			index:  []int{i},
		}
	}

	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous || throughPointer(typ, f.Index) {
			continue
		}
		mut := Mutator{Name: f.Name, Param: f.Type, Shape: ShapeOf(f.Type), index: f.Index}
		tag, ok := f.Tag.Lookup("avro")
		if ok {
			tag, _, _ = strings.Cut(tag, ",")
		}
		switch {
		case tag == "-":
		case tag != "":
			d.tagged[tag] = mut
		default:
			d.fields[f.Name] = mut
		}
	}
	return d
}

// isSetter accepts func(*T, P) and func(*T, P) error.
func isSetter(t reflect.Type) bool {
	if t.NumIn() != 2 || t.IsVariadic() {
		return false
	}
	switch t.NumOut() {
	case 0:
		return true
	case 1:
		return t.Out(0) == errorType
	default:
		return false
	}
}

// throughPointer reports whether a promoted field is reached through an
// embedded pointer, which may be nil on a fresh instance.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

// Name is the name the descriptor was resolved under.
func (d *Descriptor) Name() string { return d.name }

// Type is the target struct type.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// New constructs a fresh instance and returns a pointer to it. A panicking
// constructor yields a *PanicError.
func (d *Descriptor) New() (obj reflect.Value, err error) {
	if d.ctor == nil {
		return reflect.New(d.typ), nil
	}
	defer func() {
		if r := recover(); r != nil {
			obj, err = reflect.Value{}, &PanicError{Func: "constructor of " + d.name, Value: r}
		}
	}()
	return d.construct()
}

func (d *Descriptor) construct() (reflect.Value, error) {
	obj := d.ctor()
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != d.typ {
		return reflect.Value{}, fmt.Errorf("constructor for %s returned %T", d.name, obj)
	}
	return v, nil
}

// Mutators returns every candidate mutator for a source field: the derived
// setter method first, then an avro-tagged field, then the exported field
// with the upper-camel name.
func (d *Descriptor) Mutators(field string) []Mutator {
	var out []Mutator
	if m, ok := d.methods[MutatorName(field)]; ok {
		out = append(out, m)
	}
	if m, ok := d.tagged[field]; ok {
		out = append(out, m)
	}
	if m, ok := d.fields[UpperCamel(field)]; ok {
		out = append(out, m)
	}
	return out
}

// Candidates orders the mutators for a field by how well they fit a value of
// the given shape: an exact parameter shape first, then parameters accepting
// any value, then the rest. Ties keep the Mutators order.
func (d *Descriptor) Candidates(field string, shape Shape) []Mutator {
	out := d.Mutators(field)
	slices.SortStableFunc(out, func(a, b Mutator) int {
		return rank(a.Shape, shape) - rank(b.Shape, shape)
	})
	return out
}

// MutatorFor returns the best candidate from Candidates.
func (d *Descriptor) MutatorFor(field string, shape Shape) (Mutator, bool) {
	candidates := d.Candidates(field, shape)
	if len(candidates) == 0 {
		return Mutator{}, false
	}
	return candidates[0], true
}

func rank(param, value Shape) int {
	switch param {
	case value:
		return 0
	case ShapeAny:
		return 1
	default:
		return 2
	}
}
