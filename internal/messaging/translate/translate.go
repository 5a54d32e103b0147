// Package translate populates registered Go types from generic record trees.
//
// Each record is built as the type named by its own schema, fields are handed
// to Set<Field> methods or exported fields, and anything that does not fit is
// dropped with a Diagnostic instead of failing the whole record.
package translate

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"wires/internal/messaging/generic"
	"wires/internal/messaging/typeregistry"
)

// Resolver is the part of the type registry the translator needs.
type Resolver interface {
	Resolve(name string) (*typeregistry.Descriptor, error)
	AllowUnknown() bool
}

// Translator is stateless; one value may serve concurrent calls.
type Translator struct {
	types Resolver
}

// New creates a translator resolving nested record types through types.
func New(types Resolver) *Translator {
	return &Translator{types: types}
}

// Translate builds an instance of desc from root and returns a pointer to it.
// Only a failure to construct the root object is an error; every other
// problem is reported as a Diagnostic.
func (t *Translator) Translate(root *generic.Record, desc *typeregistry.Descriptor) (any, []Diagnostic, error) {
	w := &walker{types: t.types}
	obj, err := w.populate(root, desc)
	if err != nil {
		return nil, w.diags, &ConstructError{Type: desc.Name(), Err: err}
	}
	return obj.Interface(), w.diags, nil
}

// walker carries the per-call state of one translation.
type walker struct {
	types Resolver
	path  []string
	diags []Diagnostic
}

var _ generic.Visitor[any] = (*walker)(nil)

func (w *walker) populate(rec *generic.Record, desc *typeregistry.Descriptor) (reflect.Value, error) {
	obj, err := desc.New()
	if err != nil {
		return reflect.Value{}, err
	}

	rec.Each(func(f generic.Field, v generic.Value) bool {
		if v == nil || v.Kind() == generic.KindNull {
			return true
		}
		w.push(f.Name)
		defer w.pop()

		if len(desc.Mutators(f.Name)) == 0 {
			w.drop(f.Name, desc.Name(), ReasonNoMutator, nil)
			return true
		}
		w.assign(obj, desc, f.Name, generic.Visit[any](v, w))
		return true
	})
	return obj, nil
}

func (w *walker) VisitNull() any                   { return nil }
func (w *walker) VisitText(t generic.Text) any     { return t.String() }
func (w *walker) VisitBytes(b generic.Bytes) any   { return b.Copy() }
func (w *walker) VisitNumber(n generic.Number) any { return n.Native() }
func (w *walker) VisitBool(b generic.Bool) any     { return bool(b) }

// VisitRecord builds a nested record as the type named by its own schema.
func (w *walker) VisitRecord(rec *generic.Record) any {
	desc, err := w.types.Resolve(rec.FullName())
	if err != nil {
		if w.types.AllowUnknown() && errors.Is(err, typeregistry.ErrUnknownType) {
			return w.fallbackMap(rec)
		}
		w.drop(w.field(), rec.FullName(), ReasonUnknownType, err)
		return nil
	}

	obj, err := w.populate(rec, desc)
	if err != nil {
		w.drop(w.field(), rec.FullName(), ReasonConstructFailed, err)
		return nil
	}
	return obj.Interface()
}

// VisitList keeps element order. Elements that translate to nothing stay nil.
func (w *walker) VisitList(l generic.List) any {
	out := make([]any, len(l))
	for i, item := range l {
		w.push("[" + strconv.Itoa(i) + "]")
		out[i] = generic.Visit[any](item, w)
		w.pop()
	}
	return out
}

// VisitMap normalizes keys to plain strings and translates values.
func (w *walker) VisitMap(m generic.Map) any {
	out := make(map[string]any, len(m))
	for _, e := range m {
		key := e.Key.String()
		w.push("[" + key + "]")
		out[key] = generic.Visit[any](e.Value, w)
		w.pop()
	}
	return out
}

func (w *walker) fallbackMap(rec *generic.Record) map[string]any {
	out := make(map[string]any, rec.Len())
	rec.Each(func(f generic.Field, v generic.Value) bool {
		if v == nil || v.Kind() == generic.KindNull {
			return true
		}
		w.push(f.Name)
		out[f.Name] = generic.Visit[any](v, w)
		w.pop()
		return true
	})
	return out
}

func (w *walker) push(seg string) { w.path = append(w.path, seg) }
func (w *walker) pop()            { w.path = w.path[:len(w.path)-1] }

// field is the innermost named path segment.
func (w *walker) field() string {
	for i := len(w.path) - 1; i >= 0; i-- {
		if !strings.HasPrefix(w.path[i], "[") {
			return w.path[i]
		}
	}
	return ""
}

func (w *walker) pathString() string {
	var b strings.Builder
	for _, seg := range w.path {
		if b.Len() > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (w *walker) drop(field, typ string, reason DropReason, err error) {
	w.diags = append(w.diags, Diagnostic{
		Path:   w.pathString(),
		Field:  field,
		Type:   typ,
		Reason: reason,
		Err:    err,
	})
}
