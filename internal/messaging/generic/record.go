package generic

import (
	"github.com/elliotchance/orderedmap/v3"
)

// Field describes one field of a record's embedded schema.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
}

type slot struct {
	field Field
	value Value
}

// Record is a named record carrying its own schema. Fields iterate in schema
// order.
type Record struct {
	fullName string
	slots    *orderedmap.OrderedMap[string, slot]
}

// NewRecord creates a record of the named schema with the declared fields,
// all initially Null.
func NewRecord(fullName string, fields ...Field) *Record {
	r := &Record{
		fullName: fullName,
		slots:    orderedmap.NewOrderedMapWithCapacity[string, slot](len(fields)),
	}
	for _, f := range fields {
		r.slots.Set(f.Name, slot{field: f, value: Null{}})
	}
	return r
}

func (*Record) Kind() Kind { return KindRecord }
func (*Record) sealed()    {}

// FullName is the namespace-qualified schema name.
func (r *Record) FullName() string { return r.fullName }

// Set assigns a field value. Undeclared fields are appended to the schema with
// the kind of v. A nil value is stored as Null.
func (r *Record) Set(name string, v Value) *Record {
	if v == nil {
		v = Null{}
	}
	s, ok := r.slots.Get(name)
	if !ok {
		s = slot{field: Field{Name: name, Kind: v.Kind(), Nullable: v.Kind() == KindNull}}
	}
	s.value = v
	r.slots.Set(name, s)
	return r
}

// Get returns the value of a declared field.
func (r *Record) Get(name string) (Value, bool) {
	s, ok := r.slots.Get(name)
	if !ok {
		return nil, false
	}
	return s.value, true
}

// Len is the number of declared fields.
func (r *Record) Len() int { return r.slots.Len() }

// Fields returns the embedded schema's fields in order.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, r.slots.Len())
	for el := r.slots.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.field)
	}
	return out
}

// Each calls fn for every field in schema order until fn returns false.
func (r *Record) Each(fn func(f Field, v Value) bool) {
	for el := r.slots.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.field, el.Value.value) {
			return
		}
	}
}
