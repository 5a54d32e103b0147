// Package generic holds the self-describing record tree produced by payload
// decoders and consumed by the translator. Values are immutable once built.
package generic

import (
	"fmt"
	"strconv"
)

// Value is the closed set of generic variants. Only this package implements it.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is an absent value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) sealed()    {}

// Text is a character string. It holds either a plain Go string or the raw
// UTF-8 bytes read off the wire; String normalizes both to a plain string.
type Text struct {
	s    string
	raw  []byte
	wire bool
}

// TextOf wraps a plain string.
func TextOf(s string) Text { return Text{s: s} }

// WireText wraps UTF-8 bytes without copying them.
func WireText(b []byte) Text { return Text{raw: b, wire: true} }

func (Text) Kind() Kind { return KindText }
func (Text) sealed()    {}

// String returns a plain string that does not alias decoder buffers.
func (t Text) String() string {
	if t.wire {
		return string(t.raw)
	}
	return t.s
}

// Wire reports whether the text still carries its wire representation.
func (t Text) Wire() bool { return t.wire }

// Bytes is an opaque byte payload. View may alias a decoder buffer.
type Bytes struct {
	b []byte
}

// BytesOf wraps b without copying it.
func BytesOf(b []byte) Bytes { return Bytes{b: b} }

func (Bytes) Kind() Kind { return KindBytes }
func (Bytes) sealed()    {}

// View returns the underlying bytes. Callers must not retain or mutate them.
func (b Bytes) View() []byte { return b.b }

// Copy returns an independent copy of exactly the payload bytes.
func (b Bytes) Copy() []byte {
	out := make([]byte, len(b.b))
	copy(out, b.b)
	return out
}

// Len is the payload length.
func (b Bytes) Len() int { return len(b.b) }

// Number holds one of int32, int64, float32 or float64.
type Number struct {
	native any
}

func Int(v int32) Number      { return Number{native: v} }
func Long(v int64) Number     { return Number{native: v} }
func Float(v float32) Number  { return Number{native: v} }
func Double(v float64) Number { return Number{native: v} }

func (Number) Kind() Kind { return KindNumber }
func (Number) sealed()    {}

// Native returns the Go value in its decoded width.
func (n Number) Native() any {
	if n.native == nil {
		return int32(0)
	}
	return n.native
}

func (n Number) String() string {
	switch v := n.Native().(type) {
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) sealed()    {}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Text
	Value Value
}

// Map is a string-keyed map. Entries keep their decode order.
type Map []MapEntry

func (Map) Kind() Kind { return KindMap }
func (Map) sealed()    {}
