package typeregistry

import (
	"reflect"
	"time"
)

// Shape is the category of value a mutator parameter accepts.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeBytes
	ShapeRecord
	ShapeList
	ShapeMap
	ShapeAny
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeBytes:
		return "bytes"
	case ShapeRecord:
		return "record"
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	case ShapeAny:
		return "any"
	default:
		return "unknown"
	}
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
)

// ShapeOf classifies a Go type. Pointers are classified by their element.
func ShapeOf(t reflect.Type) Shape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t.Kind() == reflect.Interface:
		return ShapeAny
	case t == bytesType:
		return ShapeBytes
	case t == timeType:
		return ShapeScalar
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return ShapeList
	case reflect.Map:
		return ShapeMap
	case reflect.Struct:
		return ShapeRecord
	default:
		return ShapeScalar
	}
}
