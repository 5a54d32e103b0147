package translate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"wires/internal/messaging/typeregistry"
)

var (
	timeType = reflect.TypeFor[time.Time]()

	errShape = errors.New("value does not fit parameter")
)

// assign hands a translated value to the best fitting mutator of field.
// Candidates that cannot take the value are skipped; when none can, the field
// is dropped with a shape mismatch.
func (w *walker) assign(obj reflect.Value, desc *typeregistry.Descriptor, field string, native any) {
	if native == nil {
		return
	}

	var lastErr error
	for _, m := range desc.Candidates(field, shapeOfValue(native)) {
		arg, err := coerce(native, m.Param)
		if err != nil {
			lastErr = err
			continue
		}
		if err := m.Apply(obj, arg); err != nil {
			var panicErr *typeregistry.PanicError
			if errors.As(err, &panicErr) {
				w.drop(field, desc.Name(), ReasonMutatorRejected, err)
			} else {
				w.drop(field, desc.Name(), ReasonMutatorFailed, rootCause(err))
			}
		}
		return
	}
	w.drop(field, desc.Name(), ReasonShapeMismatch, lastErr)
}

// shapeOfValue classifies a translated value the way mutator parameters are
// classified.
func shapeOfValue(v any) typeregistry.Shape {
	switch v.(type) {
	case []byte:
		return typeregistry.ShapeBytes
	case []any:
		return typeregistry.ShapeList
	case map[string]any:
		return typeregistry.ShapeMap
	}
	return typeregistry.ShapeOf(reflect.TypeOf(v))
}

// coerce converts a translated value into a value assignable to t.
func coerce(native any, t reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(native)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch {
	case v.Kind() == reflect.Pointer && t.Kind() != reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s into %s", errShape, v.Type(), t)
		}
		return coerce(v.Elem().Interface(), t)
	case t.Kind() == reflect.Pointer:
		inner, err := coerce(native, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	case t == timeType:
		return coerceTime(v)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return coerceNumber(v, t)
	case reflect.String:
		if v.Kind() == reflect.String {
			return v.Convert(t), nil
		}
	case reflect.Bool:
		if v.Kind() == reflect.Bool {
			return v.Convert(t), nil
		}
	case reflect.Slice:
		if b, ok := native.([]byte); ok && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf(b).Convert(t), nil
		}
		if items, ok := native.([]any); ok {
			return coerceSlice(items, t)
		}
	case reflect.Array:
		if b, ok := native.([]byte); ok && t.Elem().Kind() == reflect.Uint8 {
			return coerceArray(reflect.ValueOf(b), t)
		}
		if items, ok := native.([]any); ok {
			slice, err := coerceSlice(items, reflect.SliceOf(t.Elem()))
			if err != nil {
				return reflect.Value{}, err
			}
			return coerceArray(slice, t)
		}
	case reflect.Map:
		if entries, ok := native.(map[string]any); ok && t.Key().Kind() == reflect.String {
			return coerceMap(entries, t)
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %T into %s", errShape, native, t)
}

func coerceSlice(items []any, t reflect.Type) (reflect.Value, error) {
	out := reflect.MakeSlice(t, len(items), len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		ev, err := coerce(item, t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

// coerceArray copies a slice into a fixed-size array of exactly its length.
func coerceArray(slice reflect.Value, t reflect.Type) (reflect.Value, error) {
	if slice.Len() != t.Len() {
		return reflect.Value{}, fmt.Errorf("%w: %d elements into %s", errShape, slice.Len(), t)
	}
	out := reflect.New(t).Elem()
	reflect.Copy(out, slice.Convert(reflect.SliceOf(t.Elem())))
	return out, nil
}

func coerceMap(entries map[string]any, t reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, len(entries))
	for k, item := range entries {
		key := reflect.ValueOf(k).Convert(t.Key())
		if item == nil {
			out.SetMapIndex(key, reflect.Zero(t.Elem()))
			continue
		}
		ev, err := coerce(item, t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%s]: %w", k, err)
		}
		out.SetMapIndex(key, ev)
	}
	return out, nil
}

func coerceNumber(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch v.Kind() {
	case reflect.Int32, reflect.Int64:
		n := v.Int()
		switch {
		case out.CanInt():
			if out.OverflowInt(n) {
				return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", errShape, n, t)
			}
			out.SetInt(n)
		case out.CanUint():
			if n < 0 || out.OverflowUint(uint64(n)) {
				return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", errShape, n, t)
			}
			out.SetUint(uint64(n))
		default:
			out.SetFloat(float64(n))
		}
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case out.CanFloat():
			if out.OverflowFloat(f) {
				return reflect.Value{}, fmt.Errorf("%w: %g overflows %s", errShape, f, t)
			}
			out.SetFloat(f)
		case f != math.Trunc(f) || math.IsInf(f, 0):
			return reflect.Value{}, fmt.Errorf("%w: %g is not integral", errShape, f)
		case out.CanInt():
			if f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return reflect.Value{}, fmt.Errorf("%w: %g overflows %s", errShape, f, t)
			}
			out.SetInt(int64(f))
		default:
			if f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return reflect.Value{}, fmt.Errorf("%w: %g overflows %s", errShape, f, t)
			}
			out.SetUint(uint64(f))
		}
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s into %s", errShape, v.Type(), t)
	}
	return out, nil
}

// coerceTime accepts epoch milliseconds and RFC 3339 strings.
func coerceTime(v reflect.Value) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Int32, reflect.Int64:
		return reflect.ValueOf(time.UnixMilli(v.Int()).UTC()), nil
	case reflect.String:
		ts, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", errShape, err)
		}
		return reflect.ValueOf(ts), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s into time", errShape, v.Type())
}
