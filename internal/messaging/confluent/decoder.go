package confluent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hamba/avro/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wires/internal/messaging/generic"
)

// maxBlockItems bounds a single array or map block so a corrupt count cannot
// spin on zero-width items.
const maxBlockItems = 1 << 20

// SchemaStore looks up writer schemas by registry id.
type SchemaStore interface {
	Schema(ctx context.Context, id int) (avro.Schema, error)
}

// Decoder turns framed Avro payloads into generic records.
type Decoder struct {
	schemas SchemaStore
	tracer  trace.Tracer
}

// NewDecoder creates a decoder resolving writer schemas through schemas.
func NewDecoder(schemas SchemaStore) *Decoder {
	return &Decoder{schemas: schemas, tracer: otel.Tracer("wires/internal/messaging/confluent")}
}

// Decode parses the frame, fetches the writer schema and walks the body
// against it. The root schema must be a record.
func (d *Decoder) Decode(ctx context.Context, payload []byte) (rec *generic.Record, err error) {
	ctx, span := d.tracer.Start(ctx, "confluent.Decode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode failed")
		}
		span.End()
	}()

	id, body, err := ParseFrame(payload)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("avro.schema_id", id))

	schema, err := d.schemas.Schema(ctx, id)
	if err != nil {
		return nil, &DecodeError{SchemaID: id, Err: fmt.Errorf("lookup schema: %w", err)}
	}
	rec, err = DecodeBody(schema, body)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.SchemaID = id
		}
		return nil, err
	}
	return rec, nil
}

// DecodeBody walks an unframed Avro body against schema.
func DecodeBody(schema avro.Schema, body []byte) (*generic.Record, error) {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}
	if _, ok := schema.(*avro.RecordSchema); !ok {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %s", ErrNotRecord, schema.Type())}
	}

	w := &walker{r: avro.NewReader(bytes.NewReader(body), 512)}
	v, err := w.value(schema)
	if err != nil {
		return nil, &DecodeError{Path: w.pathString(), Err: err}
	}
	return v.(*generic.Record), nil
}

type walker struct {
	r    *avro.Reader
	path []string
}

func (w *walker) value(s avro.Schema) (generic.Value, error) {
	v, err := w.read(s)
	if err != nil {
		return nil, err
	}
	if w.r.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, w.r.Error)
	}
	return v, nil
}

func (w *walker) read(s avro.Schema) (generic.Value, error) {
	r := w.r
	switch s := s.(type) {
	case *avro.RefSchema:
		return w.value(s.Schema())
	case *avro.RecordSchema:
		return w.record(s)
	case *avro.ArraySchema:
		return w.array(s)
	case *avro.MapSchema:
		return w.mapValue(s)
	case *avro.UnionSchema:
		idx := r.ReadLong()
		types := s.Types()
		if r.Error != nil {
			return nil, r.Error
		}
		if idx < 0 || idx >= int64(len(types)) {
			return nil, fmt.Errorf("union branch %d out of range", idx)
		}
		return w.value(types[idx])
	case *avro.EnumSchema:
		idx := r.ReadInt()
		symbols := s.Symbols()
		if r.Error != nil {
			return nil, r.Error
		}
		if idx < 0 || int(idx) >= len(symbols) {
			return nil, fmt.Errorf("enum %s symbol %d out of range", s.FullName(), idx)
		}
		return generic.TextOf(symbols[idx]), nil
	case *avro.FixedSchema:
		buf := make([]byte, s.Size())
		r.Read(buf)
		return generic.BytesOf(buf), nil
	}

	switch s.Type() {
	case avro.Null:
		return generic.Null{}, nil
	case avro.Boolean:
		return generic.Bool(r.ReadBool()), nil
	case avro.Int:
		return generic.Int(r.ReadInt()), nil
	case avro.Long:
		return generic.Long(r.ReadLong()), nil
	case avro.Float:
		return generic.Float(r.ReadFloat()), nil
	case avro.Double:
		return generic.Double(r.ReadDouble()), nil
	case avro.String:
		return generic.WireText(r.ReadBytes()), nil
	case avro.Bytes:
		return generic.BytesOf(r.ReadBytes()), nil
	default:
		return nil, fmt.Errorf("unsupported schema type %s", s.Type())
	}
}

func (w *walker) record(s *avro.RecordSchema) (generic.Value, error) {
	fields := s.Fields()
	decl := make([]generic.Field, len(fields))
	for i, f := range fields {
		kind, nullable := kindOf(f.Type())
		decl[i] = generic.Field{Name: f.Name(), Kind: kind, Nullable: nullable}
	}

	rec := generic.NewRecord(s.FullName(), decl...)
	for _, f := range fields {
		w.push(f.Name())
		v, err := w.value(f.Type())
		if err != nil {
			return nil, err
		}
		w.pop()
		rec.Set(f.Name(), v)
	}
	return rec, nil
}

func (w *walker) array(s *avro.ArraySchema) (generic.Value, error) {
	out := generic.List{}
	for {
		n, err := w.blockLen()
		if err != nil || n == 0 {
			return out, err
		}
		for range n {
			w.push("[" + strconv.Itoa(len(out)) + "]")
			v, err := w.value(s.Items())
			if err != nil {
				return nil, err
			}
			w.pop()
			out = append(out, v)
		}
	}
}

func (w *walker) mapValue(s *avro.MapSchema) (generic.Value, error) {
	out := generic.Map{}
	for {
		n, err := w.blockLen()
		if err != nil || n == 0 {
			return out, err
		}
		for range n {
			key := w.r.ReadBytes()
			if w.r.Error != nil {
				return nil, w.r.Error
			}
			w.push("[" + string(key) + "]")
			v, err := w.value(s.Values())
			if err != nil {
				return nil, err
			}
			w.pop()
			out = append(out, generic.MapEntry{Key: generic.WireText(key), Value: v})
		}
	}
}

func (w *walker) blockLen() (int64, error) {
	n, _ := w.r.ReadBlockHeader()
	if w.r.Error != nil {
		return 0, w.r.Error
	}
	if n > maxBlockItems {
		return 0, fmt.Errorf("block of %d items exceeds limit", n)
	}
	return n, nil
}

func (w *walker) push(seg string) { w.path = append(w.path, seg) }
func (w *walker) pop()            { w.path = w.path[:len(w.path)-1] }

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

// kindOf maps a field schema to the generic kind it decodes to. Unions report
// their first non-null branch and are nullable when they contain null.
func kindOf(s avro.Schema) (generic.Kind, bool) {
	switch s.Type() {
	case avro.Ref:
		return kindOf(s.(*avro.RefSchema).Schema())
	case avro.Union:
		nullable := false
		kind := generic.KindNull
		for _, t := range s.(*avro.UnionSchema).Types() {
			if t.Type() == avro.Null {
				nullable = true
				continue
			}
			if kind == generic.KindNull {
				kind, _ = kindOf(t)
			}
		}
		return kind, nullable
	case avro.Null:
		return generic.KindNull, true
	case avro.Boolean:
		return generic.KindBool, false
	case avro.Int, avro.Long, avro.Float, avro.Double:
		return generic.KindNumber, false
	case avro.String, avro.Enum:
		return generic.KindText, false
	case avro.Bytes, avro.Fixed:
		return generic.KindBytes, false
	case avro.Array:
		return generic.KindList, false
	case avro.Map:
		return generic.KindMap, false
	default:
		return generic.KindRecord, false
	}
}
