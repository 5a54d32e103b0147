package generic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	for k := Kind(0); int(k) < kindTotal; k++ {
		assert.NotContains(t, k.String(), "Kind(", "kind %d has no name", int(k))
	}
	assert.Equal(t, "Record", KindRecord.String())
	assert.True(t, KindText.Scalar())
	assert.False(t, KindMap.Scalar())
}

func TestText_NormalizesWireForm(t *testing.T) {
	buf := []byte("hello")
	txt := WireText(buf)
	require.True(t, txt.Wire())

	s := txt.String()
	buf[0] = 'j'
	assert.Equal(t, "hello", s, "normalized string must not alias the wire buffer")
	assert.Equal(t, "jello", txt.String())
	assert.False(t, TextOf("x").Wire())
}

func TestBytes_CopyIsIndependent(t *testing.T) {
	backing := []byte{1, 2, 3, 4, 5, 6}
	b := BytesOf(backing[2:4])

	cp := b.Copy()
	backing[2] = 9
	assert.Equal(t, []byte{3, 4}, cp)
	assert.Equal(t, 2, b.Len())
	assert.Len(t, cp, 2)
	assert.Equal(t, 2, cap(cp))
}

func TestNumber_Native(t *testing.T) {
	assert.Equal(t, int32(7), Int(7).Native())
	assert.Equal(t, int64(7), Long(7).Native())
	assert.Equal(t, float32(1.5), Float(1.5).Native())
	assert.Equal(t, 2.25, Double(2.25).Native())
	assert.Equal(t, int32(0), Number{}.Native())
	assert.Equal(t, "42", Long(42).String())
}

func TestRecord_SchemaOrder(t *testing.T) {
	r := NewRecord("com.acme.Person",
		Field{Name: "name", Kind: KindText},
		Field{Name: "age", Kind: KindNumber, Nullable: true},
	)
	r.Set("age", Int(30)).Set("name", TextOf("Ann")).Set("extra", Bool(true))

	var names []string
	r.Each(func(f Field, _ Value) bool {
		names = append(names, f.Name)
		return true
	})
	assert.Equal(t, []string{"name", "age", "extra"}, names)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, KindBool, r.Fields()[2].Kind)
	assert.True(t, r.Fields()[1].Nullable)

	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ann", v.(Text).String())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRecord_DeclaredFieldsStartNull(t *testing.T) {
	r := NewRecord("com.acme.Empty", Field{Name: "a", Kind: KindText, Nullable: true})
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindNull, v.Kind())

	r.Set("a", nil)
	v, _ = r.Get("a")
	assert.Equal(t, KindNull, v.Kind())
}

// kindNamer renders a tree as a compact string to check dispatch.
type kindNamer struct{}

func (kindNamer) VisitNull() string           { return "null" }
func (kindNamer) VisitText(t Text) string     { return "text(" + t.String() + ")" }
func (kindNamer) VisitBytes(Bytes) string     { return "bytes" }
func (kindNamer) VisitNumber(n Number) string { return "num(" + n.String() + ")" }
func (kindNamer) VisitBool(b Bool) string {
	if b {
		return "true"
	}
	return "false"
}
func (k kindNamer) VisitRecord(r *Record) string {
	var parts []string
	r.Each(func(f Field, v Value) bool {
		parts = append(parts, f.Name+"="+Visit[string](v, k))
		return true
	})
	return r.FullName() + "{" + strings.Join(parts, ",") + "}"
}
func (k kindNamer) VisitList(l List) string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = Visit[string](v, k)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
func (k kindNamer) VisitMap(m Map) string {
	parts := make([]string, len(m))
	for i, e := range m {
		parts[i] = e.Key.String() + ":" + Visit[string](e.Value, k)
	}
	return "map[" + strings.Join(parts, ",") + "]"
}

func TestVisit_Dispatch(t *testing.T) {
	inner := NewRecord("Inner").Set("ok", Bool(false))
	root := NewRecord("Root").
		Set("list", List{Long(1), Null{}}).
		Set("map", Map{{Key: TextOf("k"), Value: inner}}).
		Set("raw", BytesOf([]byte{1}))

	got := Visit[string](root, kindNamer{})
	assert.Equal(t, "Root{list=[num(1),null],map=map[k:Inner{ok=false}],raw=bytes}", got)

	var nilRecord *Record
	assert.Equal(t, "null", Visit[string](nilRecord, kindNamer{}))
	assert.Equal(t, "null", Visit[string](nil, kindNamer{}))
}
