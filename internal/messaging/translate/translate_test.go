package translate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"wires/internal/messaging/generic"
	"wires/internal/messaging/typeregistry"
)

// =============================================================================
// Target types
// =============================================================================

type address struct {
	street string
	City   string
}

func (a *address) SetStreet(v string) { a.street = v }

type lineItem struct {
	Sku string
	Qty int32
}

type person struct {
	name      string
	Age       int
	Nickname  string
	Avatar    []byte
	Address   *address
	Home      address
	Items     []lineItem
	Labels    map[string]string
	Parts     map[string]*lineItem
	Extra     any
	Tags      any
	tagList   []string
	Joined    time.Time
	Small     int8
	Unsigned  uint16
	Ratio     float32
	Status    status
	Failing   string
	Panicking string
	Window    [3]int32
	Digest    [4]byte
}

type status string

var errInvalidAge = errors.New("invalid age")

func (p *person) SetName(v string)      { p.name = v }
func (p *person) SetTags(v []string)    { p.tagList = v }
func (p *person) SetPanicking(v string) { panic("refusing " + v) }
func (p *person) SetFailing(v string) error {
	return fmt.Errorf("set failing: %w", fmt.Errorf("validate: %w", errInvalidAge))
}

const (
	personType  = "com.acme.Person"
	addressType = "com.acme.Address"
	itemType    = "com.acme.LineItem"
)

// =============================================================================
// Suite
// =============================================================================

type TranslateSuite struct {
	suite.Suite
	types      *typeregistry.Registry
	translator *Translator
}

func TestTranslateSuite(t *testing.T) {
	suite.Run(t, new(TranslateSuite))
}

func (s *TranslateSuite) SetupTest() {
	s.types = typeregistry.New()
	s.Require().NoError(s.types.RegisterConstructor(func() any {
		return &person{Nickname: "anonymous"}
	}, personType))
	s.types.MustRegister(&address{}, addressType)
	s.types.MustRegister(&lineItem{}, itemType)
	s.translator = New(s.types)
}

func (s *TranslateSuite) translate(root *generic.Record) (*person, []Diagnostic) {
	desc, err := s.types.Resolve(personType)
	s.Require().NoError(err)
	obj, diags, err := s.translator.Translate(root, desc)
	s.Require().NoError(err)
	p, ok := obj.(*person)
	s.Require().True(ok, "got %T", obj)
	return p, diags
}

func newPerson() *generic.Record {
	return generic.NewRecord(personType)
}

func newAddress(street, city string) *generic.Record {
	return generic.NewRecord(addressType).
		Set("street", generic.TextOf(street)).
		Set("city", generic.TextOf(city))
}

func newItem(sku string, qty int32) *generic.Record {
	return generic.NewRecord(itemType).
		Set("sku", generic.TextOf(sku)).
		Set("qty", generic.Int(qty))
}

// =============================================================================
// Structure
// =============================================================================

func (s *TranslateSuite) TestFlatRecord() {
	p, diags := s.translate(newPerson().
		Set("name", generic.TextOf("Ada")).
		Set("age", generic.Int(36)))

	s.Empty(diags)
	s.Equal("Ada", p.name)
	s.Equal(36, p.Age)
}

func (s *TranslateSuite) TestNestedRecord() {
	p, diags := s.translate(newPerson().
		Set("address", newAddress("1 Main St", "Springfield")).
		Set("home", newAddress("2 Elm St", "Shelbyville")))

	s.Empty(diags)
	s.Require().NotNil(p.Address)
	s.Equal("1 Main St", p.Address.street)
	s.Equal("Springfield", p.Address.City)
	s.Equal("2 Elm St", p.Home.street)
}

func (s *TranslateSuite) TestListOfRecords() {
	p, diags := s.translate(newPerson().
		Set("items", generic.List{newItem("a", 1), newItem("b", 2), newItem("c", 3)}))

	s.Empty(diags)
	s.Equal([]lineItem{{"a", 1}, {"b", 2}, {"c", 3}}, p.Items)
}

func (s *TranslateSuite) TestMapOfRecords() {
	p, diags := s.translate(newPerson().
		Set("parts", generic.Map{
			{Key: generic.WireText([]byte("left")), Value: newItem("l", 1)},
			{Key: generic.TextOf("right"), Value: newItem("r", 2)},
		}).
		Set("labels", generic.Map{{Key: generic.WireText([]byte("tier")), Value: generic.WireText([]byte("gold"))}}))

	s.Empty(diags)
	s.Require().Len(p.Parts, 2)
	s.Equal(&lineItem{"l", 1}, p.Parts["left"])
	s.Equal(&lineItem{"r", 2}, p.Parts["right"])
	s.Equal(map[string]string{"tier": "gold"}, p.Labels)
}

func (s *TranslateSuite) TestEmptyCollections() {
	p, diags := s.translate(newPerson().
		Set("items", generic.List{}).
		Set("labels", generic.Map{}))

	s.Empty(diags)
	s.NotNil(p.Items)
	s.Empty(p.Items)
	s.NotNil(p.Labels)
	s.Empty(p.Labels)
}

// =============================================================================
// Leaves
// =============================================================================

func (s *TranslateSuite) TestLeafRoundTrip() {
	wire := []byte("xxAda Lovelacexx")
	raw := []byte{0xde, 0xad, 0xbe, 0xef, 0x00}

	p, diags := s.translate(newPerson().
		Set("name", generic.WireText(wire[2:14])).
		Set("avatar", generic.BytesOf(raw[:4])))
	s.Empty(diags)

	wire[2] = 'X'
	raw[0] = 0
	s.Equal("Ada Lovelace", p.name)
	s.Equal([]byte{0xde, 0xad, 0xbe, 0xef}, p.Avatar)
	s.Equal(4, cap(p.Avatar))
}

func (s *TranslateSuite) TestCoercion() {
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Run("numbers narrow within range", func() {
		p, diags := s.translate(newPerson().
			Set("small", generic.Long(-12)).
			Set("unsigned", generic.Int(65535)).
			Set("ratio", generic.Double(0.5)))
		s.Empty(diags)
		s.Equal(int8(-12), p.Small)
		s.Equal(uint16(65535), p.Unsigned)
		s.Equal(float32(0.5), p.Ratio)
	})

	s.Run("epoch millis and RFC 3339 become time", func() {
		p, diags := s.translate(newPerson().Set("joined", generic.Long(joined.UnixMilli())))
		s.Empty(diags)
		s.True(joined.Equal(p.Joined))

		p, diags = s.translate(newPerson().Set("joined", generic.TextOf(joined.Format(time.RFC3339))))
		s.Empty(diags)
		s.True(joined.Equal(p.Joined))
	})

	s.Run("named string types", func() {
		p, diags := s.translate(newPerson().Set("status", generic.TextOf("active")))
		s.Empty(diags)
		s.Equal(status("active"), p.Status)
	})
}

// =============================================================================
// Degradation
// =============================================================================

func (s *TranslateSuite) TestUnknownFieldIsSkipped() {
	p, diags := s.translate(newPerson().
		Set("name", generic.TextOf("Ada")).
		Set("favoriteColor", generic.TextOf("green")))

	s.Equal("Ada", p.name)
	s.Require().Len(diags, 1)
	s.Equal(ReasonNoMutator, diags[0].Reason)
	s.Equal("favoriteColor", diags[0].Path)
	s.Equal(personType, diags[0].Type)
}

func (s *TranslateSuite) TestNullKeepsDefault() {
	p, diags := s.translate(generic.NewRecord(personType,
		generic.Field{Name: "nickname", Kind: generic.KindText, Nullable: true},
		generic.Field{Name: "address", Kind: generic.KindRecord, Nullable: true},
	).Set("name", generic.TextOf("Ada")))

	s.Empty(diags)
	s.Equal("anonymous", p.Nickname)
	s.Nil(p.Address)
}

func (s *TranslateSuite) TestUnresolvableNestedType() {
	rec := newPerson().
		Set("name", generic.TextOf("Ada")).
		Set("address", generic.NewRecord("com.acme.Unknown").Set("street", generic.TextOf("x")))

	p, diags := s.translate(rec)

	s.Equal("Ada", p.name)
	s.Nil(p.Address)
	s.Require().Len(diags, 1)
	s.Equal(ReasonUnknownType, diags[0].Reason)
	s.Equal("address", diags[0].Field)
	s.Equal("com.acme.Unknown", diags[0].Type)
	s.ErrorIs(diags[0].Err, typeregistry.ErrUnknownType)
}

func (s *TranslateSuite) TestUnresolvableListElement() {
	p, diags := s.translate(newPerson().
		Set("extra", generic.List{newItem("a", 1), generic.NewRecord("com.acme.Unknown")}))

	s.Require().Len(diags, 1)
	s.Equal("extra[1]", diags[0].Path)
	s.Equal("extra", diags[0].Field)
	items, ok := p.Extra.([]any)
	s.Require().True(ok)
	s.Len(items, 2)
	s.Nil(items[1])
}

func (s *TranslateSuite) TestAllowUnknownKeepsMap() {
	types := typeregistry.New(typeregistry.WithAllowUnknown())
	types.MustRegister(&person{}, personType)
	desc, _ := types.Resolve(personType)

	obj, diags, err := New(types).Translate(newPerson().
		Set("extra", generic.NewRecord("com.acme.Unknown").
			Set("street", generic.TextOf("x")).
			Set("gone", generic.Null{})), desc)

	s.Require().NoError(err)
	s.Empty(diags)
	s.Equal(map[string]any{"street": "x"}, obj.(*person).Extra)
}

func (s *TranslateSuite) TestShapeMismatch() {
	s.Run("text into int", func() {
		p, diags := s.translate(newPerson().Set("age", generic.TextOf("old")))
		s.Zero(p.Age)
		s.Require().Len(diags, 1)
		s.Equal(ReasonShapeMismatch, diags[0].Reason)
	})

	s.Run("overflow", func() {
		p, diags := s.translate(newPerson().Set("small", generic.Long(1<<40)))
		s.Zero(p.Small)
		s.Require().Len(diags, 1)
		s.Equal(ReasonShapeMismatch, diags[0].Reason)
	})

	s.Run("fractional into int", func() {
		_, diags := s.translate(newPerson().Set("age", generic.Double(1.5)))
		s.Require().Len(diags, 1)
		s.Equal(ReasonShapeMismatch, diags[0].Reason)
	})
}

func (s *TranslateSuite) TestFixedSizeArrays() {
	s.Run("list of matching length", func() {
		p, diags := s.translate(newPerson().
			Set("window", generic.List{generic.Int(1), generic.Int(2), generic.Int(3)}))
		s.Empty(diags)
		s.Equal([3]int32{1, 2, 3}, p.Window)
	})

	s.Run("bytes of matching length", func() {
		p, diags := s.translate(newPerson().Set("digest", generic.BytesOf([]byte{0xde, 0xad, 0xbe, 0xef})))
		s.Empty(diags)
		s.Equal([4]byte{0xde, 0xad, 0xbe, 0xef}, p.Digest)
	})

	s.Run("length mismatch drops", func() {
		p, diags := s.translate(newPerson().Set("window", generic.List{generic.Int(1)}))
		s.Zero(p.Window)
		s.Require().Len(diags, 1)
		s.Equal(ReasonShapeMismatch, diags[0].Reason)
		s.Equal("window", diags[0].Path)
	})
}

func (s *TranslateSuite) TestMutatorFailures() {
	s.Run("setter error is unwrapped to its cause", func() {
		_, diags := s.translate(newPerson().Set("failing", generic.TextOf("x")))
		s.Require().Len(diags, 1)
		s.Equal(ReasonMutatorFailed, diags[0].Reason)
		s.Equal(errInvalidAge, diags[0].Err)
	})

	s.Run("setter panic is recovered", func() {
		p, diags := s.translate(newPerson().
			Set("panicking", generic.TextOf("x")).
			Set("name", generic.TextOf("Ada")))
		s.Equal("Ada", p.name)
		s.Require().Len(diags, 1)
		s.Equal(ReasonMutatorRejected, diags[0].Reason)
		s.Equal("panicking", diags[0].Path)
	})
}

func (s *TranslateSuite) TestShapeTieBreak() {
	p, diags := s.translate(newPerson().
		Set("tags", generic.List{generic.TextOf("a"), generic.TextOf("b")}))
	s.Empty(diags)
	s.Equal([]string{"a", "b"}, p.tagList)
	s.Nil(p.Tags)

	p, diags = s.translate(newPerson().Set("tags", generic.TextOf("solo")))
	s.Empty(diags)
	s.Equal("solo", p.Tags)
	s.Nil(p.tagList)
}

func (s *TranslateSuite) TestIdempotent() {
	rec := newPerson().
		Set("name", generic.TextOf("Ada")).
		Set("address", newAddress("1 Main St", "Springfield")).
		Set("items", generic.List{newItem("a", 1)}).
		Set("parts", generic.Map{{Key: generic.TextOf("k"), Value: newItem("k", 2)}}).
		Set("avatar", generic.BytesOf([]byte{1, 2}))

	first, _ := s.translate(rec)
	second, _ := s.translate(rec)

	s.Empty(cmp.Diff(first, second, cmp.AllowUnexported(person{}, address{})))
	s.NotSame(first.Address, second.Address)
}

func (s *TranslateSuite) TestNestedDropPath() {
	_, diags := s.translate(newPerson().
		Set("items", generic.List{
			newItem("a", 1),
			generic.NewRecord(itemType).Set("qty", generic.TextOf("many")),
		}))

	s.Require().Len(diags, 1)
	s.Equal("items[1].qty", diags[0].Path)
	s.Equal(itemType, diags[0].Type)
	s.Contains(diags[0].String(), "shape_mismatch")
}

func (s *TranslateSuite) TestConstructFailure() {
	types := typeregistry.New()
	s.Require().NoError(types.RegisterConstructor(func() any { return &person{} }, "ok"))
	desc, _ := types.Resolve("ok")

	failing := typeregistry.New()
	calls := 0
	s.Require().NoError(failing.RegisterConstructor(func() any {
		calls++
		if calls > 1 {
			return &address{}
		}
		return &person{}
	}, personType))
	bad, _ := failing.Resolve(personType)

	_, _, err := New(types).Translate(newPerson(), desc)
	s.NoError(err)

	_, _, err = New(failing).Translate(newPerson(), bad)
	var constructErr *ConstructError
	s.Require().ErrorAs(err, &constructErr)
	s.Equal(personType, constructErr.Type)
}

func (s *TranslateSuite) TestConstructorPanicIsConstructError() {
	types := typeregistry.New()
	calls := 0
	s.Require().NoError(types.RegisterConstructor(func() any {
		calls++
		if calls > 1 {
			panic("defaults unavailable")
		}
		return &person{}
	}, personType))
	desc, _ := types.Resolve(personType)

	s.NotPanics(func() {
		_, _, err := New(types).Translate(newPerson(), desc)
		var constructErr *ConstructError
		s.Require().ErrorAs(err, &constructErr)
		var panicErr *typeregistry.PanicError
		s.ErrorAs(err, &panicErr)
	})
}
