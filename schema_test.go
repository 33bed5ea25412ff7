package recskema_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/reoring/recskema"
)

func TestDeclare_OrderAndInheritance(t *testing.T) {
	st := recskema.NewStore()
	base := declare(t, st, "Base", []recskema.Field{
		{Name: "id", Type: recskema.Integer(recskema.NotNull())},
		{Name: "label", Type: recskema.Text()},
	})
	derived := declare(t, st, "Derived", []recskema.Field{
		{Name: "extra", Type: recskema.Float()},
		{Name: "label", Type: recskema.Text(recskema.NotNull())},
	}, recskema.WithBase(base))

	got := derived.FieldNames()
	want := []string{"id", "label", "extra"}
	if len(got) != len(want) {
		t.Fatalf("fields: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fields: got %v want %v", got, want)
		}
	}
	ft, _ := derived.Field("label")
	if ft.Nullable() {
		t.Fatalf("redeclared field should replace the inherited one")
	}
	if len(base.FieldNames()) != 2 {
		t.Fatalf("base schema must not change")
	}
}

func TestDeclare_Rejects(t *testing.T) {
	st := recskema.NewStore()
	cases := []struct {
		name   string
		fields []recskema.Field
	}{
		{"", nil},
		{"a.B", nil},
		{"Dup", []recskema.Field{{Name: "x", Type: recskema.Text()}, {Name: "x", Type: recskema.Text()}}},
		{"NoType", []recskema.Field{{Name: "x"}}},
		{"Tag", []recskema.Field{{Name: recskema.DefaultSchemaKey, Type: recskema.Text()}}},
	}
	for _, c := range cases {
		_, err := recskema.Declare(c.name, c.fields, recskema.WithStore(st))
		if !errors.Is(err, recskema.ErrInvalidSchema) {
			t.Errorf("%q: expected ErrInvalidSchema, got %v", c.name, err)
		}
	}
	if len(st.Names()) != 0 {
		t.Fatalf("failed declarations must not register: %v", st.Names())
	}
}

func TestFieldsByDeclaration(t *testing.T) {
	first := recskema.Text()
	second := recskema.Integer()
	third := recskema.Boolean()
	fields := recskema.FieldsByDeclaration(map[string]recskema.FieldType{"z": first, "a": third, "m": second})
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	if names[0] != "z" || names[1] != "m" || names[2] != "a" {
		t.Fatalf("expected construction order, got %v", names)
	}
}

func TestSelfReferenceIsBound(t *testing.T) {
	st := recskema.NewStore()
	node := declare(t, st, "Node", []recskema.Field{
		{Name: "value", Type: recskema.Integer()},
		{Name: "child", Type: recskema.SubRecord(recskema.Self)},
		{Name: "children", Type: recskema.List(recskema.SubRecord(recskema.Self))},
	})
	ft, _ := node.Field("child")
	if ft.(*recskema.SubRecordType).Target() != node {
		t.Fatalf("SubRecord(Self) should target the declared schema")
	}
	lt, _ := node.Field("children")
	if lt.(*recskema.ListType).Elem().(*recskema.SubRecordType).Target() != node {
		t.Fatalf("nested Self should be bound too")
	}
}

func TestSchema_IsSimilarTo(t *testing.T) {
	st := recskema.NewStore()
	a := declare(t, st, "A", []recskema.Field{{Name: "x", Type: recskema.Integer()}})
	b := declare(t, st, "B", []recskema.Field{{Name: "x", Type: recskema.Integer()}})
	c := declare(t, st, "C", []recskema.Field{{Name: "y", Type: recskema.Integer()}})
	if !a.IsSimilarTo(b) || a.IsSimilarTo(c) {
		t.Fatalf("structural comparison failed")
	}
}

func TestRecord_ConstructAndAccess(t *testing.T) {
	st := recskema.NewStore()
	point := declare(t, st, "Point", []recskema.Field{
		{Name: "x", Type: recskema.Integer(recskema.NotNull())},
		{Name: "y", Type: recskema.Integer(recskema.NotNull())},
		{Name: "tags", Type: recskema.List(recskema.Text())},
	})

	if _, err := point.New(recskema.Values{"z": 1}); err == nil {
		t.Fatalf("unknown field must fail")
	} else {
		var ae *recskema.AttributeError
		if !errors.As(err, &ae) || ae.Name != "z" {
			t.Fatalf("expected AttributeError, got %v", err)
		}
	}

	p := point.MustNew(recskema.Values{"x": 1})
	if p.MustGet("y") != recskema.NoDefault {
		t.Fatalf("unset non-nullable field should hold NoDefault")
	}
	if err := p.Set("w", 3); err == nil {
		t.Fatalf("setting an undeclared field must fail")
	}
	if _, err := p.Get("w"); err == nil {
		t.Fatalf("reading an undeclared field must fail")
	}
	if err := p.Set("y", 2); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := p.String(); got != `Point(x=1, y=2, tags=[])` {
		t.Fatalf("String: %s", got)
	}
}

func TestRecord_EqualAndOrder(t *testing.T) {
	st := recskema.NewStore()
	point := declare(t, st, "Point", []recskema.Field{
		{Name: "x", Type: recskema.Integer()},
		{Name: "y", Type: recskema.Integer()},
	})
	a := point.MustNew(recskema.Values{"x": 1, "y": 2})
	b := point.MustNew(recskema.Values{"x": int64(1), "y": int32(2)})
	c := point.MustNew(recskema.Values{"x": 1, "y": 3})

	if !a.Equal(b) {
		t.Fatalf("integer widths should not affect equality")
	}
	if a.Equal(c) || a.Equal(nil) {
		t.Fatalf("unexpected equality")
	}
	rs := []*recskema.Record{c, a}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Compare(rs[j]) < 0 })
	if rs[0] != a {
		t.Fatalf("records should sort by field values")
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	st := recskema.NewStore()
	bag := declare(t, st, "Bag", []recskema.Field{{Name: "items", Type: recskema.List(recskema.Integer())}})
	r := bag.MustNew(recskema.Values{"items": []any{1, 2}})
	c := r.Clone()
	c.MustGet("items").([]any)[0] = 5
	if r.MustGet("items").([]any)[0] != 1 {
		t.Fatalf("clone shares list storage")
	}
	if !bag.MustNew(nil).Equal(bag.MustNew(nil)) {
		t.Fatalf("default records should be equal")
	}
}

func TestRecord_MutableDefaultsAreNotShared(t *testing.T) {
	st := recskema.NewStore()
	bag := declare(t, st, "Bag", []recskema.Field{{Name: "items", Type: recskema.List(recskema.Integer())}})
	a := bag.MustNew(nil)
	b := bag.MustNew(nil)
	_ = a.Set("items", append(a.MustGet("items").([]any), 1))
	if len(b.MustGet("items").([]any)) != 0 {
		t.Fatalf("default list leaked between records")
	}
}
