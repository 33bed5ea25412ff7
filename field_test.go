package recskema_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/reoring/recskema"
)

type valueCase struct {
	name string
	v    any
}

func assertDumpAllowed(t *testing.T, ft recskema.FieldType, cases []valueCase) {
	t.Helper()
	for _, c := range cases {
		if _, err := ft.Dump(c.v); err != nil {
			t.Errorf("%s: %s should accept %#v, got %v", ft, c.name, c.v, err)
		}
	}
}

func assertDumpForbidden(t *testing.T, ft recskema.FieldType, cases []valueCase) {
	t.Helper()
	for _, c := range cases {
		_, err := ft.Dump(c.v)
		var ve *recskema.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: %s should reject %#v with ValidationError, got %v", ft, c.name, c.v, err)
		}
	}
}

func TestInteger_DumpAcceptsOnlyIntegers(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assertDumpAllowed(t, recskema.Integer(), []valueCase{
		{"zero", 0}, {"int8", int8(-3)}, {"uint64", uint64(1) << 63}, {"big", huge}, {"null", nil},
	})
	assertDumpForbidden(t, recskema.Integer(), []valueCase{
		{"text", "1"}, {"float", 0.12}, {"true", true}, {"false", false}, {"number", json.Number("1")},
	})
}

func TestInteger_LoadNormalizes(t *testing.T) {
	ft := recskema.Integer()
	got, err := ft.Load(json.Number("42"))
	if err != nil || got != int64(42) {
		t.Fatalf("json.Number: got %#v err %v", got, err)
	}
	got, err = ft.Load(float64(7))
	if err != nil || got != int64(7) {
		t.Fatalf("integral float: got %#v err %v", got, err)
	}
	got, err = ft.Load(json.Number("123456789012345678901234567890"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b, ok := got.(*big.Int); !ok || b.String() != "123456789012345678901234567890" {
		t.Fatalf("expected *big.Int, got %#v", got)
	}
	for _, bad := range []any{1.5, json.Number("1.0"), "3", true} {
		_, err := ft.Load(bad)
		var pe *recskema.ParseError
		if !errors.As(err, &pe) || pe.Code != recskema.CodeInvalidType {
			t.Errorf("Load(%#v) expected invalid_type ParseError, got %v", bad, err)
		}
	}
}

func TestFloat_Values(t *testing.T) {
	assertDumpAllowed(t, recskema.Float(), []valueCase{{"float", 1.5}, {"int", 3}, {"float32", float32(0.5)}})
	assertDumpForbidden(t, recskema.Float(), []valueCase{{"text", "1.0"}, {"bool", true}})
	got, err := recskema.Float().Load(json.Number("2"))
	if err != nil || got != 2.0 {
		t.Fatalf("integer input should promote: %#v %v", got, err)
	}
}

func TestBoolean_ValueMap(t *testing.T) {
	assertDumpAllowed(t, recskema.Boolean(), []valueCase{{"true", true}, {"false", false}, {"zero", 0}, {"one", 1}})
	assertDumpForbidden(t, recskema.Boolean(), []valueCase{{"text", "True"}, {"two", 2}, {"minus one", -1}})
	got, err := recskema.Boolean().Dump(1)
	if err != nil || got != true {
		t.Fatalf("1 should dump as true, got %#v %v", got, err)
	}
}

func TestText_Values(t *testing.T) {
	assertDumpAllowed(t, recskema.Text(), []valueCase{{"ascii", "foo"}, {"unicode", "åäö"}, {"bytes", []byte("bar")}})
	assertDumpForbidden(t, recskema.Text(), []valueCase{{"int", 1}, {"invalid utf-8", []byte{0xff, 0xfe}}})
}

func TestBytes_RejectsText(t *testing.T) {
	assertDumpAllowed(t, recskema.Bytes(), []valueCase{{"bytes", []byte{0, 1, 2}}})
	assertDumpForbidden(t, recskema.Bytes(), []valueCase{{"text", "abc"}, {"int", 3}})
}

func TestBytes_Encodings(t *testing.T) {
	payload := []byte{'h', 'i', 0xe5, 0x00}

	w, err := recskema.Bytes().Dump(payload)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if w != "aGnlAA==" {
		t.Fatalf("base64 form: %q", w)
	}

	rw, err := recskema.ReadableBytes().Dump(payload)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rw != "hiå\u0000" {
		t.Fatalf("readable form: %q", rw)
	}
	back, err := recskema.ReadableBytes().Load(rw)
	if err != nil || string(back.([]byte)) != string(payload) {
		t.Fatalf("readable round trip: %v %v", back, err)
	}
	if _, err := recskema.ReadableBytes().Load("世"); err == nil {
		t.Fatalf("code points above 255 must fail")
	}
	if _, err := recskema.Bytes().Load("not base64!"); err == nil {
		t.Fatalf("bad base64 must fail")
	}
}

func TestEnum_Membership(t *testing.T) {
	e := recskema.Enum([]string{"FOO", "BAR", "FOO"})
	if got := e.Values(); len(got) != 2 {
		t.Fatalf("duplicates should collapse: %v", got)
	}
	assertDumpAllowed(t, e, []valueCase{{"member", "FOO"}, {"null", nil}})
	assertDumpForbidden(t, e, []valueCase{{"non-member", "BAZ"}, {"int", 1}})
	_, err := e.Load("BAZ")
	var pe *recskema.ParseError
	if !errors.As(err, &pe) || pe.Code != recskema.CodeInvalidEnum {
		t.Fatalf("expected invalid_enum, got %v", err)
	}
}

func TestDateAndDateTime(t *testing.T) {
	day := time.Date(2014, 2, 2, 0, 0, 0, 0, time.UTC)
	assertDumpForbidden(t, recskema.Date(), []valueCase{{"text", "2014-02-02"}})
	assertDumpForbidden(t, recskema.DateTime(), []valueCase{{"text", "2014-02-02 10:00:00"}})

	w, _ := recskema.Date().Dump(day)
	if w != "2014-02-02" {
		t.Fatalf("date form: %v", w)
	}

	ts := time.Date(2014, 2, 2, 10, 11, 12, 345678000, time.UTC)
	w, _ = recskema.DateTime().Dump(ts)
	if w != "2014-02-02 10:11:12.345678" {
		t.Fatalf("datetime with micros: %v", w)
	}
	w, _ = recskema.DateTime().Dump(ts.Truncate(time.Second))
	if w != "2014-02-02 10:11:12" {
		t.Fatalf("datetime without micros: %v", w)
	}
	for _, s := range []string{"2014-02-02 10:11:12.345678", "2014-02-02 10:11:12"} {
		if _, err := recskema.DateTime().Load(s); err != nil {
			t.Fatalf("load %q: %v", s, err)
		}
	}
	if _, err := recskema.Date().Load("02/02/2014"); err == nil {
		t.Fatalf("bad date must fail")
	}
}

func TestList_ContainersAndPaths(t *testing.T) {
	l := recskema.List(recskema.Integer(recskema.NotNull()))
	assertDumpAllowed(t, l, []valueCase{{"slice", []any{1, 2}}, {"typed slice", []int{1, 2}}, {"array", [2]int{1, 2}}})
	assertDumpForbidden(t, l, []valueCase{{"int", 1}, {"map", map[string]any{}}, {"null", nil}, {"null element", []any{1, nil}}})

	_, err := l.Dump([]any{1, 2, "x"})
	var ve *recskema.ValidationError
	if !errors.As(err, &ve) || ve.Path != "/2" {
		t.Fatalf("expected error at /2, got %v", err)
	}
	if d := l.DefaultValue(); d == nil || len(d.([]any)) != 0 {
		t.Fatalf("list default should be empty list, got %#v", d)
	}
}

func TestMap_Values(t *testing.T) {
	m := recskema.Map(recskema.Integer())
	assertDumpAllowed(t, m, []valueCase{{"map", map[string]any{"a": 1}}, {"typed map", map[string]int{"a": 1}}})
	assertDumpForbidden(t, m, []valueCase{{"text value", map[string]any{"foo": "2"}}, {"int keys", map[int]int{1: 1}}, {"list", []any{}}})

	_, err := m.Load(map[string]any{"a/b": "x"})
	var pe *recskema.ParseError
	if !errors.As(err, &pe) || pe.Path != "/a~1b" {
		t.Fatalf("expected escaped pointer, got %v", err)
	}
}

func TestDefaultValue_FreshCopies(t *testing.T) {
	ft := recskema.List(recskema.Integer(), recskema.Default([]any{1, 2}))
	a := ft.DefaultValue().([]any)
	a[0] = 99
	b := ft.DefaultValue().([]any)
	if b[0] != 1 {
		t.Fatalf("defaults must not share storage, got %v", b)
	}
	if recskema.Integer(recskema.NotNull()).DefaultValue() != recskema.NoDefault {
		t.Fatalf("non-nullable field without default should report NoDefault")
	}
	if recskema.Integer().DefaultValue() != nil {
		t.Fatalf("nullable field without default should default to nil")
	}
}

func TestDeclarationIndex_Monotonic(t *testing.T) {
	a := recskema.Text()
	b := recskema.Integer()
	c := recskema.List(recskema.Text())
	if !(a.DeclarationIndex() < b.DeclarationIndex() && b.DeclarationIndex() < c.DeclarationIndex()) {
		t.Fatalf("indexes not increasing: %d %d %d", a.DeclarationIndex(), b.DeclarationIndex(), c.DeclarationIndex())
	}
}

func TestIsSimilarTo(t *testing.T) {
	if !recskema.List(recskema.Integer()).IsSimilarTo(recskema.List(recskema.Integer())) {
		t.Fatalf("identical lists should be similar")
	}
	if recskema.Integer(recskema.Size(4)).IsSimilarTo(recskema.Integer()) {
		t.Fatalf("size hint differs")
	}
	if recskema.Text().IsSimilarTo(recskema.Text(recskema.NotNull())) {
		t.Fatalf("nullability differs")
	}
	if !recskema.Enum([]string{"A", "B"}).IsSimilarTo(recskema.Enum([]string{"B", "A"})) {
		t.Fatalf("enum value order should not matter")
	}
	if recskema.Bytes().IsSimilarTo(recskema.ReadableBytes()) {
		t.Fatalf("bytes encodings differ")
	}
}
