package gen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"
	"time"

	"github.com/reoring/recskema"
)

func declare(t *testing.T, st *recskema.Store, name string, fields []recskema.Field, opts ...recskema.SchemaOpt) *recskema.Schema {
	t.Helper()
	s, err := recskema.Declare(name, fields, append(opts, recskema.WithStore(st))...)
	if err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
	return s
}

func TestRender_ReferenceOrder(t *testing.T) {
	st := recskema.NewStore()
	point := declare(t, st, "Point", []recskema.Field{
		{Name: "x", Type: recskema.Integer(recskema.NotNull())},
		{Name: "y", Type: recskema.Integer(recskema.NotNull(), recskema.Size(4))},
	})
	shape := declare(t, st, "Shape", []recskema.Field{
		{Name: "points", Type: recskema.List(recskema.SubRecord(point))},
		{Name: "kind", Type: recskema.NamedEnum("ShapeKind", []string{"poly", "circle"}, recskema.Default("poly"))},
	}, recskema.WithNamespace("geo"), recskema.WithDoc("A closed figure"))

	out, err := Render(File{Package: "shapes", Schemas: []*recskema.Schema{shape}})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	src := string(out)
	if !strings.HasPrefix(src, Header) {
		t.Fatalf("missing header:\n%s", src)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "out.go", out, 0); err != nil {
		t.Fatalf("generated code does not parse: %v\n%s", err, src)
	}
	pi := strings.Index(src, "var PointSchema =")
	si := strings.Index(src, "var GeoShapeSchema =")
	if pi < 0 || si < 0 || pi > si {
		t.Fatalf("expected PointSchema before GeoShapeSchema:\n%s", src)
	}
	for _, want := range []string{
		`{Name: "y", Type: recskema.Integer(recskema.NotNull(), recskema.Size(4))}`,
		`recskema.List(recskema.SubRecord(PointSchema))`,
		`recskema.NamedEnum("ShapeKind", []string{"poly", "circle"}, recskema.Default("poly"))`,
		`recskema.WithNamespace("geo"), recskema.WithDoc("A closed figure"))`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output lacks %s:\n%s", want, src)
		}
	}
}

func TestRender_SelfReference(t *testing.T) {
	st := recskema.NewStore()
	node := declare(t, st, "Node", []recskema.Field{
		{Name: "value", Type: recskema.Text()},
		{Name: "next", Type: recskema.SubRecord(recskema.Self)},
	})
	out, err := Render(File{Schemas: []*recskema.Schema{node}})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(string(out), "recskema.SubRecord(recskema.Self)") {
		t.Fatalf("self reference not rendered:\n%s", out)
	}
	if !strings.Contains(string(out), "package schemas") {
		t.Fatalf("default package name missing:\n%s", out)
	}
}

func TestRender_DefaultLiterals(t *testing.T) {
	st := recskema.NewStore()
	s := declare(t, st, "Defaults", []recskema.Field{
		{Name: "n", Type: recskema.Integer(recskema.Default(int64(3)))},
		{Name: "f", Type: recskema.Float(recskema.Default(0.5))},
		{Name: "b", Type: recskema.Bytes(recskema.Default([]byte("hi")))},
		{Name: "at", Type: recskema.DateTime(recskema.Default(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))},
		{Name: "tags", Type: recskema.Map(recskema.Text(), recskema.Default(map[string]any{"a": "x"}))},
		{Name: "opt", Type: recskema.List(recskema.Integer(), recskema.Nullable(true))},
	})
	out, err := Render(File{Package: "d", Schemas: []*recskema.Schema{s}})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	src := string(out)
	for _, want := range []string{
		`recskema.Integer(recskema.Default(int64(3)))`,
		`recskema.Float(recskema.Default(float64(0.5)))`,
		`recskema.Bytes(recskema.Default([]byte("hi")))`,
		`time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)`,
		`map[string]any{"a": "x"}`,
		`recskema.List(recskema.Integer(), recskema.Nullable(true))`,
		`"time"`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output lacks %s:\n%s", want, src)
		}
	}
}

func TestRender_UnrenderableDefault(t *testing.T) {
	st := recskema.NewStore()
	s := declare(t, st, "Odd", []recskema.Field{
		{Name: "x", Type: recskema.Text(recskema.Default(struct{}{}))},
	})
	if _, err := Render(File{Schemas: []*recskema.Schema{s}}); err == nil {
		t.Fatalf("expected error for unrenderable default")
	}
}

func TestVarName(t *testing.T) {
	st := recskema.NewStore()
	cases := map[string]*recskema.Schema{
		"UserEventSchema":          declare(t, st, "user_event", nil),
		"AcmeBillingInvoiceSchema": declare(t, st, "Invoice", nil, recskema.WithNamespace("acme.billing")),
	}
	for want, s := range cases {
		if got := VarName(s); got != want {
			t.Errorf("VarName(%s) = %s, want %s", s.FullName(), got, want)
		}
	}
}
