package graph_test

import (
	"errors"
	"testing"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/graph"
)

func names(ss []*recskema.Schema) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.FullName()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustDeclare(t *testing.T, name string, fields []recskema.Field) *recskema.Schema {
	t.Helper()
	s, err := recskema.Declare(name, fields, recskema.WithoutRegistration())
	if err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
	return s
}

func TestFindDescendants_ThroughContainers(t *testing.T) {
	leaf := mustDeclare(t, "Leaf", []recskema.Field{{Name: "v", Type: recskema.Integer()}})
	mid := mustDeclare(t, "Mid", []recskema.Field{{Name: "leaves", Type: recskema.Map(recskema.List(recskema.SubRecord(leaf)))}})
	top := mustDeclare(t, "Top", []recskema.Field{{Name: "mid", Type: recskema.SubRecord(mid)}})

	tr := graph.NewTraverser()
	if got := names(tr.FindDescendants(top, graph.Unbounded)); !equal(got, []string{"Leaf", "Mid"}) {
		t.Fatalf("descendants of Top: %v", got)
	}
	if got := names(graph.NewTraverser().FindDescendants(top, 1)); !equal(got, []string{"Mid"}) {
		t.Fatalf("depth 1 should stop after one hop: %v", got)
	}
	if got := tr.FindDescendants(leaf, graph.Unbounded); len(got) != 0 {
		t.Fatalf("leaf has no descendants: %v", names(got))
	}
	if got := names(tr.FindDescendants(recskema.List(recskema.SubRecord(leaf)), graph.Unbounded)); !equal(got, []string{"Leaf"}) {
		t.Fatalf("field type input: %v", got)
	}
}

func TestFindDescendants_SelfReferenceExcluded(t *testing.T) {
	node := mustDeclare(t, "Node", []recskema.Field{
		{Name: "child", Type: recskema.SubRecord(recskema.Self)},
		{Name: "kids", Type: recskema.List(recskema.SubRecord(recskema.Self))},
	})
	if got := graph.NewTraverser().FindDescendants(node, graph.Unbounded); len(got) != 0 {
		t.Fatalf("self reference should not be a descendant: %v", names(got))
	}
}

func TestFindDescendants_DepthLimitDoesNotLeak(t *testing.T) {
	c := mustDeclare(t, "C", []recskema.Field{{Name: "v", Type: recskema.Integer()}})
	b := mustDeclare(t, "B", []recskema.Field{{Name: "c", Type: recskema.SubRecord(c)}})
	a := mustDeclare(t, "A", []recskema.Field{{Name: "b", Type: recskema.SubRecord(b)}})

	tr := graph.NewTraverser()
	if got := names(tr.FindDescendants(a, 1)); !equal(got, []string{"B"}) {
		t.Fatalf("depth 1: %v", got)
	}
	if got := names(tr.FindDescendants(a, graph.Unbounded)); !equal(got, []string{"B", "C"}) {
		t.Fatalf("unbounded after a shallow search: %v", got)
	}
	if got := names(tr.FindDescendants(a, 1)); !equal(got, []string{"B"}) {
		t.Fatalf("depth 1 after an unbounded search: %v", got)
	}
	order, err := tr.ReferenceOrder([]*recskema.Schema{a})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := names(order); !equal(got, []string{"C", "B", "A"}) {
		t.Fatalf("order: %v", got)
	}
}

func TestReferenceOrder(t *testing.T) {
	a := mustDeclare(t, "A", []recskema.Field{{Name: "v", Type: recskema.Text()}})
	b := mustDeclare(t, "B", []recskema.Field{{Name: "a", Type: recskema.SubRecord(a)}})
	c := mustDeclare(t, "C", []recskema.Field{
		{Name: "b", Type: recskema.SubRecord(b)},
		{Name: "self", Type: recskema.SubRecord(recskema.Self)},
	})
	d := mustDeclare(t, "D", nil)

	got, err := graph.NewTraverser().ReferenceOrder([]*recskema.Schema{c, d})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !equal(names(got), []string{"A", "D", "B", "C"}) {
		t.Fatalf("order: %v", names(got))
	}
}

func TestOrder_Cycle(t *testing.T) {
	a := mustDeclare(t, "A", nil)
	b := mustDeclare(t, "B", nil)
	c := mustDeclare(t, "C", nil)
	_, err := graph.Order(map[*recskema.Schema][]*recskema.Schema{
		a: {b},
		b: {a},
		c: nil,
	})
	var sge *graph.SourceGenerationError
	if !errors.As(err, &sge) {
		t.Fatalf("expected SourceGenerationError, got %v", err)
	}
	if !equal(sge.Remaining, []string{"A", "B"}) {
		t.Fatalf("remaining: %v", sge.Remaining)
	}
}

func TestOrder_UndeclaredDependency(t *testing.T) {
	a := mustDeclare(t, "A", nil)
	b := mustDeclare(t, "B", nil)
	got, err := graph.Order(map[*recskema.Schema][]*recskema.Schema{b: {a}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !equal(names(got), []string{"A", "B"}) {
		t.Fatalf("order: %v", names(got))
	}
}
