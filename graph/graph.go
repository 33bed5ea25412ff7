// Package graph discovers which record schemas a schema or field type refers
// to, and orders schemas so that every schema comes after the ones it
// references. Source generators use the order to emit declarations that only
// refer backwards.
package graph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/reoring/recskema"
)

// Unbounded is a depth limit that never cuts the search short.
const Unbounded = math.MaxInt32

// SourceGenerationError reports schemas that could not be ordered because
// they reference each other in a cycle.
type SourceGenerationError struct {
	Remaining []string // full names left when no schema could be peeled
}

func (e *SourceGenerationError) Error() string {
	return fmt.Sprintf("graph: circular reference in input schemas, aborting (%s)", strings.Join(e.Remaining, ", "))
}

type schemaSet map[*recskema.Schema]struct{}

// Traverser memoizes descendant sets per schema for unbounded searches.
// Depth-limited searches neither read nor fill the memo. A Traverser is not
// safe for concurrent use.
type Traverser struct {
	descendants map[*recskema.Schema]schemaSet
	started     map[any]struct{}
}

// NewTraverser returns an empty traverser.
func NewTraverser() *Traverser {
	return &Traverser{descendants: map[*recskema.Schema]schemaSet{}, started: map[any]struct{}{}}
}

// FindDescendants returns the schemas reachable from node through SubRecord
// fields, possibly wrapped in List or Map. node is a *recskema.Schema or a
// recskema.FieldType. Each SubRecord hop costs one unit of maxDepth. A schema
// that is still being expanded higher up the path is not reported, so a
// self-referencing schema is not its own descendant.
func (t *Traverser) FindDescendants(node any, maxDepth int) []*recskema.Schema {
	return sorted(t.find(node, maxDepth, maxDepth >= Unbounded))
}

func (t *Traverser) find(node any, maxDepth int, memo bool) schemaSet {
	if s, ok := node.(*recskema.Schema); ok && memo {
		if known, ok := t.descendants[s]; ok {
			return known
		}
	}
	subs := schemaSet{}
	if maxDepth <= 0 || node == nil {
		return subs
	}
	t.started[node] = struct{}{}
	defer delete(t.started, node)

	switch n := node.(type) {
	case *recskema.Schema:
		for _, f := range n.Fields() {
			union(subs, t.find(f.Type, maxDepth, memo))
		}
		if memo {
			t.descendants[n] = subs
		}
	case *recskema.ListType:
		union(subs, t.find(n.Elem(), maxDepth, memo))
	case *recskema.MapType:
		union(subs, t.find(n.Value(), maxDepth, memo))
	case *recskema.SubRecordType:
		target := n.Target()
		if _, active := t.started[target]; !active {
			subs[target] = struct{}{}
			union(subs, t.find(target, maxDepth-1, memo))
		}
	}
	return subs
}

// ReferenceOrder returns schemas and everything they reference, each after
// the schemas it depends on. Schemas peeled in the same round are sorted by
// full name.
func (t *Traverser) ReferenceOrder(schemas []*recskema.Schema) ([]*recskema.Schema, error) {
	for _, s := range schemas {
		t.find(s, Unbounded, true)
	}
	deps := make(map[*recskema.Schema][]*recskema.Schema, len(t.descendants))
	for s, d := range t.descendants {
		deps[s] = sorted(d)
	}
	return Order(deps)
}

// Order peels schemas with no unresolved dependencies until none are left.
// Dependencies that are not keys of deps are treated as roots of their own.
// It fails with *SourceGenerationError when a round finds nothing to peel.
func Order(deps map[*recskema.Schema][]*recskema.Schema) ([]*recskema.Schema, error) {
	work := make(map[*recskema.Schema]schemaSet, len(deps))
	for s, ds := range deps {
		set := schemaSet{}
		for _, d := range ds {
			set[d] = struct{}{}
			if _, ok := work[d]; !ok {
				if _, declared := deps[d]; !declared {
					work[d] = schemaSet{}
				}
			}
		}
		work[s] = set
	}

	var out []*recskema.Schema
	for len(work) > 0 {
		var leaves []*recskema.Schema
		for s, refs := range work {
			if len(refs) == 0 {
				leaves = append(leaves, s)
			}
		}
		if len(leaves) == 0 {
			var names []string
			for s := range work {
				names = append(names, s.FullName())
			}
			sort.Strings(names)
			return nil, &SourceGenerationError{Remaining: names}
		}
		sortByName(leaves)
		out = append(out, leaves...)
		for _, leaf := range leaves {
			delete(work, leaf)
			for _, refs := range work {
				delete(refs, leaf)
			}
		}
	}
	return out, nil
}

func union(dst, src schemaSet) {
	for s := range src {
		dst[s] = struct{}{}
	}
}

func sorted(set schemaSet) []*recskema.Schema {
	out := make([]*recskema.Schema, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sortByName(out)
	return out
}

func sortByName(xs []*recskema.Schema) {
	sort.Slice(xs, func(i, j int) bool { return xs[i].FullName() < xs[j].FullName() })
}
