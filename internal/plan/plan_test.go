package plan

import (
	"reflect"
	"testing"

	"github.com/sysuzhang/rebar/internal/graph"
)

func TestTransformOrderingScenario(t *testing.T) {
	// a.erl uses t.erl as a parse_transform; b.erl has no deps.
	g := graph.New()
	for _, v := range []string{"a.erl", "b.erl", "t.erl"} {
		g.UpsertVertex(v, 1)
	}
	g.AddEdge("a.erl", "t.erl")

	all := []string{"a.erl", "b.erl", "t.erl"}
	p := Compute(g, all, nil, ".erl")
	ordered := p.Ordered()

	tIdx, aIdx := indexOf(ordered, "t.erl"), indexOf(ordered, "a.erl")
	if tIdx < 0 || aIdx < 0 || tIdx > aIdx {
		t.Fatalf("expected t.erl before a.erl, got %v", ordered)
	}
	if len(ordered) != 3 {
		t.Fatalf("expected all 3 sources scheduled, got %v", ordered)
	}
}

func TestExplicitFirstWinsOverImplicit(t *testing.T) {
	g := graph.New()
	for _, v := range []string{"a.erl", "t.erl"} {
		g.UpsertVertex(v, 1)
	}
	g.AddEdge("a.erl", "t.erl")

	all := []string{"a.erl", "t.erl"}
	// a.erl is explicitly first even though t.erl would normally need to
	// precede it as a transform.
	p := Compute(g, all, []string{"a.erl"}, ".erl")

	if !reflect.DeepEqual(p.ExplicitFirst, []string{"a.erl"}) {
		t.Fatalf("expected a.erl explicit-first, got %v", p.ExplicitFirst)
	}
	if len(p.OrderedImplicit) != 1 || p.OrderedImplicit[0] != "t.erl" {
		t.Fatalf("expected t.erl to remain implicit-first, got %v", p.OrderedImplicit)
	}
}

func TestDependencyOrderingInvariant(t *testing.T) {
	g := graph.New()
	for _, v := range []string{"a.erl", "b.erl", "c.erl"} {
		g.UpsertVertex(v, 1)
	}
	g.AddEdge("a.erl", "b.erl")
	g.AddEdge("b.erl", "c.erl")

	all := []string{"a.erl", "b.erl", "c.erl"}
	ordered := Compute(g, all, nil, ".erl").Ordered()

	for _, e := range g.Edges() {
		if !hasSourceExt(e.From) || !hasSourceExt(e.To) {
			continue
		}
		if indexOf(ordered, e.To) > indexOf(ordered, e.From) {
			t.Fatalf("dependency %s must come before dependent %s in %v", e.To, e.From, ordered)
		}
	}
}

func TestPlanningIsIdempotent(t *testing.T) {
	g := graph.New()
	for _, v := range []string{"a.erl", "b.erl", "t.erl"} {
		g.UpsertVertex(v, 1)
	}
	g.AddEdge("a.erl", "t.erl")

	all := []string{"a.erl", "b.erl", "t.erl"}
	first := Compute(g, all, nil, ".erl").Ordered()
	second := Compute(g, first, nil, ".erl").Ordered()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("planning was not idempotent: %v != %v", first, second)
	}
}

func TestUoMergePreservesFirstOccurrenceAndUnion(t *testing.T) {
	a := []string{"x", "y", "x"}
	b := []string{"y", "z"}
	got := uoMerge(a, b)
	want := []string{"x", "y", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func hasSourceExt(p string) bool {
	return len(p) > 4 && p[len(p)-4:] == ".erl"
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
