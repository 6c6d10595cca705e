package fingerprint

import (
	"testing"

	"github.com/sysuzhang/rebar/internal/graph"
)

func TestGraphFingerprintIsOrderIndependent(t *testing.T) {
	g1 := graph.New()
	g1.UpsertVertex("a", 1)
	g1.UpsertVertex("b", 2)
	g1.AddEdge("a", "b")

	g2 := graph.New()
	g2.UpsertVertex("b", 2)
	g2.UpsertVertex("a", 1)
	g2.AddEdge("a", "b")

	if Graph(g1) != Graph(g2) {
		t.Fatal("expected identical fingerprints for the same graph built in different insertion order")
	}
}

func TestGraphFingerprintChangesWithVertexTime(t *testing.T) {
	g1 := graph.New()
	g1.UpsertVertex("a", 1)

	g2 := graph.New()
	g2.UpsertVertex("a", 2)

	if Graph(g1) == Graph(g2) {
		t.Fatal("expected fingerprints to differ when a vertex's timestamp differs")
	}
}
