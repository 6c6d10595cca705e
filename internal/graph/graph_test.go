package graph

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestUpsertAndDeleteVertexCascades(t *testing.T) {
	g := New()
	g.UpsertVertex("/a.erl", 1)
	g.UpsertVertex("/a.hrl", 1)
	g.AddEdge("/a.erl", "/a.hrl")

	if !g.HasVertex("/a.hrl") {
		t.Fatal("expected /a.hrl to be a vertex")
	}

	g.DeleteVertex("/a.hrl")

	if g.HasVertex("/a.hrl") {
		t.Fatal("expected /a.hrl to be removed")
	}
	if edges := g.OutEdges("/a.erl"); len(edges) != 0 {
		t.Fatalf("expected cascading edge removal, got %v", edges)
	}
}

func TestClearOutEdges(t *testing.T) {
	g := New()
	g.UpsertVertex("a", 1)
	g.UpsertVertex("b", 1)
	g.AddEdge("a", "b")

	g.ClearOutEdges("a")

	if len(g.OutEdges("a")) != 0 {
		t.Fatal("expected no outgoing edges after ClearOutEdges")
	}
	if len(g.InEdges("b")) != 0 {
		t.Fatal("expected b's incoming edges to be cleared too")
	}
	if !g.HasVertex("a") {
		t.Fatal("ClearOutEdges must not delete the vertex")
	}
}

func TestReachableAndAncestors(t *testing.T) {
	g := New()
	for _, v := range []string{"a", "b", "c", "d"} {
		g.UpsertVertex(v, 1)
	}
	// a -> b -> c, a -> d
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("a", "d")

	reach := g.Reachable("a")
	sort.Strings(reach)
	if !reflect.DeepEqual(reach, []string{"b", "c", "d"}) {
		t.Fatalf("unexpected reachable set: %v", reach)
	}

	anc := g.Ancestors("c")
	sort.Strings(anc)
	if !reflect.DeepEqual(anc, []string{"a", "b"}) {
		t.Fatalf("unexpected ancestor set: %v", anc)
	}
}

func TestReachableToleratesCycles(t *testing.T) {
	g := New()
	g.UpsertVertex("a.hrl", 1)
	g.UpsertVertex("b.hrl", 1)
	g.AddEdge("a.hrl", "b.hrl")
	g.AddEdge("b.hrl", "a.hrl")

	reach := g.Reachable("a.hrl")
	if len(reach) != 1 || reach[0] != "b.hrl" {
		t.Fatalf("expected cycle to terminate with just b.hrl, got %v", reach)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "graph.cache")
	roots := []string{"/proj/include"}

	g := New()
	g.UpsertVertex("/proj/src/a.erl", 100)
	g.UpsertVertex("/proj/include/a.hrl", 50)
	g.AddEdge("/proj/src/a.erl", "/proj/include/a.hrl")

	if err := Save(cachePath, g, roots); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := Load(cachePath, roots)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected a compatible cache to load")
	}

	wantVertices := g.Vertices()
	gotVertices := loaded.Vertices()
	sort.Strings(wantVertices)
	sort.Strings(gotVertices)
	if !reflect.DeepEqual(wantVertices, gotVertices) {
		t.Fatalf("vertex sets differ: want %v got %v", wantVertices, gotVertices)
	}

	if !reflect.DeepEqual(g.Edges(), loaded.Edges()) {
		t.Fatalf("edge sets differ: want %v got %v", g.Edges(), loaded.Edges())
	}
}

func TestLoadDiscardsOnIncludeRootsMismatch(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "graph.cache")

	g := New()
	g.UpsertVertex("/proj/src/a.erl", 1)
	if err := Save(cachePath, g, []string{"/inc1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := Load(cachePath, []string{"/inc1", "/inc2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected include-roots mismatch to report ok=false")
	}
	if len(loaded.Vertices()) != 0 {
		t.Fatal("expected an empty graph on mismatch")
	}
	if _, statErr := os.Stat(cachePath); statErr == nil {
		t.Fatal("expected the stale cache file to be deleted")
	}
}
