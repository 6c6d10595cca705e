// Package fingerprint computes a diagnostic content digest of the
// dependency graph using blake3. It exists purely for history records
// and the "rebar graph dump" output ("did the graph's shape change
// between runs") and must never be consulted by the updater, planner,
// or runner: the recompile decision is mtime-only, never
// content-based.
package fingerprint

import (
	"fmt"
	"sort"

	"lukechampine.com/blake3"

	"github.com/sysuzhang/rebar/internal/graph"
)

// Graph returns a hex-encoded blake3 digest summarizing g's vertex and
// edge set. The digest is stable across runs for an unchanged graph
// regardless of internal map iteration order.
func Graph(g *graph.Graph) string {
	h := blake3.New(32, nil)

	vertices := g.Vertices()
	sort.Strings(vertices)
	for _, v := range vertices {
		t, _ := g.VertexTime(v)
		fmt.Fprintf(h, "v:%s:%d\n", v, t)
	}

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		fmt.Fprintf(h, "e:%s:%s\n", e.From, e.To)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
