// Package graph implements the dependency graph store described by the
// build driver's core: an in-memory directed graph keyed by absolute file
// path, with vertices carrying a last-seen-modified timestamp and edges
// meaning "the source vertex textually depends on the destination vertex".
//
// The store holds both directions of adjacency explicitly (rather than a
// single adjacency list plus a second traversal structure) so that ancestor
// and descendant queries are a direct BFS over the relevant map.
package graph

// Timestamp is a monotonic file-modification value. The zero value means
// "file does not exist". It must never be used to decide whether to
// recompile a target directly — only to detect a stale graph vertex.
type Timestamp int64

// Edge is a directed dependency: From references To via an include,
// behaviour, transform, import, or file-origin attribute.
type Edge struct {
	From string
	To   string
}

// Graph is a directed graph of absolute file paths. It is not
// concurrency-safe; the build driver is single-threaded and cooperative.
type Graph struct {
	vertices map[string]Timestamp
	out      map[string][]string // From -> []To, insertion order, deduped
	in       map[string][]string // To -> []From, insertion order, deduped
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]Timestamp),
		out:      make(map[string][]string),
		in:       make(map[string][]string),
	}
}

// HasVertex reports whether path is a known vertex.
func (g *Graph) HasVertex(path string) bool {
	_, ok := g.vertices[path]
	return ok
}

// VertexTime returns the last-seen-modified timestamp recorded for path.
func (g *Graph) VertexTime(path string) (Timestamp, bool) {
	t, ok := g.vertices[path]
	return t, ok
}

// UpsertVertex records path as a vertex with the given timestamp, creating
// it if absent.
func (g *Graph) UpsertVertex(path string, mtime Timestamp) {
	g.vertices[path] = mtime
	if _, ok := g.out[path]; !ok {
		g.out[path] = nil
	}
	if _, ok := g.in[path]; !ok {
		g.in[path] = nil
	}
}

// DeleteVertex removes path and every edge touching it.
func (g *Graph) DeleteVertex(path string) {
	for _, to := range g.out[path] {
		g.in[to] = removeString(g.in[to], path)
	}
	for _, from := range g.in[path] {
		g.out[from] = removeString(g.out[from], path)
	}
	delete(g.out, path)
	delete(g.in, path)
	delete(g.vertices, path)
}

// ClearOutEdges removes every outgoing edge from path, leaving the vertex
// itself and its incoming edges intact.
func (g *Graph) ClearOutEdges(path string) {
	for _, to := range g.out[path] {
		g.in[to] = removeString(g.in[to], path)
	}
	g.out[path] = nil
}

// AddEdge records that from depends on to. Both endpoints must already be
// vertices; AddEdge does not create them.
func (g *Graph) AddEdge(from, to string) {
	if !containsString(g.out[from], to) {
		g.out[from] = append(g.out[from], to)
	}
	if !containsString(g.in[to], from) {
		g.in[to] = append(g.in[to], from)
	}
}

// Vertices returns every vertex path, in unspecified order.
func (g *Graph) Vertices() []string {
	paths := make([]string, 0, len(g.vertices))
	for p := range g.vertices {
		paths = append(paths, p)
	}
	return paths
}

// Edges returns every edge in the graph, in unspecified order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for from, tos := range g.out {
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// OutEdges returns the direct dependencies of path (what path references).
func (g *Graph) OutEdges(path string) []string {
	return append([]string(nil), g.out[path]...)
}

// InEdges returns the direct dependents of path (what references path).
func (g *Graph) InEdges(path string) []string {
	return append([]string(nil), g.in[path]...)
}

// Reachable returns every vertex transitively reachable from path by
// following outgoing edges (path's transitive dependencies), excluding
// path itself. Traversal order is deterministic BFS order over the
// insertion-ordered adjacency lists, so repeated calls on an unchanged
// graph return an identical slice.
func (g *Graph) Reachable(path string) []string {
	return g.walk(path, g.out)
}

// Ancestors returns every vertex that transitively reaches path by
// following outgoing edges (path's transitive dependents), excluding path
// itself.
func (g *Graph) Ancestors(path string) []string {
	return g.walk(path, g.in)
}

func (g *Graph) walk(start string, adj map[string][]string) []string {
	visited := map[string]bool{start: true}
	queue := append([]string(nil), adj[start]...)
	var result []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		result = append(result, next)
		queue = append(queue, adj[next]...)
	}
	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
