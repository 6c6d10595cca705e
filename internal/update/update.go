// Package update brings a Graph into sync with the filesystem,
// discovering transitively reachable headers as it goes, without ever
// revisiting an up-to-date vertex — which is what keeps a cyclic
// include chain from looping forever.
package update

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/sysuzhang/rebar/internal/graph"
	"github.com/sysuzhang/rebar/internal/resolve"
	"github.com/sysuzhang/rebar/internal/rlog"
	"github.com/sysuzhang/rebar/internal/scan"
)

// Updater brings a Graph up to date against the current filesystem state
// for a fixed source-file extension and library locator.
type Updater struct {
	SourceExt string
	Libraries resolve.LibraryLocator
}

// Update runs one full update pass over sources, resolving includes
// against includeRoots plus each source's own directory. It reports
// whether any vertex was added, refreshed, or removed.
func (u *Updater) Update(g *graph.Graph, includeRoots []string, sources []string) bool {
	dirs := dedupeDirs(includeRoots, sources)
	resolver := resolve.New(dirs, u.Libraries)

	modified := false
	for _, s := range sources {
		if u.updateVertex(g, resolver, s) {
			modified = true
		}
	}

	// Sweep for vanished files the source pass never reached: a header
	// that was deleted and is no longer referenced by any source has no
	// updateVertex visit left to notice it, but its vertex must still
	// disappear.
	for _, v := range g.Vertices() {
		if liveMtime(v) == 0 {
			g.DeleteVertex(v)
			modified = true
		}
	}
	return modified
}

// updateVertex returns true iff it modified the graph (added,
// refreshed, or removed a vertex).
func (u *Updater) updateVertex(g *graph.Graph, resolver *resolve.Resolver, f string) bool {
	if !g.HasVertex(f) {
		return u.discover(g, resolver, f)
	}

	stored, _ := g.VertexTime(f)
	live := liveMtime(f)

	if live == 0 {
		g.DeleteVertex(f)
		return true
	}
	if graph.Timestamp(live) > stored {
		// Record the new timestamp before recursing, so a cycle that leads
		// back to f finds it up to date instead of rescanning it again.
		g.ClearOutEdges(f)
		g.UpsertVertex(f, graph.Timestamp(live))
		u.scanAndLink(g, resolver, f)
		return true
	}
	// Up to date: do not recurse into neighbours. This is both the
	// optimization and the cycle break.
	return false
}

// discover handles a file seen for the first time this run.
func (u *Updater) discover(g *graph.Graph, resolver *resolve.Resolver, f string) bool {
	live := liveMtime(f)
	g.UpsertVertex(f, graph.Timestamp(live))
	if live == 0 {
		return true
	}
	u.scanAndLink(g, resolver, f)
	return true
}

// scanAndLink scans f's attributes, resolves each reference, recurses
// into every resolved dependency, and links the edge f -> dependency.
func (u *Updater) scanAndLink(g *graph.Graph, resolver *resolve.Resolver, f string) {
	refs, err := scan.File(f)
	if err != nil {
		// I/O error reading a file we just stat'd successfully: treat
		// like any other scanner-level failure — recoverable, log and
		// move on with no references discovered.
		rlog.Warn("scanning %s: %v", f, err)
		return
	}

	sourceDir := filepath.Dir(f)
	for _, ref := range refs {
		name := ref.Name
		if ref.Kind == scan.KindModule {
			name += u.SourceExt
		}
		abs, ok := resolver.Resolve(name, sourceDir, ref.Kind == scan.KindLibPath)
		if !ok {
			continue // resolution miss: dropped silently
		}
		u.updateVertex(g, resolver, abs)
		g.AddEdge(f, abs)
	}
}

func liveMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

// dedupeDirs builds the include search-path union:
// the fixed "include" directory (handled inside resolve.Resolver
// itself), the configured include roots in their given order, then every
// source file's own directory in sorted order, deduplicated by first
// occurrence.
func dedupeDirs(includeRoots []string, sources []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(d string) {
		if d == "" || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}
	for _, r := range includeRoots {
		add(r)
	}
	dirs := make([]string, 0, len(sources))
	for _, s := range sources {
		dirs = append(dirs, filepath.Dir(s))
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		add(d)
	}
	return out
}
