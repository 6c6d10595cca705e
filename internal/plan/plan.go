// Package plan implements the compile planner: it turns the dependency
// graph plus the discovered source list and the user's first-files
// configuration into a single ordered compile list.
package plan

import (
	"strings"

	"github.com/sysuzhang/rebar/internal/graph"
)

// Plan is the three-part ordered compile list: explicit first-files (user
// order), then implicit first-files (files other sources depend on, with
// their own transform/behaviour dependencies ordered ahead of them), then
// everything else in discovery order.
type Plan struct {
	ExplicitFirst   []string
	OrderedImplicit []string
	Tail            []string
}

// Ordered returns the full, final compile order.
func (p Plan) Ordered() []string {
	out := make([]string, 0, len(p.ExplicitFirst)+len(p.OrderedImplicit)+len(p.Tail))
	out = append(out, p.ExplicitFirst...)
	out = append(out, p.OrderedImplicit...)
	out = append(out, p.Tail...)
	return out
}

// Compute builds a Plan from graph g, the full discovered source list
// allSources (in discovery order), the configured priority list
// firstFilesConf (in user order), and the file extension that identifies
// a compiled source (as opposed to a header) in the graph.
func Compute(g *graph.Graph, allSources []string, firstFilesConf []string, sourceExt string) Plan {
	inAll := toSet(allSources)

	explicitFirst, explicitSet := selectExplicitFirst(firstFilesConf, inAll)

	rest := make([]string, 0, len(allSources))
	for _, f := range allSources {
		if !explicitSet[f] {
			rest = append(rest, f)
		}
	}

	isSource := func(p string) bool { return strings.HasSuffix(p, sourceExt) }

	var implicitFirst, tail []string
	for _, f := range rest {
		dependents := filterSourceMembers(g.Ancestors(f), isSource, inAll)
		if len(dependents) > 0 {
			implicitFirst = append(implicitFirst, f)
		} else {
			tail = append(tail, f)
		}
	}

	var flattenedParents []string
	for _, f := range implicitFirst {
		for _, parent := range filterSourceMembers(g.Reachable(f), isSource, inAll) {
			if !explicitSet[parent] {
				flattenedParents = append(flattenedParents, parent)
			}
		}
	}

	return Plan{
		ExplicitFirst:   explicitFirst,
		OrderedImplicit: uoMerge(flattenedParents, implicitFirst),
		Tail:            tail,
	}
}

func selectExplicitFirst(firstFilesConf []string, inAll map[string]bool) ([]string, map[string]bool) {
	seen := make(map[string]bool)
	var out []string
	for _, f := range firstFilesConf {
		if !inAll[f] || seen[f] {
			continue // stale entry in the user's list, or a duplicate: ignored
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, seen
}

func filterSourceMembers(paths []string, isSource func(string) bool, member map[string]bool) []string {
	var out []string
	for _, p := range paths {
		if isSource(p) && member[p] {
			out = append(out, p)
		}
	}
	return out
}

// uoMerge deduplicates a preserving its order, then appends each element
// of b not already present, in b's order. The result contains exactly
// set(a) ∪ set(b).
func uoMerge(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, x := range a {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	for _, x := range b {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, x := range list {
		m[x] = true
	}
	return m
}
