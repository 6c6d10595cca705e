// Package explain renders the "rebar explain <file>" diagnostic
// surface: why a file was scheduled where it was, why it needs (or
// doesn't need) recompiling, and a unified diff against its previous
// compile-plan position, using go-diff's line-mode diff for the
// before/after plan order.
package explain

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Reason explains one file's scheduling and compile decision.
type Reason struct {
	Source         string
	PlanPosition   int
	PlanSize       int
	ExplicitFirst  bool
	ImplicitFirst  bool
	Dependents     []string
	Parents        []string
	NeedsCompile   bool
	StaleBecauseOf string // the newest dependency that forced recompilation, if any
}

// Print writes a human-readable explanation to w.
func (r Reason) Print(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", r.Source)
	fmt.Fprintf(w, "  position: %d of %d in the compile plan\n", r.PlanPosition+1, r.PlanSize)

	switch {
	case r.ExplicitFirst:
		fmt.Fprintln(w, "  scheduled first: listed explicitly in first-files configuration")
	case r.ImplicitFirst:
		fmt.Fprintln(w, "  scheduled first: one or more other sources depend on it as a transform or behaviour")
		if len(r.Dependents) > 0 {
			fmt.Fprintf(w, "    depended on by: %s\n", strings.Join(r.Dependents, ", "))
		}
	default:
		fmt.Fprintln(w, "  scheduled in the tail: nothing depends on it as a transform or behaviour")
	}

	if len(r.Parents) > 0 {
		fmt.Fprintf(w, "  depends on: %s\n", strings.Join(r.Parents, ", "))
	}

	if r.NeedsCompile {
		if r.StaleBecauseOf != "" {
			fmt.Fprintf(w, "  needs compiling: %s is newer than the target\n", r.StaleBecauseOf)
		} else {
			fmt.Fprintln(w, "  needs compiling: target is missing")
		}
	} else {
		fmt.Fprintln(w, "  up to date: skipped")
	}
}

// PlanDiff renders a line-oriented unified diff between two compile
// plans (e.g. this run's order against the previous run's), so a user
// can see how reordering a first-files entry shifted everything after
// it.
func PlanDiff(before, after []string) string {
	dmp := diffmatchpatch.New()
	beforeText := strings.Join(before, "\n")
	afterText := strings.Join(after, "\n")

	chars1, chars2, lineArray := dmp.DiffLinesToChars(beforeText, afterText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(&b, "%s %s\n", prefix, line)
		}
	}
	return b.String()
}
