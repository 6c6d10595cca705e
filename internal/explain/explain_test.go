package explain

import (
	"strings"
	"testing"
)

func TestPlanDiffShowsReordering(t *testing.T) {
	before := []string{"a.erl", "b.erl", "c.erl"}
	after := []string{"b.erl", "a.erl", "c.erl"}

	diff := PlanDiff(before, after)
	if !strings.Contains(diff, "-") || !strings.Contains(diff, "+") {
		t.Fatalf("expected a diff with both removed and added lines, got %q", diff)
	}
	if !strings.Contains(diff, "c.erl") {
		t.Fatal("expected unchanged entries to still be present")
	}
}

func TestPlanDiffOfIdenticalPlansIsEmptyOfChanges(t *testing.T) {
	plan := []string{"a.erl", "b.erl"}
	diff := PlanDiff(plan, plan)
	if strings.Contains(diff, "+") || strings.Contains(diff, "-") {
		t.Fatalf("expected no additions or removals for an unchanged plan, got %q", diff)
	}
}

func TestReasonPrintIncludesStaleness(t *testing.T) {
	r := Reason{
		Source:         "a.erl",
		PlanPosition:   0,
		PlanSize:       2,
		ImplicitFirst:  true,
		Dependents:     []string{"b.erl"},
		NeedsCompile:   true,
		StaleBecauseOf: "a.hrl",
	}
	var b strings.Builder
	r.Print(&b)
	out := b.String()
	if !strings.Contains(out, "a.hrl") {
		t.Fatalf("expected staleness cause in output, got %q", out)
	}
	if !strings.Contains(out, "b.erl") {
		t.Fatalf("expected dependents in output, got %q", out)
	}
}
