package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sysuzhang/rebar/internal/graph"
)

type fakeCompiler struct {
	calls []string
}

func (f *fakeCompiler) Compile(ctx context.Context, source, target string, opts Options) (Result, error) {
	f.calls = append(f.calls, source)
	if err := os.WriteFile(target, []byte("compiled"), 0644); err != nil {
		return Result{}, err
	}
	return Result{Status: OK}, nil
}

func TestTargetPathHandlesDottedNamespace(t *testing.T) {
	r := &Runner{OutDir: "/out", TargetExt: ".beam"}
	got := r.targetPath("/src/foo.bar.erl")
	want := filepath.Join("/out", "foo", "bar") + ".beam"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestRunCompilesOnlyStaleSources(t *testing.T) {
	dir := t.TempDir()
	srcA := filepath.Join(dir, "a.erl")
	srcB := filepath.Join(dir, "b.erl")
	os.WriteFile(srcA, []byte("-module(a)."), 0644)
	os.WriteFile(srcB, []byte("-module(b)."), 0644)

	out := filepath.Join(dir, "ebin")
	targetA := filepath.Join(out, "a.beam")
	os.MkdirAll(out, 0755)
	os.WriteFile(targetA, []byte("stale-but-current"), 0644)
	future := time.Now().Add(1 * time.Hour)
	os.Chtimes(targetA, future, future)

	g := graph.New()
	g.UpsertVertex(srcA, 1)
	g.UpsertVertex(srcB, 1)

	comp := &fakeCompiler{}
	r := &Runner{Compiler: comp, OutDir: out, TargetExt: ".beam"}
	outcomes, err := r.Run(context.Background(), g, []string{srcA, srcB})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Skipped {
		t.Fatal("expected a.erl to be skipped: target is newer than source")
	}
	if outcomes[1].Skipped {
		t.Fatal("expected b.erl to be compiled: no target exists")
	}
	if len(comp.calls) != 1 || comp.calls[0] != srcB {
		t.Fatalf("expected compiler invoked only for b.erl, got %v", comp.calls)
	}
}

func TestRunRecompilesWhenHeaderParentIsTouched(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.erl")
	hdr := filepath.Join(dir, "a.hrl")
	os.WriteFile(src, []byte("-module(a)."), 0644)
	os.WriteFile(hdr, []byte("-define(X, 1)."), 0644)

	out := filepath.Join(dir, "ebin")
	os.MkdirAll(out, 0755)
	target := filepath.Join(out, "a.beam")
	os.WriteFile(target, []byte("old"), 0644)
	future := time.Now().Add(1 * time.Hour)
	os.Chtimes(target, future, future)
	os.Chtimes(src, future, future) // keep source itself not newer than target

	// Header touched after the target: recompile must be triggered even
	// though the source's own mtime is older than target.
	evenLater := future.Add(1 * time.Hour)
	os.Chtimes(hdr, evenLater, evenLater)

	g := graph.New()
	g.UpsertVertex(src, 1)
	g.UpsertVertex(hdr, 1)
	g.AddEdge(src, hdr)

	comp := &fakeCompiler{}
	r := &Runner{Compiler: comp, OutDir: out, TargetExt: ".beam"}
	outcomes, err := r.Run(context.Background(), g, []string{src})
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Skipped {
		t.Fatal("expected recompile triggered by a touched header parent")
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	srcA := filepath.Join(dir, "a.erl")
	srcB := filepath.Join(dir, "b.erl")
	os.WriteFile(srcA, []byte("-module(a)."), 0644)
	os.WriteFile(srcB, []byte("-module(b)."), 0644)
	out := filepath.Join(dir, "ebin")

	g := graph.New()
	g.UpsertVertex(srcA, 1)
	g.UpsertVertex(srcB, 1)

	r := &Runner{Compiler: &failingCompiler{}, OutDir: out, TargetExt: ".beam"}
	outcomes, err := r.Run(context.Background(), g, []string{srcA, srcB})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected to stop after the first failing source, got %d outcomes", len(outcomes))
	}
	if outcomes[0].Result.Status != Error {
		t.Fatalf("expected Error status, got %v", outcomes[0].Result.Status)
	}
}

type failingCompiler struct{}

func (f *failingCompiler) Compile(ctx context.Context, source, target string, opts Options) (Result, error) {
	return Result{Status: Error, Errors: []string{"boom"}}, nil
}
