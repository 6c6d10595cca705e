// Package runner implements the build runner: for each source in plan
// order it computes the target path, decides whether a recompile is
// needed by re-reading live mtimes of the source and its transitive
// graph parents, and invokes a Compiler.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysuzhang/rebar/internal/graph"
	"github.com/sysuzhang/rebar/internal/loadpath"
)

// Status classifies a single compile invocation's outcome.
type Status int

const (
	OK Status = iota
	OKWithWarnings
	Error
)

// Options are the accumulated compiler options for one invocation.
type Options struct {
	Flags      []string
	OutDir     string
	IncludeDir string
}

// Result is what a Compiler reports back for one source.
type Result struct {
	Status      Status
	Warnings    []string
	Errors      []string
	DurationErr error // set only on an I/O-level failure to even invoke the compiler
}

// Compiler compiles a single source into its target under opts.
type Compiler interface {
	Compile(ctx context.Context, source, target string, opts Options) (Result, error)
}

// Outcome records what happened to one planned source.
type Outcome struct {
	Source  string
	Target  string
	Skipped bool // up to date, compiler not invoked
	Result  Result
}

// Runner drives the compile plan against a Compiler.
type Runner struct {
	Compiler      Compiler
	OutDir        string
	IncludeDir    string
	TargetExt     string
	CompilerFlags []string
}

// Run compiles every source in plan order against g, returning one
// Outcome per source in the same order. It stops at the first hard
// error by reporting it in the returned slice and not proceeding to
// the remaining sources,
// since a later source may depend on the one that failed to compile.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, plan []string) ([]Outcome, error) {
	restore := loadpath.Scope(r.OutDir)
	defer restore()

	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("preparing output directory %s: %w", r.OutDir, err)
	}

	var outcomes []Outcome
	for _, src := range plan {
		target := r.targetPath(src)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return outcomes, fmt.Errorf("preparing target directory for %s: %w", src, err)
		}

		if !needsCompile(g, src, target) {
			outcomes = append(outcomes, Outcome{Source: src, Target: target, Skipped: true})
			continue
		}

		opts := Options{
			Flags:      r.CompilerFlags,
			OutDir:     filepath.Dir(target),
			IncludeDir: r.IncludeDir,
		}
		res, err := r.Compiler.Compile(ctx, src, target, opts)
		if err != nil {
			res.Status = Error
			res.DurationErr = err
		}
		outcomes = append(outcomes, Outcome{Source: src, Target: target, Result: res})
		if res.Status == Error {
			return outcomes, nil
		}
	}
	return outcomes, nil
}

// targetPath maps a source to a target under this Runner's configured
// output directory and target extension.
func (r *Runner) targetPath(source string) string {
	return TargetPath(r.OutDir, source, r.TargetExt)
}

// TargetPath maps a source to its compile target: the source's basename,
// with any "." separators read as nested module-namespace path
// separators, joined under outDir and given targetExt.
func TargetPath(outDir, source, targetExt string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	rel := filepath.Join(strings.Split(base, ".")...)
	return filepath.Join(outDir, rel) + targetExt
}

// needsCompile reports the target out of date if its live mtime is
// less than the live mtime of the source or any
// vertex transitively reachable from it in g, regardless of extension —
// unlike the planner's Parents/Dependents, this closure is never
// filtered to source files, because a touched header must also trigger
// a recompile.
func needsCompile(g *graph.Graph, source, target string) bool {
	_, needs := StaleCause(g, source, target)
	return needs
}

// StaleCause reports whether source needs recompiling against target,
// and which file forced that decision: empty for a missing target, the
// source itself, or the first transitive dependency whose live mtime is
// newer than the target's. The comparison is strict so that same-second
// writes on coarse-mtime filesystems still force a recompile.
func StaleCause(g *graph.Graph, source, target string) (cause string, needs bool) {
	targetMtime := liveMtime(target)
	if targetMtime == 0 {
		return "", true
	}
	if liveMtime(source) > targetMtime {
		return source, true
	}
	for _, parent := range g.Reachable(source) {
		if liveMtime(parent) > targetMtime {
			return parent, true
		}
	}
	return "", false
}

func liveMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}
