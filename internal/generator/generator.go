// Package generator implements the thin generator pipelines: small
// source-extension-to-output-extension transforms (xrl/yrl/mib-shaped)
// that reuse the runner's per-file mtime check but
// skip the dependency graph entirely, since each file has no parents.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// CompileFunc compiles one source into target.
type CompileFunc func(ctx context.Context, source, target string) error

// Pipeline is one (source-dir, source-ext, output-dir, output-ext,
// compile-fn, first-files) tuple.
type Pipeline struct {
	Name       string
	SourceDir  string
	SourceExt  string
	OutputDir  string
	OutputExt  string
	Compile    CompileFunc
	FirstFiles []string
}

// Outcome records what happened to one pipeline source.
type Outcome struct {
	Source  string
	Target  string
	Skipped bool
	Err     error
}

// Run finds every SourceExt file under SourceDir, orders FirstFiles
// ahead of the rest (aborting if any declared first file does not
// exist), and invokes Compile on whichever are stale relative to their
// target, using an empty-parent-set mtime check.
func (p Pipeline) Run(ctx context.Context) ([]Outcome, error) {
	for _, f := range p.FirstFiles {
		if _, err := os.Stat(f); err != nil {
			return nil, fmt.Errorf("pipeline %s: declared first file %s: %w", p.Name, f, err)
		}
	}

	sources, err := p.discover()
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: discovering sources: %w", p.Name, err)
	}

	ordered := orderFirst(sources, p.FirstFiles)

	var outcomes []Outcome
	for _, src := range ordered {
		target := p.targetPath(src)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return outcomes, fmt.Errorf("pipeline %s: preparing target dir for %s: %w", p.Name, src, err)
		}
		if !needsCompile(src, target) {
			outcomes = append(outcomes, Outcome{Source: src, Target: target, Skipped: true})
			continue
		}
		err := p.Compile(ctx, src, target)
		outcomes = append(outcomes, Outcome{Source: src, Target: target, Err: err})
		if err != nil {
			return outcomes, nil
		}
	}
	return outcomes, nil
}

func (p Pipeline) discover() ([]string, error) {
	absRoot, err := filepath.Abs(p.SourceDir)
	if err != nil {
		return nil, err
	}
	pattern := filepath.ToSlash(filepath.Join(absRoot, "**", "*"+p.SourceExt))
	matches, err := doublestar.Glob(os.DirFS("/"), pattern[1:])
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = "/" + m
	}
	return out, nil
}

func (p Pipeline) targetPath(source string) string {
	base := filepath.Base(source)
	base = base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(p.OutputDir, base+p.OutputExt)
}

// orderFirst places each entry of firstFiles (that is actually present
// in sources) ahead of the rest, in firstFiles order, followed by the
// remaining sources in discovery order.
func orderFirst(sources, firstFiles []string) []string {
	inSources := make(map[string]bool, len(sources))
	for _, s := range sources {
		inSources[s] = true
	}
	placed := make(map[string]bool, len(firstFiles))
	out := make([]string, 0, len(sources))
	for _, f := range firstFiles {
		if inSources[f] && !placed[f] {
			placed[f] = true
			out = append(out, f)
		}
	}
	for _, s := range sources {
		if !placed[s] {
			out = append(out, s)
		}
	}
	return out
}

func needsCompile(source, target string) bool {
	targetMtime := liveMtime(target)
	if targetMtime == 0 {
		return true
	}
	return liveMtime(source) > targetMtime
}

func liveMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}
