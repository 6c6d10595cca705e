// Package build is the glue that drives one full invocation of the
// build driver: generator pipelines, source discovery, graph
// restore/update, compile planning, the compile run itself, and graph
// persistence at the end. Everything here orchestrates the leaf
// packages; the ordering rules live in plan and runner, not here.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysuzhang/rebar/internal/config"
	"github.com/sysuzhang/rebar/internal/discover"
	"github.com/sysuzhang/rebar/internal/explain"
	"github.com/sysuzhang/rebar/internal/fingerprint"
	"github.com/sysuzhang/rebar/internal/generator"
	"github.com/sysuzhang/rebar/internal/graph"
	"github.com/sysuzhang/rebar/internal/history"
	"github.com/sysuzhang/rebar/internal/plan"
	"github.com/sysuzhang/rebar/internal/resolve"
	"github.com/sysuzhang/rebar/internal/rlog"
	"github.com/sysuzhang/rebar/internal/runner"
	"github.com/sysuzhang/rebar/internal/update"
	"github.com/sysuzhang/rebar/internal/vcsinfo"
)

const (
	// CacheDir is the per-project directory holding the persisted graph,
	// the build history database, and the previous run's plan.
	CacheDir    = ".rebar"
	graphFile   = "deps.graph"
	historyFile = "history.sqlite"
	planFile    = "last-plan"

	// SourceExt and TargetExt are the compiled language's extensions.
	SourceExt = ".erl"
	TargetExt = ".beam"
)

// Driver holds everything one invocation needs. Root is the project
// directory the driver was invoked in; all relative configuration paths
// are resolved against it.
type Driver struct {
	Root      string
	Cfg       *config.Config
	Command   config.Command
	Compiler  runner.Compiler
	Libraries resolve.LibraryLocator

	// GeneratorFor supplies the compile function for a generator
	// pipeline given its pass-through options. Nil disables the
	// generator pipelines (they are skipped, not failed).
	GeneratorFor func(opts []string) generator.CompileFunc
}

// GraphPath returns the persisted graph's location for root.
func GraphPath(root string) string {
	return filepath.Join(root, CacheDir, graphFile)
}

// HistoryPath returns the build-history database's location for root.
func HistoryPath(root string) string {
	return filepath.Join(root, CacheDir, historyFile)
}

func planPath(root string) string {
	return filepath.Join(root, CacheDir, planFile)
}

// State is the prepared input to a compile run: the up-to-date graph,
// the discovered sources, the computed plan, and whether the graph
// changed since it was last persisted.
type State struct {
	Graph        *graph.Graph
	Sources      []string
	Plan         plan.Plan
	IncludeRoots []string
	Modified     bool
}

// Prepare discovers sources, verifies the declared first files, restores
// the persisted graph, brings it up to date, and computes the compile
// plan. It performs no compilation and does not persist anything.
func (d *Driver) Prepare() (*State, error) {
	ignore, err := discover.LoadIgnore(d.Root)
	if err != nil {
		return nil, fmt.Errorf("loading ignore file: %w", err)
	}
	sources, err := discover.Sources(d.Root, d.Cfg.SourceDirs, SourceExt, ignore)
	if err != nil {
		return nil, err
	}

	firstFiles, err := d.firstFiles()
	if err != nil {
		return nil, err
	}

	includeRoots := d.absAll(d.Cfg.IncludeDirs)

	g, _, loadErr := graph.Load(GraphPath(d.Root), includeRoots)
	if loadErr != nil {
		rlog.Warn("discarding dependency cache: %v", loadErr)
	}

	u := &update.Updater{SourceExt: SourceExt, Libraries: d.Libraries}
	modified := u.Update(g, includeRoots, sources)

	p := plan.Compute(g, sources, firstFiles, SourceExt)

	return &State{
		Graph:        g,
		Sources:      sources,
		Plan:         p,
		IncludeRoots: includeRoots,
		Modified:     modified,
	}, nil
}

// Compile runs the full build: generator pipelines, Prepare, the
// compile run in plan order, then graph persistence. The graph is
// persisted only after compilation finishes, so a crash mid-compile
// leaves the previous cache in place. Compile returns the per-source
// outcomes alongside any fatal error.
func (d *Driver) Compile(ctx context.Context) ([]runner.Outcome, error) {
	if err := d.runPipelines(ctx); err != nil {
		return nil, err
	}

	st, err := d.Prepare()
	if err != nil {
		return nil, err
	}

	rec := d.beginHistory(ctx)

	r := &runner.Runner{
		Compiler:      d.Compiler,
		OutDir:        d.abs(d.Cfg.OutputDir),
		IncludeDir:    "include",
		TargetExt:     TargetExt,
		CompilerFlags: d.compilerFlags(),
	}
	outcomes, runErr := r.Run(ctx, st.Graph, st.Plan.Ordered())

	if st.Modified {
		if err := graph.Save(GraphPath(d.Root), st.Graph, st.IncludeRoots); err != nil {
			d.finishHistory(ctx, rec, outcomes, st.Graph, "failed")
			return outcomes, fmt.Errorf("persisting dependency graph: %w", err)
		}
	}
	d.savePlan(st.Plan.Ordered())

	if runErr != nil {
		d.finishHistory(ctx, rec, outcomes, st.Graph, "failed")
		return outcomes, runErr
	}
	if failed := firstFailure(outcomes); failed != nil {
		d.finishHistory(ctx, rec, outcomes, st.Graph, "failed")
		return outcomes, fmt.Errorf("compiling %s failed", failed.Source)
	}
	d.finishHistory(ctx, rec, outcomes, st.Graph, "ok")
	return outcomes, nil
}

// Explain reports why source sits where it does in st's plan and
// whether it would recompile, without compiling anything.
func (d *Driver) Explain(st *State, source string) (explain.Reason, error) {
	abs := d.abs(source)
	ordered := st.Plan.Ordered()
	pos := indexOf(ordered, abs)
	if pos < 0 {
		return explain.Reason{}, fmt.Errorf("%s is not a discovered source", source)
	}

	isSource := func(p string) bool { return strings.HasSuffix(p, SourceExt) }
	target := runner.TargetPath(d.abs(d.Cfg.OutputDir), abs, TargetExt)
	cause, needs := runner.StaleCause(st.Graph, abs, target)

	return explain.Reason{
		Source:         abs,
		PlanPosition:   pos,
		PlanSize:       len(ordered),
		ExplicitFirst:  indexOf(st.Plan.ExplicitFirst, abs) >= 0,
		ImplicitFirst:  indexOf(st.Plan.OrderedImplicit, abs) >= 0,
		Dependents:     filterSuffix(st.Graph.Ancestors(abs), isSource),
		Parents:        filterSuffix(st.Graph.Reachable(abs), isSource),
		NeedsCompile:   needs,
		StaleBecauseOf: cause,
	}, nil
}

// LastPlan returns the plan order persisted by the previous Compile,
// or nil if none was recorded yet.
func LastPlan(root string) []string {
	data, err := os.ReadFile(planPath(root))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

// Clean removes the per-project cache directory and the output
// directory.
func (d *Driver) Clean() error {
	if err := os.RemoveAll(filepath.Join(d.Root, CacheDir)); err != nil {
		return err
	}
	return os.RemoveAll(d.abs(d.Cfg.OutputDir))
}

// Pipelines returns the configured generator pipelines, in the order
// they run: lexer sources, parser sources, then MIB sources. The first
// two generate into the first source directory so the main compile pass
// discovers their output.
func (d *Driver) Pipelines() []generator.Pipeline {
	if d.GeneratorFor == nil {
		return nil
	}
	srcDir := d.abs(d.Cfg.SourceDirs[0])
	return []generator.Pipeline{
		{
			Name:       "xrl",
			SourceDir:  srcDir,
			SourceExt:  ".xrl",
			OutputDir:  srcDir,
			OutputExt:  SourceExt,
			Compile:    d.GeneratorFor(d.Cfg.XrlOpts),
			FirstFiles: d.absAll(d.Cfg.XrlFirstFiles),
		},
		{
			Name:       "yrl",
			SourceDir:  srcDir,
			SourceExt:  ".yrl",
			OutputDir:  srcDir,
			OutputExt:  SourceExt,
			Compile:    d.GeneratorFor(d.Cfg.YrlOpts),
			FirstFiles: d.absAll(d.Cfg.YrlFirstFiles),
		},
		{
			Name:       "mib",
			SourceDir:  d.abs("mibs"),
			SourceExt:  ".mib",
			OutputDir:  d.abs(filepath.Join("priv", "mibs")),
			OutputExt:  ".bin",
			Compile:    d.GeneratorFor(d.Cfg.MibOpts),
			FirstFiles: d.absAll(d.Cfg.MibFirstFiles),
		},
	}
}

func (d *Driver) runPipelines(ctx context.Context) error {
	for _, p := range d.Pipelines() {
		outcomes, err := p.Run(ctx)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			if o.Err != nil {
				return fmt.Errorf("pipeline %s: %w", p.Name, o.Err)
			}
		}
	}
	return nil
}

// firstFiles resolves the configured priority list for the active
// command to absolute paths, verifying each exists. A declared first
// file that is absent is a configuration error and aborts the run
// before any compilation.
func (d *Driver) firstFiles() ([]string, error) {
	var out []string
	for _, f := range d.Cfg.FirstFilesFor(d.Command) {
		abs := d.abs(f)
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("declared first file %s does not exist", f)
		}
		out = append(out, abs)
	}
	return out, nil
}

// compilerFlags accumulates the options handed to every compiler
// invocation: the command's option set plus any platform defines that
// matched.
func (d *Driver) compilerFlags() []string {
	flags := d.Cfg.OptionsFor(d.Command)
	for _, def := range config.ResolvedDefines(d.Cfg.PlatformDefines) {
		name, value, ok := strings.Cut(def, "=")
		if ok {
			flags = append(flags, fmt.Sprintf("{d, %s, %s}", name, value))
		} else {
			flags = append(flags, fmt.Sprintf("{d, %s}", name))
		}
	}
	return flags
}

func (d *Driver) savePlan(ordered []string) {
	path := planPath(d.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		rlog.Warn("recording plan: %v", err)
		return
	}
	if err := os.WriteFile(path, []byte(strings.Join(ordered, "\n")+"\n"), 0644); err != nil {
		rlog.Warn("recording plan: %v", err)
	}
}

// historyRun ties a run row in the history database to its open store.
type historyRun struct {
	store *history.Store
	id    string
}

// beginHistory opens the audit log and records the run start. The log
// is observational only: every failure here is a warning, never fatal,
// and a nil return simply means the run goes unrecorded.
func (d *Driver) beginHistory(ctx context.Context) *historyRun {
	if err := os.MkdirAll(filepath.Join(d.Root, CacheDir), 0755); err != nil {
		rlog.Warn("opening build history: %v", err)
		return nil
	}
	store, err := history.Open(HistoryPath(d.Root))
	if err != nil {
		rlog.Warn("opening build history: %v", err)
		return nil
	}

	vcs, err := vcsinfo.Detect(d.Root)
	if err != nil {
		rlog.Warn("detecting VCS state: %v", err)
	}

	id, err := store.BeginRun(ctx, string(d.Command), vcs.CommitHash, vcs.Branch, vcs.Dirty)
	if err != nil {
		rlog.Warn("recording build run: %v", err)
		store.Close()
		return nil
	}
	return &historyRun{store: store, id: id}
}

func (d *Driver) finishHistory(ctx context.Context, rec *historyRun, outcomes []runner.Outcome, g *graph.Graph, status string) {
	if rec == nil {
		return
	}
	defer rec.store.Close()

	for _, o := range outcomes {
		outcome := "compiled"
		switch {
		case o.Skipped:
			outcome = "skipped"
		case o.Result.Status == runner.Error:
			outcome = "failed"
		}
		if err := rec.store.RecordFile(ctx, rec.id, o.Source, o.Target, outcome); err != nil {
			rlog.Warn("recording build file: %v", err)
		}
	}
	if err := rec.store.FinishRun(ctx, rec.id, status, fingerprint.Graph(g)); err != nil {
		rlog.Warn("recording build finish: %v", err)
	}
}

func (d *Driver) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.Root, path)
}

func (d *Driver) absAll(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = d.abs(p)
	}
	return out
}

func firstFailure(outcomes []runner.Outcome) *runner.Outcome {
	for i := range outcomes {
		if !outcomes[i].Skipped && outcomes[i].Result.Status == runner.Error {
			return &outcomes[i]
		}
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func filterSuffix(paths []string, keep func(string) bool) []string {
	var out []string
	for _, p := range paths {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
