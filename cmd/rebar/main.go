// Package main provides the rebar CLI, an incremental build driver for
// Erlang-style source trees.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sysuzhang/rebar/internal/build"
	"github.com/sysuzhang/rebar/internal/compiler"
	"github.com/sysuzhang/rebar/internal/config"
	"github.com/sysuzhang/rebar/internal/explain"
	"github.com/sysuzhang/rebar/internal/fingerprint"
	"github.com/sysuzhang/rebar/internal/history"
	"github.com/sysuzhang/rebar/internal/rlog"
	"github.com/sysuzhang/rebar/internal/runner"
)

const configFileName = "rebar.yaml"

// Version is the current rebar CLI version
var Version = "0.3.1"

var (
	flagConfig      string
	flagTest        bool
	flagClean       bool
	flagIncludeDirs []string
	flagOutputDir   string
	flagFirstFiles  []string
	flagLogCount    int
)

var rootCmd = &cobra.Command{
	Use:     "rebar",
	Short:   "rebar - incremental build driver for Erlang-style sources",
	Long:    `rebar discovers project sources, maintains a persisted include/transform/behaviour dependency graph across runs, orders compilation so transforms and behaviours build before their users, and invokes the compiler only for sources whose target is older than the source or any of its transitive dependencies.`,
	Version: Version,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Build every out-of-date source in dependency order",
	RunE:  runCompile,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the computed compile order without compiling",
	RunE:  runPlan,
}

var explainCmd = &cobra.Command{
	Use:   "explain <file>",
	Short: "Explain a file's plan position and recompile decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Dependency graph commands",
}

var graphDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the dependency graph's vertices and edges",
	RunE:  runGraphDump,
}

var generateCmd = &cobra.Command{
	Use:   "generate <pipeline>",
	Short: "Run one generator pipeline (xrl, yrl, or mib) standalone",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the dependency cache and the output directory",
	RunE:  runClean,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent build runs from the history database",
	RunE:  runLog,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build driver's version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rebar %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", configFileName, "project configuration file")

	compileCmd.Flags().BoolVar(&flagTest, "test", false, "build the test variant")
	compileCmd.Flags().BoolVar(&flagClean, "clean", false, "wipe the dependency cache and output directory first")
	compileCmd.Flags().StringArrayVar(&flagIncludeDirs, "include-dirs", nil, "additional include roots")
	compileCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "override the target directory")
	compileCmd.Flags().StringArrayVar(&flagFirstFiles, "first-file", nil, "additional priority sources, in order")

	planCmd.Flags().StringArrayVar(&flagIncludeDirs, "include-dirs", nil, "additional include roots")

	logCmd.Flags().IntVarP(&flagLogCount, "count", "n", 10, "number of runs to show")

	graphCmd.AddCommand(graphDumpCmd)
	rootCmd.AddCommand(compileCmd, planCmd, explainCmd, graphCmd, generateCmd, cleanCmd, logCmd, versionCmd)
}

// envLibraries resolves library-relative includes against the roots in
// ERL_LIBS, accepting both plain and versioned (name-1.2.3) install
// directories. This is the driver's one environment consultation, and
// it lives outside the core on purpose.
type envLibraries struct{}

func (envLibraries) LibDir(lib, subpath string) (string, bool) {
	for _, root := range filepath.SplitList(os.Getenv("ERL_LIBS")) {
		if root == "" {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(root, lib+"-*"))
		sort.Strings(matches)
		candidates := append([]string{filepath.Join(root, lib)}, matches...)
		for _, c := range candidates {
			info, err := os.Stat(c)
			if err != nil || !info.IsDir() {
				continue
			}
			return filepath.Join(c, subpath), true
		}
	}
	return "", false
}

// driver assembles a build.Driver for the current working directory,
// applying any command-line overrides on top of the loaded config.
func driver() (*build.Driver, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(root, flagConfig))
	if err != nil {
		return nil, err
	}

	cfg.IncludeDirs = append(cfg.IncludeDirs, flagIncludeDirs...)
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	cfg.FirstFiles = append(cfg.FirstFiles, flagFirstFiles...)

	cmd := config.Default
	if flagTest {
		cmd = config.Test
	}

	erlc := &compiler.Erlc{}
	return &build.Driver{
		Root:         root,
		Cfg:          cfg,
		Command:      cmd,
		Compiler:     erlc,
		Libraries:    envLibraries{},
		GeneratorFor: erlc.Generator,
	}, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	if flagClean {
		if err := d.Clean(); err != nil {
			return fmt.Errorf("cleaning before build: %w", err)
		}
	}

	outcomes, err := d.Compile(cmd.Context())
	compiled, skipped := 0, 0
	for _, o := range outcomes {
		for _, w := range o.Result.Warnings {
			rlog.Warn("%s", w)
		}
		for _, e := range o.Result.Errors {
			rlog.Error("%s", e)
		}
		switch {
		case o.Skipped:
			skipped++
		case o.Result.Status != runner.Error:
			rlog.Info("compiled %s", o.Source)
			compiled++
		}
	}
	if err != nil {
		return err
	}
	rlog.Info("done: %d compiled, %d up to date", compiled, skipped)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	st, err := d.Prepare()
	if err != nil {
		return err
	}
	for _, f := range st.Plan.ExplicitFirst {
		fmt.Printf("first (explicit)  %s\n", f)
	}
	for _, f := range st.Plan.OrderedImplicit {
		fmt.Printf("first (implicit)  %s\n", f)
	}
	for _, f := range st.Plan.Tail {
		fmt.Printf("                  %s\n", f)
	}
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	st, err := d.Prepare()
	if err != nil {
		return err
	}
	reason, err := d.Explain(st, args[0])
	if err != nil {
		return err
	}
	reason.Print(os.Stdout)

	if prev := build.LastPlan(d.Root); prev != nil {
		diff := explain.PlanDiff(prev, st.Plan.Ordered())
		if diff != "" {
			fmt.Println("\nplan changes since the last build:")
			fmt.Print(diff)
		}
	}
	return nil
}

func runGraphDump(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	st, err := d.Prepare()
	if err != nil {
		return err
	}

	vertices := st.Graph.Vertices()
	sort.Strings(vertices)
	for _, v := range vertices {
		fmt.Println(v)
		for _, dep := range st.Graph.OutEdges(v) {
			fmt.Printf("  -> %s\n", dep)
		}
	}
	fmt.Printf("\n%d vertices, %d edges, fingerprint %s\n",
		len(vertices), len(st.Graph.Edges()), fingerprint.Graph(st.Graph))
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	for _, p := range d.Pipelines() {
		if p.Name != args[0] {
			continue
		}
		outcomes, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			if o.Err != nil {
				return o.Err
			}
			if o.Skipped {
				rlog.Info("up to date %s", o.Source)
			} else {
				rlog.Info("generated %s", o.Target)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown pipeline %q (want xrl, yrl, or mib)", args[0])
}

func runClean(cmd *cobra.Command, args []string) error {
	d, err := driver()
	if err != nil {
		return err
	}
	return d.Clean()
}

func runLog(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	store, err := history.Open(build.HistoryPath(root))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), flagLogCount)
	if err != nil {
		return err
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-8s", r.ID, r.Command)
		if r.CommitHash != "" {
			dirty := ""
			if r.Dirty {
				dirty = "+"
			}
			line += fmt.Sprintf("  %s%s", shortHash(r.CommitHash), dirty)
			if r.Branch != "" {
				line += " (" + r.Branch + ")"
			}
		}
		fmt.Println(line)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rlog.Error("%v", err)
		os.Exit(1)
	}
}
