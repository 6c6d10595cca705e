// Package compiler adapts external compiler binaries to the build
// driver's Compiler and generator interfaces. The underlying language
// compiler is a black box to the core: it is handed a source, a target
// directory, and accumulated options, and its diagnostics are classified
// into ok / ok-with-warnings / error.
package compiler

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sysuzhang/rebar/internal/generator"
	"github.com/sysuzhang/rebar/internal/loadpath"
	"github.com/sysuzhang/rebar/internal/runner"
)

// Erlc invokes the erlc binary for one source at a time.
type Erlc struct {
	Bin string // compiler binary, "erlc" if empty
}

func (e *Erlc) bin() string {
	if e.Bin == "" {
		return "erlc"
	}
	return e.Bin
}

// Compile runs the compiler for source under opts and classifies its
// diagnostics. A non-nil error is returned only when the binary could
// not be invoked at all; a compile failure is reported through
// Result.Status instead.
func (e *Erlc) Compile(ctx context.Context, source, target string, opts runner.Options) (runner.Result, error) {
	args := []string{"-o", opts.OutDir}
	if opts.IncludeDir != "" {
		args = append(args, "-I", opts.IncludeDir)
	}
	for _, dir := range loadpath.Get() {
		args = append(args, "-pa", dir)
	}
	for _, f := range opts.Flags {
		args = append(args, "+"+f)
	}
	args = append(args, source)

	cmd := exec.CommandContext(ctx, e.bin(), args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	res := classify(out.String())

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return runner.Result{}, runErr
		}
		res.Status = runner.Error
	} else if res.Status != runner.Error && len(res.Warnings) > 0 {
		res.Status = runner.OKWithWarnings
	}
	return res, nil
}

// classify splits compiler output into warnings and errors line by
// line. erlc prefixes warnings with "Warning:" after the file:line
// location; everything else non-blank is an error diagnostic.
func classify(output string) runner.Result {
	var res runner.Result
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "Warning:") {
			res.Warnings = append(res.Warnings, line)
		} else {
			res.Errors = append(res.Errors, line)
		}
	}
	if len(res.Errors) > 0 {
		res.Status = runner.Error
	}
	return res
}

// Generator returns a generator.CompileFunc that runs the same external
// binary for a generator pipeline (xrl/yrl/mib-shaped): erlc handles
// those extensions itself, emitting the generated file next to -o.
func (e *Erlc) Generator(opts []string) generator.CompileFunc {
	return func(ctx context.Context, source, target string) error {
		args := []string{"-o", filepath.Dir(target)}
		for _, o := range opts {
			args = append(args, "+"+o)
		}
		args = append(args, source)
		cmd := exec.CommandContext(ctx, e.bin(), args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			if len(out) > 0 {
				return &GenerateError{Source: source, Output: string(out)}
			}
			return err
		}
		return nil
	}
}

// GenerateError carries the generator binary's diagnostics for one
// failed source.
type GenerateError struct {
	Source string
	Output string
}

func (e *GenerateError) Error() string {
	return "generating from " + e.Source + ":\n" + strings.TrimSpace(e.Output)
}
