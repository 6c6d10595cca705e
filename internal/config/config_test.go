package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.SourceDirs, []string{"src"}) {
		t.Fatalf("expected default source dir, got %v", c.SourceDirs)
	}
	if c.OutputDir != "ebin" {
		t.Fatalf("expected default output dir, got %q", c.OutputDir)
	}
}

func TestLoadParsesFullSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebar.yaml")
	yaml := `
compiler-options: ["warnings_as_errors"]
include-dirs: ["deps/foo/include"]
source-dirs: ["src", "gen"]
output-dir: "_build/ebin"
erl-first-files: ["src/behaviour_a.erl"]
no-debug-info: true
commands:
  test:
    compile-opts: ["TEST"]
    first-files: ["test/helper.erl"]
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.SourceDirs, []string{"src", "gen"}) {
		t.Fatalf("unexpected source dirs: %v", c.SourceDirs)
	}
	if c.OutputDir != "_build/ebin" {
		t.Fatalf("unexpected output dir: %s", c.OutputDir)
	}

	testOpts := c.OptionsFor(Test)
	if contains(testOpts, "no_debug_info") {
		t.Fatal("test-variant build must never disable debug info")
	}
	if !contains(testOpts, "TEST") {
		t.Fatal("expected command-specific compile-opts to be applied")
	}

	defaultOpts := c.OptionsFor(Default)
	if !contains(defaultOpts, "no_debug_info") {
		t.Fatal("expected no_debug_info under the default command")
	}

	testFiles := c.FirstFilesFor(Test)
	want := []string{"src/behaviour_a.erl", "test/helper.erl"}
	if !reflect.DeepEqual(testFiles, want) {
		t.Fatalf("got %v want %v", testFiles, want)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
