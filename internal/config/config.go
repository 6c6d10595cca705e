// Package config loads and models the build driver's project
// configuration: a YAML file decoded with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Command names the fixed, known set of build commands that can carry
// their own compile-opts/first-files overrides.
type Command string

const (
	Default Command = "default"
	EUnit   Command = "eunit"
	CT      Command = "ct"
	Test    Command = "test"
)

// PlatformDefine is a conditional compiler define: if Regex matches the
// platform string (see PlatformString), Name (with optional Value)
// is added to the compile options.
type PlatformDefine struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// CommandOverrides are the extra options and priority files applied only
// when building under a specific Command.
type CommandOverrides struct {
	CompileOpts []string `yaml:"compile-opts,omitempty"`
	FirstFiles  []string `yaml:"first-files,omitempty"`
}

// Config is the full project configuration surface.
type Config struct {
	CompilerOptions []string                    `yaml:"compiler-options,omitempty"`
	PlatformDefines []PlatformDefine             `yaml:"platform-define,omitempty"`
	IncludeDirs     []string                     `yaml:"include-dirs,omitempty"`
	SourceDirs      []string                     `yaml:"source-dirs,omitempty"`
	OutputDir       string                       `yaml:"output-dir,omitempty"`
	FirstFiles      []string                     `yaml:"erl-first-files,omitempty"`
	XrlFirstFiles   []string                     `yaml:"xrl-first-files,omitempty"`
	YrlFirstFiles   []string                     `yaml:"yrl-first-files,omitempty"`
	MibFirstFiles   []string                     `yaml:"mib-first-files,omitempty"`
	XrlOpts         []string                     `yaml:"xrl-opts,omitempty"`
	YrlOpts         []string                     `yaml:"yrl-opts,omitempty"`
	MibOpts         []string                     `yaml:"mib-opts,omitempty"`
	NoDebugInfo     bool                         `yaml:"no-debug-info,omitempty"`
	Commands        map[Command]CommandOverrides `yaml:"commands,omitempty"`
}

// defaults fills in the documented defaults for unset fields.
func (c *Config) defaults() {
	if len(c.SourceDirs) == 0 {
		c.SourceDirs = []string{"src"}
	}
	if c.OutputDir == "" {
		c.OutputDir = "ebin"
	}
}

// Load reads and decodes the YAML configuration at path, applying
// defaults for anything left unset. A missing file is not an error: it
// yields a default Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := &Config{}
			c.defaults()
			return c, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.defaults()
	return &c, nil
}

// PlatformString builds the "otp-release-sys-arch-wordsize-bits" string
// that platform-define regexes match against. The build driver has no
// concept of an OTP release, so it substitutes the Go runtime's own
// version/arch/word-size triple, which plays the same structural role.
func PlatformString() string {
	return fmt.Sprintf("%s-%s-%d", runtime.Version(), runtime.GOARCH, strconv.IntSize)
}

// ResolvedDefines returns the compiler defines activated by
// PlatformDefines against the current platform string. Invalid regexes
// are skipped (never fatal — this is config-parsing leniency, not a
// recompile-decision input).
func ResolvedDefines(defines []PlatformDefine) []string {
	platform := PlatformString()
	var out []string
	for _, d := range defines {
		re, err := regexp.Compile(d.Regex)
		if err != nil {
			continue
		}
		if !re.MatchString(platform) {
			continue
		}
		if d.Value != "" {
			out = append(out, fmt.Sprintf("%s=%s", d.Name, d.Value))
		} else {
			out = append(out, d.Name)
		}
	}
	return out
}

// isTestVariant reports whether cmd builds into a separate test output
// tree.
func isTestVariant(cmd Command) bool {
	return cmd == EUnit || cmd == CT || cmd == Test
}

// OptionsFor returns the compiler options to use for the given command:
// the base CompilerOptions with any no_debug_info/no-debug-info entry
// removed (for every command), then no_debug_info if NoDebugInfo is set,
// then any override's CompileOpts. Under a test-variant command
// no_debug_info is never added, regardless of NoDebugInfo.
func (c *Config) OptionsFor(cmd Command) []string {
	opts := append([]string(nil), c.CompilerOptions...)
	opts = stripNoDebugInfo(opts)
	if c.NoDebugInfo && !isTestVariant(cmd) {
		opts = append(opts, "no_debug_info")
	}
	if override, ok := c.Commands[cmd]; ok {
		opts = append(opts, override.CompileOpts...)
	}
	return opts
}

// FirstFilesFor returns the priority-file list for the given command:
// the base erl-first-files plus the command's own first-files appended
// after, in that order.
func (c *Config) FirstFilesFor(cmd Command) []string {
	files := append([]string(nil), c.FirstFiles...)
	if override, ok := c.Commands[cmd]; ok {
		files = append(files, override.FirstFiles...)
	}
	return files
}

func stripNoDebugInfo(opts []string) []string {
	out := opts[:0:0]
	for _, o := range opts {
		if o == "no_debug_info" || o == "no-debug-info" {
			continue
		}
		out = append(out, o)
	}
	return out
}
