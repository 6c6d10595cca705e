// Package discover finds source files under the project's configured
// source roots, honoring an optional .rebarignore file with
// gitignore-style patterns: last matching pattern wins, "!" negates,
// and nothing is ignored by default.
package discover

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreMatcher matches project-relative paths against .rebarignore
// patterns.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob    string
	negated bool
}

// LoadIgnore reads .rebarignore from dir, if present. A missing file
// yields an empty matcher that ignores nothing.
func LoadIgnore(dir string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	f, err := os.Open(filepath.Join(dir, ".rebarignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negated := strings.HasPrefix(line, "!")
		if negated {
			line = line[1:]
		}
		if !strings.Contains(line, "/") {
			line = "**/" + line
		}
		m.patterns = append(m.patterns, ignorePattern{glob: line, negated: negated})
	}
	return m, scanner.Err()
}

// Match reports whether relPath (slash-separated, relative to the
// project root) should be excluded from discovery.
func (m *IgnoreMatcher) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p.glob, relPath); ok {
			ignored = !p.negated
		}
	}
	return ignored
}
