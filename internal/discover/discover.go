package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Sources finds every file with the given extension (e.g. ".erl") under
// each of dirs, relative to projectRoot, skipping anything matched by
// ignore. Results are absolute paths, sorted for a deterministic
// discovery order — the order plan.Plan's "Tail" partition preserves.
func Sources(projectRoot string, dirs []string, ext string, ignore *IgnoreMatcher) ([]string, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	var found []string
	seen := make(map[string]bool)

	for _, dir := range dirs {
		root := filepath.Join(absRoot, dir)
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat source dir %s: %w", root, err)
		}
		if !info.IsDir() {
			continue
		}

		pattern := filepath.Join(root, "**", "*"+ext)
		matches, err := doublestar.Glob(os.DirFS("/"), pattern[1:])
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}

		for _, m := range matches {
			abs := "/" + m
			rel, err := filepath.Rel(absRoot, abs)
			if err != nil {
				rel = abs
			}
			if ignore != nil && ignore.Match(rel) {
				continue
			}
			if !seen[abs] {
				seen[abs] = true
				found = append(found, abs)
			}
		}
	}

	sort.Strings(found)
	return found, nil
}
