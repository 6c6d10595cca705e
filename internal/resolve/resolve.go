// Package resolve maps a raw scanned reference to an absolute file
// path, or drops it silently if nothing on disk matches.
package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// includeDirName is the fixed literal directory probed for every
// reference, in addition to the referring file's own directory and the
// configured include roots.
const includeDirName = "include"

// LibraryLocator resolves the install directory of a library-relative
// include (-include_lib("lib/subpath/file.hrl")). The lookup is an
// external collaborator, so it is expressed as an interface rather
// than a concrete dependency-manager integration.
type LibraryLocator interface {
	// LibDir returns the named library's install directory joined with
	// subpath (the directory that should hold the referenced file), and
	// whether that library is known at all.
	LibDir(lib, subpath string) (dir string, ok bool)
}

// NoLibraries is a LibraryLocator that never resolves anything. It is the
// right default when a project declares no external library roots: the
// reference is then dropped silently, the way unresolvable
// standard-library headers must be.
type NoLibraries struct{}

// LibDir always reports the library as unknown.
func (NoLibraries) LibDir(string, string) (string, bool) { return "", false }

// Resolver resolves raw scanned references against a fixed search order.
type Resolver struct {
	IncludeRoots []string
	Libraries    LibraryLocator
}

// New returns a Resolver with the given include roots and library
// locator. A nil locator is treated as NoLibraries.
func New(includeRoots []string, libs LibraryLocator) *Resolver {
	if libs == nil {
		libs = NoLibraries{}
	}
	return &Resolver{IncludeRoots: includeRoots, Libraries: libs}
}

// Resolve maps name (as scanned from sourceDir's file) to an absolute
// path. libRelative selects the library-relative resolution path;
// otherwise the direct-then-search-path rules apply.
func (r *Resolver) Resolve(name, sourceDir string, libRelative bool) (abs string, ok bool) {
	if libRelative {
		return r.resolveLibRelative(name)
	}

	// Rule 1: the reference already resolves to a regular file as given.
	if isRegularFile(name) {
		a, err := filepath.Abs(name)
		if err == nil {
			return a, true
		}
	}

	// Rule 2: search the referring file's directory, the fixed "include"
	// directory, then each configured include root, in that order.
	candidates := append([]string{sourceDir, includeDirName}, r.IncludeRoots...)
	for _, dir := range candidates {
		candidate := filepath.Join(dir, name)
		if isRegularFile(candidate) {
			a, err := filepath.Abs(candidate)
			if err == nil {
				return a, true
			}
		}
	}

	return "", false
}

// resolveLibRelative: a reference of the form
// "<lib>/<subpath.../file>" is resolved by asking the library locator for
// lib's install directory under subpath, then joining file.
func (r *Resolver) resolveLibRelative(name string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(name), "/")
	if len(parts) < 2 {
		return "", false
	}
	lib := parts[0]
	file := parts[len(parts)-1]
	subpath := filepath.Join(parts[1 : len(parts)-1]...)

	dir, ok := r.Libraries.LibDir(lib, subpath)
	if !ok {
		return "", false
	}

	candidate := filepath.Join(dir, file)
	if !isRegularFile(candidate) {
		return "", false
	}
	a, err := filepath.Abs(candidate)
	if err != nil {
		return "", false
	}
	return a, true
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
