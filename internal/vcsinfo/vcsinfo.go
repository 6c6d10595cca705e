// Package vcsinfo annotates build-history records with the repository's
// current commit and branch, using go-git so no git binary needs to be
// on PATH. It is provenance only: nothing in the graph, planner, or
// runner reads from it.
package vcsinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Info is the VCS context of a build run.
type Info struct {
	CommitHash string
	Branch     string
	Dirty      bool
}

// Detect opens the repository containing root and reports its HEAD
// commit, current branch, and whether the working tree has
// uncommitted changes. If root is not inside a Git repository, it
// returns a zero Info and no error: VCS annotation is best-effort.
func Detect(root string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return Info{}, nil
		}
		return Info{}, fmt.Errorf("opening repository at %s: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Info{}, fmt.Errorf("resolving HEAD: %w", err)
	}

	info := Info{CommitHash: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return info, nil
	}
	status, err := worktree.Status()
	if err != nil {
		return info, nil
	}
	info.Dirty = !status.IsClean()
	return info, nil
}
