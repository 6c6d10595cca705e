package vcsinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestDetectReadsHeadAndBranch(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	filePath := filepath.Join(dir, "a.erl")
	if err := os.WriteFile(filePath, []byte("-module(a)."), 0644); err != nil {
		t.Fatal(err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("a.erl"); err != nil {
		t.Fatal(err)
	}
	commitHash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.CommitHash != commitHash.String() {
		t.Fatalf("expected commit hash %s, got %s", commitHash, info.CommitHash)
	}
	if info.Branch == "" {
		t.Fatal("expected a non-empty branch name")
	}
}

func TestDetectOutsideRepositoryReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	info, err := Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.CommitHash != "" || info.Branch != "" {
		t.Fatalf("expected zero Info outside a repository, got %+v", info)
	}
}

func TestDetectFlagsDirtyWorktree(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(dir, "a.erl")
	os.WriteFile(filePath, []byte("-module(a)."), 0644)
	wt, _ := repo.Worktree()
	wt.Add("a.erl")
	wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})

	os.WriteFile(filePath, []byte("-module(a).\n-export([f/0])."), 0644)

	info, err := Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Dirty {
		t.Fatal("expected worktree to be reported dirty after an uncommitted edit")
	}
}
