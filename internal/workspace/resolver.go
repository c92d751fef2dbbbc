// Package workspace decides which host directory is mounted into a worker.
package workspace

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Workspace is a resolved host directory
type Workspace struct {
	Path       string
	Repository bool   // Path is the root of a git working tree
	Branch     string // checked out branch, empty when detached or unborn
}

// Resolver resolves a starting directory to a workspace
type Resolver struct {
	dir string
}

// NewResolver resolves from dir; an empty dir means the working directory
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the enclosing git repository root when dir is inside one,
// and dir itself otherwise.
func (r *Resolver) Resolve() (*Workspace, error) {
	dir := r.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("workspace path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace path is not a directory: %s", absPath)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return &Workspace{Path: absPath}, nil
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", absPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to mount
		return &Workspace{Path: absPath}, nil
	}

	ws := &Workspace{
		Path:       worktree.Filesystem.Root(),
		Repository: true,
	}
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		ws.Branch = head.Name().Short()
	}
	return ws, nil
}
