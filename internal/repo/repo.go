// Package repo opens the directory antenna analyzes and, when it is a git
// repository, records where its worktree lives and which commit is checked out.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

// Workspace is the root directory include globs are resolved against
type Workspace struct {
	// Root as given by the user, made absolute; include globs are relative to it
	Root string

	// IsGit is set when Root is inside a git worktree
	IsGit bool

	// Worktree is the absolute root of the enclosing git worktree
	Worktree string

	// CommitSHA and Branch describe HEAD; empty for a repository without commits
	CommitSHA string
	Branch    string
}

// Open opens path as a workspace. A directory that is not inside a git
// repository is accepted as a plain workspace.
func Open(path string) (*Workspace, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open repository: %s is not a directory", root)
	}

	ws := &Workspace{Root: root}

	r, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		log.Debug().Str("path", root).Msg("not a git repository, using plain directory")
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	ws.IsGit = true

	if wt, err := r.Worktree(); err == nil {
		ws.Worktree = wt.Filesystem.Root()
	}

	head, err := r.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		log.Debug().Str("path", root).Msg("repository has no commits")
	case err != nil:
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	default:
		ws.CommitSHA = head.Hash().String()
		if head.Name().IsBranch() {
			ws.Branch = head.Name().Short()
		}
	}

	return ws, nil
}

// ShortSHA returns the abbreviated HEAD commit, or "" when unknown
func (w *Workspace) ShortSHA() string {
	if len(w.CommitSHA) > 12 {
		return w.CommitSHA[:12]
	}
	return w.CommitSHA
}
