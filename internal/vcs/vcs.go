// Package vcs checks that a file can be restored from git before it is
// edited in place.
package vcs

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrDirty is returned for a tracked file with uncommitted changes.
	ErrDirty = errors.New("file has uncommitted changes")

	// ErrUntracked is returned for a file inside a repository that git does
	// not track.
	ErrUntracked = errors.New("file is not tracked by git")

	// ErrIgnored is returned for a file matched by a .gitignore pattern.
	ErrIgnored = errors.New("file is ignored by git")
)

// Status describes a file relative to its repository.
type Status int

const (
	Clean Status = iota
	NotRepository
	Modified
	Untracked
	Ignored
)

func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case NotRepository:
		return "not in a repository"
	case Modified:
		return "modified"
	case Untracked:
		return "untracked"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// FileStatus reports the git status of path, searching parent directories
// for the repository.
func FileStatus(path string) (Status, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Clean, errors.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return NotRepository, nil
	}
	if err != nil {
		return Clean, errors.Errorf("opening repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Clean, errors.Errorf("opening worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return Clean, errors.Errorf("locating %s in %s: %w", abs, root, err)
	}
	rel = filepath.ToSlash(rel)

	status, err := wt.Status()
	if err != nil {
		return Clean, errors.Errorf("reading worktree status: %w", err)
	}

	// Clean tracked files and ignored files are both absent from status.
	fs, ok := status[rel]
	if !ok {
		idx, err := repo.Storer.Index()
		if err != nil {
			return Clean, errors.Errorf("reading index: %w", err)
		}
		if _, err := idx.Entry(rel); errors.Is(err, index.ErrEntryNotFound) {
			return untrackedStatus(wt, rel)
		} else if err != nil {
			return Clean, errors.Errorf("reading index: %w", err)
		}
		return Clean, nil
	}

	switch {
	case fs.Worktree == git.Untracked:
		return Untracked, nil
	case fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified:
		return Modified, nil
	default:
		return Clean, nil
	}
}

// untrackedStatus tells an ignored file from a plainly untracked one.
func untrackedStatus(wt *git.Worktree, rel string) (Status, error) {
	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return Clean, errors.Errorf("reading .gitignore: %w", err)
	}
	if gitignore.NewMatcher(patterns).Match(strings.Split(rel, "/"), false) {
		return Ignored, nil
	}
	return Untracked, nil
}

// RequireClean fails unless path is committed and unchanged. Files outside
// any repository pass.
func RequireClean(path string) error {
	status, err := FileStatus(path)
	if err != nil {
		return err
	}
	switch status {
	case Modified:
		return errors.Errorf("%s: %w", path, ErrDirty)
	case Untracked:
		return errors.Errorf("%s: %w", path, ErrUntracked)
	case Ignored:
		return errors.Errorf("%s: %w", path, ErrIgnored)
	default:
		return nil
	}
}
