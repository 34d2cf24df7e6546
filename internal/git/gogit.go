package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
)

// Repo implements Stager in-process with go-git, without spawning the git
// binary. It reads and writes the same index as the CLI.
type Repo struct {
	workDir string
	wt      *gogit.Worktree
}

var _ Stager = (*Repo)(nil)

// NewRepo returns a Stager backed by go-git. The repository is opened on
// first use.
func NewRepo(workDir string) *Repo {
	return &Repo{workDir: workDir}
}

func (r *Repo) worktree() (*gogit.Worktree, error) {
	if r.wt != nil {
		return r.wt, nil
	}
	repo, err := gogit.PlainOpenWithOptions(r.workDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	r.wt = wt
	return wt, nil
}

// Root implements Stager.
func (r *Repo) Root(_ context.Context) (string, error) {
	wt, err := r.worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

// StagedFiles implements Stager.
func (r *Repo) StagedFiles(_ context.Context, patterns []string) ([]string, error) {
	status, err := r.status()
	if err != nil {
		return nil, err
	}

	var paths []string
	for p, st := range status {
		switch st.Staging {
		case gogit.Added, gogit.Copied, gogit.Modified:
		default:
			continue
		}
		if MatchAny(patterns, p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ModifiedFiles implements Stager.
func (r *Repo) ModifiedFiles(_ context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	status, err := r.status()
	if err != nil {
		return nil, err
	}

	var modified []string
	for _, p := range paths {
		st, ok := status[p]
		if !ok {
			continue
		}
		if st.Worktree == gogit.Modified || st.Worktree == gogit.Deleted {
			modified = append(modified, p)
		}
	}
	return modified, nil
}

// Add implements Stager.
func (r *Repo) Add(_ context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	wt, err := r.worktree()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return fmt.Errorf("staging %s: %w", p, err)
		}
	}
	return nil
}

func (r *Repo) status() (gogit.Status, error) {
	wt, err := r.worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting worktree status: %w", err)
	}
	return status, nil
}
