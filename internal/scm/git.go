package scm

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitRepo creates branches in a local git checkout.
type GitRepo struct {
	path string
}

// NewGitRepo returns a GitRepo for the repository at path.
func NewGitRepo(path string) *GitRepo {
	return &GitRepo{path: path}
}

// CreateBranch points a new branch at HEAD. An existing branch is left as is.
func (g *GitRepo) CreateBranch(_ context.Context, name string) error {
	repo, err := git.PlainOpen(g.path)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(name)
	if _, err := repo.Reference(ref, false); err == nil {
		return nil
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (g *GitRepo) CurrentBranch() (string, error) {
	repo, err := git.PlainOpen(g.path)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}

var _ Brancher = (*GitRepo)(nil)
