package scm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "kai", Email: "kai@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestGitRepo_CreateBranch(t *testing.T) {
	dir := initRepo(t)
	g := NewGitRepo(dir)

	require.NoError(t, g.CreateBranch(context.Background(), "feature/task-1-setup"))
	// Creating the same branch twice is fine.
	require.NoError(t, g.CreateBranch(context.Background(), "feature/task-1-setup"))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("feature/task-1-setup"), false)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), ref.Hash())
}

func TestGitRepo_CurrentBranch(t *testing.T) {
	dir := initRepo(t)
	branch, err := NewGitRepo(dir).CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestGitRepo_NotARepository(t *testing.T) {
	err := NewGitRepo(t.TempDir()).CreateBranch(context.Background(), "x")
	assert.Error(t, err)
}
