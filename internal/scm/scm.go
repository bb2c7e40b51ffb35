// Package scm creates branches and pull requests for pipeline tasks.
package scm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Noop and by clients missing credentials.
var ErrNotConfigured = errors.New("source control not configured")

// PullRequest describes a pull request to open.
type PullRequest struct {
	Title string
	Body  string
	// Head is the branch containing the changes.
	Head string
	// Base is the branch the changes merge into.
	Base string
}

// SourceControl is what the pipeline needs from a repository host.
type SourceControl interface {
	CreateBranch(ctx context.Context, name string) error
	CreatePR(ctx context.Context, pr PullRequest) (string, error)
}

// Brancher creates branches.
type Brancher interface {
	CreateBranch(ctx context.Context, name string) error
}

// PRCreator opens pull requests.
type PRCreator interface {
	CreatePR(ctx context.Context, pr PullRequest) (string, error)
}

// Client combines a local repository for branches with a hosting
// service for pull requests. Either side may be nil.
type Client struct {
	Branches Brancher
	PRs      PRCreator
}

// CreateBranch creates name in the local repository.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	if c == nil || c.Branches == nil {
		return ErrNotConfigured
	}
	return c.Branches.CreateBranch(ctx, name)
}

// CreatePR opens a pull request and returns its URL.
func (c *Client) CreatePR(ctx context.Context, pr PullRequest) (string, error) {
	if c == nil || c.PRs == nil {
		return "", ErrNotConfigured
	}
	return c.PRs.CreatePR(ctx, pr)
}

// Noop is a SourceControl that is never configured.
type Noop struct{}

func (Noop) CreateBranch(context.Context, string) error { return ErrNotConfigured }

func (Noop) CreatePR(context.Context, PullRequest) (string, error) { return "", ErrNotConfigured }

var (
	_ SourceControl = (*Client)(nil)
	_ SourceControl = Noop{}
)
