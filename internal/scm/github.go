package scm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/ShayCichocki/kai/internal/version"
)

// GitHub opens pull requests on a GitHub repository.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub creates a token-authenticated client for repoURL, which may be
// "owner/repo" or a github.com URL.
func NewGitHub(ctx context.Context, token, repoURL string) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("github token: %w", ErrNotConfigured)
	}
	owner, repo, err := ParseRepo(repoURL)
	if err != nil {
		return nil, err
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	client.UserAgent = version.UserAgent()
	return &GitHub{client: client, owner: owner, repo: repo}, nil
}

// NewGitHubWithClient wraps an existing go-github client.
func NewGitHubWithClient(client *github.Client, owner, repo string) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo}
}

// CreatePR opens a pull request and returns its HTML URL.
func (g *GitHub) CreatePR(ctx context.Context, pr PullRequest) (string, error) {
	created, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Body:  github.String(pr.Body),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
	})
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}
	return created.GetHTMLURL(), nil
}

// ParseRepo extracts owner and name from "owner/repo" or a GitHub URL.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimPrefix(s, "git@github.com:")
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse repository %q", s)
	}
	return parts[0], parts[1], nil
}

var _ PRCreator = (*GitHub)(nil)
