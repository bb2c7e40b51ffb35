package scm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in, owner, repo string
	}{
		{"acme/widgets", "acme", "widgets"},
		{"https://github.com/acme/widgets", "acme", "widgets"},
		{"https://github.com/acme/widgets.git", "acme", "widgets"},
		{"git@github.com:acme/widgets.git", "acme", "widgets"},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepo(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.repo, repo)
	}

	_, _, err := ParseRepo("not-a-repo")
	assert.Error(t, err)
}

func TestGitHub_CreatePR(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/acme/widgets/pull/7"}`))
	}))
	defer srv.Close()

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	gh := NewGitHubWithClient(client, "acme", "widgets")
	prURL, err := gh.CreatePR(context.Background(), PullRequest{
		Title: "[KAI-1] Setup",
		Body:  "body",
		Head:  "feature/task-1-setup",
		Base:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", prURL)
	assert.Equal(t, "[KAI-1] Setup", got["title"])
	assert.Equal(t, "feature/task-1-setup", got["head"])
	assert.Equal(t, "main", got["base"])
}

func TestNewGitHub_RequiresToken(t *testing.T) {
	_, err := NewGitHub(context.Background(), "", "acme/widgets")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_NotConfigured(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.CreateBranch(context.Background(), "x"), ErrNotConfigured)
	_, err := (&Client{}).CreatePR(context.Background(), PullRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
