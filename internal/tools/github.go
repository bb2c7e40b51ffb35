package tools

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/kai/internal/scm"
	"github.com/ShayCichocki/kai/pkg/models"
)

// GitHubName is the registered name of the source control tool.
const GitHubName = "github"

// GitHub exposes branch and pull request creation to agents.
type GitHub struct {
	scm scm.SourceControl
}

// NewGitHub creates the source control tool.
func NewGitHub(sc scm.SourceControl) *GitHub {
	return &GitHub{scm: sc}
}

func (g *GitHub) Name() string { return GitHubName }

func (g *GitHub) Description() string {
	return "Create a branch or open a pull request in the project repository."
}

func (g *GitHub) Parameters() []Parameter {
	return []Parameter{
		{Name: "action", Description: "Operation to perform", Required: true, Enum: []string{"create_branch", "create_pr"}},
		{Name: "branch", Description: "Branch name (head branch for create_pr)", Required: true},
		{Name: "title", Description: "Pull request title"},
		{Name: "body", Description: "Pull request body"},
		{Name: "base", Description: "Base branch for create_pr (default main)"},
	}
}

func (g *GitHub) Execute(ctx context.Context, input map[string]string) (models.ToolResult, error) {
	if name := missing(g.Parameters(), input); name != "" {
		return models.Failure{Error: fmt.Sprintf("missing parameter: %s", name)}, nil
	}

	switch input["action"] {
	case "create_branch":
		if err := g.scm.CreateBranch(ctx, input["branch"]); err != nil {
			return models.Failure{Error: err.Error(), Retryable: true}, nil
		}
		return models.Success{Output: "created branch " + input["branch"]}, nil
	case "create_pr":
		if input["title"] == "" {
			return models.Failure{Error: "missing parameter: title"}, nil
		}
		base := input["base"]
		if base == "" {
			base = "main"
		}
		url, err := g.scm.CreatePR(ctx, scm.PullRequest{
			Title: input["title"],
			Body:  input["body"],
			Head:  input["branch"],
			Base:  base,
		})
		if err != nil {
			return models.Failure{Error: err.Error(), Retryable: true}, nil
		}
		return models.Success{Output: url, Data: map[string]any{"url": url}}, nil
	default:
		return models.Failure{Error: fmt.Sprintf("unknown action: %s", input["action"])}, nil
	}
}

var _ Tool = (*GitHub)(nil)
