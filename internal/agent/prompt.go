package agent

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

// PromptInput is everything that goes into a system prompt.
type PromptInput struct {
	Role models.Role
	// Instructions replaces the built-in role prompt when set.
	Instructions string
	Task         string
	Episodes     []memory.ScoredEpisode
	Graph        memory.GraphContext
	Constraints  []string
	Context      string
	Decisions    string
}

// PromptBuilder renders the system prompt for an agent.
type PromptBuilder interface {
	Build(in PromptInput) string
}

// DefaultPromptBuilder renders sections in a fixed order and omits
// empty ones.
type DefaultPromptBuilder struct{}

const generalRules = `## General Rules
- Write idiomatic Go: gofmt formatting, explicit error returns, errors wrapped with %w.
- Pass context.Context to anything that blocks.
- Prefer small interfaces and table-driven tests.
- Document exported identifiers; skip comments that restate the code.
- Put each file in its own fenced code block whose first line is a comment naming the file.`

// Build implements PromptBuilder.
func (DefaultPromptBuilder) Build(in PromptInput) string {
	role := in.Instructions
	if role == "" {
		role = RolePrompt(in.Role)
	}
	sections := []string{role}

	if in.Task != "" {
		sections = append(sections, "## Task\n"+in.Task)
	}

	if len(in.Episodes) > 0 {
		var b strings.Builder
		b.WriteString("## Past Experience")
		for _, ep := range in.Episodes {
			fmt.Fprintf(&b, "\n- [Score: %.2f] %s", ep.OutcomeScore, models.Truncate(ep.TaskDescription, 100))
			fmt.Fprintf(&b, "\n  Summary: %s", models.Truncate(ep.TrajectorySummary, 150))
		}
		sections = append(sections, b.String())
	}

	if len(in.Graph.Facts) > 0 {
		lines := make([]string, 0, len(in.Graph.Facts))
		for _, f := range in.Graph.Facts {
			lines = append(lines, f.String())
		}
		sections = append(sections, "## Knowledge Graph\n"+strings.Join(lines, "\n"))
	}

	if len(in.Constraints) > 0 {
		sections = append(sections, "## Constraints\n- "+strings.Join(in.Constraints, "\n- "))
	}

	if strings.TrimSpace(in.Context) != "" {
		sections = append(sections, "## Additional Context\n"+in.Context)
	}

	if strings.TrimSpace(in.Decisions) != "" {
		sections = append(sections, "## Project Decisions\n"+strings.TrimSpace(in.Decisions))
	}

	sections = append(sections, generalRules)
	return strings.Join(sections, "\n\n")
}

// RolePrompt returns the built-in instructions for a role.
func RolePrompt(role models.Role) string {
	switch role {
	case models.RolePlanner:
		return `## Role: Planner
You are a software architect and task planner.
Break the request into sub-tasks, pick the role for each one and state the
dependencies between them. Return the plan as JSON.`
	case models.RoleCodeWriter:
		return `## Role: Code Writer
You are an expert Go developer. Write clean, idiomatic, testable Go.
Always:
- keep packages small and cohesive
- return errors, never panic on expected failures
- make blocking calls cancellable through context
- run go_compile on what you write before answering`
	case models.RoleReviewer:
		return `## Role: Reviewer
You review code against these criteria:
1. Correctness: does it do what the task asks?
2. Go idiom
3. Error handling
4. Performance
5. Security
Return a score between 0.0 and 1.0 and a list of issues.`
	case models.RoleFixer:
		return `## Role: Fixer
You fix reported errors and warnings with the smallest change that works.
Keep the style and structure of the original code.`
	case models.RoleTester:
		return `## Role: Tester
You write Go unit tests with the testing package and testify.
Cover edge cases and failure paths. Prefer table-driven tests with
descriptive case names, and run them with run_tests.`
	case models.RoleResearcher:
		return `## Role: Researcher
You investigate libraries, APIs and existing code in the Go ecosystem.
Summarise what you find and include short code examples.`
	default:
		return "## Role: " + string(role)
	}
}
