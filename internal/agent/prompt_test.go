package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

func TestDefaultPromptBuilder_SectionOrder(t *testing.T) {
	out := DefaultPromptBuilder{}.Build(PromptInput{
		Role:        models.RoleFixer,
		Task:        "fix it",
		Episodes:    []memory.ScoredEpisode{{Episode: memory.Episode{TaskDescription: "t", TrajectorySummary: "s", OutcomeScore: 0.5}}},
		Graph:       memory.GraphContext{Facts: []memory.Fact{{Subject: "a", Relation: "b", Object: "c"}}},
		Constraints: []string{"c1", "c2"},
		Context:     "ctx",
		Decisions:   "d",
	})

	order := []string{
		"## Role: Fixer", "## Task", "## Past Experience", "## Knowledge Graph",
		"## Constraints", "## Additional Context", "## Project Decisions", "## General Rules",
	}
	last := -1
	for _, h := range order {
		i := strings.Index(out, h)
		assert.Greater(t, i, last, "section %q out of order", h)
		last = i
	}
	assert.Contains(t, out, "- c1\n- c2")
	assert.Contains(t, out, "  Summary: s")
}

func TestDefaultPromptBuilder_OmitsEmptySections(t *testing.T) {
	out := DefaultPromptBuilder{}.Build(PromptInput{Role: models.RolePlanner})

	assert.True(t, strings.HasPrefix(out, "## Role: Planner"))
	for _, h := range []string{"## Task", "## Past Experience", "## Knowledge Graph", "## Constraints", "## Additional Context", "## Project Decisions"} {
		assert.NotContains(t, out, h)
	}
	assert.Contains(t, out, "## General Rules")
}

func TestDefaultPromptBuilder_TruncatesEpisodes(t *testing.T) {
	long := strings.Repeat("x", 300)
	out := DefaultPromptBuilder{}.Build(PromptInput{
		Role:     models.RoleTester,
		Episodes: []memory.ScoredEpisode{{Episode: memory.Episode{TaskDescription: long, TrajectorySummary: long}}},
	})
	assert.Contains(t, out, "] "+strings.Repeat("x", 100)+"\n")
	assert.Contains(t, out, "Summary: "+strings.Repeat("x", 150)+"\n")
}

func TestDefaultPromptBuilder_InstructionsOverride(t *testing.T) {
	out := DefaultPromptBuilder{}.Build(PromptInput{Role: models.RoleTester, Instructions: "custom role"})
	assert.True(t, strings.HasPrefix(out, "custom role"))
	assert.NotContains(t, out, "## Role: Tester")
}

func TestRolePrompt_AllRoles(t *testing.T) {
	for _, r := range models.AllRoles {
		assert.Contains(t, RolePrompt(r), r.DisplayName())
	}
}
