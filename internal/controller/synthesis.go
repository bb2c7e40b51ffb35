package controller

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

const dependencyResultSize = 1000

// dependencyContext renders the results of completed dependencies for a
// step. Dependencies without a successful result are skipped.
func dependencyContext(completed map[string]*models.Answer, dependsOn []string) string {
	var parts []string
	for _, id := range dependsOn {
		answer, ok := completed[id]
		if !ok {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "[%s result]: %s\n", id, models.Truncate(answer.Content, dependencyResultSize))
		for _, a := range answer.Artifacts {
			fmt.Fprintf(&b, "File: %s\n%s", a.Filename, a.Content)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// fixTask builds the repair task for a step that failed verification.
func fixTask(step models.PlanStep, answer *models.Answer, result models.VerificationResult) models.AgentTask {
	issues := make([]string, len(result.Issues))
	for i, issue := range result.Issues {
		issues[i] = fmt.Sprintf("- [%s] %s", issue.Severity, issue.Description)
	}
	suggestions := make([]string, len(result.Suggestions))
	for i, s := range result.Suggestions {
		suggestions[i] = "- " + s
	}
	files := make([]string, len(answer.Artifacts))
	for i, a := range answer.Artifacts {
		files[i] = fmt.Sprintf("File: %s\n%s", a.Filename, a.Content)
	}

	desc := "Fix the code below.\n\nIssues:\n" + strings.Join(issues, "\n") +
		"\n\nSuggestions:\n" + strings.Join(suggestions, "\n") +
		"\n\nOriginal code:\n" + strings.Join(files, "\n---\n")

	return models.AgentTask{
		Description:  desc,
		Constraints:  step.Constraints,
		ParentTaskID: step.ID,
	}
}

// synthesize merges step outcomes, kept in plan order, into one response.
func synthesize(plan models.ExecutionPlan, outcomes []stepOutcome) *models.AgentResponse {
	resp := &models.AgentResponse{
		Answer:    "Done.",
		Artifacts: []models.CodeArtifact{},
		PlanSteps: make([]models.PlanStepResult, 0, len(outcomes)),
		Metadata: models.AnswerMetadata{
			TotalSteps:     len(outcomes),
			ToolsUsed:      []string{},
			AgentsInvolved: []models.Role{},
		},
	}

	tools := make(map[string]bool)
	roles := make(map[models.Role]bool)
	addRole := func(r models.Role) {
		if r != "" && !roles[r] {
			roles[r] = true
			resp.Metadata.AgentsInvolved = append(resp.Metadata.AgentsInvolved, r)
		}
	}

	for i, o := range outcomes {
		resp.PlanSteps = append(resp.PlanSteps, o.result)
		if o.answer == nil {
			continue
		}
		resp.Answer = o.answer.Content
		resp.Artifacts = append(resp.Artifacts, o.answer.Artifacts...)

		meta := o.answer.Metadata
		if meta == nil {
			addRole(plan.Steps[i].AssignedRole)
			continue
		}
		for _, t := range meta.ToolsUsed {
			if !tools[t] {
				tools[t] = true
				resp.Metadata.ToolsUsed = append(resp.Metadata.ToolsUsed, t)
			}
		}
		for _, r := range meta.AgentsInvolved {
			addRole(r)
		}
		resp.Metadata.TotalDuration += meta.TotalDuration
	}
	return resp
}

func sessionSummary(request, answer string) string {
	return "Request: " + models.Truncate(request, 200) + "\nAnswer: " + models.Truncate(answer, 500)
}
