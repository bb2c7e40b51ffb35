package memory

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

// SummarizeTrajectory renders a trajectory as a compact " | " separated line.
func SummarizeTrajectory(trajectory []models.Step) string {
	parts := make([]string, 0, len(trajectory))
	for _, step := range trajectory {
		switch s := step.(type) {
		case models.Think:
			parts = append(parts, "Think: "+models.Truncate(s.Thought, 100))
		case models.Act:
			parts = append(parts, fmt.Sprintf("Act: %s(%s)", s.ToolName, models.Truncate(s.Reasoning, 50)))
		case models.Observe:
			outcome := "success"
			if !s.Result.IsSuccess() {
				outcome = "failure"
			}
			parts = append(parts, fmt.Sprintf("Observe: %s -> %s", s.ToolName, outcome))
		case models.Answer:
			parts = append(parts, "Answer: "+models.Truncate(s.Content, 100))
		case models.Error:
			parts = append(parts, "Error: "+models.Truncate(s.Message, 100))
		case models.Delegate:
			parts = append(parts, "Delegate: -> "+string(s.TargetRole))
		}
	}
	return strings.Join(parts, " | ")
}

// ScoreOutcome rates a finished run in [0, 1]: 0.5 base, +0.2 with
// artifacts, -0.1 per error step and -0.1 for runs longer than 8 steps.
func ScoreOutcome(trajectory []models.Step, answer models.Answer) float64 {
	score := 0.5
	if len(answer.Artifacts) > 0 {
		score += 0.2
	}
	for _, step := range trajectory {
		if _, ok := step.(models.Error); ok {
			score -= 0.1
		}
	}
	if len(trajectory) > 8 {
		score -= 0.1
	}
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
