// Package llm adapts language model providers to the Reasoner interface
// used by agents, planning, verification and project analysis.
package llm

import (
	"context"

	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// StartMessage opens a conversation with an empty trajectory.
const StartMessage = "Start the task. Think and use the appropriate tool."

// Reasoner produces the next agent step and answers plain chat prompts.
//
// Reason maps provider failures it understands (rate limits, server errors,
// rejected requests) to a models.Error step. A returned Go error means the
// call could not be made at all.
type Reasoner interface {
	Reason(ctx context.Context, system string, trajectory []models.Step, defs []tools.Definition) (models.Step, error)
	Chat(ctx context.Context, system, user string) (string, error)
}

// errorStepForStatus classifies an HTTP status from a provider.
func errorStepForStatus(status int, msg string) models.Error {
	step := models.Error{Message: msg}
	switch {
	case status == 429:
		step.Recoverable = true
		step.SuggestedAction = "rate limited, wait and retry"
	case status >= 500 && status <= 599:
		step.Recoverable = true
		step.SuggestedAction = "retry"
	}
	return step
}
