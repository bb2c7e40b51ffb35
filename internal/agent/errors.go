package agent

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/kai/pkg/models"
)

var (
	// ErrMaxIterations is wrapped when the loop ends without an answer.
	ErrMaxIterations = errors.New("max iterations exceeded")
	// ErrMaxRetries is wrapped when recoverable errors exhaust the budget.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// AgentError is a failed execution.
type AgentError struct {
	Role    models.Role
	Message string
	// Err is ErrMaxIterations, ErrMaxRetries or nil for a
	// non-recoverable reasoner error.
	Err error
}

func (e *AgentError) Error() string { return e.Message }

func (e *AgentError) Unwrap() error { return e.Err }

// DelegationError signals that an agent handed its task to another role.
// It is a structured hand-off, not a failure.
type DelegationError struct {
	From models.Role
	Step models.Delegate
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("%s delegating to %s: %s", e.From, e.Step.TargetRole, e.Step.Context.Reason)
}
