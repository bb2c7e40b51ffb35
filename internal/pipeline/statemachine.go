package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid transition")

// transitions is the task lifecycle. Each status lists the statuses it
// may move to, in a stable order.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskCreated:          {models.TaskPlanned},
	models.TaskPlanned:          {models.TaskReady},
	models.TaskReady:            {models.TaskInProgress},
	models.TaskInProgress:       {models.TaskPROpened},
	models.TaskPROpened:         {models.TaskReviewing},
	models.TaskReviewing:        {models.TaskApproved, models.TaskChangesRequested},
	models.TaskChangesRequested: {models.TaskInProgress},
	models.TaskApproved:         {models.TaskMerged},
	models.TaskMerged:           {models.TaskTesting},
	models.TaskTesting:          {models.TaskTestPassed, models.TaskTestFailed},
	models.TaskTestPassed:       {models.TaskDeployed},
	models.TaskTestFailed:       {models.TaskBugCreated},
	models.TaskBugCreated:       {models.TaskCreated},
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From    models.TaskStatus
	To      models.TaskStatus
	Allowed []models.TaskStatus
}

func (e *TransitionError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("Invalid transition: %s -> %s. Allowed from %s: %s", e.From, e.To, e.From, strings.Join(names, ", "))
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// TransitionValidation is the result of ValidateTransition.
type TransitionValidation struct {
	Valid        bool
	ErrorMessage string
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to models.TaskStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from from in one step.
func AllowedTransitions(from models.TaskStatus) []models.TaskStatus {
	return append([]models.TaskStatus(nil), transitions[from]...)
}

// ValidateTransition explains whether from -> to is allowed.
func ValidateTransition(from, to models.TaskStatus) TransitionValidation {
	if err := CheckTransition(from, to); err != nil {
		return TransitionValidation{ErrorMessage: err.Error()}
	}
	return TransitionValidation{Valid: true}
}

// CheckTransition returns a *TransitionError when from -> to is not
// allowed. It has the shape stores expect for transactional checks.
func CheckTransition(from, to models.TaskStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: AllowedTransitions(from)}
}
