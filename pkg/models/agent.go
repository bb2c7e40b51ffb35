package models

import (
	"fmt"
	"strings"
	"unicode"
)

// Role identifies a specialised agent.
type Role string

const (
	// RolePlanner breaks work into steps.
	RolePlanner Role = "PLANNER"
	// RoleCodeWriter writes production code.
	RoleCodeWriter Role = "CODE_WRITER"
	// RoleReviewer reviews code for defects.
	RoleReviewer Role = "REVIEWER"
	// RoleFixer repairs code that failed verification.
	RoleFixer Role = "FIXER"
	// RoleTester writes and runs tests.
	RoleTester Role = "TESTER"
	// RoleResearcher gathers information before implementation.
	RoleResearcher Role = "RESEARCHER"
)

// AllRoles lists every role in a stable order.
var AllRoles = []Role{RolePlanner, RoleCodeWriter, RoleReviewer, RoleFixer, RoleTester, RoleResearcher}

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePlanner, RoleCodeWriter, RoleReviewer, RoleFixer, RoleTester, RoleResearcher:
		return true
	default:
		return false
	}
}

// DisplayName returns a human readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RolePlanner:
		return "Planner"
	case RoleCodeWriter:
		return "Code Writer"
	case RoleReviewer:
		return "Reviewer"
	case RoleFixer:
		return "Fixer"
	case RoleTester:
		return "Tester"
	case RoleResearcher:
		return "Researcher"
	default:
		return string(r)
	}
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// technicalTerms are matched as substrings when extracting task entities.
var technicalTerms = []string{
	"go", "goroutine", "channel", "grpc", "rest", "api", "json", "sql",
	"sqlite", "database", "docker", "test", "http", "websocket", "kubernetes", "yaml",
}

// AgentTask is the unit of work handed to a single agent.
type AgentTask struct {
	// Description is what the agent must accomplish.
	Description string `json:"description"`
	// Context carries prior results or background for the agent.
	Context string `json:"context,omitempty"`
	// Constraints are rules the result must respect.
	Constraints []string `json:"constraints,omitempty"`
	// ParentTaskID links delegated work to its origin.
	ParentTaskID string `json:"parent_task_id,omitempty"`
}

// Entities extracts distinct words from the description that look like
// names: capitalised words, dotted identifiers, or technical terms.
func (t AgentTask) Entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.Fields(t.Description) {
		if seen[word] || !looksLikeEntity(word) {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}

func looksLikeEntity(word string) bool {
	first := []rune(word)[0]
	if unicode.IsUpper(first) || strings.Contains(word, ".") {
		return true
	}
	lower := strings.ToLower(word)
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// TaskFromDelegation builds the task a delegated agent receives.
func TaskFromDelegation(ctx DelegationContext) AgentTask {
	return AgentTask{
		Description: ctx.TaskDescription,
		Context:     ctx.Reason,
		Constraints: ctx.Constraints,
	}
}
