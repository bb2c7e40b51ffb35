package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShayCichocki/kai/internal/graph"
)

// ErrCycleDetected is returned when plan steps cannot be scheduled.
var ErrCycleDetected = graph.ErrCycleDetected

// ExecutionPlan is an ordered set of steps produced by planning.
type ExecutionPlan struct {
	Steps []PlanStep `json:"steps"`
}

// PlanStep is one unit of planned work assigned to a role.
type PlanStep struct {
	// ID is unique within the plan.
	ID string `json:"id"`
	// Description is the work for the assigned agent.
	Description string `json:"description"`
	// AssignedRole is the role that runs the step.
	AssignedRole Role `json:"assignedAgent"`
	// DependsOn lists step IDs that must finish first.
	DependsOn []string `json:"dependsOn,omitempty"`
	// RequiresVerification runs the verification gate on the result.
	RequiresVerification bool `json:"requiresVerification"`
	// Constraints are passed through to the agent.
	Constraints []string `json:"constraints,omitempty"`
}

// UnmarshalJSON decodes a step, treating an absent requiresVerification
// as true.
func (s *PlanStep) UnmarshalJSON(data []byte) error {
	type plain PlanStep
	p := plain{RequiresVerification: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = PlanStep(p)
	return nil
}

// FallbackPlan is the single-step plan used when planning fails.
func FallbackPlan(request string) ExecutionPlan {
	return ExecutionPlan{Steps: []PlanStep{{
		ID:                   "step_1",
		Description:          request,
		AssignedRole:         RoleCodeWriter,
		RequiresVerification: true,
	}}}
}

// Validate reports empty plans, duplicate IDs and unknown roles.
func (p ExecutionPlan) Validate() error {
	if len(p.Steps) == 0 {
		return errors.New("plan has no steps")
	}
	seen := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.ID == "" {
			return errors.New("plan step has empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate step id %s", s.ID)
		}
		seen[s.ID] = true
		if !s.AssignedRole.Valid() {
			return fmt.Errorf("step %s: unknown role %q", s.ID, s.AssignedRole)
		}
	}
	return nil
}

// Step returns the step with the given ID.
func (p ExecutionPlan) Step(id string) (PlanStep, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return PlanStep{}, false
}

// Waves groups steps into batches that can run concurrently. Each wave
// holds the remaining steps whose dependencies all completed in earlier
// waves. A pass that selects nothing fails with ErrCycleDetected.
func (p ExecutionPlan) Waves() ([][]PlanStep, error) {
	g := graph.New()
	for _, s := range p.Steps {
		g.Add(graph.Node{ID: s.ID, DependsOn: s.DependsOn})
	}

	layers, err := g.Layers()
	if err != nil {
		return nil, err
	}

	waves := make([][]PlanStep, 0, len(layers))
	for _, layer := range layers {
		wave := make([]PlanStep, 0, len(layer))
		for _, id := range layer {
			s, _ := p.Step(id)
			wave = append(wave, s)
		}
		waves = append(waves, wave)
	}
	return waves, nil
}
