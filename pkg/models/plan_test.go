package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func stepIDs(wave []PlanStep) []string {
	ids := make([]string, len(wave))
	for i, s := range wave {
		ids[i] = s.ID
	}
	return ids
}

func TestExecutionPlan_Waves(t *testing.T) {
	plan := ExecutionPlan{Steps: []PlanStep{
		{ID: "s1", AssignedRole: RoleResearcher},
		{ID: "s2", AssignedRole: RoleCodeWriter, DependsOn: []string{"s1"}},
		{ID: "s3", AssignedRole: RoleTester, DependsOn: []string{"s1"}},
		{ID: "s4", AssignedRole: RoleReviewer, DependsOn: []string{"s2", "s3"}},
	}}

	waves, err := plan.Waves()
	if err != nil {
		t.Fatalf("Waves() error = %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("len(waves) = %d, want 3", len(waves))
	}
	if got := stepIDs(waves[1]); len(got) != 2 || got[0] != "s2" || got[1] != "s3" {
		t.Errorf("wave 2 = %v, want [s2 s3]", got)
	}
	if waves[2][0].AssignedRole != RoleReviewer {
		t.Errorf("wave 3 role = %q, want REVIEWER", waves[2][0].AssignedRole)
	}
}

func TestExecutionPlan_WavesCycle(t *testing.T) {
	plan := ExecutionPlan{Steps: []PlanStep{
		{ID: "a", AssignedRole: RoleCodeWriter, DependsOn: []string{"b"}},
		{ID: "b", AssignedRole: RoleCodeWriter, DependsOn: []string{"a"}},
	}}

	if _, err := plan.Waves(); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Waves() error = %v, want ErrCycleDetected", err)
	}
}

func TestExecutionPlan_Validate(t *testing.T) {
	if err := (ExecutionPlan{}).Validate(); err == nil {
		t.Error("empty plan should be invalid")
	}
	dup := ExecutionPlan{Steps: []PlanStep{
		{ID: "a", AssignedRole: RoleCodeWriter},
		{ID: "a", AssignedRole: RoleTester},
	}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate ids should be invalid")
	}
	badRole := ExecutionPlan{Steps: []PlanStep{{ID: "a", AssignedRole: "MANAGER"}}}
	if err := badRole.Validate(); err == nil {
		t.Error("unknown role should be invalid")
	}
	if err := FallbackPlan("do it").Validate(); err != nil {
		t.Errorf("FallbackPlan().Validate() error = %v", err)
	}
}

func TestFallbackPlan(t *testing.T) {
	plan := FallbackPlan("build a cache")
	if len(plan.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(plan.Steps))
	}
	s := plan.Steps[0]
	if s.ID != "step_1" || s.Description != "build a cache" || s.AssignedRole != RoleCodeWriter || !s.RequiresVerification {
		t.Errorf("FallbackPlan() step = %+v", s)
	}
}

func TestPlanStep_RequiresVerificationDefault(t *testing.T) {
	tests := []struct {
		name string
		json string
		want bool
	}{
		{"omitted", `{"id": "s1", "description": "d", "assignedAgent": "CODE_WRITER"}`, true},
		{"explicit false", `{"id": "s1", "description": "d", "assignedAgent": "CODE_WRITER", "requiresVerification": false}`, false},
		{"explicit true", `{"id": "s1", "description": "d", "assignedAgent": "CODE_WRITER", "requiresVerification": true}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s PlanStep
			if err := json.Unmarshal([]byte(tt.json), &s); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if s.RequiresVerification != tt.want {
				t.Errorf("RequiresVerification = %v, want %v", s.RequiresVerification, tt.want)
			}
			if s.ID != "s1" || s.AssignedRole != RoleCodeWriter {
				t.Errorf("decoded step = %+v", s)
			}
		})
	}
}
