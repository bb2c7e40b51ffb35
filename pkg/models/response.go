package models

// StepStatus is the progress of a plan step.
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
)

// PlanStepResult summarises one executed plan step.
type PlanStepResult struct {
	StepID      string     `json:"stepId"`
	Role        Role       `json:"agent"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Output      string     `json:"output"`
}

// AgentResponse is the synthesized result of a controller request.
type AgentResponse struct {
	Answer    string           `json:"answer"`
	Artifacts []CodeArtifact   `json:"artifacts"`
	PlanSteps []PlanStepResult `json:"planSteps"`
	Metadata  AnswerMetadata   `json:"metadata"`
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
