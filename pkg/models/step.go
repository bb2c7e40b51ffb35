package models

import "time"

// Step kinds.
const (
	StepThink    = "think"
	StepAct      = "act"
	StepObserve  = "observe"
	StepAnswer   = "answer"
	StepError    = "error"
	StepDelegate = "delegate"
)

// Step is one entry in an agent trajectory. The set of implementations is
// closed: Think, Act, Observe, Answer, Error and Delegate.
type Step interface {
	StepKind() string
	isStep()
}

// Think records intermediate reasoning.
type Think struct {
	Thought    string  `json:"thought"`
	Confidence float64 `json:"confidence"`
}

// Act requests a tool invocation.
type Act struct {
	ToolName  string            `json:"tool_name"`
	ToolInput map[string]string `json:"tool_input"`
	Reasoning string            `json:"reasoning,omitempty"`
}

// Observe records the result of a tool invocation.
type Observe struct {
	ToolName string        `json:"tool_name"`
	Result   ToolResult    `json:"result"`
	Duration time.Duration `json:"duration"`
}

// Answer is a terminal step carrying the agent's result.
type Answer struct {
	Content   string          `json:"content"`
	Artifacts []CodeArtifact  `json:"artifacts,omitempty"`
	Metadata  *AnswerMetadata `json:"metadata,omitempty"`
}

// Error records a failure in the reasoning loop.
type Error struct {
	Message         string `json:"message"`
	Recoverable     bool   `json:"recoverable"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// Delegate hands the task to another role.
type Delegate struct {
	TargetRole Role              `json:"target_role"`
	Context    DelegationContext `json:"context"`
}

// DelegationContext is what the delegating agent passes on.
type DelegationContext struct {
	Reason           string   `json:"reason"`
	TaskDescription  string   `json:"task_description"`
	ParentTrajectory []Step   `json:"-"`
	Constraints      []string `json:"constraints,omitempty"`
}

func (Think) StepKind() string    { return StepThink }
func (Act) StepKind() string      { return StepAct }
func (Observe) StepKind() string  { return StepObserve }
func (Answer) StepKind() string   { return StepAnswer }
func (Error) StepKind() string    { return StepError }
func (Delegate) StepKind() string { return StepDelegate }

func (Think) isStep()    {}
func (Act) isStep()      {}
func (Observe) isStep()  {}
func (Answer) isStep()   {}
func (Error) isStep()    {}
func (Delegate) isStep() {}

// ToolResult is the outcome of a tool call: Success or Failure.
type ToolResult interface {
	IsSuccess() bool
	isToolResult()
}

// Success is a tool call that produced output.
type Success struct {
	Output string         `json:"output"`
	Data   map[string]any `json:"data,omitempty"`
}

// Failure is a tool call that failed.
type Failure struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (Success) IsSuccess() bool { return true }
func (Failure) IsSuccess() bool { return false }
func (Success) isToolResult()   {}
func (Failure) isToolResult()   {}

// ResultText returns the output of a Success or the error of a Failure.
func ResultText(r ToolResult) string {
	switch v := r.(type) {
	case Success:
		return v.Output
	case Failure:
		return v.Error
	default:
		return ""
	}
}

// CodeArtifact is a named piece of generated code.
type CodeArtifact struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Content  string `json:"content"`
	Version  int    `json:"version"`
}

// NewArtifact returns an artifact at version 1.
func NewArtifact(filename, language, content string) CodeArtifact {
	return CodeArtifact{Filename: filename, Language: language, Content: content, Version: 1}
}

// AnswerMetadata summarises how an answer was produced.
type AnswerMetadata struct {
	TotalSteps     int           `json:"total_steps"`
	ToolsUsed      []string      `json:"tools_used"`
	TotalDuration  time.Duration `json:"total_duration"`
	AgentsInvolved []Role        `json:"agents_involved"`
}
