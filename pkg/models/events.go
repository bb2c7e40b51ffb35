package models

import "time"

// EventType identifies a streamed event.
type EventType string

const (
	EventThinking       EventType = "thinking"
	EventToolCall       EventType = "tool_call"
	EventToolResult     EventType = "tool_result"
	EventCodeGenerated  EventType = "code_generated"
	EventPlanUpdate     EventType = "plan_update"
	EventDelegation     EventType = "delegation"
	EventDone           EventType = "done"
	EventError          EventType = "error"
	EventPipelineUpdate EventType = "pipeline_update"
	EventTaskCreated    EventType = "task_created"
)

// StreamEvent is a progress notification. Only the fields relevant to
// Type are set.
type StreamEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Thought string            `json:"thought,omitempty"`
	Tool    string            `json:"tool,omitempty"`
	Input   map[string]string `json:"input,omitempty"`
	Output  string            `json:"output,omitempty"`
	Success *bool             `json:"success,omitempty"`

	Artifact *CodeArtifact `json:"artifact,omitempty"`

	StepID      string     `json:"stepId,omitempty"`
	Status      string     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	From        Role       `json:"from,omitempty"`
	To          Role       `json:"to,omitempty"`
	Reason      string     `json:"reason,omitempty"`

	Answer   string          `json:"answer,omitempty"`
	Metadata *AnswerMetadata `json:"metadata,omitempty"`

	Message     string `json:"message,omitempty"`
	Recoverable *bool  `json:"recoverable,omitempty"`

	TaskID   int64        `json:"taskId,omitempty"`
	Title    string       `json:"title,omitempty"`
	Category TaskCategory `json:"category,omitempty"`
}

func now() time.Time { return time.Now().UTC() }

// ThinkingEvent reports a Think step.
func ThinkingEvent(thought string) StreamEvent {
	return StreamEvent{Type: EventThinking, Timestamp: now(), Thought: thought}
}

// ToolCallEvent reports an Act step.
func ToolCallEvent(tool string, input map[string]string) StreamEvent {
	return StreamEvent{Type: EventToolCall, Timestamp: now(), Tool: tool, Input: input}
}

// ToolResultEvent reports an Observe step.
func ToolResultEvent(tool, output string, success bool) StreamEvent {
	return StreamEvent{Type: EventToolResult, Timestamp: now(), Tool: tool, Output: output, Success: &success}
}

// CodeGeneratedEvent reports a produced artifact.
func CodeGeneratedEvent(a CodeArtifact) StreamEvent {
	return StreamEvent{Type: EventCodeGenerated, Timestamp: now(), Artifact: &a}
}

// PlanUpdateEvent reports a plan step status change.
func PlanUpdateEvent(stepID string, status StepStatus, description string) StreamEvent {
	return StreamEvent{Type: EventPlanUpdate, Timestamp: now(), StepID: stepID, Status: string(status), Description: description}
}

// DelegationEvent reports a hand-off between roles.
func DelegationEvent(from, to Role, reason string) StreamEvent {
	return StreamEvent{Type: EventDelegation, Timestamp: now(), From: from, To: to, Reason: reason}
}

// DoneEvent reports a final answer.
func DoneEvent(answer string, meta *AnswerMetadata) StreamEvent {
	return StreamEvent{Type: EventDone, Timestamp: now(), Answer: answer, Metadata: meta}
}

// ErrorEvent reports an Error step.
func ErrorEvent(message string, recoverable bool) StreamEvent {
	return StreamEvent{Type: EventError, Timestamp: now(), Message: message, Recoverable: &recoverable}
}

// PipelineUpdateEvent reports task lifecycle progress.
func PipelineUpdateEvent(taskID int64, status TaskStatus, message string) StreamEvent {
	return StreamEvent{Type: EventPipelineUpdate, Timestamp: now(), TaskID: taskID, Status: string(status), Message: message}
}

// TaskCreatedEvent reports a task created by analysis.
func TaskCreatedEvent(taskID int64, title string, category TaskCategory) StreamEvent {
	return StreamEvent{Type: EventTaskCreated, Timestamp: now(), TaskID: taskID, Title: title, Category: category}
}
