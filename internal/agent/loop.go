// Package agent runs a single role through a think, act, observe loop
// until it produces an answer, delegates, or runs out of budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

const instrumentationName = "github.com/ShayCichocki/kai/internal/agent"

const (
	recallLimit     = 5
	eventOutputSize = 500
)

// DecisionSource supplies shared project decisions for the prompt.
type DecisionSource interface {
	Decisions() string
}

// Options configures an Agent.
type Options struct {
	Role     models.Role
	Reasoner llm.Reasoner
	Tools    *tools.Registry
	// Memory defaults to memory.Nop.
	Memory memory.Layer
	// Config fields left zero use DefaultConfig.
	Config Config
	// Prompts defaults to DefaultPromptBuilder.
	Prompts PromptBuilder
	// Instructions overrides the role prompt.
	Instructions string
	Decisions    DecisionSource
	Logger       *zap.Logger
}

// Agent executes tasks for one role. It holds no per-task state and is
// safe for concurrent use.
type Agent struct {
	role         models.Role
	reasoner     llm.Reasoner
	tools        *tools.Registry
	memory       memory.Layer
	cfg          Config
	prompts      PromptBuilder
	instructions string
	decisions    DecisionSource
	logger       *zap.Logger
}

// New creates an agent.
func New(opts Options) *Agent {
	a := &Agent{
		role:         opts.Role,
		reasoner:     opts.Reasoner,
		tools:        opts.Tools,
		memory:       opts.Memory,
		cfg:          DefaultConfig().merge(opts.Config),
		prompts:      opts.Prompts,
		instructions: opts.Instructions,
		decisions:    opts.Decisions,
		logger:       opts.Logger,
	}
	if a.tools == nil {
		a.tools = tools.NewRegistry()
	}
	if a.memory == nil {
		a.memory = memory.Nop{}
	}
	if a.prompts == nil {
		a.prompts = DefaultPromptBuilder{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.Named("agent").With(zap.String("role", string(a.role)))
	return a
}

// Role returns the agent's role.
func (a *Agent) Role() models.Role { return a.role }

// Config returns the effective limits.
func (a *Agent) Config() Config { return a.cfg }

// Tools returns the agent's tool names.
func (a *Agent) Tools() []string { return a.tools.Names() }

// Execute runs the loop for task. Progress is reported to sink, which may
// be nil. The returned error is an *AgentError or a *DelegationError.
func (a *Agent) Execute(ctx context.Context, task models.AgentTask, sink events.Sink) (*models.Answer, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "agent.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("role", string(a.role)),
		attribute.Int("max_iterations", a.cfg.MaxIterations),
	)

	answer, err := a.run(ctx, task, sink)

	outcome := "answer"
	var delegation *DelegationError
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("artifacts", len(answer.Artifacts)))
	case errors.As(err, &delegation):
		outcome = "delegated"
		span.SetAttributes(attribute.String("delegated_to", string(delegation.Step.TargetRole)))
	default:
		outcome = "error"
		if errors.Is(err, ErrMaxIterations) {
			outcome = "max_iterations"
		} else if errors.Is(err, ErrMaxRetries) {
			outcome = "max_retries"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.AgentRuns.WithLabelValues(string(a.role), outcome).Inc()
	return answer, err
}

func (a *Agent) run(ctx context.Context, task models.AgentTask, sink events.Sink) (*models.Answer, error) {
	a.logger.Info("starting task", zap.String("task", models.Truncate(task.Description, 80)))

	system := a.systemPrompt(ctx, task)
	defs := a.tools.Definitions()

	var trajectory []models.Step
	retries := 0

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		metrics.AgentIterations.WithLabelValues(string(a.role)).Inc()
		a.logger.Debug("iteration", zap.Int("n", iteration), zap.Int("max", a.cfg.MaxIterations))

		step, err := a.reasoner.Reason(ctx, system, trajectory, defs)
		if err != nil {
			a.logger.Warn("reasoner call failed", zap.Error(err))
			step = models.Error{
				Message:         "reasoner call failed: " + err.Error(),
				Recoverable:     retries < a.cfg.MaxRetries,
				SuggestedAction: "retry",
			}
		}
		trajectory = append(trajectory, step)

		switch s := step.(type) {
		case models.Think:
			events.Emit(sink, models.ThinkingEvent(s.Thought))
			if s.Confidence >= a.cfg.ConfidenceThreshold {
				a.logger.Debug("confident thought", zap.Float64("confidence", s.Confidence))
			}

		case models.Act:
			trajectory = append(trajectory, a.act(ctx, s, sink))

		case models.Answer:
			s.Metadata = answerMetadata(a.role, trajectory)
			if err := a.memory.StoreEpisode(ctx, task, trajectory, s); err != nil {
				a.logger.Warn("store episode", zap.Error(err))
			}
			a.logger.Info("answer ready", zap.Int("artifacts", len(s.Artifacts)), zap.Int("steps", len(trajectory)))
			events.Emit(sink, models.DoneEvent(s.Content, s.Metadata))
			return &s, nil

		case models.Error:
			a.logger.Warn("error step", zap.String("message", s.Message), zap.Bool("recoverable", s.Recoverable))
			events.Emit(sink, models.ErrorEvent(s.Message, s.Recoverable))
			if !s.Recoverable {
				return nil, &AgentError{Role: a.role, Message: s.Message}
			}
			retries++
			if retries >= a.cfg.MaxRetries {
				return nil, &AgentError{
					Role:    a.role,
					Message: fmt.Sprintf("max retries (%d) exceeded: %s", a.cfg.MaxRetries, s.Message),
					Err:     ErrMaxRetries,
				}
			}

		case models.Delegate:
			a.logger.Info("delegating", zap.String("to", string(s.TargetRole)))
			events.Emit(sink, models.DelegationEvent(a.role, s.TargetRole, s.Context.Reason))
			s.Context.ParentTrajectory = append([]models.Step(nil), trajectory...)
			return nil, &DelegationError{From: a.role, Step: s}

		case models.Observe:
			// Observations come from tool calls only.

		default:
			return nil, &AgentError{Role: a.role, Message: fmt.Sprintf("unhandled step %T", step)}
		}
	}

	return nil, &AgentError{
		Role:    a.role,
		Message: fmt.Sprintf("max iterations (%d) exceeded", a.cfg.MaxIterations),
		Err:     ErrMaxIterations,
	}
}

func (a *Agent) systemPrompt(ctx context.Context, task models.AgentTask) string {
	in := PromptInput{
		Role:         a.role,
		Instructions: a.instructions,
		Task:         task.Description,
		Episodes:     a.memory.RecallSimilar(ctx, task.Description, recallLimit),
		Graph:        a.memory.QueryGraph(ctx, task.Entities()),
		Constraints:  task.Constraints,
		Context:      task.Context,
	}
	if a.decisions != nil {
		in.Decisions = a.decisions.Decisions()
	}
	return a.prompts.Build(in)
}

// act runs the requested tool and returns the resulting observation.
func (a *Agent) act(ctx context.Context, s models.Act, sink events.Sink) models.Observe {
	a.logger.Info("tool call", zap.String("tool", s.ToolName), zap.String("reasoning", models.Truncate(s.Reasoning, 50)))
	events.Emit(sink, models.ToolCallEvent(s.ToolName, s.ToolInput))

	tool, ok := a.tools.Get(s.ToolName)
	if !ok {
		metrics.ToolCalls.WithLabelValues(s.ToolName, "unknown").Inc()
		obs := models.Observe{
			ToolName: s.ToolName,
			Result:   models.Failure{Error: "unknown tool: " + s.ToolName, Retryable: true},
		}
		events.Emit(sink, models.ToolResultEvent(s.ToolName, "unknown tool", false))
		return obs
	}

	start := time.Now()
	result, outcome := a.runTool(ctx, tool, s.ToolInput)
	elapsed := time.Since(start)

	metrics.ToolCalls.WithLabelValues(s.ToolName, outcome).Inc()
	metrics.ToolDuration.WithLabelValues(s.ToolName).Observe(elapsed.Seconds())

	text := models.ResultText(result)
	if !result.IsSuccess() {
		text = "error: " + text
		a.logger.Debug("tool failed", zap.String("tool", s.ToolName), zap.String("error", models.ResultText(result)))
	}
	events.Emit(sink, models.ToolResultEvent(s.ToolName, models.Truncate(text, eventOutputSize), result.IsSuccess()))

	return models.Observe{ToolName: s.ToolName, Result: result, Duration: elapsed}
}

// runTool executes tool under the configured timeout, converting panics,
// errors and deadlines into retryable failures. The second return value
// labels the outcome for metrics.
func (a *Agent) runTool(ctx context.Context, tool tools.Tool, input map[string]string) (models.ToolResult, string) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ToolTimeout)
	defer cancel()

	type outcome struct {
		result models.ToolResult
		err    error
		panic  any
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{panic: r}
			}
		}()
		res, err := tool.Execute(ctx, input)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		switch {
		case o.panic != nil:
			a.logger.Error("tool panicked", zap.String("tool", tool.Name()), zap.Any("panic", o.panic))
			return models.Failure{Error: fmt.Sprintf("tool panic: %v", o.panic), Retryable: true}, "panic"
		case o.err != nil:
			a.logger.Warn("tool error", zap.String("tool", tool.Name()), zap.Error(o.err))
			return models.Failure{Error: "tool error: " + o.err.Error(), Retryable: true}, "failure"
		case o.result == nil:
			return models.Failure{Error: "tool returned no result", Retryable: true}, "failure"
		case o.result.IsSuccess():
			return o.result, "success"
		default:
			return o.result, "failure"
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return models.Failure{Error: "tool cancelled: " + tool.Name(), Retryable: true}, "timeout"
		}
		return models.Failure{
			Error:     fmt.Sprintf("tool timeout (%s): %s", a.cfg.ToolTimeout, tool.Name()),
			Retryable: true,
		}, "timeout"
	}
}

func answerMetadata(role models.Role, trajectory []models.Step) *models.AnswerMetadata {
	meta := &models.AnswerMetadata{
		TotalSteps:     len(trajectory),
		ToolsUsed:      []string{},
		AgentsInvolved: []models.Role{role},
	}
	seen := make(map[string]bool)
	for _, step := range trajectory {
		switch s := step.(type) {
		case models.Act:
			if !seen[s.ToolName] {
				seen[s.ToolName] = true
				meta.ToolsUsed = append(meta.ToolsUsed, s.ToolName)
			}
		case models.Observe:
			meta.TotalDuration += s.Duration
		}
	}
	return meta
}
