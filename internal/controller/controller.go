// Package controller turns a user request into a plan, runs the plan's
// steps on role agents in dependency waves, verifies and repairs their
// output, and synthesizes a single response.
package controller

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/kai/internal/agent"
	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/pkg/models"
)

const instrumentationName = "github.com/ShayCichocki/kai/internal/controller"

// Runner executes one task for a role. *agent.Agent satisfies it.
type Runner interface {
	Execute(ctx context.Context, task models.AgentTask, sink events.Sink) (*models.Answer, error)
}

// Planner answers the planning prompt. llm.Reasoner satisfies it.
type Planner interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Verifier checks a step result. *verify.Gate satisfies it.
type Verifier interface {
	Verify(ctx context.Context, step models.PlanStep, answer *models.Answer) models.VerificationResult
}

// Options configures a Controller.
type Options struct {
	Planner Planner
	Agents  map[models.Role]Runner
	// Verifier is optional. Without it no step is verified.
	Verifier Verifier
	// Memory defaults to memory.Nop.
	Memory memory.Layer
	Logger *zap.Logger
}

// Controller coordinates role agents for a single request at a time per
// call. Concurrent calls to Process are safe.
type Controller struct {
	planner  Planner
	agents   map[models.Role]Runner
	verifier Verifier
	memory   memory.Layer
	logger   *zap.Logger
}

// New creates a controller.
func New(opts Options) *Controller {
	c := &Controller{
		planner:  opts.Planner,
		agents:   opts.Agents,
		verifier: opts.Verifier,
		memory:   opts.Memory,
		logger:   opts.Logger,
	}
	if c.agents == nil {
		c.agents = map[models.Role]Runner{}
	}
	if c.memory == nil {
		c.memory = memory.Nop{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("controller")
	return c
}

// FromAgents converts an agent map built by agent.Factory.
func FromAgents(agents map[models.Role]*agent.Agent) map[models.Role]Runner {
	out := make(map[models.Role]Runner, len(agents))
	for role, a := range agents {
		out[role] = a
	}
	return out
}

// Roles returns the roles with a registered agent, in models.AllRoles order.
func (c *Controller) Roles() []models.Role {
	var roles []models.Role
	for _, r := range models.AllRoles {
		if _, ok := c.agents[r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// stepOutcome is the per-step slot written by exactly one goroutine.
type stepOutcome struct {
	result models.PlanStepResult
	answer *models.Answer
}

// Process plans request, executes the plan and returns the synthesized
// response. Step failures are reported in the response, not as an error;
// an error is returned only when ctx is cancelled before synthesis.
func (c *Controller) Process(ctx context.Context, request, sessionID string, sink events.Sink) (*models.AgentResponse, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "controller.process")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	c.logger.Info("processing request",
		zap.String("session", sessionID),
		zap.String("request", models.Truncate(request, 100)))

	plan := c.plan(ctx, request, sessionID)
	for _, step := range plan.Steps {
		events.Emit(sink, models.PlanUpdateEvent(step.ID, models.StepPending, step.Description))
	}

	waves, err := plan.Waves()
	if err != nil {
		c.logger.Error("plan cannot be scheduled, using single step", zap.Error(err))
		metrics.PlanFallbacks.WithLabelValues("cycle").Inc()
		plan = models.FallbackPlan(request)
		waves = [][]models.PlanStep{plan.Steps}
		events.Emit(sink, models.PlanUpdateEvent(plan.Steps[0].ID, models.StepPending, request))
	}
	span.SetAttributes(attribute.Int("steps", len(plan.Steps)), attribute.Int("waves", len(waves)))

	index := make(map[string]int, len(plan.Steps))
	for i, s := range plan.Steps {
		index[s.ID] = i
	}
	outcomes := make([]stepOutcome, len(plan.Steps))
	completed := make(map[string]*models.Answer)

	for n, wave := range waves {
		metrics.PlanWaves.Inc()
		c.logger.Debug("running wave", zap.Int("wave", n+1), zap.Int("steps", len(wave)))

		// A failing step must not cancel its siblings, so the group has no
		// derived context and goroutines never return an error.
		var g errgroup.Group
		for _, step := range wave {
			slot := &outcomes[index[step.ID]]
			depContext := dependencyContext(completed, step.DependsOn)
			g.Go(func() error {
				*slot = c.runStep(ctx, step, depContext, sink)
				return nil
			})
		}
		_ = g.Wait()

		for _, step := range wave {
			if o := outcomes[index[step.ID]]; o.answer != nil {
				completed[step.ID] = o.answer
			}
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("process request: %w", err)
		}
	}

	resp := synthesize(plan, outcomes)
	for _, a := range resp.Artifacts {
		events.Emit(sink, models.CodeGeneratedEvent(a))
	}
	events.Emit(sink, models.DoneEvent(resp.Answer, &resp.Metadata))

	c.memory.SetSessionContext(ctx, sessionID, sessionSummary(request, resp.Answer))

	c.logger.Info("request finished",
		zap.String("session", sessionID),
		zap.Int("steps", resp.Metadata.TotalSteps),
		zap.Int("artifacts", len(resp.Artifacts)))
	return resp, nil
}

func (c *Controller) runStep(ctx context.Context, step models.PlanStep, depContext string, sink events.Sink) stepOutcome {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "controller.step")
	defer span.End()
	span.SetAttributes(
		attribute.String("step_id", step.ID),
		attribute.String("role", string(step.AssignedRole)),
	)

	events.Emit(sink, models.PlanUpdateEvent(step.ID, models.StepRunning, step.Description))

	result := models.PlanStepResult{
		StepID:      step.ID,
		Role:        step.AssignedRole,
		Description: step.Description,
	}

	task := models.AgentTask{
		Description: step.Description,
		Context:     depContext,
		Constraints: step.Constraints,
	}
	answer, err := c.execute(ctx, step.AssignedRole, task, sink)
	if err == nil && answer == nil {
		err = errors.New("agent returned no answer")
	}
	if err == nil && step.RequiresVerification && len(answer.Artifacts) > 0 {
		answer = c.verifyAndRepair(ctx, step, answer, sink)
	}

	if err != nil {
		c.logger.Warn("step failed", zap.String("step", step.ID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result.Status = models.StepFailed
		result.Output = "error: " + err.Error()
		events.Emit(sink, models.PlanUpdateEvent(step.ID, models.StepFailed, result.Output))
		return stepOutcome{result: result}
	}

	result.Status = models.StepCompleted
	result.Output = models.Truncate(answer.Content, 500)
	events.Emit(sink, models.PlanUpdateEvent(step.ID, models.StepCompleted, step.Description))
	return stepOutcome{result: result, answer: answer}
}

// execute runs role on task and follows a single delegation hop.
func (c *Controller) execute(ctx context.Context, role models.Role, task models.AgentTask, sink events.Sink) (*models.Answer, error) {
	runner, ok := c.agents[role]
	if !ok {
		return nil, fmt.Errorf("no agent for role %s", role)
	}

	answer, err := runner.Execute(ctx, task, sink)
	var delegation *agent.DelegationError
	if !errors.As(err, &delegation) {
		return answer, err
	}

	target := delegation.Step.TargetRole
	delegate, ok := c.agents[target]
	if !ok {
		return nil, fmt.Errorf("delegation target %s not found", target)
	}
	c.logger.Info("following delegation",
		zap.String("from", string(role)),
		zap.String("to", string(target)))
	return delegate.Execute(ctx, models.TaskFromDelegation(delegation.Step.Context), sink)
}

func (c *Controller) verifyAndRepair(ctx context.Context, step models.PlanStep, answer *models.Answer, sink events.Sink) *models.Answer {
	if c.verifier == nil {
		return answer
	}
	events.Emit(sink, models.PlanUpdateEvent(step.ID, models.StepRunning, "verifying"))

	result := c.verifier.Verify(ctx, step, answer)
	if result.Passed() {
		return answer
	}
	c.logger.Info("verification failed, sending to fixer",
		zap.String("step", step.ID),
		zap.Float64("score", result.Score),
		zap.Int("issues", len(result.Issues)))

	fixer, ok := c.agents[models.RoleFixer]
	if !ok {
		return answer
	}
	fixed, err := fixer.Execute(ctx, fixTask(step, answer, result), sink)
	if err != nil || fixed == nil {
		c.logger.Warn("fixer failed, keeping original result", zap.String("step", step.ID), zap.Error(err))
		return answer
	}
	return fixed
}
