package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/pkg/models"
)

// MaxPlanSteps is the step limit requested in the planner prompt. Longer
// plans still run.
const MaxPlanSteps = 6

const plannerSystem = "You are a task planning expert. Return only valid JSON."

// PlannerPrompt is the user prompt sent to the planner.
func PlannerPrompt(request string, roles []models.Role, session string) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s\n\n", request)
	if session != "" {
		fmt.Fprintf(&b, "Earlier in this session:\n%s\n\n", session)
	}
	fmt.Fprintf(&b, "Available agents: %s\n\n", strings.Join(names, ", "))
	b.WriteString(`Create an execution plan in JSON. Return only the JSON, nothing else.
{
  "steps": [
    {
      "id": "step_1",
      "description": "What the step must do",
      "assignedAgent": "CODE_WRITER",
      "dependsOn": [],
      "requiresVerification": true,
      "constraints": ["Go", "standard library only"]
    }
  ]
}

Rules:
`)
	fmt.Fprintf(&b, "- At least 1 and at most %d steps.\n", MaxPlanSteps)
	b.WriteString(`- Declare dependencies correctly with dependsOn.
- RESEARCHER gathers information in early steps.
- CODE_WRITER writes code.
- REVIEWER reviews code.
- FIXER fixes defects.
- TESTER writes tests.
`)
	return b.String()
}

// ParsePlan extracts and validates a plan from a planner reply.
func ParsePlan(text string) (models.ExecutionPlan, error) {
	var plan models.ExecutionPlan
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &plan); err != nil {
		return plan, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

// plan asks the planner for a plan and falls back to a single step when
// the reply is unusable. Cycles are detected later, by Waves.
func (c *Controller) plan(ctx context.Context, request, sessionID string) models.ExecutionPlan {
	if c.planner == nil {
		return c.fallback(request, "unavailable", nil)
	}

	prompt := PlannerPrompt(request, c.Roles(), c.memory.SessionContext(ctx, sessionID))
	reply, err := c.planner.Chat(ctx, plannerSystem, prompt)
	if err != nil {
		return c.fallback(request, "chat", err)
	}

	plan, err := ParsePlan(reply)
	if err != nil {
		c.logger.Debug("unparsable plan", zap.String("reply", models.Truncate(reply, 300)))
		return c.fallback(request, "parse", err)
	}
	if err := plan.Validate(); err != nil {
		return c.fallback(request, "invalid", err)
	}
	if len(plan.Steps) > MaxPlanSteps {
		c.logger.Warn("plan exceeds requested step count", zap.Int("steps", len(plan.Steps)), zap.Int("max", MaxPlanSteps))
	}

	c.logger.Info("plan created", zap.Int("steps", len(plan.Steps)))
	return plan
}

func (c *Controller) fallback(request, reason string, err error) models.ExecutionPlan {
	metrics.PlanFallbacks.WithLabelValues(reason).Inc()
	c.logger.Warn("planning failed, using single step plan", zap.String("reason", reason), zap.Error(err))
	return models.FallbackPlan(request)
}
