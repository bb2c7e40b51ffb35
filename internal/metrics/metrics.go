// Package metrics provides Prometheus collectors for agents, verification
// and the delivery pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kai"

var (
	// AgentIterations counts reasoning iterations.
	// Labels: role
	AgentIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "iterations_total",
			Help:      "Total number of reasoning iterations by role",
		},
		[]string{"role"},
	)

	// AgentRuns counts agent executions by how they ended.
	// Labels: role, outcome (answer, delegated, error, max_iterations, max_retries)
	AgentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Total number of agent executions by outcome",
		},
		[]string{"role", "outcome"},
	)

	// ToolCalls counts tool invocations.
	// Labels: tool, outcome (success, failure, unknown, panic, timeout)
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool calls by outcome",
		},
		[]string{"tool", "outcome"},
	)

	// ToolDuration tracks tool execution time.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "Duration of tool calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// VerificationResults counts verification outcomes.
	// Labels: result (passed, failed)
	VerificationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "results_total",
			Help:      "Total number of verification gate results",
		},
		[]string{"result"},
	)

	// JudgeFallbacks counts judge responses that could not be used and
	// were replaced by the default score.
	JudgeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "judge_fallbacks_total",
			Help:      "Total number of judge calls that fell back to the default score",
		},
	)

	// PlanWaves counts executed plan waves.
	PlanWaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "plan_waves_total",
			Help:      "Total number of plan waves executed",
		},
	)

	// PlanFallbacks counts requests that used the single-step plan.
	// Labels: reason (parse, invalid, cycle)
	PlanFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "plan_fallbacks_total",
			Help:      "Total number of plans replaced by the fallback plan",
		},
		[]string{"reason"},
	)

	// LLMTokens counts tokens reported by model providers.
	// Labels: provider, direction (input, output)
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total number of tokens consumed by provider and direction",
		},
		[]string{"provider", "direction"},
	)

	// TaskTransitions counts task status changes.
	// Labels: to
	TaskTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "task_transitions_total",
			Help:      "Total number of task transitions by destination status",
		},
		[]string{"to"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
