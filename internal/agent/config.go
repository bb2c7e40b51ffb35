package agent

import "time"

// Config bounds one agent execution.
type Config struct {
	// MaxIterations caps reasoner calls per execution.
	MaxIterations int
	// MaxRetries is the number of recoverable errors tolerated.
	MaxRetries int
	// ToolTimeout bounds each tool call.
	ToolTimeout time.Duration
	// ConfidenceThreshold marks a Think step as confident.
	ConfidenceThreshold float64
	// TokenBudget is informational and not enforced by the loop.
	TokenBudget int
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       10,
		MaxRetries:          3,
		ToolTimeout:         30 * time.Second,
		ConfidenceThreshold: 0.7,
		TokenBudget:         50000,
	}
}

// merge returns c with every non-zero field of o applied on top.
func (c Config) merge(o Config) Config {
	if o.MaxIterations > 0 {
		c.MaxIterations = o.MaxIterations
	}
	if o.MaxRetries > 0 {
		c.MaxRetries = o.MaxRetries
	}
	if o.ToolTimeout > 0 {
		c.ToolTimeout = o.ToolTimeout
	}
	if o.ConfidenceThreshold > 0 {
		c.ConfidenceThreshold = o.ConfidenceThreshold
	}
	if o.TokenBudget > 0 {
		c.TokenBudget = o.TokenBudget
	}
	return c
}
