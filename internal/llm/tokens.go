package llm

import (
	"sync"

	"github.com/ShayCichocki/kai/internal/metrics"
)

// Usage accumulates token counts reported by a provider and mirrors them
// into the kai_llm_tokens_total counter.
type Usage struct {
	provider string

	mu     sync.Mutex
	input  int64
	output int64
	calls  int
}

func newUsage(provider string) *Usage {
	return &Usage{provider: provider}
}

// Record adds the token counts of one response.
func (u *Usage) Record(input, output int64) {
	u.mu.Lock()
	u.input += input
	u.output += output
	u.calls++
	u.mu.Unlock()

	metrics.LLMTokens.WithLabelValues(u.provider, "input").Add(float64(input))
	metrics.LLMTokens.WithLabelValues(u.provider, "output").Add(float64(output))
}

// Total returns input and output tokens recorded so far.
func (u *Usage) Total() (input, output int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.input, u.output
}

// Calls returns how many responses were recorded.
func (u *Usage) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
