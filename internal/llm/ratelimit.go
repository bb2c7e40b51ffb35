package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// RateLimited wraps a Reasoner with a shared request rate limit.
type RateLimited struct {
	next    Reasoner
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute requests per minute with the given burst.
func NewRateLimited(next Reasoner, perMinute float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), burst),
	}
}

func (r *RateLimited) Reason(ctx context.Context, system string, trajectory []models.Step, defs []tools.Definition) (models.Step, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Reason(ctx, system, trajectory, defs)
}

func (r *RateLimited) Chat(ctx context.Context, system, user string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Chat(ctx, system, user)
}

var _ Reasoner = (*RateLimited)(nil)
