package generation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedGenerator throttles calls to the wrapped generator with a token
// bucket shared by every worker.
type RateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator wraps next so that at most requestsPerMinute calls
// start per minute. A non-positive rate returns next unchanged.
func NewRateLimitedGenerator(next Generator, requestsPerMinute int) Generator {
	if requestsPerMinute <= 0 {
		return next
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// GenerateCourse waits for a token, then delegates.
func (g *RateLimitedGenerator) GenerateCourse(ctx context.Context, prompt string) (*CourseDraft, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransientFailure, err)
	}
	return g.next.GenerateCourse(ctx, prompt)
}
