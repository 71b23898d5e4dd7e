package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles calls to the wrapped provider
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps next with a token bucket. A non-positive rps disables throttling.
func NewRateLimitedClient(next Client, rps float64, burst int) Client {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GenerateEmbedding waits for a token and delegates
func (c *RateLimitedClient) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}
	return c.next.GenerateEmbedding(ctx, text)
}

// ValidateConnection delegates without consuming a token
func (c *RateLimitedClient) ValidateConnection(ctx context.Context) error {
	return c.next.ValidateConnection(ctx)
}
