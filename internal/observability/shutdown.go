package observability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const defaultShutdownTimeout = 5 * time.Second

// ShutdownFunc flushes and stops the telemetry providers.
type ShutdownFunc func(context.Context) error

// provider is satisfied by both the SDK tracer and meter providers.
type provider interface {
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type namedProvider struct {
	name string
	p    provider
}

// newShutdownFunc flushes every provider first, then shuts them down in order. A query
// command exits right after one search, so spans still queued in the batcher must be
// exported before the exporters close.
func newShutdownFunc(providers ...namedProvider) ShutdownFunc {
	return func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
		}

		var errs []error
		for _, np := range providers {
			if np.p == nil {
				continue
			}
			if err := np.p.ForceFlush(ctx); err != nil {
				log.Printf("observability: %s flush failed: %v", np.name, err)
				errs = append(errs, fmt.Errorf("flush %s: %w", np.name, err))
			}
		}
		for _, np := range providers {
			if np.p == nil {
				continue
			}
			if err := np.p.Shutdown(ctx); err != nil {
				log.Printf("observability: %s shutdown failed: %v", np.name, err)
				errs = append(errs, fmt.Errorf("shutdown %s: %w", np.name, err))
			}
		}
		return errors.Join(errs...)
	}
}
