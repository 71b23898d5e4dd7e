package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/embedding"
)

// pinger is satisfied by *atlas.Client.
type pinger interface {
	Ping(ctx context.Context) error
}

// runPreflight checks that the cluster answers and the embedding provider returns a
// vector. Both checks always run so one report covers every broken dependency.
func runPreflight(ctx context.Context, out *console.Console, store pinger, embedder embedding.Client) error {
	out.Plain("=== Connectivity Check ===")

	var errs []error
	if err := store.Ping(ctx); err != nil {
		out.Purple("❌ MongoDB Atlas: %v", err)
		errs = append(errs, err)
	} else {
		out.Green("✅ MongoDB Atlas: reachable")
	}

	if err := embedder.ValidateConnection(ctx); err != nil {
		out.Purple("❌ Embedding provider: %v", err)
		errs = append(errs, err)
	} else {
		out.Green("✅ Embedding provider: reachable")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	return nil
}
