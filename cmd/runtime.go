package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	appconfig "github.com/pmadusud/salesagent/internal/config"
	"github.com/pmadusud/salesagent/internal/metrics"
	"github.com/pmadusud/salesagent/internal/observability"
	"github.com/pmadusud/salesagent/internal/types"
)

// loadRuntime loads configuration and starts telemetry and invocation stats. The returned
// func flushes and closes both and is safe to call once the command finishes.
func loadRuntime() (*types.Config, func(), error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdownTelemetry, err := observability.Init(cfg)
	if err != nil {
		log.Printf("Warning: telemetry disabled: %v", err)
		shutdownTelemetry = nil
	}

	if err := metrics.Init(cfg.StatsDBPath); err != nil {
		log.Printf("Warning: invocation stats disabled: %v", err)
	} else if err := metrics.InitOTelMetrics(); err != nil {
		log.Printf("Warning: failed to register stats gauge: %v", err)
	}

	cleanup := func() {
		if shutdownTelemetry != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				log.Printf("Warning: telemetry shutdown failed: %v", err)
			}
		}
		if err := metrics.Close(); err != nil {
			log.Printf("Warning: failed to close stats store: %v", err)
		}
	}
	return cfg, cleanup, nil
}
