package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pmadusud/salesagent/internal/atlas"
	appconfig "github.com/pmadusud/salesagent/internal/config"
	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/pmadusud/salesagent/internal/embedding/provider"
	"github.com/pmadusud/salesagent/internal/search"
	"github.com/pmadusud/salesagent/internal/types"
)

// searchStack owns the Atlas client behind the search service.
type searchStack struct {
	store    *atlas.Client
	embedder embedding.Client
	service  *search.HybridSearchService
}

func newSearchStack(ctx context.Context, cfg *types.Config) (*searchStack, error) {
	if err := appconfig.ValidateSearch(cfg); err != nil {
		return nil, err
	}

	store, err := atlas.NewClient(atlas.NewConfigFromTypes(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Atlas client: %w", err)
	}

	embedder, err := provider.New(ctx, cfg)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	service, err := search.NewHybridSearchService(cfg, embedder, store)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	return &searchStack{store: store, embedder: embedder, service: service}, nil
}

// Check runs the connectivity preflight against the stack's store and embedder.
func (s *searchStack) Check(ctx context.Context, out *console.Console) error {
	return runPreflight(ctx, out, s.store, s.embedder)
}

func (s *searchStack) Close() {
	if s == nil {
		return
	}
	closeStore(s.store)
}

func closeStore(store *atlas.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		log.Printf("Warning: failed to close MongoDB client: %v", err)
	}
}
