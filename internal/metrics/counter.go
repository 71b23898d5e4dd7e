package metrics

import (
	"context"
	"log"
	"sync"
)

var (
	mu          sync.RWMutex
	globalStore *Store
)

// Init opens the process-wide store at path. Calling it again replaces the store.
func Init(path string) error {
	store, err := NewStore(path)
	if err != nil {
		log.Printf("metrics: failed to initialize store: %v", err)
		return err
	}

	mu.Lock()
	old := globalStore
	globalStore = store
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// RecordInvocation increments today's count for mode. Without an initialized store
// it does nothing; recording never fails the caller.
func RecordInvocation(ctx context.Context, mode Mode) {
	mu.RLock()
	store := globalStore
	mu.RUnlock()
	if store == nil {
		return
	}
	if err := store.Increment(ctx, mode); err != nil {
		log.Printf("metrics: failed to record invocation for %s: %v", mode, err)
	}
}

// Totals returns cumulative counts from the global store, or nil when not initialized.
func Totals(ctx context.Context) map[Mode]int64 {
	mu.RLock()
	store := globalStore
	mu.RUnlock()
	if store == nil {
		return nil
	}
	totals, err := store.Totals(ctx)
	if err != nil {
		log.Printf("metrics: failed to get totals: %v", err)
		return nil
	}
	return totals
}

// Close closes the global store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := globalStore.Close()
	globalStore = nil
	return err
}

// SetStoreForTesting swaps the global store; pass nil to reset.
func SetStoreForTesting(store *Store) {
	mu.Lock()
	globalStore = store
	mu.Unlock()
}
