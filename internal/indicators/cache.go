package indicators

import (
	"fmt"
	"sync"
)

// Cache publishes immutable rolling-statistic arrays keyed by
// (kind, window, predictor-id, extra) so that tasks sharing the same
// underlying computation don't recompute it, per spec.md §4.2's batched
// calling convention and the SPEC_FULL.md design notes ("sharded map
// keyed by (indicatorKind, window, predictorId)"). One Cache is owned
// per backtest-engine instance/run, never shared globally.
type Cache struct {
	mu    sync.RWMutex
	store map[string][]float64
}

// NewCache creates an empty, ready-to-use cache.
func NewCache() *Cache {
	return &Cache{store: make(map[string][]float64)}
}

// GetOrCompute returns the cached series for key, computing and
// publishing it via compute() on a cache miss.
func (c *Cache) GetOrCompute(key string, compute func() []float64) []float64 {
	c.mu.RLock()
	if v, ok := c.store[key]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.store[key]; ok {
		return v
	}
	v := compute()
	c.store[key] = v
	return v
}

// Key builds a cache key from a kind tag and variadic components.
func Key(kind string, parts ...any) string {
	key := kind
	for _, p := range parts {
		key += fmt.Sprintf("|%v", p)
	}
	return key
}
