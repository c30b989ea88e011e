package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/cgraph/internal/ctxlog"
)

type cacheKey struct {
	kernel *Kernel
	sig    string
}

// CacheStats counts memo lookups.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// Cache memoizes compiled kernels per (kernel, signature key). Entries live
// as long as the cache.
type Cache struct {
	compiler Compiler

	mu      sync.Mutex
	entries map[cacheKey]Compiled
	hits    int
	misses  int
}

// NewCache returns an empty cache in front of compiler.
func NewCache(compiler Compiler) *Cache {
	return &Cache{compiler: compiler, entries: make(map[cacheKey]Compiled)}
}

// Get returns the compiled kernel for sig, compiling it on first use.
// A failed compilation is not memoized.
func (c *Cache) Get(ctx context.Context, k *Kernel, sig Signature) (Compiled, error) {
	key := cacheKey{kernel: k, sig: sig.Key()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if compiled, ok := c.entries[key]; ok {
		c.hits++
		return compiled, nil
	}
	c.misses++

	placeholders, err := Placeholders(sig)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", k.Name, err)
	}
	compiled, err := c.compiler.Compile(ctx, k, sig, placeholders)
	if err != nil {
		return nil, err
	}
	c.entries[key] = compiled
	ctxlog.FromContext(ctx).Debug("Kernel cached.", "kernel", k.Name, "signature", key.sig, "entries", len(c.entries))
	return compiled, nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
