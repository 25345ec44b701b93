package services

import (
	"context"
	"sync"
	"time"

	"ramwatch/internal/models"
)

// DefaultCacheTTL matches the default sampling interval so API reads never
// query the host more often than the loop does.
const DefaultCacheTTL = 1 * time.Second

// CachedSampler holds the last snapshot of another sampler for a TTL.
// It serves API reads; the sampling loop always samples fresh.
type CachedSampler struct {
	mu        sync.RWMutex
	source    Sampler
	ttl       time.Duration
	snapshot  *models.MemorySnapshot
	cacheTime time.Time
	now       func() time.Time
}

// NewCachedSampler wraps source. A non-positive ttl uses DefaultCacheTTL.
func NewCachedSampler(source Sampler, ttl time.Duration) *CachedSampler {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSampler{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// isCacheValid checks if cache is still valid
func (c *CachedSampler) isCacheValid() bool {
	return c.snapshot != nil && c.now().Sub(c.cacheTime) < c.ttl
}

// Sample returns the cached snapshot if valid, otherwise fetches fresh.
// Errors are not cached.
func (c *CachedSampler) Sample(ctx context.Context) (*models.MemorySnapshot, error) {
	c.mu.RLock()
	if c.isCacheValid() {
		defer c.mu.RUnlock()
		return c.snapshot, nil
	}
	c.mu.RUnlock()

	snapshot, err := c.source.Sample(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.cacheTime = c.now()
	c.mu.Unlock()

	return snapshot, nil
}

// Clear drops the cached snapshot.
func (c *CachedSampler) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}
