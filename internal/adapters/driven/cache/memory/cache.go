// Package memory provides an in-process expiring LRU embedding cache.
package memory

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Default sizing.
const (
	DefaultSize = 1024
	DefaultTTL  = time.Hour
)

// Cache holds up to size vectors, each for at most ttl.
type Cache struct {
	lru *expirable.LRU[string, []float32]
}

// New creates a cache. Non-positive values use the defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

// Get returns a copy of the cached vector.
func (c *Cache) Get(_ context.Context, key string) ([]float32, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores a copy of vector.
func (c *Cache) Set(_ context.Context, key string, vector []float32) error {
	c.lru.Add(key, slices.Clone(vector))
	return nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Close drops every entry.
func (c *Cache) Close() error {
	c.lru.Purge()
	return nil
}
