package services

import (
	"sync"

	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// Collections holds the vector indexes loaded into memory, keyed by
// collection name. An index is replaced wholesale after a build and never
// written afterwards, so readers share it without copying.
type Collections struct {
	mu      sync.RWMutex
	indexes map[string]*vectorindex.Index
}

// NewCollections creates an empty collection cache.
func NewCollections() *Collections {
	return &Collections{indexes: make(map[string]*vectorindex.Index)}
}

// Get returns the loaded index for name.
func (c *Collections) Get(name string) (*vectorindex.Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[name]
	return idx, ok
}

// Put installs idx as the loaded index for name.
func (c *Collections) Put(name string, idx *vectorindex.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[name] = idx
}

// Drop forgets the loaded index for name.
func (c *Collections) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indexes, name)
}

// keyedMutex serialises work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
