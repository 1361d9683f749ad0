package cache

import (
	"github.com/outofforest/graphstore/blocks"
)

// Cache keeps values resident in memory, keyed by their address, so resolving the same address twice returns
// the same value. Entries live as long as the cache.
type Cache struct {
	entries map[blocks.BlockAddress]any
	hits    uint64
	misses  uint64
}

// New creates new cache.
func New() *Cache {
	return &Cache{
		entries: map[blocks.BlockAddress]any{},
	}
}

// Get returns value resident under the address.
func (c *Cache) Get(address blocks.BlockAddress) (any, bool) {
	v, exists := c.entries[address]
	if exists {
		c.hits++
	} else {
		c.misses++
	}
	return v, exists
}

// Set makes value resident under the address.
func (c *Cache) Set(address blocks.BlockAddress, v any) {
	c.entries[address] = v
}

// Len returns the number of resident values.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns the number of hits and misses.
func (c *Cache) Stats() (uint64, uint64) {
	return c.hits, c.misses
}
