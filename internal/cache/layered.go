package cache

import (
	"errors"
	"time"
)

// LayeredCache checks memory before disk and writes through to both
type LayeredCache struct {
	memory    *MemoryCache
	memoryTTL time.Duration
	disk      *DiskCache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		memoryTTL: memoryTTL,
		disk:      NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory first. A disk hit is promoted to memory for the
// smaller of the memory TTL and the entry's remaining lifetime.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	val, found := c.disk.Get(key)
	if !found {
		return nil, false
	}

	ttl := c.memoryTTL
	if exp, ok := c.disk.Expiry(key); ok {
		if remaining := time.Until(exp); remaining > 0 && (ttl <= 0 || remaining < ttl) {
			ttl = remaining
		}
	}
	_ = c.memory.Set(key, val, ttl)
	return val, true
}

// Set stores a value in both caches
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	return errors.Join(c.memory.Set(key, value, ttl), c.disk.Set(key, value, ttl))
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
