// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"sync"
	"time"

	"github.com/acmlab/bmcfleet/lib/clock"
)

// Cache maps resource paths to the payload fetched for them. There is
// no expiry: entries live until invalidated. The client invalidates on
// every write to a path, and volatile resources are never cached.
type Cache struct {
	clock   clock.Clock
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	fetched  time.Time
	resource Resource
}

// NewCache creates an empty cache stamping entries with c.
func NewCache(c clock.Clock) *Cache {
	return &Cache{clock: c, entries: make(map[string]cacheEntry)}
}

// Get returns the cached resource for path.
func (c *Cache) Get(path string) (Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	return entry.resource, ok
}

// Fetched returns when the cached entry for path was stored.
func (c *Cache) Fetched(path string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	return entry.fetched, ok
}

// Put stores resource under path, replacing any previous entry.
func (c *Cache) Put(path string, resource Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{fetched: c.clock.Now(), resource: resource}
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns the cached paths in no particular order.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.entries))
	for path := range c.entries {
		paths = append(paths, path)
	}
	return paths
}
