package queue

import (
	"sync"
	"time"
)

// listCache caches per-owner List results for a short TTL. Every mutation in
// this process invalidates the owner's entry, so reads after a write always
// see fresh rows; the TTL only bounds staleness against outside writers.
type listCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]listCacheEntry
	now     func() time.Time
}

type listCacheEntry struct {
	items   []*Item
	fetched time.Time
}

func newListCache(ttl time.Duration) *listCache {
	return &listCache{
		ttl:     ttl,
		entries: make(map[string]listCacheEntry),
		now:     time.Now,
	}
}

func (c *listCache) get(ownerID string) ([]*Item, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[ownerID]
	if !ok || c.now().Sub(entry.fetched) > c.ttl {
		delete(c.entries, ownerID)
		return nil, false
	}
	return cloneItems(entry.items), true
}

func (c *listCache) put(ownerID string, items []*Item) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ownerID] = listCacheEntry{items: cloneItems(items), fetched: c.now()}
}

func (c *listCache) invalidate(ownerID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ownerID == "" {
		c.entries = make(map[string]listCacheEntry)
		return
	}
	delete(c.entries, ownerID)
}

// cloneItems deep-copies items so cache entries never alias caller state.
func cloneItems(items []*Item) []*Item {
	cloned := make([]*Item, len(items))
	for i, item := range items {
		cp := *item
		if item.ScheduledAt != nil {
			at := *item.ScheduledAt
			cp.ScheduledAt = &at
		}
		if item.Remaining != nil {
			cp.Remaining = make([]Subtask, len(item.Remaining))
			copy(cp.Remaining, item.Remaining)
		}
		cloned[i] = &cp
	}
	return cloned
}
