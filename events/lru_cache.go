package events

import "container/list"

// lruCache remembers the most recently added keys, up to a fixed capacity, evicting the
// least-recently-used key when full. A fixed-capacity ordered set has no third-party equivalent
// among this module's dependencies, so it is hand-rolled over container/list rather than reaching
// for a library.
type lruCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// add records key as seen, returning true if it was already known. A capacity of zero means
// nothing is ever remembered, so every add returns false.
func (c *lruCache) add(key string) bool {
	if c.capacity <= 0 {
		return false
	}
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return true
	}
	el := c.order.PushFront(key)
	c.entries[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(string))
		}
	}
	return false
}

// clear discards all remembered keys, called periodically by the dispatcher's user-keys-flush
// ticker so that every user is re-indexed from time to time.
func (c *lruCache) clear() {
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
}
