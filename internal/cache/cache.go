package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is an in-process TTL map. Expired entries are dropped lazily on read.
//
// Keys are grouped under a prefix that carries a generation counter. A writer
// reads the generation before loading the value and hands it back to
// SetIfGeneration, so a value loaded before an invalidation is never stored
// after it.
type Cache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	m    map[string]entry
	gens map[string]uint64
	now  func() time.Time
}

type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl:  ttl,
		m:    make(map[string]entry),
		gens: make(map[string]uint64),
		now:  time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed it
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

// Generation returns the current counter for prefix.
func (c *Cache) Generation(prefix string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[prefix]
}

// SetIfGeneration stores val under prefix+key unless prefix was invalidated
// after gen was read. It reports whether the value was stored.
func (c *Cache) SetIfGeneration(prefix string, gen uint64, key string, val any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[prefix] != gen {
		return false
	}

	c.m[prefix+key] = entry{val: val, exp: c.now().Add(c.ttl)}
	return true
}

// InvalidatePrefix bumps the generation of prefix and removes every key
// starting with it. It returns how many keys were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[prefix]++

	n := 0
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
