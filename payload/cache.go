// Package payload keeps parsed attribute dictionaries out of memory until
// they are needed.
//
// Each instance owns a Handle holding a weak reference to its dictionary.
// The garbage collector may reclaim the dictionary at any time; the next Get
// re-reads it from the file. A store-wide Cache pins the most recently used
// dictionaries with strong references so hot instances survive collection.
package payload

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/source"
)

// entry is the unit both the weak reference and the pin cache point at.
type entry struct {
	dict source.Dictionary
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Loads    int64 `json:"loads"`
	Hits     int64 `json:"hits"`
	Failures int64 `json:"failures"`
	Pinned   int   `json:"pinned"`
}

// Cache is the shared pin set and counter sink for handles.
// A nil *Cache is valid: handles still work, nothing is pinned or counted.
type Cache struct {
	pins   *lru.Cache[string, *entry]
	logger *zap.SugaredLogger

	loads    atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

// NewCache creates a cache pinning at most capacity dictionaries.
// Capacity 0 disables pinning; negative capacity is invalid.
func NewCache(capacity int, log *zap.SugaredLogger) (*Cache, error) {
	if capacity < 0 {
		return nil, errors.InvalidArgumentf("payload cache capacity must be >= 0, got %d", capacity)
	}
	c := &Cache{logger: logger.OrNop(log)}
	if capacity > 0 {
		pins, err := lru.New[string, *entry](capacity)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create payload pin cache")
		}
		c.pins = pins
	}
	return c, nil
}

// NewHandle creates a handle for the dictionary identified by key, loaded
// from path by load.
func (c *Cache) NewHandle(key, path string, load Loader) *Handle {
	var log *zap.SugaredLogger
	if c != nil {
		log = c.logger
	}
	return &Handle{
		key:    key,
		path:   path,
		load:   load,
		cache:  c,
		logger: logger.OrNop(log),
	}
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	s := Stats{
		Loads:    c.loads.Load(),
		Hits:     c.hits.Load(),
		Failures: c.failures.Load(),
	}
	if c.pins != nil {
		s.Pinned = c.pins.Len()
	}
	return s
}

// Purge drops every pin. Dictionaries remain reachable only through live
// callers and may then be reclaimed.
func (c *Cache) Purge() {
	if c == nil || c.pins == nil {
		return
	}
	c.pins.Purge()
}

func (c *Cache) pin(key string, e *entry) {
	if c == nil || c.pins == nil {
		return
	}
	c.pins.Add(key, e)
}

func (c *Cache) unpin(key string) {
	if c == nil || c.pins == nil {
		return
	}
	c.pins.Remove(key)
}

func (c *Cache) recordLoad() {
	if c != nil {
		c.loads.Add(1)
	}
}

func (c *Cache) recordHit() {
	if c != nil {
		c.hits.Add(1)
	}
}

func (c *Cache) recordFailure() {
	if c != nil {
		c.failures.Add(1)
	}
}
