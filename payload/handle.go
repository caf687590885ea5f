package payload

import (
	"sync"
	"weak"

	"go.uber.org/zap"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/source"
)

// Loader re-derives a dictionary, typically by re-reading the file.
type Loader func() (source.Dictionary, error)

// Handle is a reclaimable reference to one instance's dictionary.
//
// Re-derivation is idempotent, so a concurrent reclaim between two Gets only
// costs an extra read.
type Handle struct {
	key    string
	path   string
	load   Loader
	cache  *Cache
	logger *zap.SugaredLogger

	mu  sync.Mutex
	ref weak.Pointer[entry]
}

// Seed installs an already-parsed dictionary, avoiding a second read right
// after import.
func (h *Handle) Seed(d source.Dictionary) {
	if d == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e := &entry{dict: d}
	h.ref = weak.Make(e)
	h.cache.pin(h.key, e)
}

// Get returns the dictionary, re-deriving it when absent.
// A failed re-derivation is logged and reported as (nil, false).
func (h *Handle) Get() (source.Dictionary, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e := h.ref.Value(); e != nil {
		h.cache.recordHit()
		h.cache.pin(h.key, e)
		return e.dict, true
	}

	if h.load == nil {
		h.cache.recordFailure()
		return nil, false
	}

	d, err := h.load()
	if err == nil && d == nil {
		err = errors.New("loader returned no dictionary")
	}
	if err != nil {
		h.cache.recordFailure()
		h.logger.Warnw("Payload unavailable",
			logger.FieldPath, h.path,
			logger.FieldInstanceUID, h.key,
			logger.FieldError, errors.WrapPayload(err, h.path).Error(),
		)
		return nil, false
	}

	h.cache.recordLoad()
	e := &entry{dict: d}
	h.ref = weak.Make(e)
	h.cache.pin(h.key, e)
	return d, true
}

// Compact drops the cached dictionary. The next Get re-derives it.
func (h *Handle) Compact() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ref = weak.Pointer[entry]{}
	h.cache.unpin(h.key)
}

// Resident reports whether the dictionary is currently in memory.
// The answer can go stale as soon as it is returned.
func (h *Handle) Resident() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ref.Value() != nil
}

// Path returns the file the dictionary is derived from.
func (h *Handle) Path() string {
	return h.path
}
