package am

import "github.com/teranos/dcmindex/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to dcmindex.db

	if c.Import.BufferSize < 1 {
		return errors.InvalidArgumentf("import.buffer_size must be >= 1, got %d", c.Import.BufferSize)
	}

	// 0 = flush on every event
	if c.Import.WatchDebounceMS < 0 {
		return errors.InvalidArgumentf("import.watch_debounce_ms must be >= 0, got %d", c.Import.WatchDebounceMS)
	}

	// 0 = weak references only
	if c.Cache.PinnedPayloads < 0 {
		return errors.InvalidArgumentf("cache.pinned_payloads must be >= 0, got %d", c.Cache.PinnedPayloads)
	}

	return nil
}
