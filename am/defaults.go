package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values, also used when a zero value reaches a consumer
const (
	DefaultDatabasePath    = "dcmindex.db"
	DefaultBufferSize      = 256
	DefaultWatchDebounceMS = 500
	DefaultPinnedPayloads  = 128
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("import.buffer_size", DefaultBufferSize)
	v.SetDefault("import.recurse", true)
	v.SetDefault("import.watch_debounce_ms", DefaultWatchDebounceMS)

	v.SetDefault("query.strict_attributes", false)

	v.SetDefault("cache.pinned_payloads", DefaultPinnedPayloads)
}

// BindEnvVars explicitly binds settings commonly overridden per shell
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "DCMINDEX_DATABASE_PATH")
	v.BindEnv("import.buffer_size", "DCMINDEX_IMPORT_BUFFER_SIZE")
	v.BindEnv("query.strict_attributes", "DCMINDEX_QUERY_STRICT_ATTRIBUTES")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Import: {BufferSize: %d, Recurse: %t}, Query: {Strict: %t}, Cache: {Pinned: %d}}",
		c.GetDatabasePath(), c.Import.BufferSize, c.Import.Recurse, c.Query.StrictAttributes, c.Cache.PinnedPayloads)
}
