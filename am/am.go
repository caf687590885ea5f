package am

// Config represents the dcmindex configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Import   ImportConfig   `mapstructure:"import" toml:"import" json:"import" yaml:"import"`
	Query    QueryConfig    `mapstructure:"query" toml:"query" json:"query" yaml:"query"`
	Cache    CacheConfig    `mapstructure:"cache" toml:"cache" json:"cache" yaml:"cache"`
}

// DatabaseConfig configures the SQLite index database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// ImportConfig configures the buffered import pipeline
type ImportConfig struct {
	BufferSize      int  `mapstructure:"buffer_size" toml:"buffer_size" json:"buffer_size" yaml:"buffer_size"`                         // instances per flush transaction (>= 1)
	Recurse         bool `mapstructure:"recurse" toml:"recurse" json:"recurse" yaml:"recurse"`                                         // descend into subdirectories
	WatchDebounceMS int  `mapstructure:"watch_debounce_ms" toml:"watch_debounce_ms" json:"watch_debounce_ms" yaml:"watch_debounce_ms"` // quiet period before a watch flush
}

// QueryConfig configures criteria compilation
type QueryConfig struct {
	// StrictAttributes makes unknown attributes a compile error instead of
	// silently contributing no predicate.
	StrictAttributes bool `mapstructure:"strict_attributes" toml:"strict_attributes" json:"strict_attributes" yaml:"strict_attributes"`
}

// CacheConfig configures the attribute payload cache
type CacheConfig struct {
	PinnedPayloads int `mapstructure:"pinned_payloads" toml:"pinned_payloads" json:"pinned_payloads" yaml:"pinned_payloads"` // dictionaries kept strongly reachable (0 = weak only)
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
