package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dcmindex/errors"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultBufferSize, cfg.Import.BufferSize)
	assert.True(t, cfg.Import.Recurse)
	assert.Equal(t, DefaultWatchDebounceMS, cfg.Import.WatchDebounceMS)
	assert.False(t, cfg.Query.StrictAttributes)
	assert.Equal(t, DefaultPinnedPayloads, cfg.Cache.PinnedPayloads)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
[database]
path = "/srv/index.db"

[import]
buffer_size = 16
recurse = false

[query]
strict_attributes = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/index.db", cfg.GetDatabasePath())
	assert.Equal(t, 16, cfg.Import.BufferSize)
	assert.False(t, cfg.Import.Recurse)
	assert.True(t, cfg.Query.StrictAttributes)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultPinnedPayloads, cfg.Cache.PinnedPayloads)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.toml")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Import: ImportConfig{BufferSize: 1, WatchDebounceMS: 0},
			Cache:  CacheConfig{PinnedPayloads: 0},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "minimal valid", mutate: func(c *Config) {}},
		{name: "zero buffer", mutate: func(c *Config) { c.Import.BufferSize = 0 }, wantErr: "import.buffer_size"},
		{name: "negative buffer", mutate: func(c *Config) { c.Import.BufferSize = -4 }, wantErr: "import.buffer_size"},
		{name: "negative debounce", mutate: func(c *Config) { c.Import.WatchDebounceMS = -1 }, wantErr: "watch_debounce_ms"},
		{name: "negative pinned", mutate: func(c *Config) { c.Cache.PinnedPayloads = -1 }, wantErr: "pinned_payloads"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsInvalidArgument(err))
		})
	}
}

func TestGetDatabasePath_Fallback(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, DefaultDatabasePath, cfg.GetDatabasePath())
	assert.Contains(t, cfg.String(), DefaultDatabasePath)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("DCMINDEX_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("DCMINDEX_IMPORT_BUFFER_SIZE", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Import.BufferSize)

	path, err := GetDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", path)
}
