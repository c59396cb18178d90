package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ".offset.index", config.Index.Suffix)
	assert.Equal(t, StoreSidecar, config.Index.Store)
	assert.NotEmpty(t, config.Index.CatalogDir)
	assert.Equal(t, "none", config.Index.Compression)
	assert.False(t, config.Index.SkipSourceCheck)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)

	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{
			name:   "catalog store",
			modify: func(c *Config) { c.Index.Store = StoreCatalog },
		},
		{
			name:   "zstd compression",
			modify: func(c *Config) { c.Index.Compression = "zstd" },
		},
		{
			name:    "unknown store",
			modify:  func(c *Config) { c.Index.Store = "redis" },
			wantErr: "unknown index.store",
		},
		{
			name:    "empty suffix",
			modify:  func(c *Config) { c.Index.Suffix = "" },
			wantErr: "index.suffix",
		},
		{
			name: "catalog without directory",
			modify: func(c *Config) {
				c.Index.Store = StoreCatalog
				c.Index.CatalogDir = ""
			},
			wantErr: "index.catalog_dir",
		},
		{
			name:    "unknown compression",
			modify:  func(c *Config) { c.Index.Compression = "lz4" },
			wantErr: "index.compression",
		},
		{
			name:    "unknown level",
			modify:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		expectedConfig := &Config{
			Index: Index{
				Suffix:          ".idx",
				Store:           StoreCatalog,
				CatalogDir:      "/var/cache/pcapidx",
				Compression:     "snappy",
				SkipSourceCheck: true,
			},
			Logging: Logging{
				Level:  "debug",
				Format: "json",
			},
		}

		err := SaveConfig(expectedConfig, configPath)
		require.NoError(t, err)

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("index:\n  compression: zstd\n"), 0644))

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "zstd", loadedConfig.Index.Compression)
		assert.Equal(t, ".offset.index", loadedConfig.Index.Suffix)
		assert.Equal(t, StoreSidecar, loadedConfig.Index.Store)
		assert.Equal(t, "info", loadedConfig.Logging.Level)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("load invalid settings", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("index:\n  store: tape\n"), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config file")
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := DefaultConfig()

	err := SaveConfig(config, configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "pcapidx")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()

	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	err := os.WriteFile(existingPath, []byte("test"), 0644)
	require.NoError(t, err)

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLKeys(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	out := string(data)
	for _, key := range []string{"suffix:", "store:", "catalog_dir:", "compression:", "skip_source_check:", "level:", "format:"} {
		assert.Contains(t, out, key)
	}
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	// A regular file where a directory is needed
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err := SaveConfig(config, filepath.Join(blocker, "sub", "config.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
