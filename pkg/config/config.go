/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/pcapidx/pkg/codec"
	"github.com/ssargent/pcapidx/pkg/index"
	"github.com/ssargent/pcapidx/pkg/logging"
)

// Store backends
const (
	StoreSidecar = "sidecar"
	StoreCatalog = "catalog"
)

// Config represents the pcapidx configuration
type Config struct {
	Index   Index   `yaml:"index"`
	Logging Logging `yaml:"logging"`
}

// Index contains offset table configuration
type Index struct {
	Suffix          string `yaml:"suffix"`
	Store           string `yaml:"store"`
	CatalogDir      string `yaml:"catalog_dir"`
	Compression     string `yaml:"compression"`
	SkipSourceCheck bool   `yaml:"skip_source_check"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Index: Index{
			Suffix:      index.DefaultSuffix,
			Store:       StoreSidecar,
			CatalogDir:  defaultCatalogDir(),
			Compression: codec.CompressionNone.String(),
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that every setting names a known value
func (c *Config) Validate() error {
	switch c.Index.Store {
	case StoreSidecar:
		if c.Index.Suffix == "" {
			return fmt.Errorf("index.suffix must not be empty")
		}
	case StoreCatalog:
		if c.Index.CatalogDir == "" {
			return fmt.Errorf("index.catalog_dir is required for the %s store", StoreCatalog)
		}
	default:
		return fmt.Errorf("unknown index.store %q (want %s or %s)", c.Index.Store, StoreSidecar, StoreCatalog)
	}

	if _, err := codec.ParseCompression(c.Index.Compression); err != nil {
		return fmt.Errorf("index.compression: %w", err)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q (want text or json)", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Settings missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./pcapidx.yaml"
	}

	// For Linux/macOS, use ~/.config/pcapidx/config.yaml
	configDir := filepath.Join(homeDir, ".config", "pcapidx")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

func defaultCatalogDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "./pcapidx-catalog"
	}
	return filepath.Join(cacheDir, "pcapidx", "catalog")
}
