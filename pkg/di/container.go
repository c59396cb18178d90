// Package di provides dependency injection container
package di

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/pcapidx/pkg/catalog"
	"github.com/ssargent/pcapidx/pkg/codec"
	"github.com/ssargent/pcapidx/pkg/config"
	"github.com/ssargent/pcapidx/pkg/index"
	"github.com/ssargent/pcapidx/pkg/logging"
	"github.com/ssargent/pcapidx/pkg/pcapindex"
)

// Container holds all the dependencies for the application
type Container struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *pcapindex.Metrics
	store    index.Store
	catalog  *catalog.Catalog
	opener   *pcapindex.Opener
}

// NewContainer wires a store, opener and metrics registry from cfg
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = logging.Default(logger)

	compression, err := codec.ParseCompression(cfg.Index.Compression)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	c.metrics = pcapindex.NewMetrics(c.registry)

	switch cfg.Index.Store {
	case config.StoreCatalog:
		if err := os.MkdirAll(cfg.Index.CatalogDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create catalog dir: %w", err)
		}
		c.catalog, err = catalog.Open(catalog.Config{
			Dir:         cfg.Index.CatalogDir,
			Compression: compression,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		c.store = c.catalog
	default:
		c.store = index.NewSidecarStore(index.SidecarConfig{
			Suffix:      cfg.Index.Suffix,
			Compression: compression,
		})
	}

	c.opener = pcapindex.NewOpener(pcapindex.OpenerConfig{
		Store:           c.store,
		Compression:     compression,
		SkipSourceCheck: cfg.Index.SkipSourceCheck,
		Logger:          logger,
		Metrics:         c.metrics,
	})

	return c, nil
}

// GetConfig returns the configuration the container was built from
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the application logger
func (c *Container) GetLogger() *slog.Logger {
	return c.logger
}

// GetRegistry returns the metrics registry
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetStore returns the offset table store
func (c *Container) GetStore() index.Store {
	return c.store
}

// GetOpener returns the capture opener
func (c *Container) GetOpener() *pcapindex.Opener {
	return c.opener
}

// Close releases the catalog, if one was opened
func (c *Container) Close() error {
	if c.catalog == nil {
		return nil
	}
	err := c.catalog.Close()
	c.catalog = nil
	return err
}
