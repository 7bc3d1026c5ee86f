// Package di provides dependency injection container
package di

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/ssargent/utgallery/pkg/api" //nolint:depguard
	"github.com/ssargent/utgallery/pkg/config"
	"github.com/ssargent/utgallery/pkg/logging"
	"github.com/ssargent/utgallery/pkg/storage"
	"github.com/ssargent/utgallery/pkg/store"
)

// Container holds all the dependencies for the application. The gallery
// registry and the catalog are opened on first use and closed by Close.
type Container struct {
	config        *config.Config
	logger        zerolog.Logger
	serverFactory api.ServerFactory

	mutex    sync.Mutex
	registry *store.Registry
	catalog  *storage.Catalog
}

// NewContainer creates a new dependency injection container with the
// default configuration and a silent logger
func NewContainer() *Container {
	return &Container{
		config:        config.DefaultConfig(),
		logger:        zerolog.Nop(),
		serverFactory: api.NewServerFactory(),
	}
}

// Configure replaces the configuration and logger. It must be called before
// the registry or catalog is first used.
func (c *Container) Configure(cfg *config.Config, logger zerolog.Logger) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.config = cfg
	c.logger = logger
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Sink returns a message sink writing to the application logger
func (c *Container) Sink() logging.Sink {
	return logging.NewSink(c.logger)
}

// ScannerConfig returns scanner settings from the configuration
func (c *Container) ScannerConfig() store.ScannerConfig {
	return store.ScannerConfig{
		Workers:    c.config.Scan.Workers,
		Streaming:  c.config.Scan.Streaming,
		BufferSize: c.config.Scan.BufferSize,
		Sink:       c.Sink(),
	}
}

// GalleryConfig returns gallery settings for the file at path
func (c *Container) GalleryConfig(path string) store.GalleryConfig {
	return store.GalleryConfig{
		FilePath:      path,
		FsyncInterval: c.config.Writer.FsyncInterval,
		BufferSize:    c.config.Writer.BufferSize,
		Scanner:       c.ScannerConfig(),
	}
}

// Registry returns the gallery registry rooted at the configured data directory
func (c *Container) Registry() (*store.Registry, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.registry == nil {
		registry, err := store.NewRegistry(c.config.GalleryDir(), c.GalleryConfig(""))
		if err != nil {
			return nil, err
		}
		c.registry = registry
	}
	return c.registry, nil
}

// Catalog returns the template catalog
func (c *Container) Catalog() (*storage.Catalog, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.catalog == nil {
		catalog, err := storage.OpenCatalog(c.config.CatalogDir())
		if err != nil {
			return nil, err
		}
		c.catalog = catalog
	}
	return c.catalog, nil
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// Close releases the registry and catalog if they were opened
func (c *Container) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var errs []error
	if c.registry != nil {
		if err := c.registry.Close(); err != nil {
			errs = append(errs, err)
		}
		c.registry = nil
	}
	if c.catalog != nil {
		if err := c.catalog.Close(); err != nil {
			errs = append(errs, err)
		}
		c.catalog = nil
	}
	return errors.Join(errs...)
}
