package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/api"
	"github.com/ssargent/utgallery/pkg/config"
)

func TestContainer_Defaults(t *testing.T) {
	c := NewContainer()

	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.NotNil(t, c.GetServerFactory())
	assert.NoError(t, c.Close())
}

func TestContainer_GalleryConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.Workers = 3
	cfg.Scan.Streaming = true
	cfg.Writer.FsyncInterval = 5 * time.Second

	c := NewContainer()
	c.Configure(cfg, zerolog.Nop())

	gc := c.GalleryConfig("/tmp/x.utg")
	assert.Equal(t, "/tmp/x.utg", gc.FilePath)
	assert.Equal(t, 5*time.Second, gc.FsyncInterval)
	assert.Equal(t, 3, gc.Scanner.Workers)
	assert.True(t, gc.Scanner.Streaming)
	assert.NotNil(t, gc.Scanner.Sink)
}

func TestContainer_RegistryAndCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	c := NewContainer()
	c.Configure(cfg, zerolog.Nop())

	registry, err := c.Registry()
	require.NoError(t, err)
	again, err := c.Registry()
	require.NoError(t, err)
	assert.Same(t, registry, again)
	assert.Equal(t, cfg.GalleryDir(), registry.DataDir())

	catalog, err := c.Catalog()
	require.NoError(t, err)
	again2, err := c.Catalog()
	require.NoError(t, err)
	assert.Same(t, catalog, again2)

	_, err = os.Stat(filepath.Join(cfg.DataDir, "catalog"))
	assert.NoError(t, err)

	require.NoError(t, c.Close())

	// Reopens after Close
	_, err = c.Catalog()
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

type fakeServerFactory struct{ api.ServerFactory }

func TestContainer_SetServerFactory(t *testing.T) {
	c := NewContainer()
	fake := &fakeServerFactory{}
	c.SetServerFactory(fake)
	assert.Same(t, fake, c.GetServerFactory())
}
