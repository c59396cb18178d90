package di

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pcapidx/internal/capturetest"
	"github.com/ssargent/pcapidx/pkg/catalog"
	"github.com/ssargent/pcapidx/pkg/config"
	"github.com/ssargent/pcapidx/pkg/index"
)

func TestNewContainer_Sidecar(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Suffix = ".idx"
	cfg.Index.Compression = "snappy"

	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Same(t, cfg, c.GetConfig())
	assert.NotNil(t, c.GetLogger())
	assert.IsType(t, &index.SidecarStore{}, c.GetStore())

	path := capturetest.WriteFixture(t, t.TempDir())
	r, err := c.GetOpener().Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, path+".idx", r.IndexLocation())
	assert.FileExists(t, path+".idx")

	families, err := c.GetRegistry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pcapidx_index_builds_total")
}

func TestNewContainer_Catalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Store = config.StoreCatalog
	cfg.Index.CatalogDir = filepath.Join(t.TempDir(), "nested", "catalog")

	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	assert.IsType(t, &catalog.Catalog{}, c.GetStore())

	path := capturetest.WriteFixture(t, t.TempDir())
	r, err := c.GetOpener().Open(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.IndexLocation(), "pebble:"))
	require.NoError(t, r.Close())

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	// The database lock is released on close
	c, err = NewContainer(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Compression = "brotli"

	c, err := NewContainer(cfg, nil)
	assert.Nil(t, c)
	assert.Error(t, err)
}
