// Package catalog keeps offset tables in a pebble database instead of next to
// the captures. It is meant for captures on read-only media, where a sidecar
// cannot be written.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/ssargent/pcapidx/pkg/codec"
	"github.com/ssargent/pcapidx/pkg/index"
	"github.com/ssargent/pcapidx/pkg/logging"
)

const keyPrefix = "offsets/"

// Config holds configuration for the catalog
type Config struct {
	Dir         string            // Directory of the pebble database
	Compression codec.Compression // Body compression for saved tables
	Logger      *slog.Logger
}

// Catalog is an index.Store backed by pebble, keyed by absolute capture path.
type Catalog struct {
	db     *pebble.DB
	dir    string
	codec  *codec.TableCodec
	config Config
	logger *slog.Logger
}

var _ index.Store = (*Catalog)(nil)

// Open opens or creates the catalog database in config.Dir
func Open(config Config) (*Catalog, error) {
	db, err := pebble.Open(config.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	logger := logging.Default(config.Logger).With("component", "catalog")
	logger.Debug("catalog opened", "dir", config.Dir)

	return &Catalog{
		db:     db,
		dir:    config.Dir,
		codec:  codec.NewTableCodec(),
		config: config,
		logger: logger,
	}, nil
}

// Location describes the catalog entry for source
func (c *Catalog) Location(source string) string {
	return fmt.Sprintf("pebble:%s#%s", c.dir, absPath(source))
}

// Load returns the stored table for source
func (c *Catalog) Load(source string) (*index.Index, error) {
	data, closer, err := c.db.Get(key(source))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("catalog entry %s: %w", absPath(source), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer closer.Close()

	// data is only valid until closer.Close; Unmarshal copies what it keeps.
	x, err := index.Unmarshal(c.codec, data)
	if err != nil {
		return nil, fmt.Errorf("decode catalog entry %s: %w", absPath(source), err)
	}
	return x, nil
}

// Save stores the table for source
func (c *Catalog) Save(source string, x *index.Index) error {
	data, err := index.Marshal(c.codec, x, c.config.Compression)
	if err != nil {
		return err
	}
	if err := c.db.Set(key(source), data, pebble.Sync); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// Delete removes the entry for source
func (c *Catalog) Delete(source string) error {
	return c.db.Delete(key(source), pebble.Sync)
}

// Sources lists the captures that have an entry, in key order.
func (c *Catalog) Sources() ([]string, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixEnd([]byte(keyPrefix)),
	})
	if err != nil {
		return nil, err
	}

	var sources []string
	for iter.First(); iter.Valid(); iter.Next() {
		sources = append(sources, string(iter.Key()[len(keyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return nil, err
	}
	return sources, iter.Close()
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

func key(source string) []byte {
	return []byte(keyPrefix + absPath(source))
}

func absPath(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		return filepath.Clean(source)
	}
	return abs
}

func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
