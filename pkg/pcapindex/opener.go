// Package pcapindex gives O(1) access to the n-th record of a pcap file.
//
// Opening a capture loads its offset table from the store, or scans the
// capture once and saves the table when no usable one exists:
//
//	r, err := pcapindex.Open("trace.pcap")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	pkt, err := r.Get(3)
//
// A Reader owns one file handle and one cursor. Get and Next both move that
// cursor; open one Reader per goroutine for independent access.
package pcapindex

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ssargent/pcapidx/pkg/capture"
	"github.com/ssargent/pcapidx/pkg/codec"
	"github.com/ssargent/pcapidx/pkg/index"
	"github.com/ssargent/pcapidx/pkg/logging"
)

// Options select how OpenWithOptions obtains the offset table. The zero
// value only loads, and fails if no usable table is stored.
type Options struct {
	SidecarPath string // Explicit sidecar path; overrides the opener's store
	Rebuild     bool   // Skip loading and scan the capture
	Save        bool   // Persist the table after opening
	Fallback    bool   // Scan and save when loading fails
}

// OpenerConfig holds configuration for an Opener
type OpenerConfig struct {
	Store           index.Store       // Where tables live (default: sidecar next to the capture)
	Compression     codec.Compression // Used for the default store and explicit sidecar paths
	SkipSourceCheck bool              // Accept stored tables without comparing the source fingerprint
	Logger          *slog.Logger
	Metrics         *Metrics
}

// Opener opens captures for random access, loading or building their tables.
// It is safe for concurrent use; concurrent scans of the same capture and
// location are collapsed into one.
type Opener struct {
	store   index.Store
	builder *index.Builder
	config  OpenerConfig
	logger  *slog.Logger
	metrics *Metrics
	builds  singleflight.Group
}

// NewOpener creates a new opener
func NewOpener(config OpenerConfig) *Opener {
	logger := logging.Default(config.Logger)

	store := config.Store
	if store == nil {
		store = index.NewSidecarStore(index.SidecarConfig{Compression: config.Compression})
	}

	return &Opener{
		store:   store,
		builder: index.NewBuilder(index.BuilderConfig{Logger: logger}),
		config:  config,
		logger:  logger.With("component", "opener"),
		metrics: config.Metrics,
	}
}

var defaultOpener = NewOpener(OpenerConfig{})

// Open opens path with the default opener. See Opener.Open.
func Open(path string) (*Reader, error) {
	return defaultOpener.Open(path)
}

// OpenWithOptions opens path with the default opener. See Opener.OpenWithOptions.
func OpenWithOptions(path string, opts Options) (*Reader, error) {
	return defaultOpener.OpenWithOptions(path, opts)
}

// Open loads the table for path, or scans path and saves a new table when
// the stored one is missing, unreadable, corrupt or stale. Only a failure to
// scan the capture itself is returned.
func (o *Opener) Open(path string) (*Reader, error) {
	return o.OpenWithOptions(path, Options{Fallback: true})
}

// OpenWithOptions opens path under an explicit policy.
func (o *Opener) OpenWithOptions(path string, opts Options) (*Reader, error) {
	store := o.storeFor(opts)

	x, rebuilt, err := o.resolve(path, store, opts)
	if err != nil {
		return nil, err
	}

	decoder, err := capture.NewReader(capture.ReaderConfig{FilePath: path})
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	return &Reader{
		decoder:  decoder,
		index:    x,
		path:     path,
		location: store.Location(path),
		rebuilt:  rebuilt,
		linkType: decoder.LinkType(),
		metrics:  o.metrics,
	}, nil
}

// Location returns where the table for path is kept under opts.
func (o *Opener) Location(path string, opts Options) string {
	return o.storeFor(opts).Location(path)
}

// Clean removes the stored table for path.
func (o *Opener) Clean(path string, opts Options) error {
	return o.storeFor(opts).Delete(path)
}

func (o *Opener) storeFor(opts Options) index.Store {
	if opts.SidecarPath != "" {
		return index.NewSidecarStore(index.SidecarConfig{
			Path:        opts.SidecarPath,
			Compression: o.config.Compression,
		})
	}
	return o.store
}

type loadOutcome string

const (
	loadHit     loadOutcome = "hit"
	loadMissing loadOutcome = "missing"
	loadCorrupt loadOutcome = "corrupt"
	loadStale   loadOutcome = "stale"
	loadError   loadOutcome = "error"
)

// loadResult is the outcome of tryLoad: a usable table, or the reason there
// is none.
type loadResult struct {
	index   *index.Index
	outcome loadOutcome
	err     error
}

func (o *Opener) tryLoad(path string, store index.Store) loadResult {
	x, err := store.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return loadResult{outcome: loadMissing, err: err}
	case errors.Is(err, codec.ErrCorrupt):
		return loadResult{outcome: loadCorrupt, err: err}
	default:
		return loadResult{outcome: loadError, err: err}
	}

	if !o.config.SkipSourceCheck {
		fp, err := index.Stat(path)
		if err != nil {
			return loadResult{outcome: loadError, err: fmt.Errorf("stat capture: %w", err)}
		}
		if !x.Matches(fp) {
			return loadResult{
				outcome: loadStale,
				err: fmt.Errorf("%w: built for %d bytes at %s, capture has %d bytes at %s",
					index.ErrStale, x.Source.Size, x.Source.ModTime.Format(time.RFC3339Nano),
					fp.Size, fp.ModTime.Format(time.RFC3339Nano)),
			}
		}
	}

	return loadResult{index: x, outcome: loadHit}
}

// resolve decides between the stored table and a fresh scan. It reports
// whether a scan happened.
func (o *Opener) resolve(path string, store index.Store, opts Options) (*index.Index, bool, error) {
	location := store.Location(path)

	if !opts.Rebuild {
		res := o.tryLoad(path, store)
		o.metrics.observeLoad(res.outcome)

		if res.err == nil {
			o.logger.Debug("index loaded", "path", path, "location", location, "records", res.index.Len())
			if opts.Save {
				if err := store.Save(path, res.index); err != nil {
					return nil, false, fmt.Errorf("save offset table %s: %w", location, err)
				}
			}
			return res.index, false, nil
		}

		if !opts.Fallback {
			return nil, false, fmt.Errorf("load offset table %s: %w", location, res.err)
		}

		o.logger.Debug("index unusable, rebuilding",
			"path", path,
			"location", location,
			"reason", string(res.outcome),
			"error", res.err)
	}

	x, err := o.build(path, location)
	if err != nil {
		return nil, false, err
	}

	if opts.Save || opts.Fallback {
		if err := store.Save(path, x); err != nil {
			if !opts.Fallback {
				return nil, false, fmt.Errorf("save offset table %s: %w", location, err)
			}
			o.logger.Warn("could not save index, continuing with in-memory table",
				"path", path,
				"location", location,
				"error", err)
		}
	}

	return x, true, nil
}

func (o *Opener) build(path, location string) (*index.Index, error) {
	v, err, shared := o.builds.Do(path+"\x00"+location, func() (any, error) {
		start := time.Now()
		x, err := o.builder.Build(path)
		if err != nil {
			o.metrics.observeBuild(0, time.Since(start), err)
			return nil, err
		}
		o.metrics.observeBuild(x.Len(), time.Since(start), nil)
		return x, nil
	})
	if err != nil {
		return nil, fmt.Errorf("build offset table for %s: %w", path, err)
	}
	if shared {
		o.logger.Debug("index scan shared with concurrent open", "path", path)
	}
	return v.(*index.Index), nil
}
