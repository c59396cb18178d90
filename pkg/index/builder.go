package index

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/pcapidx/pkg/capture"
	"github.com/ssargent/pcapidx/pkg/logging"
)

// BuilderConfig holds configuration for the index builder
type BuilderConfig struct {
	Logger *slog.Logger
}

// Builder derives offset tables by scanning captures from start to end.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a new index builder
func NewBuilder(config BuilderConfig) *Builder {
	return &Builder{
		logger: logging.Default(config.Logger).With("component", "index-builder"),
	}
}

// Build scans the capture at path once and records the offset in front of
// every record. A scan that fails partway returns no index at all.
func (b *Builder) Build(path string) (*Index, error) {
	start := time.Now()

	fp, err := Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat capture: %w", err)
	}

	reader, err := capture.NewReader(capture.ReaderConfig{FilePath: path})
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer reader.Close()

	var offsets []uint64
	for {
		offset := reader.Offset()
		if _, err := reader.ReadNext(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("scan record %d at offset %d: %w", len(offsets), offset, err)
		}
		offsets = append(offsets, offset)
	}

	x := &Index{
		Offsets: offsets,
		Source:  fp,
		BuildID: ksuid.New(),
	}

	b.logger.Info("index built",
		"path", path,
		"records", len(offsets),
		"build_id", x.BuildID.String(),
		"duration", time.Since(start))

	return x, nil
}
