// Package index builds, validates and persists the record offset table of a
// capture file.
package index

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/pcapidx/pkg/capture"
	"github.com/ssargent/pcapidx/pkg/codec"
)

var (
	// ErrStale reports a stored table whose source fingerprint no longer
	// matches the capture on disk.
	ErrStale = errors.New("offset table is stale")

	// ErrInvalid reports an offset table that violates its ordering invariants.
	ErrInvalid = errors.New("invalid offset table")
)

// Fingerprint identifies the state of a capture file when its table was built.
type Fingerprint struct {
	Size    int64
	ModTime time.Time
}

// Stat returns the current fingerprint of the file at path.
func Stat(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Index is the record offset table of one capture. Offsets[i] is the byte
// position of the header of record i. An Index is immutable once built or
// loaded and may be shared between readers.
type Index struct {
	Offsets []uint64
	Source  Fingerprint
	BuildID ksuid.KSUID
}

// Len returns the number of records
func (x *Index) Len() int {
	return len(x.Offsets)
}

// Offset returns the offset of record i
func (x *Index) Offset(i int) (uint64, bool) {
	if i < 0 || i >= len(x.Offsets) {
		return 0, false
	}
	return x.Offsets[i], true
}

// Matches reports whether the table was built from a source with fingerprint fp.
func (x *Index) Matches(fp Fingerprint) bool {
	return x.Source.Size == fp.Size && x.Source.ModTime.Equal(fp.ModTime)
}

// Validate checks that offsets start right after the global header, are
// strictly increasing and stay inside the source.
func (x *Index) Validate() error {
	if len(x.Offsets) == 0 {
		return nil
	}
	if x.Offsets[0] != capture.GlobalHeaderSize {
		return fmt.Errorf("%w: first offset %d, want %d", ErrInvalid, x.Offsets[0], capture.GlobalHeaderSize)
	}
	for i := 1; i < len(x.Offsets); i++ {
		if x.Offsets[i] < x.Offsets[i-1]+capture.RecordHeaderSize {
			return fmt.Errorf("%w: offset %d at %d does not follow %d", ErrInvalid, x.Offsets[i], i, x.Offsets[i-1])
		}
	}
	last := x.Offsets[len(x.Offsets)-1]
	if x.Source.Size > 0 && last+capture.RecordHeaderSize > uint64(x.Source.Size) {
		return fmt.Errorf("%w: offset %d beyond source size %d", ErrInvalid, last, x.Source.Size)
	}
	return nil
}

// Marshal encodes x with the given body compression.
func Marshal(c *codec.TableCodec, x *Index, compression codec.Compression) ([]byte, error) {
	return c.Encode(&codec.Table{
		BuildID:       x.BuildID,
		SourceSize:    x.Source.Size,
		SourceModTime: x.Source.ModTime.UnixNano(),
		Compression:   compression,
		Offsets:       x.Offsets,
	})
}

// Unmarshal decodes and validates an encoded table. Invariant violations are
// reported as codec.ErrCorrupt, the same as undecodable bytes.
func Unmarshal(c *codec.TableCodec, data []byte) (*Index, error) {
	table, err := c.Decode(data)
	if err != nil {
		return nil, err
	}

	x := &Index{
		Offsets: table.Offsets,
		Source: Fingerprint{
			Size:    table.SourceSize,
			ModTime: time.Unix(0, table.SourceModTime),
		},
		BuildID: table.BuildID,
	}
	if err := x.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCorrupt, err)
	}
	return x, nil
}

// Store persists offset tables for capture files.
type Store interface {
	// Load returns the stored table for source. A missing table is reported
	// as fs.ErrNotExist and undecodable bytes as codec.ErrCorrupt.
	Load(source string) (*Index, error)

	// Save stores x as the table for source, replacing any previous one.
	Save(source string, x *Index) error

	// Delete removes the stored table for source, if any.
	Delete(source string) error

	// Location describes where the table for source is kept.
	Location(source string) string
}
