package pcapindex

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/pcapidx/pkg/capture"
)

// ErrMismatch reports a record whose indexed read differs from a sequential
// scan of the capture.
var ErrMismatch = errors.New("indexed read does not match sequential scan")

// Verify checks every Get against an independent sequential scan of the
// capture. It returns the number of records checked. The cursor position
// afterwards is unspecified.
func (r *Reader) Verify() (int, error) {
	scan, err := capture.NewReader(capture.ReaderConfig{FilePath: r.path})
	if err != nil {
		return 0, fmt.Errorf("open capture for scan: %w", err)
	}
	defer scan.Close()

	n := 0
	for {
		want, err := scan.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("scan record %d: %w", n, err)
		}
		if n >= r.Len() {
			return n, fmt.Errorf("%w: capture has more than %d records", ErrMismatch, r.Len())
		}

		got, err := r.Get(n)
		if err != nil {
			return n, err
		}
		if err := samePacket(n, got, want); err != nil {
			return n, err
		}
		n++
	}

	if n != r.Len() {
		return n, fmt.Errorf("%w: table has %d records, capture has %d", ErrMismatch, r.Len(), n)
	}
	return n, nil
}

func samePacket(i int, got, want *capture.Packet) error {
	switch {
	case got.Offset != want.Offset:
		return fmt.Errorf("%w: record %d at offset %d, scan found %d", ErrMismatch, i, got.Offset, want.Offset)
	case !got.Info.Timestamp.Equal(want.Info.Timestamp):
		return fmt.Errorf("%w: record %d timestamp %s, scan found %s", ErrMismatch, i, got.Info.Timestamp, want.Info.Timestamp)
	case got.Info.CaptureLength != want.Info.CaptureLength || got.Info.Length != want.Info.Length:
		return fmt.Errorf("%w: record %d length %d/%d, scan found %d/%d", ErrMismatch, i,
			got.Info.CaptureLength, got.Info.Length, want.Info.CaptureLength, want.Info.Length)
	case !bytes.Equal(got.Data, want.Data):
		return fmt.Errorf("%w: record %d payload differs", ErrMismatch, i)
	}
	return nil
}
