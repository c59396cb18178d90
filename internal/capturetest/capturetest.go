// Package capturetest writes small pcap fixtures for tests. Captures are
// generated in code so no binary files need to be checked in.
package capturetest

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// FixtureLengths are the payload lengths of the ten-record reference capture.
var FixtureLengths = []int{117, 269, 70, 70, 78, 217, 70, 178, 82, 120}

// FixtureOffsets are the record offsets of the reference capture: 24 for the
// global header, then each previous offset plus 16 plus its payload length.
var FixtureOffsets = []uint64{24, 157, 442, 528, 614, 708, 941, 1027, 1221, 1319}

// FixtureSize is the total size in bytes of the reference capture.
const FixtureSize = 1319 + 16 + 120

// WriteFixture writes the reference capture to dir and returns its path.
func WriteFixture(tb testing.TB, dir string) string {
	tb.Helper()
	return Write(tb, filepath.Join(dir, "test_in.pcap"), FixtureLengths)
}

// Format selects the layout of a generated capture.
type Format struct {
	BigEndian bool
	Nanos     bool   // nanosecond timestamps
	Snaplen   uint32 // 0 means 65536
}

// Write creates a capture at path with one record per entry in lengths.
// Payload bytes and timestamps are deterministic.
func Write(tb testing.TB, path string, lengths []int) string {
	tb.Helper()
	return WriteFormat(tb, path, lengths, Format{})
}

// WriteFormat is Write with an explicit layout. pcapgo only writes
// little-endian files, so big-endian headers are encoded by hand.
func WriteFormat(tb testing.TB, path string, lengths []int, format Format) string {
	tb.Helper()

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create capture: %v", err)
	}
	defer f.Close()

	snaplen := format.Snaplen
	if snaplen == 0 {
		snaplen = 65536
	}

	if format.BigEndian {
		writeBigEndian(tb, f, snaplen, lengths, format.Nanos)
		return path
	}

	w := pcapgo.NewWriter(f)
	if format.Nanos {
		w = pcapgo.NewWriterNanos(f)
	}
	if err := w.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		tb.Fatalf("write file header: %v", err)
	}

	for i, n := range lengths {
		ci := gopacket.CaptureInfo{
			Timestamp:     Timestamp(i),
			CaptureLength: n,
			Length:        n,
		}
		if err := w.WritePacket(ci, Payload(i, n)); err != nil {
			tb.Fatalf("write packet %d: %v", i, err)
		}
	}

	return path
}

func writeBigEndian(tb testing.TB, w io.Writer, snaplen uint32, lengths []int, nanos bool) {
	tb.Helper()

	magic, scale := uint32(0xa1b2c3d4), 1000
	if nanos {
		magic, scale = 0xa1b23c4d, 1
	}

	var header [24]byte
	binary.BigEndian.PutUint32(header[0:4], magic)
	binary.BigEndian.PutUint16(header[4:6], 2)
	binary.BigEndian.PutUint16(header[6:8], 4)
	binary.BigEndian.PutUint32(header[16:20], snaplen)
	binary.BigEndian.PutUint32(header[20:24], uint32(layers.LinkTypeEthernet))
	if _, err := w.Write(header[:]); err != nil {
		tb.Fatalf("write file header: %v", err)
	}

	for i, n := range lengths {
		ts := Timestamp(i)

		var rec [16]byte
		binary.BigEndian.PutUint32(rec[0:4], uint32(ts.Unix()))
		binary.BigEndian.PutUint32(rec[4:8], uint32(ts.Nanosecond()/scale))
		binary.BigEndian.PutUint32(rec[8:12], uint32(n))
		binary.BigEndian.PutUint32(rec[12:16], uint32(n))
		if _, err := w.Write(append(rec[:], Payload(i, n)...)); err != nil {
			tb.Fatalf("write packet %d: %v", i, err)
		}
	}
}

// Timestamp returns the capture time of record i. It has a sub-microsecond
// part, which only nanosecond captures keep.
func Timestamp(i int) time.Time {
	base := time.Unix(1500000000, 0).UTC()
	return base.Add(time.Duration(i)*time.Millisecond + time.Duration(i+1)*7)
}

// Payload returns the deterministic payload of record i with length n.
func Payload(i, n int) []byte {
	data := make([]byte, n)
	for j := range data {
		data[j] = byte(i*31 + j)
	}
	return data
}
