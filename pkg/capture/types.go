package capture

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// GlobalHeaderSize is the size of the libpcap file header. The first
	// record always starts at this offset.
	GlobalHeaderSize = 24

	// RecordHeaderSize is the size of the per-record header
	// (ts_sec, ts_frac, incl_len, orig_len).
	RecordHeaderSize = 16
)

// ReaderConfig holds configuration for the capture reader
type ReaderConfig struct {
	FilePath    string // Path to the capture file
	StartOffset uint64 // Offset to start reading from (0 = first record)
}

// Packet is one decoded record together with the offset of its record header.
type Packet struct {
	Offset uint64
	Info   gopacket.CaptureInfo
	Data   []byte
}

// CaptureLength returns the number of payload bytes stored for the record
// (incl_len).
func (p *Packet) CaptureLength() int {
	return p.Info.CaptureLength
}

// Size returns the on-disk size of the record: header plus payload.
func (p *Packet) Size() uint64 {
	return RecordHeaderSize + uint64(p.Info.CaptureLength)
}

// Decode parses the payload with gopacket using the given link type.
func (p *Packet) Decode(linkType layers.LinkType) gopacket.Packet {
	pkt := gopacket.NewPacket(p.Data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	pkt.Metadata().CaptureInfo = p.Info
	return pkt
}

// PacketIterator provides streaming access to packets
type PacketIterator interface {
	Next() bool
	Packet() *Packet
	Err() error
	Close() error
}

// Errors
var (
	// ErrFormat reports a malformed global header or record header.
	ErrFormat = errors.New("malformed capture")

	// ErrNotSeekable is returned for inputs that cannot be repositioned,
	// such as gzip-compressed captures.
	ErrNotSeekable = &notSeekableError{}

	// ErrInvalidOffset is returned by Seek for offsets outside the record area.
	ErrInvalidOffset = errors.New("offset outside record area")
)

type notSeekableError struct{}

func (*notSeekableError) Error() string { return "capture is not seekable" }

func (*notSeekableError) Unwrap() error { return ErrFormat }
