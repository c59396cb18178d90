package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Reader provides sequential access to the records of a pcap file, with
// repositioning to any record boundary.
type Reader struct {
	file     *os.File
	size     int64
	header   [GlobalHeaderSize]byte
	decoder  *pcapgo.Reader
	offset   uint64
	linkType layers.LinkType
	config   ReaderConfig
}

// NewReader opens the capture at config.FilePath and positions the cursor at
// config.StartOffset, or at the first record when it is zero.
func NewReader(config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	r := &Reader{
		file:   file,
		size:   stat.Size(),
		config: config,
	}

	if _, err := file.ReadAt(r.header[:], 0); err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: global header truncated", ErrFormat)
		}
		return nil, err
	}

	// pcapgo would transparently gunzip, but byte offsets into a gzip
	// stream cannot be seeked to.
	if r.header[0] == 0x1f && r.header[1] == 0x8b {
		file.Close()
		return nil, ErrNotSeekable
	}

	start := config.StartOffset
	if start == 0 {
		start = GlobalHeaderSize
	}
	if err := r.Seek(start); err != nil {
		file.Close()
		return nil, err
	}
	// The global header never changes, so neither does the link type.
	r.linkType = r.decoder.LinkType()

	return r, nil
}

// ReadNext reads the record at the current offset and advances past it.
// It returns io.EOF once the cursor sits exactly at the end of the file.
func (r *Reader) ReadNext() (*Packet, error) {
	data, ci, err := r.decoder.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			if r.offset == uint64(r.size) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: record at offset %d truncated", ErrFormat, r.offset)
		}
		return nil, r.classify(err)
	}

	pkt := &Packet{
		Offset: r.offset,
		Info:   ci,
		Data:   data,
	}
	r.offset += pkt.Size()

	return pkt, nil
}

// Seek sets the read offset. The offset must be a record boundary; this is
// not checked beyond the bounds of the record area.
func (r *Reader) Seek(offset uint64) error {
	if offset < GlobalHeaderSize || offset > uint64(r.size) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidOffset, offset, GlobalHeaderSize, r.size)
	}

	// pcapgo buffers internally, so a fresh decoder is built over the cached
	// global header followed by the file from the new offset onwards.
	section := io.NewSectionReader(r.file, int64(offset), r.size-int64(offset))
	decoder, err := pcapgo.NewReader(io.MultiReader(bytes.NewReader(r.header[:]), section))
	if err != nil {
		return r.classify(err)
	}

	r.decoder = decoder
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *Reader) Offset() uint64 {
	return r.offset
}

// Size returns the size of the capture file when it was opened
func (r *Reader) Size() int64 {
	return r.size
}

// LinkType returns the link type declared in the global header
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Path returns the file path
func (r *Reader) Path() string {
	return r.config.FilePath
}

// Iterator returns a streaming iterator for packets
func (r *Reader) Iterator() PacketIterator {
	return &packetIterator{reader: r}
}

// Close closes the capture reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// classify keeps filesystem errors as they are and tags everything else the
// decoder reports as a format error.
func (r *Reader) classify(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of data at offset %d", ErrFormat, r.offset)
	}
	return fmt.Errorf("%w: %v", ErrFormat, err)
}

// packetIterator implements PacketIterator for streaming access
type packetIterator struct {
	reader *Reader
	packet *Packet
	err    error
}

func (it *packetIterator) Next() bool {
	it.packet, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *packetIterator) Packet() *Packet {
	return it.packet
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *packetIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *packetIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
