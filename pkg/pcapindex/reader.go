package pcapindex

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/gopacket/layers"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/pcapidx/pkg/capture"
	"github.com/ssargent/pcapidx/pkg/index"
)

// ErrOutOfRange is returned by Get for an index outside [0, Len()).
var ErrOutOfRange = errors.New("record index out of range")

// Reader provides indexed and sequential access to the records of one capture.
type Reader struct {
	mutex    sync.Mutex // guards decoder and its cursor
	decoder  *capture.Reader
	index    *index.Index
	path     string
	location string
	rebuilt  bool
	linkType layers.LinkType
	metrics  *Metrics
}

// Get returns record i. It fails with ErrOutOfRange when i is not in
// [0, Len()), and with a wrapped I/O or format error when record i cannot be
// read. On success the cursor is left just past record i.
func (r *Reader) Get(i int) (*capture.Packet, error) {
	offset, ok := r.index.Offset(i)
	if !ok {
		r.metrics.observeRead(opGet, statusOutOfRange)
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, r.index.Len())
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.decoder.Seek(offset); err != nil {
		r.metrics.observeRead(opGet, statusError)
		return nil, fmt.Errorf("seek to record %d at offset %d: %w", i, offset, err)
	}

	pkt, err := r.decoder.ReadNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// The table points at the end of the data; never report that
			// as a clean end of stream.
			err = io.ErrUnexpectedEOF
		}
		r.metrics.observeRead(opGet, statusError)
		return nil, fmt.Errorf("read record %d at offset %d: %w", i, offset, err)
	}

	r.metrics.observeRead(opGet, statusSuccess)
	return pkt, nil
}

// Next returns the record at the cursor and advances past it. It returns
// io.EOF after the last record. Next does not consult the offset table.
func (r *Reader) Next() (*capture.Packet, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	pkt, err := r.decoder.ReadNext()
	switch {
	case err == nil:
		r.metrics.observeRead(opNext, statusSuccess)
	case errors.Is(err, io.EOF):
		r.metrics.observeRead(opNext, statusEOF)
	default:
		r.metrics.observeRead(opNext, statusError)
	}
	return pkt, err
}

// Rewind moves the cursor back to the first record.
func (r *Reader) Rewind() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.decoder.Seek(capture.GlobalHeaderSize)
}

// Len returns the number of records in the offset table
func (r *Reader) Len() int {
	return r.index.Len()
}

// Offsets returns a copy of the offset table
func (r *Reader) Offsets() []uint64 {
	out := make([]uint64, r.index.Len())
	copy(out, r.index.Offsets)
	return out
}

// BuildID identifies the scan that produced the offset table
func (r *Reader) BuildID() ksuid.KSUID {
	return r.index.BuildID
}

// Rebuilt reports whether opening scanned the capture instead of loading a table
func (r *Reader) Rebuilt() bool {
	return r.rebuilt
}

// Path returns the capture path
func (r *Reader) Path() string {
	return r.path
}

// IndexLocation returns where the offset table is stored
func (r *Reader) IndexLocation() string {
	return r.location
}

// LinkType returns the link type of the capture
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Iterator returns a streaming iterator over Next
func (r *Reader) Iterator() capture.PacketIterator {
	return &readerIterator{reader: r}
}

// Close closes the capture file
func (r *Reader) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.decoder.Close()
}

type readerIterator struct {
	reader *Reader
	packet *capture.Packet
	err    error
}

func (it *readerIterator) Next() bool {
	it.packet, it.err = it.reader.Next()
	return it.err == nil
}

func (it *readerIterator) Packet() *capture.Packet {
	return it.packet
}

func (it *readerIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *readerIterator) Close() error {
	return nil
}
