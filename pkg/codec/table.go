package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/ksuid"
)

const (
	Signature       = 'p'
	TypeOffsetTable = 'o'
	Version         = 0x01

	// HeaderSize is the fixed size of the table header:
	// signature(1) type(1) version(1) compression(1) crc32(4) count(8)
	// sourceSize(8) sourceModTime(8) buildID(20)
	HeaderSize = 52

	// EntrySize is the size of one encoded offset.
	EntrySize = 8

	// MaxEntries bounds the declared record count.
	MaxEntries = 1 << 32
)

// Compression selects how the table body is stored.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionSnappy
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("compression(%d)", byte(c))
	}
}

// ParseCompression maps a config value to a Compression. The empty string
// means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Errors. Every decode failure matches ErrCorrupt.
var (
	ErrCorrupt            = errors.New("corrupt offset table")
	ErrTableTooSmall      = fmt.Errorf("%w: too small", ErrCorrupt)
	ErrSignatureMismatch  = fmt.Errorf("%w: signature mismatch", ErrCorrupt)
	ErrVersionMismatch    = fmt.Errorf("%w: version mismatch", ErrCorrupt)
	ErrUnknownCompression = fmt.Errorf("%w: unknown compression", ErrCorrupt)
	ErrSizeMismatch       = fmt.Errorf("%w: size mismatch", ErrCorrupt)
	ErrChecksumMismatch   = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
)

var (
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
)

func init() {
	var err error
	zstdEnc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("zstd: init encoder: " + err.Error())
	}
	zstdDec, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(MaxEntries*EntrySize),
		zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		panic("zstd: init decoder: " + err.Error())
	}
}

// Table is the persisted form of an offset index together with the
// fingerprint of the source it was built from.
type Table struct {
	BuildID       ksuid.KSUID
	SourceSize    int64
	SourceModTime int64 // Unix nanoseconds
	Compression   Compression
	Offsets       []uint64
}

// TableCodec handles serialization and deserialization of offset tables
type TableCodec struct{}

// NewTableCodec creates a new table codec instance
func NewTableCodec() *TableCodec {
	return &TableCodec{}
}

// Encode serializes a table into its binary form
func (c *TableCodec) Encode(t *Table) ([]byte, error) {
	body := make([]byte, len(t.Offsets)*EntrySize)
	for i, off := range t.Offsets {
		binary.LittleEndian.PutUint64(body[i*EntrySize:], off)
	}

	var payload []byte
	switch t.Compression {
	case CompressionNone:
		payload = body
	case CompressionZstd:
		payload = zstdEnc.EncodeAll(body, nil)
	case CompressionSnappy:
		payload = snappy.Encode(nil, body)
	default:
		return nil, fmt.Errorf("encode table: %s not supported", t.Compression)
	}

	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = Signature
	buf[1] = TypeOffsetTable
	buf[2] = Version
	buf[3] = byte(t.Compression)
	binary.LittleEndian.PutUint32(buf[4:], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(t.Offsets)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(t.SourceSize))
	binary.LittleEndian.PutUint64(buf[24:], uint64(t.SourceModTime))
	copy(buf[32:52], t.BuildID.Bytes())
	copy(buf[HeaderSize:], payload)

	return buf, nil
}

// Decode deserializes a binary table
func (c *TableCodec) Decode(data []byte) (*Table, error) {
	if len(data) < HeaderSize {
		return nil, ErrTableTooSmall
	}
	if data[0] != Signature || data[1] != TypeOffsetTable {
		return nil, ErrSignatureMismatch
	}
	if data[2] != Version {
		return nil, ErrVersionMismatch
	}

	t := &Table{Compression: Compression(data[3])}
	sum := binary.LittleEndian.Uint32(data[4:8])
	count := binary.LittleEndian.Uint64(data[8:16])
	t.SourceSize = int64(binary.LittleEndian.Uint64(data[16:24]))
	t.SourceModTime = int64(binary.LittleEndian.Uint64(data[24:32]))

	id, err := ksuid.FromBytes(data[32:52])
	if err != nil {
		return nil, fmt.Errorf("%w: build id: %v", ErrCorrupt, err)
	}
	t.BuildID = id

	if count > MaxEntries {
		return nil, ErrSizeMismatch
	}
	want := int(count) * EntrySize

	payload := data[HeaderSize:]
	var body []byte
	switch t.Compression {
	case CompressionNone:
		body = payload
	case CompressionZstd:
		if len(payload) == 0 {
			// The encoder writes no frame for an empty body.
			body = payload
			break
		}
		// Check the declared frame size before decoding anything.
		var h zstd.Header
		if err := h.Decode(payload); err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(want) {
			return nil, ErrSizeMismatch
		}
		// Output is capped at the capacity of dst.
		body, err = zstdDec.DecodeAll(payload, make([]byte, 0, want))
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return nil, ErrSizeMismatch
		}
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
	case CompressionSnappy:
		n, err := snappy.DecodedLen(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
		}
		if n != want {
			return nil, ErrSizeMismatch
		}
		body, err = snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
		}
	default:
		return nil, ErrUnknownCompression
	}

	if len(body) != want {
		return nil, ErrSizeMismatch
	}
	if crc32.ChecksumIEEE(body) != sum {
		return nil, ErrChecksumMismatch
	}

	t.Offsets = make([]uint64, count)
	for i := range t.Offsets {
		t.Offsets[i] = binary.LittleEndian.Uint64(body[i*EntrySize:])
	}

	return t, nil
}
