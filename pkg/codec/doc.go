// Package codec provides offset table serialization and deserialization for pcapidx.
//
// The codec package implements the binary format of the sidecar that stores
// the byte offset of every record in a capture file. Loading a table is a
// single read plus a constant-size header check, which is what makes
// reopening a large capture cheap.
//
// # Table Format
//
// Tables are serialized in a little-endian binary format with the following structure:
//
//	[Sig(1)][Type(1)][Version(1)][Compression(1)][CRC32(4)][Count(8)]
//	[SourceSize(8)][SourceModTime(8)][BuildID(20)][Body]
//
// Fields:
//   - Sig, Type: the bytes 'p' and 'o'
//   - Version: format version, currently 1
//   - Compression: 0 = none, 1 = zstd, 2 = snappy
//   - CRC32: IEEE checksum of the uncompressed body
//   - Count: number of records in the capture
//   - SourceSize, SourceModTime: fingerprint of the capture the table was built from
//   - BuildID: KSUID assigned when the table was built
//   - Body: Count little-endian uint64 offsets, compressed as declared
//
// The header is always 52 bytes. An uncompressed table is 52 + 8*Count bytes.
//
// # Error Handling
//
// Every decode failure wraps ErrCorrupt, so callers that only care about
// "unusable table" can test a single sentinel:
//
//	table, err := codec.NewTableCodec().Decode(data)
//	if errors.Is(err, codec.ErrCorrupt) {
//	    // rebuild from the capture
//	}
//
// Tables written by other tools or older layouts without the signature are
// rejected with ErrSignatureMismatch rather than being misread.
//
// # Thread Safety
//
// TableCodec instances are safe for concurrent use.
package codec
