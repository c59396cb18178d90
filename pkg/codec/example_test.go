package codec_test

import (
	"fmt"
	"log"

	"github.com/ssargent/pcapidx/pkg/codec"
)

// ExampleTableCodec demonstrates encoding and decoding an offset table
func ExampleTableCodec() {
	c := codec.NewTableCodec()

	encoded, err := c.Encode(&codec.Table{
		SourceSize:  1455,
		Compression: codec.CompressionNone,
		Offsets:     []uint64{24, 157, 442},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Encoded %d bytes\n", len(encoded))

	table, err := c.Decode(encoded)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Offsets: %v\n", table.Offsets)
	fmt.Printf("Source size: %d\n", table.SourceSize)

	// Output:
	// Encoded 76 bytes
	// Offsets: [24 157 442]
	// Source size: 1455
}
