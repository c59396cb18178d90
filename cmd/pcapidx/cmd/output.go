package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/gopacket/layers"

	"github.com/ssargent/pcapidx/pkg/capture"
)

// printPacket writes a one-line summary of record i, followed by a hex dump
// of its payload when dump is set.
func printPacket(w io.Writer, i int, pkt *capture.Packet, linkType layers.LinkType, dump bool) {
	decoded := pkt.Decode(linkType)

	names := make([]string, 0, 4)
	for _, l := range decoded.Layers() {
		names = append(names, l.LayerType().String())
	}
	if len(names) == 0 {
		names = append(names, "-")
	}

	fmt.Fprintf(w, "#%d offset=%d time=%s caplen=%d len=%d layers=%s\n",
		i,
		pkt.Offset,
		pkt.Info.Timestamp.UTC().Format(time.RFC3339Nano),
		pkt.Info.CaptureLength,
		pkt.Info.Length,
		strings.Join(names, "/"))

	if dump {
		fmt.Fprint(w, hex.Dump(pkt.Data))
	}
}
