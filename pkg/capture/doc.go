// Package capture reads classic libpcap files record by record and can
// reposition the cursor at any record boundary.
//
// Both byte orders and both microsecond and nanosecond timestamp magics are
// accepted. Gzip-compressed captures are rejected with ErrNotSeekable because
// byte offsets into a compressed stream cannot be seeked to.
//
// A record whose incl_len exceeds the snaplen declared in the global header
// fails with ErrFormat. libpcap and Wireshark ignore the snaplen and
// read such files, so captures from writers that do not truncate to their
// own snaplen open elsewhere but not here.
package capture
