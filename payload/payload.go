/*
Package payload implements the optional dataset-wide compression applied
to stored tile and grid blobs.

Encoding is gated by the dataset flag; decoding is self-describing. A
container written with compression enabled reads back correctly no
matter what flag the reader was opened with, because compressed blobs
are recognised by their zlib header rather than by configuration.
*/
package payload

import (
	"bytes"
	"compress/zlib"
	"io"
)

// Compressed reports whether b starts with a zlib stream header. The
// check is unambiguous against the known tile signatures (png, jpeg,
// webp, gzip) which all start differently.
func Compressed(b []byte) bool {
	if len(b) < 2 || b[0]&0x0f != 8 {
		return false
	}
	return (uint(b[0])<<8|uint(b[1]))%31 == 0
}

// Encode compresses b when enabled, and returns it unchanged otherwise.
func Encode(b []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return b, nil
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode transparently decompresses b if it carries a zlib stream, and
// returns it unchanged otherwise.
func Decode(b []byte) ([]byte, error) {
	if !Compressed(b) {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
