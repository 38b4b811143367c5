/*
Package format classifies tile payloads by their binary signatures.
*/
package format

import (
	"bytes"
	"fmt"
)

// Format names a tile payload encoding.
type Format string

const (
	PNG  Format = "png"
	JPG  Format = "jpg"
	WEBP Format = "webp"
	PBF  Format = "pbf"
	MVT  Format = "mvt"

	// Unknown is returned when no signature matches. Callers decide
	// whether that is fatal.
	Unknown Format = ""
)

// Parse validates a format name given on the command line.
func Parse(s string) (Format, error) {
	switch v := Format(s); v {
	case PNG, JPG, WEBP, PBF, MVT:
		return v, nil
	}
	return Unknown, fmt.Errorf("format: unknown image format %q", s)
}

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpgMagic  = []byte{0xff, 0xd8, 0xff}
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
	gzipMagic = []byte{0x1f, 0x8b}
)

// Detect inspects the leading bytes of a payload. Vector tiles are
// conventionally stored gzip-compressed, so a gzip stream is classified
// as pbf; a bare protobuf has no signature and stays Unknown.
func Detect(b []byte) Format {
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return PNG
	case bytes.HasPrefix(b, jpgMagic):
		return JPG
	case len(b) >= 12 && bytes.HasPrefix(b, riffMagic) && bytes.Equal(b[8:12], webpMagic):
		return WEBP
	case bytes.HasPrefix(b, gzipMagic):
		return PBF
	}
	return Unknown
}

// Matches reports whether two tags name the same payload encoding. The
// pbf and mvt tags are the same vector-tile format under different
// extensions.
func (f Format) Matches(other Format) bool {
	if f == other {
		return true
	}
	vector := func(v Format) bool { return v == PBF || v == MVT }
	return vector(f) && vector(other)
}

// Ext returns the file extension for f, defaulting to png when the
// format is unknown.
func (f Format) Ext() string {
	if f == Unknown {
		return string(PNG)
	}
	return string(f)
}

// ContentType returns the MIME type conventionally served for f.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case PBF, MVT:
		return "application/x-protobuf"
	}
	return "application/octet-stream"
}
