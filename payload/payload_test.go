package payload

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDisabledPassesThrough(t *testing.T) {
	in := []byte("raw tile bytes")
	out, err := Encode(in, false)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("tile data "), 100)

	enc, err := Encode(in, true)
	require.NoError(t, err)
	assert.True(t, Compressed(enc))
	assert.Less(t, len(enc), len(in))

	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, in, dec)
}

func TestDecodeIsSelfDescribing(t *testing.T) {
	// An uncompressed payload decodes to itself even when the dataset
	// flag claimed compression.
	in := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3}
	out, err := Decode(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCompressed(t *testing.T) {
	enc, err := Encode([]byte("x"), true)
	require.NoError(t, err)
	assert.True(t, Compressed(enc))

	assert.False(t, Compressed(nil))
	assert.False(t, Compressed([]byte{0x78}))
	// gzip is not the payload codec's framing
	assert.False(t, Compressed([]byte{0x1f, 0x8b, 0x08, 0x00}))
	assert.False(t, Compressed([]byte{0xff, 0xd8, 0xff}))
}
