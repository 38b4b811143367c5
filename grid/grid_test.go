package grid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	raw := []byte(`{"keys":["","1"],"grid":["  "]}`)

	wrapped := Wrap(raw, "grid")
	assert.Equal(t, `grid({"keys":["","1"],"grid":["  "]});`, string(wrapped))
	assert.Equal(t, raw, Unwrap(wrapped))
}

func TestWrapEmptyCallback(t *testing.T) {
	raw := []byte(`{"keys":[]}`)
	assert.Equal(t, raw, Wrap(raw, ""))
}

func TestUnwrapRawJSON(t *testing.T) {
	// Unframed payloads pass through untouched, parentheses inside
	// string values included.
	raw := []byte(`{"keys":["a"],"data":{"a":{"name":"Foo (Bar)"}}}`)
	assert.Equal(t, raw, Unwrap(raw))
}

func TestUnwrapToleratesMissingSemicolon(t *testing.T) {
	raw := []byte(`{"keys":[]}`)
	assert.Equal(t, raw, Unwrap([]byte(`cb({"keys":[]})`)))
	assert.Equal(t, raw, Unwrap([]byte(`my_cb2({"keys":[]});`)))
}

func TestPackUnpackRoundTrip(t *testing.T) {
	raw := []byte(`{"grid":["!!","!#"],"keys":["","5"],"data":{"5":{"admin":"Chile"}}}`)

	blob, data, err := Pack(raw)
	require.NoError(t, err)

	// The blob is compressed and carries no data member.
	assert.NotEqual(t, byte('{'), blob[0])
	require.Len(t, data, 1)
	assert.JSONEq(t, `{"admin":"Chile"}`, string(data["5"]))

	joined, err := Unpack(blob, data)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(joined))
}

func TestPackDropsEmptyKeys(t *testing.T) {
	raw := []byte(`{"keys":["","7"],"data":{"7":1,"":2}}`)
	_, data, err := Pack(raw)
	require.NoError(t, err)
	_, ok := data[""]
	assert.False(t, ok)
	assert.Contains(t, data, "7")
}

func TestUnpackWithoutData(t *testing.T) {
	blob, _, err := Pack([]byte(`{"keys":[]}`))
	require.NoError(t, err)

	joined, err := Unpack(blob, nil)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(joined, &doc))
	assert.JSONEq(t, `{}`, string(doc["data"]))
}

func TestPackRejectsMalformedJSON(t *testing.T) {
	_, _, err := Pack([]byte(`{"keys":`))
	assert.Error(t, err)
}
