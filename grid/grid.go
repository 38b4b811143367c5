/*
Package grid handles UTFGrid payloads: the JSONP framing applied to
exported .grid.json files, and the split between the compressed grid
blob and its per-key data rows inside the container.
*/
package grid

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/smellman/mbutil/payload"
)

// Wrap frames raw JSON as a JSONP callback invocation. An empty
// callback name leaves the JSON untouched.
func Wrap(raw []byte, callback string) []byte {
	if callback == "" {
		return raw
	}
	return []byte(fmt.Sprintf("%s(%s);", callback, raw))
}

// Unwrap strips JSONP framing if present, returning the payload between
// the outermost parenthesis pair. Payloads without framing pass through
// unchanged.
func Unwrap(b []byte) []byte {
	open := bytes.IndexByte(b, '(')
	end := bytes.LastIndexByte(b, ')')
	// A callback prefix is a bare identifier; anything containing a
	// brace or quote before the parenthesis is already JSON.
	if open <= 0 || end < open || bytes.ContainsAny(b[:open], "{\"") {
		return b
	}
	return bytes.TrimSpace(b[open+1 : end])
}

// Pack splits a full UTFGrid document into the compressed blob stored
// in the grids table and the per-key entries stored in grid_data. Empty
// key names address no data and are dropped.
func Pack(raw []byte) ([]byte, map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, err
	}

	var whole map[string]json.RawMessage
	if d, ok := doc["data"]; ok {
		if err := json.Unmarshal(d, &whole); err != nil {
			return nil, nil, err
		}
		delete(doc, "data")
	}

	var keys []string
	if k, ok := doc["keys"]; ok {
		if err := json.Unmarshal(k, &keys); err != nil {
			return nil, nil, err
		}
	}

	trimmed, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	blob, err := payload.Encode(trimmed, true)
	if err != nil {
		return nil, nil, err
	}

	data := make(map[string]json.RawMessage)
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := whole[k]; ok {
			data[k] = v
		}
	}

	return blob, data, nil
}

// Unpack reverses Pack, joining the grid_data rows back into the
// document under its data member.
func Unpack(blob []byte, data map[string]json.RawMessage) ([]byte, error) {
	raw, err := payload.Decode(blob)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	d, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	doc["data"] = d
	return json.Marshal(doc)
}
