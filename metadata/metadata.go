/*
Package metadata implements the dataset metadata document: a name/value
mapping serialized as a single JSON object. The document remembers the
order names were first set in, so a round trip through metadata.json
does not shuffle keys.
*/
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Document is an insertion-ordered string mapping. It implements the
// json.Marshaler and json.Unmarshaler interfaces.
type Document struct {
	names  []string
	values map[string]string
}

// New returns an empty document.
func New() *Document {
	return &Document{values: make(map[string]string)}
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.names)
}

// Get returns the value stored under name.
func (d *Document) Get(name string) (string, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Set stores value under name, keeping the position name was first seen
// at.
func (d *Document) Set(name, value string) {
	if _, ok := d.values[name]; !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = value
}

// Each calls f for every entry in insertion order, stopping at the
// first error.
func (d *Document) Each(f func(name, value string) error) error {
	for _, n := range d.names {
		if err := f(n, d.values[n]); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes the document as a JSON object in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, n := range d.names {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		v, err := json.Marshal(d.values[n])
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving its key order.
// Non-string values are kept verbatim as their JSON text.
func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	d.names = nil
	d.values = make(map[string]string)

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := kt.(string)
		if !ok {
			return fmt.Errorf("metadata: expected name, got %v", kt)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			value = string(raw)
		}
		d.Set(name, value)
	}

	_, err = dec.Token()
	return err
}

// Bounds parses the document's bounds value, stored in the conventional
// west,south,east,north form.
func (d *Document) Bounds() (orb.Bound, bool) {
	v, ok := d.Get("bounds")
	if !ok {
		return orb.Bound{}, false
	}
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return orb.Bound{}, false
	}
	var f [4]float64
	for i, p := range parts {
		var err error
		if f[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return orb.Bound{}, false
		}
	}
	return orb.Bound{Min: orb.Point{f[0], f[1]}, Max: orb.Point{f[2], f[3]}}, true
}

// FormatBounds renders b in the form Bounds parses.
func FormatBounds(b orb.Bound) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}
