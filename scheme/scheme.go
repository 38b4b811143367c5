/*
Package scheme maps tile addresses to and from the on-disk path layouts
understood by other tile servers and caches.
*/
package scheme

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smellman/mbutil/tile"
)

// Scheme names an external addressing convention.
type Scheme string

const (
	// XYZ is the slippy-map convention: z/x/y with the row counted
	// from the top.
	XYZ Scheme = "xyz"
	// TMS is z/x/y using the container's native bottom-origin row.
	TMS Scheme = "tms"
	// WMS replicates the MapServer TileCache directory structure with
	// zero-padded, three-digit path chunks.
	WMS Scheme = "wms"
)

// Parse validates a scheme name given on the command line.
func Parse(s string) (Scheme, error) {
	switch v := Scheme(s); v {
	case XYZ, TMS, WMS:
		return v, nil
	}
	return "", fmt.Errorf("scheme: unknown scheme %q", s)
}

// FlipY converts a row between the top-origin and bottom-origin
// conventions at the given zoom. The transform is its own inverse.
func FlipY(z, y uint32) uint32 {
	return (1 << z) - y - 1
}

// Path returns the relative file path for id under s, using ext as the
// file extension.
func Path(s Scheme, id tile.ID, ext string) string {
	switch s {
	case XYZ:
		return filepath.Join(
			strconv.FormatUint(uint64(id.Z), 10),
			strconv.FormatUint(uint64(id.X), 10),
			fmt.Sprintf("%d.%s", FlipY(id.Z, id.Y), ext),
		)
	case WMS:
		return filepath.Join(
			fmt.Sprintf("%02d", id.Z),
			fmt.Sprintf("%03d", id.X/1000000),
			fmt.Sprintf("%03d", id.X/1000%1000),
			fmt.Sprintf("%03d", id.X%1000),
			fmt.Sprintf("%03d", id.Y/1000000),
			fmt.Sprintf("%03d", id.Y/1000%1000),
			fmt.Sprintf("%03d.%s", id.Y%1000, ext),
		)
	default:
		return filepath.Join(
			strconv.FormatUint(uint64(id.Z), 10),
			strconv.FormatUint(uint64(id.X), 10),
			fmt.Sprintf("%d.%s", id.Y, ext),
		)
	}
}

// ParsePath resolves a relative tile path, minus its extension, back to
// an address. It is the inverse of Path. Paths whose column or row do
// not fit the zoom level are rejected rather than silently wrapped.
func ParsePath(s Scheme, rel string) (tile.ID, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")

	want := 3
	if s == WMS {
		want = 7
	}
	if len(parts) != want {
		return tile.ID{}, fmt.Errorf("scheme: %q is not a %s tile path", rel, s)
	}

	n := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return tile.ID{}, fmt.Errorf("scheme: %q is not a %s tile path: %w", rel, s, err)
		}
		n[i] = uint32(v)
	}

	var id tile.ID
	switch s {
	case WMS:
		id = tile.ID{
			Z: n[0],
			X: n[1]*1000000 + n[2]*1000 + n[3],
			Y: n[4]*1000000 + n[5]*1000 + n[6],
		}
	default:
		id = tile.ID{Z: n[0], X: n[1], Y: n[2]}
	}

	if !id.Valid() {
		return tile.ID{}, fmt.Errorf("scheme: %s out of range for zoom %d", id, id.Z)
	}
	if s == XYZ {
		id.Y = FlipY(id.Z, id.Y)
	}
	return id, nil
}
