/*
Package tile defines the tile addressing used throughout mbutil.

Addresses follow the MBTiles convention: the row origin is at the
bottom-left corner of the world, so row 0 is the southernmost row of a
zoom level. Schemes that count rows from the top (xyz) flip the row on
the way in and out.
*/
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the highest zoom level with a representable tile count.
const MaxZoom = 30

// ID addresses a single tile within a tileset.
type ID struct {
	Z, X, Y uint32
}

// Valid reports whether the column and row fit within the tile count of
// the zoom level.
func (id ID) Valid() bool {
	if id.Z > MaxZoom {
		return false
	}
	n := uint32(1) << id.Z
	return id.X < n && id.Y < n
}

func (id ID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// Maptile returns the equivalent tile in the top-left row convention
// used by the maptile package.
func (id ID) Maptile() maptile.Tile {
	return maptile.New(id.X, (1<<id.Z)-id.Y-1, maptile.Zoom(id.Z))
}

// Bound returns the geographic extent the tile covers.
func (id ID) Bound() orb.Bound {
	return id.Maptile().Bound()
}

// Record pairs an address with its raw payload while it travels from a
// reader to a writer. Records are not retained once written.
type Record struct {
	ID   ID
	Data []byte
}
