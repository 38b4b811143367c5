package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, ID{Z: 0, X: 0, Y: 0}.Valid())
	assert.True(t, ID{Z: 2, X: 3, Y: 3}.Valid())
	assert.False(t, ID{Z: 2, X: 4, Y: 0}.Valid())
	assert.False(t, ID{Z: 2, X: 0, Y: 4}.Valid())
	assert.False(t, ID{Z: MaxZoom + 1}.Valid())
}

func TestString(t *testing.T) {
	assert.Equal(t, "3/2/1", ID{Z: 3, X: 2, Y: 1}.String())
}

func TestMaptileFlipsRow(t *testing.T) {
	// The bottom row of zoom 2 is the top row in the maptile package's
	// convention.
	mt := ID{Z: 2, X: 0, Y: 0}.Maptile()
	assert.Equal(t, uint32(3), mt.Y)
	assert.Equal(t, uint32(0), mt.X)

	mt = ID{Z: 0, X: 0, Y: 0}.Maptile()
	assert.Equal(t, uint32(0), mt.Y)
}

func TestBound(t *testing.T) {
	b := ID{Z: 0, X: 0, Y: 0}.Bound()
	assert.InDelta(t, -180, b.Min[0], 1e-9)
	assert.InDelta(t, 180, b.Max[0], 1e-9)
}
