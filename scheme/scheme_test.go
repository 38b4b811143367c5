package scheme

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smellman/mbutil/tile"
)

func TestParse(t *testing.T) {
	for _, name := range []string{"xyz", "tms", "wms"} {
		s, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, Scheme(name), s)
	}

	_, err := Parse("ags")
	assert.Error(t, err)
}

func TestFlipY(t *testing.T) {
	assert.Equal(t, uint32(0), FlipY(0, 0))
	assert.Equal(t, uint32(3), FlipY(2, 0))
	assert.Equal(t, uint32(0), FlipY(2, 3))

	// The flip is its own inverse.
	assert.Equal(t, uint32(5), FlipY(4, FlipY(4, 5)))
}

func TestPath(t *testing.T) {
	id := tile.ID{Z: 2, X: 1, Y: 0}

	assert.Equal(t, filepath.Join("2", "1", "3.png"), Path(XYZ, id, "png"))
	assert.Equal(t, filepath.Join("2", "1", "0.png"), Path(TMS, id, "png"))
	assert.Equal(t,
		filepath.Join("02", "000", "000", "001", "000", "000", "000.png"),
		Path(WMS, id, "png"))
}

func TestPathWMSChunks(t *testing.T) {
	id := tile.ID{Z: 22, X: 1234567, Y: 7654321}
	assert.Equal(t,
		filepath.Join("22", "001", "234", "567", "007", "654", "321.png"),
		Path(WMS, id, "png"))
}

func TestParsePathRoundTrip(t *testing.T) {
	ids := []tile.ID{
		{Z: 0, X: 0, Y: 0},
		{Z: 1, X: 1, Y: 0},
		{Z: 7, X: 100, Y: 27},
		{Z: 22, X: 1234567, Y: 7654321},
	}
	for _, s := range []Scheme{XYZ, TMS, WMS} {
		for _, id := range ids {
			p := Path(s, id, "png")
			trimmed := p[:len(p)-len(".png")]
			got, err := ParsePath(s, trimmed)
			require.NoError(t, err, "%s %s", s, p)
			assert.Equal(t, id, got, "%s %s", s, p)
		}
	}
}

func TestParsePathRejectsOutOfRange(t *testing.T) {
	// Column 5 does not exist at zoom 2.
	_, err := ParsePath(TMS, filepath.ToSlash(filepath.Join("2", "5", "0")))
	assert.Error(t, err)

	// Neither does external row 4 under xyz.
	_, err = ParsePath(XYZ, "2/0/4")
	assert.Error(t, err)
}

func TestParsePathRejectsGarbage(t *testing.T) {
	for _, rel := range []string{"a/b/c", "1/2", "1/2/3/4", "1/-2/3"} {
		_, err := ParsePath(TMS, rel)
		assert.Error(t, err, rel)
	}

	_, err := ParsePath(WMS, "02/000/000/001/000/000")
	assert.Error(t, err)
}
