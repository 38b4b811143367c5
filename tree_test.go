package mbutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smellman/mbutil/metadata"
	"github.com/smellman/mbutil/scheme"
	"github.com/smellman/mbutil/tile"
)

func TestNewTreeWriterPreconditions(t *testing.T) {
	base := t.TempDir()

	// Fresh path: created.
	_, err := NewTreeWriter(filepath.Join(base, "out"), scheme.XYZ)
	assert.NoError(t, err)

	// Existing but empty: allowed.
	empty := filepath.Join(base, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = NewTreeWriter(empty, scheme.XYZ)
	assert.NoError(t, err)

	// Existing and non-empty: refused before anything is written.
	full := filepath.Join(base, "full")
	require.NoError(t, os.Mkdir(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, "stale"), nil, 0o644))
	var perr *PreconditionError
	_, err = NewTreeWriter(full, scheme.XYZ)
	require.ErrorAs(t, err, &perr)

	// A plain file is no destination either.
	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewTreeWriter(file, scheme.XYZ)
	assert.ErrorAs(t, err, &perr)
}

func TestTreeWriterMetadataAndLayer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewTreeWriter(dir, scheme.XYZ)
	require.NoError(t, err)

	doc := metadata.New()
	doc.Set("name", "world")
	require.NoError(t, w.WriteMetadata(doc))

	assert.FileExists(t, filepath.Join(dir, "metadata.json"))
	assert.NoFileExists(t, filepath.Join(dir, "layer.json"))

	doc.Set("formatter", "function(o) { return o.NAME; }")
	require.NoError(t, w.WriteMetadata(doc))
	assert.FileExists(t, filepath.Join(dir, "layer.json"))
}

func TestTreeReaderMetadata(t *testing.T) {
	dir := t.TempDir()
	r, err := NewTreeReader(dir, scheme.XYZ)
	require.NoError(t, err)

	// Missing metadata.json is not fatal.
	doc, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())

	// Malformed metadata.json is.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{"name"`), 0o644))
	var ferr *FormatError
	_, err = r.Metadata()
	require.ErrorAs(t, err, &ferr)
}

func TestTreeReaderRejectsMissingSource(t *testing.T) {
	var perr *PreconditionError
	_, err := NewTreeReader(filepath.Join(t.TempDir(), "nope"), scheme.XYZ)
	assert.ErrorAs(t, err, &perr)
}

func TestWalk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewTreeWriter(dir, scheme.TMS)
	require.NoError(t, err)

	ids := []tile.ID{
		{Z: 0, X: 0, Y: 0},
		{Z: 1, X: 1, Y: 1},
	}
	for i, id := range ids {
		require.NoError(t, w.WriteTile(tile.Record{ID: id, Data: pngData(byte(i))}, "png"))
	}
	require.NoError(t, w.WriteGrid(ids[1], []byte(`{"keys":[]}`)))
	require.NoError(t, w.WriteMetadata(metadata.New()))

	// Clutter that must be ignored outright.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0", ".DS_Store"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "1.png"), nil, 0o644))

	// Clutter that surfaces as an unresolvable path.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0o644))

	r, err := NewTreeReader(dir, scheme.TMS)
	require.NoError(t, err)

	var tiles, grids []tile.ID
	var bad []string
	require.NoError(t, r.Walk(func(e Entry, err error) error {
		if err != nil {
			bad = append(bad, e.Ext)
			return nil
		}
		if e.Grid {
			grids = append(grids, e.ID)
		} else {
			tiles = append(tiles, e.ID)
		}
		return nil
	}))

	assert.ElementsMatch(t, ids, tiles)
	assert.Equal(t, []tile.ID{ids[1]}, grids)
	assert.Equal(t, []string{"txt"}, bad)
}

func TestWalkAbortsWhenCallbackErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewTreeWriter(dir, scheme.XYZ)
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(tile.Record{ID: tile.ID{Z: 0, X: 0, Y: 0}, Data: pngData(0)}, "png"))

	r, err := NewTreeReader(dir, scheme.XYZ)
	require.NoError(t, err)
	err = r.Walk(func(Entry, error) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
}
