package mbutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smellman/mbutil/metadata"
	"github.com/smellman/mbutil/tile"
)

// DefaultBatchSize is the number of writes grouped into a single
// transaction. Purely a throughput knob, not a correctness requirement.
const DefaultBatchSize = 256

// MBTiles is the concrete adapter for the container store, backed by a
// SQLite file.
type MBTiles struct {
	db   *sql.DB
	path string

	tx    *sql.Tx
	batch int
	limit int
}

// OpenMBTiles opens an existing container for reading.
func OpenMBTiles(path string) (*MBTiles, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PreconditionError{Path: path, Reason: "no such mbtiles file"}
	}
	if info.IsDir() {
		return nil, &PreconditionError{Path: path, Reason: "not an mbtiles file"}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	return &MBTiles{db: db, path: path}, nil
}

// CreateMBTiles creates a new container and its schema. The destination
// must not already exist.
func CreateMBTiles(path string, batch int) (*MBTiles, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &PreconditionError{Path: path, Reason: "destination already exists"}
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_synchronous=OFF&_journal_mode=DELETE&_locking_mode=EXCLUSIVE", path))
	if err != nil {
		return nil, err
	}
	// All writes go through one connection so batched transactions and
	// the exclusive lock behave.
	db.SetMaxOpenConns(1)

	m := &MBTiles{db: db, path: path, limit: batch}
	if err := m.setup(); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return m, nil
}

func (m *MBTiles) setup() error {
	for _, q := range []string{
		"CREATE TABLE tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob)",
		"CREATE TABLE metadata (name text, value text)",
		"CREATE TABLE grids (zoom_level integer, tile_column integer, tile_row integer, grid blob)",
		"CREATE TABLE grid_data (zoom_level integer, tile_column integer, tile_row integer, key_name text, key_json text)",
		"CREATE UNIQUE INDEX name ON metadata (name)",
		"CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)",
	} {
		if _, err := m.db.Exec(q); err != nil {
			return &FormatError{Path: m.path, Err: err}
		}
	}
	return nil
}

// Close rolls back any uncommitted batch and closes the container.
func (m *MBTiles) Close() error {
	if m.tx != nil {
		m.tx.Rollback()
		m.tx = nil
	}
	return m.db.Close()
}

// Metadata reads the metadata table into an ordered document.
func (m *MBTiles) Metadata() (*metadata.Document, error) {
	rows, err := m.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, &FormatError{Path: m.path, Err: err}
	}
	defer rows.Close()

	doc := metadata.New()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		doc.Set(name, value)
	}
	return doc, rows.Err()
}

// TileCount returns the number of tiles in the container.
func (m *MBTiles) TileCount() (int64, error) {
	var n int64
	err := m.db.QueryRow("SELECT count(zoom_level) FROM tiles").Scan(&n)
	return n, err
}

// TileRows is a single-pass cursor over the tiles table.
type TileRows struct {
	rows *sql.Rows
}

// Tiles streams every tile in ascending zoom, column, row order. The
// ordering keeps runs reproducible; consumers do not depend on it.
func (m *MBTiles) Tiles() (*TileRows, error) {
	rows, err := m.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles ORDER BY zoom_level, tile_column, tile_row")
	if err != nil {
		return nil, &FormatError{Path: m.path, Err: err}
	}
	return &TileRows{rows: rows}, nil
}

func (r *TileRows) Next() bool {
	return r.rows.Next()
}

func (r *TileRows) Record() (tile.Record, error) {
	var rec tile.Record
	err := r.rows.Scan(&rec.ID.Z, &rec.ID.X, &rec.ID.Y, &rec.Data)
	return rec, err
}

func (r *TileRows) Err() error {
	return r.rows.Err()
}

func (r *TileRows) Close() error {
	return r.rows.Close()
}

// HasGrids reports whether the container carries a grids table at all.
// Tilesets without interactivity simply omit it.
func (m *MBTiles) HasGrids() (bool, error) {
	var name string
	switch err := m.db.QueryRow("SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = 'grids'").Scan(&name); err {
	case sql.ErrNoRows:
		return false, nil
	case nil:
		return true, nil
	default:
		return false, err
	}
}

// GridCount returns the number of grid rows in the container.
func (m *MBTiles) GridCount() (int64, error) {
	var n int64
	err := m.db.QueryRow("SELECT count(zoom_level) FROM grids").Scan(&n)
	return n, err
}

// GridRows is a single-pass cursor over the grids table.
type GridRows struct {
	rows *sql.Rows
}

// Grids streams every grid blob in the same deterministic order as
// Tiles.
func (m *MBTiles) Grids() (*GridRows, error) {
	rows, err := m.db.Query("SELECT zoom_level, tile_column, tile_row, grid FROM grids ORDER BY zoom_level, tile_column, tile_row")
	if err != nil {
		return nil, &FormatError{Path: m.path, Err: err}
	}
	return &GridRows{rows: rows}, nil
}

func (r *GridRows) Next() bool {
	return r.rows.Next()
}

func (r *GridRows) Grid() (tile.ID, []byte, error) {
	var id tile.ID
	var blob []byte
	err := r.rows.Scan(&id.Z, &id.X, &id.Y, &blob)
	return id, blob, err
}

func (r *GridRows) Err() error {
	return r.rows.Err()
}

func (r *GridRows) Close() error {
	return r.rows.Close()
}

// GridData returns the key/json associations stored for one grid.
func (m *MBTiles) GridData(id tile.ID) (map[string]json.RawMessage, error) {
	rows, err := m.db.Query("SELECT key_name, key_json FROM grid_data WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", id.Z, id.X, id.Y)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, js string
		if err := rows.Scan(&name, &js); err != nil {
			return nil, err
		}
		data[name] = json.RawMessage(js)
	}
	return data, rows.Err()
}

func (m *MBTiles) begin() (*sql.Tx, error) {
	if m.tx == nil {
		tx, err := m.db.Begin()
		if err != nil {
			return nil, err
		}
		m.tx = tx
	}
	return m.tx, nil
}

func (m *MBTiles) commit() error {
	if m.tx == nil {
		return nil
	}
	err := m.tx.Commit()
	m.tx = nil
	m.batch = 0
	return err
}

func (m *MBTiles) stepBatch() error {
	m.batch++
	if m.batch >= m.limit {
		return m.commit()
	}
	return nil
}

// WriteMetadata stores the document as individual metadata rows, in
// document order.
func (m *MBTiles) WriteMetadata(doc *metadata.Document) error {
	return doc.Each(m.WriteMetadataValue)
}

// WriteMetadataValue upserts a single metadata row.
func (m *MBTiles) WriteMetadataValue(name, value string) error {
	tx, err := m.begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
		return err
	}
	return m.stepBatch()
}

// WriteTile stores one tile, replacing any previous payload at the same
// address so that re-seeing a coordinate is harmless regardless of
// traversal order.
func (m *MBTiles) WriteTile(rec tile.Record) error {
	tx, err := m.begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)", rec.ID.Z, rec.ID.X, rec.ID.Y, rec.Data); err != nil {
		return err
	}
	return m.stepBatch()
}

// WriteGrid stores the compressed grid blob and its per-key data rows.
func (m *MBTiles) WriteGrid(id tile.ID, blob []byte, data map[string]json.RawMessage) error {
	tx, err := m.begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO grids (zoom_level, tile_column, tile_row, grid) VALUES (?, ?, ?, ?)", id.Z, id.X, id.Y, blob); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM grid_data WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", id.Z, id.X, id.Y); err != nil {
		return err
	}
	for name, js := range data {
		if _, err := tx.Exec("INSERT INTO grid_data (zoom_level, tile_column, tile_row, key_name, key_json) VALUES (?, ?, ?, ?, ?)", id.Z, id.X, id.Y, name, string(js)); err != nil {
			return err
		}
	}
	return m.stepBatch()
}

// Finalize commits any open batch and compacts the container.
func (m *MBTiles) Finalize() error {
	if err := m.commit(); err != nil {
		return err
	}
	for _, q := range []string{"ANALYZE", "VACUUM"} {
		if _, err := m.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
