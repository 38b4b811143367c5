package mbutil

import (
	"crypto/sha1"
	"database/sql"

	"github.com/smellman/mbutil/tile"
)

// Deduplicate rewrites the tiles table into separate images and map
// tables joined back together by a view, so that identical payloads
// (ocean tiles, blank tiles) are stored once. The tiles view keeps the
// container readable by anything that queried the table.
func (m *MBTiles) Deduplicate(chunk int) error {
	if err := m.commit(); err != nil {
		return err
	}
	if chunk <= 0 {
		chunk = DefaultBatchSize
	}

	for _, q := range []string{
		"CREATE TABLE IF NOT EXISTS images (tile_data blob, tile_id integer)",
		"CREATE TABLE IF NOT EXISTS map (zoom_level integer, tile_column integer, tile_row integer, tile_id integer)",
	} {
		if _, err := m.db.Exec(q); err != nil {
			return err
		}
	}

	// Replaced tiles leave rowid gaps, so window over the real range
	// rather than the row count.
	var maxID sql.NullInt64
	if err := m.db.QueryRow("SELECT max(rowid) FROM tiles").Scan(&maxID); err != nil {
		return err
	}

	seen := make(map[[sha1.Size]byte]int64)
	var lastID int64

	type row struct {
		id   tile.ID
		data []byte
	}

	// Work rowid windows so each chunk is fully read before any write
	// happens on the single connection.
	for offset := int64(0); offset < maxID.Int64; offset += int64(chunk) {
		buf := make([]row, 0, chunk)

		rows, err := m.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles WHERE rowid > ? AND rowid <= ?", offset, offset+int64(chunk))
		if err != nil {
			return err
		}
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id.Z, &r.id.X, &r.id.Y, &r.data); err != nil {
				rows.Close()
				return err
			}
			buf = append(buf, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(buf) == 0 {
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return err
		}
		for _, r := range buf {
			digest := sha1.Sum(r.data)
			id, ok := seen[digest]
			if !ok {
				lastID++
				id = lastID
				seen[digest] = id
				if _, err := tx.Exec("INSERT INTO images (tile_id, tile_data) VALUES (?, ?)", id, r.data); err != nil {
					tx.Rollback()
					return err
				}
			}
			if _, err := tx.Exec("INSERT INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, ?)", r.id.Z, r.id.X, r.id.Y, id); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	for _, q := range []string{
		"DROP TABLE tiles",
		"CREATE VIEW tiles AS SELECT map.zoom_level AS zoom_level, map.tile_column AS tile_column, map.tile_row AS tile_row, images.tile_data AS tile_data FROM map JOIN images ON images.tile_id = map.tile_id",
		"CREATE UNIQUE INDEX map_index ON map (zoom_level, tile_column, tile_row)",
		"CREATE UNIQUE INDEX images_id ON images (tile_id)",
	} {
		if _, err := m.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}
