package mbutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/smellman/mbutil/format"
	"github.com/smellman/mbutil/grid"
	"github.com/smellman/mbutil/metadata"
	"github.com/smellman/mbutil/payload"
	"github.com/smellman/mbutil/tile"
)

var errOutOfRange = errors.New("address out of range for zoom")

// tileProblem applies the per-tile failure policy: abort the run by
// default, skip with a warning when running lenient.
func (c *Converter) tileProblem(lg *logrus.Entry, terr *TileError, skipped *int64) error {
	if !c.opts.Lenient {
		return terr
	}
	*skipped++
	lg.Warnf("skipping %v", terr)
	return nil
}

// exportExt returns the file extension for exported tiles, or "" when
// the format is undeclared and each payload should be sniffed instead.
func (c *Converter) exportExt(doc *metadata.Document) string {
	if c.opts.Format != format.Unknown {
		return c.opts.Format.Ext()
	}
	if v, ok := doc.Get("format"); ok {
		if f, err := format.Parse(v); err == nil {
			return f.Ext()
		}
	}
	return ""
}

func (c *Converter) progress(total int64) *pb.ProgressBar {
	if c.opts.Silent {
		return nil
	}
	bar := pb.New64(total).Prefix("tiles ")
	bar.SetRefreshRate(time.Second)
	bar.Start()
	return bar
}

// Export streams every tile and grid in the container at src into a new
// directory tree at dst. The metadata document is written first; tiles
// follow one at a time, so memory use stays flat no matter the dataset
// size.
func (c *Converter) Export(src, dst string) error {
	lg := c.log.WithFields(logrus.Fields{"run": c.run, "src": src, "dst": dst})
	lg.Info("exporting mbtiles to disk")

	db, err := OpenMBTiles(src)
	if err != nil {
		return err
	}
	defer db.Close()

	w, err := NewTreeWriter(dst, c.opts.Scheme)
	if err != nil {
		return err
	}

	doc, err := db.Metadata()
	if err != nil {
		return err
	}
	if err := w.WriteMetadata(doc); err != nil {
		return err
	}
	if b, ok := doc.Bounds(); ok {
		lg.Infof("dataset bounds %v, center %v", b, b.Center())
	}

	ext := c.exportExt(doc)

	total, err := db.TileCount()
	if err != nil {
		return err
	}
	bar := c.progress(total)

	rows, err := db.Tiles()
	if err != nil {
		return err
	}
	defer rows.Close()

	var done, skipped int64
	for rows.Next() {
		rec, err := rows.Record()
		if err != nil {
			return err
		}
		if bar != nil {
			bar.Increment()
		}

		if !rec.ID.Valid() {
			if err := c.tileProblem(lg, &TileError{ID: rec.ID, Err: errOutOfRange}, &skipped); err != nil {
				return err
			}
			continue
		}

		data, err := payload.Decode(rec.Data)
		if err != nil {
			if err := c.tileProblem(lg, &TileError{ID: rec.ID, Err: err}, &skipped); err != nil {
				return err
			}
			continue
		}
		rec.Data = data

		e := ext
		if e == "" {
			e = format.Detect(rec.Data).Ext()
		}
		if err := w.WriteTile(rec, e); err != nil {
			return err
		}
		done++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}
	lg.Infof("%d / %d tiles exported", done, total)

	return c.exportGrids(lg, db, w)
}

func (c *Converter) exportGrids(lg *logrus.Entry, db *MBTiles, w *TreeWriter) error {
	ok, err := db.HasGrids()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	total, err := db.GridCount()
	if err != nil {
		return err
	}

	rows, err := db.Grids()
	if err != nil {
		return err
	}
	defer rows.Close()

	var done, skipped int64
	for rows.Next() {
		id, blob, err := rows.Grid()
		if err != nil {
			return err
		}
		if !id.Valid() {
			if err := c.tileProblem(lg, &TileError{ID: id, Err: errOutOfRange}, &skipped); err != nil {
				return err
			}
			continue
		}

		data, err := db.GridData(id)
		if err != nil {
			return err
		}
		raw, err := grid.Unpack(blob, data)
		if err != nil {
			if err := c.tileProblem(lg, &TileError{ID: id, Err: err}, &skipped); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteGrid(id, grid.Wrap(raw, c.opts.Callback)); err != nil {
			return err
		}
		done++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if done > 0 || total > 0 {
		lg.Infof("%d / %d grids exported", done, total)
	}
	return nil
}

// Import walks the directory tree at src and loads it into a newly
// created container at dst. Metadata is transferred first; a computed
// bounds value is appended afterwards when the document lacks one.
func (c *Converter) Import(src, dst string) error {
	lg := c.log.WithFields(logrus.Fields{"run": c.run, "src": src, "dst": dst})
	lg.Info("importing disk to mbtiles")

	r, err := NewTreeReader(src, c.opts.Scheme)
	if err != nil {
		return err
	}

	doc, err := r.Metadata()
	if err != nil {
		return err
	}

	db, err := CreateMBTiles(dst, c.opts.BatchSize)
	if err != nil {
		return err
	}
	defer db.Close()

	if doc.Len() == 0 {
		lg.Warn("metadata.json not found, container metadata will be empty")
	} else {
		lg.Info("metadata from metadata.json restored")
	}
	if err := db.WriteMetadata(doc); err != nil {
		return err
	}

	declared := c.opts.Format

	var count, grids, skipped int64
	var bound orb.Bound
	haveBound := false
	start := time.Now()

	if err := r.Walk(func(e Entry, werr error) error {
		if werr != nil {
			// Stray files with a foreign extension are not tiles at
			// all; everything else goes through the failure policy.
			if !e.Grid && declared != format.Unknown && e.Ext != declared.Ext() {
				lg.Debugf("ignoring %s", e.Path)
				return nil
			}
			var terr *TileError
			if errors.As(werr, &terr) {
				return c.tileProblem(lg, terr, &skipped)
			}
			return werr
		}

		data, err := os.ReadFile(e.Path)
		if err != nil {
			return c.tileProblem(lg, &TileError{ID: e.ID, Path: e.Path, Err: err}, &skipped)
		}

		if e.Grid {
			blob, gdata, err := grid.Pack(grid.Unwrap(data))
			if err != nil {
				return c.tileProblem(lg, &TileError{ID: e.ID, Path: e.Path, Err: err}, &skipped)
			}
			if err := db.WriteGrid(e.ID, blob, gdata); err != nil {
				return err
			}
			grids++
			return nil
		}

		if declared != format.Unknown && e.Ext != declared.Ext() {
			lg.Debugf("ignoring %s", e.Path)
			return nil
		}
		if sniffed := format.Detect(data); declared != format.Unknown && sniffed != format.Unknown && !sniffed.Matches(declared) {
			mismatch := fmt.Errorf("payload is %s, dataset format is %s", sniffed, declared)
			return c.tileProblem(lg, &TileError{ID: e.ID, Path: e.Path, Err: mismatch}, &skipped)
		}

		enc, err := payload.Encode(data, c.opts.Compression)
		if err != nil {
			return err
		}
		if err := db.WriteTile(tile.Record{ID: e.ID, Data: enc}); err != nil {
			return err
		}

		if b := e.ID.Bound(); haveBound {
			bound = bound.Union(b)
		} else {
			bound, haveBound = b, true
		}

		count++
		if count%100 == 0 && !c.opts.Silent {
			lg.Infof("%d tiles inserted (%.0f tiles/sec)", count, float64(count)/time.Since(start).Seconds())
		}
		return nil
	}); err != nil {
		return err
	}

	if _, ok := doc.Get("bounds"); !ok && haveBound {
		lg.Debugf("computed dataset bounds %s", metadata.FormatBounds(bound))
		if err := db.WriteMetadataValue("bounds", metadata.FormatBounds(bound)); err != nil {
			return err
		}
	}

	if c.opts.Deduplicate {
		lg.Info("deduplicating tile payloads")
		if err := db.Deduplicate(c.opts.BatchSize); err != nil {
			return err
		}
	}

	if err := db.Finalize(); err != nil {
		return err
	}
	lg.Infof("%d tiles and %d grids imported (%d skipped)", count, grids, skipped)
	return nil
}

// DumpMetadata prints the container's metadata document as indented
// JSON without touching any tiles.
func (c *Converter) DumpMetadata(src string, out io.Writer) error {
	db, err := OpenMBTiles(src)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.Metadata()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
