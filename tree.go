package mbutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/smellman/mbutil/metadata"
	"github.com/smellman/mbutil/scheme"
	"github.com/smellman/mbutil/tile"
)

const (
	metadataFilename = "metadata.json"
	layerFilename    = "layer.json"
	gridSuffix       = ".grid.json"
)

// TreeWriter populates the directory-tree representation of a tileset.
type TreeWriter struct {
	root   string
	scheme scheme.Scheme
}

// NewTreeWriter prepares dir as an export destination. The destination
// must not exist yet, or be an empty directory; exports never merge
// into existing output.
func NewTreeWriter(dir string, s scheme.Scheme) (*TreeWriter, error) {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return nil, &PreconditionError{Path: dir, Reason: "destination exists and is not a directory"}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return nil, &PreconditionError{Path: dir, Reason: "destination directory is not empty"}
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TreeWriter{root: dir, scheme: s}, nil
}

// WriteMetadata writes metadata.json at the tree root, plus layer.json
// when the document carries an interactivity formatter.
func (w *TreeWriter) WriteMetadata(doc *metadata.Document) error {
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.root, metadataFilename), b, 0o644); err != nil {
		return err
	}

	if f, ok := doc.Get("formatter"); ok {
		lb, err := json.Marshal(map[string]string{"formatter": f})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(w.root, layerFilename), lb, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (w *TreeWriter) write(rel string, data []byte) error {
	full := filepath.Join(w.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// WriteTile writes one tile file under the active scheme's layout.
func (w *TreeWriter) WriteTile(rec tile.Record, ext string) error {
	return w.write(scheme.Path(w.scheme, rec.ID, ext), rec.Data)
}

// WriteGrid writes the sibling .grid.json file for a tile coordinate.
func (w *TreeWriter) WriteGrid(id tile.ID, data []byte) error {
	return w.write(scheme.Path(w.scheme, id, "grid.json"), data)
}

// TreeReader walks the directory-tree representation of a tileset.
type TreeReader struct {
	root   string
	scheme scheme.Scheme
}

// NewTreeReader opens dir as an import source.
func NewTreeReader(dir string, s scheme.Scheme) (*TreeReader, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &PreconditionError{Path: dir, Reason: "source is not a directory"}
	}
	return &TreeReader{root: dir, scheme: s}, nil
}

// Metadata loads metadata.json from the tree root. A missing file
// yields an empty document; malformed JSON is fatal.
func (r *TreeReader) Metadata() (*metadata.Document, error) {
	doc := metadata.New()
	path := filepath.Join(r.root, metadataFilename)

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	return doc, nil
}

// Entry is one leaf file found during a walk.
type Entry struct {
	ID   tile.ID
	Path string
	Ext  string
	Grid bool
}

// Walk visits every tile and grid leaf file under the root in
// filesystem order, resolving each path back to an address. Paths that
// do not resolve are handed to fn with a TileError so the caller can
// apply its failure policy; fn returning an error aborts the walk.
func (r *TreeReader) Walk(fn func(e Entry, err error) error) error {
	return filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Ignore hidden files and directories, .DS_Store included.
		if path != r.root && info.Name()[0] == '.' {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		if rel == metadataFilename || rel == layerFilename {
			return nil
		}

		name := filepath.ToSlash(rel)
		e := Entry{Path: path}
		var trimmed string
		if strings.HasSuffix(name, gridSuffix) {
			e.Grid = true
			trimmed = strings.TrimSuffix(name, gridSuffix)
		} else {
			ext := filepath.Ext(name)
			e.Ext = strings.TrimPrefix(ext, ".")
			trimmed = strings.TrimSuffix(name, ext)
		}

		id, perr := scheme.ParsePath(r.scheme, trimmed)
		if perr != nil {
			return fn(e, &TileError{Path: path, Err: perr})
		}
		e.ID = id
		return fn(e, nil)
	})
}
