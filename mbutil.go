/*
Package mbutil converts tiled-map datasets between an MBTiles container
and a directory tree holding one file per tile, in either direction.
*/
package mbutil

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"

	"github.com/smellman/mbutil/format"
	"github.com/smellman/mbutil/scheme"
)

// Options control a single conversion run.
type Options struct {
	// Scheme selects the external addressing convention for the
	// directory tree. Defaults to xyz.
	Scheme scheme.Scheme

	// Format is the declared tile format of the dataset. Unknown means
	// sniff each payload instead.
	Format format.Format

	// Callback is the JSONP callback name wrapped around exported grid
	// files. Empty disables framing and emits raw JSON.
	Callback string

	// Compression zlib-compresses stored tile payloads on import.
	Compression bool

	// Deduplicate restructures the container after import so identical
	// payloads are stored once.
	Deduplicate bool

	// Lenient skips unreadable or inconsistent tiles with a warning
	// instead of aborting the run.
	Lenient bool

	// Silent dampens progress reporting. It never changes the failure
	// policy.
	Silent bool

	// BatchSize is the number of container writes per transaction.
	BatchSize int
}

// Converter drives conversions between the two representations.
type Converter struct {
	opts Options
	log  *logrus.Logger
	run  string
}

// New returns a Converter for the given options. A nil logger discards
// all output.
func New(opts Options, logger *logrus.Logger) *Converter {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if opts.Scheme == "" {
		opts.Scheme = scheme.XYZ
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	id, _ := shortid.Generate()
	return &Converter{opts: opts, log: logger, run: id}
}
