package main

import (
	"fmt"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/smellman/mbutil"
	"github.com/smellman/mbutil/format"
	"github.com/smellman/mbutil/scheme"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(silent, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	l.SetOutput(ansicolor.NewAnsiColorWriter(os.Stderr))
	switch {
	case silent:
		l.SetLevel(logrus.ErrorLevel)
	case verbose:
		l.SetLevel(logrus.DebugLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func main() {
	app := cli.NewApp()

	app.Name = "mbutil"
	app.Usage = "import and export MBTiles tile containers"
	app.Version = "1.0.0"
	app.ArgsUsage = "INPUT OUTPUT"
	app.Description = `Export an mbtiles file to a directory of files:

   mbutil world.mbtiles tiles

The output directory must not already exist. Import works the other
way around, and the mbtiles file must not already exist:

   mbutil tiles world.mbtiles

An output literally named "dumps" prints the metadata document instead
of exporting any tiles:

   mbutil world.mbtiles dumps`

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "scheme",
			Value: "xyz",
			Usage: "tiling scheme: xyz (flipped y), tms, or wms (TileCache directory layout)",
		},
		&cli.StringFlag{
			Name:  "image_format",
			Value: "png",
			Usage: "format of the tile images: png, jpg, webp, pbf or mvt",
		},
		&cli.StringFlag{
			Name:  "grid_callback",
			Value: "grid",
			Usage: "JSONP callback for UTFGrid tiles, set to \"\" to emit raw JSON",
		},
		&cli.BoolFlag{
			Name:  "do_compression",
			Usage: "compress stored tile payloads on import",
		},
		&cli.BoolFlag{
			Name:  "deduplicate",
			Usage: "store identical tile payloads only once on import",
		},
		&cli.BoolFlag{
			Name:  "lenient",
			Usage: "skip unreadable or mismatched tiles instead of aborting",
		},
		&cli.BoolFlag{
			Name:  "silent",
			Usage: "only report errors",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() != 2 {
			cli.ShowAppHelpAndExit(c, 1)
		}

		s, err := scheme.Parse(c.String("scheme"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		f, err := format.Parse(c.String("image_format"))
		if err != nil {
			return cli.Exit(err, 1)
		}

		conv := mbutil.New(mbutil.Options{
			Scheme:      s,
			Format:      f,
			Callback:    c.String("grid_callback"),
			Compression: c.Bool("do_compression"),
			Deduplicate: c.Bool("deduplicate"),
			Lenient:     c.Bool("lenient"),
			Silent:      c.Bool("silent"),
		}, newLogger(c.Bool("silent"), c.Bool("verbose")))

		input, output := c.Args().Get(0), c.Args().Get(1)

		switch {
		case isFile(input) && output == "dumps":
			err = conv.DumpMetadata(input, os.Stdout)
		case isFile(input):
			err = conv.Export(input, output)
		case isDir(input):
			err = conv.Import(input, output)
		default:
			err = fmt.Errorf("%s: no such file or directory", input)
		}
		if err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
