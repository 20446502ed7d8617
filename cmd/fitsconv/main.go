// Command fitsconv converts PNG, JPEG, GIF, TIFF, BMP and WebP images into
// FITS files and prints the headers of existing FITS files.
//
// Usage:
//
//	fitsconv [-c gzip] [-o out.fits] [-meta meta.yaml] [-overwrite] [-float] [-v] input...
//	fitsconv -inspect file.fits...
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/arloliu/fitsimg"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/pixbuf"
	"github.com/arloliu/fitsimg/serializer"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	osFS, err := fsys.OS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fitsconv: %v\n", err)
		os.Exit(exitError)
	}

	os.Exit(run(os.Args[1:], osFS, time.Now, os.Stdout, os.Stderr))
}

type cliFlags struct {
	compression string
	output      string
	meta        string
	overwrite   bool
	verbose     bool
	inspect     bool
	float       bool
	tileRows    int
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, []string, error) {
	var cf cliFlags

	fl := flag.NewFlagSet("fitsconv", flag.ContinueOnError)
	fl.SetOutput(stderr)
	fl.StringVar(&cf.compression, "c", "none", "compression: none, gzip, rice, hcompress, hscompress, bzip2, plio")
	fl.StringVar(&cf.output, "o", "", "output path, single input only (default: input with .fits extension)")
	fl.StringVar(&cf.meta, "meta", "", "YAML metadata sidecar applied to every input")
	fl.BoolVar(&cf.overwrite, "overwrite", false, "replace existing output files")
	fl.BoolVar(&cf.verbose, "v", false, "debug logging")
	fl.BoolVar(&cf.inspect, "inspect", false, "print the headers of the given FITS files")
	fl.BoolVar(&cf.float, "float", false, "store RGB and RGBA inputs as 32-bit float samples")
	fl.IntVar(&cf.tileRows, "tile-rows", 0, "image rows per compressed tile (0: default)")

	if err := fl.Parse(args); err != nil {
		return cf, nil, err
	}

	inputs := fl.Args()
	if len(inputs) == 0 {
		return cf, nil, errors.New("no input files")
	}
	if cf.output != "" && len(inputs) > 1 {
		return cf, nil, errors.New("-o requires a single input")
	}

	return cf, inputs, nil
}

func run(args []string, fs fsys.FS, now func() time.Time, stdout, stderr io.Writer) int {
	cf, inputs, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "fitsconv:", err)
		}

		return exitUsage
	}

	level := slog.LevelInfo
	if cf.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cf.inspect {
		for _, in := range inputs {
			if err := inspect(stdout, fs, in); err != nil {
				logger.Error("inspect failed", slog.String("file", in), slog.Any("error", err))
				return exitError
			}
		}

		return exitOK
	}

	comp, err := fitsimg.Compression(cf.compression)
	if err != nil {
		fmt.Fprintln(stderr, "fitsconv:", err)
		return exitUsage
	}

	var meta *pixbuf.Metadata
	if cf.meta != "" {
		if meta, err = loadMetadata(fs, cf.meta); err != nil {
			logger.Error("loading metadata failed", slog.String("file", cf.meta), slog.Any("error", err))
			return exitError
		}
	}

	s, err := serializer.New(
		serializer.WithFS(fs),
		serializer.WithClock(now),
		serializer.WithLogger(logger),
		serializer.WithTileRows(cf.tileRows),
	)
	if err != nil {
		fmt.Fprintln(stderr, "fitsconv:", err)
		return exitUsage
	}

	conv := converter{s: s, fs: fs, logger: logger, comp: comp, meta: meta, overwrite: cf.overwrite, float: cf.float}

	code := exitOK
	for _, in := range inputs {
		out := cf.output
		if out == "" {
			out = in
		}

		name, err := conv.convert(in, out)
		if err != nil {
			logger.Error("conversion failed", slog.String("input", in), slog.Any("error", err))
			code = exitError

			continue
		}
		fmt.Fprintln(stdout, name)
	}

	return code
}

type converter struct {
	s         *serializer.Serializer
	fs        fsys.FS
	logger    *slog.Logger
	comp      format.CompressionType
	meta      *pixbuf.Metadata
	overwrite bool
	float     bool
}

// convert decodes one input image and saves it to out. The metadata is
// cloned per image so a shared sidecar is never aliased.
func (c converter) convert(in, out string) (string, error) {
	f, err := fsys.Open(c.fs, in)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, kind, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", in, err)
	}

	img := pixbuf.FromImage(src)
	if c.float {
		if f := pixbuf.ToFloat(img); f != nil {
			img = f
		}
	}
	img.SetMetadata(c.meta.Clone())

	c.logger.Debug("decoded image",
		slog.String("input", in),
		slog.String("kind", kind),
		slog.String("pixel_format", img.Format().String()),
	)

	return c.s.Save(img, c.comp, out, c.overwrite)
}
