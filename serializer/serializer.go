// Package serializer saves pixbuf images as FITS files, optionally tile
// compressed.
package serializer

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/fits"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/internal/options"
	"github.com/arloliu/fitsimg/pixbuf"
)

// Header values written by Save.
const (
	ImageExtName   = "IMAGE"
	UnknownCamera  = "unknown"
	DateObsLayout  = "2006-01-02T15:04:05.000000"
	fitsExtension  = "fits"
	markerKeyImage = "COMPRESSED_IMAGE"
	markerKeyAlgo  = "COMPRESSION_ALGO"
)

// Serializer writes images to FITS files. It holds only configuration and
// is safe for concurrent use.
type Serializer struct {
	cfg Config
}

// New creates a Serializer.
//
// Parameters:
//   - opts: WithFS, WithClock, WithLogger and WithTileRows
//
// Returns:
//   - *Serializer: the configured serializer
//   - error: ErrInvalidOption if an option is rejected, ErrFileSystem if the
//     OS filesystem cannot be opened
func New(opts ...Option) (*Serializer, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.fs == nil {
		osFS, err := fsys.OS()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrFileSystem, err)
		}
		cfg.fs = osFS
	}

	return &Serializer{cfg: *cfg}, nil
}

// Save writes img to path and returns the name the file was created under.
//
// The extension of path is replaced by "fits". With CompressionNone the image
// and its metadata go into the primary HDU. Otherwise the primary HDU is
// empty apart from the COMPRESSED_IMAGE and COMPRESSION_ALGO markers and the
// image is stored in a tile-compressed "IMAGE" extension; the returned name
// then carries the "[compress X]" qualifier, e.g. "out.fits[compress G]".
//
// Errors:
//   - ErrPathConflict: path, or with overwrite the ".fits" name derived from
//     it, is an existing directory; nothing was touched
//   - ErrFileSystem: removing the previous file or creating the new one failed
//   - ErrFormatWriter: building HDUs, writing keys or pixels, or flushing failed
//
// The cause is wrapped, so errors.Is also matches it. Nothing is rolled back.
func (s *Serializer) Save(img pixbuf.Image, comp format.CompressionType, path string, overwrite bool) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", errs.ErrInvalidImage)
	}
	if !comp.IsValid() {
		return "", fmt.Errorf("%w: compression %d", errs.ErrFormatWriter, comp)
	}

	fs := s.cfg.fs
	log := s.cfg.logger.With(slog.String("path", path), slog.String("compression", comp.String()))

	if fsys.IsDir(fs, path) {
		return "", fmt.Errorf("%w: %s", errs.ErrPathConflict, path)
	}

	base := WithExtension(path, fitsExtension)
	if overwrite {
		// A compressed file is created under its qualified name, which the
		// writer's own overwrite does not match against an existing file.
		if err := removeIfExists(fs, base); err != nil {
			return "", err
		}
	}

	final := WithExtension(base, comp.Extension())
	desc := ImageDescription(img)

	builder := fits.Create(fs, final).WithTileRows(s.cfg.tileRows)
	if overwrite {
		builder = builder.Overwrite()
	}
	if comp == format.CompressionNone {
		builder = builder.WithCustomPrimary(desc)
	}

	f, err := builder.Open()
	if err != nil {
		return "", classifyCreate(final, err)
	}

	log.Debug("created fits file", slog.Any("dimensions", desc.Dimensions), slog.String("type", desc.Type.String()))

	hdu, err := s.writeHDUs(f, img, comp, desc)
	if err != nil {
		_ = f.Close()
		return "", fmt.Errorf("%w: %s: %w", errs.ErrFormatWriter, final, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", errs.ErrFormatWriter, final, err)
	}

	if hdu.IsCompressed() {
		stats := hdu.Stats()
		log.Info("saved compressed image",
			slog.String("file", final),
			slog.Int("tiles", stats.Tiles),
			slog.Float64("ratio", stats.CompressionRatio()),
			slog.Float64("savings_pct", stats.SpaceSavings()),
		)
	} else {
		log.Info("saved image", slog.String("file", final))
	}

	return final, nil
}

// writeHDUs lays out the HDUs, writes the pixels and the metadata keys and
// returns the HDU holding the image.
func (s *Serializer) writeHDUs(f *fits.File, img pixbuf.Image, comp format.CompressionType, desc fits.ImageDescription) (*fits.HDU, error) {
	hdu := f.PrimaryHDU()

	if comp != format.CompressionNone {
		if err := hdu.WriteKey(markerKeyImage, "T"); err != nil {
			return nil, err
		}
		if err := hdu.WriteKey(markerKeyAlgo, comp.String()); err != nil {
			return nil, err
		}

		var err error
		hdu, err = f.CreateImage(ImageExtName, desc)
		if err != nil {
			return nil, err
		}
	}

	if err := hdu.WriteImage(img.Samples()); err != nil {
		return nil, err
	}

	if err := writeMetadata(hdu, img.Metadata(), s.cfg.now); err != nil {
		return nil, err
	}

	return hdu, nil
}

// KeyWriter is the part of an HDU metadata keys are written to.
type KeyWriter interface {
	WriteKey(name string, value any) error
}

// writeMetadata writes CAMERA, DATE-OBS and TIMESTAMP, then the optional
// acquisition keys and the extended pairs when meta is not nil.
//
// A metadata timestamp before the Unix epoch is rejected. A clock reading
// before the epoch is clamped to the epoch.
func writeMetadata(w KeyWriter, meta *pixbuf.Metadata, now func() time.Time) error {
	epoch := time.Unix(0, 0)

	ts := now()
	if ts.Before(epoch) {
		ts = epoch
	}

	camera := UnknownCamera
	if meta != nil {
		camera = meta.CameraName
		if !meta.Timestamp.IsZero() {
			if meta.Timestamp.Before(epoch) {
				return fmt.Errorf("%w: timestamp %s is before the Unix epoch",
					errs.ErrInvalidValue, meta.Timestamp.Format(time.RFC3339))
			}
			ts = meta.Timestamp
		}
	}

	keys := []struct {
		name  string
		value any
	}{
		{"CAMERA", camera},
		{"DATE-OBS", ts.UTC().Format(DateObsLayout)},
		{"TIMESTAMP", ts.UnixMilli()},
	}

	if meta != nil {
		keys = append(keys, []struct {
			name  string
			value any
		}{
			{"XBINNING", meta.BinX},
			{"YBINNING", meta.BinY},
			{"XPIXSZ", meta.PixelSizeX},
			{"YPIXSZ", meta.PixelSizeY},
			{"EXPTIME", meta.Exposure.Seconds()},
			{"CCD-TEMP", meta.Temperature},
			{"XORIGIN", meta.OriginX},
			{"YORIGIN", meta.OriginY},
			{"OFFSET", meta.Offset},
			{"GAIN", meta.Gain},
			{"GAIN_MIN", meta.GainMin},
			{"GAIN_MAX", meta.GainMax},
		}...)

		for _, kv := range meta.Extended {
			keys = append(keys, struct {
				name  string
				value any
			}{kv.Name, kv.Value})
		}
	}

	for _, k := range keys {
		if err := w.WriteKey(k.name, k.value); err != nil {
			return fmt.Errorf("key %s: %w", k.name, err)
		}
	}

	return nil
}

// ImageDescription maps an image onto its FITS sample type and dimensions:
// [height, width] for one channel, [height, width, channels] otherwise.
func ImageDescription(img pixbuf.Image) fits.ImageDescription {
	dims := []int{img.Height(), img.Width()}
	if c := img.Channels(); c != 1 {
		dims = append(dims, c)
	}

	return fits.ImageDescription{Type: img.SampleType(), Dimensions: dims}
}

// WithExtension replaces the extension of the last path element with ext,
// or appends it when there is none. An empty ext strips the extension.
//
// Trailing separators are dropped first, so "dir/" becomes "dir.fits".
func WithExtension(path, ext string) string {
	if trimmed := strings.TrimRight(path, `/`+string(filepath.Separator)); trimmed != "" {
		path = trimmed
	}
	dir, file := filepath.Split(path)

	stem := file
	if i := strings.LastIndexByte(file, '.'); i > 0 {
		stem = file[:i]
	}
	if ext == "" {
		return dir + stem
	}

	return dir + stem + "." + ext
}

// removeIfExists deletes the regular file name. A directory is left alone
// and reported as ErrPathConflict.
func removeIfExists(fs fsys.FS, name string) error {
	info, err := fs.Stat(name)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", errs.ErrFileSystem, name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", errs.ErrPathConflict, name)
	}

	if err := fs.Remove(name); err != nil {
		return fmt.Errorf("%w: remove %s: %w", errs.ErrFileSystem, name, err)
	}

	return nil
}

// writerErrors are the failures of Open that come from the writer rather
// than the filesystem.
var writerErrors = []error{
	errs.ErrInvalidFileName,
	errs.ErrInvalidValue,
	errs.ErrUnsupportedImageType,
}

func classifyCreate(name string, err error) error {
	for _, target := range writerErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: create %s: %w", errs.ErrFormatWriter, name, err)
		}
	}

	return fmt.Errorf("%w: create %s: %w", errs.ErrFileSystem, name, err)
}
