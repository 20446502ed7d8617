// Package fitsimg saves camera frames as FITS files, optionally with the
// tiled image compression convention.
//
// # Basic Usage
//
// Saving an uncompressed 16-bit frame:
//
//	import "github.com/arloliu/fitsimg"
//
//	img := pixbuf.NewLuma16(width, height)
//	copy(img.Pix, samples)
//	img.SetMetadata(&pixbuf.Metadata{CameraName: "cam1", Exposure: 2 * time.Second})
//
//	name, err := fitsimg.SaveFITS(img, nil, "frame.png", false)
//	// name == "frame.fits"
//
// Saving with Rice compression:
//
//	comp := format.CompressionRice
//	name, err := fitsimg.SaveFITS(img, &comp, "frame", true)
//	// name == "frame.fits[compress R]", stored on disk as "frame.fits"
//
// A compressed file keeps an empty primary HDU marked with COMPRESSED_IMAGE
// and COMPRESSION_ALGO; the image and its metadata live in the "IMAGE"
// extension.
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the serializer
// package. Use the serializer, fits and compress packages directly for
// custom filesystems, logging, tiling or for reading files back.
package fitsimg

import (
	"fmt"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/pixbuf"
	"github.com/arloliu/fitsimg/serializer"
)

// SaveFITS writes img to path as a FITS file and returns the name it was
// created under.
//
// Parameters:
//   - img: The frame to save
//   - comp: The compression to apply; nil writes the image uncompressed
//   - path: The destination; its extension is replaced by "fits"
//   - overwrite: Replace an existing file instead of failing
//   - opts: Optional serializer configuration (see serializer.Option)
//
// Returns:
//   - string: The file name, with a "[compress X]" qualifier for compressed output
//   - error: errs.ErrPathConflict, errs.ErrFileSystem or errs.ErrFormatWriter
//
// Example:
//
//	comp := format.CompressionGzip
//	name, err := fitsimg.SaveFITS(img, &comp, "out", false)
//	// name == "out.fits[compress G]"
func SaveFITS(img pixbuf.Image, comp *format.CompressionType, path string, overwrite bool, opts ...serializer.Option) (string, error) {
	s, err := serializer.New(opts...)
	if err != nil {
		return "", err
	}

	return s.Save(img, format.CompressionOf(comp), path, overwrite)
}

// NewSerializer creates a reusable serializer.
//
// Available options:
//   - serializer.WithFS(fsys.FS)
//   - serializer.WithClock(func() time.Time)
//   - serializer.WithLogger(*slog.Logger)
//   - serializer.WithTileRows(int)
func NewSerializer(opts ...serializer.Option) (*serializer.Serializer, error) {
	return serializer.New(opts...)
}

// Compression resolves a compression by display name ("gzip"), qualifier
// code ("G") or algorithm name ("GZIP_1"). An empty name and "none" select
// uncompressed output.
func Compression(name string) (format.CompressionType, error) {
	c, ok := format.ParseCompression(name)
	if !ok {
		return format.CompressionNone, fmt.Errorf("%w: %q", errs.ErrUnsupportedCompression, name)
	}

	return c, nil
}
