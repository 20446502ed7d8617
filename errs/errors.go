// Package errs defines the sentinel errors returned by fitsimg packages.
//
// Errors are wrapped with fmt.Errorf and %w so that both the sentinel and the
// underlying cause stay reachable through errors.Is and errors.As.
package errs

import "errors"

// Serializer errors.
var (
	// ErrPathConflict is returned when the destination path is an existing directory.
	ErrPathConflict = errors.New("destination path is a directory")

	// ErrFileSystem wraps failures of the filesystem: removing a stale file or creating the output file.
	ErrFileSystem = errors.New("filesystem failure")

	// ErrFormatWriter wraps failures reported by the FITS writer while building HDUs,
	// writing keys, writing pixels or flushing the file.
	ErrFormatWriter = errors.New("fits writer failure")

	// ErrInvalidOption is returned when a functional option receives an unusable value.
	ErrInvalidOption = errors.New("invalid option")

	// ErrInvalidImage is returned when an image buffer does not match its declared shape.
	ErrInvalidImage = errors.New("invalid image")
)

// FITS writer and reader errors.
var (
	ErrInvalidKeyword         = errors.New("invalid header keyword")
	ErrDuplicateKeyword       = errors.New("duplicate header keyword")
	ErrInvalidValue           = errors.New("invalid header value")
	ErrInvalidHeader          = errors.New("invalid header")
	ErrInvalidFileName        = errors.New("invalid extended file name")
	ErrDataMismatch           = errors.New("pixel data does not match image description")
	ErrDataAlreadyWritten     = errors.New("pixel data already written")
	ErrFileClosed             = errors.New("fits file already closed")
	ErrFileExists             = errors.New("fits file already exists")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrUnsupportedImageType   = errors.New("unsupported image type")
	ErrCorruptTile            = errors.New("corrupt compressed tile")
	ErrValueOutOfRange        = errors.New("pixel value out of range for compression")
	ErrTruncated              = errors.New("truncated fits data")
)
