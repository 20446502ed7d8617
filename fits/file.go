package fits

import (
	"errors"
	"fmt"
	"os"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/internal/pool"
)

// Builder configures the creation of a FITS file.
//
// Example:
//
//	f, err := fits.Create(osFS, "out.fits[compress R]").Overwrite().Open()
//	if err != nil {
//	    return err
//	}
//	hdu, err := f.CreateImage("IMAGE", fits.ImageDescription{Type: format.TypeUnsignedShort, Dimensions: []int{h, w}})
//	...
//	return f.Close()
type Builder struct {
	fs        fsys.FS
	path      string
	overwrite bool
	primary   *ImageDescription
	tileRows  int
}

// Create starts building the file named by path, which may carry a
// "[compress X]" qualifier selecting tile compression for image extensions.
func Create(fs fsys.FS, path string) *Builder {
	return &Builder{fs: fs, path: path}
}

// Overwrite replaces an existing file instead of failing.
func (b *Builder) Overwrite() *Builder {
	b.overwrite = true
	return b
}

// WithCustomPrimary makes the primary HDU hold an image of desc instead of
// being empty. The primary image is never compressed.
func (b *Builder) WithCustomPrimary(desc ImageDescription) *Builder {
	b.primary = desc.clone()
	return b
}

// WithTileRows sets the number of image rows per compressed tile. Zero keeps
// the default of one row, or 16 rows for Hcompress.
func (b *Builder) WithTileRows(rows int) *Builder {
	b.tileRows = rows
	return b
}

// Open creates the file and its primary HDU.
//
// The file is created exclusively unless Overwrite was called. Errors of
// the filesystem are returned unwrapped.
func (b *Builder) Open() (*File, error) {
	name, err := ParseFileName(b.path)
	if err != nil {
		return nil, err
	}
	if b.primary != nil {
		if err := b.primary.Validate(); err != nil {
			return nil, err
		}
	}
	if b.tileRows < 0 {
		return nil, fmt.Errorf("%w: %d tile rows", errs.ErrInvalidValue, b.tileRows)
	}
	if b.fs == nil {
		return nil, fmt.Errorf("%w: nil filesystem", errs.ErrInvalidValue)
	}

	flag := os.O_WRONLY | os.O_CREATE
	if b.overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}

	handle, err := b.fs.OpenFile(name.Path, flag, 0o644)
	if err != nil {
		return nil, err
	}

	f := &File{handle: handle, name: name, tileRows: b.tileRows}
	f.hdus = append(f.hdus, &HDU{file: f, kind: kindPrimary, desc: b.primary, keys: NewHeader()})

	return f, nil
}

// File is a FITS file being written. HDUs are buffered in memory and
// written on Close.
type File struct {
	handle   fsys.File
	name     FileName
	tileRows int
	hdus     []*HDU
	closed   bool
}

// Path returns the on-disk name of the file, without qualifier.
func (f *File) Path() string {
	return f.name.Path
}

// Compression returns the tile compression applied to image extensions.
func (f *File) Compression() format.CompressionType {
	return f.name.Compression
}

// PrimaryHDU returns the first HDU.
func (f *File) PrimaryHDU() *HDU {
	return f.hdus[0]
}

// HDUs returns the HDUs in file order.
func (f *File) HDUs() []*HDU {
	return append([]*HDU(nil), f.hdus...)
}

// CreateImage appends an image extension named name. It is tile compressed
// when the file name selected a compression.
func (f *File) CreateImage(name string, desc ImageDescription) (*HDU, error) {
	if f.closed {
		return nil, errs.ErrFileClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if _, err := NewCard("EXTNAME", name, ""); err != nil {
		return nil, err
	}

	hdu := &HDU{file: f, kind: kindImage, name: name, desc: desc.clone(), keys: NewHeader()}

	if comp := f.name.Compression; comp != format.CompressionNone {
		hdu.kind = kindCompressed
		hdu.comp = comp
		hdu.tile = f.tileFor(desc.Axes(), comp)
	}

	f.hdus = append(f.hdus, hdu)

	return hdu, nil
}

// tileFor applies explicit qualifier tile sizes, filling missing axes with 1.
func (f *File) tileFor(axes []int, comp format.CompressionType) []int {
	if len(f.name.Tile) == 0 {
		return defaultTile(axes, comp, f.tileRows)
	}

	tile := make([]int, len(axes))
	for i := range tile {
		tile[i] = 1
		if i < len(f.name.Tile) {
			tile[i] = min(f.name.Tile[i], max(axes[i], 1))
		}
	}

	return tile
}

// Close writes every HDU and closes the file. Images whose pixels were
// never written are stored as zeros.
func (f *File) Close() error {
	if f.closed {
		return errs.ErrFileClosed
	}
	f.closed = true

	err := f.flush()
	if cerr := f.handle.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}

	return err
}

func (f *File) flush() error {
	buf := pool.GetHDUBuffer()
	defer pool.PutHDUBuffer(buf)

	for i, hdu := range f.hdus {
		buf.Reset()

		if err := hdu.ensureData(); err != nil {
			return fmt.Errorf("HDU %d: %w", i, err)
		}
		hdr, err := hdu.buildHeader()
		if err != nil {
			return fmt.Errorf("HDU %d: %w", i, err)
		}

		buf.B, err = hdr.AppendTo(buf.B)
		if err != nil {
			return fmt.Errorf("HDU %d: %w", i, err)
		}
		_, _ = buf.Write(hdu.data)
		buf.PadTo(BlockSize, 0)

		if _, err := buf.WriteTo(f.handle); err != nil {
			return err
		}
	}

	return nil
}
