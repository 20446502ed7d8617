package fits

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// FileName is a parsed extended file name such as
// "image.fits[compress R 100,100]".
type FileName struct {
	// Path is the on-disk file name without the bracketed qualifier.
	Path string
	// Compression selected by the qualifier, CompressionNone without one.
	Compression format.CompressionType
	// Tile holds explicit tile dimensions, NAXIS1 first. Nil means default tiling.
	Tile []int
}

// ParseFileName splits an extended file name into its path and compression
// qualifier. A bare "[compress]" selects Rice, as does cfitsio.
func ParseFileName(name string) (FileName, error) {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return FileName{Path: name}, nil
	}

	if !strings.HasSuffix(name, "]") || strings.Count(name, "[") != 1 {
		return FileName{}, fmt.Errorf("%w: %q", errs.ErrInvalidFileName, name)
	}

	fn := FileName{Path: name[:open]}
	if fn.Path == "" {
		return FileName{}, fmt.Errorf("%w: %q has no file path", errs.ErrInvalidFileName, name)
	}

	// quantization and other parameters after ';' do not apply to lossless output
	inner, _, _ := strings.Cut(name[open+1:len(name)-1], ";")
	fields := strings.Fields(inner)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "compress") {
		return FileName{}, fmt.Errorf("%w: unsupported filter in %q", errs.ErrInvalidFileName, name)
	}

	fn.Compression = format.CompressionRice
	if len(fields) > 1 {
		c, ok := format.ParseCompression(fields[1])
		if !ok || c == format.CompressionNone {
			return FileName{}, fmt.Errorf("%w: unknown algorithm %q", errs.ErrInvalidFileName, fields[1])
		}
		fn.Compression = c
	}

	if len(fields) > 2 {
		for _, part := range strings.Split(fields[2], ",") {
			n, err := strconv.Atoi(part)
			if err != nil || n <= 0 {
				return FileName{}, fmt.Errorf("%w: tile size %q", errs.ErrInvalidFileName, part)
			}
			fn.Tile = append(fn.Tile, n)
		}
	}

	if len(fields) > 3 {
		return FileName{}, fmt.Errorf("%w: trailing parameters in %q", errs.ErrInvalidFileName, name)
	}

	return fn, nil
}

// String formats the name back into extended syntax.
func (fn FileName) String() string {
	if fn.Compression == format.CompressionNone {
		return fn.Path
	}

	s := fn.Path + "[compress " + fn.Compression.Qualifier()
	if len(fn.Tile) > 0 {
		parts := make([]string, len(fn.Tile))
		for i, n := range fn.Tile {
			parts[i] = strconv.Itoa(n)
		}
		s += " " + strings.Join(parts, ",")
	}

	return s + "]"
}
