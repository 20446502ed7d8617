package compress

import (
	"fmt"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// Compressor compresses an opaque byte stream.
//
// Byte stream compressors back the GZIP_1 and BZIP2_1 tile algorithms and the
// fallback column used for floating point tiles.
type Compressor interface {
	// Compress compresses data and returns a newly allocated slice.
	// The input slice is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
type Decompressor interface {
	// Decompress decompresses data and returns a newly allocated slice.
	// It returns an error if data is corrupted or was produced by another algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both byte stream compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// TileShape describes one rectangular tile of a tiled compressed image.
type TileShape struct {
	// Width is the extent of the fastest varying axis (ZTILE1).
	Width int
	// Height is the product of the extents of all remaining axes.
	Height int
	// BytePix is the stored size of one integer sample: 1, 2 or 4.
	BytePix int
}

// Len returns the number of samples in the tile.
func (s TileShape) Len() int {
	return s.Width * s.Height
}

// Validate checks the tile extents and the sample size.
func (s TileShape) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: tile extents %dx%d", errs.ErrInvalidValue, s.Width, s.Height)
	}

	switch s.BytePix {
	case 1, 2, 4:
		return nil
	default:
		return fmt.Errorf("%w: %d bytes per pixel", errs.ErrInvalidValue, s.BytePix)
	}
}

// TileCodec compresses the integer samples of a single image tile.
//
// Samples are passed as int32 regardless of the stored width. Unsigned 8-bit
// samples carry values in [0, 255] and 16-bit samples carry the signed values
// that are physically stored (raw value minus BZERO). Implementations must
// return exactly shape.Len() samples from DecompressTile.
type TileCodec interface {
	// Type returns the compression algorithm implemented by the codec.
	Type() format.CompressionType

	// CompressTile encodes tile, which holds shape.Len() samples in row-major order.
	CompressTile(tile []int32, shape TileShape) ([]byte, error)

	// DecompressTile decodes data produced by CompressTile with the same shape.
	DecompressTile(data []byte, shape TileShape) ([]int32, error)
}

// CompressionStats accumulates the compression outcome of one image HDU.
type CompressionStats struct {
	// Algorithm identifies the compression algorithm used
	Algorithm format.CompressionType

	// Tiles is the number of tiles that were compressed
	Tiles int

	// OriginalSize is the size of the tile samples before compression
	OriginalSize int64

	// CompressedSize is the size of the heap after compression
	CompressedSize int64
}

// Add records one compressed tile.
func (s *CompressionStats) Add(originalSize, compressedSize int) {
	s.Tiles++
	s.OriginalSize += int64(originalSize)
	s.CompressedSize += int64(compressedSize)
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage.
// It is negative when compression made the data larger.
func (s CompressionStats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec is a factory function that creates a byte stream Codec for the
// specified compression type.
//
// Parameters:
//   - compressionType: CompressionNone, CompressionGzip or CompressionBzip2
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: errs.ErrUnsupportedCompression for algorithms that only work on integer tiles
func CreateCodec(compressionType format.CompressionType) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionGzip:
		return NewGzipCompressor(), nil
	case format.CompressionBzip2:
		return NewBzip2Compressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a byte stream codec", errs.ErrUnsupportedCompression, compressionType)
	}
}

// CreateTileCodec is a factory function that creates a TileCodec for the
// specified compression type.
//
// Parameters:
//   - compressionType: any tiled compression type, CompressionNone is rejected
//
// Returns:
//   - TileCodec: codec instance for the specified type
//   - error: errs.ErrUnsupportedCompression for CompressionNone or unknown values
func CreateTileCodec(compressionType format.CompressionType) (TileCodec, error) {
	switch compressionType {
	case format.CompressionGzip:
		return NewByteTileCodec(compressionType, NewGzipCompressor()), nil
	case format.CompressionBzip2:
		return NewByteTileCodec(compressionType, NewBzip2Compressor()), nil
	case format.CompressionRice:
		return NewRiceCodec(RiceBlockSize), nil
	case format.CompressionHcompress:
		return NewHcompressCodec(false), nil
	case format.CompressionHsmooth:
		return NewHcompressCodec(true), nil
	case format.CompressionPlio:
		return NewPlioCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone:  NewNoOpCompressor(),
	format.CompressionGzip:  NewGzipCompressor(),
	format.CompressionBzip2: NewBzip2Compressor(),
}

var builtinTileCodecs = func() map[format.CompressionType]TileCodec {
	codecs := make(map[format.CompressionType]TileCodec)
	for _, c := range format.Compressions {
		if codec, err := CreateTileCodec(c); err == nil {
			codecs[c] = codec
		}
	}

	return codecs
}()

// GetCodec retrieves a built-in byte stream Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}

// GetTileCodec retrieves a built-in TileCodec for the specified compression type.
// Built-in codecs are stateless and safe for concurrent use.
func GetTileCodec(compressionType format.CompressionType) (TileCodec, error) {
	if codec, ok := builtinTileCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}

func checkTile(tile []int32, shape TileShape) error {
	if err := shape.Validate(); err != nil {
		return err
	}
	if len(tile) != shape.Len() {
		return fmt.Errorf("%w: tile has %d samples, shape needs %d", errs.ErrDataMismatch, len(tile), shape.Len())
	}

	return nil
}
