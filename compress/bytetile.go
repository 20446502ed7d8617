package compress

import (
	"fmt"

	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/internal/pool"
)

// ByteTileCodec adapts a byte stream Codec to integer tiles. Samples are
// serialized big-endian with shape.BytePix bytes each before compression.
type ByteTileCodec struct {
	algo  format.CompressionType
	codec Codec
}

var _ TileCodec = (*ByteTileCodec)(nil)

// NewByteTileCodec wraps codec as the tile codec for algo.
func NewByteTileCodec(algo format.CompressionType, codec Codec) ByteTileCodec {
	return ByteTileCodec{algo: algo, codec: codec}
}

// Type returns the wrapped algorithm.
func (c ByteTileCodec) Type() format.CompressionType {
	return c.algo
}

// Codec returns the underlying byte stream codec.
func (c ByteTileCodec) Codec() Codec {
	return c.codec
}

// CompressTile serializes tile big-endian and compresses the bytes.
func (c ByteTileCodec) CompressTile(tile []int32, shape TileShape) ([]byte, error) {
	if err := checkTile(tile, shape); err != nil {
		return nil, err
	}

	bb := pool.GetTileBuffer()
	defer pool.PutTileBuffer(bb)

	bb.Grow(len(tile) * shape.BytePix)
	bb.B = AppendTileBytes(bb.B, tile, shape.BytePix)

	return c.codec.Compress(bb.Bytes())
}

// DecompressTile decompresses data and parses shape.Len() big-endian samples.
func (c ByteTileCodec) DecompressTile(data []byte, shape TileShape) ([]int32, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	raw, err := c.codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptTile, err)
	}

	return ParseTileBytes(raw, shape)
}

// AppendTileBytes appends the big-endian encoding of tile, bytePix bytes per sample.
// Values are truncated to the sample width.
func AppendTileBytes(dst []byte, tile []int32, bytePix int) []byte {
	engine := endian.GetFITSEngine()

	switch bytePix {
	case 1:
		for _, v := range tile {
			dst = append(dst, byte(v)) //nolint: gosec
		}
	case 2:
		for _, v := range tile {
			dst = engine.AppendUint16(dst, uint16(v)) //nolint: gosec
		}
	default:
		for _, v := range tile {
			dst = engine.AppendUint32(dst, uint32(v)) //nolint: gosec
		}
	}

	return dst
}

// ParseTileBytes decodes shape.Len() big-endian samples. One byte samples
// are unsigned, wider samples are signed.
func ParseTileBytes(raw []byte, shape TileShape) ([]int32, error) {
	n := shape.Len()
	if len(raw) != n*shape.BytePix {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", errs.ErrCorruptTile, len(raw), n*shape.BytePix)
	}

	engine := endian.GetFITSEngine()
	out := make([]int32, n)

	switch shape.BytePix {
	case 1:
		for i, b := range raw {
			out[i] = int32(b)
		}
	case 2:
		for i := range out {
			out[i] = int32(int16(engine.Uint16(raw[2*i:]))) //nolint: gosec
		}
	default:
		for i := range out {
			out[i] = int32(engine.Uint32(raw[4*i:])) //nolint: gosec
		}
	}

	return out, nil
}
