package compress

import (
	"fmt"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/internal/bitstream"
)

// RiceBlockSize is the number of pixels coded with one split parameter.
// It is written as the BLOCKSIZE compression parameter.
const RiceBlockSize = 32

// riceParams holds the bit widths used for one sample size.
type riceParams struct {
	fsBits int // width of the per-block split code
	fsMax  int // split values at or above fsMax switch to raw samples
	bBits  int // width of a raw sample
}

func riceParamsFor(bytePix int) riceParams {
	switch bytePix {
	case 1:
		return riceParams{fsBits: 3, fsMax: 6, bBits: 8}
	case 2:
		return riceParams{fsBits: 4, fsMax: 14, bBits: 16}
	default:
		return riceParams{fsBits: 5, fsMax: 25, bBits: 32}
	}
}

// RiceCodec implements the RICE_1 algorithm.
//
// The stream starts with the first pixel in full width. Pixel differences are
// folded to unsigned values and coded in blocks; each block carries a split
// code selecting a Golomb-Rice parameter, a low entropy marker for all-zero
// blocks, or a high entropy marker followed by raw differences.
type RiceCodec struct {
	blockSize int
}

var _ TileCodec = (*RiceCodec)(nil)

// NewRiceCodec creates a Rice codec coding blockSize pixels per split code.
// Non-positive sizes fall back to RiceBlockSize.
func NewRiceCodec(blockSize int) RiceCodec {
	if blockSize <= 0 {
		blockSize = RiceBlockSize
	}

	return RiceCodec{blockSize: blockSize}
}

// Type returns format.CompressionRice.
func (c RiceCodec) Type() format.CompressionType {
	return format.CompressionRice
}

// BlockSize returns the number of pixels per coding block.
func (c RiceCodec) BlockSize() int {
	return c.blockSize
}

// CompressTile Rice-codes tile using shape.BytePix wide samples.
func (c RiceCodec) CompressTile(tile []int32, shape TileShape) ([]byte, error) {
	if err := checkTile(tile, shape); err != nil {
		return nil, err
	}

	p := riceParamsFor(shape.BytePix)
	mask := uint32(1<<p.bBits - 1)
	signBit := uint32(1) << (p.bBits - 1)

	w := bitstream.NewWriter(make([]byte, 0, len(tile)*shape.BytePix/2+8))

	lastPix := uint32(tile[0]) & mask //nolint: gosec
	w.WriteBits(uint64(lastPix), p.bBits)

	diff := make([]uint32, c.blockSize)
	for i := 0; i < len(tile); i += c.blockSize {
		thisBlock := min(c.blockSize, len(tile)-i)

		pixelSum := 0.0
		for j := range thisBlock {
			next := uint32(tile[i+j]) & mask //nolint: gosec

			// sign-extend the wrapped difference to the sample width
			d := (next - lastPix) & mask
			pdiff := int64(d)
			if d&signBit != 0 {
				pdiff -= int64(mask) + 1
			}

			var folded int64
			if pdiff < 0 {
				folded = ^(pdiff << 1)
			} else {
				folded = pdiff << 1
			}
			diff[j] = uint32(folded) & mask //nolint: gosec

			pixelSum += float64(diff[j])
			lastPix = next
		}

		dpsum := (pixelSum - float64(thisBlock/2) - 1) / float64(thisBlock)
		if dpsum < 0 {
			dpsum = 0
		}
		psum := uint64(dpsum) >> 1
		fs := 0
		for psum > 0 {
			psum >>= 1
			fs++
		}

		switch {
		case fs >= p.fsMax:
			// high entropy: raw differences
			w.WriteBits(uint64(p.fsMax+1), p.fsBits) //nolint: gosec
			for j := range thisBlock {
				w.WriteBits(uint64(diff[j]), p.bBits)
			}
		case fs == 0 && pixelSum == 0:
			// low entropy: every difference is zero
			w.WriteBits(0, p.fsBits)
		default:
			w.WriteBits(uint64(fs+1), p.fsBits) //nolint: gosec
			fsMask := uint32(1)<<fs - 1
			for j := range thisBlock {
				v := diff[j]
				w.WriteZeros(int(v >> fs))
				w.WriteBit(1)
				w.WriteBits(uint64(v&fsMask), fs)
			}
		}
	}

	return w.Bytes(), nil
}

// DecompressTile decodes a Rice stream into shape.Len() samples.
func (c RiceCodec) DecompressTile(data []byte, shape TileShape) ([]int32, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	p := riceParamsFor(shape.BytePix)
	mask := uint32(1<<p.bBits - 1)
	n := shape.Len()
	out := make([]int32, n)

	r := bitstream.NewReader(data)
	first, ok := r.ReadBits(p.bBits)
	if !ok {
		return nil, fmt.Errorf("%w: rice stream shorter than one pixel", errs.ErrCorruptTile)
	}
	lastPix := uint32(first)

	for i := 0; i < n; i += c.blockSize {
		thisBlock := min(c.blockSize, n-i)

		code, ok := r.ReadBits(p.fsBits)
		if !ok {
			return nil, fmt.Errorf("%w: rice stream truncated at pixel %d", errs.ErrCorruptTile, i)
		}
		fs := int(code) - 1 //nolint: gosec

		for j := range thisBlock {
			var d uint32
			switch {
			case fs < 0:
				d = 0
			case fs == p.fsMax:
				v, ok := r.ReadBits(p.bBits)
				if !ok {
					return nil, fmt.Errorf("%w: rice stream truncated at pixel %d", errs.ErrCorruptTile, i+j)
				}
				d = uint32(v)
			case fs > p.fsMax:
				return nil, fmt.Errorf("%w: rice split code %d out of range", errs.ErrCorruptTile, fs)
			default:
				top, ok := r.ReadUnary()
				if !ok {
					return nil, fmt.Errorf("%w: rice stream truncated at pixel %d", errs.ErrCorruptTile, i+j)
				}
				low, ok := r.ReadBits(fs)
				if !ok {
					return nil, fmt.Errorf("%w: rice stream truncated at pixel %d", errs.ErrCorruptTile, i+j)
				}
				d = uint32(top)<<fs | uint32(low) //nolint: gosec
			}

			if d&1 == 0 {
				d >>= 1
			} else {
				d = ^(d >> 1)
			}
			lastPix = (lastPix + d) & mask
			out[i+j] = riceSample(lastPix, shape.BytePix)
		}
	}

	return out, nil
}

// riceSample interprets a wrapped pixel: one byte samples are unsigned,
// wider samples are signed.
func riceSample(v uint32, bytePix int) int32 {
	switch bytePix {
	case 1:
		return int32(v & 0xff)
	case 2:
		return int32(int16(v)) //nolint: gosec
	default:
		return int32(v) //nolint: gosec
	}
}
