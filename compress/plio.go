package compress

import (
	"fmt"

	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// PlioMaxValue is the exclusive upper bound of PLIO pixel values.
const PlioMaxValue = 1 << 24

// Line list opcodes, stored in the top nibble of each 16-bit word.
const (
	plioZN = iota // zeros
	plioSH        // set high value, two words
	plioIH        // increment high value
	plioDH        // decrement high value
	plioHN        // high values
	plioPN        // zeros then one high value
	plioIS        // increment high value and output one pixel
	plioDS        // decrement high value and output one pixel
)

const (
	plioHeaderLen = 7
	plioMaxData   = 4095
)

// PlioCodec implements the PLIO_1 algorithm, the IRAF pixel list run-length
// encoding. It accepts non-negative values below PlioMaxValue and stores
// 16-bit words, so compressed tiles use a short integer column.
type PlioCodec struct{}

var _ TileCodec = (*PlioCodec)(nil)

// NewPlioCodec creates a new PLIO codec.
func NewPlioCodec() PlioCodec {
	return PlioCodec{}
}

// Type returns format.CompressionPlio.
func (c PlioCodec) Type() format.CompressionType {
	return format.CompressionPlio
}

// CompressTile encodes tile as a line list and returns the words big-endian.
func (c PlioCodec) CompressTile(tile []int32, shape TileShape) ([]byte, error) {
	if err := checkTile(tile, shape); err != nil {
		return nil, err
	}

	for i, v := range tile {
		if v < 0 || v >= PlioMaxValue {
			return nil, fmt.Errorf("%w: plio value %d at pixel %d", errs.ErrValueOutOfRange, v, i)
		}
	}

	words := EncodeLineList(tile)

	engine := endian.GetFITSEngine()
	out := make([]byte, 0, 2*len(words))
	for _, w := range words {
		out = engine.AppendUint16(out, uint16(w)) //nolint: gosec
	}

	return out, nil
}

// DecompressTile decodes big-endian line list words into shape.Len() samples.
func (c PlioCodec) DecompressTile(data []byte, shape TileShape) ([]int32, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd plio byte count %d", errs.ErrCorruptTile, len(data))
	}

	engine := endian.GetFITSEngine()
	words := make([]int16, len(data)/2)
	for i := range words {
		words[i] = int16(engine.Uint16(data[2*i:])) //nolint: gosec
	}

	return DecodeLineList(words, shape.Len())
}

// EncodeLineList encodes pixels as an IRAF line list. Negative values are
// treated as zero.
func EncodeLineList(pixels []int32) []int16 {
	if len(pixels) == 0 {
		return nil
	}

	dst := make([]int16, plioHeaderLen, plioHeaderLen+len(pixels)/2+4)
	dst[1] = plioHeaderLen
	dst[2] = -100

	npix := len(pixels)
	xe := npix - 1
	pv := max(0, pixels[0])
	x1, iz := 0, 0
	hi := int32(1)

	for ip := 0; ip <= xe; ip++ {
		var nv int32
		if ip < xe {
			nv = max(0, pixels[ip+1])
			if nv == pv {
				continue
			}
			if pv == 0 {
				// start of a run of high values
				pv = nv
				x1 = ip + 1

				continue
			}
		} else if pv == 0 {
			x1 = xe + 1
		}

		np := ip - x1 + 1
		nz := x1 - iz
		done := false

		if pv > 0 {
			if dv := pv - hi; dv != 0 {
				hi = pv
				switch {
				case dv > plioMaxData || dv < -plioMaxData:
					dst = append(dst, int16(pv&plioMaxData+plioSH<<12), int16(pv/(plioMaxData+1))) //nolint: gosec
				case dv < 0:
					dst = append(dst, int16(-dv+plioDH<<12)) //nolint: gosec
				default:
					dst = append(dst, int16(dv+plioIH<<12)) //nolint: gosec
				}

				// a single pixel directly after the change folds into IS/DS
				if dv >= -plioMaxData && dv <= plioMaxData && np == 1 && nz == 0 {
					dst[len(dst)-1] |= 4 << 12
					done = true
				}
			}
		}

		if !done && nz > 0 {
			var last int
			for nz > 0 {
				last = min(plioMaxData, nz)
				dst = append(dst, int16(last)) //nolint: gosec
				nz -= plioMaxData
			}

			// a single pixel after zeros folds into PN, which counts the pixel too
			if np == 1 && pv > 0 && last < plioMaxData {
				dst[len(dst)-1] = int16(plioPN<<12 + last + 1) //nolint: gosec
				done = true
			}
		}

		if !done {
			for np > 0 {
				dst = append(dst, int16(min(plioMaxData, np)+plioHN<<12)) //nolint: gosec
				np -= plioMaxData
			}
		}

		x1 = ip + 1
		iz = x1
		pv = nv
	}

	n := len(dst)
	dst[3] = int16(n % 32768) //nolint: gosec
	dst[4] = int16(n / 32768) //nolint: gosec

	return dst
}

// DecodeLineList expands a line list into npix pixels. Pixels not covered by
// the list are zero.
func DecodeLineList(words []int16, npix int) ([]int32, error) {
	if len(words) < plioHeaderLen {
		return nil, fmt.Errorf("%w: plio header needs %d words, got %d", errs.ErrCorruptTile, plioHeaderLen, len(words))
	}

	var listLen, first int
	if words[2] > 0 {
		// old format: length in word 2, data from word 3
		listLen = int(words[2])
		first = 3
	} else {
		listLen = int(words[4])<<15 + int(words[3])
		first = int(words[1])
	}
	if listLen > len(words) || first < 0 || first > listLen {
		return nil, fmt.Errorf("%w: plio list length %d exceeds %d words", errs.ErrCorruptTile, listLen, len(words))
	}

	out := make([]int32, npix)
	op := 0
	x1 := 0
	pv := int32(1)

	for ip := first; ip < listLen && x1 < npix; ip++ {
		word := int32(uint16(words[ip]))
		opcode := word >> 12
		data := word & plioMaxData

		switch opcode {
		case plioZN, plioHN, plioPN:
			x2 := x1 + int(data)
			end := min(x2, npix)
			if end > op {
				fill := int32(0)
				if opcode == plioHN {
					fill = pv
				}
				for i := op; i < end; i++ {
					out[i] = fill
				}
				if opcode == plioPN && x2 == end {
					out[end-1] = pv
				}
				op = end
			}
			x1 = x2
		case plioSH:
			if ip+1 >= listLen {
				return nil, fmt.Errorf("%w: plio set-high word truncated", errs.ErrCorruptTile)
			}
			pv = int32(words[ip+1])<<12 + data
			ip++
		case plioIH:
			pv += data
		case plioDH:
			pv -= data
		case plioIS, plioDS:
			if opcode == plioIS {
				pv += data
			} else {
				pv -= data
			}
			if x1 < npix {
				out[op] = pv
				op++
			}
			x1++
		}
	}

	return out, nil
}
