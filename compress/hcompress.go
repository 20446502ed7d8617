package compress

import (
	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/internal/bitstream"
)

// hcompressMagic starts every Hcompress stream.
var hcompressMagic = [2]byte{0xDD, 0x99}

// hcompressHeaderLen is magic, nx, ny, scale, sum of pixels and three bit plane counts.
const hcompressHeaderLen = 2 + 4 + 4 + 4 + 8 + 3

// Huffman codes of the 16 four-bit quadtree values, and their lengths.
var (
	huffCode = [16]uint64{0x3e, 0x00, 0x01, 0x08, 0x02, 0x09, 0x1a, 0x1b, 0x03, 0x1c, 0x0a, 0x1d, 0x0b, 0x1e, 0x3f, 0x0c}
	huffLen  = [16]int{6, 3, 3, 4, 3, 4, 5, 5, 3, 5, 4, 5, 4, 5, 6, 4}
)

// huffDecode maps code length and code bits back to the four-bit value, -1 if unused.
var huffDecode = func() [7][64]int8 {
	var t [7][64]int8
	for n := range t {
		for c := range t[n] {
			t[n][c] = -1
		}
	}
	for v, code := range huffCode {
		t[huffLen[v]][code] = int8(v) //nolint: gosec
	}

	return t
}()

// HcompressCodec implements the HCOMPRESS_1 algorithm at scale 0, which is
// lossless: an H-transform followed by quadtree coding of the coefficient bit
// planes and a trailing block of sign bits.
//
// The smoothing flag is recorded in the SMOOTH compression parameter. It only
// affects decompression of quantized streams, so at scale 0 both variants
// produce and restore identical data.
type HcompressCodec struct {
	smooth bool
}

var _ TileCodec = (*HcompressCodec)(nil)

// NewHcompressCodec creates an Hcompress codec.
func NewHcompressCodec(smooth bool) HcompressCodec {
	return HcompressCodec{smooth: smooth}
}

// Type returns format.CompressionHsmooth for the smoothing variant and
// format.CompressionHcompress otherwise.
func (c HcompressCodec) Type() format.CompressionType {
	if c.smooth {
		return format.CompressionHsmooth
	}

	return format.CompressionHcompress
}

// Smooth reports whether smoothing is requested on decompression.
func (c HcompressCodec) Smooth() bool {
	return c.smooth
}

// Scale returns the quantization scale, always 0.
func (c HcompressCodec) Scale() int {
	return 0
}

// CompressTile encodes tile; shape.Height rows of shape.Width samples.
func (c HcompressCodec) CompressTile(tile []int32, shape TileShape) ([]byte, error) {
	if err := checkTile(tile, shape); err != nil {
		return nil, err
	}

	nx, ny := shape.Height, shape.Width
	a := make([]int64, len(tile))
	for i, v := range tile {
		a[i] = int64(v)
	}

	htrans(a, nx, ny)

	return hcEncode(a, nx, ny, c.Scale()), nil
}

// DecompressTile decodes an Hcompress stream into shape.Len() samples.
func (c HcompressCodec) DecompressTile(data []byte, shape TileShape) ([]int32, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	nx, ny := shape.Height, shape.Width
	a, err := hcDecode(data, nx, ny)
	if err != nil {
		return nil, err
	}

	hinv(a, nx, ny)

	out := make([]int32, len(a))
	for i, v := range a {
		out[i] = int32(v) //nolint: gosec
	}

	return out, nil
}

// hcEncode writes the stream header, the quadtree coded quadrants and the sign bits.
// a holds H-transform coefficients and is modified.
func hcEncode(a []int64, nx, ny, scale int) []byte {
	engine := endian.GetFITSEngine()

	out := make([]byte, 0, hcompressHeaderLen+len(a))
	out = append(out, hcompressMagic[:]...)
	out = engine.AppendUint32(out, uint32(nx))    //nolint: gosec
	out = engine.AppendUint32(out, uint32(ny))    //nolint: gosec
	out = engine.AppendUint32(out, uint32(scale)) //nolint: gosec
	out = engine.AppendUint64(out, uint64(a[0]))  //nolint: gosec
	a[0] = 0

	// one sign bit per non-zero coefficient, replaced by its magnitude
	signs := bitstream.NewWriter(make([]byte, 0, (len(a)+7)/8))
	for i, v := range a {
		switch {
		case v > 0:
			signs.WriteBit(0)
		case v < 0:
			signs.WriteBit(1)
			a[i] = -v
		}
	}

	// quadrant 0 is bottom left, 1 is bottom right or top left, 2 is top right
	nx2 := (nx + 1) / 2
	ny2 := (ny + 1) / 2
	var vmax [3]int64
	for i, v := range a {
		row, col := i/ny, i%ny
		q := 0
		if col >= ny2 {
			q++
		}
		if row >= nx2 {
			q++
		}
		vmax[q] = max(vmax[q], v)
	}

	var planes [3]int
	for q, v := range vmax {
		for v > 0 {
			v >>= 1
			planes[q]++
		}
		out = append(out, byte(planes[q])) //nolint: gosec
	}

	w := bitstream.NewWriter(out)
	for _, q := range hcQuadrants(nx, ny, planes) {
		qtreeEncode(w, quadrant(a, q.off), ny, q.nqx, q.nqy, q.planes)
	}

	// zero nybble marks the end of the bit planes
	w.WriteBits(0, 4)
	w.WriteBytes(signs.Bytes())

	return w.Bytes()
}

type hcQuadrant struct {
	off, nqx, nqy, planes int
}

// hcQuadrants returns the offsets, extents and bit plane counts of the four
// quadrants of an nx by ny coefficient array.
func hcQuadrants(nx, ny int, planes [3]int) [4]hcQuadrant {
	nx2 := (nx + 1) / 2
	ny2 := (ny + 1) / 2

	return [4]hcQuadrant{
		{0, nx2, ny2, planes[0]},
		{ny2, nx2, ny / 2, planes[1]},
		{ny * nx2, nx / 2, ny2, planes[1]},
		{ny*nx2 + ny2, nx / 2, ny / 2, planes[2]},
	}
}

// quadrant returns a from off, or an empty slice for an empty quadrant
// that starts past the end.
func quadrant(a []int64, off int) []int64 {
	if off >= len(a) {
		return nil
	}

	return a[off:]
}

// qtreeCodes collects Huffman codes of one bit plane. Codes are packed least
// significant first and later written out in reverse order.
type qtreeCodes struct {
	buf      []byte
	max      int
	bitBuf   uint64
	bitCount int
}

// copyCodes appends codes for the non-zero values of a, reporting false once
// the buffer limit is reached.
func (q *qtreeCodes) copyCodes(a []byte) bool {
	for _, v := range a {
		if v == 0 {
			continue
		}

		q.bitBuf |= huffCode[v] << q.bitCount
		q.bitCount += huffLen[v]
		if q.bitCount >= 8 {
			q.buf = append(q.buf, byte(q.bitBuf))
			if len(q.buf) >= q.max {
				return false
			}
			q.bitBuf >>= 8
			q.bitCount -= 8
		}
	}

	return true
}

// qtreeEncode codes the bit planes of the nqx by nqy quadrant of a, whose
// row stride is n.
func qtreeEncode(w *bitstream.Writer, a []int64, n, nqx, nqy, planes int) {
	log2n := log2Ceil(max(nqx, nqy))

	nqx2 := (nqx + 1) / 2
	nqy2 := (nqy + 1) / 2
	bmax := (nqx2*nqy2 + 1) / 2
	scratch := make([]byte, max(1, 2*bmax))

	for bit := planes - 1; bit >= 0; bit-- {
		codes := qtreeCodes{buf: make([]byte, 0, bmax), max: bmax}

		qtreeOneBit(a, n, nqx, nqy, scratch, bit)
		nx := (nqx + 1) >> 1
		ny := (nqy + 1) >> 1

		ok := codes.copyCodes(scratch[:nx*ny])
		for k := 1; ok && k < log2n; k++ {
			qtreeReduce(scratch, ny, nx, ny, scratch)
			nx = (nx + 1) >> 1
			ny = (ny + 1) >> 1
			ok = codes.copyCodes(scratch[:nx*ny])
		}

		if !ok {
			// quadtree coding would expand the plane, write the bitmap instead
			w.WriteBits(0, 4)
			qtreeOneBit(a, n, nqx, nqy, scratch, bit)
			for _, v := range scratch[:nqx2*nqy2] {
				w.WriteBits(uint64(v), 4)
			}

			continue
		}

		w.WriteBits(0xF, 4)
		if len(codes.buf) == 0 && codes.bitCount == 0 {
			// a plane without ones still carries one code
			w.WriteBits(huffCode[0], huffLen[0])

			continue
		}
		if codes.bitCount > 0 {
			w.WriteBits(codes.bitBuf, codes.bitCount)
		}
		for i := len(codes.buf) - 1; i >= 0; i-- {
			w.WriteBits(uint64(codes.buf[i]), 8)
		}
	}
}

// bitOf returns bit of v as 0 or 1.
func bitOf(v int64, bit int) byte {
	return byte((v >> bit) & 1)
}

// qtreeOneBit packs bit of each 2x2 block of a into a four-bit value of b.
func qtreeOneBit(a []int64, n, nx, ny int, b []byte, bit int) {
	k := 0
	i := 0
	for ; i < nx-1; i += 2 {
		s00 := n * i
		s10 := s00 + n
		j := 0
		for ; j < ny-1; j += 2 {
			b[k] = bitOf(a[s10+1], bit) | bitOf(a[s10], bit)<<1 | bitOf(a[s00+1], bit)<<2 | bitOf(a[s00], bit)<<3
			k++
			s00 += 2
			s10 += 2
		}
		if j < ny {
			b[k] = bitOf(a[s10], bit)<<1 | bitOf(a[s00], bit)<<3
			k++
		}
	}
	if i < nx {
		s00 := n * i
		j := 0
		for ; j < ny-1; j += 2 {
			b[k] = bitOf(a[s00+1], bit)<<2 | bitOf(a[s00], bit)<<3
			k++
			s00 += 2
		}
		if j < ny {
			b[k] = bitOf(a[s00], bit) << 3
		}
	}
}

func nonZero(v byte) byte {
	if v != 0 {
		return 1
	}

	return 0
}

// qtreeReduce marks which values of each 2x2 block of a are non-zero. a and
// b may be the same slice.
func qtreeReduce(a []byte, n, nx, ny int, b []byte) {
	k := 0
	i := 0
	for ; i < nx-1; i += 2 {
		s00 := n * i
		s10 := s00 + n
		j := 0
		for ; j < ny-1; j += 2 {
			b[k] = nonZero(a[s10+1]) | nonZero(a[s10])<<1 | nonZero(a[s00+1])<<2 | nonZero(a[s00])<<3
			k++
			s00 += 2
			s10 += 2
		}
		if j < ny {
			b[k] = nonZero(a[s10])<<1 | nonZero(a[s00])<<3
			k++
		}
	}
	if i < nx {
		s00 := n * i
		j := 0
		for ; j < ny-1; j += 2 {
			b[k] = nonZero(a[s00+1])<<2 | nonZero(a[s00])<<3
			k++
			s00 += 2
		}
		if j < ny {
			b[k] = nonZero(a[s00]) << 3
		}
	}
}
