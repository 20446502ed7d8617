package compress

import (
	"bytes"
	"fmt"

	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/internal/bitstream"
)

var errHcompressTruncated = fmt.Errorf("%w: hcompress stream truncated", errs.ErrCorruptTile)

// hcDecode parses an Hcompress stream holding an nx by ny tile and returns
// its H-transform coefficients. The stream must declare exactly that shape.
func hcDecode(data []byte, nx, ny int) ([]int64, error) {
	if len(data) < hcompressHeaderLen {
		return nil, errHcompressTruncated
	}
	if !bytes.Equal(data[:2], hcompressMagic[:]) {
		return nil, fmt.Errorf("%w: bad hcompress magic %x", errs.ErrCorruptTile, data[:2])
	}

	engine := endian.GetFITSEngine()
	gotX := int(int32(engine.Uint32(data[2:])))   //nolint: gosec
	gotY := int(int32(engine.Uint32(data[6:])))   //nolint: gosec
	scale := int(int32(engine.Uint32(data[10:]))) //nolint: gosec
	sum := int64(engine.Uint64(data[14:]))        //nolint: gosec
	planes := [3]int{int(data[22]), int(data[23]), int(data[24])}

	if gotX != nx || gotY != ny {
		return nil, fmt.Errorf("%w: hcompress tile is %dx%d, want %dx%d", errs.ErrCorruptTile, gotX, gotY, nx, ny)
	}
	if scale > 1 {
		return nil, fmt.Errorf("%w: hcompress scale %d", errs.ErrUnsupportedCompression, scale)
	}
	for _, p := range planes {
		if p > 62 {
			return nil, fmt.Errorf("%w: %d hcompress bit planes", errs.ErrCorruptTile, p)
		}
	}

	a := make([]int64, nx*ny)

	r := bitstream.NewReader(data[hcompressHeaderLen:])
	for _, q := range hcQuadrants(nx, ny, planes) {
		if err := qtreeDecode(r, quadrant(a, q.off), ny, q.nqx, q.nqy, q.planes); err != nil {
			return nil, err
		}
	}

	eof, ok := r.ReadBits(4)
	if !ok {
		return nil, errHcompressTruncated
	}
	if eof != 0 {
		return nil, fmt.Errorf("%w: bad hcompress bit plane values", errs.ErrCorruptTile)
	}

	// sign bits start on a fresh byte
	r.AlignToByte()
	for i, v := range a {
		if v == 0 {
			continue
		}
		sign, ok := r.ReadBit()
		if !ok {
			return nil, errHcompressTruncated
		}
		if sign == 1 {
			a[i] = -v
		}
	}

	a[0] = sum

	return a, nil
}

// qtreeDecode ORs the decoded bit planes of the nqx by nqy quadrant into a,
// whose row stride is n. a must be zeroed beforehand.
func qtreeDecode(r *bitstream.Reader, a []int64, n, nqx, nqy, planes int) error {
	log2n := log2Ceil(max(nqx, nqy))

	nqx2 := (nqx + 1) / 2
	nqy2 := (nqy + 1) / 2
	scratch := make([]byte, max(1, nqx2)*max(1, nqy2))

	for bit := planes - 1; bit >= 0; bit-- {
		code, ok := r.ReadBits(4)
		if !ok {
			return errHcompressTruncated
		}

		switch code {
		case 0:
			// bitmap written directly, four pixels per nybble
			for i := range nqx2 * nqy2 {
				v, ok := r.ReadBits(4)
				if !ok {
					return errHcompressTruncated
				}
				scratch[i] = byte(v)
			}
		case 0xF:
			v, err := readHuffman(r)
			if err != nil {
				return err
			}
			scratch[0] = v

			nx, ny := 1, 1
			nfx, nfy := nqx, nqy
			c := 1 << log2n
			for k := 1; k < log2n; k++ {
				// n[k-1] = (n[k]+1)/2 with n[log2n] = nqx or nqy
				c >>= 1
				nx <<= 1
				ny <<= 1
				if nfx <= c {
					nx--
				} else {
					nfx -= c
				}
				if nfy <= c {
					ny--
				} else {
					nfy -= c
				}
				if err := qtreeExpand(r, scratch, nx, ny); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: bad quadtree format code %#x", errs.ErrCorruptTile, code)
		}

		qtreeBitIns(scratch, nqx, nqy, a, n, bit)
	}

	return nil
}

// readHuffman reads one quadtree code.
func readHuffman(r *bitstream.Reader) (byte, error) {
	var c uint64
	for n := 1; n <= 6; n++ {
		b, ok := r.ReadBit()
		if !ok {
			return 0, errHcompressTruncated
		}
		c = c<<1 | b
		if n >= 3 {
			if v := huffDecode[n][c]; v >= 0 {
				return byte(v), nil
			}
		}
	}

	return 0, fmt.Errorf("%w: bad huffman code", errs.ErrCorruptTile)
}

// qtreeExpand expands the four-bit values of b in place to an nx by ny
// array of bits, then reads a new value for every non-zero bit, last first.
func qtreeExpand(r *bitstream.Reader, b []byte, nx, ny int) error {
	qtreeCopy(b, nx, ny, b, ny)

	for i := nx*ny - 1; i >= 0; i-- {
		if b[i] == 0 {
			continue
		}
		v, err := readHuffman(r)
		if err != nil {
			return err
		}
		b[i] = v
	}

	return nil
}

// qtreeCopy spreads the four bits of each value of a over a 2x2 block of b,
// whose row stride is n. a and b may be the same slice.
func qtreeCopy(a []byte, nx, ny int, b []byte, n int) {
	nx2 := (nx + 1) / 2
	ny2 := (ny + 1) / 2

	// copy from the end so that a and b may overlap
	k := ny2*(nx2-1) + ny2 - 1
	for i := nx2 - 1; i >= 0; i-- {
		s00 := 2 * (n*i + ny2 - 1)
		for j := ny2 - 1; j >= 0; j-- {
			b[s00] = a[k]
			k--
			s00 -= 2
		}
	}

	i := 0
	for ; i < nx-1; i += 2 {
		s00 := n * i
		s10 := s00 + n
		j := 0
		for ; j < ny-1; j += 2 {
			v := b[s00]
			b[s10+1] = v & 1
			b[s10] = (v >> 1) & 1
			b[s00+1] = (v >> 2) & 1
			b[s00] = (v >> 3) & 1
			s00 += 2
			s10 += 2
		}
		if j < ny {
			v := b[s00]
			b[s10] = (v >> 1) & 1
			b[s00] = (v >> 3) & 1
		}
	}
	if i < nx {
		s00 := n * i
		j := 0
		for ; j < ny-1; j += 2 {
			v := b[s00]
			b[s00+1] = (v >> 2) & 1
			b[s00] = (v >> 3) & 1
			s00 += 2
		}
		if j < ny {
			b[s00] = (b[s00] >> 3) & 1
		}
	}
}

// qtreeBitIns ORs the four-bit values of a into bit plane bit of the nx by
// ny array b, whose row stride is n.
func qtreeBitIns(a []byte, nx, ny int, b []int64, n, bit int) {
	set := func(idx int, v byte, pos uint) {
		b[idx] |= int64((v>>pos)&1) << bit
	}

	k := 0
	i := 0
	for ; i < nx-1; i += 2 {
		s00 := n * i
		s10 := s00 + n
		j := 0
		for ; j < ny-1; j += 2 {
			set(s10+1, a[k], 0)
			set(s10, a[k], 1)
			set(s00+1, a[k], 2)
			set(s00, a[k], 3)
			k++
			s00 += 2
			s10 += 2
		}
		if j < ny {
			set(s10, a[k], 1)
			set(s00, a[k], 3)
			k++
		}
	}
	if i < nx {
		s00 := n * i
		j := 0
		for ; j < ny-1; j += 2 {
			set(s00+1, a[k], 2)
			set(s00, a[k], 3)
			k++
			s00 += 2
		}
		if j < ny {
			set(s00, a[k], 3)
		}
	}
}
