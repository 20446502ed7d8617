// Package bitstream provides most-significant-bit-first bit writers and readers.
//
// The layout matches the bit packing used by the FITS Rice and Hcompress
// codecs: the first bit written becomes the high bit of the first byte, and a
// final partial byte is padded with zero bits.
package bitstream

import (
	"encoding/binary"
	"math/bits"
)

// Writer accumulates bits in a 64-bit buffer and spills whole words to a byte slice.
type Writer struct {
	buf      []byte
	bitBuf   uint64 // pending bits, right-aligned
	bitCount int    // number of valid bits in bitBuf
}

// NewWriter creates a Writer whose output is appended to dst.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

// WriteBit writes the low bit of bit.
func (w *Writer) WriteBit(bit uint64) {
	w.bitBuf = (w.bitBuf << 1) | (bit & 1)
	w.bitCount++

	if w.bitCount == 64 {
		w.spill()
	}
}

// WriteBits writes the numBits least significant bits of value, most significant first.
// numBits must be in [0, 64].
func (w *Writer) WriteBits(value uint64, numBits int) {
	if numBits == 0 {
		return
	}

	if numBits < 64 {
		value &= (1 << numBits) - 1
	}

	available := 64 - w.bitCount
	if numBits <= available {
		if numBits == 64 {
			w.bitBuf = value
		} else {
			w.bitBuf = (w.bitBuf << numBits) | value
		}
		w.bitCount += numBits

		if w.bitCount == 64 {
			w.spill()
		}

		return
	}

	// split across the word boundary
	highBits := numBits - available
	w.bitBuf = (w.bitBuf << available) | (value >> highBits)
	w.bitCount = 64
	w.spill()

	w.bitBuf = value & ((1 << highBits) - 1)
	w.bitCount = highBits
}

// WriteZeros writes count zero bits.
func (w *Writer) WriteZeros(count int) {
	for count >= 32 {
		w.WriteBits(0, 32)
		count -= 32
	}
	w.WriteBits(0, count)
}

// Flush pads the pending bits with zeros up to the next byte boundary and
// moves them to the output.
func (w *Writer) Flush() {
	if w.bitCount == 0 {
		return
	}

	numBytes := (w.bitCount + 7) / 8
	aligned := w.bitBuf << (64 - w.bitCount)
	for i := range numBytes {
		w.buf = append(w.buf, byte(aligned>>(56-8*i)))
	}

	w.bitBuf = 0
	w.bitCount = 0
}

// WriteBytes flushes pending bits and appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	w.Flush()
	w.buf = append(w.buf, data...)
}

// Bytes flushes pending bits and returns the encoded stream.
func (w *Writer) Bytes() []byte {
	w.Flush()
	return w.buf
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() int {
	return len(w.buf)*8 + w.bitCount
}

func (w *Writer) spill() {
	w.buf = binary.BigEndian.AppendUint64(w.buf, w.bitBuf)
	w.bitBuf = 0
	w.bitCount = 0
}

// Reader reads bits most significant first from a byte slice.
type Reader struct {
	data     []byte
	bytePos  int
	bitBuf   uint64 // left-aligned
	bitCount int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadBit reads a single bit. It returns false once the input is exhausted.
func (r *Reader) ReadBit() (uint64, bool) {
	if r.bitCount == 0 && !r.fill() {
		return 0, false
	}

	bit := r.bitBuf >> 63
	r.bitBuf <<= 1
	r.bitCount--

	return bit, true
}

// ReadBits reads numBits bits (0-64) and returns them right-aligned.
func (r *Reader) ReadBits(numBits int) (uint64, bool) {
	if numBits == 0 {
		return 0, true
	}

	if numBits <= r.bitCount {
		result := r.bitBuf >> (64 - numBits)
		r.bitBuf <<= numBits
		r.bitCount -= numBits

		return result, true
	}

	var result uint64
	for numBits > 0 {
		if r.bitCount == 0 && !r.fill() {
			return 0, false
		}

		n := min(numBits, r.bitCount)
		result = (result << n) | (r.bitBuf >> (64 - n))
		r.bitBuf <<= n
		r.bitCount -= n
		numBits -= n
	}

	return result, true
}

// ReadUnary counts zero bits up to and including the next one bit and
// returns the number of zeros.
func (r *Reader) ReadUnary() (int, bool) {
	zeros := 0
	for {
		if r.bitCount == 0 && !r.fill() {
			return 0, false
		}

		if r.bitBuf == 0 {
			zeros += r.bitCount
			r.bitCount = 0

			continue
		}

		// leading zeros of a non-zero left-aligned buffer are all valid bits
		lz := bits.LeadingZeros64(r.bitBuf)
		zeros += lz
		r.bitBuf <<= lz + 1
		r.bitCount -= lz + 1

		return zeros, true
	}
}

// AlignToByte discards the remaining bits of a partially consumed byte.
func (r *Reader) AlignToByte() {
	drop := r.bitCount % 8
	r.bitBuf <<= drop
	r.bitCount -= drop
}

// Remaining returns the unread bytes once the reader is byte aligned,
// including bytes already loaded into the bit buffer.
func (r *Reader) Remaining() []byte {
	r.AlignToByte()
	return r.data[r.bytePos-r.bitCount/8:]
}

func (r *Reader) fill() bool {
	if r.bytePos >= len(r.data) {
		return false
	}

	available := len(r.data) - r.bytePos
	if available >= 8 {
		r.bitBuf = binary.BigEndian.Uint64(r.data[r.bytePos:])
		r.bytePos += 8
		r.bitCount = 64

		return true
	}

	r.bitBuf = 0
	for i := range available {
		r.bitBuf = (r.bitBuf << 8) | uint64(r.data[r.bytePos+i])
	}
	r.bytePos += available
	r.bitBuf <<= uint(8-available) * 8
	r.bitCount = available * 8

	return true
}
