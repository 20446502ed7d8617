package pool

import (
	"io"
	"sync"
)

// Default sizes of the pooled buffers.
const (
	TileBufferDefaultSize  = 1024 * 16        // 16KiB, one compressed tile
	TileBufferMaxThreshold = 1024 * 256       // 256KiB
	HDUBufferDefaultSize   = 2880 * 64        // 64 FITS blocks
	HDUBufferMaxThreshold  = 1024 * 1024 * 16 // 16MiB
)

// ByteBuffer is a growable byte slice that can be recycled through a ByteBufferPool.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Grow ensures the buffer can hold n more bytes without reallocating.
//
// Small buffers grow by TileBufferDefaultSize, larger ones by 25% of their capacity.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) >= n {
		return
	}

	growBy := TileBufferDefaultSize
	if cap(bb.B) > 4*TileBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < n {
		growBy = n
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// PadTo appends fill bytes until the length is a multiple of block.
func (bb *ByteBuffer) PadTo(block int, fill byte) {
	rem := len(bb.B) % block
	if rem == 0 {
		return
	}

	pad := block - rem
	bb.Grow(pad)
	for range pad {
		bb.B = append(bb.B, fill)
	}
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers that discards buffers grown past maxThreshold.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	tileDefaultPool = NewByteBufferPool(TileBufferDefaultSize, TileBufferMaxThreshold)
	hduDefaultPool  = NewByteBufferPool(HDUBufferDefaultSize, HDUBufferMaxThreshold)
)

// GetTileBuffer retrieves a ByteBuffer sized for a single compressed tile.
func GetTileBuffer() *ByteBuffer {
	return tileDefaultPool.Get()
}

// PutTileBuffer returns a tile ByteBuffer to its pool.
func PutTileBuffer(bb *ByteBuffer) {
	tileDefaultPool.Put(bb)
}

// GetHDUBuffer retrieves a ByteBuffer sized for a serialized header-data unit.
func GetHDUBuffer() *ByteBuffer {
	return hduDefaultPool.Get()
}

// PutHDUBuffer returns an HDU ByteBuffer to its pool.
func PutHDUBuffer(bb *ByteBuffer) {
	hduDefaultPool.Put(bb)
}
