package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer(t *testing.T) {
	bb := NewByteBuffer(4)
	require.Equal(t, 0, bb.Len())

	n, err := bb.Write([]byte("SIMPLE"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, []byte("SIMPLE"), bb.Bytes())

	bb.PadTo(8, ' ')
	require.Equal(t, []byte("SIMPLE  "), bb.Bytes())

	bb.PadTo(8, ' ')
	require.Equal(t, 8, bb.Len(), "already aligned buffer must not grow")

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(8), written)
	require.Equal(t, "SIMPLE  ", out.String())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(0)
	bb.Grow(10)
	require.GreaterOrEqual(t, cap(bb.B), TileBufferDefaultSize)

	big := NewByteBuffer(8 * TileBufferDefaultSize)
	big.B = append(big.B, 1, 2, 3)
	big.Grow(cap(big.B))
	require.Equal(t, []byte{1, 2, 3}, big.B)
	require.GreaterOrEqual(t, cap(big.B)-len(big.B), 8*TileBufferDefaultSize)
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.B = append(bb.B, 'x')
	p.Put(bb)

	again := p.Get()
	require.Equal(t, 0, again.Len(), "pooled buffers come back empty")

	huge := NewByteBuffer(64)
	p.Put(huge) // discarded, larger than threshold
	p.Put(nil)

	tile := GetTileBuffer()
	require.NotNil(t, tile)
	PutTileBuffer(tile)

	hdu := GetHDUBuffer()
	require.GreaterOrEqual(t, cap(hdu.B), 0)
	PutHDUBuffer(hdu)
}

func TestGetInt32Slice(t *testing.T) {
	s, cleanup := GetInt32Slice(100)
	require.Len(t, s, 100)
	s[99] = 7
	cleanup()

	small, cleanup2 := GetInt32Slice(3)
	defer cleanup2()
	require.Len(t, small, 3)
}
