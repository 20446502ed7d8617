package endian

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	require := require.New(t)

	result := CheckEndianness()

	var testValue uint16 = 0x0102
	testBytes := (*[2]byte)(unsafe.Pointer(&testValue))

	switch testBytes[0] {
	case 0x01:
		require.Equal(binary.BigEndian, result)
		require.True(IsNativeBigEndian())
	case 0x02:
		require.Equal(binary.LittleEndian, result)
		require.False(IsNativeBigEndian())
	default:
		require.Failf("Unexpected byte value", "got: %v", testBytes[0])
	}
}

func TestEngines(t *testing.T) {
	require.Equal(t, binary.BigEndian, GetFITSEngine())
	require.Equal(t, binary.LittleEndian, GetLittleEndianEngine())

	buf := GetFITSEngine().AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)
}

func TestAppendSamples(t *testing.T) {
	engine := GetFITSEngine()

	t.Run("uint8 copied verbatim", func(t *testing.T) {
		buf, ok := AppendSamples(engine, nil, []uint8{0, 7, 255})
		require.True(t, ok)
		require.Equal(t, []byte{0, 7, 255}, buf)
	})

	t.Run("uint16 offset by bzero", func(t *testing.T) {
		buf, ok := AppendSamples(engine, nil, []uint16{0, 32768, 65535})
		require.True(t, ok)
		require.Equal(t, []byte{0x80, 0x00, 0x00, 0x00, 0x7f, 0xff}, buf)
	})

	t.Run("int16 and int32", func(t *testing.T) {
		buf, ok := AppendSamples(engine, nil, []int16{-1, 2})
		require.True(t, ok)
		require.Equal(t, []byte{0xff, 0xff, 0x00, 0x02}, buf)

		buf, ok = AppendSamples(engine, nil, []int32{-2})
		require.True(t, ok)
		require.Equal(t, []byte{0xff, 0xff, 0xff, 0xfe}, buf)
	})

	t.Run("float32", func(t *testing.T) {
		buf, ok := AppendSamples(engine, []byte{0xaa}, []float32{1.5})
		require.True(t, ok)
		require.Len(t, buf, 5)
		require.Equal(t, byte(0xaa), buf[0])
		require.Equal(t, math.Float32bits(1.5), binary.BigEndian.Uint32(buf[1:]))
	})

	t.Run("unsupported", func(t *testing.T) {
		buf, ok := AppendSamples(engine, nil, []float64{1})
		require.False(t, ok)
		require.Empty(t, buf)
	})
}
