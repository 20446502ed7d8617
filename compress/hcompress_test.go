package compress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

func TestLog2Ceil(t *testing.T) {
	tests := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 1000: 10, 1024: 10, 1025: 11}
	for n, want := range tests {
		require.Equal(t, want, log2Ceil(n), "n=%d", n)
	}
}

func TestHtrans_Inverse(t *testing.T) {
	dims := [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}, {3, 3}, {1, 17}, {16, 1}, {5, 8}, {16, 64}, {13, 29}}

	for i, d := range dims {
		nx, ny := d[0], d[1]
		tile := testTile(nx*ny, -70000, 70000, uint64(i+10)) //nolint: gosec

		a := make([]int64, len(tile))
		for j, v := range tile {
			a[j] = int64(v)
		}

		htrans(a, nx, ny)
		hinv(a, nx, ny)

		for j, v := range tile {
			require.Equal(t, int64(v), a[j], "%dx%d pixel %d", nx, ny, j)
		}
	}
}

func TestHtrans_TwoByTwo(t *testing.T) {
	a := []int64{1, 2, 3, 5}
	htrans(a, 2, 2)
	// h0 rounded to a multiple of 4, hx and hy to multiples of 2
	require.Equal(t, []int64{12, 4, 6, 1}, a)

	hinv(a, 2, 2)
	require.Equal(t, []int64{1, 2, 3, 5}, a)
}

func TestHcompressCodec_Stream(t *testing.T) {
	codec := NewHcompressCodec(false)
	shape := TileShape{Width: 2, Height: 1, BytePix: 2}

	data, err := codec.CompressTile([]int32{3, 6}, shape)
	require.NoError(t, err)

	require.Equal(t, []byte{0xDD, 0x99}, data[:2])
	require.Equal(t, []byte{0, 0, 0, 1}, data[2:6], "nx is the row count")
	require.Equal(t, []byte{0, 0, 0, 2}, data[6:10], "ny is the row length")
	require.Equal(t, []byte{0, 0, 0, 0}, data[10:14], "scale")
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 20}, data[14:22], "transformed sum")
	require.Equal(t, []byte{0, 3, 0}, data[22:25], "bit planes per quadrant")

	got, err := codec.DecompressTile(data, shape)
	require.NoError(t, err)
	require.Equal(t, []int32{3, 6}, got)
}

func TestHcompressCodec_Variants(t *testing.T) {
	plain := NewHcompressCodec(false)
	smooth := NewHcompressCodec(true)

	require.Equal(t, format.CompressionHcompress, plain.Type())
	require.Equal(t, format.CompressionHsmooth, smooth.Type())
	require.False(t, plain.Smooth())
	require.True(t, smooth.Smooth())
	require.Zero(t, smooth.Scale())

	shape := TileShape{Width: 40, Height: 16, BytePix: 2}
	tile := smoothTile(shape.Width, shape.Height, 200, 9)

	a, err := plain.CompressTile(tile, shape)
	require.NoError(t, err)
	b, err := smooth.CompressTile(tile, shape)
	require.NoError(t, err)
	require.Equal(t, a, b, "smoothing only applies on decompression")

	got, err := smooth.DecompressTile(a, shape)
	require.NoError(t, err)
	require.Equal(t, tile, got)
}

func TestHcompressCodec_SpecialTiles(t *testing.T) {
	codec := NewHcompressCodec(false)

	tests := []struct {
		name  string
		shape TileShape
		fill  func(i int) int32
	}{
		{"all zero", TileShape{Width: 16, Height: 16, BytePix: 2}, func(int) int32 { return 0 }},
		{"constant", TileShape{Width: 9, Height: 7, BytePix: 2}, func(int) int32 { return -321 }},
		{"single spike", TileShape{Width: 32, Height: 8, BytePix: 4}, func(i int) int32 {
			if i == 77 {
				return 1 << 24
			}

			return 0
		}},
		{"checkerboard", TileShape{Width: 10, Height: 10, BytePix: 1}, func(i int) int32 {
			if (i/10+i%10)%2 == 0 {
				return 255
			}

			return 0
		}},
		{"int32 extremes", TileShape{Width: 4, Height: 2, BytePix: 4}, func(i int) int32 {
			if i%2 == 0 {
				return -2147483648
			}

			return 2147483647
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile := make([]int32, tt.shape.Len())
			for i := range tile {
				tile[i] = tt.fill(i)
			}

			data, err := codec.CompressTile(tile, tt.shape)
			require.NoError(t, err)

			got, err := codec.DecompressTile(data, tt.shape)
			require.NoError(t, err)
			require.Equal(t, tile, got)
		})
	}
}

func TestHcompressCodec_Corrupt(t *testing.T) {
	codec := NewHcompressCodec(false)
	shape := TileShape{Width: 8, Height: 8, BytePix: 2}

	data, err := codec.CompressTile(testTile(shape.Len(), -100, 100, 4), shape)
	require.NoError(t, err)

	t.Run("short header", func(t *testing.T) {
		_, err := codec.DecompressTile(data[:10], shape)
		require.ErrorIs(t, err, errs.ErrCorruptTile)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{0x12, 0x34}, data[2:]...)
		_, err := codec.DecompressTile(bad, shape)
		require.ErrorIs(t, err, errs.ErrCorruptTile)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := codec.DecompressTile(data, TileShape{Width: 4, Height: 16, BytePix: 2})
		require.ErrorIs(t, err, errs.ErrCorruptTile)
	})

	t.Run("huge declared dimensions", func(t *testing.T) {
		huge := append([]byte(nil), data...)
		engine := endian.GetFITSEngine()
		engine.PutUint32(huge[2:], 1<<30)
		engine.PutUint32(huge[6:], 1<<30)
		_, err := codec.DecompressTile(huge, shape)
		require.ErrorIs(t, err, errs.ErrCorruptTile)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := codec.DecompressTile(data[:hcompressHeaderLen+2], shape)
		require.ErrorIs(t, err, errs.ErrCorruptTile)
	})

	t.Run("quantized stream", func(t *testing.T) {
		scaled := append([]byte(nil), data...)
		scaled[13] = 4
		_, err := codec.DecompressTile(scaled, shape)
		require.ErrorIs(t, err, errs.ErrUnsupportedCompression)
	})
}

func TestHuffmanTables(t *testing.T) {
	for v := range 16 {
		require.Equal(t, int8(v), huffDecode[huffLen[v]][huffCode[v]])
	}
}

func BenchmarkHcompressCompress(b *testing.B) {
	shape := TileShape{Width: 512, Height: 16, BytePix: 2}
	tile := smoothTile(shape.Width, shape.Height, 1000, 15)
	codec := NewHcompressCodec(false)

	b.SetBytes(int64(shape.Len() * shape.BytePix))
	b.ResetTimer()
	for b.Loop() {
		_, _ = codec.CompressTile(tile, shape)
	}
}
