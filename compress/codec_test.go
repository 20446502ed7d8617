package compress

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// testTile builds a deterministic tile with values in [lo, hi].
func testTile(n int, lo, hi int32, seed uint64) []int32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint: gosec
	tile := make([]int32, n)
	span := int64(hi) - int64(lo) + 1
	for i := range tile {
		tile[i] = int32(int64(lo) + rng.Int64N(span)) //nolint: gosec
	}

	return tile
}

// smoothTile builds a slowly varying gradient with a little noise, the
// typical shape of astronomical frames.
func smoothTile(width, height int, base, noise int32) []int32 {
	rng := rand.New(rand.NewPCG(7, 11)) //nolint: gosec
	tile := make([]int32, width*height)
	for y := range height {
		for x := range width {
			tile[y*width+x] = base + int32(x+y) + rng.Int32N(noise+1) //nolint: gosec
		}
	}

	return tile
}

func TestTileShape(t *testing.T) {
	require.Equal(t, 12, TileShape{Width: 4, Height: 3, BytePix: 2}.Len())
	require.NoError(t, TileShape{Width: 4, Height: 3, BytePix: 4}.Validate())

	err := TileShape{Width: 0, Height: 3, BytePix: 1}.Validate()
	require.ErrorIs(t, err, errs.ErrInvalidValue)

	err = TileShape{Width: 4, Height: 3, BytePix: 3}.Validate()
	require.ErrorIs(t, err, errs.ErrInvalidValue)
}

func TestCreateCodec(t *testing.T) {
	tests := []struct {
		name    string
		typ     format.CompressionType
		wantErr bool
	}{
		{"none", format.CompressionNone, false},
		{"gzip", format.CompressionGzip, false},
		{"bzip2", format.CompressionBzip2, false},
		{"rice is tile only", format.CompressionRice, true},
		{"plio is tile only", format.CompressionPlio, true},
		{"unknown", format.CompressionType(99), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := CreateCodec(tt.typ)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrUnsupportedCompression)
				require.Nil(t, codec)

				return
			}
			require.NoError(t, err)
			require.NotNil(t, codec)

			builtin, err := GetCodec(tt.typ)
			require.NoError(t, err)
			require.Equal(t, codec, builtin)
		})
	}
}

func TestCreateTileCodec(t *testing.T) {
	for _, c := range format.Compressions {
		t.Run(c.String(), func(t *testing.T) {
			codec, err := CreateTileCodec(c)
			if c == format.CompressionNone {
				require.ErrorIs(t, err, errs.ErrUnsupportedCompression)

				_, err = GetTileCodec(c)
				require.ErrorIs(t, err, errs.ErrUnsupportedCompression)

				return
			}
			require.NoError(t, err)
			require.Equal(t, c, codec.Type())

			builtin, err := GetTileCodec(c)
			require.NoError(t, err)
			require.Equal(t, c, builtin.Type())
		})
	}
}

func TestTileCodecs_RoundTrip(t *testing.T) {
	shapes := []TileShape{
		{Width: 1, Height: 1},
		{Width: 7, Height: 1},
		{Width: 1, Height: 9},
		{Width: 33, Height: 1},
		{Width: 64, Height: 16},
		{Width: 17, Height: 5},
		{Width: 300, Height: 3},
	}
	ranges := []struct {
		bytePix int
		lo, hi  int32
	}{
		{1, 0, 255},
		{2, -32768, 32767},
		{4, -1 << 20, 1 << 20},
	}

	codecs := []format.CompressionType{
		format.CompressionGzip,
		format.CompressionRice,
		format.CompressionHcompress,
		format.CompressionHsmooth,
		format.CompressionBzip2,
	}

	for _, algo := range codecs {
		codec, err := GetTileCodec(algo)
		require.NoError(t, err)

		for _, r := range ranges {
			for i, shape := range shapes {
				shape.BytePix = r.bytePix
				tile := testTile(shape.Len(), r.lo, r.hi, uint64(i+1)) //nolint: gosec

				data, err := codec.CompressTile(tile, shape)
				require.NoError(t, err, "%s %+v", algo, shape)

				got, err := codec.DecompressTile(data, shape)
				require.NoError(t, err, "%s %+v", algo, shape)
				require.Equal(t, tile, got, "%s %+v", algo, shape)
			}
		}
	}
}

func TestTileCodecs_SmoothData(t *testing.T) {
	shape := TileShape{Width: 128, Height: 16, BytePix: 2}
	tile := smoothTile(shape.Width, shape.Height, 1000, 3)

	for _, algo := range []format.CompressionType{
		format.CompressionGzip,
		format.CompressionRice,
		format.CompressionHcompress,
		format.CompressionBzip2,
	} {
		t.Run(algo.String(), func(t *testing.T) {
			codec, err := GetTileCodec(algo)
			require.NoError(t, err)

			data, err := codec.CompressTile(tile, shape)
			require.NoError(t, err)
			require.Less(t, len(data), shape.Len()*shape.BytePix, "smooth data should compress")

			got, err := codec.DecompressTile(data, shape)
			require.NoError(t, err)
			require.Equal(t, tile, got)
		})
	}
}

func TestTileCodecs_LengthMismatch(t *testing.T) {
	shape := TileShape{Width: 4, Height: 2, BytePix: 2}
	for _, codec := range builtinTileCodecs {
		_, err := codec.CompressTile(make([]int32, 7), shape)
		require.ErrorIs(t, err, errs.ErrDataMismatch, codec.Type().String())
	}
}

func TestCompressionStats(t *testing.T) {
	stats := CompressionStats{Algorithm: format.CompressionRice}
	require.Zero(t, stats.CompressionRatio())

	stats.Add(100, 25)
	stats.Add(100, 25)
	require.Equal(t, 2, stats.Tiles)
	require.Equal(t, int64(200), stats.OriginalSize)
	require.Equal(t, int64(50), stats.CompressedSize)
	require.InDelta(t, 0.25, stats.CompressionRatio(), 1e-9)
	require.InDelta(t, 75.0, stats.SpaceSavings(), 1e-9)
}

func TestNoOpCompressor(t *testing.T) {
	codec := NewNoOpCompressor()
	data := []byte("SIMPLE  =")

	out, err := codec.Compress(data)
	require.NoError(t, err)
	require.Equal(t, data, out)

	out, err = codec.Decompress(data)
	require.NoError(t, err)
	require.Equal(t, data, out)

	out[0] = 'X'
	require.Equal(t, byte('S'), data[0], "output does not alias the input")
}

func TestNoOpCompressor_PooledTiles(t *testing.T) {
	codec := NewByteTileCodec(format.CompressionNone, NewNoOpCompressor())
	shape := TileShape{Width: 4, Height: 1, BytePix: 2}

	first, err := codec.CompressTile([]int32{1, 2, 3, 4}, shape)
	require.NoError(t, err)
	_, err = codec.CompressTile([]int32{9, 9, 9, 9}, shape)
	require.NoError(t, err)

	tile, err := codec.DecompressTile(first, shape)
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3, 4}, tile)
}
