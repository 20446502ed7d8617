package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressionType_Mapping(t *testing.T) {
	tests := []struct {
		cType     CompressionType
		extension string
		name      string
		algo      string
	}{
		{CompressionNone, "fits", "uncomp", "NOCOMPRESS"},
		{CompressionGzip, "fits[compress G]", "gzip", "GZIP_1"},
		{CompressionRice, "fits[compress R]", "rice", "RICE_1"},
		{CompressionHcompress, "fits[compress H]", "hcompress", "HCOMPRESS_1"},
		{CompressionHsmooth, "fits[compress HS]", "hscompress", "HCOMPRESS_1"},
		{CompressionBzip2, "fits[compress B]", "bzip2", "BZIP2_1"},
		{CompressionPlio, "fits[compress P]", "plio", "PLIO_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.cType.IsValid())
			require.Equal(t, tt.extension, tt.cType.Extension())
			require.Equal(t, tt.name, tt.cType.String())
			require.Equal(t, tt.algo, tt.cType.AlgorithmName())

			// stable across calls
			for range 5 {
				require.Equal(t, tt.extension, tt.cType.Extension())
				require.Equal(t, tt.name, tt.cType.String())
			}
		})
	}

	require.Len(t, Compressions, len(tests))
}

func TestCompressionType_Invalid(t *testing.T) {
	c := CompressionType(42)
	require.False(t, c.IsValid())
	require.Equal(t, "unknown", c.String())
	require.Equal(t, "fits", c.Extension())
	require.Empty(t, c.Qualifier())
}

func TestCompressionOf(t *testing.T) {
	require.Equal(t, CompressionNone, CompressionOf(nil))

	rice := CompressionRice
	require.Equal(t, CompressionRice, CompressionOf(&rice))
}

func TestParseCompression(t *testing.T) {
	for _, c := range Compressions {
		parsed, ok := ParseCompression(c.String())
		require.True(t, ok, c.String())
		require.Equal(t, c, parsed)

		if q := c.Qualifier(); q != "" {
			parsed, ok = ParseCompression(q)
			require.True(t, ok)
			require.Equal(t, c, parsed)
		}
	}

	c, ok := ParseCompression(" gzip_1 ")
	require.True(t, ok)
	require.Equal(t, CompressionGzip, c)

	_, ok = ParseCompression("lz4")
	require.False(t, ok)
}

func TestImageType(t *testing.T) {
	tests := []struct {
		iType  ImageType
		bitpix int
		bzero  int64
		bpp    int
		name   string
	}{
		{TypeUnsignedByte, 8, 0, 1, "UnsignedByte"},
		{TypeUnsignedShort, 16, 32768, 2, "UnsignedShort"},
		{TypeFloat, -32, 0, 4, "Float"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.bitpix, tt.iType.Bitpix())
			require.Equal(t, tt.bzero, tt.iType.BZero())
			require.Equal(t, tt.bpp, tt.iType.BytesPerPixel())
			require.Equal(t, tt.name, tt.iType.String())

			back, ok := ImageTypeFromBitpix(tt.bitpix, tt.bzero)
			require.True(t, ok)
			require.Equal(t, tt.iType, back)
		})
	}

	_, ok := ImageTypeFromBitpix(32, 0)
	require.False(t, ok)
	require.Equal(t, "Unknown", ImageType(0).String())
}
