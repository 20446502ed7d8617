package fitsimg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/fits"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/pixbuf"
	"github.com/arloliu/fitsimg/serializer"
)

func TestSaveFITS_DefaultsToUncompressed(t *testing.T) {
	mem := fsys.NewMemFS()
	img := pixbuf.NewLuma8(4, 3)
	for i := range img.Pix {
		img.Pix[i] = uint8(i) //nolint: gosec
	}

	name, err := SaveFITS(img, nil, "frame.png", false, serializer.WithFS(mem))
	require.NoError(t, err)
	require.Equal(t, "frame.fits", name)

	hdus, err := fits.Open(mem, name)
	require.NoError(t, err)
	require.Len(t, hdus, 1)

	data, err := hdus[0].ReadImage()
	require.NoError(t, err)
	require.Equal(t, img.Pix, data.Samples)
}

func TestSaveFITS_Compressed(t *testing.T) {
	mem := fsys.NewMemFS()
	comp := format.CompressionBzip2
	clock := func() time.Time { return time.Unix(1700000000, 0) }

	name, err := SaveFITS(pixbuf.NewRGB16(8, 8), &comp, "out", false,
		serializer.WithFS(mem), serializer.WithClock(clock))
	require.NoError(t, err)
	require.Equal(t, "out.fits[compress B]", name)
	require.Equal(t, []string{"out.fits"}, mem.Files())

	hdus, err := fits.Open(mem, name)
	require.NoError(t, err)
	require.Len(t, hdus, 2)
	require.Equal(t, format.CompressionBzip2, hdus[1].Compression())
}

func TestSaveFITS_InvalidOption(t *testing.T) {
	_, err := SaveFITS(pixbuf.NewLuma8(1, 1), nil, "x.fits", false, serializer.WithFS(nil))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestNewSerializer(t *testing.T) {
	s, err := NewSerializer(serializer.WithFS(fsys.NewMemFS()))
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestCompression(t *testing.T) {
	tests := []struct {
		name string
		want format.CompressionType
	}{
		{"", format.CompressionNone},
		{"none", format.CompressionNone},
		{"gzip", format.CompressionGzip},
		{"R", format.CompressionRice},
		{"HCOMPRESS_1", format.CompressionHcompress},
		{"hscompress", format.CompressionHsmooth},
		{"bzip2", format.CompressionBzip2},
		{"plio", format.CompressionPlio},
	}

	for _, tt := range tests {
		got, err := Compression(tt.name)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, got, tt.name)
	}

	_, err := Compression("lz4")
	require.ErrorIs(t, err, errs.ErrUnsupportedCompression)
}
