package pixbuf

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/stretchr/testify/require"
)

func newOf(f PixelFormat, w, h int) Image {
	switch f {
	case Luma8:
		return NewLuma8(w, h)
	case LumaA8:
		return NewLumaA8(w, h)
	case RGB8:
		return NewRGB8(w, h)
	case RGBA8:
		return NewRGBA8(w, h)
	case Luma16:
		return NewLuma16(w, h)
	case LumaA16:
		return NewLumaA16(w, h)
	case RGB16:
		return NewRGB16(w, h)
	case RGBA16:
		return NewRGBA16(w, h)
	case RGB32F:
		return NewRGB32F(w, h)
	case RGBA32F:
		return NewRGBA32F(w, h)
	}

	return nil
}

func sampleLen(img Image) int {
	switch s := img.Samples().(type) {
	case []uint8:
		return len(s)
	case []uint16:
		return len(s)
	case []float32:
		return len(s)
	}

	return -1
}

func TestFormats(t *testing.T) {
	tests := []struct {
		f        PixelFormat
		channels int
		st       format.ImageType
	}{
		{Luma8, 1, format.TypeUnsignedByte},
		{LumaA8, 2, format.TypeUnsignedByte},
		{RGB8, 3, format.TypeUnsignedByte},
		{RGBA8, 4, format.TypeUnsignedByte},
		{Luma16, 1, format.TypeUnsignedShort},
		{LumaA16, 2, format.TypeUnsignedShort},
		{RGB16, 3, format.TypeUnsignedShort},
		{RGBA16, 4, format.TypeUnsignedShort},
		{RGB32F, 3, format.TypeFloat},
		{RGBA32F, 4, format.TypeFloat},
	}
	require.Len(t, Formats, len(tests))

	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			img := newOf(tt.f, 5, 3)
			require.Equal(t, tt.f, img.Format())
			require.Equal(t, 5, img.Width())
			require.Equal(t, 3, img.Height())
			require.Equal(t, tt.channels, img.Channels())
			require.Equal(t, tt.st, img.SampleType())
			require.Equal(t, 5*3*tt.channels, sampleLen(img))
			require.Nil(t, img.Metadata())
		})
	}

	require.Equal(t, "Unknown", PixelFormat(0).String())
	require.Equal(t, 0, PixelFormat(0).Channels())
}

func TestBuffer_AtSet(t *testing.T) {
	img := NewRGB16(4, 2)
	img.Set(3, 1, 2, 999)
	require.Equal(t, uint16(999), img.At(3, 1, 2))
	require.Equal(t, uint16(999), img.Pix[(1*4+3)*3+2])
}

func TestFromSamples(t *testing.T) {
	t.Run("wraps without copy", func(t *testing.T) {
		pix := make([]uint16, 2*3*2)
		img, err := FromSamples(LumaA16, 2, 3, pix)
		require.NoError(t, err)
		pix[0] = 42
		require.Equal(t, pix, img.Samples())
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := FromSamples(RGB8, 2, 2, make([]uint8, 11))
		require.ErrorIs(t, err, errs.ErrInvalidImage)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := FromSamples(RGB32F, 1, 1, make([]uint8, 3))
		require.ErrorIs(t, err, errs.ErrInvalidImage)
	})

	t.Run("unsupported slice", func(t *testing.T) {
		_, err := FromSamples(Luma8, 1, 1, []int{1})
		require.ErrorIs(t, err, errs.ErrInvalidImage)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := FromSamples(PixelFormat(99), 1, 1, []uint8{1})
		require.ErrorIs(t, err, errs.ErrInvalidImage)
	})
}

func TestMetadata(t *testing.T) {
	m := &Metadata{CameraName: "cam1", Timestamp: time.Unix(10, 0)}
	m.AddExtended("FILTER", "Ha")
	m.AddExtended("OBSERVER", "someone")

	c := m.Clone()
	c.Extended[0].Value = "OIII"
	require.Equal(t, "Ha", m.Extended[0].Value)
	require.Equal(t, []KeyValue{{"FILTER", "OIII"}, {"OBSERVER", "someone"}}, c.Extended)

	var nilMeta *Metadata
	require.Nil(t, nilMeta.Clone())

	img := NewLuma8(1, 1)
	img.SetMetadata(m)
	require.Same(t, m, img.Metadata())
}

func TestFromImage(t *testing.T) {
	t.Run("gray", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 3, 2))
		src.SetGray(2, 1, color.Gray{Y: 200})
		img := FromImage(src)
		require.Equal(t, Luma8, img.Format())
		require.Equal(t, uint8(200), img.(*Buffer[uint8]).At(2, 1, 0))
	})

	t.Run("gray16 sub image", func(t *testing.T) {
		src := image.NewGray16(image.Rect(0, 0, 4, 4))
		src.SetGray16(2, 3, color.Gray16{Y: 0xBEEF})
		sub := src.SubImage(image.Rect(1, 1, 4, 4))
		img := FromImage(sub)
		require.Equal(t, Luma16, img.Format())
		require.Equal(t, 3, img.Width())
		require.Equal(t, uint16(0xBEEF), img.(*Buffer[uint16]).At(1, 2, 0))
	})

	t.Run("nrgba", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		src.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 128})
		img := FromImage(src).(*Buffer[uint8])
		require.Equal(t, RGBA8, img.Format())
		require.Equal(t, []uint8{0, 0, 0, 0, 1, 2, 3, 128}, img.Pix)
	})

	t.Run("rgba is un-premultiplied", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 1, 1))
		src.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		img := FromImage(src).(*Buffer[uint8])
		require.Equal(t, []uint8{255, 0, 0, 255}, img.Pix)
	})

	t.Run("nrgba64", func(t *testing.T) {
		src := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
		src.SetNRGBA64(0, 0, color.NRGBA64{R: 1000, G: 2000, B: 3000, A: 65535})
		img := FromImage(src).(*Buffer[uint16])
		require.Equal(t, RGBA16, img.Format())
		require.Equal(t, []uint16{1000, 2000, 3000, 65535}, img.Pix)
	})

	t.Run("opaque fallback", func(t *testing.T) {
		src := image.NewRGBA64(image.Rect(0, 0, 2, 2))
		for y := range 2 {
			for x := range 2 {
				src.SetRGBA64(x, y, color.RGBA64{R: 10, G: 20, B: 30, A: 0xFFFF})
			}
		}
		img := FromImage(src).(*Buffer[uint16])
		require.Equal(t, RGB16, img.Format())
		require.Equal(t, []uint16{10, 20, 30}, img.Pix[:3])
	})
}

func TestToFloat(t *testing.T) {
	src := NewRGB8(1, 1)
	src.Pix = []uint8{0, 255, 51}
	src.SetMetadata(&Metadata{CameraName: "x"})

	f := ToFloat(src).(*Buffer[float32])
	require.Equal(t, RGB32F, f.Format())
	require.InDeltaSlice(t, []float32{0, 1, 0.2}, f.Pix, 1e-6)
	require.Equal(t, "x", f.Metadata().CameraName)

	require.Nil(t, ToFloat(NewLuma8(1, 1)))
	require.Nil(t, ToFloat(NewRGB32F(1, 1)))
}
