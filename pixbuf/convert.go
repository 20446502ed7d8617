package pixbuf

import (
	"image"
	"image/color"
	"math"
)

// FromImage converts a standard library image into the closest pixel format.
//
// Gray and Gray16 map to Luma8 and Luma16; RGBA and NRGBA map to RGBA8;
// RGBA64 and NRGBA64 map to RGBA16. Every other model is converted through
// color.NRGBA64Model into RGBA16, or RGB16 when opaque. Alpha-premultiplied
// sources are un-premultiplied so the stored samples are straight values.
func FromImage(src image.Image) Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	switch s := src.(type) {
	case *image.Gray:
		dst := NewLuma8(w, h)
		for y := range h {
			copy(dst.Pix[y*w:(y+1)*w], s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):])
		}

		return dst
	case *image.Gray16:
		dst := NewLuma16(w, h)
		for y := range h {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := range w {
				dst.Pix[y*w+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}

		return dst
	case *image.NRGBA:
		dst := NewRGBA8(w, h)
		for y := range h {
			copy(dst.Pix[y*w*4:(y+1)*w*4], s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):])
		}

		return dst
	case *image.RGBA:
		dst := NewRGBA8(w, h)
		for y := range h {
			for x := range w {
				c := color.NRGBAModel.Convert(s.RGBAAt(b.Min.X+x, b.Min.Y+y)).(color.NRGBA) //nolint: forcetypeassert
				i := (y*w + x) * 4
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, c.A
			}
		}

		return dst
	case *image.NRGBA64:
		dst := NewRGBA16(w, h)
		for y := range h {
			for x := range w {
				c := s.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				i := (y*w + x) * 4
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, c.A
			}
		}

		return dst
	}

	opaque := isOpaque(src)
	var dst *Buffer[uint16]
	if opaque {
		dst = NewRGB16(w, h)
	} else {
		dst = NewRGBA16(w, h)
	}
	ch := dst.Channels()

	for y := range h {
		for x := range w {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64) //nolint: forcetypeassert
			i := (y*w + x) * ch
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = c.R, c.G, c.B
			if !opaque {
				dst.Pix[i+3] = c.A
			}
		}
	}

	return dst
}

func isOpaque(src image.Image) bool {
	if o, ok := src.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}

	return false
}

// ToFloat converts an 8 or 16-bit RGB/RGBA image into RGB32F/RGBA32F with
// samples scaled to [0, 1]. Other formats return nil.
func ToFloat(img Image) Image {
	var scale float32
	switch img.SampleType().Bitpix() {
	case 8:
		scale = math.MaxUint8
	case 16:
		scale = math.MaxUint16
	default:
		return nil
	}

	var dst *Buffer[float32]
	switch img.Channels() {
	case 3:
		dst = NewRGB32F(img.Width(), img.Height())
	case 4:
		dst = NewRGBA32F(img.Width(), img.Height())
	default:
		return nil
	}

	switch s := img.Samples().(type) {
	case []uint8:
		for i, v := range s {
			dst.Pix[i] = float32(v) / scale
		}
	case []uint16:
		for i, v := range s {
			dst.Pix[i] = float32(v) / scale
		}
	}
	dst.SetMetadata(img.Metadata())

	return dst
}
