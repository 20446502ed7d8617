package pixbuf

import (
	"fmt"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// PixelFormat identifies the layout of an Image.
type PixelFormat uint8

const (
	Luma8 PixelFormat = iota + 1
	LumaA8
	RGB8
	RGBA8
	Luma16
	LumaA16
	RGB16
	RGBA16
	RGB32F
	RGBA32F
)

// Formats lists every pixel format.
var Formats = []PixelFormat{Luma8, LumaA8, RGB8, RGBA8, Luma16, LumaA16, RGB16, RGBA16, RGB32F, RGBA32F}

func (f PixelFormat) String() string {
	switch f {
	case Luma8:
		return "Luma8"
	case LumaA8:
		return "LumaA8"
	case RGB8:
		return "RGB8"
	case RGBA8:
		return "RGBA8"
	case Luma16:
		return "Luma16"
	case LumaA16:
		return "LumaA16"
	case RGB16:
		return "RGB16"
	case RGBA16:
		return "RGBA16"
	case RGB32F:
		return "RGB32F"
	case RGBA32F:
		return "RGBA32F"
	default:
		return "Unknown"
	}
}

// Channels returns the number of interleaved samples per pixel.
func (f PixelFormat) Channels() int {
	switch f {
	case Luma8, Luma16:
		return 1
	case LumaA8, LumaA16:
		return 2
	case RGB8, RGB16, RGB32F:
		return 3
	case RGBA8, RGBA16, RGBA32F:
		return 4
	default:
		return 0
	}
}

// SampleType returns the on-disk sample type of the format.
func (f PixelFormat) SampleType() format.ImageType {
	switch f {
	case Luma8, LumaA8, RGB8, RGBA8:
		return format.TypeUnsignedByte
	case Luma16, LumaA16, RGB16, RGBA16:
		return format.TypeUnsignedShort
	case RGB32F, RGBA32F:
		return format.TypeFloat
	default:
		return 0
	}
}

// Image is a read-only view of a pixel buffer and its metadata.
type Image interface {
	Format() PixelFormat
	Width() int
	Height() int
	Channels() int
	SampleType() format.ImageType
	// Samples returns the flattened buffer: []uint8, []uint16 or []float32.
	Samples() any
	Metadata() *Metadata
	SetMetadata(m *Metadata)

	sealed()
}

// Sample is the set of sample types a Buffer can hold.
type Sample interface {
	uint8 | uint16 | float32
}

// Buffer is the single implementation of Image, parameterized by sample type.
type Buffer[T Sample] struct {
	// Pix holds Width*Height*Channels samples, rows top to bottom, channels interleaved.
	Pix []T

	format PixelFormat
	width  int
	height int
	meta   *Metadata
}

var (
	_ Image = (*Buffer[uint8])(nil)
	_ Image = (*Buffer[uint16])(nil)
	_ Image = (*Buffer[float32])(nil)
)

func (b *Buffer[T]) Format() PixelFormat          { return b.format }
func (b *Buffer[T]) Width() int                   { return b.width }
func (b *Buffer[T]) Height() int                  { return b.height }
func (b *Buffer[T]) Channels() int                { return b.format.Channels() }
func (b *Buffer[T]) SampleType() format.ImageType { return b.format.SampleType() }
func (b *Buffer[T]) Samples() any                 { return b.Pix }
func (b *Buffer[T]) Metadata() *Metadata          { return b.meta }
func (b *Buffer[T]) SetMetadata(m *Metadata)      { b.meta = m }
func (b *Buffer[T]) sealed()                      {}

// At returns the sample of channel c at pixel (x, y).
func (b *Buffer[T]) At(x, y, c int) T {
	return b.Pix[(y*b.width+x)*b.format.Channels()+c]
}

// Set stores v as the sample of channel c at pixel (x, y).
func (b *Buffer[T]) Set(x, y, c int, v T) {
	b.Pix[(y*b.width+x)*b.format.Channels()+c] = v
}

func newBuffer[T Sample](f PixelFormat, width, height int) *Buffer[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("pixbuf: negative dimensions %dx%d", width, height))
	}

	return &Buffer[T]{
		Pix:    make([]T, width*height*f.Channels()),
		format: f,
		width:  width,
		height: height,
	}
}

func NewLuma8(width, height int) *Buffer[uint8]    { return newBuffer[uint8](Luma8, width, height) }
func NewLumaA8(width, height int) *Buffer[uint8]   { return newBuffer[uint8](LumaA8, width, height) }
func NewRGB8(width, height int) *Buffer[uint8]     { return newBuffer[uint8](RGB8, width, height) }
func NewRGBA8(width, height int) *Buffer[uint8]    { return newBuffer[uint8](RGBA8, width, height) }
func NewLuma16(width, height int) *Buffer[uint16]  { return newBuffer[uint16](Luma16, width, height) }
func NewLumaA16(width, height int) *Buffer[uint16] { return newBuffer[uint16](LumaA16, width, height) }
func NewRGB16(width, height int) *Buffer[uint16]   { return newBuffer[uint16](RGB16, width, height) }
func NewRGBA16(width, height int) *Buffer[uint16]  { return newBuffer[uint16](RGBA16, width, height) }
func NewRGB32F(width, height int) *Buffer[float32] { return newBuffer[float32](RGB32F, width, height) }
func NewRGBA32F(width, height int) *Buffer[float32] {
	return newBuffer[float32](RGBA32F, width, height)
}

// FromSamples wraps an existing sample slice without copying it.
//
// Parameters:
//   - f: pixel format; its sample type must match the slice element type
//   - width, height: image dimensions
//   - samples: []uint8, []uint16 or []float32 with width*height*channels elements
//
// Returns:
//   - Image: the wrapped buffer
//   - error: ErrInvalidImage if the format, type or length do not agree
func FromSamples(f PixelFormat, width, height int, samples any) (Image, error) {
	if f.Channels() == 0 {
		return nil, fmt.Errorf("%w: unknown pixel format %d", errs.ErrInvalidImage, f)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", errs.ErrInvalidImage, width, height)
	}

	want := width * height * f.Channels()

	switch s := samples.(type) {
	case []uint8:
		return wrap(f, format.TypeUnsignedByte, width, height, want, s)
	case []uint16:
		return wrap(f, format.TypeUnsignedShort, width, height, want, s)
	case []float32:
		return wrap(f, format.TypeFloat, width, height, want, s)
	default:
		return nil, fmt.Errorf("%w: unsupported sample slice %T", errs.ErrInvalidImage, samples)
	}
}

func wrap[T Sample](f PixelFormat, st format.ImageType, width, height, want int, pix []T) (Image, error) {
	if f.SampleType() != st {
		return nil, fmt.Errorf("%w: %s needs %s samples, got %s", errs.ErrInvalidImage, f, f.SampleType(), st)
	}
	if len(pix) != want {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d samples, got %d", errs.ErrInvalidImage, f, width, height, want, len(pix))
	}

	return &Buffer[T]{Pix: pix, format: f, width: width, height: height}, nil
}
