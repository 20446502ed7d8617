// Package pixbuf holds the in-memory images handled by the FITS serializer.
//
// An Image is one of ten pixel formats backed by a dense, row-major,
// channel-interleaved sample buffer:
//
//	Luma8, LumaA8, RGB8, RGBA8         uint8 samples
//	Luma16, LumaA16, RGB16, RGBA16     uint16 samples
//	RGB32F, RGBA32F                    float32 samples
//
// The Image interface is closed: the only implementations are the Buffer
// types created by this package. Width and height never change after
// construction. Optional acquisition Metadata can be attached to any image.
//
//	img := pixbuf.NewRGB16(640, 480)
//	img.Pix[0] = 1024
//	img.SetMetadata(&pixbuf.Metadata{CameraName: "cam1", Timestamp: time.Now()})
package pixbuf
