package fits

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
)

// ImageData is a decoded image.
type ImageData struct {
	Type format.ImageType
	// Dimensions are ordered slowest axis first, like ImageDescription.
	Dimensions []int
	// Samples is []uint8, []uint16 or []float32 holding physical values.
	Samples any
}

// Open reads every HDU of the file at path. A "[compress ...]" qualifier
// in path is ignored.
func Open(fs fsys.FS, path string) ([]*HDU, error) {
	name, err := ParseFileName(path)
	if err != nil {
		return nil, err
	}

	f, err := fsys.Open(fs, name.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads HDUs from r until it is exhausted.
func Decode(r io.Reader) ([]*HDU, error) {
	br := bufio.NewReaderSize(r, BlockSize*4)

	var hdus []*HDU
	for {
		hdr, err := ReadHeader(br)
		if errors.Is(err, io.EOF) {
			if len(hdus) == 0 {
				return nil, fmt.Errorf("%w: empty file", errs.ErrTruncated)
			}

			return hdus, nil
		}
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(hdus), err)
		}

		hdu, err := newParsedHDU(hdr, len(hdus) == 0)
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(hdus), err)
		}

		size, err := dataSize(hdr)
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(hdus), err)
		}

		padded := (size + BlockSize - 1) / BlockSize * BlockSize
		data, err := readDataUnit(br, padded)
		if err != nil {
			return nil, fmt.Errorf("%w: HDU %d data: %d of %d bytes: %w", errs.ErrTruncated, len(hdus), len(data), padded, err)
		}
		hdu.data = data[:size]
		hdus = append(hdus, hdu)
	}
}

// readChunk bounds how far the data buffer grows ahead of the bytes read.
const readChunk = 1 << 20

// readDataUnit reads n bytes from r. The buffer grows as data arrives, so a
// header declaring more data than the file holds costs at most one chunk.
func readDataUnit(r io.Reader, n int) ([]byte, error) {
	data := make([]byte, 0, min(n, readChunk))
	for len(data) < n {
		step := min(n-len(data), readChunk)
		data = slices.Grow(data, step)

		got, err := io.ReadFull(r, data[len(data):len(data)+step])
		data = data[:len(data)+got]
		if err != nil {
			return data, err
		}
	}

	return data, nil
}

func newParsedHDU(hdr *Header, primary bool) (*HDU, error) {
	hdu := &HDU{keys: hdr, parsed: true, encoded: true, kind: kindOther}
	hdu.name, _ = hdr.String("EXTNAME")

	if primary {
		if simple, ok := hdr.Bool("SIMPLE"); !ok || !simple {
			return nil, fmt.Errorf("%w: missing SIMPLE = T", errs.ErrInvalidHeader)
		}
		hdu.kind = kindPrimary
	} else {
		xt, ok := hdr.String("XTENSION")
		if !ok {
			return nil, fmt.Errorf("%w: missing XTENSION", errs.ErrInvalidHeader)
		}
		zimage, _ := hdr.Bool("ZIMAGE")

		switch {
		case xt == "IMAGE":
			hdu.kind = kindImage
		case xt == "BINTABLE" && zimage:
			hdu.kind = kindCompressed
		}
	}

	switch hdu.kind {
	case kindPrimary, kindImage:
		desc, err := plainDescription(hdr)
		if err != nil {
			return nil, err
		}
		hdu.desc = desc
	case kindCompressed:
		comp, _, err := readCompression(hdr)
		if err != nil {
			return nil, err
		}
		hdu.comp = comp

		axes, err := readAxes(hdr, "ZNAXIS")
		if err != nil {
			return nil, err
		}
		zbitpix, _ := hdr.Int("ZBITPIX")
		bzero, _ := hdr.Float("BZERO")
		if typ, ok := format.ImageTypeFromBitpix(int(zbitpix), int64(bzero)); ok {
			hdu.desc = &ImageDescription{Type: typ, Dimensions: reverse(axes)}
		}

		for i := range axes {
			v, ok := hdr.Int("ZTILE" + strconv.Itoa(i+1))
			if !ok {
				v = 1
				if i == 0 {
					v = int64(axes[0])
				}
			}
			hdu.tile = append(hdu.tile, int(v))
		}
	}

	return hdu, nil
}

// plainDescription describes the image of a primary or IMAGE HDU; nil when
// NAXIS is 0 or the pixel type has no ImageType.
func plainDescription(hdr *Header) (*ImageDescription, error) {
	axes, err := readAxes(hdr, "NAXIS")
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return nil, nil //nolint: nilnil
	}

	bitpix, _ := hdr.Int("BITPIX")
	bzero, _ := hdr.Float("BZERO")
	typ, ok := format.ImageTypeFromBitpix(int(bitpix), int64(bzero))
	if !ok {
		return nil, nil //nolint: nilnil
	}

	return &ImageDescription{Type: typ, Dimensions: reverse(axes)}, nil
}

// readAxes reads prefix and prefix1..n as NAXIS ordered lengths.
func readAxes(hdr *Header, prefix string) ([]int, error) {
	n, ok := hdr.Int(prefix)
	if !ok || n < 0 || n > maxAxes {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidHeader, prefix)
	}

	axes := make([]int, n)
	for i := range axes {
		v, ok := hdr.Int(prefix + strconv.Itoa(i+1))
		if !ok || v < 0 {
			return nil, fmt.Errorf("%w: %s%d", errs.ErrInvalidHeader, prefix, i+1)
		}
		axes[i] = int(v)
	}

	return axes, nil
}

// dataSize returns the byte size of the data unit described by hdr.
func dataSize(hdr *Header) (int, error) {
	bitpix, ok := hdr.Int("BITPIX")
	if !ok {
		return 0, fmt.Errorf("%w: missing BITPIX", errs.ErrInvalidHeader)
	}
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return 0, fmt.Errorf("%w: BITPIX %d", errs.ErrInvalidHeader, bitpix)
	}

	axes, err := readAxes(hdr, "NAXIS")
	if err != nil {
		return 0, err
	}
	if len(axes) == 0 {
		return 0, nil
	}

	pcount, _ := hdr.Int("PCOUNT")
	gcount, ok := hdr.Int("GCOUNT")
	if !ok {
		gcount = 1
	}
	if pcount < 0 || pcount > maxDataSize || gcount < 0 {
		return 0, fmt.Errorf("%w: PCOUNT %d GCOUNT %d", errs.ErrInvalidHeader, pcount, gcount)
	}

	n := int64(1)
	for i, v := range axes {
		if n, ok = mulBounded(n, int64(v)); !ok {
			return 0, fmt.Errorf("%w: NAXIS1..NAXIS%d exceed %d bytes", errs.ErrInvalidHeader, i+1, maxDataSize)
		}
	}

	size := bitpix / 8
	if size < 0 {
		size = -size
	}

	total := pcount + n
	for _, f := range []int64{gcount, size} {
		if total, ok = mulBounded(total, f); !ok || total > maxDataSize {
			return 0, fmt.Errorf("%w: data unit exceeds %d bytes", errs.ErrInvalidHeader, maxDataSize)
		}
	}

	return int(total), nil
}

// maxDataSize is the largest data unit Decode accepts.
const maxDataSize int64 = math.MaxInt32 * 16

// mulBounded returns a*b for non-negative a and b, or false when the product
// exceeds maxDataSize.
func mulBounded(a, b int64) (int64, bool) {
	if a != 0 && b > maxDataSize/a {
		return 0, false
	}

	return a * b, true
}

// ReadImage decodes the pixels of the HDU.
func (h *HDU) ReadImage() (*ImageData, error) {
	switch h.kind {
	case kindCompressed:
		if !h.parsed {
			return nil, fmt.Errorf("%w: HDU is being written", errs.ErrDataMismatch)
		}

		return decodeCompressed(h.keys, h.data)
	case kindPrimary, kindImage:
		if h.desc == nil {
			return nil, fmt.Errorf("%w: HDU %q holds no supported image", errs.ErrDataMismatch, h.name)
		}
		if !h.encoded {
			return &ImageData{Type: h.desc.Type, Dimensions: h.desc.clone().Dimensions, Samples: zeroSamples(h.desc.Type, h.desc.NumPixels())}, nil
		}

		return decodePlain(*h.desc, h.data)
	default:
		return nil, fmt.Errorf("%w: HDU %q is not an image", errs.ErrDataMismatch, h.name)
	}
}

func decodePlain(desc ImageDescription, data []byte) (*ImageData, error) {
	n := desc.NumPixels()
	if len(data) < n*desc.Type.BytesPerPixel() {
		return nil, fmt.Errorf("%w: %d bytes for %d pixels", errs.ErrTruncated, len(data), n)
	}

	engine := endian.GetFITSEngine()
	img := &ImageData{Type: desc.Type, Dimensions: desc.clone().Dimensions}

	switch desc.Type {
	case format.TypeUnsignedByte:
		img.Samples = append([]uint8(nil), data[:n]...)
	case format.TypeUnsignedShort:
		out := make([]uint16, n)
		for i := range out {
			out[i] = engine.Uint16(data[2*i:]) ^ 0x8000
		}
		img.Samples = out
	case format.TypeFloat:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(engine.Uint32(data[4*i:]))
		}
		img.Samples = out
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedImageType, desc.Type)
	}

	return img, nil
}
