package fits

import (
	"fmt"
	"strings"

	"github.com/arloliu/fitsimg/compress"
	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// maxAxes is the largest NAXIS allowed by the standard.
const maxAxes = 999

// ImageDescription describes the pixel array of an image HDU.
type ImageDescription struct {
	Type format.ImageType
	// Dimensions are ordered slowest axis first: [height, width] or
	// [height, width, channels]. They are written reversed as NAXIS1..n.
	Dimensions []int
}

// Validate checks the sample type and the dimensions.
func (d ImageDescription) Validate() error {
	if d.Type.Bitpix() == 0 {
		return fmt.Errorf("%w: %d", errs.ErrUnsupportedImageType, d.Type)
	}
	if len(d.Dimensions) == 0 || len(d.Dimensions) > maxAxes {
		return fmt.Errorf("%w: %d image axes", errs.ErrInvalidValue, len(d.Dimensions))
	}

	for i, n := range d.Dimensions {
		if n < 0 {
			return fmt.Errorf("%w: dimension %d is %d", errs.ErrInvalidValue, i, n)
		}
	}

	return nil
}

// NumPixels returns the number of samples of the image.
func (d ImageDescription) NumPixels() int {
	if len(d.Dimensions) == 0 {
		return 0
	}

	n := 1
	for _, v := range d.Dimensions {
		n *= v
	}

	return n
}

// Axes returns the dimensions in NAXIS order, fastest varying first.
func (d ImageDescription) Axes() []int {
	return reverse(d.Dimensions)
}

func (d ImageDescription) clone() *ImageDescription {
	return &ImageDescription{Type: d.Type, Dimensions: append([]int(nil), d.Dimensions...)}
}

type hduKind uint8

const (
	kindPrimary hduKind = iota
	kindImage
	kindCompressed
	kindOther
)

// HDU is one header-data unit. HDUs returned by File accept keys and pixel
// data until the file is closed; HDUs returned by the reader are read-only.
type HDU struct {
	file *File
	kind hduKind
	name string
	desc *ImageDescription // nil when the HDU has no pixel data
	comp format.CompressionType
	tile []int // NAXIS order

	keys    *Header // caller keys, or the whole header of a parsed HDU
	data    []byte  // encoded data unit, without padding
	layout  tableLayout
	encoded bool
	written bool
	parsed  bool
	stats   compress.CompressionStats
}

// Name returns the EXTNAME of the HDU, empty for the primary HDU.
func (h *HDU) Name() string {
	return h.name
}

// IsPrimary reports whether h is the first HDU of the file.
func (h *HDU) IsPrimary() bool {
	return h.kind == kindPrimary
}

// IsCompressed reports whether the image is stored as a tile-compressed table.
func (h *HDU) IsCompressed() bool {
	return h.kind == kindCompressed
}

// Compression returns the tile compression algorithm of the HDU.
func (h *HDU) Compression() format.CompressionType {
	return h.comp
}

// Description returns the image description; false when the HDU holds no image.
func (h *HDU) Description() (ImageDescription, bool) {
	if h.desc == nil {
		return ImageDescription{}, false
	}

	return *h.desc.clone(), true
}

// Tile returns the tile dimensions in NAXIS order, nil for uncompressed images.
func (h *HDU) Tile() []int {
	return append([]int(nil), h.tile...)
}

// Stats returns the tile compression statistics collected while writing.
func (h *HDU) Stats() compress.CompressionStats {
	return h.stats
}

// WriteKey stores a keyword with a value typed by its Go type.
//
// Structural keywords (SIMPLE, BITPIX, NAXISn, BZERO, the tiled image Z
// keywords and the like) are maintained by the writer and rejected with
// ErrInvalidKeyword. Writing a keyword twice replaces the previous value.
func (h *HDU) WriteKey(name string, value any) error {
	return h.WriteKeyComment(name, value, "")
}

// WriteKeyComment is WriteKey with a comment.
func (h *HDU) WriteKeyComment(name string, value any, comment string) error {
	if err := h.checkWritable(); err != nil {
		return err
	}

	keyword, err := normalizeKeyword(name)
	if err != nil {
		return err
	}
	if isStructural(keyword) {
		return fmt.Errorf("%w: %s is maintained by the writer", errs.ErrInvalidKeyword, keyword)
	}

	return h.keys.Set(keyword, value, comment)
}

// WriteComment appends a COMMENT card.
func (h *HDU) WriteComment(text string) error {
	if err := h.checkWritable(); err != nil {
		return err
	}

	return h.keys.Add("COMMENT", text)
}

// WriteImage stores the pixel data of the HDU.
//
// samples must be []uint8, []uint16 or []float32 matching the description
// type, with exactly NumPixels elements in row-major order. Compressed HDUs
// are tiled and compressed immediately, so codec failures surface here.
func (h *HDU) WriteImage(samples any) error {
	if err := h.checkWritable(); err != nil {
		return err
	}
	if h.desc == nil {
		return fmt.Errorf("%w: HDU %q has no image", errs.ErrDataMismatch, h.name)
	}
	if h.written {
		return fmt.Errorf("%w: HDU %q", errs.ErrDataAlreadyWritten, h.name)
	}

	n, ok := sampleCount(h.desc.Type, samples)
	if !ok {
		return fmt.Errorf("%w: %T for %s image", errs.ErrDataMismatch, samples, h.desc.Type)
	}
	if n != h.desc.NumPixels() {
		return fmt.Errorf("%w: %d samples for %d pixels", errs.ErrDataMismatch, n, h.desc.NumPixels())
	}

	if err := h.encode(samples); err != nil {
		return err
	}
	h.written = true

	return nil
}

func (h *HDU) checkWritable() error {
	if h.parsed {
		return fmt.Errorf("%w: HDU was read from a file", errs.ErrFileClosed)
	}
	if h.file == nil || h.file.closed {
		return errs.ErrFileClosed
	}

	return nil
}

func sampleCount(t format.ImageType, samples any) (int, bool) {
	switch s := samples.(type) {
	case []uint8:
		return len(s), t == format.TypeUnsignedByte
	case []uint16:
		return len(s), t == format.TypeUnsignedShort
	case []float32:
		return len(s), t == format.TypeFloat
	default:
		return 0, false
	}
}

func zeroSamples(t format.ImageType, n int) any {
	switch t {
	case format.TypeUnsignedShort:
		return make([]uint16, n)
	case format.TypeFloat:
		return make([]float32, n)
	default:
		return make([]uint8, n)
	}
}

// encode converts samples into the data unit of the HDU.
func (h *HDU) encode(samples any) error {
	switch h.kind {
	case kindCompressed:
		data, layout, stats, err := encodeCompressed(*h.desc, h.comp, h.tile, samples)
		if err != nil {
			return err
		}
		h.data, h.layout, h.stats = data, layout, stats
	default:
		data, ok := endian.AppendSamples(endian.GetFITSEngine(), make([]byte, 0, h.desc.NumPixels()*h.desc.Type.BytesPerPixel()), samples)
		if !ok {
			return fmt.Errorf("%w: %T", errs.ErrDataMismatch, samples)
		}
		h.data = data
	}
	h.encoded = true

	return nil
}

// ensureData encodes a zero image when no pixels were written.
func (h *HDU) ensureData() error {
	if h.encoded || h.desc == nil {
		return nil
	}

	return h.encode(zeroSamples(h.desc.Type, h.desc.NumPixels()))
}

// Header returns the complete header: the structural keywords followed by
// the caller keys. For HDUs being written the data layout of a compressed
// image is only final after WriteImage.
func (h *HDU) Header() (*Header, error) {
	if h.parsed {
		return h.keys, nil
	}
	if err := h.ensureData(); err != nil {
		return nil, err
	}

	return h.buildHeader()
}

func (h *HDU) buildHeader() (*Header, error) {
	hb := headerBuilder{h: NewHeader()}

	switch h.kind {
	case kindPrimary:
		hb.set("SIMPLE", true, "file does conform to FITS standard")
		hb.imageAxes(h.desc, "", "")
		hb.set("EXTEND", true, "FITS dataset may contain extensions")
		hb.scaling(h.desc)
	case kindImage:
		hb.set("XTENSION", "IMAGE", "IMAGE extension")
		hb.imageAxes(h.desc, "", "")
		hb.set("PCOUNT", 0, "required keyword; must = 0")
		hb.set("GCOUNT", 1, "required keyword; must = 1")
		hb.scaling(h.desc)
		hb.set("EXTNAME", h.name, "")
	case kindCompressed:
		h.compressedHeader(&hb)
	default:
		return nil, fmt.Errorf("%w: cannot rebuild header", errs.ErrInvalidHeader)
	}

	if hb.err != nil {
		return nil, hb.err
	}
	hb.h.merge(h.keys)

	return hb.h, nil
}

func (h *HDU) compressedHeader(hb *headerBuilder) {
	fields := 1
	if h.layout.gzipColumn {
		fields = 2
	}

	hb.set("XTENSION", "BINTABLE", "binary table extension")
	hb.set("BITPIX", 8, "8-bit bytes")
	hb.set("NAXIS", 2, "2-dimensional binary table")
	hb.set("NAXIS1", descriptorSize*fields, "width of table in bytes")
	hb.set("NAXIS2", h.layout.rows, "number of rows in table")
	hb.set("PCOUNT", h.layout.heapSize, "size of special data area")
	hb.set("GCOUNT", 1, "one data group (required keyword)")
	hb.set("TFIELDS", fields, "number of fields in each row")

	elem := "B"
	if h.comp == format.CompressionPlio && h.desc.Type != format.TypeFloat {
		elem = "I"
	}
	hb.set("TTYPE1", columnCompressed, "label for field 1")
	hb.set("TFORM1", fmt.Sprintf("1P%s(%d)", elem, h.layout.maxLen[0]), "data format of field: variable length array")
	if h.layout.gzipColumn {
		hb.set("TTYPE2", columnGzip, "label for field 2")
		hb.set("TFORM2", fmt.Sprintf("1PB(%d)", h.layout.maxLen[1]), "data format of field: variable length array")
	}

	hb.set("ZIMAGE", true, "extension contains compressed image")
	hb.imageAxes(h.desc, "Z", "original image")
	for i, n := range h.tile {
		hb.set(fmt.Sprintf("ZTILE%d", i+1), n, "size of tiles to be compressed")
	}
	hb.set("ZCMPTYPE", h.comp.AlgorithmName(), "compression algorithm")

	for i, p := range compressionParams(h.comp, h.desc.Type) {
		hb.set(fmt.Sprintf("ZNAME%d", i+1), p.name, "compression parameter name")
		hb.set(fmt.Sprintf("ZVAL%d", i+1), p.value, "compression parameter value")
	}
	if h.desc.Type == format.TypeFloat {
		hb.set("ZQUANTIZ", "NONE", "Lossless compression without quantization")
	}

	hb.scaling(h.desc)
	hb.set("EXTNAME", h.name, "name of this binary table extension")
}

type compressionParam struct {
	name  string
	value int
}

func compressionParams(comp format.CompressionType, t format.ImageType) []compressionParam {
	switch comp {
	case format.CompressionRice:
		return []compressionParam{{"BLOCKSIZE", compress.RiceBlockSize}, {"BYTEPIX", t.BytesPerPixel()}}
	case format.CompressionHcompress:
		return []compressionParam{{"SCALE", 0}, {"SMOOTH", 0}}
	case format.CompressionHsmooth:
		return []compressionParam{{"SCALE", 0}, {"SMOOTH", 1}}
	default:
		return nil
	}
}

// headerBuilder keeps the first error of a sequence of Set calls.
type headerBuilder struct {
	h   *Header
	err error
}

func (b *headerBuilder) set(keyword string, value any, comment string) {
	if b.err != nil {
		return
	}
	b.err = b.h.Set(keyword, value, comment)
}

// imageAxes writes BITPIX, NAXIS and NAXISn, with an optional keyword prefix
// for the Z keywords of compressed images.
func (b *headerBuilder) imageAxes(desc *ImageDescription, prefix, what string) {
	if what == "" {
		what = "data"
	}

	if desc == nil {
		b.set(prefix+"BITPIX", 8, "number of bits per "+what+" pixel")
		b.set(prefix+"NAXIS", 0, "number of "+what+" axes")

		return
	}

	axes := desc.Axes()
	b.set(prefix+"BITPIX", desc.Type.Bitpix(), "number of bits per "+what+" pixel")
	b.set(prefix+"NAXIS", len(axes), "number of "+what+" axes")
	for i, n := range axes {
		b.set(fmt.Sprintf("%sNAXIS%d", prefix, i+1), n, fmt.Sprintf("length of %s axis %d", what, i+1))
	}
}

func (b *headerBuilder) scaling(desc *ImageDescription) {
	if desc == nil || desc.Type.BZero() == 0 {
		return
	}

	b.set("BZERO", desc.Type.BZero(), "offset data range to that of unsigned short")
	b.set("BSCALE", 1, "default scaling factor")
}

var structuralKeywords = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "EXTEND": true, "XTENSION": true,
	"PCOUNT": true, "GCOUNT": true, "TFIELDS": true, "THEAP": true, "BZERO": true,
	"BSCALE": true, "EXTNAME": true, "ZIMAGE": true, "ZBITPIX": true, "ZNAXIS": true,
	"ZCMPTYPE": true, "ZQUANTIZ": true, "ZSIMPLE": true, "ZEXTEND": true,
	"ZTENSION": true, "ZPCOUNT": true, "ZGCOUNT": true, "ZBLANK": true, "BLANK": true,
}

var indexedStructural = []string{"NAXIS", "TTYPE", "TFORM", "ZNAXIS", "ZTILE", "ZNAME", "ZVAL"}

// isStructural reports whether keyword describes the layout of the HDU.
func isStructural(keyword string) bool {
	if structuralKeywords[keyword] {
		return true
	}

	for _, prefix := range indexedStructural {
		rest, ok := strings.CutPrefix(keyword, prefix)
		if ok && rest != "" && strings.Trim(rest, "0123456789") == "" {
			return true
		}
	}

	return false
}
