package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/fitsimg/compress"
	"github.com/arloliu/fitsimg/endian"
	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/internal/pool"
)

const (
	descriptorSize   = 8 // 'P' descriptor: int32 element count, int32 heap offset
	columnCompressed = "COMPRESSED_DATA"
	columnGzip       = "GZIP_COMPRESSED_DATA"

	ushortOffset = 32768
)

// tableLayout describes the binary table that holds compressed tiles.
type tableLayout struct {
	rows       int
	gzipColumn bool
	maxLen     [2]int // largest element count per column
	heapSize   int
}

// needsGzipColumn reports whether float tiles must fall back to gzip because
// comp only codes integers.
func needsGzipColumn(comp format.CompressionType, t format.ImageType) bool {
	if t != format.TypeFloat {
		return false
	}

	switch comp {
	case format.CompressionRice, format.CompressionHcompress, format.CompressionHsmooth, format.CompressionPlio:
		return true
	default:
		return false
	}
}

// storedOffset is subtracted from unsigned shorts before tile coding. PLIO
// codes the physical values, which are already non-negative.
func storedOffset(comp format.CompressionType, t format.ImageType) int32 {
	if t == format.TypeUnsignedShort && comp != format.CompressionPlio {
		return ushortOffset
	}

	return 0
}

// encodeCompressed tiles samples and returns the table rows followed by the heap.
func encodeCompressed(desc ImageDescription, comp format.CompressionType, tile []int, samples any) ([]byte, tableLayout, compress.CompressionStats, error) {
	stats := compress.CompressionStats{Algorithm: comp}

	grid, err := newTileGrid(desc.Axes(), tile)
	if err != nil {
		return nil, tableLayout{}, stats, err
	}

	layout := tableLayout{rows: grid.Len(), gzipColumn: needsGzipColumn(comp, desc.Type)}
	fields := 1
	if layout.gzipColumn {
		fields = 2
	}

	enc, err := newTileEncoder(desc.Type, comp, layout.gzipColumn)
	if err != nil {
		return nil, layout, stats, err
	}

	engine := endian.GetFITSEngine()
	rowSize := descriptorSize * fields
	table := make([]byte, layout.rows*rowSize)
	heap := pool.GetHDUBuffer()
	defer pool.PutHDUBuffer(heap)

	for t := range grid.Len() {
		width, height := grid.shape(t)
		shape := compress.TileShape{Width: width, Height: height, BytePix: desc.Type.BytesPerPixel()}

		data, err := enc.encode(grid, t, shape, samples)
		if err != nil {
			return nil, layout, stats, fmt.Errorf("tile %d: %w", t, err)
		}

		col := 0
		if layout.gzipColumn {
			col = 1
		}
		count := len(data)
		if enc.elemSize == 2 {
			count /= 2
		}
		if len(data) > math.MaxInt32 || heap.Len() > math.MaxInt32 {
			return nil, layout, stats, fmt.Errorf("%w: heap exceeds 2 GiB", errs.ErrValueOutOfRange)
		}

		slot := table[t*rowSize+col*descriptorSize:]
		engine.PutUint32(slot, uint32(count))          //nolint: gosec
		engine.PutUint32(slot[4:], uint32(heap.Len())) //nolint: gosec
		layout.maxLen[col] = max(layout.maxLen[col], count)

		heap.Grow(len(data))
		_, _ = heap.Write(data)
		stats.Add(shape.Len()*shape.BytePix, len(data))
	}

	layout.heapSize = heap.Len()

	return append(table, heap.Bytes()...), layout, stats, nil
}

// tileEncoder compresses the tiles of one image.
type tileEncoder struct {
	typ      format.ImageType
	offset   int32
	codec    compress.Codec     // float tiles
	tile     compress.TileCodec // integer tiles
	elemSize int                // heap element size of the data column
}

func newTileEncoder(t format.ImageType, comp format.CompressionType, gzipColumn bool) (tileEncoder, error) {
	enc := tileEncoder{typ: t, offset: storedOffset(comp, t), elemSize: 1}

	if t == format.TypeFloat {
		algo := comp
		if gzipColumn {
			algo = format.CompressionGzip
		}

		codec, err := compress.GetCodec(algo)
		if err != nil {
			return enc, err
		}
		enc.codec = codec

		return enc, nil
	}

	codec, err := compress.GetTileCodec(comp)
	if err != nil {
		return enc, err
	}
	enc.tile = codec
	if comp == format.CompressionPlio {
		enc.elemSize = 2
	}

	return enc, nil
}

func (e tileEncoder) encode(grid tileGrid, t int, shape compress.TileShape, samples any) ([]byte, error) {
	if e.codec != nil {
		src, ok := samples.([]float32)
		if !ok {
			return nil, fmt.Errorf("%w: %T", errs.ErrDataMismatch, samples)
		}

		buf := pool.GetTileBuffer()
		defer pool.PutTileBuffer(buf)

		buf.Grow(shape.Len() * 4)
		grid.forEachRun(t, func(imgOff, _, n int) {
			buf.B, _ = endian.AppendSamples(endian.GetFITSEngine(), buf.B, src[imgOff:imgOff+n])
		})

		return e.codec.Compress(buf.Bytes())
	}

	tile, release := pool.GetInt32Slice(shape.Len())
	defer release()

	switch src := samples.(type) {
	case []uint8:
		grid.forEachRun(t, func(imgOff, tileOff, n int) {
			for i := range n {
				tile[tileOff+i] = int32(src[imgOff+i])
			}
		})
	case []uint16:
		grid.forEachRun(t, func(imgOff, tileOff, n int) {
			for i := range n {
				tile[tileOff+i] = int32(src[imgOff+i]) - e.offset
			}
		})
	default:
		return nil, fmt.Errorf("%w: %T", errs.ErrDataMismatch, samples)
	}

	return e.tile.CompressTile(tile, shape)
}

// column locates one variable length array column in a table row.
type column struct {
	offset   int // byte offset inside the row
	wide     bool
	elemSize int
}

// decodeCompressed rebuilds the image of a tile-compressed table.
func decodeCompressed(hdr *Header, data []byte) (*ImageData, error) {
	zbitpix, ok := hdr.Int("ZBITPIX")
	if !ok {
		return nil, fmt.Errorf("%w: missing ZBITPIX", errs.ErrInvalidHeader)
	}
	bzero, _ := hdr.Float("BZERO")
	typ, ok := format.ImageTypeFromBitpix(int(zbitpix), int64(bzero))
	if !ok {
		return nil, fmt.Errorf("%w: ZBITPIX %d with BZERO %g", errs.ErrUnsupportedImageType, zbitpix, bzero)
	}

	axes, err := readAxes(hdr, "ZNAXIS")
	if err != nil {
		return nil, err
	}

	tile := make([]int, len(axes))
	for i := range axes {
		tile[i] = 1
		if i == 0 {
			tile[i] = axes[0]
		}
		if v, ok := hdr.Int("ZTILE" + strconv.Itoa(i+1)); ok {
			tile[i] = int(v)
		}
	}

	comp, blockSize, err := readCompression(hdr)
	if err != nil {
		return nil, err
	}

	cols, err := readColumns(hdr)
	if err != nil {
		return nil, err
	}
	if _, ok := cols[columnCompressed]; !ok {
		return nil, fmt.Errorf("%w: no %s column", errs.ErrInvalidHeader, columnCompressed)
	}
	if _, ok := cols["ZSCALE"]; ok {
		return nil, fmt.Errorf("%w: quantized images", errs.ErrUnsupportedCompression)
	}

	rowSize, _ := hdr.Int("NAXIS1")
	rows, _ := hdr.Int("NAXIS2")
	heapStart := rowSize * rows
	if v, ok := hdr.Int("THEAP"); ok {
		heapStart = v
	}
	if rowSize*rows > int64(len(data)) || heapStart > int64(len(data)) {
		return nil, fmt.Errorf("%w: table of %d bytes in %d byte data unit", errs.ErrTruncated, rowSize*rows, len(data))
	}

	grid, err := newTileGrid(axes, tile)
	if err != nil {
		return nil, err
	}
	if int64(grid.Len()) != rows {
		return nil, fmt.Errorf("%w: %d rows for %d tiles", errs.ErrInvalidHeader, rows, grid.Len())
	}

	dec, err := newTileDecoder(typ, comp, blockSize)
	if err != nil {
		return nil, err
	}

	desc := ImageDescription{Type: typ, Dimensions: reverse(axes)}
	out := zeroSamples(typ, desc.NumPixels())
	heap := data[heapStart:]

	for t := range grid.Len() {
		row := data[int64(t)*rowSize : int64(t+1)*rowSize]
		width, height := grid.shape(t)
		shape := compress.TileShape{Width: width, Height: height, BytePix: typ.BytesPerPixel()}

		payload, gz, err := tilePayload(row, heap, cols)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", t, err)
		}
		if err := dec.decode(grid, t, shape, payload, gz, out); err != nil {
			return nil, fmt.Errorf("tile %d: %w", t, err)
		}
	}

	return &ImageData{Type: typ, Dimensions: desc.Dimensions, Samples: out}, nil
}

// tilePayload returns the heap bytes of a row and whether they came from
// the gzip fallback column.
func tilePayload(row, heap []byte, cols map[string]column) ([]byte, bool, error) {
	if c, ok := cols[columnGzip]; ok {
		p, err := readDescriptor(row, heap, c)
		if err != nil {
			return nil, false, err
		}
		if len(p) > 0 {
			return p, true, nil
		}
	}

	p, err := readDescriptor(row, heap, cols[columnCompressed])
	if err != nil {
		return nil, false, err
	}
	if len(p) == 0 {
		return nil, false, fmt.Errorf("%w: empty tile", errs.ErrCorruptTile)
	}

	return p, false, nil
}

func readDescriptor(row, heap []byte, c column) ([]byte, error) {
	engine := endian.GetFITSEngine()

	var count, offset uint64
	if c.wide {
		if c.offset+16 > len(row) {
			return nil, fmt.Errorf("%w: descriptor outside row", errs.ErrInvalidHeader)
		}
		count = engine.Uint64(row[c.offset:])
		offset = engine.Uint64(row[c.offset+8:])
	} else {
		if c.offset+8 > len(row) {
			return nil, fmt.Errorf("%w: descriptor outside row", errs.ErrInvalidHeader)
		}
		count = uint64(engine.Uint32(row[c.offset:]))
		offset = uint64(engine.Uint32(row[c.offset+4:]))
	}

	size := count * uint64(c.elemSize) //nolint: gosec
	if offset > uint64(len(heap)) || size > uint64(len(heap))-offset {
		return nil, fmt.Errorf("%w: %d bytes at heap offset %d", errs.ErrTruncated, size, offset)
	}

	return heap[offset : offset+size], nil
}

// readColumns maps column names to their position in a row.
func readColumns(hdr *Header) (map[string]column, error) {
	n, ok := hdr.Int("TFIELDS")
	if !ok || n < 0 || n > maxAxes {
		return nil, fmt.Errorf("%w: TFIELDS", errs.ErrInvalidHeader)
	}

	cols := make(map[string]column, n)
	offset := 0
	for i := 1; i <= int(n); i++ {
		form, ok := hdr.String("TFORM" + strconv.Itoa(i))
		if !ok {
			return nil, fmt.Errorf("%w: missing TFORM%d", errs.ErrInvalidHeader, i)
		}
		width, c, err := parseTForm(form)
		if err != nil {
			return nil, err
		}
		c.offset = offset
		offset += width

		if name, ok := hdr.String("TTYPE" + strconv.Itoa(i)); ok {
			cols[strings.ToUpper(name)] = c
		}
	}

	return cols, nil
}

var tformSizes = map[byte]int{
	'L': 1, 'X': 1, 'B': 1, 'I': 2, 'J': 4, 'K': 8, 'A': 1, 'E': 4, 'D': 8, 'C': 8, 'M': 16,
}

// parseTForm returns the byte width of a column and, for variable length
// arrays, the descriptor layout.
func parseTForm(form string) (int, column, error) {
	form = strings.ToUpper(strings.TrimSpace(form))

	digits := 0
	for digits < len(form) && form[digits] >= '0' && form[digits] <= '9' {
		digits++
	}
	repeat := 1
	if digits > 0 {
		repeat, _ = strconv.Atoi(form[:digits])
	}
	if digits >= len(form) {
		return 0, column{}, fmt.Errorf("%w: TFORM %q", errs.ErrInvalidHeader, form)
	}

	code := form[digits]
	if code == 'P' || code == 'Q' {
		if digits+1 >= len(form) {
			return 0, column{}, fmt.Errorf("%w: TFORM %q", errs.ErrInvalidHeader, form)
		}
		elem, ok := tformSizes[form[digits+1]]
		if !ok {
			return 0, column{}, fmt.Errorf("%w: TFORM %q", errs.ErrInvalidHeader, form)
		}
		if code == 'Q' {
			return 16 * repeat, column{wide: true, elemSize: elem}, nil
		}

		return descriptorSize * repeat, column{elemSize: elem}, nil
	}

	size, ok := tformSizes[code]
	if !ok {
		return 0, column{}, fmt.Errorf("%w: TFORM %q", errs.ErrInvalidHeader, form)
	}
	if code == 'X' {
		return (repeat + 7) / 8, column{}, nil
	}

	return size * repeat, column{}, nil
}

// readCompression resolves ZCMPTYPE and its ZNAMEi/ZVALi parameters.
func readCompression(hdr *Header) (format.CompressionType, int, error) {
	name, ok := hdr.String("ZCMPTYPE")
	if !ok {
		return 0, 0, fmt.Errorf("%w: missing ZCMPTYPE", errs.ErrInvalidHeader)
	}

	comp, ok := format.ParseCompression(name)
	if !ok || comp == format.CompressionNone {
		return 0, 0, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, name)
	}

	blockSize := compress.RiceBlockSize
	for i := 1; ; i++ {
		param, ok := hdr.String("ZNAME" + strconv.Itoa(i))
		if !ok {
			break
		}
		value, _ := hdr.Int("ZVAL" + strconv.Itoa(i))

		switch strings.ToUpper(param) {
		case "BLOCKSIZE":
			blockSize = int(value)
		case "SMOOTH":
			if comp == format.CompressionHcompress && value != 0 {
				comp = format.CompressionHsmooth
			}
		case "SCALE":
			if value > 1 {
				return 0, 0, fmt.Errorf("%w: lossy hcompress scale %d", errs.ErrUnsupportedCompression, value)
			}
		}
	}

	return comp, blockSize, nil
}

// tileDecoder decompresses the tiles of one image.
type tileDecoder struct {
	typ    format.ImageType
	offset int32
	codec  compress.Codec
	gzip   compress.Codec
	tile   compress.TileCodec
}

func newTileDecoder(t format.ImageType, comp format.CompressionType, blockSize int) (tileDecoder, error) {
	dec := tileDecoder{typ: t, offset: storedOffset(comp, t)}

	gz, err := compress.GetCodec(format.CompressionGzip)
	if err != nil {
		return dec, err
	}
	dec.gzip = gz

	if codec, err := compress.GetCodec(comp); err == nil {
		dec.codec = codec
	}

	if t != format.TypeFloat {
		if comp == format.CompressionRice {
			if blockSize <= 0 {
				return dec, fmt.Errorf("%w: rice block size %d", errs.ErrInvalidHeader, blockSize)
			}
			dec.tile = compress.NewRiceCodec(blockSize)
		} else {
			codec, err := compress.GetTileCodec(comp)
			if err != nil {
				return dec, err
			}
			dec.tile = codec
		}
	}

	return dec, nil
}

func (d tileDecoder) decode(grid tileGrid, t int, shape compress.TileShape, payload []byte, gz bool, out any) error {
	if d.typ == format.TypeFloat {
		codec := d.codec
		if gz {
			codec = d.gzip
		}
		if codec == nil {
			return fmt.Errorf("%w: float tiles need a byte codec", errs.ErrUnsupportedCompression)
		}

		raw, err := codec.Decompress(payload)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCorruptTile, err)
		}
		if len(raw) != shape.Len()*4 {
			return fmt.Errorf("%w: %d bytes for %d floats", errs.ErrCorruptTile, len(raw), shape.Len())
		}

		dst, _ := out.([]float32)
		engine := endian.GetFITSEngine()
		grid.forEachRun(t, func(imgOff, tileOff, n int) {
			for i := range n {
				dst[imgOff+i] = math.Float32frombits(engine.Uint32(raw[4*(tileOff+i):]))
			}
		})

		return nil
	}

	var tile []int32
	var err error
	if gz {
		var raw []byte
		raw, err = d.gzip.Decompress(payload)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCorruptTile, err)
		}
		tile, err = compress.ParseTileBytes(raw, shape)
	} else {
		tile, err = d.tile.DecompressTile(payload, shape)
	}
	if err != nil {
		return err
	}

	switch dst := out.(type) {
	case []uint8:
		grid.forEachRun(t, func(imgOff, tileOff, n int) {
			for i := range n {
				dst[imgOff+i] = uint8(tile[tileOff+i]) //nolint: gosec
			}
		})
	case []uint16:
		grid.forEachRun(t, func(imgOff, tileOff, n int) {
			for i := range n {
				dst[imgOff+i] = uint16(tile[tileOff+i] + d.offset) //nolint: gosec
			}
		})
	}

	return nil
}

func reverse(axes []int) []int {
	out := make([]int, len(axes))
	for i, v := range axes {
		out[len(out)-1-i] = v
	}

	return out
}
