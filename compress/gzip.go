package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// GzipCompressor implements the GZIP_1 algorithm: a gzip member of the
// big-endian tile bytes.
type GzipCompressor struct {
	level int
}

var _ Codec = (*GzipCompressor)(nil)

// NewGzipCompressor creates a gzip compressor with the default compression level.
func NewGzipCompressor() GzipCompressor {
	return GzipCompressor{level: gzip.DefaultCompression}
}

// gzipWriterPool pools writers at the default level; other levels allocate.
var gzipWriterPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return w
	},
}

var gzipReaderPool = sync.Pool{
	New: func() any { return new(gzip.Reader) },
}

// Compress compresses data into a single gzip member.
func (c GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	var (
		w   *gzip.Writer
		err error
	)
	if c.level == gzip.DefaultCompression {
		w, _ = gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(w)
		w.Reset(&buf)
	} else {
		w, err = gzip.NewWriterLevel(&buf, c.level)
		if err != nil {
			return nil, fmt.Errorf("gzip compression failed: %w", err)
		}
	}

	if _, err = w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses a gzip member.
func (c GzipCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, _ := gzipReaderPool.Get().(*gzip.Reader)
	defer gzipReaderPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}

	return out, nil
}
