package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// Bzip2Compressor implements the BZIP2_1 algorithm: a bzip2 stream of the
// big-endian tile bytes, written with 900k blocks.
type Bzip2Compressor struct{}

var _ Codec = (*Bzip2Compressor)(nil)

// NewBzip2Compressor creates a new bzip2 compressor.
func NewBzip2Compressor() Bzip2Compressor {
	return Bzip2Compressor{}
}

// Compress compresses data into a bzip2 stream.
func (c Bzip2Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return nil, fmt.Errorf("bzip2 compression failed: %w", err)
	}
	if _, err = w.Write(data); err != nil {
		return nil, fmt.Errorf("bzip2 compression failed: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("bzip2 compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses a bzip2 stream.
func (c Bzip2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("bzip2 decompression failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bzip2 decompression failed: %w", err)
	}

	return out, nil
}
