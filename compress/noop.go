package compress

import "bytes"

// NoOpCompressor stores data as is. It is the byte stream codec registered
// for CompressionNone; uncompressed HDUs never go through a codec.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a new no-operation compressor.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns a copy of data. Callers may pass pooled buffers that are
// reused once Compress returns.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

// Decompress returns a copy of data.
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}
