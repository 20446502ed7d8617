// Package compress implements the tile compression algorithms of the FITS
// tiled image convention.
//
// # Overview
//
// A compressed image is split into rectangular tiles and every tile is
// compressed on its own. The algorithm is named by the ZCMPTYPE keyword:
//
//   - GZIP_1: gzip of the big-endian tile bytes
//   - BZIP2_1: bzip2 of the big-endian tile bytes
//   - RICE_1: Golomb-Rice coding of pixel differences in blocks of 32
//   - HCOMPRESS_1: H-transform with quadtree coded bit planes
//   - PLIO_1: IRAF line list run-length coding for masks
//
// # Architecture
//
// Byte stream algorithms implement Codec:
//
//	type Codec interface {
//	    Compress(data []byte) ([]byte, error)
//	    Decompress(data []byte) ([]byte, error)
//	}
//
// Every algorithm implements TileCodec, which works on the integer samples
// of one tile:
//
//	codec, _ := compress.GetTileCodec(format.CompressionRice)
//	shape := compress.TileShape{Width: 1024, Height: 1, BytePix: 2}
//	data, err := codec.CompressTile(samples, shape)
//	...
//	samples, err = codec.DecompressTile(data, shape)
//
// Floating point tiles cannot be coded by the integer algorithms. The FITS
// writer stores them losslessly through the gzip Codec instead.
//
// # Thread Safety
//
// All codecs are stateless values and safe for concurrent use. Gzip writers
// and readers are pooled internally.
package compress
