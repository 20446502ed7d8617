package format

import "strings"

type (
	CompressionType uint8
	ImageType       uint8
)

const (
	CompressionNone      CompressionType = 0x0 // CompressionNone writes the image uncompressed into the primary HDU.
	CompressionGzip      CompressionType = 0x1 // CompressionGzip represents GZIP_1 tile compression.
	CompressionRice      CompressionType = 0x2 // CompressionRice represents RICE_1 tile compression.
	CompressionHcompress CompressionType = 0x3 // CompressionHcompress represents HCOMPRESS_1 tile compression.
	CompressionHsmooth   CompressionType = 0x4 // CompressionHsmooth represents HCOMPRESS_1 with smoothing on decompression.
	CompressionBzip2     CompressionType = 0x5 // CompressionBzip2 represents BZIP2_1 tile compression.
	CompressionPlio      CompressionType = 0x6 // CompressionPlio represents PLIO_1 tile compression.

	TypeUnsignedByte  ImageType = 0x1 // TypeUnsignedByte is stored with BITPIX 8.
	TypeUnsignedShort ImageType = 0x2 // TypeUnsignedShort is stored with BITPIX 16 and BZERO 32768.
	TypeFloat         ImageType = 0x3 // TypeFloat is stored with BITPIX -32.
)

// Compressions lists every compression type in declaration order.
var Compressions = []CompressionType{
	CompressionNone,
	CompressionGzip,
	CompressionRice,
	CompressionHcompress,
	CompressionHsmooth,
	CompressionBzip2,
	CompressionPlio,
}

// CompressionOf returns the compression pointed to by c, or CompressionNone when c is nil.
func CompressionOf(c *CompressionType) CompressionType {
	if c == nil {
		return CompressionNone
	}

	return *c
}

// IsValid reports whether c is one of the known compression types.
func (c CompressionType) IsValid() bool {
	return c <= CompressionPlio
}

// String returns the human readable algorithm name written into COMPRESSION_ALGO.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "uncomp"
	case CompressionGzip:
		return "gzip"
	case CompressionRice:
		return "rice"
	case CompressionHcompress:
		return "hcompress"
	case CompressionHsmooth:
		return "hscompress"
	case CompressionBzip2:
		return "bzip2"
	case CompressionPlio:
		return "plio"
	default:
		return "unknown"
	}
}

// Extension returns the file extension, including the extended file name qualifier,
// that selects this compression when the file is created.
func (c CompressionType) Extension() string {
	if c == CompressionNone || !c.IsValid() {
		return "fits"
	}

	return "fits[compress " + c.Qualifier() + "]"
}

// Qualifier returns the short algorithm code used inside "[compress X]".
// It is empty for CompressionNone.
func (c CompressionType) Qualifier() string {
	switch c {
	case CompressionGzip:
		return "G"
	case CompressionRice:
		return "R"
	case CompressionHcompress:
		return "H"
	case CompressionHsmooth:
		return "HS"
	case CompressionBzip2:
		return "B"
	case CompressionPlio:
		return "P"
	default:
		return ""
	}
}

// AlgorithmName returns the ZCMPTYPE value of the compressed image table.
func (c CompressionType) AlgorithmName() string {
	switch c {
	case CompressionGzip:
		return "GZIP_1"
	case CompressionRice:
		return "RICE_1"
	case CompressionHcompress, CompressionHsmooth:
		return "HCOMPRESS_1"
	case CompressionBzip2:
		return "BZIP2_1"
	case CompressionPlio:
		return "PLIO_1"
	default:
		return "NOCOMPRESS"
	}
}

// ParseCompression resolves a display name ("gzip"), an algorithm name ("GZIP_1"),
// a qualifier code ("G") or a long qualifier ("GZIP") to a CompressionType.
// The comparison is case-insensitive.
func ParseCompression(name string) (CompressionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NONE", "UNCOMP", "NOCOMPRESS":
		return CompressionNone, true
	case "G", "GZIP", "GZIP_1":
		return CompressionGzip, true
	case "R", "RICE", "RICE_1":
		return CompressionRice, true
	case "H", "HCOMPRESS", "HCOMPRESS_1":
		return CompressionHcompress, true
	case "HS", "HSCOMPRESS", "HSMOOTH":
		return CompressionHsmooth, true
	case "B", "BZIP2", "BZIP2_1":
		return CompressionBzip2, true
	case "P", "PLIO", "PLIO_1":
		return CompressionPlio, true
	default:
		return CompressionNone, false
	}
}

func (t ImageType) String() string {
	switch t {
	case TypeUnsignedByte:
		return "UnsignedByte"
	case TypeUnsignedShort:
		return "UnsignedShort"
	case TypeFloat:
		return "Float"
	default:
		return "Unknown"
	}
}

// Bitpix returns the FITS BITPIX value of the stored samples.
func (t ImageType) Bitpix() int {
	switch t {
	case TypeUnsignedByte:
		return 8
	case TypeUnsignedShort:
		return 16
	case TypeFloat:
		return -32
	default:
		return 0
	}
}

// BZero returns the BZERO offset applied when storing samples, 0 if none.
func (t ImageType) BZero() int64 {
	if t == TypeUnsignedShort {
		return 32768
	}

	return 0
}

// BytesPerPixel returns the stored size of one sample in bytes.
func (t ImageType) BytesPerPixel() int {
	switch t {
	case TypeUnsignedByte:
		return 1
	case TypeUnsignedShort:
		return 2
	case TypeFloat:
		return 4
	default:
		return 0
	}
}

// ImageTypeFromBitpix maps a BITPIX/BZERO pair back to an ImageType.
func ImageTypeFromBitpix(bitpix int, bzero int64) (ImageType, bool) {
	switch {
	case bitpix == 8 && bzero == 0:
		return TypeUnsignedByte, true
	case bitpix == 16 && bzero == 32768:
		return TypeUnsignedShort, true
	case bitpix == -32 && bzero == 0:
		return TypeFloat, true
	default:
		return 0, false
	}
}
