// Package endian provides byte order utilities for binary encoding and decoding.
//
// This package combines the ByteOrder and AppendByteOrder interfaces of
// encoding/binary into a single EndianEngine interface.
//
// FITS stores every header-independent binary value (pixels, table fields,
// heap descriptors) in big-endian order, so most callers use GetFITSEngine:
//
//	engine := endian.GetFITSEngine()
//	buf = engine.AppendUint16(buf, uint16(v))
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeBigEndian reports whether the host stores integers most significant byte first,
// in which case FITS samples need no swapping.
func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

// GetFITSEngine returns the byte order mandated by the FITS standard.
func GetFITSEngine() EndianEngine {
	return binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// AppendSamples appends samples to buf using engine, one value per element.
//
// Supported sample slices are []uint8, []int16, []uint16, []int32 and []float32.
// Unsigned 16-bit samples are shifted by -32768 before encoding, which is the
// FITS convention for storing them in signed 16-bit words with BZERO = 32768.
//
// Returns the extended buffer and false if samples has an unsupported type.
func AppendSamples(engine EndianEngine, buf []byte, samples any) ([]byte, bool) {
	switch s := samples.(type) {
	case []uint8:
		return append(buf, s...), true
	case []int16:
		for _, v := range s {
			buf = engine.AppendUint16(buf, uint16(v)) //nolint: gosec
		}
	case []uint16:
		for _, v := range s {
			buf = engine.AppendUint16(buf, v^0x8000)
		}
	case []int32:
		for _, v := range s {
			buf = engine.AppendUint32(buf, uint32(v)) //nolint: gosec
		}
	case []float32:
		for _, v := range s {
			buf = engine.AppendUint32(buf, math.Float32bits(v))
		}
	default:
		return buf, false
	}

	return buf, true
}
