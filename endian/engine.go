// Package endian provides byte order utilities for decoding TDX binary
// payloads.
//
// It combines the ByteOrder and AppendByteOrder interfaces from the standard
// encoding/binary package into a single EndianEngine interface, and parses
// the byte-order tokens TDM metadata uses ("littleEndian", "bigEndian") into
// engines. A TDM file declares a file-level byte order on its include/file
// element, and individual block descriptors may override it, so byte order
// is carried per channel rather than globally.
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single interface for byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian
// from the standard library, making it fully compatible with existing Go
// code while providing access to both read and append operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Token values accepted by Parse, as spelled in TDM metadata.
const (
	TokenLittleEndian = "littleEndian"
	TokenBigEndian    = "bigEndian"
)

// Parse converts a TDM byte-order token to an engine.
// Returns false for unknown tokens.
func Parse(token string) (EndianEngine, bool) {
	switch token {
	case TokenLittleEndian:
		return binary.LittleEndian, true
	case TokenBigEndian:
		return binary.BigEndian, true
	default:
		return nil, false
	}
}

// Token returns the TDM metadata spelling for the given engine.
func Token(engine EndianEngine) string {
	if engine == binary.BigEndian {
		return TokenBigEndian
	}

	return TokenLittleEndian
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	// For a big-endian system, the MSB (0x01) is first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))

	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// CompareNativeEndian reports whether the given engine matches the host's
// byte order. Decoders use this to pick a direct-copy fast path.
func CompareNativeEndian(engine EndianEngine) bool {
	return engine == CheckEndianness()
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
