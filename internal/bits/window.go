package bits

import (
	"encoding/binary"
)

// ReadWord reads a little-endian unsigned word of size bytes (1-4) from src.
// Optimized for the byte-aligned composite hash widths (1, 2, 3, 4 bytes).
// Precondition: len(src) >= size.
func ReadWord(src []byte, size int) uint32 {
	switch size {
	case 1:
		return uint32(src[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(src))
	case 3:
		_ = src[2]
		return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
	case 4:
		return binary.LittleEndian.Uint32(src)
	default:
		panic("bits: word size must be 1, 2, 3 or 4 bytes")
	}
}

// WriteWord writes the low size bytes of v to dst in little-endian order.
// Precondition: len(dst) >= size.
func WriteWord(dst []byte, v uint32, size int) {
	switch size {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 3:
		_ = dst[2]
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
	case 4:
		binary.LittleEndian.PutUint32(dst, v)
	default:
		panic("bits: word size must be 1, 2, 3 or 4 bytes")
	}
}
