package hashlist

import "fmt"

// Packed word layout, least significant field first:
//
//	bits  0-19  count       (20 bits)
//	bits 20-40  cursor      (21 bits)
//	bits 41-57  duplicates  (17 bits)
//	bits 58-62  width - 8   (5 bits)
//
// Bit 63 is always zero.
const (
	countBits      = 20
	cursorBits     = 21
	duplicatesBits = 17
	widthBits      = 5

	cursorShift     = countBits
	duplicatesShift = cursorShift + cursorBits
	widthShift      = duplicatesShift + duplicatesBits
)

// Meta holds the hash-list bookkeeping.
type Meta struct {
	Width      uint8  // composite hash width in bits
	Duplicates uint32 // hashes collapsed by downgrades
	Cursor     uint32 // write cursor in bytes
	Count      uint32 // live hashes
}

func field(v uint64, shift, width uint) uint64 {
	return (v >> shift) & (uint64(1)<<width - 1)
}

// Pack encodes m into a single 63-bit word. It panics if a field does not fit
// its slot, which the byte budget of any supported precision rules out.
func (m Meta) Pack() uint64 {
	if m.Width < 8 || uint64(m.Width-8) >= 1<<widthBits ||
		uint64(m.Duplicates) >= 1<<duplicatesBits ||
		uint64(m.Cursor) >= 1<<cursorBits ||
		uint64(m.Count) >= 1<<countBits {
		panic(fmt.Sprintf("hashlist: metadata %+v does not fit the packed layout", m))
	}
	return uint64(m.Count) |
		uint64(m.Cursor)<<cursorShift |
		uint64(m.Duplicates)<<duplicatesShift |
		uint64(m.Width-8)<<widthShift
}

// UnpackMeta is the inverse of Meta.Pack.
func UnpackMeta(v uint64) Meta {
	return Meta{
		Width:      uint8(field(v, widthShift, widthBits)) + 8,
		Duplicates: uint32(field(v, duplicatesShift, duplicatesBits)),
		Cursor:     uint32(field(v, cursorShift, cursorBits)),
		Count:      uint32(field(v, 0, countBits)),
	}
}
