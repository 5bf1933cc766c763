package gapcodec

import (
	"encoding/binary"
	"math/bits"
)

// Writer appends bits least-significant first into 64-bit little-endian
// words.
type Writer struct {
	buf     []byte
	current uint64
	bitPos  int
}

// NewWriter returns a writer with room for capacity bytes before growing.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) flushWord() {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, w.current)
	w.current = 0
	w.bitPos = 0
}

// WriteBit appends one bit.
func (w *Writer) WriteBit(bit uint8) {
	if bit != 0 {
		w.current |= uint64(1) << w.bitPos
	}
	w.bitPos++
	if w.bitPos == 64 {
		w.flushWord()
	}
}

// WriteBits appends the low n bits of v, n <= 64.
func (w *Writer) WriteBits(v uint64, n int) {
	if n == 0 {
		return
	}
	if n < 64 {
		v &= uint64(1)<<n - 1
	}
	if w.bitPos+n <= 64 {
		w.current |= v << w.bitPos
		w.bitPos += n
		if w.bitPos == 64 {
			w.flushWord()
		}
		return
	}

	fits := 64 - w.bitPos
	w.current |= v << w.bitPos
	w.flushWord()
	w.current = v >> fits
	w.bitPos = n - fits
}

// WriteOnes appends n one bits.
func (w *Writer) WriteOnes(n int) {
	for n >= 64-w.bitPos {
		n -= 64 - w.bitPos
		w.current |= ^uint64(0) << w.bitPos
		w.flushWord()
	}
	if n > 0 {
		w.current |= (uint64(1)<<n - 1) << w.bitPos
		w.bitPos += n
	}
}

// WriteUnary appends q ones followed by a zero.
func (w *Writer) WriteUnary(q uint64) {
	w.WriteOnes(int(q))
	w.WriteBit(0)
}

// Bytes flushes the partial word, trimmed to whole bytes, and returns the
// encoded stream. The writer must be Reset before reuse.
func (w *Writer) Bytes() []byte {
	if w.bitPos > 0 {
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], w.current)
		w.buf = append(w.buf, word[:(w.bitPos+7)/8]...)
		w.current = 0
		w.bitPos = 0
	}
	return w.buf
}

// Reset clears the writer and keeps its buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.current = 0
	w.bitPos = 0
}

// BitsWritten returns the number of bits appended so far.
func (w *Writer) BitsWritten() int {
	return len(w.buf)*8 + w.bitPos
}

// Reader consumes bits written by Writer. Reads past the end yield zero bits
// and are reported by Overrun.
type Reader struct {
	data     []byte
	current  uint64
	bitPos   int
	bytePos  int
	consumed int
}

// NewReader returns a reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	r := &Reader{data: data}
	r.refill()
	return r
}

func (r *Reader) refill() {
	remaining := len(r.data) - r.bytePos
	switch {
	case remaining >= 8:
		r.current = binary.LittleEndian.Uint64(r.data[r.bytePos:])
		r.bytePos += 8
	case remaining > 0:
		r.current = 0
		for i := range remaining {
			r.current |= uint64(r.data[r.bytePos+i]) << (i * 8)
		}
		r.bytePos += remaining
	default:
		r.current = 0
	}
	r.bitPos = 0
}

// ReadBits returns the next n bits, n <= 64.
func (r *Reader) ReadBits(n int) uint64 {
	if n == 0 {
		return 0
	}
	r.consumed += n
	if r.bitPos+n > 64 {
		fromCurrent := 64 - r.bitPos
		low := r.current >> r.bitPos
		r.refill()
		fromNext := n - fromCurrent
		high := r.current & (uint64(1)<<fromNext - 1)
		r.bitPos = fromNext
		return low | high<<fromCurrent
	}
	result := r.current >> r.bitPos
	if n < 64 {
		result &= uint64(1)<<n - 1
	}
	r.bitPos += n
	return result
}

// ReadUnary counts one bits up to and including the terminating zero. It
// stops at limit ones, returning limit, so a corrupt stream cannot spin.
func (r *Reader) ReadUnary(limit uint64) uint64 {
	var count uint64
	for {
		if r.bitPos >= 64 {
			r.refill()
		}
		available := 64 - r.bitPos
		ones := bits.TrailingZeros64(^(r.current >> r.bitPos))
		if ones < available {
			if count+uint64(ones) >= limit {
				step := int(limit - count)
				r.bitPos += step
				r.consumed += step
				return limit
			}
			r.bitPos += ones + 1
			r.consumed += ones + 1
			return count + uint64(ones)
		}
		if count+uint64(available) >= limit {
			step := int(limit - count)
			r.bitPos += step
			r.consumed += step
			return limit
		}
		count += uint64(available)
		r.consumed += available
		r.bitPos = 64
	}
}

// BitsRead returns the number of bits consumed so far.
func (r *Reader) BitsRead() int { return r.consumed }

// Overrun reports whether more bits were consumed than data holds.
func (r *Reader) Overrun() bool { return r.consumed > len(r.data)*8 }
