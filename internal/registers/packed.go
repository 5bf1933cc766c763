package registers

import "fmt"

// Packed stores floor(64/bits) registers per uint64 word, least significant
// register first. The last word may carry padding registers beyond m; they
// stay zero and are excluded from every statistic.
type Packed struct {
	words   []uint64
	m       int
	bits    uint8
	perWord int
	mask    uint64
}

func newPacked(m int, registerBits uint8) *Packed {
	perWord := 64 / int(registerBits)
	return &Packed{
		words:   make([]uint64, (m+perWord-1)/perWord),
		m:       m,
		bits:    registerBits,
		perWord: perWord,
		mask:    uint64(1)<<registerBits - 1,
	}
}

func (p *Packed) Kind() Kind  { return KindPacked }
func (p *Packed) Len() int    { return p.m }
func (p *Packed) Bits() uint8 { return p.bits }

// padding returns the number of padding registers in the last word.
func (p *Packed) padding() int {
	return len(p.words)*p.perWord - p.m
}

func (p *Packed) locate(i uint32) (word int, shift uint) {
	return int(i) / p.perWord, uint(int(i)%p.perWord) * uint(p.bits)
}

func (p *Packed) Get(i uint32) uint8 {
	w, shift := p.locate(i)
	return uint8(p.words[w] >> shift & p.mask)
}

func (p *Packed) SetGreater(i uint32, v uint8) (old, updated uint8) {
	if uint64(v) > p.mask {
		panic(fmt.Sprintf("registers: value %d exceeds %d-bit register", v, p.bits))
	}
	w, shift := p.locate(i)
	old = uint8(p.words[w] >> shift & p.mask)
	if v <= old {
		return old, old
	}
	p.words[w] = p.words[w]&^(p.mask<<shift) | uint64(v)<<shift
	return old, v
}

func (p *Packed) HarmonicSumAndZeros(other Registers) (sum float64, zeros int) {
	o, ok := other.(*Packed)
	if !ok || o.bits != p.bits || o.m != p.m {
		return genericHarmonicSumAndZeros(p, other)
	}
	for w := range p.words {
		a, b := p.words[w], o.words[w]
		for range p.perWord {
			r := max(a&p.mask, b&p.mask)
			sum += pow2neg[r]
			if r == 0 {
				zeros++
			}
			a >>= p.bits
			b >>= p.bits
		}
	}
	// Padding registers are zero: each added exactly 1 to sum and to zeros.
	pad := p.padding()
	return sum - float64(pad), zeros - pad
}

func (p *Packed) Apply(f func(uint8) uint8) {
	for i := range uint32(p.m) {
		v := f(p.Get(i))
		if uint64(v) > p.mask {
			panic(fmt.Sprintf("registers: value %d exceeds %d-bit register", v, p.bits))
		}
		w, shift := p.locate(i)
		p.words[w] = p.words[w]&^(p.mask<<shift) | uint64(v)<<shift
	}
}

func (p *Packed) Histogram() []int {
	hist := make([]int, HistogramLen)
	for w := range p.words {
		word := p.words[w]
		if word == 0 {
			hist[0] += p.perWord
			continue
		}
		for range p.perWord {
			hist[word&p.mask]++
			word >>= p.bits
		}
	}
	hist[0] -= p.padding()
	return hist
}

func (p *Packed) MaxMerge(other Registers) {
	o, ok := other.(*Packed)
	if !ok || o.bits != p.bits || o.m != p.m {
		genericMaxMerge(p, other)
		return
	}
	for w := range p.words {
		a, b := p.words[w], o.words[w]
		if b == 0 || a == b {
			continue
		}
		var merged uint64
		for j := range p.perWord {
			shift := uint(j) * uint(p.bits)
			merged |= max(a>>shift&p.mask, b>>shift&p.mask) << shift
		}
		p.words[w] = merged
	}
}

func (p *Packed) SizeInBytes() int { return len(p.words) * 8 }

func (p *Packed) Clone() Registers {
	c := *p
	c.words = append([]uint64(nil), p.words...)
	return &c
}

func (p *Packed) Reset() { clear(p.words) }
