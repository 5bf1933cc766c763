package registers

import "fmt"

// Plain stores one register per byte. It trades memory for branch-free access
// and an 8-wide unrolled merge.
type Plain struct {
	regs []uint8
	bits uint8
	max  uint8
}

func newPlain(m int, registerBits uint8) *Plain {
	return &Plain{
		regs: make([]uint8, m),
		bits: registerBits,
		max:  uint8(uint16(1)<<registerBits - 1),
	}
}

func (p *Plain) Kind() Kind         { return KindPlain }
func (p *Plain) Len() int           { return len(p.regs) }
func (p *Plain) Bits() uint8        { return p.bits }
func (p *Plain) Get(i uint32) uint8 { return p.regs[i] }

func (p *Plain) SetGreater(i uint32, v uint8) (old, updated uint8) {
	if v > p.max {
		panic(fmt.Sprintf("registers: value %d exceeds %d-bit register", v, p.bits))
	}
	old = p.regs[i]
	if v <= old {
		return old, old
	}
	p.regs[i] = v
	return old, v
}

func (p *Plain) HarmonicSumAndZeros(other Registers) (sum float64, zeros int) {
	o, ok := other.(*Plain)
	if !ok || len(o.regs) != len(p.regs) {
		return genericHarmonicSumAndZeros(p, other)
	}
	b := o.regs[:len(p.regs)]
	for i, a := range p.regs {
		r := max(a, b[i])
		sum += pow2neg[r]
		if r == 0 {
			zeros++
		}
	}
	return sum, zeros
}

func (p *Plain) Apply(f func(uint8) uint8) {
	for i, v := range p.regs {
		nv := f(v)
		if nv > p.max {
			panic(fmt.Sprintf("registers: value %d exceeds %d-bit register", nv, p.bits))
		}
		p.regs[i] = nv
	}
}

func (p *Plain) Histogram() []int {
	hist := make([]int, HistogramLen)
	for _, v := range p.regs {
		hist[v]++
	}
	return hist
}

func (p *Plain) MaxMerge(other Registers) {
	o, ok := other.(*Plain)
	if !ok || len(o.regs) != len(p.regs) {
		genericMaxMerge(p, other)
		return
	}
	dst, src := p.regs, o.regs[:len(p.regs)]
	i := 0
	// m is a power of two >= 16, so the 8-wide loop covers every register.
	for ; i+8 <= len(dst); i += 8 {
		dst[i] = max(dst[i], src[i])
		dst[i+1] = max(dst[i+1], src[i+1])
		dst[i+2] = max(dst[i+2], src[i+2])
		dst[i+3] = max(dst[i+3], src[i+3])
		dst[i+4] = max(dst[i+4], src[i+4])
		dst[i+5] = max(dst[i+5], src[i+5])
		dst[i+6] = max(dst[i+6], src[i+6])
		dst[i+7] = max(dst[i+7], src[i+7])
	}
	for ; i < len(dst); i++ {
		dst[i] = max(dst[i], src[i])
	}
}

func (p *Plain) SizeInBytes() int { return len(p.regs) }

func (p *Plain) Clone() Registers {
	c := *p
	c.regs = append([]uint8(nil), p.regs...)
	return &c
}

func (p *Plain) Reset() { clear(p.regs) }
