package estimator

import "math"

// alphaInf is the asymptotic HyperLogLog constant 1/(2 ln 2).
const alphaInf = 0.7213475204444817

// sigma adds the contribution of registers that are still zero.
func sigma(x float64) float64 {
	if x == 1 {
		return math.Inf(1)
	}
	y := 1.0
	z := x
	for {
		x *= x
		prev := z
		z += x * y
		y += y
		if prev == z {
			return z
		}
	}
}

// tau corrects for registers that reached the saturation value.
func tau(x float64) float64 {
	if x == 0 || x == 1 {
		return 0
	}
	y := 1.0
	z := 1 - x
	for {
		x = math.Sqrt(x)
		prev := z
		y *= 0.5
		z -= (1 - x) * (1 - x) * y
		if prev == z {
			return z / 3
		}
	}
}

// Ertl returns Ertl's improved estimate from a register histogram, where
// hist[v] counts registers holding v and maxRegister is the saturation
// value. m is the register count.
func Ertl(hist []int, m int, maxRegister uint8) float64 {
	if hist[0] == m {
		return 0
	}
	mf := float64(m)
	q := int(maxRegister) - 1
	z := mf * tau(1-float64(hist[q+1])/mf)
	for j := q; j >= 1; j-- {
		z += float64(hist[j])
		z *= 0.5
	}
	z += mf * sigma(float64(hist[0])/mf)
	return alphaInf * mf * mf / z
}
