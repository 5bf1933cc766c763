package estimator

// Union clamps a union estimate into [max(a, b), a+b], the only range
// consistent with operand cardinalities a and b.
func Union(a, b, union float64) float64 {
	return min(max(union, a, b), a+b)
}

// Intersection returns a+b-union after clamping union, so it is never below
// zero nor above min(a, b).
func Intersection(a, b, union float64) float64 {
	return max(0, a+b-Union(a, b, union))
}

// Difference returns the estimate of |A \ B|, union-b after clamping union.
func Difference(a, b, union float64) float64 {
	return max(0, Union(a, b, union)-b)
}

// Jaccard returns intersection/union in [0, 1], and 0 for an empty union.
func Jaccard(a, b, union float64) float64 {
	u := Union(a, b, union)
	if u <= 0 {
		return 0
	}
	return min(1, Intersection(a, b, union)/u)
}
