package mathx

import "golang.org/x/exp/constraints"

// FloorDiv rounds toward negative infinity. b > 0.
func FloorDiv[T constraints.Signed](a, b T) T {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Mod is the non-negative remainder matching FloorDiv. b > 0.
func Mod[T constraints.Signed](a, b T) T {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
