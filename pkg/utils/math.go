package utils

import "math"

// Dot returns the inner product of a and b, or 0 when their lengths differ.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i, v := range a {
		sum += float64(v) * float64(b[i])
	}
	return sum
}

// L2Norm returns the Euclidean length of x.
func L2Norm(x []float32) float64 {
	return math.Sqrt(Dot(x, x))
}

// NormalizeL2 scales x to unit length in place and returns its previous length.
// A zero vector is left unchanged.
func NormalizeL2(x []float32) float64 {
	n := L2Norm(x)
	if n == 0 {
		return 0
	}
	inv := float32(1 / n)
	for i := range x {
		x[i] *= inv
	}
	return n
}

// Cosine returns the cosine similarity of a and b. Zero vectors and mismatched
// lengths score 0.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	return Dot(a, b) / (na * nb)
}
