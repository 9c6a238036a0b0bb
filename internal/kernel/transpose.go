package kernel

import "golang.org/x/exp/constraints"

// Transpose writes the cols×rows transpose of the row-major rows×cols block
// src into dst.
//
// An interleaved input block of K elements by N vectors (element k of vector
// n at k*N+n) becomes N contiguous rows of K elements with
// Transpose(dst, src, K, N). The inverse is Transpose(dst, src, N, K).
func Transpose[T constraints.Integer](dst, src []T, rows, cols int) {
	if rows == 0 || cols == 0 {
		return
	}
	_ = src[rows*cols-1]
	_ = dst[rows*cols-1]
	for r := range rows {
		row := src[r*cols : (r+1)*cols]
		for c, v := range row {
			dst[c*rows+r] = v
		}
	}
}

// deinterleave returns n rows of k elements for the interleaved block in.
// For a single vector the layouts coincide and in is returned unchanged.
func deinterleave[T narrow](scratch, in []T, k, n int) []T {
	if n == 1 {
		return in[:k]
	}
	Transpose(scratch, in, k, n)
	return scratch[:k*n]
}
