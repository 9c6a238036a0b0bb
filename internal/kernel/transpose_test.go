package kernel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTranspose(t *testing.T) {
	t.Parallel()

	// 3 elements × 2 vectors, interleaved.
	src := []int16{1, 10, 2, 20, 3, 30}
	dst := make([]int16, len(src))
	Transpose(dst, src, 3, 2)
	if diff := cmp.Diff([]int16{1, 2, 3, 10, 20, 30}, dst); diff != "" {
		t.Fatalf("transpose mismatch (-want +got):\n%s", diff)
	}

	back := make([]int16, len(src))
	Transpose(back, dst, 2, 3)
	if diff := cmp.Diff(src, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTransposeIdempotent(t *testing.T) {
	t.Parallel()

	r := newRand(3)
	for n := 1; n <= MaxVectors; n++ {
		src := randVector(r, Width1B, 13*n, 0).I8
		a := make([]int8, len(src))
		b := make([]int8, len(src))
		Transpose(a, src, 13, n)
		Transpose(b, src, 13, n)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("n=%d: repeated transpose differs:\n%s", n, diff)
		}
		for v := range n {
			for k := range 13 {
				if a[v*13+k] != src[k*n+v] {
					t.Fatalf("n=%d: row %d elem %d = %d, want %d", n, v, k, a[v*13+k], src[k*n+v])
				}
			}
		}
	}
}

func TestTransposeEmpty(t *testing.T) {
	Transpose[int8](nil, nil, 0, 4)
	Transpose[int8](nil, nil, 4, 0)
}

func TestDeinterleaveSingleVectorAliases(t *testing.T) {
	in := []int16{1, 2, 3}
	rows := deinterleave(nil, in, 3, 1)
	if &rows[0] != &in[0] {
		t.Fatal("single vector input should be used in place")
	}
}
