package kernel

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/samcharles93/gnacore/internal/backend"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// randVector fills n elements of width w with values in [-span, span].
// span <= 0 uses the full element range.
func randVector(r *rand.Rand, w Width, n int, span int64) Vector {
	lo, hi := w.Limits()
	if span > 0 {
		lo, hi = max(lo, -span), min(hi, span)
	}
	pick := func() int64 { return lo + r.Int64N(hi-lo+1) }
	switch w {
	case Width1B:
		v := make([]int8, n)
		for i := range v {
			v[i] = int8(pick())
		}
		return Int8s(v)
	case Width2B:
		v := make([]int16, n)
		for i := range v {
			v[i] = int16(pick())
		}
		return Int16s(v)
	default:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(pick())
		}
		return Int32s(v)
	}
}

func filledVector(w Width, n int, val int64) Vector {
	switch w {
	case Width1B:
		v := make([]int8, n)
		for i := range v {
			v[i] = int8(val)
		}
		return Int8s(v)
	case Width2B:
		v := make([]int16, n)
		for i := range v {
			v[i] = int16(val)
		}
		return Int16s(v)
	default:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(val)
		}
		return Int32s(v)
	}
}

func emptyVector(w Width, n int) Vector { return filledVector(w, n, 0) }

func clampRef(sum int64, sat *uint32) int32 {
	if sum > math.MaxInt32 {
		*sat++
		return math.MaxInt32
	}
	if sum < math.MinInt32 {
		*sat++
		return math.MinInt32
	}
	return int32(sum)
}

// refAffine is the plain 64-bit formula over the interleaved input.
func refAffine(cfg *AffineConfig) ([]int32, uint32) {
	k, n := cfg.Columns, cfg.Vectors
	rows := make([]int, 0, cfg.Rows)
	if cfg.ActiveList != nil {
		for _, r := range cfg.ActiveList {
			rows = append(rows, int(r))
		}
	} else {
		for r := range cfg.Rows {
			rows = append(rows, r)
		}
	}
	var sat uint32
	out := make([]int32, len(rows)*n)
	for i, row := range rows {
		for v := range n {
			var sum int64
			for c := range k {
				sum += cfg.Weights.At(row*k+c) * cfg.Input.At(c*n+v)
			}
			mult, add := cfg.Bias.term(row, v)
			out[i*n+v] = clampRef(sum*mult+add, &sat)
		}
	}
	return out, sat
}

func forEachTier(t *testing.T, fn func(t *testing.T, tbl *Table)) {
	t.Helper()
	for _, tier := range backend.Tiers() {
		t.Run(tier.String(), func(t *testing.T) {
			fn(t, TableFor(tier))
		})
	}
}

var widthPairs = []struct{ w, i Width }{
	{Width1B, Width1B},
	{Width1B, Width2B},
	{Width2B, Width1B},
	{Width2B, Width2B},
}
