package kernel

import "math"

// AffineKernel runs an affine, multi-bias or diagonal call to completion.
type AffineKernel func(cfg *AffineConfig)

// affine computes O[i,n] = bias + mult·Σ_k W[row,k]·I[k,n] for every output
// row i, where row is i or ActiveList[i].
func affine[W, I narrow](cfg *AffineConfig, w []W, in, scratch []I, active bool, dot func([]W, []I) int64) {
	k, n := cfg.Columns, cfg.Vectors
	rows := deinterleave(scratch, in, k, n)

	count := cfg.Rows
	if active {
		count = len(cfg.ActiveList)
	}
	for i := range count {
		row := i
		if active {
			row = int(cfg.ActiveList[i])
		}
		wr := w[row*k : row*k+k]
		out := cfg.Output[i*n : i*n+n]
		for v := range n {
			sum := dot(wr, rows[v*k:v*k+k])
			mult, add := cfg.Bias.term(row, v)
			out[v] = saturateStore(scaleAdd(sum, mult, add), cfg.Saturation)
		}
	}
}

// scaleAdd returns sum*mult + add. Anything past ±2^62 is pinned there: it
// is already far outside int32 and saturates the same way.
func scaleAdd(sum, mult, add int64) int64 {
	const bound = int64(1) << 62
	if mult != 1 && sum != 0 {
		if mult == 0 {
			sum = 0
		} else if abs64(sum) > bound/abs64(mult) {
			if (sum < 0) != (mult < 0) {
				return -bound
			}
			return bound
		} else {
			sum *= mult
		}
	}
	return clamp64(sum+add, -bound, bound)
}

func abs64(v int64) int64 {
	if v < 0 {
		if v == math.MinInt64 {
			return math.MaxInt64
		}
		return -v
	}
	return v
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func newAffineKernel(weight, input Width, active bool, lanes int) AffineKernel {
	limit := PartialSumLimit(weight, input)
	switch {
	case weight == Width1B && input == Width1B:
		dot := dotFor(lanes, limit, vectorDot.i8i8)
		return func(cfg *AffineConfig) {
			affine(cfg, cfg.Weights.I8, cfg.Input.I8, cfg.Scratch.I8, active, dot)
		}
	case weight == Width1B && input == Width2B:
		dot := dotFor(lanes, limit, vectorDot.i8i16)
		return func(cfg *AffineConfig) {
			affine(cfg, cfg.Weights.I8, cfg.Input.I16, cfg.Scratch.I16, active, dot)
		}
	case weight == Width2B && input == Width1B:
		dot := dotFor(lanes, limit, vectorDot.i16i8)
		return func(cfg *AffineConfig) {
			affine(cfg, cfg.Weights.I16, cfg.Input.I8, cfg.Scratch.I8, active, dot)
		}
	case weight == Width2B && input == Width2B:
		dot := dotFor[int16, int16](lanes, limit, nil)
		return func(cfg *AffineConfig) {
			affine(cfg, cfg.Weights.I16, cfg.Input.I16, cfg.Scratch.I16, active, dot)
		}
	}
	return nil
}
