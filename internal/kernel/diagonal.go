package kernel

// diagonal computes O[m,n] = bias + mult·W[m]·I[m,n]. The weight matrix is
// the diagonal of an M×M matrix, so Columns equals Rows.
func diagonal[W, I narrow](cfg *AffineConfig, w []W, in []I) {
	n := cfg.Vectors
	for m := range cfg.Rows {
		wm := int64(w[m])
		x := in[m*n : m*n+n]
		out := cfg.Output[m*n : m*n+n]
		for v := range n {
			mult, add := cfg.Bias.term(m, v)
			out[v] = saturateStore(scaleAdd(wm*int64(x[v]), mult, add), cfg.Saturation)
		}
	}
}

func newDiagonalKernel(weight, input Width) AffineKernel {
	switch {
	case weight == Width1B && input == Width1B:
		return func(cfg *AffineConfig) { diagonal(cfg, cfg.Weights.I8, cfg.Input.I8) }
	case weight == Width1B && input == Width2B:
		return func(cfg *AffineConfig) { diagonal(cfg, cfg.Weights.I8, cfg.Input.I16) }
	}
	return nil
}
