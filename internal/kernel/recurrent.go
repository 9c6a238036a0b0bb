package kernel

// RecurrentKernel runs one recurrent time step to completion.
type RecurrentKernel func(cfg *RecurrentConfig)

// recurrent accumulates each output row over the stream formed by the input
// block followed by the feedback block. The accumulator buffer holds capacity
// elements, so after every full window the running sum is clamped to int32
// and accumulation continues from the clamped value. The window that
// straddles the input/feedback boundary takes K mod capacity input elements
// and min(M, capacity - K mod capacity) feedback elements.
func recurrent[W, I narrow](cfg *RecurrentConfig, w []W, in, fb []I, dot func([]W, []I) int64) {
	k, m := cfg.Columns, cfg.Rows
	stride := k + m
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = DefaultBufferCapacity(cfg.Input.Width)
	}
	in = in[:k]
	fb = fb[:m]

	for r := range m {
		wr := w[r*stride : (r+1)*stride]
		mult, sum := cfg.Bias.term(r, 0)
		for pos := 0; pos < stride; {
			end := min(pos+capacity, stride)
			part := streamDot(wr, in, fb, pos, end, dot)
			sum = scaleAdd(part, mult, sum)
			pos = end
			if pos < stride {
				saturate(&sum, cfg.Saturation)
			}
		}
		cfg.Output[r] = saturateStore(sum, cfg.Saturation)
	}
}

// streamDot is the dot product of wr[pos:end] with the concatenation of in
// and fb over the same positions.
func streamDot[W, I narrow](wr []W, in, fb []I, pos, end int, dot func([]W, []I) int64) int64 {
	k := len(in)
	var sum int64
	if pos < k {
		e := min(end, k)
		sum += dot(wr[pos:e], in[pos:e])
		pos = e
	}
	if pos < end {
		sum += dot(wr[pos:end], fb[pos-k:end-k])
	}
	return sum
}

func newRecurrentKernel(weight, input Width, lanes int) RecurrentKernel {
	limit := PartialSumLimit(weight, input)
	switch {
	case weight == Width1B && input == Width1B:
		dot := dotFor(lanes, limit, vectorDot.i8i8)
		return func(cfg *RecurrentConfig) {
			recurrent(cfg, cfg.Weights.I8, cfg.Input.I8, cfg.Feedback.I8, dot)
		}
	case weight == Width1B && input == Width2B:
		dot := dotFor(lanes, limit, vectorDot.i8i16)
		return func(cfg *RecurrentConfig) {
			recurrent(cfg, cfg.Weights.I8, cfg.Input.I16, cfg.Feedback.I16, dot)
		}
	case weight == Width2B && input == Width1B:
		dot := dotFor(lanes, limit, vectorDot.i16i8)
		return func(cfg *RecurrentConfig) {
			recurrent(cfg, cfg.Weights.I16, cfg.Input.I8, cfg.Feedback.I8, dot)
		}
	case weight == Width2B && input == Width2B:
		dot := dotFor[int16, int16](lanes, limit, nil)
		return func(cfg *RecurrentConfig) {
			recurrent(cfg, cfg.Weights.I16, cfg.Input.I16, cfg.Feedback.I16, dot)
		}
	}
	return nil
}
