package kernel

// narrow is the element type set of weights, inputs and feedback.
type narrow interface {
	~int8 | ~int16
}

// vectorDots holds the hardware dot products of the vector tiers. A nil
// field means the width pair runs on the lane emulation in dotLanes.
//
// The 2B×2B pair has none: a pairwise 16-bit multiply-add overflows int32
// when both pairs are -32768·-32768.
type vectorDots struct {
	i8i8  func(w, x []int8, lanes, limit int) int64
	i8i16 func(w []int8, x []int16, lanes, limit int) int64
	i16i8 func(w []int16, x []int8, lanes, limit int) int64
}

// dotFor binds the dot product a kernel uses for one tier. The vector form
// is taken when the tier has lanes and the host provides it.
func dotFor[W, I narrow](lanes, limit int, vec func([]W, []I, int, int) int64) func([]W, []I) int64 {
	if vec != nil && lanes > 1 {
		return func(w []W, x []I) int64 { return vec(w, x, lanes, limit) }
	}
	return func(w []W, x []I) int64 { return dotLanes(w, x, lanes, limit) }
}

// maxLanes is the widest accumulator bank a tier may request (512-bit / int32).
const maxLanes = 16

// dotLanes computes Σ w[k]·x[k] exactly.
//
// With lanes > 1 the products are spread over 32-bit lane accumulators the
// way a vector unit does it, and the bank is folded into the 64-bit total
// every limit steps so that no lane can overflow. The K mod lanes tail is
// accumulated scalar straight into the total.
func dotLanes[W, I narrow](w []W, x []I, lanes, limit int) int64 {
	n := len(w)
	x = x[:n]
	if lanes <= 1 {
		var sum int64
		for k := range n {
			sum += int64(w[k]) * int64(x[k])
		}
		return sum
	}

	var acc [maxLanes]int32
	var total int64
	body := n - n%lanes
	steps := 0
	for k := 0; k < body; k += lanes {
		wk := w[k : k+lanes]
		xk := x[k : k+lanes]
		for l := range lanes {
			acc[l] += int32(wk[l]) * int32(xk[l])
		}
		steps++
		if steps == limit {
			total += reduceLanes(&acc, lanes)
			steps = 0
		}
	}
	if steps > 0 {
		total += reduceLanes(&acc, lanes)
	}
	for k := body; k < n; k++ {
		total += int64(w[k]) * int64(x[k])
	}
	return total
}

// reduceLanes is the horizontal add of the first lanes accumulators. It
// leaves the bank zeroed.
func reduceLanes(acc *[maxLanes]int32, lanes int) int64 {
	var sum int64
	for l := range lanes {
		sum += int64(acc[l])
		acc[l] = 0
	}
	return sum
}
