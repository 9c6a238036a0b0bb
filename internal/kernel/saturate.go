package kernel

import "math"

// Saturation counts clamp events during one call. It is owned by the caller
// and must not be shared between concurrent calls.
type Saturation uint32

// Count returns the number of clamp events recorded so far.
func (s *Saturation) Count() uint32 {
	if s == nil {
		return 0
	}
	return uint32(*s)
}

// Reset clears the counter.
func (s *Saturation) Reset() {
	if s != nil {
		*s = 0
	}
}

func (s *Saturation) inc() {
	if s != nil {
		*s++
	}
}

// saturateStore clamps sum to the int32 range and counts one event if it had
// to clamp.
func saturateStore(sum int64, sat *Saturation) int32 {
	switch {
	case sum > math.MaxInt32:
		sat.inc()
		return math.MaxInt32
	case sum < math.MinInt32:
		sat.inc()
		return math.MinInt32
	}
	return int32(sum)
}

// saturate is the in-place checkpoint form of saturateStore. Accumulation
// continues from the clamped value.
func saturate(sum *int64, sat *Saturation) {
	*sum = int64(saturateStore(*sum, sat))
}

// PartialSumLimit returns how many products of a w-byte by an i-byte signed
// integer a 32-bit accumulator can absorb before it may overflow.
// 1B×1B gives 131071, 1B×2B and 2B×1B give 511, 2B×2B gives 1.
func PartialSumLimit(w, i Width) int {
	maxProduct := (int64(1) << (8*int(w) - 1)) * (int64(1) << (8*int(i) - 1))
	limit := math.MaxInt32 / maxProduct
	if limit < 1 {
		return 1
	}
	return int(limit)
}

// NarrowFeedback quantizes int32 outputs to the width of dst, clamping to the
// element range. Each clamp is counted.
func NarrowFeedback(dst Vector, src []int32, sat *Saturation) {
	lo, hi := dst.Width.Limits()
	for i, v := range src {
		x := int64(v)
		if x > hi {
			x = hi
			sat.inc()
		} else if x < lo {
			x = lo
			sat.inc()
		}
		switch dst.Width {
		case Width1B:
			dst.I8[i] = int8(x)
		case Width2B:
			dst.I16[i] = int16(x)
		default:
			dst.I32[i] = int32(x)
		}
	}
}
