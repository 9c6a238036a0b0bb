//go:build goexperiment.simd && amd64

package kernel

import "simd/archsimd"

var vectorDot = detectVectorDots()

func detectVectorDots() vectorDots {
	if !archsimd.X86.AVX2() {
		return vectorDots{}
	}
	return vectorDots{
		i8i8:  dotI8I8AVX2,
		i8i16: dotI8I16AVX2,
		i16i8: dotI16I8AVX2,
	}
}

// Each step loads 16 elements per 256-bit register and multiply-adds them
// pairwise into 8 int32 lanes, so a lane takes two products per step and the
// bank is folded every limit/2 steps. The wide tier runs two registers side
// by side, 32 elements per step.

func dotI8I8AVX2(w, x []int8, lanes, limit int) int64 {
	n := len(w)
	x = x[:n]
	regs := vectorRegs(lanes)
	fold := max(limit/2, 1)

	var acc [2]archsimd.Int32x8
	var total int64
	steps := 0
	i := 0
	for ; i+16*regs <= n; i += 16 * regs {
		for r := range regs {
			j := i + 16*r
			vw := archsimd.LoadInt8x16Slice(w[j:]).ExtendToInt16()
			vx := archsimd.LoadInt8x16Slice(x[j:]).ExtendToInt16()
			acc[r] = acc[r].Add(vw.DotProductPairs(vx))
		}
		steps++
		if steps == fold {
			total += foldRegs(&acc, regs)
			steps = 0
		}
	}
	total += foldRegs(&acc, regs)
	for ; i < n; i++ {
		total += int64(w[i]) * int64(x[i])
	}
	return total
}

func dotI8I16AVX2(w []int8, x []int16, lanes, limit int) int64 {
	n := len(w)
	x = x[:n]
	regs := vectorRegs(lanes)
	fold := max(limit/2, 1)

	var acc [2]archsimd.Int32x8
	var total int64
	steps := 0
	i := 0
	for ; i+16*regs <= n; i += 16 * regs {
		for r := range regs {
			j := i + 16*r
			vw := archsimd.LoadInt8x16Slice(w[j:]).ExtendToInt16()
			vx := archsimd.LoadInt16x16Slice(x[j:])
			acc[r] = acc[r].Add(vw.DotProductPairs(vx))
		}
		steps++
		if steps == fold {
			total += foldRegs(&acc, regs)
			steps = 0
		}
	}
	total += foldRegs(&acc, regs)
	for ; i < n; i++ {
		total += int64(w[i]) * int64(x[i])
	}
	return total
}

func dotI16I8AVX2(w []int16, x []int8, lanes, limit int) int64 {
	n := len(w)
	x = x[:n]
	regs := vectorRegs(lanes)
	fold := max(limit/2, 1)

	var acc [2]archsimd.Int32x8
	var total int64
	steps := 0
	i := 0
	for ; i+16*regs <= n; i += 16 * regs {
		for r := range regs {
			j := i + 16*r
			vw := archsimd.LoadInt16x16Slice(w[j:])
			vx := archsimd.LoadInt8x16Slice(x[j:]).ExtendToInt16()
			acc[r] = acc[r].Add(vw.DotProductPairs(vx))
		}
		steps++
		if steps == fold {
			total += foldRegs(&acc, regs)
			steps = 0
		}
	}
	total += foldRegs(&acc, regs)
	for ; i < n; i++ {
		total += int64(w[i]) * int64(x[i])
	}
	return total
}

// vectorRegs is the number of 256-bit accumulators a tier keeps.
func vectorRegs(lanes int) int {
	if lanes >= 16 {
		return 2
	}
	return 1
}

// foldRegs adds the first regs accumulators into an int64 and clears them.
func foldRegs(acc *[2]archsimd.Int32x8, regs int) int64 {
	var sum int64
	var tmp [8]int32
	var zero archsimd.Int32x8
	for r := range regs {
		acc[r].Store(&tmp)
		for _, v := range tmp {
			sum += int64(v)
		}
		acc[r] = zero
	}
	return sum
}
