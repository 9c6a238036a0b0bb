package kernel

import (
	"encoding/binary"
	"math"
)

// GMMKernel scores a block of states against up to MaxVectors feature
// vectors.
type GMMKernel func(cfg *GMMConfig)

// covView addresses the inverse covariances of one state.
type covView interface {
	flatCov8 | flatCov16 | packedCov16
	at(i int) uint64
}

type flatCov8 []uint8

func (c flatCov8) at(i int) uint64 { return uint64(c[i]) }

type flatCov16 []uint16

func (c flatCov16) at(i int) uint64 { return uint64(c[i]) }

type packedCov16 []byte

func (c packedCov16) at(i int) uint64 { return uint64(binary.LittleEndian.Uint16(c[2*i:])) }

// constView addresses the Gaussian constants of one state.
type constView interface {
	flatConst | packedConst
	at(i int) uint64
}

type flatConst []uint32

func (c flatConst) at(i int) uint64 { return uint64(c[i]) }

type packedConst []byte

func (c packedConst) at(i int) uint64 { return uint64(binary.LittleEndian.Uint32(c[4*i:])) }

// gmmPartialLimit is how many (f-m)²·v terms a 32-bit unsigned lane holds.
func gmmPartialLimit(cov Width) int {
	maxTerm := uint64(math.MaxUint8*math.MaxUint8) * uint64(math.MaxUint8)
	if cov == Width2B {
		maxTerm = uint64(math.MaxUint8*math.MaxUint8) * uint64(math.MaxUint16)
	}
	return int(max(math.MaxUint32/maxTerm, 1))
}

// distance is Σ (f[e]-mean[e])²·cov[base+e] over the window of f.
func distance[C covView](f, mean []uint8, cov C, base, lanes, limit int) uint64 {
	n := len(f)
	mean = mean[:n]
	if lanes <= 1 {
		var sum uint64
		for e := range n {
			d := int32(f[e]) - int32(mean[e])
			sum += uint64(d*d) * cov.at(base+e)
		}
		return sum
	}

	var acc [maxLanes]uint32
	var total uint64
	body := n - n%lanes
	steps := 0
	for e := 0; e < body; e += lanes {
		for l := range lanes {
			d := int32(f[e+l]) - int32(mean[e+l])
			acc[l] += uint32(d*d) * uint32(cov.at(base+e+l))
		}
		steps++
		if steps == limit {
			total += reduceUnsigned(&acc, lanes)
			steps = 0
		}
	}
	if steps > 0 {
		total += reduceUnsigned(&acc, lanes)
	}
	for e := body; e < n; e++ {
		d := int32(f[e]) - int32(mean[e])
		total += uint64(d*d) * cov.at(base+e)
	}
	return total
}

func reduceUnsigned(acc *[maxLanes]uint32, lanes int) uint64 {
	var sum uint64
	for l := range lanes {
		sum += uint64(acc[l])
		acc[l] = 0
	}
	return sum
}

// scoreState writes the best mixture score of one state for every vector
// into out. All vectors go through each component before the next one is
// loaded.
func scoreState[C covView, K constView](cfg *GMMConfig, means []uint8, cov C, consts K, out []uint32, lanes, limit int) {
	e, n := cfg.Elements, cfg.Vectors
	maxScore := uint64(cfg.MaximumScore)
	window := cfg.BufferCapacity
	if window <= 0 || window > e {
		window = e
	}

	var best [MaxVectors]uint64
	for v := range n {
		best[v] = math.MaxUint64
	}
	for c := range cfg.Mixtures {
		base := c * e
		mean := means[base : base+e]
		gconst := consts.at(c)
		for v := range n {
			f := cfg.Features[v*e : v*e+e]
			sum := gconst
			for e0 := 0; e0 < e; e0 += window {
				e1 := min(e0+window, e)
				sum += distance(f[e0:e1], mean[e0:e1], cov, base+e0, lanes, limit)
				sum = min(sum, maxScore)
			}
			best[v] = min(best[v], sum)
		}
	}
	for v := range n {
		out[v] = uint32(min(best[v], maxScore))
	}
}

func runGMM[C covView, K constView](cfg *GMMConfig, active bool, lanes, limit int, state func(s int) ([]uint8, C, K)) {
	n := cfg.Vectors
	count := cfg.States
	if active {
		count = len(cfg.ActiveList)
	}
	for i := range count {
		s := i
		if active {
			s = int(cfg.ActiveList[i])
		}
		means, cov, consts := state(s)
		scoreState(cfg, means, cov, consts, cfg.Output[i*n:i*n+n], lanes, limit)
	}
	detectGMMSaturation(cfg.Output[:count*n], cfg.MaximumScore, cfg.Saturation)
}

// detectGMMSaturation counts one event for the whole block if any score
// reached the maximum. The scan stops at the first hit.
func detectGMMSaturation(out []uint32, maxScore uint32, sat *Saturation) {
	for _, s := range out {
		if s == maxScore {
			sat.inc()
			return
		}
	}
}

func newGMMKernel(cov Width, active bool, lanes int) GMMKernel {
	limit := gmmPartialLimit(cov)
	switch cov {
	case Width1B:
		return func(cfg *GMMConfig) {
			ce := cfg.Mixtures * cfg.Elements
			if cfg.Layout == GMMInterleaved {
				size := InterleavedStateSize(cfg.Mixtures, cfg.Elements, Width1B)
				runGMM(cfg, active, lanes, limit, func(s int) ([]uint8, flatCov8, packedConst) {
					rec := cfg.Interleaved[s*size : (s+1)*size]
					return rec[:ce], flatCov8(rec[ce : 2*ce]), packedConst(rec[2*ce:])
				})
				return
			}
			runGMM(cfg, active, lanes, limit, func(s int) ([]uint8, flatCov8, flatConst) {
				return cfg.Means[s*ce : (s+1)*ce], flatCov8(cfg.InvCov8[s*ce : (s+1)*ce]),
					flatConst(cfg.GConst[s*cfg.Mixtures : (s+1)*cfg.Mixtures])
			})
		}
	case Width2B:
		return func(cfg *GMMConfig) {
			ce := cfg.Mixtures * cfg.Elements
			if cfg.Layout == GMMInterleaved {
				size := InterleavedStateSize(cfg.Mixtures, cfg.Elements, Width2B)
				runGMM(cfg, active, lanes, limit, func(s int) ([]uint8, packedCov16, packedConst) {
					rec := cfg.Interleaved[s*size : (s+1)*size]
					return rec[:ce], packedCov16(rec[ce : 3*ce]), packedConst(rec[3*ce:])
				})
				return
			}
			runGMM(cfg, active, lanes, limit, func(s int) ([]uint8, flatCov16, flatConst) {
				return cfg.Means[s*ce : (s+1)*ce], flatCov16(cfg.InvCov16[s*ce : (s+1)*ce]),
					flatConst(cfg.GConst[s*cfg.Mixtures : (s+1)*cfg.Mixtures])
			})
		}
	}
	return nil
}
