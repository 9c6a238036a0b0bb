// Package backend detects the CPU vector tier the scoring kernels run at.
package backend

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Tier is the vector instruction-set level a kernel table is built for.
type Tier uint8

const (
	// Baseline is plain scalar code with 64-bit accumulation.
	Baseline Tier = iota
	// Mid is a 256-bit vector unit (AVX2, NEON pairs).
	Mid
	// Wide is a 512-bit vector unit (AVX-512, SVE).
	Wide
)

const (
	Auto = "auto"

	// TierEnv forces a tier by name, bypassing detection.
	TierEnv = "GNACORE_TIER"
	// NoSimdEnv forces the baseline tier when set to a true value.
	NoSimdEnv = "GNACORE_NO_SIMD"
)

// Tiers lists every tier from narrowest to widest.
func Tiers() []Tier {
	return []Tier{Baseline, Mid, Wide}
}

func (t Tier) String() string {
	switch t {
	case Baseline:
		return "baseline"
	case Mid:
		return "mid"
	case Wide:
		return "wide"
	default:
		return "unknown"
	}
}

// Normalize parses a tier name. An empty name means auto detection and is
// reported with auto=true.
func Normalize(name string) (tier Tier, auto bool, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Auto:
		return Baseline, true, nil
	case "baseline", "scalar":
		return Baseline, false, nil
	case "mid", "avx2", "neon":
		return Mid, false, nil
	case "wide", "avx512", "sve":
		return Wide, false, nil
	default:
		return Baseline, false, fmt.Errorf("unknown tier %q (expected auto, baseline, mid, or wide)", name)
	}
}

// Select resolves the requested tier name against the environment and the
// detected hardware. A forced tier wider than the hardware is still honored:
// every tier is portable Go, the wider ones only change the accumulation
// schedule.
func Select(requested string) (Tier, error) {
	tier, auto, err := Normalize(requested)
	if err != nil {
		return Baseline, err
	}
	if !auto {
		return tier, nil
	}
	if noSimd() {
		return Baseline, nil
	}
	if forced := os.Getenv(TierEnv); forced != "" {
		tier, auto, err := Normalize(forced)
		if err != nil {
			return Baseline, fmt.Errorf("%s: %w", TierEnv, err)
		}
		if !auto {
			return tier, nil
		}
	}
	return Detect().Tier, nil
}

func noSimd() bool {
	val := os.Getenv(NoSimdEnv)
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// Capabilities is the result of CPU feature detection.
type Capabilities struct {
	Arch     string          `json:"arch"`
	Tier     Tier            `json:"-"`
	TierName string          `json:"tier"`
	Features map[string]bool `json:"features"`
}

// Detect inspects the running CPU.
func Detect() Capabilities {
	caps := detect()
	caps.TierName = caps.Tier.String()
	return caps
}
