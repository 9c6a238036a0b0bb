//go:build arm64

package backend

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

func detect() Capabilities {
	features := map[string]bool{
		"ASIMD":   cpu.ARM64.HasASIMD,
		"ASIMDDP": cpu.ARM64.HasASIMDDP,
		"SVE":     cpu.ARM64.HasSVE,
		"SVE2":    cpu.ARM64.HasSVE2,
	}

	tier := Baseline
	switch {
	case cpu.ARM64.HasSVE:
		tier = Wide
	case cpu.ARM64.HasASIMD:
		tier = Mid
	}
	return Capabilities{Arch: runtime.GOARCH, Tier: tier, Features: features}
}
