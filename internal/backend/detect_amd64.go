//go:build amd64

package backend

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

func detect() Capabilities {
	features := map[string]bool{
		"SSE41":    cpu.X86.HasSSE41,
		"AVX":      cpu.X86.HasAVX,
		"AVX2":     cpu.X86.HasAVX2,
		"FMA":      cpu.X86.HasFMA,
		"AVX512F":  cpu.X86.HasAVX512F,
		"AVX512BW": cpu.X86.HasAVX512BW,
		"AVX512VL": cpu.X86.HasAVX512VL,
		"VNNI":     cpu.X86.HasAVX512VNNI,
	}

	tier := Baseline
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW:
		tier = Wide
	case cpu.X86.HasAVX2:
		tier = Mid
	}
	return Capabilities{Arch: runtime.GOARCH, Tier: tier, Features: features}
}
