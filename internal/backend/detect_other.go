//go:build !amd64 && !arm64

package backend

import "runtime"

func detect() Capabilities {
	return Capabilities{Arch: runtime.GOARCH, Tier: Baseline, Features: map[string]bool{}}
}
