// cpu_features prints the host's detected vector tier and features as JSON.
//
//	go run ./scripts
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"

	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
)

type output struct {
	GoVersion string          `json:"go_version"`
	GoOS      string          `json:"go_os"`
	GoArch    string          `json:"go_arch"`
	CPUs      int             `json:"cpus"`
	Tier      string          `json:"tier"`
	Lanes     int             `json:"lanes"`
	Available string          `json:"available"`
	Features  map[string]bool `json:"features"`
}

func main() {
	caps := backend.Detect()
	out := output{
		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		Tier:      caps.TierName,
		Lanes:     kernel.Lanes(caps.Tier),
		Available: backend.Available(),
		Features:  caps.Features,
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
