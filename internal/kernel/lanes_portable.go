//go:build !goexperiment.simd || !amd64

package kernel

// Without archsimd every tier runs on the lane emulation.
var vectorDot vectorDots
