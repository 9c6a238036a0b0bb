package kernel

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaturateStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sum     int64
		want    int32
		clamped bool
	}{
		{"zero", 0, 0, false},
		{"max", math.MaxInt32, math.MaxInt32, false},
		{"min", math.MinInt32, math.MinInt32, false},
		{"above", math.MaxInt32 + 1, math.MaxInt32, true},
		{"below", math.MinInt32 - 1, math.MinInt32, true},
		{"far above", 1 << 50, math.MaxInt32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sat Saturation
			got := saturateStore(tt.sum, &sat)
			if got != tt.want {
				t.Fatalf("saturateStore(%d) = %d, want %d", tt.sum, got, tt.want)
			}
			wantCount := uint32(0)
			if tt.clamped {
				wantCount = 1
			}
			if sat.Count() != wantCount {
				t.Fatalf("saturation count = %d, want %d", sat.Count(), wantCount)
			}
		})
	}
}

func TestSaturateNilCounter(t *testing.T) {
	if got := saturateStore(1<<40, nil); got != math.MaxInt32 {
		t.Fatalf("got %d", got)
	}
	var s *Saturation
	if s.Count() != 0 {
		t.Fatal("nil counter should read zero")
	}
}

func TestSaturateCheckpointContinues(t *testing.T) {
	var sat Saturation
	sum := int64(math.MaxInt32) + 100
	saturate(&sum, &sat)
	sum -= 50
	if sum != math.MaxInt32-50 {
		t.Fatalf("sum after checkpoint = %d", sum)
	}
	if sat.Count() != 1 {
		t.Fatalf("count = %d, want 1", sat.Count())
	}
}

func TestPartialSumLimit(t *testing.T) {
	tests := []struct {
		w, i Width
		want int
	}{
		{Width1B, Width1B, 131071},
		{Width1B, Width2B, 511},
		{Width2B, Width1B, 511},
		{Width2B, Width2B, 1},
	}
	for _, tt := range tests {
		if got := PartialSumLimit(tt.w, tt.i); got != tt.want {
			t.Errorf("PartialSumLimit(%s, %s) = %d, want %d", tt.w, tt.i, got, tt.want)
		}
	}
}

func TestNarrowFeedback(t *testing.T) {
	var sat Saturation
	dst := Int8s(make([]int8, 5))
	NarrowFeedback(dst, []int32{-500, -128, 0, 127, 300}, &sat)
	if diff := cmp.Diff([]int8{-128, -128, 0, 127, 127}, dst.I8); diff != "" {
		t.Fatalf("narrowed mismatch (-want +got):\n%s", diff)
	}
	if sat.Count() != 2 {
		t.Fatalf("count = %d, want 2", sat.Count())
	}

	sat.Reset()
	dst16 := Int16s(make([]int16, 2))
	NarrowFeedback(dst16, []int32{40000, -1234}, &sat)
	if diff := cmp.Diff([]int16{32767, -1234}, dst16.I16); diff != "" {
		t.Fatalf("narrowed mismatch (-want +got):\n%s", diff)
	}
	if sat.Count() != 1 {
		t.Fatalf("count = %d, want 1", sat.Count())
	}
}
