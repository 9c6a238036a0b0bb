package kernel

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samcharles93/gnacore/internal/backend"
)

// refRecurrent replays one step element by element with the same window
// checkpoints.
func refRecurrent(cfg *RecurrentConfig) ([]int32, uint32) {
	k, m := cfg.Columns, cfg.Rows
	stride := k + m
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = DefaultBufferCapacity(cfg.Input.Width)
	}
	stream := func(j int) int64 {
		if j < k {
			return cfg.Input.At(j)
		}
		return cfg.Feedback.At(j - k)
	}
	var sat uint32
	out := make([]int32, m)
	for r := range m {
		mult, sum := cfg.Bias.term(r, 0)
		for pos := 0; pos < stride; pos += capacity {
			end := min(pos+capacity, stride)
			var part int64
			for j := pos; j < end; j++ {
				part += cfg.Weights.At(r*stride+j) * stream(j)
			}
			sum += part * mult
			if end < stride {
				sum = int64(clampRef(sum, &sat))
			}
		}
		out[r] = clampRef(sum, &sat)
	}
	return out, sat
}

func TestRecurrentMatchesReference(t *testing.T) {
	t.Parallel()

	forEachTier(t, func(t *testing.T, tbl *Table) {
		r := newRand(33)
		for _, p := range widthPairs {
			for _, shape := range []struct{ k, m int }{{5, 3}, {37, 9}, {64, 16}} {
				for _, capacity := range []int{0, 4, 7, 1000} {
					name := fmt.Sprintf("w%s/i%s/k%d/m%d/cap%d", p.w, p.i, shape.k, shape.m, capacity)
					compound := make([]CompoundBias, shape.m)
					for j := range compound {
						compound[j] = CompoundBias{Bias: int32(r.IntN(1<<20) - 1<<19), Multiplier: int32(r.IntN(7) - 3)}
					}
					var sat Saturation
					cfg := &RecurrentConfig{
						Rows: shape.m, Columns: shape.k,
						Weights:        randVector(r, p.w, shape.m*(shape.k+shape.m), 0),
						Input:          randVector(r, p.i, shape.k, 0),
						Feedback:       randVector(r, p.i, shape.m, 0),
						Bias:           CompoundBiases(compound),
						BufferCapacity: capacity,
						Output:         make([]int32, shape.m),
						Saturation:     &sat,
					}
					tbl.Resolve(Key{OpRecurrent, p.w, p.i, false}).Recurrent(cfg)

					want, wantSat := refRecurrent(cfg)
					if diff := cmp.Diff(want, cfg.Output); diff != "" {
						t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
					}
					if sat.Count() != wantSat {
						t.Fatalf("%s saturation = %d, want %d", name, sat.Count(), wantSat)
					}
				}
			}
		}
	})
}

func TestRecurrentCheckpointChangesResult(t *testing.T) {
	t.Parallel()

	newCfg := func(capacity int, sat *Saturation) *RecurrentConfig {
		return &RecurrentConfig{
			Rows: 1, Columns: 3,
			Weights:        Int8s([]int8{127, 127, -128, 0}),
			Input:          Int8s([]int8{127, 127, 127}),
			Feedback:       Int8s([]int8{0}),
			Bias:           SimpleBias(Int32s([]int32{math.MaxInt32 - 10})),
			BufferCapacity: capacity,
			Output:         make([]int32, 1),
			Saturation:     sat,
		}
	}
	kernel := TableFor(backend.Baseline).Resolve(Key{OpRecurrent, Width1B, Width1B, false}).Recurrent

	var windowed Saturation
	cfg := newCfg(2, &windowed)
	kernel(cfg)
	// The first window overflows and is clamped, the second pulls it back.
	if want := int32(math.MaxInt32 - 16256); cfg.Output[0] != want {
		t.Fatalf("windowed output = %d, want %d", cfg.Output[0], want)
	}
	if windowed.Count() != 1 {
		t.Fatalf("windowed saturation = %d, want 1", windowed.Count())
	}

	var whole Saturation
	cfg = newCfg(0, &whole)
	kernel(cfg)
	if cfg.Output[0] != math.MaxInt32 {
		t.Fatalf("single window output = %d, want %d", cfg.Output[0], int32(math.MaxInt32))
	}
	if whole.Count() != 1 {
		t.Fatalf("single window saturation = %d, want 1", whole.Count())
	}
}

func TestRecurrentSequenceFeedsBack(t *testing.T) {
	t.Parallel()

	const k, m, steps = 6, 4, 3
	r := newRand(7)
	weights := randVector(r, Width1B, m*(k+m), 8)
	bias := SimpleBias(randVector(r, Width4B, m, 100))
	inputs := make([]Vector, steps)
	for s := range inputs {
		inputs[s] = randVector(r, Width2B, k, 50)
	}

	forEachTier(t, func(t *testing.T, tbl *Table) {
		kernel := tbl.Resolve(Key{OpRecurrent, Width1B, Width2B, false}).Recurrent
		feedback := emptyVector(Width2B, m)
		refFeedback := emptyVector(Width2B, m)
		for s := range steps {
			var sat Saturation
			cfg := &RecurrentConfig{
				Rows: m, Columns: k,
				Weights: weights, Input: inputs[s], Feedback: feedback,
				Bias:       bias,
				Output:     make([]int32, m),
				Saturation: &sat,
			}
			kernel(cfg)

			ref := *cfg
			ref.Feedback = refFeedback
			want, _ := refRecurrent(&ref)
			if diff := cmp.Diff(want, cfg.Output); diff != "" {
				t.Fatalf("step %d mismatch (-want +got):\n%s", s, diff)
			}

			next := emptyVector(Width2B, m)
			NarrowFeedback(next, cfg.Output, &sat)
			feedback = next
			refNext := emptyVector(Width2B, m)
			NarrowFeedback(refNext, want, nil)
			refFeedback = refNext
		}
	})
}

func TestDefaultBufferCapacity(t *testing.T) {
	tests := []struct {
		w    Width
		want int
	}{
		{Width1B, 12288},
		{Width2B, 6144},
		{Width4B, 3072},
	}
	for _, tt := range tests {
		if got := DefaultBufferCapacity(tt.w); got != tt.want {
			t.Errorf("DefaultBufferCapacity(%s) = %d, want %d", tt.w, got, tt.want)
		}
	}
}
