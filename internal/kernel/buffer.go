package kernel

import "fmt"

// Width is the size in bytes of one quantized element.
type Width uint8

const (
	Width1B Width = 1
	Width2B Width = 2
	Width4B Width = 4
)

func (w Width) String() string {
	switch w {
	case Width1B:
		return "1B"
	case Width2B:
		return "2B"
	case Width4B:
		return "4B"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

// Vector is a borrowed view over caller-owned signed integers.
// Exactly one of the slices is populated, selected by Width.
// Kernels read through it and never retain it past a call.
type Vector struct {
	Width Width
	I8    []int8
	I16   []int16
	I32   []int32
}

// Int8s wraps v as a 1-byte vector.
func Int8s(v []int8) Vector { return Vector{Width: Width1B, I8: v} }

// Int16s wraps v as a 2-byte vector.
func Int16s(v []int16) Vector { return Vector{Width: Width2B, I16: v} }

// Int32s wraps v as a 4-byte vector.
func Int32s(v []int32) Vector { return Vector{Width: Width4B, I32: v} }

// Len returns the element count of the populated slice.
func (v Vector) Len() int {
	switch v.Width {
	case Width1B:
		return len(v.I8)
	case Width2B:
		return len(v.I16)
	case Width4B:
		return len(v.I32)
	default:
		return 0
	}
}

// At returns element i widened to int64.
func (v Vector) At(i int) int64 {
	switch v.Width {
	case Width1B:
		return int64(v.I8[i])
	case Width2B:
		return int64(v.I16[i])
	default:
		return int64(v.I32[i])
	}
}

// Slice returns the view of elements [lo, hi).
func (v Vector) Slice(lo, hi int) Vector {
	switch v.Width {
	case Width1B:
		return Int8s(v.I8[lo:hi])
	case Width2B:
		return Int16s(v.I16[lo:hi])
	default:
		return Int32s(v.I32[lo:hi])
	}
}

// Limits returns the representable range of the vector element type.
func (w Width) Limits() (lo, hi int64) {
	switch w {
	case Width1B:
		return -1 << 7, 1<<7 - 1
	case Width2B:
		return -1 << 15, 1<<15 - 1
	default:
		return -1 << 31, 1<<31 - 1
	}
}

// BiasKind selects how a Bias is applied after accumulation.
type BiasKind uint8

const (
	BiasSimple BiasKind = iota
	BiasCompound
	BiasMulti
)

func (k BiasKind) String() string {
	switch k {
	case BiasSimple:
		return "simple"
	case BiasCompound:
		return "compound"
	case BiasMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// CompoundBias rescales the raw sum before shifting it:
// out = sum*Multiplier + Bias.
type CompoundBias struct {
	Bias       int32
	Multiplier int32
}

// MultiBias is a rows×Groups bias matrix. Vector n of a batch reads column
// Index[n], or Index[0] for every vector when only one index is given.
// Multipliers, when present, scale the raw sum of each row.
type MultiBias struct {
	Values      Vector
	Groups      int
	Index       []int
	Multipliers []int32
}

// Bias is the per-output term of an affine, diagonal or recurrent layer.
type Bias struct {
	Kind     BiasKind
	Simple   Vector
	Compound []CompoundBias
	Multi    MultiBias
}

// SimpleBias builds a Bias added directly to the accumulated sum.
func SimpleBias(v Vector) Bias { return Bias{Kind: BiasSimple, Simple: v} }

// CompoundBiases builds a scale-then-shift Bias.
func CompoundBiases(v []CompoundBias) Bias { return Bias{Kind: BiasCompound, Compound: v} }

// MultiBiases builds a Bias with one selectable column per batch element.
func MultiBiases(m MultiBias) Bias { return Bias{Kind: BiasMulti, Multi: m} }

// term returns the multiplier and additive bias for output row and batch
// vector n.
func (b *Bias) term(row, n int) (mult, add int64) {
	switch b.Kind {
	case BiasCompound:
		c := b.Compound[row]
		return int64(c.Multiplier), int64(c.Bias)
	case BiasMulti:
		m := &b.Multi
		col := m.Index[0]
		if len(m.Index) > 1 {
			col = m.Index[n]
		}
		mult = 1
		if m.Multipliers != nil {
			mult = int64(m.Multipliers[row])
		}
		return mult, m.Values.At(row*m.Groups + col)
	default:
		if b.Simple.Len() == 0 {
			return 1, 0
		}
		return 1, b.Simple.At(row)
	}
}
