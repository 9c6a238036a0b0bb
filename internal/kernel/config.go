package kernel

// MaxVectors is the largest batch a single call processes.
const MaxVectors = 8

// AffineConfig describes one affine, multi-bias or diagonal call.
//
// Input is interleaved: element k of vector n is at k*Vectors+n. Output is
// interleaved the same way with one row per weight row, or one row per
// ActiveList entry when a list is given.
type AffineConfig struct {
	Rows    int
	Columns int
	Vectors int

	// Weights is Rows×Columns row-major. Diagonal layers carry Rows values.
	Weights Vector
	Input   Vector
	Bias    Bias

	ActiveList []uint32

	Output []int32
	// Scratch holds the de-interleaved input. It must have the input width
	// and room for Columns*Vectors elements when Vectors > 1.
	Scratch    Vector
	Saturation *Saturation
}

// OutputRows is the number of output rows the call produces.
func (c *AffineConfig) OutputRows() int {
	if c.ActiveList != nil {
		return len(c.ActiveList)
	}
	return c.Rows
}

// RecurrentConfig describes one time step of a recurrent layer.
type RecurrentConfig struct {
	Rows    int
	Columns int

	// Weights is Rows×(Columns+Rows) row-major: the input block first, then
	// the feedback block.
	Weights Vector
	Input   Vector
	// Feedback is the previous step's output narrowed to the input width.
	Feedback Vector
	Bias     Bias

	// BufferCapacity is the accumulation window, in elements, after which the
	// running sum is clamped. Zero selects DefaultBufferCapacity.
	BufferCapacity int

	Output     []int32
	Saturation *Saturation
}

// hardwareBufferBytes is the size of the accumulator input buffer.
const hardwareBufferBytes = 12288

// DefaultBufferCapacity is the accumulation window for inputs of width w.
func DefaultBufferCapacity(w Width) int {
	if w == 0 {
		return hardwareBufferBytes
	}
	return hardwareBufferBytes / int(w)
}

// GMMMode selects the scoring function of a GMM layer.
type GMMMode uint8

const (
	MaxMix8 GMMMode = iota
	MaxMix16
	L1
	L2
	LInf
)

func (m GMMMode) String() string {
	switch m {
	case MaxMix8:
		return "maxmix8"
	case MaxMix16:
		return "maxmix16"
	case L1:
		return "l1"
	case L2:
		return "l2"
	case LInf:
		return "linf"
	default:
		return "unknown"
	}
}

// CovarianceWidth is the element width of the inverse covariances.
func (m GMMMode) CovarianceWidth() Width {
	if m == MaxMix16 {
		return Width2B
	}
	return Width1B
}

// GMMLayout selects how mixture data is addressed.
type GMMLayout uint8

const (
	// GMMFlat keeps means, inverse covariances and constants in separate
	// buffers.
	GMMFlat GMMLayout = iota
	// GMMInterleaved packs every state into one record:
	// [means C·E][inverse covariances C·E·w][constants C·4], little endian.
	GMMInterleaved
)

func (l GMMLayout) String() string {
	if l == GMMInterleaved {
		return "interleaved"
	}
	return "flat"
}

// InterleavedStateSize is the byte size of one interleaved state record.
func InterleavedStateSize(mixtures, elements int, cov Width) int {
	return mixtures*elements*(1+int(cov)) + 4*mixtures
}

// GMMConfig describes one GMM scoring call.
type GMMConfig struct {
	Mode   GMMMode
	Layout GMMLayout

	States   int
	Mixtures int
	Elements int
	Vectors  int

	// Features holds Vectors feature vectors of Elements values each.
	Features []uint8

	// Flat layout buffers, States×Mixtures×Elements (constants
	// States×Mixtures).
	Means    []uint8
	InvCov8  []uint8
	InvCov16 []uint16
	GConst   []uint32

	// Interleaved layout buffer, States records of InterleavedStateSize.
	Interleaved []byte

	MaximumScore uint32
	ActiveList   []uint32

	// BufferCapacity is the element window after which a running component
	// score is clamped to MaximumScore. Zero means the whole vector.
	BufferCapacity int

	// Output is interleaved: state row i, vector n at i*Vectors+n.
	Output     []uint32
	Saturation *Saturation
}

// OutputRows is the number of scored states.
func (c *GMMConfig) OutputRows() int {
	if c.ActiveList != nil {
		return len(c.ActiveList)
	}
	return c.States
}
