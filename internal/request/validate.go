package request

import (
	"math"
	"strings"

	"github.com/samcharles93/gnacore/internal/kernel"
)

const (
	// MaxDimension bounds every axis of a descriptor: rows, columns, steps,
	// states, mixtures, elements and bias groups.
	MaxDimension = 1 << 24
	// MaxElements bounds every operand and output a descriptor implies.
	MaxElements = 1 << 32
)

// Validate checks every precondition the kernels rely on. Operand lengths
// and element ranges are checked when the operands are loaded.
func Validate(d *Descriptor) error {
	if d == nil {
		return invalidf("missing descriptor")
	}
	op, ok := kernel.ParseOp(d.Op)
	if !ok {
		return invalidf("unknown op %q", d.Op)
	}
	if d.Vectors < 0 || d.Vectors > kernel.MaxVectors {
		return invalidf("vectors must be between 1 and %d, got %d", kernel.MaxVectors, d.Vectors)
	}
	if d.BufferCapacity < 0 {
		return invalidf("buffer_capacity must not be negative")
	}
	if d.Steps != 0 && op != kernel.OpRecurrent {
		return invalidf("steps only applies to recurrent layers")
	}
	if op == kernel.OpGMM {
		return validateGMM(d)
	}
	if d.GMM != nil {
		return invalidf("gmm parameters given for %s layer", op)
	}

	if err := checkWidth("weight_width", d.WeightWidth); err != nil {
		return err
	}
	if err := checkWidth("input_width", d.InputWidth); err != nil {
		return err
	}
	if d.Rows < 0 || d.Columns < 0 {
		return invalidf("rows and columns must not be negative")
	}
	if err := checkShape(op, d); err != nil {
		return err
	}

	switch op {
	case kernel.OpDiagonal:
		if d.WeightWidth != 1 {
			return unsupportedf("diagonal layers take 1-byte weights only")
		}
		if d.Columns != d.Rows {
			return invalidf("diagonal layer needs columns == rows, got %d and %d", d.Columns, d.Rows)
		}
	case kernel.OpRecurrent:
		if d.vectors() != 1 {
			return invalidf("recurrent layers run one vector per step, got %d", d.Vectors)
		}
		if d.Steps < 0 {
			return invalidf("steps must not be negative")
		}
	case kernel.OpAffineMultiBias:
		if d.Bias == nil || d.Bias.Kind != "multi" {
			return invalidf("multibias layer needs a multi bias")
		}
	}

	if d.ActiveList != nil {
		if op != kernel.OpAffine {
			return unsupportedf("%s layers have no active-list kernel", op)
		}
		if err := checkActiveList(d.ActiveList, d.Rows); err != nil {
			return err
		}
	}
	return validateBias(op, d)
}

// checkShape bounds the axes of a non-GMM layer and every buffer size the
// plan derives from them.
func checkShape(op kernel.Op, d *Descriptor) error {
	if err := checkAxes(dim{"rows", d.Rows}, dim{"columns", d.Columns}, dim{"steps", d.Steps}); err != nil {
		return err
	}
	n := d.vectors()
	sizes := [][]dim{
		{{"rows", d.Rows}, {"columns", d.Columns}},
		{{"columns", d.Columns}, {"vectors", n}},
		{{"rows", d.Rows}, {"vectors", n}},
	}
	switch op {
	case kernel.OpRecurrent:
		sizes = append(sizes,
			[]dim{{"rows", d.Rows}, {"columns+rows", d.Columns + d.Rows}},
			[]dim{{"steps", d.steps()}, {"columns", d.Columns}},
			[]dim{{"steps", d.steps()}, {"rows", d.Rows}},
		)
	case kernel.OpAffineMultiBias:
		if d.Bias != nil && d.Bias.Groups > 0 {
			if err := checkAxes(dim{"bias groups", d.Bias.Groups}); err != nil {
				return err
			}
			sizes = append(sizes, []dim{{"rows", d.Rows}, {"bias groups", d.Bias.Groups}})
		}
	}
	return checkSizes(sizes...)
}

func checkGMMShape(d *Descriptor) error {
	g := d.GMM
	if err := checkAxes(dim{"states", g.States}, dim{"mixtures", g.Mixtures}, dim{"elements", g.Elements}); err != nil {
		return err
	}
	n := d.vectors()
	// 16-bit covariances make the interleaved record three bytes per element.
	return checkSizes(
		[]dim{{"states", g.States}, {"mixtures", g.Mixtures}, {"elements", g.Elements}, {"record bytes", 3}},
		[]dim{{"states", g.States}, {"mixtures", g.Mixtures}, {"gconst bytes", 4}},
		[]dim{{"vectors", n}, {"elements", g.Elements}},
		[]dim{{"states", g.States}, {"vectors", n}},
	)
}

type dim struct {
	name string
	n    int
}

func checkAxes(axes ...dim) error {
	for _, a := range axes {
		if a.n > MaxDimension {
			return invalidf("%s = %d exceeds the limit of %d", a.name, a.n, MaxDimension)
		}
	}
	return nil
}

// checkSizes rejects any product of dims that overflows or passes
// MaxElements.
func checkSizes(products ...[]dim) error {
	for _, p := range products {
		size := 1
		for _, d := range p {
			var ok bool
			if size, ok = mulInt(size, d.n); !ok || int64(size) > MaxElements {
				return invalidf("%s is too large", productName(p))
			}
		}
	}
	return nil
}

func productName(p []dim) string {
	names := make([]string, len(p))
	for i, d := range p {
		names[i] = d.name
	}
	return strings.Join(names, "*")
}

// mulInt multiplies non-negative ints, reporting overflow.
func mulInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a < 0 || b < 0 || a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

func checkWidth(name string, w int) error {
	if w != 1 && w != 2 {
		return invalidf("%s must be 1 or 2, got %d", name, w)
	}
	return nil
}

func checkActiveList(list []uint32, rows int) error {
	for i, r := range list {
		if int64(r) >= int64(rows) {
			return invalidf("active_list[%d] = %d is out of range for %d rows", i, r, rows)
		}
	}
	return nil
}

func validateBias(op kernel.Op, d *Descriptor) error {
	b := d.Bias
	if b == nil {
		return nil
	}
	switch b.Kind {
	case "", "simple":
		if _, ok := widthOf(b.widthOr4()); !ok {
			return invalidf("bias width must be 1, 2 or 4, got %d", b.Width)
		}
	case "compound":
		if len(b.Multipliers) != d.Rows {
			return invalidf("compound bias needs %d multipliers, got %d", d.Rows, len(b.Multipliers))
		}
	case "multi":
		if op != kernel.OpAffineMultiBias {
			return invalidf("multi bias only applies to multibias layers")
		}
		if _, ok := widthOf(b.widthOr4()); !ok {
			return invalidf("bias width must be 1, 2 or 4, got %d", b.Width)
		}
		if b.Groups < 1 {
			return invalidf("multi bias needs at least one group")
		}
		if len(b.Index) != 1 && len(b.Index) != d.vectors() {
			return invalidf("multi bias index needs 1 or %d entries, got %d", d.vectors(), len(b.Index))
		}
		for i, col := range b.Index {
			if col < 0 || col >= b.Groups {
				return invalidf("bias index[%d] = %d is out of range for %d groups", i, col, b.Groups)
			}
		}
		if b.Multipliers != nil && len(b.Multipliers) != d.Rows {
			return invalidf("multi bias needs %d multipliers, got %d", d.Rows, len(b.Multipliers))
		}
	default:
		return invalidf("unknown bias kind %q", b.Kind)
	}
	return nil
}

func validateGMM(d *Descriptor) error {
	g := d.GMM
	if g == nil {
		return invalidf("gmm layer needs gmm parameters")
	}
	if d.Bias != nil {
		return invalidf("gmm layers take no bias")
	}
	mode, err := parseMode(g.Mode)
	if err != nil {
		return err
	}
	if mode != kernel.MaxMix8 && mode != kernel.MaxMix16 {
		return unsupportedf("gmm mode %s has no kernel", mode)
	}
	if _, err := parseLayout(g.Layout); err != nil {
		return err
	}
	if g.States < 0 {
		return invalidf("states must not be negative")
	}
	if g.Mixtures < 1 || g.Elements < 1 {
		return invalidf("gmm needs at least one mixture and one element")
	}
	if err := checkGMMShape(d); err != nil {
		return err
	}
	if d.ActiveList != nil {
		return checkActiveList(d.ActiveList, g.States)
	}
	return nil
}

func parseMode(name string) (kernel.GMMMode, error) {
	for _, m := range []kernel.GMMMode{kernel.MaxMix8, kernel.MaxMix16, kernel.L1, kernel.L2, kernel.LInf} {
		if strings.EqualFold(name, m.String()) {
			return m, nil
		}
	}
	return 0, invalidf("unknown gmm mode %q", name)
}

func parseLayout(name string) (kernel.GMMLayout, error) {
	switch strings.ToLower(name) {
	case "", "flat":
		return kernel.GMMFlat, nil
	case "interleaved":
		return kernel.GMMInterleaved, nil
	default:
		return 0, invalidf("unknown gmm layout %q", name)
	}
}

// key maps a validated descriptor to its dispatch key.
func key(d *Descriptor) kernel.Key {
	op, _ := kernel.ParseOp(d.Op)
	if op == kernel.OpGMM {
		mode, _ := parseMode(d.GMM.Mode)
		return kernel.Key{Op: op, Weight: mode.CovarianceWidth(), Input: kernel.Width1B, ActiveList: d.ActiveList != nil}
	}
	return kernel.Key{
		Op:         op,
		Weight:     kernel.Width(d.WeightWidth),
		Input:      kernel.Width(d.InputWidth),
		ActiveList: d.ActiveList != nil,
	}
}

func (d *Descriptor) vectors() int {
	return max(d.Vectors, 1)
}

func (d *Descriptor) steps() int {
	return max(d.Steps, 1)
}

func (b *BiasSpec) widthOr4() int {
	if b.Width == 0 {
		return 4
	}
	return b.Width
}
