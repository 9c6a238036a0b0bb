package request

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/logger"
)

// Plan is a descriptor resolved against one kernel table: operands loaded,
// kernel picked, output and scratch allocated. A plan may be run any number
// of times but not concurrently.
type Plan struct {
	ID    string
	Op    kernel.Op
	Entry kernel.Entry

	rows    int
	vectors int
	steps   int

	affine    *kernel.AffineConfig
	recurrent *kernel.RecurrentConfig
	gmm       *kernel.GMMConfig

	// recurrent operands for the whole sequence
	inputs   kernel.Vector
	feedback kernel.Vector
	outputs  []int32

	sat kernel.Saturation
}

// Result is the outcome of one run.
type Result struct {
	ID         string        `json:"id"`
	Op         string        `json:"op"`
	Kernel     string        `json:"kernel"`
	Rows       int           `json:"rows"`
	Vectors    int           `json:"vectors"`
	Steps      int           `json:"steps,omitempty"`
	Output     []int64       `json:"output"`
	Saturation uint32        `json:"saturation"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// NewPlan validates d and prepares it for table.
func NewPlan(ctx context.Context, table *kernel.Table, d *Descriptor) (*Plan, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	k := key(d)
	entry, ok := table.Lookup(k)
	if !ok {
		return nil, unsupportedf("no %s kernel in %s table", k, table.Tier())
	}

	p := &Plan{
		ID:      d.ID,
		Op:      k.Op,
		Entry:   entry,
		vectors: d.vectors(),
		steps:   1,
	}
	if p.ID == "" {
		p.ID = "score_" + uuid.NewString()
	}

	var err error
	switch k.Op {
	case kernel.OpGMM:
		err = p.prepareGMM(d)
	case kernel.OpRecurrent:
		err = p.prepareRecurrent(d)
	default:
		err = p.prepareAffine(d, k)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("plan resolved",
		"id", p.ID,
		"kernel", entry.Name,
		"rows", p.rows,
		"vectors", p.vectors,
	)
	return p, nil
}

func (p *Plan) prepareAffine(d *Descriptor, k kernel.Key) error {
	weightCount := d.Rows * d.Columns
	if k.Op == kernel.OpDiagonal {
		weightCount = d.Rows
	}
	weights, err := d.Weights.vector("weights", weightCount, k.Weight, d.BaseDir)
	if err != nil {
		return err
	}
	input, err := d.Input.vector("input", d.Columns*p.vectors, k.Input, d.BaseDir)
	if err != nil {
		return err
	}
	bias, err := loadBias(d)
	if err != nil {
		return err
	}

	cfg := &kernel.AffineConfig{
		Rows:       d.Rows,
		Columns:    d.Columns,
		Vectors:    p.vectors,
		Weights:    weights,
		Input:      input,
		Bias:       bias,
		ActiveList: d.ActiveList,
		Saturation: &p.sat,
	}
	p.rows = cfg.OutputRows()
	cfg.Output = make([]int32, p.rows*p.vectors)
	if p.vectors > 1 && k.Op != kernel.OpDiagonal {
		cfg.Scratch = emptyVector(k.Input, d.Columns*p.vectors)
	}
	p.affine = cfg
	return nil
}

func (p *Plan) prepareRecurrent(d *Descriptor) error {
	w, i := kernel.Width(d.WeightWidth), kernel.Width(d.InputWidth)
	m, k := d.Rows, d.Columns
	p.steps = d.steps()

	weights, err := d.Weights.vector("weights", m*(k+m), w, d.BaseDir)
	if err != nil {
		return err
	}
	inputs, err := d.Input.vector("input", p.steps*k, i, d.BaseDir)
	if err != nil {
		return err
	}
	feedback := emptyVector(i, m)
	if d.Feedback != nil {
		if feedback, err = d.Feedback.vector("feedback", m, i, d.BaseDir); err != nil {
			return err
		}
	}
	bias, err := loadBias(d)
	if err != nil {
		return err
	}

	p.rows = m
	p.inputs = inputs
	p.feedback = feedback
	p.outputs = make([]int32, p.steps*m)
	p.recurrent = &kernel.RecurrentConfig{
		Rows:           m,
		Columns:        k,
		Weights:        weights,
		Bias:           bias,
		BufferCapacity: d.BufferCapacity,
		Feedback:       emptyVector(i, m),
		Saturation:     &p.sat,
	}
	return nil
}

func (p *Plan) prepareGMM(d *Descriptor) error {
	g := d.GMM
	mode, _ := parseMode(g.Mode)
	layout, _ := parseLayout(g.Layout)
	cov := mode.CovarianceWidth()
	ce := g.States * g.Mixtures * g.Elements

	features, err := d.Input.load("input", p.vectors*g.Elements, 1, false, d.BaseDir)
	if err != nil {
		return err
	}
	means, err := g.Means.load("gmm.means", ce, 1, false, d.BaseDir)
	if err != nil {
		return err
	}
	invCov, err := g.InvCov.load("gmm.inv_covariances", ce, int(cov), false, d.BaseDir)
	if err != nil {
		return err
	}
	gconst, err := g.GConst.load("gmm.gconst", g.States*g.Mixtures, 4, false, d.BaseDir)
	if err != nil {
		return err
	}

	cfg := &kernel.GMMConfig{
		Mode:           mode,
		Layout:         layout,
		States:         g.States,
		Mixtures:       g.Mixtures,
		Elements:       g.Elements,
		Vectors:        p.vectors,
		Features:       unsigned[uint8](features),
		MaximumScore:   g.MaximumScore,
		ActiveList:     d.ActiveList,
		BufferCapacity: d.BufferCapacity,
		Saturation:     &p.sat,
	}
	if cfg.MaximumScore == 0 {
		cfg.MaximumScore = math.MaxUint32
	}
	if layout == kernel.GMMInterleaved {
		cfg.Interleaved = packInterleaved(g, cov, means, invCov, gconst)
	} else {
		cfg.Means = unsigned[uint8](means)
		cfg.GConst = unsigned[uint32](gconst)
		if cov == kernel.Width2B {
			cfg.InvCov16 = unsigned[uint16](invCov)
		} else {
			cfg.InvCov8 = unsigned[uint8](invCov)
		}
	}
	p.rows = cfg.OutputRows()
	cfg.Output = make([]uint32, p.rows*p.vectors)
	p.gmm = cfg
	return nil
}

// packInterleaved builds the per-state records of an interleaved GMM from
// flat operands.
func packInterleaved(g *GMMSpec, cov kernel.Width, means, invCov, gconst []int64) []byte {
	size := kernel.InterleavedStateSize(g.Mixtures, g.Elements, cov)
	ce := g.Mixtures * g.Elements
	buf := make([]byte, g.States*size)
	for s := range g.States {
		rec := buf[s*size : (s+1)*size]
		for i := range ce {
			rec[i] = uint8(means[s*ce+i])
		}
		covs := rec[ce:]
		for i := range ce {
			if cov == kernel.Width2B {
				binary.LittleEndian.PutUint16(covs[2*i:], uint16(invCov[s*ce+i]))
			} else {
				covs[i] = uint8(invCov[s*ce+i])
			}
		}
		consts := rec[ce*(1+int(cov)):]
		for c := range g.Mixtures {
			binary.LittleEndian.PutUint32(consts[4*c:], uint32(gconst[s*g.Mixtures+c]))
		}
	}
	return buf
}

func loadBias(d *Descriptor) (kernel.Bias, error) {
	b := d.Bias
	if b == nil {
		return kernel.SimpleBias(kernel.Vector{}), nil
	}
	switch b.Kind {
	case "compound":
		vals, err := b.Values.load("bias.values", d.Rows, 4, true, d.BaseDir)
		if err != nil {
			return kernel.Bias{}, err
		}
		compound := make([]kernel.CompoundBias, d.Rows)
		for i := range compound {
			compound[i] = kernel.CompoundBias{Bias: int32(vals[i]), Multiplier: b.Multipliers[i]}
		}
		return kernel.CompoundBiases(compound), nil
	case "multi":
		w, _ := widthOf(b.widthOr4())
		vals, err := b.Values.vector("bias.values", d.Rows*b.Groups, w, d.BaseDir)
		if err != nil {
			return kernel.Bias{}, err
		}
		return kernel.MultiBiases(kernel.MultiBias{
			Values:      vals,
			Groups:      b.Groups,
			Index:       b.Index,
			Multipliers: b.Multipliers,
		}), nil
	default:
		if b.Values.IsZero() {
			return kernel.SimpleBias(kernel.Vector{}), nil
		}
		w, _ := widthOf(b.widthOr4())
		vals, err := b.Values.vector("bias.values", d.Rows, w, d.BaseDir)
		if err != nil {
			return kernel.Bias{}, err
		}
		return kernel.SimpleBias(vals), nil
	}
}

func emptyVector(w kernel.Width, n int) kernel.Vector {
	return toVector(make([]int64, n), w)
}

// Run executes the plan once.
func (p *Plan) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.sat.Reset()
	start := time.Now()

	res := &Result{
		ID:      p.ID,
		Op:      p.Op.String(),
		Kernel:  p.Entry.Name,
		Rows:    p.rows,
		Vectors: p.vectors,
	}
	switch {
	case p.gmm != nil:
		p.Entry.GMM(p.gmm)
		res.Output = widen(p.gmm.Output)
	case p.recurrent != nil:
		copyVector(p.recurrent.Feedback, p.feedback)
		if err := RunRecurrentSequence(ctx, p.Entry.Recurrent, p.recurrent, p.inputs, p.steps, p.outputs); err != nil {
			return nil, err
		}
		res.Steps = p.steps
		res.Output = widen(p.outputs)
	default:
		p.Entry.Affine(p.affine)
		res.Output = widen(p.affine.Output)
	}
	res.Elapsed = time.Since(start)
	res.Saturation = p.sat.Count()

	log := logger.FromContext(ctx)
	if res.Saturation > 0 {
		log.Debug("output saturated", "id", p.ID, "kernel", p.Entry.Name, "count", res.Saturation)
	}
	return res, nil
}

// RunRecurrentSequence runs steps time steps of cfg. Step s reads columns
// inputs starting at s*Columns and writes Rows outputs to out at s*Rows. The
// feedback of each step is the previous output narrowed to the input width;
// cfg.Feedback seeds the first step and is overwritten between steps.
// Narrowing clamps count towards cfg.Saturation.
func RunRecurrentSequence(ctx context.Context, run kernel.RecurrentKernel, cfg *kernel.RecurrentConfig, inputs kernel.Vector, steps int, out []int32) error {
	k, m := cfg.Columns, cfg.Rows
	for s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg.Input = inputs.Slice(s*k, (s+1)*k)
		cfg.Output = out[s*m : (s+1)*m]
		run(cfg)
		if s < steps-1 {
			kernel.NarrowFeedback(cfg.Feedback, cfg.Output, cfg.Saturation)
		}
	}
	return nil
}

func copyVector(dst, src kernel.Vector) {
	switch dst.Width {
	case kernel.Width1B:
		copy(dst.I8, src.I8)
	case kernel.Width2B:
		copy(dst.I16, src.I16)
	default:
		copy(dst.I32, src.I32)
	}
}

func widen[T int32 | uint32](v []T) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

// Run validates, plans and runs d once.
func Run(ctx context.Context, table *kernel.Table, d *Descriptor) (*Result, error) {
	p, err := NewPlan(ctx, table, d)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}
