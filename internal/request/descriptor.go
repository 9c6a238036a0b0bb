// Package request validates layer descriptors, plans them against a kernel
// table and runs them.
package request

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Descriptor is the JSON form of one scoring request.
//
// Matrix operands are row-major. Input is interleaved: element k of vector n
// at k*vectors+n. Recurrent layers read steps*columns input elements, one
// time step after the other. GMM layers take their features from Input, one
// vector of elements bytes after the other.
type Descriptor struct {
	ID string `json:"id,omitempty"`
	Op string `json:"op"`

	WeightWidth int `json:"weight_width,omitempty"`
	InputWidth  int `json:"input_width,omitempty"`

	Rows    int `json:"rows,omitempty"`
	Columns int `json:"columns,omitempty"`
	Vectors int `json:"vectors,omitempty"`

	Weights    Operand   `json:"weights,omitzero"`
	Input      Operand   `json:"input,omitzero"`
	Bias       *BiasSpec `json:"bias,omitempty"`
	ActiveList []uint32  `json:"active_list,omitempty"`

	BufferCapacity int `json:"buffer_capacity,omitempty"`

	// Steps is the number of recurrent time steps. Zero means one.
	Steps int `json:"steps,omitempty"`
	// Feedback seeds the first recurrent step. Absent means zeros.
	Feedback *Operand `json:"feedback,omitempty"`

	GMM *GMMSpec `json:"gmm,omitempty"`

	// BaseDir resolves relative operand file paths.
	BaseDir string `json:"-"`
}

// BiasSpec describes the bias of an affine, diagonal or recurrent layer.
//
// Simple biases carry rows values of Width bytes. Compound biases carry rows
// 4-byte values and rows Multipliers. Multi biases carry rows*groups values
// of Width bytes, one Index entry (shared) or one per vector, and optional
// per-row Multipliers.
type BiasSpec struct {
	Kind        string  `json:"kind"`
	Width       int     `json:"width,omitempty"`
	Values      Operand `json:"values,omitzero"`
	Multipliers []int32 `json:"multipliers,omitempty"`
	Groups      int     `json:"groups,omitempty"`
	Index       []int   `json:"index,omitempty"`
}

// GMMSpec carries the mixture model of a GMM layer in flat form. Layout
// "interleaved" packs it into per-state records before scoring.
type GMMSpec struct {
	Mode         string  `json:"mode"`
	Layout       string  `json:"layout,omitempty"`
	States       int     `json:"states"`
	Mixtures     int     `json:"mixtures"`
	Elements     int     `json:"elements"`
	MaximumScore uint32  `json:"maximum_score,omitempty"`
	Means        Operand `json:"means,omitzero"`
	InvCov       Operand `json:"inv_covariances,omitzero"`
	GConst       Operand `json:"gconst,omitzero"`
}

// Operand is either inline values or a reference to a raw little-endian
// file. In JSON an inline operand may be written as a bare array.
type Operand struct {
	Values []int64 `json:"values,omitempty"`
	File   string  `json:"file,omitempty"`
	Offset int64   `json:"offset,omitempty"`
}

// Inline wraps values as an inline operand.
func Inline[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32](values []T) Operand {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return Operand{Values: out}
}

func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		o.File, o.Offset = "", 0
		return json.Unmarshal(data, &o.Values)
	}
	type plain Operand
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Operand(p)
	return nil
}

// IsZero reports whether the operand carries nothing.
func (o Operand) IsZero() bool {
	return o.Values == nil && o.File == ""
}

// Decode reads one descriptor.
func Decode(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, invalidf("decode descriptor: %v", err)
	}
	return &d, nil
}

// DecodeBatch reads a JSON array of descriptors.
func DecodeBatch(r io.Reader) ([]*Descriptor, error) {
	var ds []*Descriptor
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return nil, invalidf("decode batch: %v", err)
	}
	for i, d := range ds {
		if d == nil {
			return nil, invalidf("batch entry %d is null", i)
		}
	}
	return ds, nil
}

// LoadFile reads a descriptor from path. Operand files resolve relative to
// the descriptor's directory.
func LoadFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor: %w", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.BaseDir = filepath.Dir(path)
	return d, nil
}

// LoadBatchFile reads a JSON array of descriptors from path.
func LoadBatchFile(path string) ([]*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()

	ds, err := DecodeBatch(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, d := range ds {
		d.BaseDir = filepath.Dir(path)
	}
	return ds, nil
}
