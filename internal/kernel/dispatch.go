package kernel

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/samcharles93/gnacore/internal/backend"
)

// Op is the layer operation a kernel implements.
type Op uint8

const (
	OpAffine Op = iota
	OpAffineMultiBias
	OpDiagonal
	OpRecurrent
	OpGMM
)

func (o Op) String() string {
	switch o {
	case OpAffine:
		return "affine"
	case OpAffineMultiBias:
		return "multibias"
	case OpDiagonal:
		return "diagonal"
	case OpRecurrent:
		return "recurrent"
	case OpGMM:
		return "gmm"
	default:
		return "unknown"
	}
}

// ParseOp maps an operation name to its Op.
func ParseOp(name string) (Op, bool) {
	for _, op := range []Op{OpAffine, OpAffineMultiBias, OpDiagonal, OpRecurrent, OpGMM} {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}

// Key identifies one kernel variant within a tier. For GMM the weight width
// is the inverse covariance width and the input width is always 1B.
type Key struct {
	Op         Op
	Weight     Width
	Input      Width
	ActiveList bool
}

func (k Key) String() string {
	s := fmt.Sprintf("%s/w%s/i%s", k.Op, k.Weight, k.Input)
	if k.ActiveList {
		s += "/al"
	}
	return s
}

// Entry is a resolved kernel. Exactly one of the function fields is set,
// according to Key.Op.
type Entry struct {
	Name      string
	Key       Key
	Affine    AffineKernel
	Recurrent RecurrentKernel
	GMM       GMMKernel
}

// Table maps kernel keys to the implementations of one tier.
type Table struct {
	tier    backend.Tier
	lanes   int
	entries map[Key]Entry
}

var tables = func() map[backend.Tier]*Table {
	m := make(map[backend.Tier]*Table, len(backend.Tiers()))
	for _, t := range backend.Tiers() {
		m[t] = newTable(t)
	}
	return m
}()

// TableFor returns the kernel table built for tier t.
func TableFor(t backend.Tier) *Table {
	if tbl, ok := tables[t]; ok {
		return tbl
	}
	return tables[backend.Baseline]
}

// Lanes is the number of 32-bit accumulators a tier's kernels use.
func Lanes(t backend.Tier) int {
	switch t {
	case backend.Mid:
		return 8
	case backend.Wide:
		return 16
	default:
		return 1
	}
}

func newTable(t backend.Tier) *Table {
	tbl := &Table{tier: t, lanes: Lanes(t), entries: make(map[Key]Entry)}
	widths := []Width{Width1B, Width2B}
	for _, w := range widths {
		for _, i := range widths {
			for _, al := range []bool{false, true} {
				tbl.add(Key{OpAffine, w, i, al}, Entry{Affine: newAffineKernel(w, i, al, tbl.lanes)})
			}
			tbl.add(Key{OpAffineMultiBias, w, i, false}, Entry{Affine: newAffineKernel(w, i, false, tbl.lanes)})
			tbl.add(Key{OpRecurrent, w, i, false}, Entry{Recurrent: newRecurrentKernel(w, i, tbl.lanes)})
		}
		for _, al := range []bool{false, true} {
			tbl.add(Key{OpGMM, w, Width1B, al}, Entry{GMM: newGMMKernel(w, al, tbl.lanes)})
		}
	}
	for _, i := range widths {
		tbl.add(Key{OpDiagonal, Width1B, i, false}, Entry{Affine: newDiagonalKernel(Width1B, i)})
	}
	return tbl
}

func (t *Table) add(k Key, e Entry) {
	e.Key = k
	e.Name = k.String() + "@" + t.tier.String()
	t.entries[k] = e
}

// Tier returns the tier the table was built for.
func (t *Table) Tier() backend.Tier { return t.tier }

// Lookup returns the entry for k, if the table has one.
func (t *Table) Lookup(k Key) (Entry, bool) {
	e, ok := t.entries[k]
	return e, ok
}

// Resolve returns the entry for k. A missing entry is a gap in the table, not
// a runtime condition, and panics.
func (t *Table) Resolve(k Key) Entry {
	e, ok := t.entries[k]
	if !ok {
		panic(fmt.Sprintf("kernel: no %s kernel in %s table", k, t.tier))
	}
	return e
}

// Keys lists every key in the table in a stable order.
func (t *Table) Keys() []Key {
	keys := lo.Keys(t.entries)
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(
			cmp.Compare(a.Op, b.Op),
			cmp.Compare(a.Weight, b.Weight),
			cmp.Compare(a.Input, b.Input),
			cmp.Compare(boolInt(a.ActiveList), boolInt(b.ActiveList)),
		)
	})
	return keys
}

// Names lists the entry names of the table in key order.
func (t *Table) Names() []string {
	return lo.Map(t.Keys(), func(k Key, _ int) string { return t.entries[k].Name })
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
