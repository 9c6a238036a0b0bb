package request

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/samcharles93/gnacore/internal/kernel"
)

// load returns n elements of size bytes. File operands are read little
// endian from the mapped file starting at Offset.
func (o Operand) load(name string, n, size int, signed bool, baseDir string) ([]int64, error) {
	if o.File == "" {
		if len(o.Values) != n {
			return nil, invalidf("%s: got %d values, want %d", name, len(o.Values), n)
		}
		lo, hi := elementRange(size, signed)
		for i, v := range o.Values {
			if v < lo || v > hi {
				return nil, invalidf("%s[%d] = %d out of range [%d, %d]", name, i, v, lo, hi)
			}
		}
		return o.Values, nil
	}

	path := o.File
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer r.Close()

	if o.Offset < 0 || o.Offset+int64(n*size) > int64(r.Len()) {
		return nil, invalidf("%s: %s holds %d bytes, need %d at offset %d", name, o.File, r.Len(), n*size, o.Offset)
	}
	buf := make([]byte, n*size)
	if _, err := r.ReadAt(buf, o.Offset); err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", name, o.File, err)
	}
	return decodeLE(buf, n, size, signed), nil
}

func decodeLE(buf []byte, n, size int, signed bool) []int64 {
	out := make([]int64, n)
	for i := range out {
		b := buf[i*size:]
		switch {
		case size == 1 && signed:
			out[i] = int64(int8(b[0]))
		case size == 1:
			out[i] = int64(b[0])
		case size == 2 && signed:
			out[i] = int64(int16(binary.LittleEndian.Uint16(b)))
		case size == 2:
			out[i] = int64(binary.LittleEndian.Uint16(b))
		case signed:
			out[i] = int64(int32(binary.LittleEndian.Uint32(b)))
		default:
			out[i] = int64(binary.LittleEndian.Uint32(b))
		}
	}
	return out
}

func elementRange(size int, signed bool) (lo, hi int64) {
	bits := 8 * size
	if signed {
		return -1 << (bits - 1), 1<<(bits-1) - 1
	}
	return 0, 1<<bits - 1
}

func (o Operand) vector(name string, n int, w kernel.Width, baseDir string) (kernel.Vector, error) {
	vals, err := o.load(name, n, int(w), true, baseDir)
	if err != nil {
		return kernel.Vector{}, err
	}
	return toVector(vals, w), nil
}

func toVector(vals []int64, w kernel.Width) kernel.Vector {
	switch w {
	case kernel.Width1B:
		v := make([]int8, len(vals))
		for i, x := range vals {
			v[i] = int8(x)
		}
		return kernel.Int8s(v)
	case kernel.Width2B:
		v := make([]int16, len(vals))
		for i, x := range vals {
			v[i] = int16(x)
		}
		return kernel.Int16s(v)
	default:
		v := make([]int32, len(vals))
		for i, x := range vals {
			v[i] = int32(x)
		}
		return kernel.Int32s(v)
	}
}

func unsigned[T uint8 | uint16 | uint32](vals []int64) []T {
	out := make([]T, len(vals))
	for i, x := range vals {
		out[i] = T(x)
	}
	return out
}

func widthOf(bytes int) (kernel.Width, bool) {
	switch bytes {
	case 1:
		return kernel.Width1B, true
	case 2:
		return kernel.Width2B, true
	case 4:
		return kernel.Width4B, true
	default:
		return 0, false
	}
}
