// Package storage provides the concrete storage handles bound to graph
// arguments at run time.
//
// Handles are allocated by the caller and never by the graph: a Graph run
// only reads and mutates the memory behind the handles it was given. Each
// handle reports its kind and dtype so a run can check it against the
// descriptor a dispatch was compiled for.
package storage

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/dtype"
)

// ErrTooLarge is returned when a shape's byte size does not fit in an int.
var ErrTooLarge = errors.New("storage too large")

// Value is a concrete storage handle.
type Value interface {
	Kind() arg.Kind
	DType() dtype.DType
}

// Shaped is implemented by handles with a field rank and element shape.
type Shaped interface {
	Value
	FieldDim() int
	Shape() []int
	ElementShape() []int
}

// Scalar is a single by-value element.
type Scalar struct {
	dt  dtype.DType
	raw [8]byte
}

// NewScalar returns a scalar of type dt holding v.
func NewScalar(dt dtype.DType, v float64) *Scalar {
	s := &Scalar{dt: dt}
	dt.PutFloat64(s.raw[:], v)
	return s
}

// NewIntScalar returns an integer scalar without a float round trip.
func NewIntScalar(dt dtype.DType, v int64) *Scalar {
	s := &Scalar{dt: dt}
	dt.PutInt64(s.raw[:], v)
	return s
}

func (s *Scalar) Kind() arg.Kind     { return arg.Scalar }
func (s *Scalar) DType() dtype.DType { return s.dt }
func (s *Scalar) Float64() float64   { return s.dt.Float64(s.raw[:]) }
func (s *Scalar) Int64() int64       { return s.dt.Int64(s.raw[:]) }

// Set replaces the held value.
func (s *Scalar) Set(v float64) { s.dt.PutFloat64(s.raw[:], v) }

func (s *Scalar) String() string {
	if s.dt.IsFloat() {
		return fmt.Sprintf("%g:%s", s.Float64(), s.dt)
	}
	return fmt.Sprintf("%d:%s", s.Int64(), s.dt)
}

// buffer is a dense row-major array of dtype elements shared by Ndarray and
// Small.
type buffer struct {
	dt    dtype.DType
	dims  []int
	data  []byte
	elems int
}

func newBuffer(dt dtype.DType, dims []int) (buffer, error) {
	if !dt.Valid() {
		return buffer{}, fmt.Errorf("invalid dtype %s", dt)
	}
	size := dt.Size()
	n := 1
	for _, d := range dims {
		if d < 0 {
			return buffer{}, fmt.Errorf("negative dimension in shape %v", dims)
		}
		if d != 0 && n > math.MaxInt/d/size {
			return buffer{}, fmt.Errorf("%w: shape %v of %s", ErrTooLarge, dims, dt)
		}
		n *= d
	}
	return buffer{dt: dt, dims: slices.Clone(dims), data: make([]byte, n*size), elems: n}, nil
}

func (b *buffer) offset(idx []int) int {
	if len(idx) != len(b.dims) {
		panic(fmt.Sprintf("storage: index %v has %d components, array has rank %d", idx, len(idx), len(b.dims)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= b.dims[i] {
			panic(fmt.Sprintf("storage: index %v out of range for shape %v", idx, b.dims))
		}
		off = off*b.dims[i] + x
	}
	return off
}

func (b *buffer) elem(flat int) []byte {
	sz := b.dt.Size()
	return b.data[flat*sz : (flat+1)*sz]
}

// Len is the total number of scalar elements.
func (b *buffer) Len() int { return b.elems }

// At reads the element at a full index (field dims then element dims).
func (b *buffer) At(idx ...int) float64 { return b.dt.Float64(b.elem(b.offset(idx))) }

// Set writes the element at a full index.
func (b *buffer) Set(v float64, idx ...int) { b.dt.PutFloat64(b.elem(b.offset(idx)), v) }

// AtFlat reads the element at a row-major flat position.
func (b *buffer) AtFlat(i int) float64 { return b.dt.Float64(b.elem(i)) }

// SetFlat writes the element at a row-major flat position.
func (b *buffer) SetFlat(i int, v float64) { b.dt.PutFloat64(b.elem(i), v) }

// Fill sets every element to v.
func (b *buffer) Fill(v float64) {
	for i := 0; i < b.elems; i++ {
		b.SetFlat(i, v)
	}
}

// Float64s copies the contents out in row-major order.
func (b *buffer) Float64s() []float64 {
	out := make([]float64, b.elems)
	for i := range out {
		out[i] = b.AtFlat(i)
	}
	return out
}

// CopyFrom loads values in row-major order.
func (b *buffer) CopyFrom(values []float64) error {
	if len(values) != b.elems {
		return fmt.Errorf("got %d values for %d elements", len(values), b.elems)
	}
	for i, v := range values {
		b.SetFlat(i, v)
	}
	return nil
}

// Bytes exposes the raw little-endian backing memory.
func (b *buffer) Bytes() []byte { return b.data }

// Ndarray is an n-dimensional array whose elements are scalars, vectors or
// small matrices.
type Ndarray struct {
	buffer
	fieldDim int
}

// NewNdarray allocates a zeroed array of the given field shape and element
// shape.
func NewNdarray(dt dtype.DType, shape []int, elementShape ...int) (*Ndarray, error) {
	dims := append(slices.Clone(shape), elementShape...)
	b, err := newBuffer(dt, dims)
	if err != nil {
		return nil, err
	}
	return &Ndarray{buffer: b, fieldDim: len(shape)}, nil
}

// MustNdarray is NewNdarray for shapes known to be valid.
func MustNdarray(dt dtype.DType, shape []int, elementShape ...int) *Ndarray {
	a, err := NewNdarray(dt, shape, elementShape...)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Ndarray) Kind() arg.Kind     { return arg.Ndarray }
func (a *Ndarray) DType() dtype.DType { return a.dt }
func (a *Ndarray) FieldDim() int      { return a.fieldDim }

// Shape is the field shape, exclusive of element dims.
func (a *Ndarray) Shape() []int { return slices.Clone(a.dims[:a.fieldDim]) }

// ElementShape is the shape of each element.
func (a *Ndarray) ElementShape() []int { return slices.Clone(a.dims[a.fieldDim:]) }

func (a *Ndarray) String() string {
	return fmt.Sprintf("ndarray[%s,shape=%v,element_shape=%v]", a.dt, a.Shape(), a.ElementShape())
}

// Small is a by-value vector or matrix argument.
type Small struct {
	buffer
	kind arg.Kind
}

// NewVector allocates a zeroed vector of n elements.
func NewVector(dt dtype.DType, n int) (*Small, error) {
	b, err := newBuffer(dt, []int{n})
	if err != nil {
		return nil, err
	}
	return &Small{buffer: b, kind: arg.Vector}, nil
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(dt dtype.DType, rows, cols int) (*Small, error) {
	b, err := newBuffer(dt, []int{rows, cols})
	if err != nil {
		return nil, err
	}
	return &Small{buffer: b, kind: arg.Matrix}, nil
}

func (s *Small) Kind() arg.Kind     { return s.kind }
func (s *Small) DType() dtype.DType { return s.dt }
func (s *Small) FieldDim() int      { return 0 }
func (s *Small) Shape() []int       { return []int{} }

// ElementShape is the vector length or the matrix rows and cols.
func (s *Small) ElementShape() []int { return slices.Clone(s.dims) }

func (s *Small) String() string {
	return fmt.Sprintf("%s[%s,%v]", s.kind, s.dt, s.dims)
}
