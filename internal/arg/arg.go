// Package arg defines argument descriptors: named, typed placeholders that
// describe what a dispatch expects without binding any concrete storage.
//
// A descriptor is immutable once constructed. Its kind is a closed set
// (Scalar, Ndarray, Matrix, Vector) and every kind-specific field is checked
// when the descriptor is built, so later stages only compare structure.
package arg

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/cgraph/internal/dtype"
)

// ErrInvalidArgumentSpec is returned for a malformed descriptor.
var ErrInvalidArgumentSpec = errors.New("invalid argument spec")

const (
	// MaxFieldDim bounds the field rank of an ndarray.
	MaxFieldDim = 8
	// MaxElementSize bounds the number of scalars in one element, i.e. the
	// product of the element shape.
	MaxElementSize = 1 << 16
)

// CheckFieldDim reports whether fd is a usable ndarray field rank.
func CheckFieldDim(fd int) error {
	if fd < 0 || fd > MaxFieldDim {
		return fmt.Errorf("field_dim %d is outside [0, %d]", fd, MaxFieldDim)
	}
	return nil
}

// CheckElementShape reports whether shape is a usable element shape.
func CheckElementShape(shape []int) error {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("negative element dimension %d", d)
		}
		if d != 0 && n > MaxElementSize/d {
			return fmt.Errorf("element shape %v has more than %d scalars", shape, MaxElementSize)
		}
		n *= d
	}
	return nil
}

// Kind is the closed set of argument shapes.
type Kind uint8

const (
	Scalar Kind = iota
	Ndarray
	Matrix
	Vector
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Ndarray:
		return "ndarray"
	case Matrix:
		return "matrix"
	case Vector:
		return "vector"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses the configuration spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar":
		return Scalar, nil
	case "ndarray", "array":
		return Ndarray, nil
	case "matrix":
		return Matrix, nil
	case "vector":
		return Vector, nil
	}
	return 0, fmt.Errorf("%w: unknown argument kind %q", ErrInvalidArgumentSpec, s)
}

// Descriptor is an immutable argument placeholder.
type Descriptor struct {
	name         string
	kind         Kind
	dtype        dtype.DType
	elementShape []int
	hasElement   bool
	fieldDim     int
	hasFieldDim  bool
}

// Option configures optional descriptor fields.
type Option func(*Descriptor)

// WithElementShape declares the shape of each element. An empty shape means
// scalar elements.
func WithElementShape(shape ...int) Option {
	return func(d *Descriptor) {
		d.elementShape = slices.Clone(shape)
		if d.elementShape == nil {
			d.elementShape = []int{}
		}
		d.hasElement = true
	}
}

// WithFieldDim declares the rank of an ndarray, exclusive of element dims.
func WithFieldDim(n int) Option {
	return func(d *Descriptor) {
		d.fieldDim = n
		d.hasFieldDim = true
	}
}

// New builds a descriptor and validates it against its kind.
func New(kind Kind, name string, dt dtype.DType, opts ...Option) (Descriptor, error) {
	d := Descriptor{name: name, kind: kind, dtype: dt}
	for _, opt := range opts {
		opt(&d)
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// MustNew is New for statically known descriptors; it panics on error.
func MustNew(kind Kind, name string, dt dtype.DType, opts ...Option) Descriptor {
	d, err := New(kind, name, dt, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) validate() error {
	if d.name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidArgumentSpec)
	}
	if !d.dtype.Valid() {
		return fmt.Errorf("%w: argument %q has invalid dtype", ErrInvalidArgumentSpec, d.name)
	}
	if err := CheckElementShape(d.elementShape); err != nil {
		return fmt.Errorf("%w: argument %q: %v", ErrInvalidArgumentSpec, d.name, err)
	}
	if d.hasFieldDim {
		if err := CheckFieldDim(d.fieldDim); err != nil {
			return fmt.Errorf("%w: argument %q: %v", ErrInvalidArgumentSpec, d.name, err)
		}
	}

	switch d.kind {
	case Scalar:
		if d.hasElement && len(d.elementShape) > 0 {
			return fmt.Errorf("%w: scalar argument %q cannot have an element shape", ErrInvalidArgumentSpec, d.name)
		}
		if d.hasFieldDim {
			return fmt.Errorf("%w: scalar argument %q cannot have a field_dim", ErrInvalidArgumentSpec, d.name)
		}
	case Ndarray:
	case Vector, Matrix:
		want := 1
		if d.kind == Matrix {
			want = 2
		}
		if !d.hasElement {
			return fmt.Errorf("%w: %s argument %q requires an element shape", ErrInvalidArgumentSpec, d.kind, d.name)
		}
		if len(d.elementShape) != want {
			return fmt.Errorf("%w: %s argument %q needs an element shape of length %d, got %v",
				ErrInvalidArgumentSpec, d.kind, d.name, want, d.elementShape)
		}
		if d.hasFieldDim {
			return fmt.Errorf("%w: %s argument %q cannot have a field_dim", ErrInvalidArgumentSpec, d.kind, d.name)
		}
	default:
		return fmt.Errorf("%w: argument %q has unknown kind %s", ErrInvalidArgumentSpec, d.name, d.kind)
	}
	return nil
}

func (d Descriptor) Name() string       { return d.name }
func (d Descriptor) Kind() Kind         { return d.kind }
func (d Descriptor) DType() dtype.DType { return d.dtype }

// ElementShape returns the declared element shape and whether one was declared.
func (d Descriptor) ElementShape() ([]int, bool) {
	return slices.Clone(d.elementShape), d.hasElement
}

// FieldDim returns the declared field_dim and whether one was declared.
func (d Descriptor) FieldDim() (int, bool) {
	return d.fieldDim, d.hasFieldDim
}

// ElementDim is the number of element dimensions (0 for scalar elements).
func (d Descriptor) ElementDim() int {
	return len(d.elementShape)
}

func (d Descriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s[%s", d.name, d.kind, d.dtype)
	if d.hasFieldDim {
		fmt.Fprintf(&b, ",field_dim=%d", d.fieldDim)
	}
	if d.hasElement && len(d.elementShape) > 0 {
		fmt.Fprintf(&b, ",element_shape=%v", d.elementShape)
	}
	b.WriteString("]")
	return b.String()
}

// Param is the structural view of a kernel parameter a descriptor can be
// checked against. A negative FieldDim or nil ElementShape means the
// parameter leaves that property open.
type Param struct {
	Kind         Kind
	DType        dtype.DType
	FieldDim     int
	ElementShape []int
}

// Compatible reports whether the descriptor may bind to p. The check is
// purely structural: kind and dtype must match, and field_dim and element
// shape must match wherever both sides declare them.
func (d Descriptor) Compatible(p Param) error {
	if d.kind != p.Kind {
		return fmt.Errorf("argument %q is a %s, parameter expects a %s", d.name, d.kind, p.Kind)
	}
	if d.dtype != p.DType {
		return fmt.Errorf("argument %q has dtype %s, parameter expects %s", d.name, d.dtype, p.DType)
	}
	if d.hasFieldDim && p.FieldDim >= 0 && d.fieldDim != p.FieldDim {
		return fmt.Errorf("argument %q has field_dim=%d, parameter expects field_dim=%d", d.name, d.fieldDim, p.FieldDim)
	}
	if d.hasElement && p.ElementShape != nil && !slices.Equal(d.elementShape, p.ElementShape) {
		return fmt.Errorf("argument %q has element shape %v, parameter expects %v", d.name, d.elementShape, p.ElementShape)
	}
	return nil
}

// Equal reports whether two descriptors are structurally identical.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.name == o.name &&
		d.kind == o.kind &&
		d.dtype == o.dtype &&
		d.hasFieldDim == o.hasFieldDim &&
		d.fieldDim == o.fieldDim &&
		d.hasElement == o.hasElement &&
		slices.Equal(d.elementShape, o.elementShape)
}
