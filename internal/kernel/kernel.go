// Package kernel describes kernels by their declared parameter signature and
// defines the narrow boundary to the collaborator that compiles and launches
// them: Compiler.Compile produces a Compiled handle for one concrete
// descriptor signature, and Compiled.Invoke launches it against bound storage.
//
// The package also owns the per-session memo table (Cache) that guarantees a
// kernel is compiled at most once per distinct signature, and HostCompiler, a
// reference backend that runs kernel bodies written in Go on the host.
package kernel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/dtype"
)

// Param is one declared kernel parameter.
//
// FieldDim < 0 leaves the ndarray rank open and a nil ElementShape leaves the
// element shape open; the bound descriptor must then supply them.
type Param struct {
	Name         string
	Kind         arg.Kind
	DType        dtype.DType
	FieldDim     int
	ElementShape []int
}

// ScalarParam declares a primitive by-value parameter.
func ScalarParam(name string, dt dtype.DType) Param {
	return Param{Name: name, Kind: arg.Scalar, DType: dt, FieldDim: -1}
}

// NdarrayParam declares an ndarray parameter. fieldDim < 0 leaves the rank
// open; the element shape stays open until WithElement is used.
func NdarrayParam(name string, dt dtype.DType, fieldDim int) Param {
	return Param{Name: name, Kind: arg.Ndarray, DType: dt, FieldDim: fieldDim}
}

// VectorParam declares a by-value vector of n elements.
func VectorParam(name string, dt dtype.DType, n int) Param {
	return Param{Name: name, Kind: arg.Vector, DType: dt, FieldDim: -1, ElementShape: []int{n}}
}

// MatrixParam declares a by-value rows x cols matrix.
func MatrixParam(name string, dt dtype.DType, rows, cols int) Param {
	return Param{Name: name, Kind: arg.Matrix, DType: dt, FieldDim: -1, ElementShape: []int{rows, cols}}
}

// WithElement returns a copy of p with a fixed element shape. An empty call
// fixes scalar elements.
func (p Param) WithElement(shape ...int) Param {
	p.ElementShape = append([]int{}, shape...)
	return p
}

func (p Param) structural() arg.Param {
	return arg.Param{Kind: p.Kind, DType: p.DType, FieldDim: p.FieldDim, ElementShape: p.ElementShape}
}

func (p Param) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s[%s", p.Name, p.Kind, p.DType)
	if p.Kind == arg.Ndarray && p.FieldDim >= 0 {
		fmt.Fprintf(&b, ",field_dim=%d", p.FieldDim)
	}
	if p.ElementShape != nil && len(p.ElementShape) > 0 {
		fmt.Fprintf(&b, ",element_shape=%v", p.ElementShape)
	}
	b.WriteString("]")
	return b.String()
}

// Body is the kernel implementation executed by HostCompiler. It must not
// retain the Launch or any handle obtained from it after returning.
type Body func(l *Launch) error

// Kernel is a unit of computation identified by name and parameter list.
type Kernel struct {
	Name        string
	Description string
	Params      []Param
	Body        Body
}

// New builds a kernel definition.
func New(name string, body Body, params ...Param) *Kernel {
	return &Kernel{Name: name, Params: params, Body: body}
}

func (k *Kernel) String() string {
	parts := make([]string, len(k.Params))
	for i, p := range k.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", k.Name, strings.Join(parts, ", "))
}

// Slot is one resolved parameter of a dispatch signature.
type Slot struct {
	Name         string
	Kind         arg.Kind
	DType        dtype.DType
	FieldDim     int
	ElementShape []int
}

// Signature is the ordered, fully resolved descriptor signature of one
// dispatch.
type Signature []Slot

// Key is the structural identity of the signature; argument names are not
// part of it, so two dispatches of the same kernel over differently named
// but identically shaped arguments share one compiled kernel.
func (s Signature) Key() string {
	var b strings.Builder
	for i, slot := range s {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s:%s", slot.Kind, slot.DType)
		switch slot.Kind {
		case arg.Ndarray:
			fmt.Fprintf(&b, ":%d:%v", slot.FieldDim, slot.ElementShape)
		case arg.Vector, arg.Matrix:
			fmt.Fprintf(&b, ":%v", slot.ElementShape)
		}
	}
	return b.String()
}

// Equal compares two signatures including argument names.
func (s Signature) Equal(o Signature) bool {
	return slices.EqualFunc(s, o, func(a, b Slot) bool {
		return a.Name == b.Name && a.Kind == b.Kind && a.DType == b.DType &&
			a.FieldDim == b.FieldDim && slices.Equal(a.ElementShape, b.ElementShape)
	})
}

func (s Slot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s[%s", s.Name, s.Kind, s.DType)
	if s.Kind == arg.Ndarray {
		fmt.Fprintf(&b, ",field_dim=%d", s.FieldDim)
	}
	if len(s.ElementShape) > 0 {
		fmt.Fprintf(&b, ",element_shape=%v", s.ElementShape)
	}
	b.WriteString("]")
	return b.String()
}
