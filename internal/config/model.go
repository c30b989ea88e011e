package config

import (
	"fmt"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of all loaded definition files.
// Slices keep declaration order; names are unique per slice.
type Model struct {
	Args        []*ArgDef
	Sequentials []*SequentialDef
	Graphs      []*GraphDef
	Bindings    []*BindingDef
}

// Source records where a definition was declared.
type Source struct {
	FilePath string
}

func (s Source) String() string { return s.FilePath }

// ArgDef is an `arg` block: one named argument descriptor.
type ArgDef struct {
	Name  string
	Kind  string
	DType string
	// FieldDim is nil when not declared.
	FieldDim *int
	// ElementShape is nil when not declared; an empty slice declares scalar
	// elements.
	ElementShape []int
	Source       Source
}

// Descriptor validates the definition and builds the descriptor.
func (a *ArgDef) Descriptor() (arg.Descriptor, error) {
	kind, err := arg.ParseKind(a.Kind)
	if err != nil {
		return arg.Descriptor{}, fmt.Errorf("%s: arg %q: %w", a.Source, a.Name, err)
	}
	dt, err := dtype.Parse(a.DType)
	if err != nil {
		return arg.Descriptor{}, fmt.Errorf("%s: arg %q: %w: %v", a.Source, a.Name, arg.ErrInvalidArgumentSpec, err)
	}
	var opts []arg.Option
	if a.FieldDim != nil {
		opts = append(opts, arg.WithFieldDim(*a.FieldDim))
	}
	if a.ElementShape != nil {
		opts = append(opts, arg.WithElementShape(a.ElementShape...))
	}
	d, err := arg.New(kind, a.Name, dt, opts...)
	if err != nil {
		return arg.Descriptor{}, fmt.Errorf("%s: %w", a.Source, err)
	}
	return d, nil
}

// Step is either a kernel dispatch or an append of a sequential.
type Step struct {
	Dispatch *DispatchDef
	Append   *AppendDef
}

// DispatchDef is a `dispatch "kernel" { args = [...] }` block.
type DispatchDef struct {
	Kernel string
	Args   []string
}

// AppendDef is an `append "sequential" { count = n }` block.
type AppendDef struct {
	Sequential string
	Count      int
}

// SequentialDef is a `sequential` block.
type SequentialDef struct {
	Name        string
	Description string
	Steps       []Step
	Source      Source
}

// GraphDef is a `graph` block.
type GraphDef struct {
	Name        string
	Description string
	Steps       []Step
	Source      Source
}

// BindingDef describes caller-side storage for one argument: a `scalar`,
// `ndarray`, `vector` or `matrix` block.
type BindingDef struct {
	Name         string
	Kind         string
	DType        string
	Shape        []int
	ElementShape []int
	Fill         *float64
	// Value is cty.NilVal when not given.
	Value  cty.Value
	Source Source
}

// Graph returns the graph definition with the given name.
func (m *Model) Graph(name string) (*GraphDef, bool) {
	for _, g := range m.Graphs {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Sequential returns the sequential definition with the given name.
func (m *Model) Sequential(name string) (*SequentialDef, bool) {
	for _, s := range m.Sequentials {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Arg returns the argument definition with the given name.
func (m *Model) Arg(name string) (*ArgDef, bool) {
	for _, a := range m.Args {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}
