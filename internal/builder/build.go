package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/dag"
	"github.com/specialistvlad/cgraph/internal/graph"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/registry"
)

var (
	// ErrUnknownGraph is returned when the model has no graph of that name.
	ErrUnknownGraph = errors.New("unknown graph")
	// ErrUnresolvedReference is returned for a dispatch or append that names
	// something the model or registry does not define.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

const graphNodePrefix = "graph:"

// Build constructs and compiles the named graph from model.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, name string, compiler kernel.Compiler, opts ...graph.Option) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "graph", name)

	def, ok := model.Graph(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGraph, name)
	}

	// First pass: link sequential references.
	order, err := linkSequentials(model, def)
	if err != nil {
		return nil, fmt.Errorf("error validating graph %q: %w", name, err)
	}
	logger.Debug("Build: Reference linking complete.", "sequentials", len(order))

	st := &state{
		model: model,
		reg:   reg,
		b:     graph.NewBuilder(name, compiler, opts...),
		descs: make(map[string]arg.Descriptor),
		seqs:  make(map[string]*graph.Sequential, len(order)),
	}

	// Second pass: create sequentials leaves first.
	for _, seqName := range order {
		sdef, _ := model.Sequential(seqName)
		seq, err := st.b.CreateSequential(seqName)
		if err != nil {
			return nil, err
		}
		if err := st.fill(ctx, "sequential "+seqName, sdef.Steps, seq.Emplace, seq.Append); err != nil {
			return nil, err
		}
		st.seqs[seqName] = seq
	}
	logger.Debug("Build: Sequential construction complete.")

	// Third pass: top-level steps, then compile.
	if err := st.fill(ctx, "graph "+name, def.Steps, st.b.Emplace, st.b.Append); err != nil {
		return nil, err
	}
	g, err := st.b.Compile(ctx)
	if err != nil {
		return nil, err
	}

	logger.Debug("Build: Graph construction successful.", "graph", name, "dispatches", g.DispatchCount())
	return g, nil
}

// linkSequentials returns the sequentials reachable from def, each after the
// sequentials it appends.
func linkSequentials(model *config.Model, def *config.GraphDef) ([]string, error) {
	d := dag.New()
	root := graphNodePrefix + def.Name
	d.AddNode(root)

	visited := make(map[string]bool)
	var link func(parent string, steps []config.Step) error
	link = func(parent string, steps []config.Step) error {
		for _, step := range steps {
			if step.Append == nil {
				continue
			}
			child := step.Append.Sequential
			sdef, ok := model.Sequential(child)
			if !ok {
				return fmt.Errorf("%w: %s appends unknown sequential %q", ErrUnresolvedReference, parent, child)
			}
			d.AddNode(child)
			if err := d.AddEdge(child, parent); err != nil {
				return fmt.Errorf("%w: %w", graph.ErrCycle, err)
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			if err := link(child, sdef.Steps); err != nil {
				return err
			}
		}
		return nil
	}
	if err := link(root, def.Steps); err != nil {
		return nil, err
	}

	order, err := d.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrCycle, err)
	}
	// The graph itself sorts last; only sequentials remain.
	return order[:len(order)-1], nil
}

type state struct {
	model *config.Model
	reg   *registry.Registry
	b     *graph.Builder
	descs map[string]arg.Descriptor
	seqs  map[string]*graph.Sequential
}

type emplaceFunc func(context.Context, *kernel.Kernel, ...arg.Descriptor) error

func (s *state) fill(ctx context.Context, owner string, steps []config.Step, emplace emplaceFunc, appendTo func(*graph.Sequential) error) error {
	for i, step := range steps {
		switch {
		case step.Dispatch != nil:
			k, ok := s.reg.Kernel(step.Dispatch.Kernel)
			if !ok {
				return fmt.Errorf("%w: %s step %d: unknown kernel %q", ErrUnresolvedReference, owner, i, step.Dispatch.Kernel)
			}
			descs := make([]arg.Descriptor, len(step.Dispatch.Args))
			for j, name := range step.Dispatch.Args {
				d, err := s.descriptor(name)
				if err != nil {
					return fmt.Errorf("%s step %d: %w", owner, i, err)
				}
				descs[j] = d
			}
			if err := emplace(ctx, k, descs...); err != nil {
				return fmt.Errorf("%s step %d: %w", owner, i, err)
			}
		case step.Append != nil:
			seq := s.seqs[step.Append.Sequential]
			for range step.Append.Count {
				if err := appendTo(seq); err != nil {
					return fmt.Errorf("%s step %d: %w", owner, i, err)
				}
			}
		}
	}
	return nil
}

// descriptor builds each named descriptor once so that every use of a name
// binds the same placeholder.
func (s *state) descriptor(name string) (arg.Descriptor, error) {
	if d, ok := s.descs[name]; ok {
		return d, nil
	}
	def, ok := s.model.Arg(name)
	if !ok {
		return arg.Descriptor{}, fmt.Errorf("%w: argument %q is not declared", ErrUnresolvedReference, name)
	}
	d, err := def.Descriptor()
	if err != nil {
		return arg.Descriptor{}, err
	}
	s.descs[name] = d
	return d, nil
}
