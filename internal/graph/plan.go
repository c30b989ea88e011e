package graph

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/kernel"
)

// Plan is the persistable node tree of a compiled graph: resolved argument
// signatures, blocks in first-visit order (0 is the top level) and, per
// step, either a kernel dispatch or a block reference with its repeat count.
type Plan struct {
	Name   string      `msgpack:"name"`
	Args   []PlanArg   `msgpack:"args"`
	Blocks []PlanBlock `msgpack:"blocks"`
}

type PlanArg struct {
	Name         string `msgpack:"name"`
	Kind         string `msgpack:"kind"`
	DType        string `msgpack:"dtype"`
	FieldDim     int    `msgpack:"field_dim"`
	ElementShape []int  `msgpack:"element_shape"`
}

type PlanBlock struct {
	Name  string     `msgpack:"name"`
	Steps []PlanStep `msgpack:"steps"`
}

// PlanStep is a dispatch when Kernel is set, otherwise a reference to
// Blocks[Block] repeated Count times. Args index Plan.Args.
type PlanStep struct {
	Kernel string `msgpack:"kernel,omitempty"`
	Args   []int  `msgpack:"args,omitempty"`
	Block  int    `msgpack:"block,omitempty"`
	Count  int    `msgpack:"count,omitempty"`
}

// Plan exports the graph's node tree.
func (g *Graph) Plan() Plan {
	p := Plan{
		Name:   g.name,
		Args:   make([]PlanArg, len(g.args)),
		Blocks: make([]PlanBlock, len(g.blocks)),
	}
	for i, s := range g.args {
		p.Args[i] = PlanArg{
			Name:         s.Name,
			Kind:         s.Kind.String(),
			DType:        s.DType.String(),
			FieldDim:     s.FieldDim,
			ElementShape: slices.Clone(s.ElementShape),
		}
	}
	for i, blk := range g.blocks {
		steps := make([]PlanStep, len(blk.steps))
		for j, st := range blk.steps {
			if st.dispatch != nil {
				steps[j] = PlanStep{Kernel: st.dispatch.compiled.Kernel().Name, Args: slices.Clone(st.dispatch.slots)}
				continue
			}
			steps[j] = PlanStep{Block: st.block, Count: st.count}
		}
		p.Blocks[i] = PlanBlock{Name: blk.name, Steps: steps}
	}
	return p
}

// Fingerprint is a stable digest of the graph's node tree.
func (g *Graph) Fingerprint() string { return g.Plan().Fingerprint() }

// Fingerprint hashes every field of the plan, length-prefixed, in order.
func (p Plan) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}
	writeInts := func(xs []int) {
		writeInt(len(xs))
		for _, x := range xs {
			writeInt(x)
		}
	}

	writeString(p.Name)
	writeInt(len(p.Args))
	for _, a := range p.Args {
		writeString(a.Name)
		writeString(a.Kind)
		writeString(a.DType)
		writeInt(a.FieldDim)
		writeInts(a.ElementShape)
	}
	writeInt(len(p.Blocks))
	for _, b := range p.Blocks {
		writeString(b.Name)
		writeInt(len(b.Steps))
		for _, st := range b.Steps {
			writeString(st.Kernel)
			writeInts(st.Args)
			writeInt(st.Block)
			writeInt(st.Count)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KernelLookup resolves kernel names when a plan is loaded.
type KernelLookup interface {
	Kernel(name string) (*kernel.Kernel, bool)
}

// FromPlan rebuilds a compiled graph from p. Kernels are recompiled through
// compiler for the recorded signatures; the result has the same plan and
// fingerprint as the graph p was exported from.
func FromPlan(ctx context.Context, p Plan, kernels KernelLookup, compiler kernel.Compiler, opts ...Option) (*Graph, error) {
	if len(p.Blocks) == 0 {
		return nil, fmt.Errorf("%w: graph %q has no top-level block", ErrInvalidPlan, p.Name)
	}
	descs, err := planDescriptors(p.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: graph %q: %w", ErrInvalidPlan, p.Name, err)
	}

	l := planLoader{
		plan:    p,
		descs:   descs,
		kernels: kernels,
		b:       NewBuilder(p.Name, compiler, opts...),
		seqs:    make([]*Sequential, len(p.Blocks)),
		state:   make([]uint8, len(p.Blocks)),
	}
	if err := l.fill(ctx, 0, l.b.Emplace, l.b.Append); err != nil {
		return nil, err
	}
	g, err := l.b.Compile(ctx)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Graph restored from plan.", "graph", p.Name, "blocks", len(p.Blocks), "args", len(p.Args))
	return g, nil
}

func planDescriptors(args []PlanArg) ([]arg.Descriptor, error) {
	descs := make([]arg.Descriptor, len(args))
	for i, a := range args {
		kind, err := arg.ParseKind(a.Kind)
		if err != nil {
			return nil, err
		}
		dt, err := dtype.Parse(a.DType)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		var opts []arg.Option
		switch kind {
		case arg.Ndarray:
			opts = append(opts, arg.WithFieldDim(a.FieldDim), arg.WithElementShape(a.ElementShape...))
		case arg.Vector, arg.Matrix:
			opts = append(opts, arg.WithElementShape(a.ElementShape...))
		}
		if descs[i], err = arg.New(kind, a.Name, dt, opts...); err != nil {
			return nil, err
		}
	}
	return descs, nil
}

const (
	unvisited uint8 = iota
	building
	built
)

type planLoader struct {
	plan    Plan
	descs   []arg.Descriptor
	kernels KernelLookup
	b       *Builder
	seqs    []*Sequential
	state   []uint8
}

type emplaceFunc func(context.Context, *kernel.Kernel, ...arg.Descriptor) error

func (l *planLoader) fill(ctx context.Context, idx int, emplace emplaceFunc, appendTo func(*Sequential) error) error {
	for j, st := range l.plan.Blocks[idx].Steps {
		where := "block " + strconv.Itoa(idx) + " step " + strconv.Itoa(j)
		if st.Kernel != "" {
			k, ok := l.kernels.Kernel(st.Kernel)
			if !ok {
				return fmt.Errorf("%w: %s: unknown kernel %q", ErrInvalidPlan, where, st.Kernel)
			}
			descs := make([]arg.Descriptor, len(st.Args))
			for i, a := range st.Args {
				if a < 0 || a >= len(l.descs) {
					return fmt.Errorf("%w: %s: argument index %d out of range", ErrInvalidPlan, where, a)
				}
				descs[i] = l.descs[a]
			}
			if err := emplace(ctx, k, descs...); err != nil {
				return err
			}
			continue
		}

		if st.Block <= 0 || st.Block >= len(l.plan.Blocks) || st.Count < 1 {
			return fmt.Errorf("%w: %s: bad block reference %d x%d", ErrInvalidPlan, where, st.Block, st.Count)
		}
		child, err := l.sequential(ctx, st.Block)
		if err != nil {
			return err
		}
		for range st.Count {
			if err := appendTo(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// sequential builds a block completely before it is first appended, since
// appending freezes it.
func (l *planLoader) sequential(ctx context.Context, idx int) (*Sequential, error) {
	switch l.state[idx] {
	case built:
		return l.seqs[idx], nil
	case building:
		return nil, fmt.Errorf("%w: block %d references itself", ErrInvalidPlan, idx)
	}
	l.state[idx] = building
	seq, err := l.b.CreateSequential(l.plan.Blocks[idx].Name)
	if err != nil {
		return nil, err
	}
	if err := l.fill(ctx, idx, seq.Emplace, seq.Append); err != nil {
		return nil, err
	}
	l.seqs[idx] = seq
	l.state[idx] = built
	return seq, nil
}
