package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/storage"
)

// Bindings maps argument names to the caller-owned storage for one run.
type Bindings map[string]storage.Value

type boundDispatch struct {
	compiled kernel.Compiled
	// slots index the graph's argument table, one per kernel parameter.
	slots []int
}

type compiledStep struct {
	dispatch *boundDispatch
	block    int
	count    int
}

type compiledBlock struct {
	name  string
	steps []compiledStep
}

// Graph is an immutable, executable plan. Block 0 is the top level.
type Graph struct {
	name     string
	args     []kernel.Slot
	index    map[string]int
	blocks   []compiledBlock
	maxArity int
}

func newGraph(name string, src []*block) (*Graph, error) {
	g := &Graph{name: name, index: make(map[string]int)}
	remap := make(map[blockID]int, len(src))
	if _, err := g.addBlock(src, rootBlock, remap); err != nil {
		return nil, err
	}
	return g, nil
}

// addBlock copies a reachable block and everything it references, visiting
// each shared block once.
func (g *Graph) addBlock(src []*block, id blockID, remap map[blockID]int) (int, error) {
	if idx, ok := remap[id]; ok {
		return idx, nil
	}
	idx := len(g.blocks)
	remap[id] = idx
	g.blocks = append(g.blocks, compiledBlock{name: src[id].name})

	steps := make([]compiledStep, 0, len(src[id].steps))
	for _, st := range src[id].steps {
		if st.dispatch != nil {
			bd, err := g.bind(st.dispatch)
			if err != nil {
				return 0, err
			}
			steps = append(steps, compiledStep{dispatch: bd})
			continue
		}
		child, err := g.addBlock(src, st.block, remap)
		if err != nil {
			return 0, err
		}
		steps = append(steps, compiledStep{block: child, count: st.count})
	}
	g.blocks[idx].steps = steps
	return idx, nil
}

// bind registers the dispatch's arguments in the graph's flattened name
// table, rejecting a name already bound with a different signature.
func (g *Graph) bind(d *dispatch) (*boundDispatch, error) {
	bd := &boundDispatch{compiled: d.compiled, slots: make([]int, len(d.sig))}
	for i, slot := range d.sig {
		idx, ok := g.index[slot.Name]
		if !ok {
			idx = len(g.args)
			g.index[slot.Name] = idx
			g.args = append(g.args, slot)
		} else if err := sameArgument(g.args[idx], slot); err != nil {
			return nil, fmt.Errorf("%w: graph %q, kernel %s: %v", ErrDuplicateArgumentKind, g.name, d.kernelName(), err)
		}
		bd.slots[i] = idx
	}
	g.maxArity = max(g.maxArity, len(d.sig))
	return bd, nil
}

func sameArgument(have, got kernel.Slot) error {
	conflict := have.Kind != got.Kind || have.DType != got.DType
	switch {
	case conflict:
	case have.Kind == arg.Ndarray:
		conflict = have.FieldDim != got.FieldDim || !slices.Equal(have.ElementShape, got.ElementShape)
	case have.Kind == arg.Vector, have.Kind == arg.Matrix:
		conflict = !slices.Equal(have.ElementShape, got.ElementShape)
	}
	if conflict {
		return fmt.Errorf("argument %q is bound as %s and as %s", have.Name, have, got)
	}
	return nil
}

func (g *Graph) Name() string { return g.name }

// Args returns the flattened argument table in first-use order.
func (g *Graph) Args() []kernel.Slot {
	out := make([]kernel.Slot, len(g.args))
	for i, s := range g.args {
		s.ElementShape = slices.Clone(s.ElementShape)
		out[i] = s
	}
	return out
}

// ArgNames returns the sorted set of names a run must bind.
func (g *Graph) ArgNames() []string {
	return slices.Sorted(maps.Keys(g.index))
}

// Dispatch is one entry of the expanded execution order.
type Dispatch struct {
	Kernel string
	Args   []string
}

func (d Dispatch) String() string {
	return fmt.Sprintf("%s(%s)", d.Kernel, joinNames(d.Args))
}

// Dispatches returns every kernel invocation of one run, in order, with
// block references fully expanded.
func (g *Graph) Dispatches() []Dispatch {
	var out []Dispatch
	g.walk(0, func(bd *boundDispatch) {
		names := make([]string, len(bd.slots))
		for i, s := range bd.slots {
			names[i] = g.args[s].Name
		}
		out = append(out, Dispatch{Kernel: bd.compiled.Kernel().Name, Args: names})
	})
	return out
}

// DispatchCount is the number of kernel invocations of one run.
func (g *Graph) DispatchCount() int {
	return g.countBlock(0)
}

func (g *Graph) countBlock(idx int) int {
	n := 0
	for _, st := range g.blocks[idx].steps {
		if st.dispatch != nil {
			n++
			continue
		}
		n += st.count * g.countBlock(st.block)
	}
	return n
}

func (g *Graph) walk(idx int, fn func(*boundDispatch)) {
	for _, st := range g.blocks[idx].steps {
		if st.dispatch != nil {
			fn(st.dispatch)
			continue
		}
		for range st.count {
			g.walk(st.block, fn)
		}
	}
}

// Run validates bindings against the argument table and then invokes every
// dispatch in declaration order. No kernel runs unless all bindings are
// valid; a failing kernel stops the run and leaves the storage as the
// completed prefix wrote it.
func (g *Graph) Run(ctx context.Context, bindings Bindings) error {
	logger := ctxlog.FromContext(ctx)

	frame, err := g.resolve(bindings)
	if err != nil {
		return err
	}

	logger.Debug("Running graph.", "graph", g.name, "args", len(frame))
	r := runner{frame: frame, scratch: make([]storage.Value, g.maxArity)}
	if err := r.exec(ctx, g, 0); err != nil {
		logger.Debug("Graph run aborted.", "graph", g.name, "completed", r.pos, "error", err)
		return err
	}
	logger.Debug("Graph run finished.", "graph", g.name, "dispatches", r.pos)
	return nil
}

// resolve orders bindings by argument index after checking the name set and
// every handle's signature.
func (g *Graph) resolve(bindings Bindings) ([]storage.Value, error) {
	var missing, unexpected []string
	for name := range g.index {
		if _, ok := bindings[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: graph %q needs %s", ErrMissingArgument, g.name, joinNames(missing))
	}
	for name := range bindings {
		if _, ok := g.index[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		return nil, fmt.Errorf("%w: graph %q does not use %s", ErrUnexpectedArgument, g.name, joinNames(unexpected))
	}

	frame := make([]storage.Value, len(g.args))
	for i, slot := range g.args {
		v := bindings[slot.Name]
		if err := slot.Conforms(v); err != nil {
			return nil, fmt.Errorf("%w: graph %q: %v", ErrArgumentShapeMismatch, g.name, err)
		}
		frame[i] = v
	}
	return frame, nil
}

type runner struct {
	frame   []storage.Value
	scratch []storage.Value
	pos     int
}

func (r *runner) exec(ctx context.Context, g *Graph, idx int) error {
	for _, st := range g.blocks[idx].steps {
		if st.dispatch == nil {
			for range st.count {
				if err := r.exec(ctx, g, st.block); err != nil {
					return err
				}
			}
			continue
		}

		args := r.scratch[:len(st.dispatch.slots)]
		for i, s := range st.dispatch.slots {
			args[i] = r.frame[s]
		}
		if err := st.dispatch.compiled.Invoke(ctx, args); err != nil {
			return fmt.Errorf("%w: graph %q dispatch %d (%s): %w",
				ErrKernelExecution, g.name, r.pos, st.dispatch.compiled.Kernel().Name, err)
		}
		r.pos++
	}
	return nil
}

func joinNames(names []string) string { return strings.Join(names, ", ") }
