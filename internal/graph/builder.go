package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/kernel"
)

// blockID addresses a block in the builder's arena. The root block, holding
// the graph's top-level steps, is always 0.
type blockID int

const rootBlock blockID = 0

// dispatch is one kernel invocation compiled for a fixed signature.
type dispatch struct {
	compiled kernel.Compiled
	sig      kernel.Signature
}

func (d *dispatch) kernelName() string { return d.compiled.Kernel().Name }

// step is either a dispatch or a reference to a block repeated count times.
type step struct {
	dispatch *dispatch
	block    blockID
	count    int
}

type block struct {
	name  string
	steps []step
	// shared is set once the block has been appended somewhere.
	shared bool
}

// Builder is the mutable staging area of a graph. It is not safe for
// concurrent use.
type Builder struct {
	name   string
	cache  *kernel.Cache
	blocks []*block
	seqs   int

	graph *Graph
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache shares a compiled-kernel cache between builders.
func WithCache(c *kernel.Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// NewBuilder returns an empty builder whose kernels are compiled by
// compiler. Each builder owns its cache unless WithCache is given.
func NewBuilder(name string, compiler kernel.Compiler, opts ...Option) *Builder {
	b := &Builder{
		name:   name,
		blocks: []*block{{name: name}},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = kernel.NewCache(compiler)
	}
	return b
}

func (b *Builder) Name() string { return b.name }

// CacheStats reports the builder's compiled-kernel cache counters.
func (b *Builder) CacheStats() kernel.CacheStats { return b.cache.Stats() }

// Emplace appends a dispatch of k over descs to the graph's top level.
func (b *Builder) Emplace(ctx context.Context, k *kernel.Kernel, descs ...arg.Descriptor) error {
	return b.emplace(ctx, rootBlock, k, descs)
}

// Append references seq at the current top-level position.
func (b *Builder) Append(seq *Sequential) error {
	return b.append(rootBlock, seq)
}

// CreateSequential returns a new empty block owned by this builder. An empty
// name is replaced by a generated one.
func (b *Builder) CreateSequential(name string) (*Sequential, error) {
	if b.graph != nil {
		return nil, fmt.Errorf("%w: create sequential in graph %q", ErrGraphFrozen, b.name)
	}
	b.seqs++
	if name == "" {
		name = fmt.Sprintf("seq%d", b.seqs)
	}
	id := blockID(len(b.blocks))
	b.blocks = append(b.blocks, &block{name: name})
	return &Sequential{builder: b, id: id}, nil
}

func (b *Builder) emplace(ctx context.Context, id blockID, k *kernel.Kernel, descs []arg.Descriptor) error {
	if err := b.checkMutable(id); err != nil {
		return err
	}
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrKernelSignatureMismatch)
	}

	sig, err := kernel.Resolve(k, descs)
	if err != nil {
		return err
	}
	compiled, err := b.cache.Get(ctx, k, sig)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrKernelCompilation, k.Name, err)
	}

	blk := b.blocks[id]
	blk.steps = append(blk.steps, step{dispatch: &dispatch{compiled: compiled, sig: sig}})
	ctxlog.FromContext(ctx).Debug("Dispatch emplaced.", "graph", b.name, "block", blk.name, "kernel", k.Name, "signature", sig.Key())
	return nil
}

func (b *Builder) append(parent blockID, seq *Sequential) error {
	if err := b.checkMutable(parent); err != nil {
		return err
	}
	if seq == nil {
		return fmt.Errorf("%w: nil sequential", ErrForeignSequential)
	}
	if seq.builder != b {
		return fmt.Errorf("%w: %q is owned by graph %q, not %q", ErrForeignSequential, seq.Name(), seq.builder.name, b.name)
	}
	if seq.id == parent {
		return fmt.Errorf("%w: %q", ErrCycle, seq.Name())
	}

	b.blocks[seq.id].shared = true
	blk := b.blocks[parent]
	// Consecutive appends of one block collapse into a repetition count.
	if n := len(blk.steps); n > 0 && blk.steps[n-1].dispatch == nil && blk.steps[n-1].block == seq.id {
		blk.steps[n-1].count++
		return nil
	}
	blk.steps = append(blk.steps, step{block: seq.id, count: 1})
	return nil
}

func (b *Builder) checkMutable(id blockID) error {
	if b.graph != nil {
		return fmt.Errorf("%w: graph %q is compiled", ErrGraphFrozen, b.name)
	}
	if id != rootBlock && b.blocks[id].shared {
		return fmt.Errorf("%w: sequential %q has already been appended", ErrGraphFrozen, b.blocks[id].name)
	}
	return nil
}

// Sequential is a named, reusable block of dispatches and nested blocks.
type Sequential struct {
	builder *Builder
	id      blockID
}

func (s *Sequential) Name() string { return s.builder.blocks[s.id].name }

// Emplace appends a dispatch to the block.
func (s *Sequential) Emplace(ctx context.Context, k *kernel.Kernel, descs ...arg.Descriptor) error {
	return s.builder.emplace(ctx, s.id, k, descs)
}

// Append references child at the block's current position.
func (s *Sequential) Append(child *Sequential) error {
	return s.builder.append(s.id, child)
}

// Compile freezes the builder and returns the executable graph. Calling it
// again returns the same graph without recompiling.
func (b *Builder) Compile(ctx context.Context) (*Graph, error) {
	if b.graph != nil {
		return b.graph, nil
	}
	logger := ctxlog.FromContext(ctx)

	g, err := newGraph(b.name, b.blocks)
	if err != nil {
		return nil, err
	}
	b.graph = g

	stats := b.cache.Stats()
	logger.Debug("Graph compiled.",
		"graph", b.name,
		"args", len(g.args),
		"dispatches", g.DispatchCount(),
		"blocks", len(g.blocks),
		"kernels_compiled", stats.Misses,
		"kernels_reused", stats.Hits,
	)
	return g, nil
}
