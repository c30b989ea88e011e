// Package graph builds, compiles and replays ahead-of-time execution plans
// over registered kernels.
//
// # Lifecycle
//
// A Builder accumulates dispatches and sequential blocks, then Compile
// freezes it and returns an immutable Graph:
//
//	Building ──Compile()──▶ Compiled ──Run(bindings)──▶ Run(bindings) ...
//
//  1. **Building:** Emplace resolves a kernel against argument descriptors and
//     compiles it (memoized per signature). CreateSequential returns a block
//     owned by the builder; Append references a block at the current
//     position.
//  2. **Compile:** walks every reachable dispatch, builds the flattened
//     argument table and rejects a name reused with a different kind, dtype,
//     field_dim or element shape. The builder and all of its blocks are
//     frozen afterwards; a second Compile returns the same Graph.
//  3. **Run:** checks the bindings against the argument table, then invokes
//     every dispatch in declaration order, expanding block references in
//     place. The first failing kernel aborts the run.
//
// # Blocks
//
// Blocks live in an arena owned by the builder and are referenced by index,
// so appending a block N times records N references, never N copies. A
// block is frozen the first time it is appended anywhere. Blocks are local
// to the builder that created them.
//
// # Concurrency
//
// A Builder is single-writer. A Graph holds no locks: concurrent Run calls
// are only safe when their bindings reference disjoint storage.
//
// # Persistence
//
// Plan exports the compiled node tree with resolved argument signatures and
// block repetition counts; FromPlan rebuilds an equivalent compiled Graph
// from it without the original build code.
package graph
