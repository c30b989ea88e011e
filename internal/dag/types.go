package dag

import "sync"

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order keeps insertion order so that traversals are deterministic.
	order []*node
}

type node struct {
	id string
	// deps are the predecessors of this node, in edge insertion order.
	deps []*node
}
