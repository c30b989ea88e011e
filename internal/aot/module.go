// Package aot persists compiled graphs so they can be replayed without the
// code that built them.
//
// A Module groups named graphs. Save writes it as a single file: a fixed
// header (magic "CGRF", format version, body length, CRC-32 of the body)
// followed by a msgpack body holding every graph's plan and fingerprint.
// Load verifies the header, rebuilds each graph through graph.FromPlan and
// rejects a graph whose rebuilt fingerprint differs from the recorded one.
package aot

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/cgraph/internal/graph"
)

var (
	ErrCorrupt        = errors.New("corrupt module file")
	ErrVersion        = errors.New("unsupported module version")
	ErrDuplicateGraph = errors.New("graph already exists")
)

// Module is an ordered set of compiled graphs addressed by name.
type Module struct {
	names  []string
	graphs map[string]*graph.Graph
}

func NewModule() *Module {
	return &Module{graphs: make(map[string]*graph.Graph)}
}

// AddGraph registers g under its own name.
func (m *Module) AddGraph(g *graph.Graph) error {
	name := g.Name()
	if name == "" {
		return fmt.Errorf("graph has no name")
	}
	if _, ok := m.graphs[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateGraph, name)
	}
	m.names = append(m.names, name)
	m.graphs[name] = g
	return nil
}

func (m *Module) Graph(name string) (*graph.Graph, bool) {
	g, ok := m.graphs[name]
	return g, ok
}

// Names lists graphs in the order they were added.
func (m *Module) Names() []string {
	return append([]string(nil), m.names...)
}

func (m *Module) Len() int { return len(m.names) }
