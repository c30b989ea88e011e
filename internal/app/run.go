package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/cgraph/internal/aot"
	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/graph"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/notify"
)

// ErrNoGraph is returned when the graph to run cannot be determined.
var ErrNoGraph = errors.New("no graph to run")

// Run compiles (or loads) the graphs, runs the selected one and prints every
// bound ndarray and small array as a JSON line.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(a.cfg.HealthcheckPort); err != nil {
			return err
		}
		defer func() {
			if cerr := a.closeHealthcheckServer(ctx); err == nil {
				err = cerr
			}
		}()
	}

	if a.cfg.NotifyURL != "" {
		if _, isNop := a.notifier.(notify.Nop); isNop {
			n, err := notify.Dial(ctx, a.cfg.NotifyURL, notify.SocketIOOptions{})
			if err != nil {
				return fmt.Errorf("failed to connect notifier: %w", err)
			}
			a.notifier = n
		}
	}
	defer a.notifier.Close()

	m, err := a.compile(ctx)
	if err != nil {
		return err
	}

	g, err := a.selectGraph(m)
	if err != nil {
		return err
	}

	bindings, err := a.bind(ctx, g)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Running graph.", "graph", g.Name(), "iterations", a.cfg.Iterations, "dispatches", g.DispatchCount())
	for i := range a.cfg.Iterations {
		a.notifier.Notify(ctx, notify.Event{Type: notify.RunStarted, Graph: g.Name(), Iteration: i, Dispatches: g.DispatchCount(), Time: time.Now()})
		if err := g.Run(ctx, bindings); err != nil {
			a.notifier.Notify(ctx, notify.Event{Type: notify.RunFailed, Graph: g.Name(), Iteration: i, Err: err, Time: time.Now()})
			return fmt.Errorf("execution failed: %w", err)
		}
		a.notifier.Notify(ctx, notify.Event{Type: notify.RunFinished, Graph: g.Name(), Iteration: i, Dispatches: g.DispatchCount(), Time: time.Now()})
	}
	a.logger.Info("🏁 Execution finished.", "graph", g.Name())

	if err := a.printResults(g, bindings); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// compile produces the module from the AOT file or the definitions, then
// writes the requested artifacts.
func (a *App) compile(ctx context.Context) (*aot.Module, error) {
	cache := kernel.NewCache(a.compiler)

	var (
		m   *aot.Module
		err error
	)
	if a.cfg.AOTIn != "" {
		m, err = a.loadModule(ctx, a.cfg.AOTIn, cache)
	} else {
		m, err = a.compileAll(ctx, cache)
	}
	if err != nil {
		return nil, err
	}
	a.setModule(m)

	stats := cache.Stats()
	a.logger.Debug("Graphs compiled.", "graphs", m.Len(), "kernels_compiled", stats.Misses, "kernels_reused", stats.Hits)
	for _, name := range m.Names() {
		g, _ := m.Graph(name)
		a.notifier.Notify(ctx, notify.Event{Type: notify.GraphCompiled, Graph: name, Dispatches: g.DispatchCount(), Time: time.Now()})
	}

	if a.cfg.AOTOut != "" {
		if err := a.saveModule(ctx, a.cfg.AOTOut, m); err != nil {
			return nil, err
		}
		a.logger.Info("AOT module saved.", "path", a.cfg.AOTOut, "graphs", m.Len())
	}
	if a.cfg.DumpOut != "" {
		if err := aot.DumpDir(a.cfg.DumpOut, m); err != nil {
			return nil, fmt.Errorf("failed to dump graphs: %w", err)
		}
		a.logger.Info("Graph listings written.", "dir", a.cfg.DumpOut)
	}
	return m, nil
}

func (a *App) selectGraph(m *aot.Module) (*graph.Graph, error) {
	name := a.cfg.Graph
	if name == "" {
		switch {
		case m.Len() == 1:
			name = m.Names()[0]
		case slices.Contains(m.Names(), "main"):
			name = "main"
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: choose one of %s", ErrNoGraph, strings.Join(m.Names(), ", "))
	}
	g, ok := m.Graph(name)
	if !ok {
		return nil, fmt.Errorf("%w: graph %q is not defined", ErrNoGraph, name)
	}
	return g, nil
}

// bind allocates storage for every argument of g from the binding blocks.
// Arguments without a binding stay unbound so that the run reports them.
func (a *App) bind(ctx context.Context, g *graph.Graph) (graph.Bindings, error) {
	bindings := make(graph.Bindings)
	for _, def := range a.model.Bindings {
		if !slices.Contains(g.ArgNames(), def.Name) {
			continue
		}
		v, err := a.converter.ToValue(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %q: %w", def.Name, err)
		}
		bindings[def.Name] = v
	}
	return bindings, nil
}

type result struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (a *App) printResults(g *graph.Graph, bindings graph.Bindings) error {
	enc := json.NewEncoder(a.outW)
	for _, name := range g.ArgNames() {
		v, ok := bindings[name]
		if !ok || v.Kind() == arg.Scalar {
			continue
		}
		raw, err := a.converter.FromValue(v)
		if err != nil {
			return fmt.Errorf("failed to render %q: %w", name, err)
		}
		if err := enc.Encode(result{Name: name, Value: raw}); err != nil {
			return err
		}
	}
	return nil
}
