package app

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/cgraph/internal/aot"
	"github.com/specialistvlad/cgraph/internal/builder"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/graph"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"golang.org/x/sync/errgroup"
)

// compileAll builds every graph of the model concurrently, one builder per
// graph, sharing one kernel cache. The module keeps declaration order.
func (a *App) compileAll(ctx context.Context, cache *kernel.Cache) (*aot.Module, error) {
	defs := a.model.Graphs
	graphs := make([]*graph.Graph, len(defs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.cfg.Workers)
	for i, def := range defs {
		eg.Go(func() error {
			gctx := ctxlog.With(egCtx, "graph", def.Name)
			g, err := builder.Build(gctx, a.model, a.registry, def.Name, a.compiler, graph.WithCache(cache))
			if err != nil {
				return fmt.Errorf("failed to build graph %q: %w", def.Name, err)
			}
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	m := aot.NewModule()
	for _, g := range graphs {
		if err := m.AddGraph(g); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (a *App) loadModule(ctx context.Context, path string, cache *kernel.Cache) (*aot.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AOT module: %w", err)
	}
	defer f.Close()

	m, err := aot.Load(ctx, f, a.registry, a.compiler, graph.WithCache(cache))
	if err != nil {
		return nil, fmt.Errorf("failed to load AOT module %s: %w", path, err)
	}
	return m, nil
}

func (a *App) saveModule(ctx context.Context, path string, m *aot.Module) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create AOT module: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := aot.Save(ctx, f, m); err != nil {
		return fmt.Errorf("failed to save AOT module %s: %w", path, err)
	}
	return nil
}
