package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/cgraph/internal/aot"
	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/notify"
	"github.com/specialistvlad/cgraph/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	cfg       *Config
	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	compiler  kernel.Compiler
	notifier  notify.Notifier

	httpServer *http.Server

	// module holds the compiled graphs once Run has built or loaded them.
	mu     sync.RWMutex
	module *aot.Module
}

// NewApp is the constructor for the main application. It loads the
// definitions under cfg.GraphPath, registers the kernel modules (the core
// modules when none are given) and validates the definitions against them.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "kernels", reg.Len())

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		model:     model,
		converter: converter,
		compiler:  kernel.HostCompiler{},
		notifier:  notify.Nop{},
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// SetNotifier replaces the notifier that would otherwise be derived from
// Config.NotifyURL.
func (a *App) SetNotifier(n notify.Notifier) {
	a.notifier = n
}

// Module returns the compiled graphs, or nil before Run has compiled them.
func (a *App) Module() *aot.Module {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.module
}

func (a *App) setModule(m *aot.Module) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.module = m
}
