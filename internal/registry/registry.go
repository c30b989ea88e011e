package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/specialistvlad/cgraph/internal/kernel"
)

// Module is the interface that all kernel modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered kernels for a single application
// instance.
type Registry struct {
	kernels map[string]*kernel.Kernel
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{kernels: make(map[string]*kernel.Kernel)}
}

// RegisterKernel adds k under its name. Registering a name twice is a
// programming error and panics.
func (r *Registry) RegisterKernel(k *kernel.Kernel) {
	if _, exists := r.kernels[k.Name]; exists {
		panic(fmt.Sprintf("kernel with name '%s' already registered", k.Name))
	}
	slog.Debug("Registering kernel.", "name", k.Name, "params", len(k.Params))
	r.kernels[k.Name] = k
}

// Kernel returns the kernel registered under name.
func (r *Registry) Kernel(name string) (*kernel.Kernel, bool) {
	k, ok := r.kernels[name]
	return k, ok
}

// Names returns the registered kernel names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.kernels))
}

// Len is the number of registered kernels.
func (r *Registry) Len() int { return len(r.kernels) }
