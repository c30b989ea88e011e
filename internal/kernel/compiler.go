package kernel

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/storage"
)

// Compiler turns a kernel and a resolved signature into a launchable handle.
// Placeholders carry one representative value per slot.
type Compiler interface {
	Compile(ctx context.Context, k *Kernel, sig Signature, placeholders []storage.Value) (Compiled, error)
}

// Compiled is a kernel specialized for one signature. Invoke receives one
// value per slot, in slot order, and must not retain the slice.
type Compiled interface {
	Kernel() *Kernel
	Invoke(ctx context.Context, args []storage.Value) error
}

// HostCompiler runs Go kernel bodies in the calling goroutine.
type HostCompiler struct{}

// Compile checks that the kernel has a body and that the placeholders match
// the signature; nothing else is precomputed on the host.
func (HostCompiler) Compile(ctx context.Context, k *Kernel, sig Signature, placeholders []storage.Value) (Compiled, error) {
	if k.Body == nil {
		return nil, fmt.Errorf("kernel %s has no body", k.Name)
	}
	if len(placeholders) != len(sig) {
		return nil, fmt.Errorf("kernel %s: %d placeholders for %d slots", k.Name, len(placeholders), len(sig))
	}
	for i, slot := range sig {
		if err := slot.Conforms(placeholders[i]); err != nil {
			return nil, fmt.Errorf("kernel %s: placeholder: %w", k.Name, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Compiled host kernel.", "kernel", k.Name, "signature", sig.Key())
	return &hostKernel{kernel: k}, nil
}

type hostKernel struct {
	kernel *Kernel
}

func (h *hostKernel) Kernel() *Kernel { return h.kernel }

func (h *hostKernel) Invoke(ctx context.Context, args []storage.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel %s panicked: %v", h.kernel.Name, r)
		}
	}()
	l := Launch{args: args}
	return h.kernel.Body(&l)
}

// Launch is the view a kernel body has of its bound arguments.
// Arguments are positional; a cached handle serves every dispatch with the
// same signature key, so the launch carries no argument names.
type Launch struct {
	args []storage.Value
}

// NewLaunch builds a launch over explicit arguments, for backends and tests
// that call a Body directly.
func NewLaunch(args []storage.Value) *Launch {
	return &Launch{args: args}
}

// Scalar returns argument i as a scalar; it panics on a kind mismatch,
// which Invoke reports as an execution error.
func (l *Launch) Scalar(i int) *storage.Scalar { return l.args[i].(*storage.Scalar) }

// Ndarray returns argument i as an ndarray.
func (l *Launch) Ndarray(i int) *storage.Ndarray { return l.args[i].(*storage.Ndarray) }

// Small returns argument i as a by-value vector or matrix.
func (l *Launch) Small(i int) *storage.Small { return l.args[i].(*storage.Small) }
