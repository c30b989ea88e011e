package testutil

import (
	"sync/atomic"

	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/registry"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers the given kernels.
type SimpleModule struct {
	Kernels []*kernel.Kernel
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for _, k := range m.Kernels {
		r.RegisterKernel(k)
	}
}

// CountingKernel returns a kernel "name(arr: ndarray[f32])" that adds one to
// every element and counts its invocations.
func CountingKernel(name string, calls *atomic.Int64) *kernel.Kernel {
	return kernel.New(name, func(l *kernel.Launch) error {
		calls.Add(1)
		arr := l.Ndarray(0)
		for i := range arr.Len() {
			arr.SetFlat(i, arr.AtFlat(i)+1)
		}
		return nil
	}, kernel.NdarrayParam("arr", dtype.F32, -1))
}
