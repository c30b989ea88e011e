// Package basic provides elementwise ndarray kernels.
//
// Every kernel is registered for f32 under its plain name and for f64 with an
// "_f64" suffix, e.g. "scale" and "scale_f64".
package basic

import (
	"fmt"

	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/registry"
	"github.com/specialistvlad/cgraph/internal/storage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kernels with the engine.
func (m *Module) Register(r *registry.Registry) {
	for _, dt := range []dtype.DType{dtype.F32, dtype.F64} {
		r.RegisterKernel(SetFirst(dt))
		r.RegisterKernel(Fill(dt))
		r.RegisterKernel(Scale(dt))
		r.RegisterKernel(Axpy(dt))
		r.RegisterKernel(Copy(dt))
		r.RegisterKernel(Increment(dt))
	}
	r.RegisterKernel(FillOnes())
}

// Name returns the registered name of base for dt.
func Name(base string, dt dtype.DType) string {
	if dt == dtype.F32 {
		return base
	}
	return base + "_" + dt.String()
}

// SetFirst writes a into the first element of res.
func SetFirst(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("set_first", dt),
		Description: "res[0] = a",
		Params: []kernel.Param{
			kernel.ScalarParam("a", dt),
			kernel.NdarrayParam("res", dt, 1),
		},
		Body: func(l *kernel.Launch) error {
			a, res := l.Scalar(0).Float64(), l.Ndarray(1)
			n := elementSize(res)
			if n == 0 || res.Len() < n {
				return fmt.Errorf("res is empty")
			}
			for i := range n {
				res.SetFlat(i, a)
			}
			return nil
		},
	}
}

// Fill sets every element of arr to value.
func Fill(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("fill", dt),
		Description: "arr[...] = value",
		Params: []kernel.Param{
			kernel.NdarrayParam("arr", dt, -1),
			kernel.ScalarParam("value", dt),
		},
		Body: func(l *kernel.Launch) error {
			l.Ndarray(0).Fill(l.Scalar(1).Float64())
			return nil
		},
	}
}

// Scale multiplies every element of arr by factor.
func Scale(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("scale", dt),
		Description: "arr[...] *= factor",
		Params: []kernel.Param{
			kernel.NdarrayParam("arr", dt, -1),
			kernel.ScalarParam("factor", dt),
		},
		Body: func(l *kernel.Launch) error {
			arr, f := l.Ndarray(0), l.Scalar(1).Float64()
			for i := range arr.Len() {
				arr.SetFlat(i, arr.AtFlat(i)*f)
			}
			return nil
		},
	}
}

// Axpy computes y += alpha * x.
func Axpy(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("axpy", dt),
		Description: "y[...] += alpha * x[...]",
		Params: []kernel.Param{
			kernel.ScalarParam("alpha", dt),
			kernel.NdarrayParam("x", dt, -1),
			kernel.NdarrayParam("y", dt, -1),
		},
		Body: func(l *kernel.Launch) error {
			alpha, x, y := l.Scalar(0).Float64(), l.Ndarray(1), l.Ndarray(2)
			if err := sameLen(x, y); err != nil {
				return err
			}
			for i := range y.Len() {
				y.SetFlat(i, y.AtFlat(i)+alpha*x.AtFlat(i))
			}
			return nil
		},
	}
}

// Copy copies src into dst.
func Copy(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("copy", dt),
		Description: "dst[...] = src[...]",
		Params: []kernel.Param{
			kernel.NdarrayParam("src", dt, -1),
			kernel.NdarrayParam("dst", dt, -1),
		},
		Body: func(l *kernel.Launch) error {
			src, dst := l.Ndarray(0), l.Ndarray(1)
			if err := sameLen(src, dst); err != nil {
				return err
			}
			return dst.CopyFrom(src.Float64s())
		},
	}
}

// Increment adds one to every element of arr.
func Increment(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        Name("increment", dt),
		Description: "arr[...] += 1",
		Params:      []kernel.Param{kernel.NdarrayParam("arr", dt, -1)},
		Body: func(l *kernel.Launch) error {
			arr := l.Ndarray(0)
			for i := range arr.Len() {
				arr.SetFlat(i, arr.AtFlat(i)+1)
			}
			return nil
		},
	}
}

// FillOnes sets every element of a one-dimensional i32 array to one.
func FillOnes() *kernel.Kernel {
	return &kernel.Kernel{
		Name:        "fill_ones",
		Description: "pos[...] = 1",
		Params:      []kernel.Param{kernel.NdarrayParam("pos", dtype.I32, 1)},
		Body: func(l *kernel.Launch) error {
			l.Ndarray(0).Fill(1)
			return nil
		},
	}
}

func elementSize(a *storage.Ndarray) int {
	n := 1
	for _, d := range a.ElementShape() {
		n *= d
	}
	return n
}

func sameLen(a, b *storage.Ndarray) error {
	if a.Len() != b.Len() {
		return fmt.Errorf("arrays of %d and %d elements", a.Len(), b.Len())
	}
	return nil
}
