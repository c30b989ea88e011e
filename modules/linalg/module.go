// Package linalg provides kernels over ndarrays of small vectors.
package linalg

import (
	"fmt"
	"math"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/specialistvlad/cgraph/internal/registry"
	"github.com/specialistvlad/cgraph/internal/storage"
	"github.com/specialistvlad/cgraph/modules/basic"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kernels with the engine.
func (m *Module) Register(r *registry.Registry) {
	for _, dt := range []dtype.DType{dtype.F32, dtype.F64} {
		r.RegisterKernel(AddVector(dt))
		r.RegisterKernel(MatVec(dt))
		r.RegisterKernel(Norm(dt))
	}
}

// By-value parameters whose size is taken from the bound descriptor.
func vectorParam(name string, dt dtype.DType) kernel.Param {
	return kernel.Param{Name: name, Kind: arg.Vector, DType: dt, FieldDim: -1}
}

func matrixParam(name string, dt dtype.DType) kernel.Param {
	return kernel.Param{Name: name, Kind: arg.Matrix, DType: dt, FieldDim: -1}
}

// AddVector adds g to every vector element of v.
func AddVector(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        basic.Name("add_vector", dt),
		Description: "v[i] += g",
		Params: []kernel.Param{
			kernel.NdarrayParam("v", dt, -1),
			vectorParam("g", dt),
		},
		Body: func(l *kernel.Launch) error {
			v, g := l.Ndarray(0), l.Small(1)
			n, err := vectorElements(v)
			if err != nil {
				return err
			}
			if g.Len() != n {
				return fmt.Errorf("vector of %d components added to elements of %d", g.Len(), n)
			}
			for i := range v.Len() {
				v.SetFlat(i, v.AtFlat(i)+g.AtFlat(i%n))
			}
			return nil
		},
	}
}

// MatVec replaces every vector element of v with m times it.
func MatVec(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        basic.Name("mat_vec", dt),
		Description: "v[i] = m @ v[i]",
		Params: []kernel.Param{
			matrixParam("m", dt),
			kernel.NdarrayParam("v", dt, -1),
		},
		Body: func(l *kernel.Launch) error {
			m, v := l.Small(0), l.Ndarray(1)
			n, err := vectorElements(v)
			if err != nil {
				return err
			}
			shape := m.ElementShape()
			if shape[0] != n || shape[1] != n {
				return fmt.Errorf("matrix %dx%d applied to elements of %d", shape[0], shape[1], n)
			}
			tmp := make([]float64, n)
			for base := 0; base < v.Len(); base += n {
				for r := range n {
					var sum float64
					for c := range n {
						sum += m.At(r, c) * v.AtFlat(base+c)
					}
					tmp[r] = sum
				}
				for r, x := range tmp {
					v.SetFlat(base+r, x)
				}
			}
			return nil
		},
	}
}

// Norm writes the euclidean norm of every vector element of v into out.
func Norm(dt dtype.DType) *kernel.Kernel {
	return &kernel.Kernel{
		Name:        basic.Name("norm", dt),
		Description: "out[i] = |v[i]|",
		Params: []kernel.Param{
			kernel.NdarrayParam("v", dt, -1),
			kernel.NdarrayParam("out", dt, 1).WithElement(),
		},
		Body: func(l *kernel.Launch) error {
			v, out := l.Ndarray(0), l.Ndarray(1)
			n, err := vectorElements(v)
			if err != nil {
				return err
			}
			if count := v.Len() / max(n, 1); out.Len() != count {
				return fmt.Errorf("out has %d elements, v has %d vectors", out.Len(), count)
			}
			for i := range out.Len() {
				var sum float64
				for c := range n {
					x := v.AtFlat(i*n + c)
					sum += x * x
				}
				out.SetFlat(i, math.Sqrt(sum))
			}
			return nil
		},
	}
}

func vectorElements(v *storage.Ndarray) (int, error) {
	es := v.ElementShape()
	if len(es) != 1 {
		return 0, fmt.Errorf("v must have vector elements, has element shape %v", es)
	}
	return es[0], nil
}
