package kernel

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/storage"
)

// ErrSignatureMismatch is returned when descriptors cannot bind to a
// kernel's declared parameters.
var ErrSignatureMismatch = errors.New("kernel signature mismatch")

// maxElementDim bounds ndarray element rank: scalars, vectors or matrices.
const maxElementDim = 2

// Resolve binds descriptors positionally to the kernel's parameters and
// produces the concrete signature the kernel is compiled against.
func Resolve(k *Kernel, descs []arg.Descriptor) (Signature, error) {
	if len(descs) != len(k.Params) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSignatureMismatch, k.Name, len(k.Params), len(descs))
	}

	sig := make(Signature, len(descs))
	for i, d := range descs {
		p := k.Params[i]
		if err := d.Compatible(p.structural()); err != nil {
			return nil, fmt.Errorf("%w: %s parameter %d (%s): %v", ErrSignatureMismatch, k.Name, i, p.Name, err)
		}
		slot, err := resolveSlot(d, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s parameter %d (%s): %v", ErrSignatureMismatch, k.Name, i, p.Name, err)
		}
		sig[i] = slot
	}
	return sig, nil
}

func resolveSlot(d arg.Descriptor, p Param) (Slot, error) {
	slot := Slot{Name: d.Name(), Kind: d.Kind(), DType: d.DType()}

	switch d.Kind() {
	case arg.Scalar:
		slot.ElementShape = []int{}
	case arg.Vector, arg.Matrix:
		slot.ElementShape, _ = d.ElementShape()
	case arg.Ndarray:
		fd, ok := d.FieldDim()
		switch {
		case ok:
			slot.FieldDim = fd
		case p.FieldDim >= 0:
			slot.FieldDim = p.FieldDim
		default:
			return Slot{}, fmt.Errorf("argument %q declares no field_dim and the parameter does not fix one", d.Name())
		}

		es, ok := d.ElementShape()
		switch {
		case ok:
			slot.ElementShape = es
		case p.ElementShape != nil:
			slot.ElementShape = slices.Clone(p.ElementShape)
		default:
			slot.ElementShape = []int{}
		}
		if err := arg.CheckFieldDim(slot.FieldDim); err != nil {
			return Slot{}, fmt.Errorf("argument %q: %v", d.Name(), err)
		}
		if err := arg.CheckElementShape(slot.ElementShape); err != nil {
			return Slot{}, fmt.Errorf("argument %q: %v", d.Name(), err)
		}
		if len(slot.ElementShape) > maxElementDim {
			return Slot{}, fmt.Errorf("argument %q has element rank %d, at most %d is supported", d.Name(), len(slot.ElementShape), maxElementDim)
		}
	}
	return slot, nil
}

// placeholderExtent is the per-axis field extent of an injected ndarray.
const placeholderExtent = 2

// Placeholders allocates a representative value per slot so a backend can
// specialize a kernel before any real storage is bound: zero scalars,
// zeroed by-value vectors and matrices, and ndarrays of extent 2 along every
// field axis.
func Placeholders(sig Signature) ([]storage.Value, error) {
	out := make([]storage.Value, len(sig))
	for i, s := range sig {
		var (
			v   storage.Value
			err error
		)
		switch s.Kind {
		case arg.Scalar:
			v = storage.NewScalar(s.DType, 0)
		case arg.Ndarray:
			shape := make([]int, s.FieldDim)
			for j := range shape {
				shape[j] = placeholderExtent
			}
			v, err = storage.NewNdarray(s.DType, shape, s.ElementShape...)
		case arg.Vector:
			v, err = storage.NewVector(s.DType, s.ElementShape[0])
		case arg.Matrix:
			v, err = storage.NewMatrix(s.DType, s.ElementShape[0], s.ElementShape[1])
		default:
			err = fmt.Errorf("unknown kind %s", s.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("placeholder for %q: %w", s.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// Conforms reports whether a concrete value can stand in for a slot.
func (s Slot) Conforms(v storage.Value) error {
	if v == nil {
		return fmt.Errorf("argument %q is bound to nil", s.Name)
	}
	if v.Kind() != s.Kind {
		return fmt.Errorf("argument %q expects a %s, got a %s", s.Name, s.Kind, v.Kind())
	}
	if v.DType() != s.DType {
		return fmt.Errorf("argument %q expects dtype %s, got %s", s.Name, s.DType, v.DType())
	}
	if s.Kind == arg.Scalar {
		return nil
	}
	sh, ok := v.(storage.Shaped)
	if !ok {
		return fmt.Errorf("argument %q: %T does not report a shape", s.Name, v)
	}
	if s.Kind == arg.Ndarray && sh.FieldDim() != s.FieldDim {
		return fmt.Errorf("argument %q is compiled for field_dim=%d but received a rank-%d array", s.Name, s.FieldDim, sh.FieldDim())
	}
	if es := sh.ElementShape(); !slices.Equal(es, s.ElementShape) {
		return fmt.Errorf("argument %q expects element shape %v, got %v", s.Name, s.ElementShape, es)
	}
	return nil
}
