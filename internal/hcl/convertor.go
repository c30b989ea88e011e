package hcl

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/ctxlog"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/storage"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToValue allocates the storage described by def and loads its value.
// Nested lists are read in row-major order and must match the declared
// shape exactly.
func (c *Converter) ToValue(ctx context.Context, def *config.BindingDef) (storage.Value, error) {
	logger := ctxlog.FromContext(ctx)

	dt, err := dtype.Parse(def.DType)
	if err != nil {
		return nil, fmt.Errorf("%s: %s %q: %w", def.Source, def.Kind, def.Name, err)
	}
	hasValue := !def.Value.IsNull()

	var v storage.Value
	switch def.Kind {
	case "scalar":
		if !hasValue {
			return nil, fmt.Errorf("%s: scalar %q requires a value", def.Source, def.Name)
		}
		v, err = c.scalar(dt, def.Value)
	case "ndarray":
		v, err = c.ndarray(dt, def)
	case "vector", "matrix":
		if !hasValue {
			return nil, fmt.Errorf("%s: %s %q requires a value", def.Source, def.Kind, def.Name)
		}
		v, err = c.small(dt, def)
	default:
		err = fmt.Errorf("unknown binding kind %q", def.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s %q: %w", def.Source, def.Kind, def.Name, err)
	}

	logger.Debug("Bound value.", "name", def.Name, "kind", def.Kind, "dtype", dt.String())
	return v, nil
}

func (c *Converter) scalar(dt dtype.DType, val cty.Value) (*storage.Scalar, error) {
	num, err := convert.Convert(val, dt.CtyType())
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to a number: %w", val.Type().FriendlyName(), err)
	}
	if dt.IsFloat() {
		var f float64
		if err := gocty.FromCtyValue(num, &f); err != nil {
			return nil, err
		}
		return storage.NewScalar(dt, f), nil
	}
	var i int64
	if err := gocty.FromCtyValue(num, &i); err != nil {
		return nil, err
	}
	return storage.NewIntScalar(dt, i), nil
}

func (c *Converter) ndarray(dt dtype.DType, def *config.BindingDef) (*storage.Ndarray, error) {
	if def.Shape == nil {
		return nil, fmt.Errorf("shape is required")
	}
	arr, err := storage.NewNdarray(dt, def.Shape, def.ElementShape...)
	if err != nil {
		return nil, err
	}
	if def.Fill != nil {
		arr.Fill(*def.Fill)
	}
	if !def.Value.IsNull() {
		want := append(arr.Shape(), arr.ElementShape()...)
		if err := load(arr, def.Value, want, arr.Len()); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

func (c *Converter) small(dt dtype.DType, def *config.BindingDef) (*storage.Small, error) {
	vals, dims, err := flatten(def.Value)
	if err != nil {
		return nil, err
	}

	var s *storage.Small
	switch {
	case def.Kind == "vector" && len(dims) == 1:
		s, err = storage.NewVector(dt, dims[0])
	case def.Kind == "matrix" && len(dims) == 2:
		s, err = storage.NewMatrix(dt, dims[0], dims[1])
	default:
		return nil, fmt.Errorf("value of shape %v is not a %s", dims, def.Kind)
	}
	if err != nil {
		return nil, err
	}
	if def.ElementShape != nil && !slices.Equal(def.ElementShape, dims) {
		return nil, fmt.Errorf("value of shape %v does not match element_shape %v", dims, def.ElementShape)
	}
	return s, s.CopyFrom(vals)
}

type loadable interface {
	CopyFrom([]float64) error
}

// load accepts either a nested value of exactly the wanted shape or a flat
// list of n elements.
func load(dst loadable, val cty.Value, want []int, n int) error {
	vals, dims, err := flatten(val)
	if err != nil {
		return err
	}
	flat := len(dims) == 1 && dims[0] == n
	if !flat && !slices.Equal(dims, want) {
		return fmt.Errorf("value has shape %v, storage has shape %v", dims, want)
	}
	return dst.CopyFrom(vals)
}

// flatten reads a number or a (possibly nested) list of numbers in
// row-major order and reports its shape. Ragged nesting is rejected.
func flatten(val cty.Value) ([]float64, []int, error) {
	ty := val.Type()
	if ty.IsPrimitiveType() {
		num, err := convert.Convert(val, cty.Number)
		if err != nil {
			return nil, nil, err
		}
		var f float64
		if err := gocty.FromCtyValue(num, &f); err != nil {
			return nil, nil, err
		}
		return []float64{f}, nil, nil
	}
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, nil, fmt.Errorf("expected a number or a list, got %s", ty.FriendlyName())
	}

	var (
		out   []float64
		inner []int
	)
	for i, it := 0, val.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		vals, dims, err := flatten(ev)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			inner = dims
		} else if !slices.Equal(inner, dims) {
			return nil, nil, fmt.Errorf("ragged value: element %d has shape %v, element 0 has %v", i, dims, inner)
		}
		out = append(out, vals...)
	}
	return out, append([]int{val.LengthInt()}, inner...), nil
}

// FromValue renders a storage value as JSON: a number for scalars and
// nested arrays for everything else.
func (c *Converter) FromValue(v storage.Value) ([]byte, error) {
	val, err := c.ToCtyValue(v)
	if err != nil {
		return nil, err
	}
	return ctyjson.Marshal(val, val.Type())
}

// ToCtyValue converts storage contents into a cty value.
func (c *Converter) ToCtyValue(v storage.Value) (cty.Value, error) {
	isFloat := v.DType().IsFloat()
	switch s := v.(type) {
	case *storage.Scalar:
		if isFloat {
			return cty.NumberFloatVal(s.Float64()), nil
		}
		return cty.NumberIntVal(s.Int64()), nil
	case *storage.Ndarray:
		return nest(s.Float64s(), append(s.Shape(), s.ElementShape()...), isFloat), nil
	case *storage.Small:
		return nest(s.Float64s(), s.ElementShape(), isFloat), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported storage type %T", v)
}

func nest(vals []float64, dims []int, isFloat bool) cty.Value {
	if len(dims) == 0 {
		if isFloat {
			return cty.NumberFloatVal(vals[0])
		}
		return cty.NumberIntVal(int64(vals[0]))
	}
	n := dims[0]
	if n == 0 {
		return cty.EmptyTupleVal
	}
	stride := len(vals) / n
	elems := make([]cty.Value, n)
	for i := range elems {
		elems[i] = nest(vals[i*stride:(i+1)*stride], dims[1:], isFloat)
	}
	return cty.TupleVal(elems)
}
