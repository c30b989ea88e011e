package hcl

import (
	"context"
	"testing"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func num(f float64) cty.Value { return cty.NumberFloatVal(f) }

func tuple(vals ...cty.Value) cty.Value { return cty.TupleVal(vals) }

func TestConverter_ToValue(t *testing.T) {
	t.Parallel()
	fill := 1.5

	testCases := []struct {
		name  string
		def   config.BindingDef
		check func(t *testing.T, v storage.Value)
	}{
		{
			name: "float scalar",
			def:  config.BindingDef{Name: "a", Kind: "scalar", DType: "f64", Value: num(122.33)},
			check: func(t *testing.T, v storage.Value) {
				s := v.(*storage.Scalar)
				assert.Equal(t, dtype.F64, s.DType())
				assert.Equal(t, 122.33, s.Float64())
			},
		},
		{
			name: "int scalar from string",
			def:  config.BindingDef{Name: "n", Kind: "scalar", DType: "i32", Value: cty.StringVal("42")},
			check: func(t *testing.T, v storage.Value) {
				assert.Equal(t, int64(42), v.(*storage.Scalar).Int64())
			},
		},
		{
			name: "filled ndarray",
			def:  config.BindingDef{Name: "res", Kind: "ndarray", DType: "f32", Shape: []int{3}, Fill: &fill, Value: cty.NilVal},
			check: func(t *testing.T, v storage.Value) {
				a := v.(*storage.Ndarray)
				assert.Equal(t, []int{3}, a.Shape())
				assert.Equal(t, []float64{1.5, 1.5, 1.5}, a.Float64s())
			},
		},
		{
			name: "nested ndarray value",
			def: config.BindingDef{
				Name: "x", Kind: "ndarray", DType: "f64", Shape: []int{2}, ElementShape: []int{2},
				Value: tuple(tuple(num(1), num(2)), tuple(num(3), num(4))),
			},
			check: func(t *testing.T, v storage.Value) {
				a := v.(*storage.Ndarray)
				assert.Equal(t, []int{2}, a.ElementShape())
				assert.Equal(t, 3.0, a.At(1, 0))
			},
		},
		{
			name: "flat ndarray value",
			def: config.BindingDef{
				Name: "x", Kind: "ndarray", DType: "f64", Shape: []int{2, 2},
				Value: tuple(num(1), num(2), num(3), num(4)),
			},
			check: func(t *testing.T, v storage.Value) {
				assert.Equal(t, 4.0, v.(*storage.Ndarray).At(1, 1))
			},
		},
		{
			name: "vector",
			def:  config.BindingDef{Name: "v", Kind: "vector", DType: "f32", Value: tuple(num(1), num(2), num(3))},
			check: func(t *testing.T, v storage.Value) {
				assert.Equal(t, arg.Vector, v.Kind())
				assert.Equal(t, []int{3}, v.(*storage.Small).ElementShape())
			},
		},
		{
			name: "matrix",
			def:  config.BindingDef{Name: "m", Kind: "matrix", DType: "f32", Value: tuple(tuple(num(1), num(0)), tuple(num(0), num(1)))},
			check: func(t *testing.T, v storage.Value) {
				assert.Equal(t, arg.Matrix, v.Kind())
				assert.Equal(t, 1.0, v.(*storage.Small).At(1, 1))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewConverter().ToValue(context.Background(), &tc.def)

			require.NoError(t, err)
			tc.check(t, v)
		})
	}
}

func TestConverter_ToValueErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		def     config.BindingDef
		wantErr string
	}{
		{"unknown dtype", config.BindingDef{Name: "a", Kind: "scalar", DType: "f16x", Value: num(1)}, "f16x"},
		{"scalar without value", config.BindingDef{Name: "a", Kind: "scalar", DType: "f32", Value: cty.NilVal}, "requires a value"},
		{"non-numeric scalar", config.BindingDef{Name: "a", Kind: "scalar", DType: "f32", Value: cty.StringVal("x")}, "cannot convert"},
		{"ndarray without shape", config.BindingDef{Name: "x", Kind: "ndarray", DType: "f32", Value: cty.NilVal}, "shape is required"},
		{"ndarray too large", config.BindingDef{Name: "x", Kind: "ndarray", DType: "f32", Shape: []int{1 << 32, 1 << 32}, Value: cty.NilVal}, "storage too large"},
		{
			"ndarray value of wrong shape",
			config.BindingDef{Name: "x", Kind: "ndarray", DType: "f32", Shape: []int{3}, Value: tuple(num(1), num(2))},
			"value has shape [2]",
		},
		{"ragged matrix", config.BindingDef{Name: "m", Kind: "matrix", DType: "f32", Value: tuple(tuple(num(1)), tuple(num(1), num(2)))}, "ragged"},
		{"vector given a matrix", config.BindingDef{Name: "v", Kind: "vector", DType: "f32", Value: tuple(tuple(num(1)))}, "is not a vector"},
		{
			"vector of wrong element shape",
			config.BindingDef{Name: "v", Kind: "vector", DType: "f32", ElementShape: []int{3}, Value: tuple(num(1), num(2))},
			"does not match element_shape",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConverter().ToValue(context.Background(), &tc.def)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConverter_FromValue(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	conv := NewConverter()
	arr := storage.MustNdarray(dtype.F32, []int{2}, 2)
	require.NoError(t, arr.CopyFrom([]float64{1, 2.5, 3, 4}))
	empty := storage.MustNdarray(dtype.F32, []int{0})

	testCases := []struct {
		name string
		v    storage.Value
		want string
	}{
		{"float scalar", storage.NewScalar(dtype.F64, 0.5), `0.5`},
		{"int scalar", storage.NewIntScalar(dtype.I64, -3), `-3`},
		{"vector ndarray", arr, `[[1,2.5],[3,4]]`},
		{"empty ndarray", empty, `[]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			out, err := conv.FromValue(tc.v)

			// --- Assert ---
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(out))
		})
	}
}
