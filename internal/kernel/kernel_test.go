package kernel

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/cgraph/internal/arg"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFirst() *Kernel {
	return New("set_first", func(l *Launch) error {
		l.Ndarray(1).SetFlat(0, l.Scalar(0).Float64())
		return nil
	},
		ScalarParam("a", dtype.F32),
		NdarrayParam("res", dtype.F32, 1),
	)
}

func TestResolve_Binds(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	k := setFirst()
	descs := []arg.Descriptor{
		arg.MustNew(arg.Scalar, "a", dtype.F32),
		arg.MustNew(arg.Ndarray, "res", dtype.F32),
	}

	// --- Act ---
	sig, err := Resolve(k, descs)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, sig, 2)
	assert.Equal(t, "a", sig[0].Name)
	assert.Equal(t, 1, sig[1].FieldDim, "field_dim falls back to the parameter annotation")
	assert.Empty(t, sig[1].ElementShape)
	assert.Equal(t, "scalar:f32|ndarray:f32:1:[]", sig.Key())
}

func TestResolve_Mismatch(t *testing.T) {
	t.Parallel()

	k := setFirst()
	openRank := New("open", func(*Launch) error { return nil }, NdarrayParam("x", dtype.F32, -1))
	deepRank := New("deep", func(*Launch) error { return nil }, NdarrayParam("x", dtype.F32, 36))

	cases := []struct {
		name  string
		k     *Kernel
		descs []arg.Descriptor
		msg   string
	}{
		{"too few", k, []arg.Descriptor{arg.MustNew(arg.Scalar, "a", dtype.F32)}, "takes 2 arguments, got 1"},
		{"wrong kind", k, []arg.Descriptor{
			arg.MustNew(arg.Ndarray, "a", dtype.F32),
			arg.MustNew(arg.Ndarray, "res", dtype.F32),
		}, "parameter expects a scalar"},
		{"wrong dtype", k, []arg.Descriptor{
			arg.MustNew(arg.Scalar, "a", dtype.F64),
			arg.MustNew(arg.Ndarray, "res", dtype.F32),
		}, "dtype f64"},
		{"wrong field_dim", k, []arg.Descriptor{
			arg.MustNew(arg.Scalar, "a", dtype.F32),
			arg.MustNew(arg.Ndarray, "res", dtype.F32, arg.WithFieldDim(3)),
		}, "field_dim=3"},
		{"unresolved rank", openRank, []arg.Descriptor{
			arg.MustNew(arg.Ndarray, "x", dtype.F32),
		}, "declares no field_dim"},
		{"element rank too high", openRank, []arg.Descriptor{
			arg.MustNew(arg.Ndarray, "x", dtype.F32, arg.WithFieldDim(1), arg.WithElementShape(2, 2, 2)),
		}, "element rank 3"},
		{"annotated field_dim above limit", deepRank, []arg.Descriptor{
			arg.MustNew(arg.Ndarray, "x", dtype.F32),
		}, "field_dim 36 is outside [0, 8]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(tc.k, tc.descs)
			require.ErrorIs(t, err, ErrSignatureMismatch)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	sig := Signature{
		{Name: "s", Kind: arg.Scalar, DType: dtype.I32},
		{Name: "a", Kind: arg.Ndarray, DType: dtype.F32, FieldDim: 3, ElementShape: []int{2}},
		{Name: "v", Kind: arg.Vector, DType: dtype.F64, ElementShape: []int{3}},
		{Name: "m", Kind: arg.Matrix, DType: dtype.F64, ElementShape: []int{2, 2}},
	}

	vals, err := Placeholders(sig)
	require.NoError(t, err)
	require.Len(t, vals, 4)

	assert.Equal(t, int64(0), vals[0].(*storage.Scalar).Int64())
	nd := vals[1].(*storage.Ndarray)
	assert.Equal(t, []int{2, 2, 2}, nd.Shape())
	assert.Equal(t, []int{2}, nd.ElementShape())
	assert.Equal(t, []int{3}, vals[2].(*storage.Small).ElementShape())
	assert.Equal(t, arg.Matrix, vals[3].Kind())

	for i, slot := range sig {
		require.NoError(t, slot.Conforms(vals[i]))
	}
}

func TestSlotConforms(t *testing.T) {
	t.Parallel()

	slot := Slot{Name: "res", Kind: arg.Ndarray, DType: dtype.F32, FieldDim: 1, ElementShape: []int{}}

	require.NoError(t, slot.Conforms(storage.MustNdarray(dtype.F32, []int{16})))
	assert.ErrorContains(t, slot.Conforms(nil), "bound to nil")
	assert.ErrorContains(t, slot.Conforms(storage.NewScalar(dtype.F32, 1)), "expects a ndarray")
	assert.ErrorContains(t, slot.Conforms(storage.MustNdarray(dtype.F64, []int{16})), "expects dtype f32")
	assert.ErrorContains(t, slot.Conforms(storage.MustNdarray(dtype.F32, []int{4, 4})), "field_dim=1")
	assert.ErrorContains(t, slot.Conforms(storage.MustNdarray(dtype.F32, []int{4}, 2)), "element shape")
}

func TestHostCompiler_InvokeRecoversPanics(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	boom := New("boom", func(l *Launch) error {
		_ = l.Ndarray(0).At(99)
		return nil
	}, NdarrayParam("x", dtype.F32, 1))
	sig, err := Resolve(boom, []arg.Descriptor{arg.MustNew(arg.Ndarray, "x", dtype.F32)})
	require.NoError(t, err)
	ph, err := Placeholders(sig)
	require.NoError(t, err)
	compiled, err := HostCompiler{}.Compile(context.Background(), boom, sig, ph)
	require.NoError(t, err)

	// --- Act ---
	err = compiled.Invoke(context.Background(), []storage.Value{storage.MustNdarray(dtype.F32, []int{1})})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel boom panicked")
}

func TestHostCompiler_RejectsMissingBody(t *testing.T) {
	t.Parallel()

	k := &Kernel{Name: "empty"}
	_, err := HostCompiler{}.Compile(context.Background(), k, nil, nil)
	assert.ErrorContains(t, err, "has no body")
}

type countingCompiler struct {
	calls int
	fail  error
}

func (c *countingCompiler) Compile(ctx context.Context, k *Kernel, sig Signature, ph []storage.Value) (Compiled, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	return HostCompiler{}.Compile(ctx, k, sig, ph)
}

func TestCache_CompilesOncePerSignature(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	compiler := &countingCompiler{}
	cache := NewCache(compiler)
	k := setFirst()
	ctx := context.Background()

	sigA, err := Resolve(k, []arg.Descriptor{
		arg.MustNew(arg.Scalar, "a", dtype.F32),
		arg.MustNew(arg.Ndarray, "res", dtype.F32),
	})
	require.NoError(t, err)
	sigB, err := Resolve(k, []arg.Descriptor{
		arg.MustNew(arg.Scalar, "b", dtype.F32),
		arg.MustNew(arg.Ndarray, "out", dtype.F32, arg.WithFieldDim(1)),
	})
	require.NoError(t, err)

	// --- Act ---
	first, err := cache.Get(ctx, k, sigA)
	require.NoError(t, err)
	second, err := cache.Get(ctx, k, sigB)
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, second, "structurally equal signatures share one compiled kernel")
	assert.Equal(t, 1, compiler.calls)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, cache.Stats())
}

func TestCache_DoesNotMemoizeFailures(t *testing.T) {
	t.Parallel()

	compiler := &countingCompiler{fail: errors.New("backend down")}
	cache := NewCache(compiler)
	k := setFirst()
	sig, err := Resolve(k, []arg.Descriptor{
		arg.MustNew(arg.Scalar, "a", dtype.F32),
		arg.MustNew(arg.Ndarray, "res", dtype.F32),
	})
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), k, sig)
	require.Error(t, err)
	_, err = cache.Get(context.Background(), k, sig)
	require.Error(t, err)

	assert.Equal(t, 2, compiler.calls)
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestKernelString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "set_first(a: scalar[f32], res: ndarray[f32,field_dim=1])", setFirst().String())
	assert.Equal(t, "m: matrix[f64,element_shape=[2 3]]", MatrixParam("m", dtype.F64, 2, 3).String())
}
