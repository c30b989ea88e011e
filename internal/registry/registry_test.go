package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/specialistvlad/cgraph/internal/dtype"
	"github.com/specialistvlad/cgraph/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*kernel.Launch) error { return nil }

func newTestRegistry() *Registry {
	r := New()
	r.RegisterKernel(kernel.New("set_first", noop,
		kernel.ScalarParam("a", dtype.F32),
		kernel.NdarrayParam("res", dtype.F32, 1),
	))
	r.RegisterKernel(kernel.New("clear", noop, kernel.NdarrayParam("res", dtype.F32, 1)))
	return r
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()

	k, ok := r.Kernel("set_first")
	require.True(t, ok)
	assert.Len(t, k.Params, 2)

	_, ok = r.Kernel("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"clear", "set_first"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()

	assert.PanicsWithValue(t, "kernel with name 'clear' already registered", func() {
		r.RegisterKernel(kernel.New("clear", noop))
	})
}

func TestRegistry_Validate(t *testing.T) {
	t.Parallel()

	scalarA := &config.ArgDef{Name: "a", Kind: "scalar", DType: "f32"}
	res := &config.ArgDef{Name: "res", Kind: "ndarray", DType: "f32"}

	testCases := []struct {
		name     string
		model    *config.Model
		wantErrs []string
	}{
		{
			name: "valid",
			model: &config.Model{
				Args:        []*config.ArgDef{scalarA, res},
				Sequentials: []*config.SequentialDef{{Name: "s", Steps: []config.Step{{Dispatch: &config.DispatchDef{Kernel: "clear", Args: []string{"res"}}}}}},
				Graphs: []*config.GraphDef{{Name: "g", Steps: []config.Step{
					{Dispatch: &config.DispatchDef{Kernel: "set_first", Args: []string{"a", "res"}}},
					{Append: &config.AppendDef{Sequential: "s", Count: 2}},
				}}},
			},
		},
		{
			name: "every problem is reported",
			model: &config.Model{
				Args: []*config.ArgDef{scalarA, res, {Name: "bad", Kind: "tensor", DType: "f32"}},
				Graphs: []*config.GraphDef{{Name: "g", Steps: []config.Step{
					{Dispatch: &config.DispatchDef{Kernel: "nope", Args: []string{"a"}}},
					{Dispatch: &config.DispatchDef{Kernel: "set_first", Args: []string{"a"}}},
					{Dispatch: &config.DispatchDef{Kernel: "clear", Args: []string{"ghost"}}},
					{Append: &config.AppendDef{Sequential: "missing", Count: 1}},
				}}},
			},
			wantErrs: []string{
				"registry validation failed:",
				`arg "bad"`,
				"graph 'g', step 0: unknown kernel 'nope'",
				"graph 'g', step 1: kernel 'set_first' takes 2 arguments, dispatch passes 1",
				"graph 'g', step 2: argument 'ghost' is not declared",
				"graph 'g', step 3: unknown sequential 'missing'",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			r := newTestRegistry()

			// --- Act ---
			err := r.Validate(context.Background(), tc.model)

			// --- Assert ---
			if len(tc.wantErrs) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tc.wantErrs {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
