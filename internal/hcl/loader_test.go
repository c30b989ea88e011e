package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/cgraph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles lays out files under a fresh temporary directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

const setFirstHCL = `
arg "a" {
  kind  = "scalar"
  dtype = "f32"
}

arg "res" {
  kind          = "ndarray"
  dtype         = "f32"
  field_dim     = 1
  element_shape = []
}

sequential "substep" {
  dispatch "scale" {
    args = ["a", "res"]
  }
}

graph "main" {
  description = "set then scale"

  dispatch "set_first" {
    args = ["a", "res"]
  }
  append "substep" {
    count = 3
  }
  dispatch "set_first" {
    args = ["a", "res"]
  }
}
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeFiles(t, map[string]string{
		"graphs/main.hcl": setFirstHCL,
		"data/values.hcl": `
scalar "a" {
  dtype = "f32"
  value = 2
}

ndarray "res" {
  dtype = "f32"
  shape = [4]
}
`,
		"notes.txt": "not a definition file",
	})

	// --- Act ---
	model, conv, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, conv)

	require.Len(t, model.Args, 2)
	res, ok := model.Arg("res")
	require.True(t, ok)
	require.NotNil(t, res.FieldDim)
	assert.Equal(t, 1, *res.FieldDim)
	assert.NotNil(t, res.ElementShape, "an explicit [] must stay distinguishable from absent")
	assert.Empty(t, res.ElementShape)

	a, ok := model.Arg("a")
	require.True(t, ok)
	assert.Nil(t, a.FieldDim)
	assert.Nil(t, a.ElementShape)

	g, ok := model.Graph("main")
	require.True(t, ok)
	assert.Equal(t, "set then scale", g.Description)
	require.Len(t, g.Steps, 3)
	assert.Equal(t, &config.DispatchDef{Kernel: "set_first", Args: []string{"a", "res"}}, g.Steps[0].Dispatch)
	assert.Equal(t, &config.AppendDef{Sequential: "substep", Count: 3}, g.Steps[1].Append)
	assert.NotNil(t, g.Steps[2].Dispatch)

	_, ok = model.Sequential("substep")
	assert.True(t, ok)
	assert.Len(t, model.Bindings, 2)
}

func TestLoader_AppendCountDefaultsToOne(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"main.hcl": `
sequential "s" {}

graph "g" {
  append "s" {}
}
`})

	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	g, ok := model.Graph("g")
	require.True(t, ok)
	require.Len(t, g.Steps, 1)
	assert.Equal(t, 1, g.Steps[0].Append.Count)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `graph "g" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"a.hcl": `kernel "k" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "duplicate graph across files",
			files: map[string]string{
				"a.hcl": `graph "g" {}`,
				"b.hcl": `graph "g" {}`,
			},
			wantErr: `duplicate graph "g"`,
		},
		{
			name: "duplicate binding across kinds",
			files: map[string]string{"a.hcl": `
scalar "x" {
  dtype = "f32"
  value = 1
}
vector "x" {
  dtype = "f32"
  value = [1, 2]
}
`},
			wantErr: `duplicate binding "x"`,
		},
		{
			name: "zero count",
			files: map[string]string{"a.hcl": `
graph "g" {
  append "s" {
    count = 0
  }
}
`},
			wantErr: "count must be at least 1",
		},
		{
			name: "bad element shape",
			files: map[string]string{"a.hcl": `
arg "v" {
  kind          = "vector"
  dtype         = "f32"
  element_shape = ["x"]
}
`},
			wantErr: "element_shape",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := writeFiles(t, tc.files)
			_, _, err := NewLoader().Load(context.Background(), dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
