package integration_tests

import (
	"testing"

	"github.com/specialistvlad/cgraph/internal/app"
	"github.com/specialistvlad/cgraph/internal/notify"
	"github.com/specialistvlad/cgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const particlesHCL = `
arg "pos" {
  kind          = "ndarray"
  dtype         = "f32"
  field_dim     = 1
  element_shape = [2]
}

arg "g" {
  kind          = "vector"
  dtype         = "f32"
  element_shape = [2]
}

sequential "substep" {
  dispatch "add_vector" {
    args = ["pos", "g"]
  }
}

sequential "frame" {
  append "substep" {
    count = 5
  }
}

graph "main" {
  append "frame" {}
}

ndarray "pos" {
  dtype         = "f32"
  shape         = [2]
  element_shape = [2]
  value         = [[0, 0], [1, 1]]
}

vector "g" {
  dtype = "f32"
  value = [0, -1]
}
`

// TestExecution_NestedSequentials verifies that a sequential appended inside
// another runs as many times as the product of the counts.
func TestExecution_NestedSequentials(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"graphs/main.hcl": particlesHCL}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, app.Config{Iterations: 2})

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertResult(t, result, "pos", `[[0,-10],[1,-9]]`)
	assert.Equal(t, []notify.EventType{
		notify.GraphCompiled,
		notify.RunStarted, notify.RunFinished,
		notify.RunStarted, notify.RunFinished,
	}, result.Events.Types())

	g, ok := result.App.Module().Graph("main")
	require.True(t, ok)
	assert.Equal(t, 5, g.DispatchCount())
}

// TestExecution_ZeroIterations prints the bound values untouched.
func TestExecution_ZeroIterations(t *testing.T) {
	t.Parallel()

	files := map[string]string{"graphs/main.hcl": particlesHCL}

	result := testutil.RunIntegrationTest(t, files, app.Config{Iterations: 0})

	require.NoError(t, result.Err)
	testutil.AssertResult(t, result, "pos", `[[0,0],[1,1]]`)
	assert.Equal(t, []notify.EventType{notify.GraphCompiled}, result.Events.Types())
}
