package integration_tests

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/cgraph/internal/app"
	"github.com/specialistvlad/cgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecution_AOTReuse saves the compiled module in one run and executes
// it in another without rebuilding from the definitions.
func TestExecution_AOTReuse(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{"graphs/main.hcl": particlesHCL}
	modPath := filepath.Join(t.TempDir(), "particles.cgrf")
	dumpDir := filepath.Join(t.TempDir(), "dump")

	first := testutil.RunIntegrationTest(t, files, app.Config{Iterations: 1, AOTOut: modPath, DumpOut: dumpDir})
	require.NoError(t, first.Err)

	// --- Act ---
	second := testutil.RunIntegrationTest(t, files, app.Config{Iterations: 1, AOTIn: modPath})

	// --- Assert ---
	require.NoError(t, second.Err)
	testutil.AssertResult(t, second, "pos", `[[0,-5],[1,-4]]`)
	assert.Equal(t, testutil.Results(t, first), testutil.Results(t, second))

	listing, err := os.ReadFile(filepath.Join(dumpDir, "graph_main.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("add_vector(pos, g)\n", 5), string(listing))
}

// TestExecution_AOTCorruptFile fails the run when the module file is damaged.
func TestExecution_AOTCorruptFile(t *testing.T) {
	t.Parallel()

	modPath := filepath.Join(t.TempDir(), "broken.cgrf")
	require.NoError(t, os.WriteFile(modPath, []byte("not a module"), 0o644))
	files := map[string]string{"graphs/main.hcl": particlesHCL}

	result := testutil.RunIntegrationTest(t, files, app.Config{Iterations: 1, AOTIn: modPath})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to load AOT module")
}
