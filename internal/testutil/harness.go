package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/cgraph/internal/app"
	"github.com/specialistvlad/cgraph/internal/hcl"
	"github.com/specialistvlad/cgraph/internal/notify"
	"github.com/specialistvlad/cgraph/internal/registry"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is re-exported so tests need not import app for it.
type SafeBuffer = app.SafeBuffer

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output is everything the app wrote: logs and JSON result lines.
	Output string
	Err    error
	App    *app.App
	Events *notify.Recorder
	// Dir is the temporary root the files were written to.
	Dir string
}

// RunIntegrationTest writes files under a temporary directory, builds an app
// over it with cfg (GraphPath is filled in) and runs it. The core modules are
// used when no modules are given.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg, modules...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	// 1. Create a temporary root directory for the test.
	tmpDir := t.TempDir()
	graphDir := filepath.Join(tmpDir, "graphs")
	require.NoError(t, os.Mkdir(graphDir, 0o755))

	// 2. Write all HCL files. Paths are relative to the temporary root, so
	//    "graphs/x.hcl" lands in the graph directory.
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	// 3. Configure the app.
	cfg.GraphPath = graphDir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	result := &HarnessResult{Events: &notify.Recorder{}, Dir: tmpDir}

	// Module registration panics on duplicate kernel names.
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App, result.Err = app.NewApp(out, appConfig, hcl.NewLoader(), modules...)
	}()

	if result.Err == nil {
		result.App.SetNotifier(result.Events)
		result.Err = result.App.Run(ctx)
	}

	if os.Getenv("CGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
	}
	result.Output = out.String()
	return result
}
