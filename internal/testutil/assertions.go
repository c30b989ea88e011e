package testutil

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Results extracts the JSON result lines from the app output, keyed by
// argument name. Log lines are skipped.
func Results(t *testing.T, result *HarnessResult) map[string]json.RawMessage {
	t.Helper()

	out := make(map[string]json.RawMessage)
	sc := bufio.NewScanner(strings.NewReader(result.Output))
	for sc.Scan() {
		var line struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
			Level string          `json:"level"`
		}
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil || line.Level != "" || line.Name == "" {
			continue
		}
		out[line.Name] = line.Value
	}
	require.NoError(t, sc.Err())
	return out
}

// AssertResult checks that the run printed name with the given JSON value.
func AssertResult(t *testing.T, result *HarnessResult, name, wantJSON string) {
	t.Helper()

	got, ok := Results(t, result)[name]
	require.True(t, ok, "no result line for %q in output:\n%s", name, result.Output)
	require.JSONEq(t, wantJSON, string(got))
}
