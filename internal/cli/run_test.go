package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyPenFixture(t *testing.T, scenarioPath string) {
	t.Helper()
	data, err := os.ReadFile(penFixture)
	require.NoError(t, err)
	dest := filepath.Join(filepath.Dir(scenarioPath), "pen.json")
	require.NoError(t, os.WriteFile(dest, data, 0o644))
}

func TestRunPassingScenario(t *testing.T) {
	out, err := execute(t, "run", "../harness/testdata/scenarios/pen_cascade.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  pen_cascade")
	assert.Contains(t, out, "1 scenario(s), 0 failed")
}

func TestRunAllScenarios(t *testing.T) {
	out, err := execute(t, "run",
		"../harness/testdata/scenarios/pen_cascade.yaml",
		"../harness/testdata/scenarios/dedup_merge.yaml",
		"../harness/testdata/scenarios/unknown_entities.yaml",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "3 scenario(s), 0 failed")
}

func TestRunFailingScenario(t *testing.T) {
	path := writeFile(t, "failing.yaml", `
name: failing
ingest:
  - pen.json
assertions:
  - type: counts
    counts: { invoices: 99 }
`)
	copyPenFixture(t, path)

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  failing")
}

func TestRunMissingScenario(t *testing.T) {
	_, err := execute(t, "run", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
