package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_HarnessScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", harnessGoldens)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ blocks-on-red")
	assert.Contains(t, out, "✓ relink-after-retract")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTest_NoUnlinkMatchesGolden(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", harnessGoldens, "--no-unlink")
	require.NoError(t, err)
}

func TestTest_FilterJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir, "--golden", harnessGoldens, "--filter", "relink-*")
	require.NoError(t, err)

	var result TestResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "relink-after-retract", result.Scenarios[0].Name)
}

func TestTest_UpdateThenCompare(t *testing.T) {
	golden := t.TempDir()

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	for _, name := range []string{"blocks-on-red", "relink-after-retract"} {
		written, err := os.ReadFile(filepath.Join(golden, name+".golden"))
		require.NoError(t, err)
		committed, err := os.ReadFile(filepath.Join(harnessGoldens, name+".golden"))
		require.NoError(t, err)
		assert.Equal(t, string(committed), string(written), name)
	}

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", golden)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "blocks-on-red.golden"), []byte(`{"scenario_name":"blocks-on-red","trace":[]}`), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--golden", golden, "--filter", "blocks-*")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ blocks-on-red")
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	rules, err := filepath.Abs(filepath.Join(rulesDir, "blocks.cue"))
	require.NoError(t, err)

	scenario := `name: wrong-count
description: A lone on fact cannot form a stack, so five stacked matches is wrong.
rules:
  - ` + rules + `
steps:
  - assert: [1, "on", 2]
assertions:
  - type: match_count
    rule: stacked
    count: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "wrong-count", result.Scenarios[0].Name)
	require.NotEmpty(t, result.Scenarios[0].Errors)
	assert.NotContains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
	assert.Contains(t, result.Scenarios[0].Errors[0], "Expected: stacked has 5 matches")
	assert.Contains(t, result.Scenarios[0].Errors[0], "Actual: 0 matches")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles_InvalidFilter(t *testing.T) {
	_, err := findScenarioFiles(scenariosDir, "[")
	assert.Error(t, err)
}
