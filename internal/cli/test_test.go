package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_RepositoryScenarios(t *testing.T) {
	out, err := execute(t, "test", scenarioDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ polymorphic_reuse")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := copyScenarios(t)

	out, err := execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	_, data := decode(t, out)
	for _, s := range data["scenarios"].([]any) {
		assert.Equal(t, "missing", s.(map[string]any)["golden"])
	}

	out, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ monomorphic_budget (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "monomorphic_budget.golden"))
	require.NoError(t, err)
	committed, err := os.ReadFile(filepath.Join(scenarioDir, "golden", "monomorphic_budget.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(committed), string(written))

	out, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	_, data = decode(t, out)
	assert.Equal(t, float64(4), data["passed"])
	for _, s := range data["scenarios"].([]any) {
		assert.Equal(t, "match", s.(map[string]any)["golden"])
	}
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "two_pass_budget.golden", `{"stale":true}`)

	out, err := execute(t, "test", dir, "--filter", "two_pass*")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ two_pass_budget")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, "test", scenarioDir, "--filter", "poly*", "--format", "json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, float64(1), data["total"])
}

func TestTestCommand_FailingAndBrokenScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "failing.yaml", failingScenario)
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, float64(2), data["failed"])
	assert.Equal(t, float64(2), data["total"])
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_PathNotFound(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Help(t *testing.T) {
	out, err := execute(t, "test", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "golden")
}
