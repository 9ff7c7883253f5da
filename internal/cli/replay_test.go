package cli

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayCommand_AllRunsVerify(t *testing.T) {
	db := journal(t, scenarioDir)

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 4 run(s)")
	assert.Contains(t, out, "✓ Run: two_pass_budget")
	assert.Contains(t, out, "  2 pass(es), 8 decision(s)")
	assert.Contains(t, out, "✓ All passes verified")
}

func TestReplayCommand_SingleRunJSON(t *testing.T) {
	db := journal(t, scenarioDir)

	out, err := execute(t, "replay", "--db", db, "--run", "monomorphic_budget", "--format", "json")
	require.NoError(t, err)

	resp, data := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, true, data["all_verified"])
	runs := data["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)
	assert.Equal(t, "monomorphic_budget", run["run_id"])
	assert.Equal(t, float64(1), run["passes"])
	assert.Equal(t, float64(7), run["decisions"])
}

func TestReplayCommand_DetectsTampering(t *testing.T) {
	db := journal(t, scenarioFile("monomorphic_budget"))

	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE decisions SET reason = 'queued' WHERE seq = 1`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Run: monomorphic_budget")
	assert.Contains(t, out, "Warning: digest mismatch in pass scenario-monomorphic-budget")
}

func TestReplayCommand_UnknownRun(t *testing.T) {
	db := journal(t, scenarioFile("monomorphic_budget"))

	_, err := execute(t, "replay", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_MissingDatabase(t *testing.T) {
	_, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
