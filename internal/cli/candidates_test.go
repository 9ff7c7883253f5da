package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesCommand_Text(t *testing.T) {
	out, err := execute(t, "candidates", scenarioFile("monomorphic_budget"))
	require.NoError(t, err)

	want := "Candidates for inlining (size=3):\n" +
		"  #13:Call, frequency: 0.9\n" +
		"  - size:300, name: a\n" +
		"  #25:Call, frequency: 0.7\n" +
		"  - size:400, name: c\n" +
		"  #19:Call, frequency: 0.5\n" +
		"  - size:300, name: b\n"
	assert.Equal(t, want, out)
}

func TestCandidatesCommand_JSON(t *testing.T) {
	out, err := execute(t, "candidates", scenarioFile("monomorphic_budget"), "--format", "json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, "monomorphic_budget", data["scenario"])
	assert.Equal(t, float64(3), data["pending"])
	assert.Contains(t, data["dump"], "name: c")
}

func TestCandidatesCommand_RequiresOneFile(t *testing.T) {
	_, err := execute(t, "candidates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestCandidatesCommand_BadScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "name: x\nsurprise: 1\n")

	_, err := execute(t, "candidates", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
