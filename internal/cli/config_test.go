package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/heuristic"
)

func TestConfigCommand_DefaultsText(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "inlining")
	assert.Contains(t, out, "max_inlined_size_cumulative")
	assert.Contains(t, out, "920")
	assert.Contains(t, out, `"general"`)
}

func TestConfigCommand_DefaultsJSON(t *testing.T) {
	out, err := execute(t, "config", "--format", "json")
	require.NoError(t, err)

	resp, data := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(460), data["max_inlined_size"])
	assert.Equal(t, float64(30), data["max_inlined_size_small"])
	assert.Equal(t, float64(5000), data["max_inlined_size_absolute"])
	assert.Equal(t, 1.2, data["reserve_inline_budget_scale_factor"])
	assert.Equal(t, 0.15, data["min_inlining_frequency"])
	assert.Equal(t, float64(heuristic.MaxCallPolymorphism), data["max_polymorphism"])
	assert.Equal(t, "general", data["mode"])
}

func TestConfigCommand_OverridesFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stress.cue", "inlining: {\n\tmode: \"stress\"\n\tmax_polymorphism: 2\n}\n")

	out, err := execute(t, "config", path, "--format", "json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, "stress", data["mode"])
	assert.Equal(t, float64(2), data["max_polymorphism"])
	assert.Equal(t, float64(920), data["max_inlined_size_cumulative"], "unset fields keep defaults")
}

func TestConfigCommand_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.cue", "inlining: max_inlined_size_cumulative: 1200\n")
	dst := filepath.Join(dir, "out.cue")

	_, err := execute(t, "config", src, "-o", dst)
	require.NoError(t, err)

	got, err := config.Load(dst)
	require.NoError(t, err)
	want := heuristic.DefaultConfig()
	want.MaxInlinedSizeCumulative = 1200
	assert.Equal(t, want, got)
}

func TestConfigCommand_InvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", "inlining: max_polymorphism: 9\n")

	out, err := execute(t, "config", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

func TestConfigCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "config", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
