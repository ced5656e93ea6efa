package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// undetectedHerald heralds qubit 0 without a detector on the herald.
const undetectedHerald = `R 0
HERALDED_ERASE(0.1) 0
M 0
DETECTOR rec[-1]`

func TestRenderAbsolute(t *testing.T) {
	path := writeFile(t, t.TempDir(), "erasure.stim", erasureCircuit)

	out, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "abs[0]")
	assert.NotContains(t, out, "rec[-1]")
}

func TestRenderNative(t *testing.T) {
	path := writeFile(t, t.TempDir(), "erasure.stim", erasureCircuit)

	out, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), "--native", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rec[-1]")
	assert.NotContains(t, out, "abs[")
	assert.Equal(t, 3, strings.Count(out, "DETECTOR"))
}

func TestRenderHeraldDetectors(t *testing.T) {
	dir := t.TempDir()
	undetected := writeFile(t, dir, "undetected.stim", undetectedHerald)
	erasure := writeFile(t, dir, "erasure.stim", erasureCircuit)

	out, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), "--native", "--add-herald-detectors", undetected)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "DETECTOR"))

	out, err = execute(NewRenderCommand(&RootOptions{Format: "json"}), "--remove-herald-detectors", erasure)
	require.NoError(t, err)
	var data struct {
		NumDetectors    int `json:"num_detectors"`
		NumMeasurements int `json:"num_measurements"`
	}
	decodeResponse(t, out, &data)
	assert.Equal(t, 2, data.NumDetectors)
	assert.Equal(t, 4, data.NumMeasurements)
}

func TestRenderStripNoise(t *testing.T) {
	path := writeFile(t, t.TempDir(), "noisy.stim", "R 0\nX_ERROR(0.1) 0\nM 0\nDETECTOR rec[-1]")

	out, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), "--native", "--strip-noise", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "X_ERROR")
	assert.Contains(t, out, "M 0")
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	erasure := writeFile(t, dir, "erasure.stim", erasureCircuit)

	_, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), "--add-herald-detectors", "--remove-herald-detectors", erasure)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")

	composite := writeFile(t, dir, "composite.stim", "R 0 1\nHERALDED_ERASE(0.1) 0\nM 1\nDETECTOR rec[-2] rec[-1]")
	out, err := execute(NewRenderCommand(&RootOptions{Format: "text"}), "--remove-herald-detectors", composite)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "COMPOSITE_HERALD_DETECTOR")
}
