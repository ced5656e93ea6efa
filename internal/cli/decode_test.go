package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperdem/internal/store"
)

// pairShots are pairModel shots: {D0 D1}, {D2}, none.
var pairShots = []byte{0b011, 0b100, 0}

func TestDecodeErrorModel(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "pair.dem", pairModel)
	in := writeFile(t, dir, "dets.b8", string(pairShots))
	out := filepath.Join(dir, "obs.b8")

	stdout, err := execute(NewDecodeCommand(&RootOptions{Format: "json"}), "--dem", model, "--in", in, "--out", out)
	require.NoError(t, err)

	var result DecodeResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, result.Shots, "shot count inferred from the input size")
	assert.Equal(t, int64(0), result.Failures)
	assert.Equal(t, "static", result.Kind)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0}, got)
}

func TestDecodeCircuitCompressed(t *testing.T) {
	dir := t.TempDir()
	circuit := writeFile(t, dir, "erasure.stim", erasureCircuit)
	plain := writeFile(t, dir, "dets.b8", string([]byte{0b100, 0b101}))
	out := filepath.Join(dir, "obs.b8.zst")

	_, err := execute(NewDecodeCommand(&RootOptions{Format: "text"}), circuit, "--in", plain, "--out", out)
	require.NoError(t, err)

	back := filepath.Join(dir, "obs.b8")
	_, err = execute(NewDecodeCommand(&RootOptions{Format: "text"}), circuit, "--in", plain, "--out", back)
	require.NoError(t, err)
	got, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, got, "a fired herald removes the boundary correction")

	_, err = execute(NewDecodeCommand(&RootOptions{Format: "text"}), circuit, "--in", out, "--out", filepath.Join(dir, "x.b8"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--shots is required")
}

func TestDecodeRaiseFailure(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "pair.dem", pairModel)
	in := writeFile(t, dir, "dets.b8", string([]byte{0b001}))

	stdout, err := execute(NewDecodeCommand(&RootOptions{Format: "json"}), "--dem", model, "--in", in, "--out", filepath.Join(dir, "obs.b8"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SOLVER_FAILURE", resp.Error.Code)
}

func TestDecodeRandomPolicyRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "pair.dem", pairModel)
	cfg := writeFile(t, dir, "decoder.cue", "failure_policy: \"random\"\nseed: 3\nworkers: 2\n")
	in := writeFile(t, dir, "dets.b8", string([]byte{0b001, 0b011, 0b010, 0b100}))
	db := filepath.Join(dir, "failures.db")
	metrics := filepath.Join(dir, "decode.prom")

	stdout, err := execute(NewDecodeCommand(&RootOptions{Format: "json"}),
		"--dem", model, "--config", cfg, "--in", in, "--out", filepath.Join(dir, "obs.b8"),
		"--db", db, "--metrics", metrics)
	require.NoError(t, err)

	var result DecodeResult
	decodeResponse(t, stdout, &result)
	assert.Equal(t, 4, result.Shots)
	assert.Equal(t, int64(2), result.Failures)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	failures, err := st.ReadFailures(t.Context(), result.Fingerprint)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	shots := []int{failures[0].Shot, failures[1].Shot}
	assert.ElementsMatch(t, []int{0, 2}, shots)

	text, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(text), "hyperdem_shots_total")
	assert.Contains(t, string(text), `hyperdem_solver_failures_total{reason="INFEASIBLE"} 2`)
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "pair.dem", pairModel)

	_, err := execute(NewDecodeCommand(&RootOptions{Format: "text"}), "--dem", model, "--out", filepath.Join(dir, "obs.b8"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = execute(NewDecodeCommand(&RootOptions{Format: "text"}), "--dem", model,
		"--in", filepath.Join(dir, "missing.b8"), "--out", filepath.Join(dir, "obs.b8"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(NewDecodeCommand(&RootOptions{Format: "text"}), "--dem", writeFile(t, dir, "wide.dem", "error(0.1) D0 D9"),
		"--in", writeFile(t, dir, "three.b8", "abc"), "--out", filepath.Join(dir, "obs.b8"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a multiple of the 2-byte record")
}

func TestInferShots(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dets.b8", "abcdef")

	n, err := inferShots(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = inferShots(path, 4)
	assert.Error(t, err)

	_, err = inferShots(filepath.Join(dir, "dets.b8.zst"), 1)
	assert.Error(t, err)
}
