package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			RunWithGolden(t, s)
		})
	}
}

func TestRun_RecordsFailureIDs(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/static_pair.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "static", result.Kind)
	assert.Len(t, result.Fingerprint, 64)
	assert.Equal(t, 2, result.NumEdges)

	require.Len(t, result.Shots, 3)
	assert.Equal(t, "INFEASIBLE", result.Shots[1].Failure)
	assert.Equal(t, "failure-0001", result.Shots[1].Record)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/erasure_chain.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_RandomPolicyFromConfig(t *testing.T) {
	s, err := LoadScenario("testdata/random_policy.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "random_policy.cue"), s.Config)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, shot := range result.Shots {
		assert.Empty(t, shot.Failure, "random policy never raises")
	}
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "wrong expectations",
		ModelText:   "error(0.1) D0 D1 L0\nerror(0.05) D2",
		Shots: []Shot{
			{Name: "pair", Detectors: []int{0, 1}, Expect: &ShotExpect{Observables: []int{}}},
			{Name: "lone D0", Detectors: []int{0}, Expect: &ShotExpect{Observables: []int{0}}},
			{Name: "boundary", Detectors: []int{2}, Expect: &ShotExpect{Failure: "INFEASIBLE"}},
		},
		Assertions: []Assertion{
			{Type: AssertModel, Kind: "heralded"},
			{Type: AssertEdge, Detectors: []int{0}},
			{Type: AssertFailuresRecorded, Count: intPtr(0)},
		},
	}
	require.NoError(t, validateScenario(s))

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], `shot "pair": expected observables [], got [0]`)
	assert.Contains(t, result.Errors[1], "unexpected solver failure INFEASIBLE")
	assert.Contains(t, result.Errors[2], "expected failure INFEASIBLE")
	assert.Contains(t, result.Errors[3], "kind assertion failed")
	assert.Contains(t, result.Errors[4], "no edge on detectors [0]")
	assert.Contains(t, result.Errors[5], "failures_recorded assertion failed: expected 0, got 1")
}

func TestRun_DetectorOutOfRange(t *testing.T) {
	s := &Scenario{
		Name:        "out_of_range",
		Description: "detector past the model",
		ModelText:   "error(0.1) D0",
		Shots:       []Shot{{Name: "far", Detectors: []int{5}}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector 5 out of range")
}

func TestAssertHeraldEdge(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/erasure_chain.yaml")
	require.NoError(t, err)
	s.Assertions = []Assertion{
		{Type: AssertHeraldEdge, Herald: intPtr(1), Detectors: []int{2}},
		{Type: AssertHeraldEdge, Herald: intPtr(0), Detectors: []int{1, 2}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "herald 1 out of range")
	assert.Contains(t, result.Errors[1], "herald 0 does not change edge")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		file    string
		wantErr string
	}{
		{"unknown_field.yaml", "field shot not found"},
		{"two_sources.yaml", "exactly one of circuit"},
		{"missing.yaml", "failed to read scenario file"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_order"}, "unknown assertion type"},
		{"empty model", Assertion{Type: AssertModel}, "at least one of"},
		{"edge without detectors", Assertion{Type: AssertEdge}, "detectors is required"},
		{"herald edge without herald", Assertion{Type: AssertHeraldEdge, Detectors: []int{0}}, "herald is required"},
		{"negative count", Assertion{Type: AssertFailuresRecorded, Count: intPtr(-1)}, "non-negative count"},
		{"empty edge", Assertion{Type: AssertEdge, Detectors: []int{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func intPtr(n int) *int { return &n }
