package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	text := `R 0 1 2
X_ERROR(0.1) 0 1
CX 0 1
M(0.01) 0 !1
HERALDED_ERASE[leak](0.05) 2
DETECTOR(1, 2.5) rec[-1]
E(0.2) X0 Z1
MPP X0*Z1 Y2
REPEAT 3 {
    H 0
    M 0
    DETECTOR rec[-1] rec[-2]
}
OBSERVABLE_INCLUDE(0) rec[-1]`

	c, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, c.String())
}

func TestParse_CommentsAndCase(t *testing.T) {
	c, err := Parse(`
# preamble
r 0   # reset
m 0
detector rec[-1]
`)
	require.NoError(t, err)
	assert.Equal(t, "R 0\nM 0\nDETECTOR rec[-1]", c.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"unknown gate", "FOO 0", 1},
		{"positive lookback", "M 0\nDETECTOR rec[1]", 2},
		{"detector on qubit", "DETECTOR 0", 1},
		{"odd CX", "CX 0 1 2", 1},
		{"missing arg", "X_ERROR 0", 1},
		{"bad probability", "X_ERROR(1.5) 0", 1},
		{"unmatched brace", "M 0\n}", 2},
		{"unterminated repeat", "REPEAT 2 {\nM 0", 2},
		{"bad repeat", "REPEAT x {", 1},
		{"pauli channel sum", "PAULI_CHANNEL_1(0.5, 0.5, 0.5) 0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestCircuit_Counts(t *testing.T) {
	c := MustParse(`
M 0 1
HERALDED_PAULI_CHANNEL_1(0.1, 0.1, 0, 0) 2 3
MXX 0 1 2 3
MPP X0*X1 Z2 Y3*Y4*Y5
REPEAT 4 {
    MR 0
    DETECTOR rec[-1]
}
OBSERVABLE_INCLUDE(2) rec[-1]
`)
	assert.Equal(t, 2+2+2+3+4, c.NumMeasurements())
	assert.Equal(t, 4, c.NumDetectors())
	assert.Equal(t, 3, c.NumObservables())
}

func TestCircuit_FlattenedAppliesShiftCoords(t *testing.T) {
	c := MustParse(`
REPEAT 2 {
    M 0
    DETECTOR(0, 0) rec[-1]
    SHIFT_COORDS(0, 1)
}
`)
	flat := c.Flattened()
	assert.Equal(t, "M 0\nDETECTOR(0, 0) rec[-1]\nM 0\nDETECTOR(0, 1) rec[-1]", flat.String())

	// Source is untouched.
	assert.Len(t, c.Items, 1)
}

func TestTarget_String(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{Qubit(3), "3"},
		{Target{Kind: TargetQubit, Value: 1, Inverted: true}, "!1"},
		{Rec(-2), "rec[-2]"},
		{PauliTarget('Z', 7), "Z7"},
		{Combiner(), "*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.String())
		if tt.target.Kind != TargetCombiner {
			parsed, err := ParseTarget(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.target, parsed)
		}
	}
}

func TestIsNoiseChannel(t *testing.T) {
	for _, name := range []string{
		"CORRELATED_ERROR", "DEPOLARIZE1", "DEPOLARIZE2", "E", "ELSE_CORRELATED_ERROR",
		"HERALDED_ERASE", "HERALDED_PAULI_CHANNEL_1", "PAULI_CHANNEL_1", "PAULI_CHANNEL_2",
		"X_ERROR", "Y_ERROR", "Z_ERROR",
	} {
		assert.True(t, IsNoiseChannel(name), name)
	}
	assert.False(t, IsNoiseChannel("M"))
	assert.False(t, IsNoiseChannel("DETECTOR"))
	assert.True(t, IsHeralded("HERALDED_ERASE"))
	assert.False(t, IsHeralded("X_ERROR"))
}
