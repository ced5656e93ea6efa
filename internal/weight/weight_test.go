package weight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbabilityWeightInverse(t *testing.T) {
	for _, p := range []float64{1e-15, 1e-6, 0.001, 0.1, 0.2689, 0.5, 0.7, 0.999} {
		w := ProbabilityToWeight(p)
		assert.InDelta(t, p, WeightToProbability(w), 1e-12*math.Max(1, p), "p=%v", p)
	}
	assert.Equal(t, 0.0, ProbabilityToWeight(0.5))
	assert.True(t, math.IsInf(ProbabilityToWeight(0), 1))
	assert.True(t, math.IsInf(ProbabilityToWeight(1), -1))
	assert.InDelta(t, 0.2689414213699951, WeightToProbability(1), 1e-15)
}

func TestCombineIndependent_ReferenceValues(t *testing.T) {
	tests := []struct {
		w1, w2 float64
		want   float64
	}{
		{0.2, 1, 0.09218180139025334},
		{0.3, 1, 0.13782240494753428},
		{0.3, 0, 0},
		{0, 0.3, 0},
		{-1, 0.3, -0.13782240494753428},
		{-1, 0, 0},
		{-0.2, 1, -0.09218180139025334},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CombineIndependent(tt.w1, tt.w2), 1e-14, "(%v, %v)", tt.w1, tt.w2)
	}
}

func TestCombineIndependent_Properties(t *testing.T) {
	ws := []float64{-30, -3.5, -1, -0.2, 0, 0.1, 0.7, 2, 9.2, 34.5}
	for _, a := range ws {
		// zero absorbs exactly
		assert.Equal(t, 0.0, CombineIndependent(a, 0), "w=%v", a)
		assert.Equal(t, 0.0, CombineIndependent(0, a), "w=%v", a)
		for _, b := range ws {
			assert.Equal(t, CombineIndependent(a, b), CombineIndependent(b, a), "(%v, %v)", a, b)
			assert.InDelta(t, -CombineIndependent(a, b), CombineIndependent(-a, b), 1e-12, "(%v, %v)", a, b)
		}
	}
}

func TestCombineIndependent_MatchesProbabilityForm(t *testing.T) {
	for _, pair := range [][2]float64{{0.1, 0.2}, {0.01, 0.4}, {0.3, 0.3}, {1e-6, 1e-3}} {
		p := CombineProbabilities(pair[0], pair[1])
		want := ProbabilityToWeight(p)
		got := CombineIndependent(ProbabilityToWeight(pair[0]), ProbabilityToWeight(pair[1]))
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestCombineIndependent_Infinite(t *testing.T) {
	// p = 0 contributes nothing
	assert.Equal(t, 1.5, CombineIndependent(math.Inf(1), 1.5))
	// p = 1 flips the other mechanism
	assert.Equal(t, -1.5, CombineIndependent(1.5, math.Inf(-1)))
}

func TestCombineIndependent_LargeWeightsStayFinite(t *testing.T) {
	w := ProbabilityToWeight(1e-15)
	got := CombineIndependent(w, w)
	assert.False(t, math.IsInf(got, 0))
	assert.InDelta(t, ProbabilityToWeight(2e-15), got, 1e-6)
}

func TestClampProbability(t *testing.T) {
	assert.Equal(t, 0.0, ClampProbability(0, DefaultProbabilityFloor))
	assert.Equal(t, DefaultProbabilityFloor, ClampProbability(1e-20, DefaultProbabilityFloor))
	assert.Equal(t, 0.25, ClampProbability(0.25, DefaultProbabilityFloor))
}
