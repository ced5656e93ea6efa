package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperdem/internal/weight"
)

func triangle(heralds []map[int]float64) Initializer {
	return Initializer{
		VertexNum: 3,
		WeightedEdges: []HyperEdge{
			{Vertices: []int{0, 1}, Weight: 1},
			{Vertices: []int{1, 2}, Weight: 1},
			{Vertices: []int{2, 0}, Weight: 1},
		},
		Heralds: heralds,
	}
}

func solve(t *testing.T, init Initializer, cfg Config, syndrome SyndromePattern) (*Exhaustive, error) {
	t.Helper()
	s, err := NewExhaustive(init, cfg)
	require.NoError(t, err)
	return s, s.Solve(context.Background(), syndrome)
}

func TestExhaustive_Heralded(t *testing.T) {
	init := triangle([]map[int]float64{
		{0: 0, 1: 0},
		{0: 0.2, 1: 0.3},
		{0: 0.6, 1: 0.5},
		{0: -0.2, 1: -0.3},
	})

	tests := []struct {
		name     string
		heralds  []int
		subgraph []int
		weight   float64
	}{
		{"no herald", nil, []int{2}, 1},
		{"certain herald", []int{0}, []int{0, 1}, 0},
		{"weak herald", []int{1}, []int{0, 1}, 0.23000420633778762},
		{"strong herald", []int{2}, []int{0, 1}, weight.CombineIndependent(1, 0.6) + weight.CombineIndependent(1, 0.5)},
		{"negative herald", []int{3}, []int{0, 1}, -0.23000420633778762},
	}
	s, err := NewExhaustive(init, Config{})
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.Solve(context.Background(), SyndromePattern{Defects: []int{0, 2}, Heralds: tt.heralds}))
			got, err := s.Subgraph()
			require.NoError(t, err)
			assert.Equal(t, tt.subgraph, got)
			assert.InDelta(t, tt.weight, s.Weight(), 1e-12)
			s.Clear()
		})
	}
}

func TestExhaustive_EmptySyndrome(t *testing.T) {
	s, err := solve(t, triangle(nil), Config{}, SyndromePattern{})
	require.NoError(t, err)
	got, err := s.Subgraph()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, s.Weight())
}

func TestExhaustive_EmptyGraph(t *testing.T) {
	s, err := solve(t, Initializer{}, Config{}, SyndromePattern{})
	require.NoError(t, err)
	got, err := s.Subgraph()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExhaustive_NegativeCycleWithoutDefects(t *testing.T) {
	init := triangle(nil)
	for i := range init.WeightedEdges {
		init.WeightedEdges[i].Weight = -1
	}
	s, err := solve(t, init, Config{}, SyndromePattern{})
	require.NoError(t, err)
	got, _ := s.Subgraph()
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.InDelta(t, -3, s.Weight(), 1e-12)
}

func TestExhaustive_Erasure(t *testing.T) {
	s, err := solve(t, triangle(nil), Config{}, SyndromePattern{Defects: []int{0, 1}, Erasures: []int{1, 2}})
	require.NoError(t, err)
	got, _ := s.Subgraph()
	assert.Equal(t, []int{1, 2}, got)
	assert.Zero(t, s.Weight())
}

func TestExhaustive_TieBreak(t *testing.T) {
	init := Initializer{
		VertexNum: 2,
		WeightedEdges: []HyperEdge{
			{Vertices: []int{0}, Weight: 1},
			{Vertices: []int{0, 1}, Weight: 1},
			{Vertices: []int{0, 1}, Weight: 1},
			{Vertices: []int{1}, Weight: 0},
		},
	}
	// {1,3} and {2,3} and {0} all weigh 1; the single edge wins.
	s, err := solve(t, init, Config{}, SyndromePattern{Defects: []int{0}})
	require.NoError(t, err)
	got, _ := s.Subgraph()
	assert.Equal(t, []int{0}, got)

	// {1} and {2} tie on weight and size; the lower index wins.
	s, err = solve(t, init, Config{}, SyndromePattern{Defects: []int{0, 1}})
	require.NoError(t, err)
	got, _ = s.Subgraph()
	assert.Equal(t, []int{1}, got)
}

func TestExhaustive_Hyperedge(t *testing.T) {
	init := Initializer{
		VertexNum: 3,
		WeightedEdges: []HyperEdge{
			{Vertices: []int{0, 1, 2}, Weight: 2},
			{Vertices: []int{0}, Weight: 1},
			{Vertices: []int{1}, Weight: 1},
			{Vertices: []int{2}, Weight: 1},
		},
	}
	s, err := solve(t, init, Config{}, SyndromePattern{Defects: []int{0, 1, 2}})
	require.NoError(t, err)
	got, _ := s.Subgraph()
	assert.Equal(t, []int{0}, got)
}

func TestExhaustive_IsolatedEdge(t *testing.T) {
	init := Initializer{
		VertexNum: 1,
		WeightedEdges: []HyperEdge{
			{Vertices: []int{0}, Weight: 1},
			{Vertices: nil, Weight: 2},
		},
		Heralds: []map[int]float64{{1: -3}},
	}
	s, err := solve(t, init, Config{}, SyndromePattern{})
	require.NoError(t, err)
	got, _ := s.Subgraph()
	assert.Empty(t, got)

	require.NoError(t, s.Solve(context.Background(), SyndromePattern{Heralds: []int{0}}))
	got, _ = s.Subgraph()
	assert.Equal(t, []int{1}, got)
}

func TestExhaustive_Failures(t *testing.T) {
	parallel := func(n int) Initializer {
		init := Initializer{VertexNum: 3}
		for i := 0; i < n; i++ {
			init.WeightedEdges = append(init.WeightedEdges, HyperEdge{Vertices: []int{0, 1}, Weight: 1})
		}
		return init
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		init     Initializer
		cfg      Config
		ctx      context.Context
		syndrome SyndromePattern
		reason   FailureReason
	}{
		{"odd parity", parallel(1), Config{}, context.Background(), SyndromePattern{Defects: []int{0}}, ReasonInfeasible},
		{"defect off graph", parallel(1), Config{}, context.Background(), SyndromePattern{Defects: []int{2}}, ReasonInfeasible},
		{"defect out of range", parallel(1), Config{}, context.Background(), SyndromePattern{Defects: []int{3}}, ReasonInvalid},
		{"repeated defect", parallel(1), Config{}, context.Background(), SyndromePattern{Defects: []int{0, 0}}, ReasonInvalid},
		{"unknown herald", parallel(1), Config{}, context.Background(), SyndromePattern{Heralds: []int{0}}, ReasonInvalid},
		{"bad erasure", parallel(1), Config{}, context.Background(), SyndromePattern{Erasures: []int{5}}, ReasonInvalid},
		{"nullity", parallel(3), Config{MaxNullity: 1}, context.Background(), SyndromePattern{Defects: []int{0, 1}}, ReasonNullity},
		{"cancelled", parallel(2), Config{}, cancelled, SyndromePattern{Defects: []int{0, 1}}, ReasonCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewExhaustive(tt.init, tt.cfg)
			require.NoError(t, err)
			err = s.Solve(tt.ctx, tt.syndrome)
			var f *Failure
			require.True(t, errors.As(err, &f), "got %v", err)
			assert.Equal(t, tt.reason, f.Reason)
			assert.Equal(t, tt.syndrome, f.Syndrome)

			_, err = s.Subgraph()
			assert.Error(t, err)
		})
	}
}

func TestInitializer_Validate(t *testing.T) {
	tests := []struct {
		name string
		init Initializer
	}{
		{"vertex out of range", Initializer{VertexNum: 1, WeightedEdges: []HyperEdge{{Vertices: []int{1}, Weight: 1}}}},
		{"repeated vertex", Initializer{VertexNum: 2, WeightedEdges: []HyperEdge{{Vertices: []int{1, 1}, Weight: 1}}}},
		{"infinite weight", Initializer{VertexNum: 1, WeightedEdges: []HyperEdge{{Vertices: []int{0}, Weight: weight.ProbabilityToWeight(0)}}}},
		{"herald edge out of range", Initializer{VertexNum: 1, Heralds: []map[int]float64{{0: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExhaustive(tt.init, Config{})
			assert.Error(t, err)
		})
	}
}
