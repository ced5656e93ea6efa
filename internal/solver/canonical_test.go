package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperdem/internal/ir"
)

func TestInitializerCanonicalRoundTrip(t *testing.T) {
	in := Initializer{
		VertexNum: 3,
		WeightedEdges: []HyperEdge{
			{Vertices: []int{0, 1}, Weight: 1.5},
			{Vertices: []int{}, Weight: -0.25},
			{Vertices: []int{2}, Weight: 0.1},
		},
		Heralds: []map[int]float64{
			{2: 0, 0: math.Inf(-1)},
			{},
		},
	}

	data, err := ir.MarshalCanonical(in.Canonical())
	require.NoError(t, err)
	assert.Equal(t,
		`{"edges":[{"vertices":[0,1],"weight":"1.5"},{"vertices":[],"weight":"-0.25"},{"vertices":[2],"weight":"0.1"}],`+
			`"heralds":[[{"edge":0,"weight":"-Inf"},{"edge":2,"weight":"0"}],[]],"vertex_num":3}`,
		string(data))

	got, err := ParseInitializer(data)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestInitializerCanonicalStatic(t *testing.T) {
	in := Initializer{VertexNum: 1, WeightedEdges: []HyperEdge{{Vertices: []int{0}, Weight: 2}}}
	data, err := ir.MarshalCanonical(in.Canonical())
	require.NoError(t, err)

	got, err := ParseInitializer(data)
	require.NoError(t, err)
	assert.Nil(t, got.Heralds)
	assert.Equal(t, in.WeightedEdges, got.WeightedEdges)
}

func TestParseInitializerRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"bad weight", `{"vertex_num":1,"edges":[{"vertices":[0],"weight":"x"}],"heralds":[]}`},
		{"vertex out of range", `{"vertex_num":1,"edges":[{"vertices":[3],"weight":"1"}],"heralds":[]}`},
		{"repeated herald edge", `{"vertex_num":1,"edges":[{"vertices":[0],"weight":"1"}],"heralds":[[{"edge":0,"weight":"1"},{"edge":0,"weight":"2"}]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInitializer([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSyndromeCanonicalRoundTrip(t *testing.T) {
	s := SyndromePattern{Defects: []int{1, 4}, Heralds: []int{0}, Erasures: []int{3}}
	data, err := ir.MarshalCanonical(s.Canonical())
	require.NoError(t, err)
	assert.Equal(t, `{"defects":[1,4],"erasures":[3],"heralds":[0]}`, string(data))

	got, err := ParseSyndrome(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}
