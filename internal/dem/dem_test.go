package dem

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/refcircuit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestParse_RoundTrip(t *testing.T) {
	text := `error(0.1) D0 D1 ^ D2 L0
detector(1, 2, 0) D3
logical_observable L1
shift_detectors(0, 0, 1) 4
repeat 2 {
    error(0.01) D0
    shift_detectors 1
}`
	m, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, m.String())
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{
		"error D0",
		"error(1.5) D0",
		"bogus(0.1) D0",
		"error(0.1) Dx",
		"repeat 2 {\nerror(0.1) D0",
		"}",
	} {
		_, err := Parse(text)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, text)
	}
}

func TestFlattened(t *testing.T) {
	m := MustParse(`
detector(0, 0) D0
repeat 3 {
    error(0.1) D0 D1
    detector(1, 0) D1
    shift_detectors(0, 1) 1
}
error(0.2) D0 L0`)

	assert.Equal(t, `detector(0, 0) D0
error(0.1) D0 D1
detector(1, 0) D1
error(0.1) D1 D2
detector(1, 1) D2
error(0.1) D2 D3
detector(1, 2) D3
error(0.2) D3 L0`, m.Flattened().String())
	assert.Equal(t, 4, m.NumDetectors())
	assert.Equal(t, 1, m.NumObservables())
}

func TestCanonicalize(t *testing.T) {
	mechs := []Mechanism{
		{Probability: 0.1, Detectors: []int{1, 0}, Observables: nil},
		{Probability: 0.2, Detectors: []int{2}, Observables: []int{0}},
		{Probability: 0.3, Detectors: []int{0, 1}, Observables: []int{1}}, // higher, different observables: replaces
		{Probability: 0.05, Detectors: []int{2}, Observables: nil},        // lower: ignored
		{Probability: 0.4, Detectors: []int{3, 3, 4}, Observables: []int{0, 0}},
		{Probability: 0, Detectors: []int{5}},
		{Probability: 0.01, Detectors: nil, Observables: []int{2}},
	}
	edges, index := Canonicalize(mechs, discardLogger())

	require.Len(t, edges, 4)
	assert.Equal(t, Hyperedge{Detectors: []int{0, 1}, Observables: []int{1}, Probability: 0.3}, edges[0])
	assert.Equal(t, Hyperedge{Detectors: []int{2}, Observables: []int{0}, Probability: 0.2}, edges[1])
	assert.Equal(t, Hyperedge{Detectors: []int{4}, Observables: []int{}, Probability: 0.4}, edges[2])
	assert.Equal(t, Hyperedge{Detectors: []int{}, Observables: []int{2}, Probability: 0.01}, edges[3])

	assert.Equal(t, map[string]int{"0,1": 0, "2": 1, "4": 2, "": 3}, index)
	assert.Equal(t, uint64(0b10), edges[0].ObservableMask())
}

func TestCanonicalize_UniqueDetectorSets(t *testing.T) {
	var mechs []Mechanism
	for i := 0; i < 200; i++ {
		mechs = append(mechs, Mechanism{
			Probability: float64(i%17+1) / 100,
			Detectors:   []int{i % 5, (i * 7) % 5, i % 3},
			Observables: []int{i % 2},
		})
	}
	edges, index := Canonicalize(mechs, discardLogger())
	seen := map[string]bool{}
	for i, e := range edges {
		assert.False(t, seen[e.Key()], "duplicate detector set %v", e.Detectors)
		seen[e.Key()] = true
		assert.Equal(t, i, index[e.Key()])
	}
	assert.Len(t, index, len(edges))
}

func TestCanonicalize_DuplicateWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	edges, _ := Canonicalize([]Mechanism{
		{Probability: 0.1, Detectors: []int{0}, Observables: []int{0}},
		{Probability: 0.2, Detectors: []int{0}, Observables: []int{0}},
	}, logger)

	assert.Contains(t, buf.String(), "duplicate error mechanism")
	require.Len(t, edges, 1)
	assert.Equal(t, 0.2, edges[0].Probability)
}

func TestCanonicalize_EqualProbabilityKeepsFirst(t *testing.T) {
	edges, _ := Canonicalize([]Mechanism{
		{Probability: 0.1, Detectors: []int{0}, Observables: []int{0}},
		{Probability: 0.1, Detectors: []int{0}, Observables: []int{1}},
	}, discardLogger())
	require.Len(t, edges, 1)
	assert.Equal(t, []int{0}, edges[0].Observables)
}

func TestCanonicalize_Empty(t *testing.T) {
	edges, index := Canonicalize(nil, discardLogger())
	assert.Empty(t, edges)
	assert.Empty(t, index)
}

func TestFromModel_StandInCircuit(t *testing.T) {
	m := MustParse("error(0.1) D0 D2 L0\nerror(0.2) D1\ndetector(5) D2")
	rm, err := FromModel(m, nil, WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.Equal(t, 3, rm.NumDetectors())
	assert.Equal(t, 1, rm.NumObservables())

	back, err := rm.Model()
	require.NoError(t, err)
	assert.Equal(t, m.String(), back.String())

	edges, err := rm.Hyperedges()
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, []int{0, 2}, edges[0].Detectors)
}

func TestFromModel_EmptyModel(t *testing.T) {
	rm, err := FromModel(&Model{}, nil)
	require.NoError(t, err)
	edges, err := rm.Hyperedges()
	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.Equal(t, 0, rm.NumDetectors())
}

func TestFromModel_DetectorOutOfRange(t *testing.T) {
	c, err := refcircuit.ParseNative("M 0\nDETECTOR rec[-1]")
	require.NoError(t, err)
	_, err = FromModel(MustParse("error(0.1) D1"), c)
	assert.True(t, IsUnknownDetector(err))
}

type fixedAnalyzer struct {
	model *Model
	seen  string
}

func (a *fixedAnalyzer) ErrorModel(c *native.Circuit, opts AnalyzeOptions) (*Model, error) {
	a.seen = c.String()
	return a.model, nil
}

func TestFromCircuit_WithCircuit(t *testing.T) {
	c, err := refcircuit.ParseNative(`M 0 1 2
DETECTOR rec[-3]
DETECTOR rec[-2]
DETECTOR rec[-1]`)
	require.NoError(t, err)

	analyzer := &fixedAnalyzer{model: MustParse("error(0.1) D0 D2\nerror(0.2) D1 L0")}
	rm, err := FromCircuit(c, analyzer, WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, c.ToNative().String(), analyzer.seen)

	// Drop the middle detector; detector identities survive, numbering shifts.
	sub, err := c.Without([]int{2})
	require.NoError(t, err)

	rebound := rm.WithCircuit(sub)
	_, err = rebound.Hyperedges()
	assert.True(t, IsUnknownDetector(err), "D1 no longer exists in the sub-circuit")

	// A circuit keeping all three detectors renumbers them consistently.
	same, err := c.Slice(0, c.Len())
	require.NoError(t, err)
	edges, err := rm.WithCircuit(same).Hyperedges()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, edges[0].Detectors)
	assert.Equal(t, []int{1}, edges[1].Detectors)
	assert.Equal(t, []int{0}, edges[1].Observables)
}
