package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heraldedPredictor(t *testing.T) *Predictor {
	t.Helper()
	// D0..D2 are plain detectors, D3 and D4 are heralds 0 and 1.
	faults := []Fault{
		{Probability: 0.01, ObservableMask: 0b01},
		{Probability: 0.02, ObservableMask: 0b00},
		{Probability: 0.01, ObservableMask: 0b10},
	}
	heraldFaults := []map[int]Fault{
		{0: {Probability: 0.5, ObservableMask: 0b00}},
		{1: {Probability: 0.02, ObservableMask: 0b11}, 2: {Probability: 0.3, ObservableMask: 0b11}},
	}
	p, err := NewHeralded(faults, []int{3, 4}, heraldFaults, 5, 2)
	require.NoError(t, err)
	return p
}

func TestSyndromeOf(t *testing.T) {
	p := heraldedPredictor(t)

	s, err := p.SyndromeOf([]byte{0b11001})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Defects)
	assert.Equal(t, []int{0, 1}, s.Heralds)

	s, err = p.SyndromeOf([]byte{0})
	require.NoError(t, err)
	assert.Empty(t, s.Defects)
	assert.Empty(t, s.Heralds)

	_, err = p.SyndromeOf([]byte{0, 0})
	assert.Error(t, err)
}

func TestPredict(t *testing.T) {
	p := heraldedPredictor(t)

	tests := []struct {
		name     string
		heralds  []int
		subgraph []int
		want     uint64
	}{
		{"static", nil, []int{0, 2}, 0b11},
		{"empty subgraph", nil, nil, 0},
		{"herald replaces more likely fault", []int{0}, []int{0, 2}, 0b10},
		{"equal probability keeps static fault", []int{1}, []int{1}, 0b00},
		{"stronger herald entry wins", []int{1}, []int{2}, 0b11},
		{"unrelated herald is ignored", []int{0}, []int{2}, 0b10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Predict(Syndrome{Heralds: tt.heralds}, tt.subgraph)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := p.Predict(Syndrome{}, []int{3})
	assert.Error(t, err)
	_, err = p.Predict(Syndrome{Heralds: []int{2}}, []int{0})
	assert.Error(t, err)
}

func TestNewHeralded_Validation(t *testing.T) {
	faults := []Fault{{Probability: 0.1}}

	_, err := NewStatic(faults, 1, 65)
	assert.Error(t, err)

	_, err = NewHeralded(faults, []int{0}, nil, 1, 0)
	assert.Error(t, err)

	_, err = NewHeralded(faults, []int{1}, []map[int]Fault{{}}, 1, 0)
	assert.Error(t, err)

	_, err = NewHeralded(faults, []int{0, 0}, []map[int]Fault{{}, {}}, 1, 0)
	assert.Error(t, err)

	_, err = NewHeralded(faults, []int{0}, []map[int]Fault{{4: {}}}, 1, 0)
	assert.Error(t, err)

	p, err := NewStatic(faults, 9, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, p.DetectorBytes())
	assert.Equal(t, 8, p.ObservableBytes())
}

func TestBitPacking(t *testing.T) {
	packed := PackBits([]int{0, 3, 9}, 10)
	assert.Equal(t, []byte{0b1001, 0b10}, packed)
	assert.Equal(t, []int{0, 3, 9}, UnpackBits(packed, 10))
	assert.Equal(t, uint64(0b1000001001), MaskOf(packed, 10))

	assert.Equal(t, []byte{0x01, 0x02}, AppendMask(nil, 0x0201, 16))
	assert.Equal(t, []byte{0xff, 0x05}, AppendMask([]byte{0xff}, 0x05, 3))
	assert.Empty(t, AppendMask(nil, 0, 0))
	assert.Equal(t, []byte{0b101}, PackPrediction(0b101, 3))
	assert.Equal(t, 0, RecordBytes(0))
	assert.Equal(t, 1, RecordBytes(8))
	assert.Equal(t, 2, RecordBytes(9))
}
