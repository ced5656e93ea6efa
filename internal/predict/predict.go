// Package predict turns bit-packed detection events into decoder syndromes
// and a decoder's chosen edges back into a logical-observable correction.
//
// Records are bit-packed little-endian: bit i of a record is byte i/8,
// bit i%8. A detection record is ceil(numDetectors/8) bytes and a
// prediction record ceil(numObservables/8) bytes.
package predict

import (
	"fmt"
	"slices"
)

// MaxObservables is the number of observables a prediction mask can hold.
const MaxObservables = 64

// Fault is an edge's error distribution as seen by the predictor: the
// probability of its most likely branch and that branch's observable flips.
type Fault struct {
	Probability    float64
	ObservableMask uint64
}

// Syndrome is one shot's detector firing pattern split for the decoder.
//
// Defects are fired non-herald detector indices; Heralds are the herald
// ids (positions in herald order, not detector indices) that fired.
type Syndrome struct {
	Defects []int
	Heralds []int
}

// Predictor maps chosen edges to an observable correction.
//
// A Predictor is immutable and safe for concurrent use.
type Predictor struct {
	faults         []Fault
	heraldOf       map[int]int
	heraldFaults   []map[int]Fault
	numDetectors   int
	numObservables int
}

// NewStatic creates a predictor without heralds: each edge's observable
// mask is fixed.
func NewStatic(faults []Fault, numDetectors, numObservables int) (*Predictor, error) {
	return NewHeralded(faults, nil, nil, numDetectors, numObservables)
}

// NewHeralded creates a predictor. heraldDetectors[h] is the detector index
// of herald h and heraldFaults[h] maps edge index to the fault that edge
// takes when herald h fires.
func NewHeralded(faults []Fault, heraldDetectors []int, heraldFaults []map[int]Fault, numDetectors, numObservables int) (*Predictor, error) {
	if numObservables > MaxObservables {
		return nil, fmt.Errorf("%d observables exceed the supported maximum of %d", numObservables, MaxObservables)
	}
	if len(heraldDetectors) != len(heraldFaults) {
		return nil, fmt.Errorf("%d herald detectors but %d herald fault maps", len(heraldDetectors), len(heraldFaults))
	}
	heraldOf := make(map[int]int, len(heraldDetectors))
	for h, d := range heraldDetectors {
		if d < 0 || d >= numDetectors {
			return nil, fmt.Errorf("herald %d detector D%d out of range", h, d)
		}
		if _, dup := heraldOf[d]; dup {
			return nil, fmt.Errorf("detector D%d registered as two heralds", d)
		}
		heraldOf[d] = h
	}
	for h, m := range heraldFaults {
		for e := range m {
			if e < 0 || e >= len(faults) {
				return nil, fmt.Errorf("herald %d references edge %d of %d", h, e, len(faults))
			}
		}
	}
	return &Predictor{
		faults:         slices.Clone(faults),
		heraldOf:       heraldOf,
		heraldFaults:   heraldFaults,
		numDetectors:   numDetectors,
		numObservables: numObservables,
	}, nil
}

// NumDetectors returns the detector count.
func (p *Predictor) NumDetectors() int { return p.numDetectors }

// NumObservables returns the observable count.
func (p *Predictor) NumObservables() int { return p.numObservables }

// NumEdges returns the number of edges the predictor knows.
func (p *Predictor) NumEdges() int { return len(p.faults) }

// DetectorBytes returns the size of one packed detection record.
func (p *Predictor) DetectorBytes() int { return RecordBytes(p.numDetectors) }

// ObservableBytes returns the size of one packed prediction record.
func (p *Predictor) ObservableBytes() int { return RecordBytes(p.numObservables) }

// SyndromeOf splits a packed detection record into defects and heralds.
// Defects and heralds are disjoint and together cover every fired detector.
func (p *Predictor) SyndromeOf(packed []byte) (Syndrome, error) {
	if len(packed) != p.DetectorBytes() {
		return Syndrome{}, fmt.Errorf("detection record has %d bytes, expected %d", len(packed), p.DetectorBytes())
	}
	var s Syndrome
	for _, d := range UnpackBits(packed, p.numDetectors) {
		if h, ok := p.heraldOf[d]; ok {
			s.Heralds = append(s.Heralds, h)
		} else {
			s.Defects = append(s.Defects, d)
		}
	}
	slices.Sort(s.Heralds)
	return s, nil
}

// Predict returns the observable correction of the chosen edges.
//
// Each edge starts from its static fault. For every fired herald with an
// entry for that edge, a strictly more probable entry replaces both the
// probability and the observable mask. The final masks are XORed together.
func (p *Predictor) Predict(s Syndrome, subgraph []int) (uint64, error) {
	var prediction uint64
	for _, e := range subgraph {
		if e < 0 || e >= len(p.faults) {
			return 0, fmt.Errorf("edge %d out of range (%d edges)", e, len(p.faults))
		}
		f := p.faults[e]
		for _, h := range s.Heralds {
			if h < 0 || h >= len(p.heraldFaults) {
				return 0, fmt.Errorf("herald %d out of range (%d heralds)", h, len(p.heraldFaults))
			}
			if hf, ok := p.heraldFaults[h][e]; ok && hf.Probability > f.Probability {
				f = hf
			}
		}
		prediction ^= f.ObservableMask
	}
	return prediction, nil
}

// RecordBytes returns ceil(n/8).
func RecordBytes(n int) int {
	return (n + 7) / 8
}

// UnpackBits returns the indices of set bits among the first n bits.
func UnpackBits(packed []byte, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if packed[i/8]&(1<<uint(i%8)) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// PackBits sets the listed bit indices in a fresh record of ceil(n/8) bytes.
func PackBits(indices []int, n int) []byte {
	out := make([]byte, RecordBytes(n))
	for _, i := range indices {
		out[i/8] |= 1 << uint(i%8)
	}
	return out
}

// PackPrediction returns mask as a packed record of ceil(n/8) bytes.
func PackPrediction(mask uint64, n int) []byte {
	return AppendMask(make([]byte, 0, RecordBytes(n)), mask, n)
}

// AppendMask appends mask as a packed record of ceil(n/8) bytes.
func AppendMask(dst []byte, mask uint64, n int) []byte {
	for i := 0; i < RecordBytes(n); i++ {
		dst = append(dst, byte(mask>>(8*uint(i))))
	}
	return dst
}

// MaskOf reads a packed record of n bits back into a mask.
func MaskOf(packed []byte, n int) uint64 {
	var mask uint64
	for _, i := range UnpackBits(packed, n) {
		mask |= 1 << uint(i)
	}
	return mask
}
