// Package herald models heralded errors: noise channels that also produce a
// measurement flagging that the error happened.
//
// A herald is a detector observing exactly one heralded measurement. The
// decoding hypergraph is split into a skeleton (heralds assumed silent,
// heralded channels kept at a tiny residual rate so every edge they could
// produce still exists) and, per herald, the edges that become likely once
// it fires. Herald ids are positions in detector order among herald
// detectors.
package herald

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/frame"
	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/predict"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/weight"
)

// DefaultFalsePositiveRate is the residual rate heralded channels keep in
// the skeleton.
const DefaultFalsePositiveRate = weight.DefaultProbabilityFloor

// Fault is the replacement distribution a herald assigns to a skeleton edge.
type Fault = predict.Fault

// FaultMap maps skeleton edge index to the edge's fault once the herald
// fires.
type FaultMap = map[int]Fault

// Model is the heralded decoding model of a circuit.
//
// Derived properties are computed once on first use. A Model is safe for
// concurrent use.
type Model struct {
	circuit           *refcircuit.Circuit
	falsePositiveRate float64
	floor             float64
	analyzer          dem.Analyzer
	logger            *slog.Logger

	heraldedInstrs  []*refcircuit.Instruction
	heraldDetectors []refcircuit.InstrID
	heraldIndices   []int
	heraldOf        map[int]int

	skeletonOnce    sync.Once
	skeletonCircuit *refcircuit.Circuit
	skeleton        *dem.RefModel
	skeletonEdges   []dem.Hyperedge
	skeletonIndex   map[string]int
	skeletonErr     error

	heraldOnce   sync.Once
	heraldModels []*dem.RefModel
	faultMaps    []FaultMap
	heraldErr    error
}

// Option configures a Model.
type Option func(*Model)

// WithFalsePositiveRate sets the residual rate heralded channels keep in
// the skeleton.
func WithFalsePositiveRate(rate float64) Option {
	return func(m *Model) { m.falsePositiveRate = rate }
}

// WithProbabilityFloor sets the smallest non-zero skeleton probability.
func WithProbabilityFloor(floor float64) Option {
	return func(m *Model) { m.floor = floor }
}

// WithAnalyzer sets the error model analyzer. Defaults to the Pauli frame
// analyzer.
func WithAnalyzer(a dem.Analyzer) Option {
	return func(m *Model) { m.analyzer = a }
}

// WithLogger sets the logger used for canonicalization diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// New builds the heralded model of c.
//
// Every heralded measurement must be observed by at most one detector, and
// that detector must observe nothing else.
func New(c *refcircuit.Circuit, opts ...Option) (*Model, error) {
	m := &Model{
		circuit:           c,
		falsePositiveRate: DefaultFalsePositiveRate,
		floor:             weight.DefaultProbabilityFloor,
		heraldOf:          make(map[int]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.analyzer == nil {
		m.analyzer = frame.New()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.falsePositiveRate < 0 || m.falsePositiveRate > 1 {
		return nil, fmt.Errorf("false positive rate %v outside [0, 1]", m.falsePositiveRate)
	}
	if m.floor < 0 || m.floor >= 0.5 {
		return nil, fmt.Errorf("probability floor %v outside [0, 0.5)", m.floor)
	}

	heraldDetectors := make(map[refcircuit.InstrID]bool)
	for _, in := range c.Instructions() {
		if !native.IsHeralded(in.Name()) {
			continue
		}
		m.heraldedInstrs = append(m.heraldedInstrs, in)
		for _, rec := range in.Recs() {
			dets := c.RecDetectors(rec)
			if len(dets) > 1 {
				first, _ := c.DetectorIndex(dets[0])
				return nil, newError(ErrCodeMultiplyDetectedHerald, first,
					"heralded measurement %s is observed by %d detectors", absRec(c, rec), len(dets))
			}
			for _, det := range dets {
				d, _ := c.Instruction(det)
				if len(d.Targets()) != 1 {
					idx, _ := c.DetectorIndex(det)
					return nil, newError(ErrCodeCompositeHeraldDetector, idx,
						"herald detector observes %d measurements", len(d.Targets()))
				}
				heraldDetectors[det] = true
			}
		}
	}
	for idx, det := range c.Detectors() {
		if heraldDetectors[det] {
			m.heraldOf[idx] = len(m.heraldDetectors)
			m.heraldDetectors = append(m.heraldDetectors, det)
			m.heraldIndices = append(m.heraldIndices, idx)
		}
	}
	return m, nil
}

func absRec(c *refcircuit.Circuit, rec refcircuit.RecID) string {
	i, _ := c.RecIndex(rec)
	return fmt.Sprintf("abs[%d]", i)
}

// Circuit returns the circuit the model was built from.
func (m *Model) Circuit() *refcircuit.Circuit { return m.circuit }

// FalsePositiveRate returns the residual rate of heralded channels.
func (m *Model) FalsePositiveRate() float64 { return m.falsePositiveRate }

// HeraldedInstructions returns the heralded noise instructions in circuit
// order.
func (m *Model) HeraldedInstructions() []*refcircuit.Instruction {
	return m.heraldedInstrs
}

// HeraldedMeasurements returns every measurement produced by a heralded
// instruction.
func (m *Model) HeraldedMeasurements() []refcircuit.RecID {
	var out []refcircuit.RecID
	for _, in := range m.heraldedInstrs {
		out = append(out, in.Recs()...)
	}
	return out
}

// UndetectedHeraldedMeasurements returns heralded measurements no detector
// observes.
func (m *Model) UndetectedHeraldedMeasurements() []refcircuit.RecID {
	var out []refcircuit.RecID
	for _, rec := range m.HeraldedMeasurements() {
		if len(m.circuit.RecDetectors(rec)) == 0 {
			out = append(out, rec)
		}
	}
	return out
}

// Heralds returns the herald detectors in herald id order.
func (m *Model) Heralds() []refcircuit.InstrID {
	return m.heraldDetectors
}

// HeraldDetectorIndices returns the detector index of each herald.
func (m *Model) HeraldDetectorIndices() []int {
	return m.heraldIndices
}

// NumHeralds returns the number of heralds.
func (m *Model) NumHeralds() int {
	return len(m.heraldDetectors)
}

// HeraldOf returns the herald id of a detector index.
func (m *Model) HeraldOf(detector int) (int, bool) {
	h, ok := m.heraldOf[detector]
	return h, ok
}

// noiseEquivalent returns the non-heralded channel a heralded instruction
// applies when its herald fires, or ok=false when it can never fire.
func noiseEquivalent(in *refcircuit.Instruction) (name string, args []float64, ok bool) {
	a := in.Args()
	switch in.Name() {
	case "HERALDED_ERASE":
		if a[0] == 0 {
			return "", nil, false
		}
		return "DEPOLARIZE1", []float64{0.75}, true
	case "HERALDED_PAULI_CHANNEL_1":
		pI, pX, pY, pZ := a[0], a[1], a[2], a[3]
		if pX+pY+pZ == 0 {
			return "", nil, false
		}
		sum := pI + pX + pY + pZ
		return "PAULI_CHANNEL_1", []float64{pX / sum, pY / sum, pZ / sum}, true
	}
	return "", nil, false
}
