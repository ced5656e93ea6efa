package dem

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/weight"
)

// AnalyzeOptions controls error model extraction.
type AnalyzeOptions struct {
	// ApproximateDisjointErrors reports each branch of a disjoint channel
	// as an independent mechanism with the branch probability.
	ApproximateDisjointErrors bool
}

// Analyzer computes the flattened error model of a native circuit.
type Analyzer interface {
	ErrorModel(c *native.Circuit, opts AnalyzeOptions) (*Model, error)
}

// RefTarget is a RefModel instruction target. Detector targets are held as
// detector instruction identities instead of indices.
type RefTarget struct {
	Kind     TargetKind
	Detector refcircuit.InstrID // valid when Kind == TargetDetector
	Value    int                // observable id or bare number
}

// RefInstruction is a flattened error model instruction with detector
// identities.
type RefInstruction struct {
	Type    string
	Args    []float64
	Targets []RefTarget
}

// RefModel is a flattened error model whose detector references are
// identities in a reference circuit. Re-pointing the model at another
// circuit sharing those identities (WithCircuit) re-expresses it against
// that circuit's detector numbering.
type RefModel struct {
	instructions []RefInstruction
	circuit      *refcircuit.Circuit
	logger       *slog.Logger

	once       sync.Once
	hyperedges []Hyperedge
	index      map[string]int
	err        error
}

// ModelError reports a detector reference that cannot be resolved.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	return "UNKNOWN_DETECTOR: " + e.Message
}

// IsUnknownDetector reports whether err is a ModelError.
func IsUnknownDetector(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// Option configures a RefModel.
type Option func(*RefModel)

// WithLogger sets the logger used for canonicalization diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *RefModel) { m.logger = l }
}

// FromCircuit asks analyzer for the error model of c (approximate disjoint
// errors mode) and rewrites its detector references into c's detectors.
func FromCircuit(c *refcircuit.Circuit, analyzer Analyzer, opts ...Option) (*RefModel, error) {
	m, err := analyzer.ErrorModel(c.ToNative(), AnalyzeOptions{ApproximateDisjointErrors: true})
	if err != nil {
		return nil, fmt.Errorf("analyze circuit: %w", err)
	}
	return FromModel(m, c, opts...)
}

// FromModel binds a model to circuit c. When c is nil a stand-in circuit
// with one constant detector per model detector supplies the identities.
func FromModel(m *Model, c *refcircuit.Circuit, opts ...Option) (*RefModel, error) {
	if c == nil {
		var err error
		c, err = standInCircuit(m.NumDetectors())
		if err != nil {
			return nil, err
		}
	}
	dets := c.Detectors()
	var instructions []RefInstruction
	for _, it := range m.Flattened().Items {
		in := it.(*Instruction)
		ref := RefInstruction{Type: in.Type, Args: append([]float64(nil), in.Args...)}
		for _, t := range in.Targets {
			if t.Kind == TargetDetector {
				if t.Value >= len(dets) {
					return nil, &ModelError{Message: fmt.Sprintf("D%d is out of range for a circuit with %d detectors", t.Value, len(dets))}
				}
				ref.Targets = append(ref.Targets, RefTarget{Kind: TargetDetector, Detector: dets[t.Value]})
				continue
			}
			ref.Targets = append(ref.Targets, RefTarget{Kind: t.Kind, Value: t.Value})
		}
		instructions = append(instructions, ref)
	}
	rm := &RefModel{instructions: instructions, circuit: c}
	for _, opt := range opts {
		opt(rm)
	}
	if rm.logger == nil {
		rm.logger = slog.Default()
	}
	return rm, nil
}

// standInCircuit builds R, M and one DETECTOR per detector.
func standInCircuit(n int) (*refcircuit.Circuit, error) {
	if n == 0 {
		return refcircuit.FromNative(&native.Circuit{})
	}
	var b strings.Builder
	b.WriteString("R")
	for q := 0; q < n; q++ {
		fmt.Fprintf(&b, " %d", q)
	}
	b.WriteString("\nM")
	for q := 0; q < n; q++ {
		fmt.Fprintf(&b, " %d", q)
	}
	for d := 0; d < n; d++ {
		fmt.Fprintf(&b, "\nDETECTOR rec[%d]", d-n)
	}
	return refcircuit.ParseNative(b.String())
}

// Circuit returns the circuit the model's detectors are numbered against.
func (m *RefModel) Circuit() *refcircuit.Circuit {
	return m.circuit
}

// Instructions returns the flattened instructions. Shared; do not modify.
func (m *RefModel) Instructions() []RefInstruction {
	return m.instructions
}

// WithCircuit returns the same model numbered against c, which must contain
// every referenced detector identity.
func (m *RefModel) WithCircuit(c *refcircuit.Circuit) *RefModel {
	return &RefModel{instructions: m.instructions, circuit: c, logger: m.logger}
}

// Model converts back to a plain model with detector indices of the bound
// circuit.
func (m *RefModel) Model() (*Model, error) {
	out := &Model{}
	for _, in := range m.instructions {
		plain := &Instruction{Type: in.Type, Args: append([]float64(nil), in.Args...)}
		for _, t := range in.Targets {
			if t.Kind == TargetDetector {
				idx, err := m.detectorIndex(t.Detector)
				if err != nil {
					return nil, err
				}
				plain.Targets = append(plain.Targets, D(idx))
				continue
			}
			plain.Targets = append(plain.Targets, Target{Kind: t.Kind, Value: t.Value})
		}
		out.Append(plain)
	}
	return out, nil
}

func (m *RefModel) detectorIndex(id refcircuit.InstrID) (int, error) {
	idx, ok := m.circuit.DetectorIndex(id)
	if !ok {
		return 0, &ModelError{Message: fmt.Sprintf("detector instruction %d is not part of the bound circuit", id)}
	}
	return idx, nil
}

// Mechanisms returns the error mechanisms with detectors numbered against
// the bound circuit.
func (m *RefModel) Mechanisms() ([]Mechanism, error) {
	var out []Mechanism
	for _, in := range m.instructions {
		if in.Type != TypeError {
			continue
		}
		mech := Mechanism{Probability: in.Args[0]}
		for _, t := range in.Targets {
			switch t.Kind {
			case TargetDetector:
				idx, err := m.detectorIndex(t.Detector)
				if err != nil {
					return nil, err
				}
				mech.Detectors = append(mech.Detectors, idx)
			case TargetObservable:
				mech.Observables = append(mech.Observables, t.Value)
			}
		}
		out = append(out, mech)
	}
	return out, nil
}

func (m *RefModel) canonicalize() {
	m.once.Do(func() {
		mechs, err := m.Mechanisms()
		if err != nil {
			m.err = err
			return
		}
		m.hyperedges, m.index = Canonicalize(mechs, m.logger)
	})
}

// Hyperedges returns the canonical hyperedges, computed once.
func (m *RefModel) Hyperedges() ([]Hyperedge, error) {
	m.canonicalize()
	return m.hyperedges, m.err
}

// HyperedgeIndex returns the detector-set-key to hyperedge index map.
func (m *RefModel) HyperedgeIndex() (map[string]int, error) {
	m.canonicalize()
	return m.index, m.err
}

// NumDetectors returns the detector count of the bound circuit.
func (m *RefModel) NumDetectors() int {
	return m.circuit.NumDetectors()
}

// NumObservables returns one more than the largest observable referenced
// by the model or declared by the bound circuit.
func (m *RefModel) NumObservables() int {
	n := m.circuit.ToNative().NumObservables()
	for _, in := range m.instructions {
		for _, t := range in.Targets {
			if t.Kind == TargetObservable && t.Value+1 > n {
				n = t.Value + 1
			}
		}
	}
	return n
}

// Weights returns the weight of each hyperedge.
func Weights(edges []Hyperedge) []float64 {
	out := make([]float64, len(edges))
	for i, e := range edges {
		out[i] = weight.ProbabilityToWeight(e.Probability)
	}
	return out
}
