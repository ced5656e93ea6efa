package herald

import (
	"fmt"
	"strings"

	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/predict"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/solver"
	"github.com/roach88/hyperdem/internal/weight"
)

func (m *Model) buildHeralds() {
	m.heraldOnce.Do(func() {
		m.heraldErr = m.computeHeralds()
	})
}

func (m *Model) computeHeralds() error {
	m.buildSkeleton()
	if m.skeletonErr != nil {
		return m.skeletonErr
	}
	m.heraldModels = make([]*dem.RefModel, len(m.heraldDetectors))
	m.faultMaps = make([]FaultMap, len(m.heraldDetectors))
	for h := range m.heraldDetectors {
		ref, err := m.heraldModel(h)
		if err != nil {
			return err
		}
		m.faultMaps[h] = FaultMap{}
		if ref == nil {
			continue
		}
		edges, err := ref.Hyperedges()
		if err != nil {
			return err
		}
		if len(edges) == 0 {
			m.logger.Debug("herald has no decoding effect", "detector", m.heraldIndices[h])
			continue
		}
		for _, e := range edges {
			idx, ok := m.skeletonIndex[e.Key()]
			if !ok {
				return newError(ErrCodeUnknownHeraldHyperedge, m.heraldIndices[h],
					"herald edge {%s} is missing from the skeleton", e.Key())
			}
			m.faultMaps[h][idx] = Fault{Probability: e.Probability, ObservableMask: e.ObservableMask()}
		}
		m.heraldModels[h] = ref
	}
	return nil
}

// heraldModel isolates the channel herald h guards: every other noise
// channel is removed and the guarded channel is applied with certainty to
// the heralded qubit only. It returns nil when the channel can never fire.
func (m *Model) heraldModel(h int) (*dem.RefModel, error) {
	c := m.circuit
	det, _ := c.Instruction(m.heraldDetectors[h])
	rec := det.Targets()[0].Rec
	ownerID, bias, err := c.Arena().Owner(rec)
	if err != nil {
		return nil, err
	}
	owner, ok := c.Instruction(ownerID)
	if !ok {
		return nil, newError(ErrCodeInternalConsistency, m.heraldIndices[h], "heralded instruction is not part of the circuit")
	}
	name, args, ok := noiseEquivalent(owner)
	if !ok {
		return nil, nil
	}

	isolated, err := c.RemoveNoiseChannels(ownerID)
	if err != nil {
		return nil, err
	}
	pos, ok := isolated.InstructionIndex(ownerID)
	if !ok {
		return nil, newError(ErrCodeInternalConsistency, m.heraldIndices[h], "heralded instruction removed with the noise")
	}
	certain, err := c.Arena().NewInstruction(name, owner.Tag(), args, []refcircuit.Target{owner.Targets()[bias]})
	if err != nil {
		return nil, err
	}
	circuit, err := rebuild(isolated, map[int]refcircuit.InstrID{pos: certain.ID()}, nil)
	if err != nil {
		return nil, fmt.Errorf("build herald circuit for D%d: %w", m.heraldIndices[h], err)
	}
	ref, err := dem.FromCircuit(circuit, m.analyzer, dem.WithLogger(m.logger))
	if err != nil {
		return nil, fmt.Errorf("herald error model for D%d: %w", m.heraldIndices[h], err)
	}
	return ref.WithCircuit(c), nil
}

// HeraldModels returns each herald's conditional error model in herald id
// order. Heralds without decoding effect have a nil entry.
func (m *Model) HeraldModels() ([]*dem.RefModel, error) {
	m.buildHeralds()
	return m.heraldModels, m.heraldErr
}

// FaultMap returns, per herald id, the skeleton edges the herald changes
// and their replacement faults. Heralds without decoding effect have an
// empty map, so herald ids stay aligned with detector order.
func (m *Model) FaultMap() ([]FaultMap, error) {
	m.buildHeralds()
	return m.faultMaps, m.heraldErr
}

// Initializer returns the decoding hypergraph: skeleton edges weighted by
// their clamped probability, and per herald the weights its edges take
// once it fires.
func (m *Model) Initializer() (solver.Initializer, error) {
	m.buildHeralds()
	if m.heraldErr != nil {
		return solver.Initializer{}, m.heraldErr
	}
	init := solver.Initializer{
		VertexNum:     m.circuit.NumDetectors(),
		WeightedEdges: make([]solver.HyperEdge, len(m.skeletonEdges)),
		Heralds:       make([]map[int]float64, len(m.faultMaps)),
	}
	for i, e := range m.skeletonEdges {
		init.WeightedEdges[i] = solver.HyperEdge{
			Vertices: e.Detectors,
			Weight:   weight.ProbabilityToWeight(e.Probability),
		}
	}
	for h, fm := range m.faultMaps {
		init.Heralds[h] = make(map[int]float64, len(fm))
		for e, f := range fm {
			init.Heralds[h][e] = weight.ProbabilityToWeight(f.Probability)
		}
	}
	return init, nil
}

// Predictor returns the heralded predictor of the decoding graph.
func (m *Model) Predictor() (*predict.Predictor, error) {
	m.buildHeralds()
	if m.heraldErr != nil {
		return nil, m.heraldErr
	}
	faults := make([]predict.Fault, len(m.skeletonEdges))
	for i, e := range m.skeletonEdges {
		faults[i] = predict.Fault{Probability: e.Probability, ObservableMask: e.ObservableMask()}
	}
	return predict.NewHeralded(faults, m.heraldIndices, m.faultMaps,
		m.circuit.NumDetectors(), m.skeleton.NumObservables())
}

// Summary renders the skeleton and each effective herald's hypergraph.
func (m *Model) Summary() (string, error) {
	edges, err := m.SkeletonHyperedges()
	if err != nil {
		return "", err
	}
	heralds, err := m.HeraldModels()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("HeraldedModel:\n    skeleton hypergraph:")
	writeEdges(&b, edges)
	for h, ref := range heralds {
		if ref == nil {
			continue
		}
		hedges, err := ref.Hyperedges()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n    heralded hypergraph on D%d:", m.heraldIndices[h])
		writeEdges(&b, hedges)
	}
	return b.String(), nil
}

func writeEdges(b *strings.Builder, edges []dem.Hyperedge) {
	for _, e := range edges {
		dets := make([]string, len(e.Detectors))
		for i, d := range e.Detectors {
			dets[i] = fmt.Sprintf("D%d", d)
		}
		obs := make([]string, len(e.Observables))
		for i, o := range e.Observables {
			obs[i] = fmt.Sprintf("L%d", o)
		}
		fmt.Fprintf(b, "\n        %s: %s (%s)", strings.Join(dets, ", "), native.FormatArg(e.Probability), strings.Join(obs, ", "))
	}
}

func (m *Model) String() string {
	s, err := m.Summary()
	if err != nil {
		return "HeraldedModel: " + err.Error()
	}
	return s
}
