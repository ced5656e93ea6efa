package herald

import (
	"fmt"
	"slices"

	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/weight"
)

// rebuild returns c with the instructions at the given positions replaced
// and the positions in deleting removed.
func rebuild(c *refcircuit.Circuit, replace map[int]refcircuit.InstrID, deleting []int) (*refcircuit.Circuit, error) {
	seen := make(map[int]bool, len(deleting))
	for _, pos := range deleting {
		if seen[pos] {
			return nil, newError(ErrCodeInternalConsistency, -1, "instruction %d deleted twice", pos)
		}
		seen[pos] = true
	}
	ids := make([]refcircuit.InstrID, 0, c.Len())
	for pos, id := range c.IDs() {
		if seen[pos] {
			continue
		}
		if r, ok := replace[pos]; ok {
			id = r
		}
		ids = append(ids, id)
	}
	return refcircuit.FromInstructions(c.Arena(), ids)
}

func (m *Model) buildSkeleton() {
	m.skeletonOnce.Do(func() {
		m.skeletonErr = m.computeSkeleton()
	})
}

func (m *Model) computeSkeleton() error {
	c := m.circuit
	replace := make(map[int]refcircuit.InstrID)
	var deleting []int
	for _, in := range m.heraldedInstrs {
		pos, _ := c.InstructionIndex(in.ID())
		name, args, ok := noiseEquivalent(in)
		if !ok {
			deleting = append(deleting, pos)
			continue
		}
		scaled := make([]float64, len(args))
		for i, p := range args {
			scaled[i] = weight.ClampProbability(p*m.falsePositiveRate, m.floor)
		}
		residual, err := c.Arena().NewInstruction(name, in.Tag(), scaled, in.Targets())
		if err != nil {
			return err
		}
		replace[pos] = residual.ID()
	}
	for _, det := range m.heraldDetectors {
		pos, _ := c.InstructionIndex(det)
		deleting = append(deleting, pos)
	}
	slices.Sort(deleting)

	skeleton, err := rebuild(c, replace, deleting)
	if err != nil {
		return fmt.Errorf("build skeleton circuit: %w", err)
	}
	ref, err := dem.FromCircuit(skeleton, m.analyzer, dem.WithLogger(m.logger))
	if err != nil {
		return fmt.Errorf("skeleton error model: %w", err)
	}
	ref = ref.WithCircuit(c)
	edges, err := ref.Hyperedges()
	if err != nil {
		return err
	}
	index, err := ref.HyperedgeIndex()
	if err != nil {
		return err
	}

	m.skeletonCircuit = skeleton
	m.skeleton = ref
	m.skeletonEdges = make([]dem.Hyperedge, len(edges))
	for i, e := range edges {
		e.Probability = weight.ClampProbability(e.Probability, m.floor)
		m.skeletonEdges[i] = e
	}
	m.skeletonIndex = index
	return nil
}

// SkeletonCircuit returns the circuit with every heralded channel reduced to
// its residual rate and every herald detector removed.
func (m *Model) SkeletonCircuit() (*refcircuit.Circuit, error) {
	m.buildSkeleton()
	return m.skeletonCircuit, m.skeletonErr
}

// Skeleton returns the skeleton error model numbered against the original
// circuit's detectors.
func (m *Model) Skeleton() (*dem.RefModel, error) {
	m.buildSkeleton()
	return m.skeleton, m.skeletonErr
}

// SkeletonHyperedges returns the skeleton hyperedges with probabilities
// raised to the probability floor. Index i is edge i of the decoding graph.
func (m *Model) SkeletonHyperedges() ([]dem.Hyperedge, error) {
	m.buildSkeleton()
	return m.skeletonEdges, m.skeletonErr
}

// NumObservables returns the observable count of the decoding graph.
func (m *Model) NumObservables() (int, error) {
	m.buildSkeleton()
	if m.skeletonErr != nil {
		return 0, m.skeletonErr
	}
	return m.skeleton.NumObservables(), nil
}
