package refcircuit

import "sort"

// Clone returns a structurally identical circuit whose instructions and
// measurement handles are all fresh identities in the same arena.
//
// A circuit rejects duplicate instruction identities, so repeating a
// sub-circuit requires cloning it first.
func (c *Circuit) Clone() (*Circuit, error) {
	c.buildIndex()
	b := NewBuilder(c.arena)
	fresh := make([]RecID, 0, len(c.recs))
	for _, in := range c.instrs {
		targets := make([]Target, len(in.targets))
		for i, t := range in.targets {
			if t.IsRec {
				targets[i] = RecTarget(fresh[c.recIndex[t.Rec]])
			} else {
				targets[i] = t
			}
		}
		cloned, err := b.Append(in.name, in.tag, in.args, targets)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, cloned.recs...)
	}
	return b.Build()
}

// Slice returns the instructions in [i, j) as a new circuit sharing
// identities with c. It fails if the slice references measurements
// produced before i.
func (c *Circuit) Slice(i, j int) (*Circuit, error) {
	return FromInstructions(c.arena, c.IDs()[i:j])
}

// Concat returns c followed by other. Both circuits must share an arena
// and must not share instruction identities.
func (c *Circuit) Concat(other *Circuit) (*Circuit, error) {
	if other.arena != c.arena {
		return nil, newError(ErrCodeMalformed, -1, "cannot concatenate circuits from different arenas")
	}
	return FromInstructions(c.arena, append(c.IDs(), other.IDs()...))
}

// Without returns c with the instructions at the given positions removed.
// Positions must be distinct.
func (c *Circuit) Without(positions []int) (*Circuit, error) {
	deleting := make(map[int]bool, len(positions))
	for _, p := range positions {
		if deleting[p] {
			return nil, newError(ErrCodeInternalConsistency, p, "instruction deleted twice")
		}
		deleting[p] = true
	}
	ids := make([]InstrID, 0, len(c.instrs))
	for pos, in := range c.instrs {
		if !deleting[pos] {
			ids = append(ids, in.id)
		}
	}
	return FromInstructions(c.arena, ids)
}

// RemoveNoiseChannels removes every noise instruction not in keep, and every
// detector observing a measurement produced by a noise instruction (a herald
// detector) unless that detector is itself in keep.
//
// A herald detector is expected to observe exactly one measurement; anything
// else, and any position scheduled for deletion twice, is reported as an
// INTERNAL_CONSISTENCY error.
func (c *Circuit) RemoveNoiseChannels(keep ...InstrID) (*Circuit, error) {
	keepSet := make(map[InstrID]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	var deleting []int
	for pos, in := range c.instrs {
		if !in.IsNoiseChannel() {
			continue
		}
		if !keepSet[in.id] {
			deleting = append(deleting, pos)
		}
		for _, r := range in.recs {
			for _, det := range c.RecDetectors(r) {
				d := c.instruction(det)
				if len(d.targets) != 1 {
					idx, _ := c.DetectorIndex(det)
					return nil, newError(ErrCodeInternalConsistency, pos,
						"detector D%d of heralded measurement observes %d targets", idx, len(d.targets))
				}
				if !keepSet[det] {
					dpos, _ := c.InstructionIndex(det)
					deleting = append(deleting, dpos)
				}
			}
		}
	}
	sort.Ints(deleting)
	return c.Without(deleting)
}
