package refcircuit

import (
	"sync"

	"github.com/roach88/hyperdem/internal/native"
)

// Circuit is an immutable sequence of arena instructions.
type Circuit struct {
	arena  *Arena
	instrs []*Instruction

	indexOnce        sync.Once
	recs             []RecID
	recIndex         map[RecID]int
	instructionIndex map[InstrID]int
	recBias          []int

	detectorOnce  sync.Once
	detectors     []InstrID
	detectorIndex map[InstrID]int
	recDetectors  map[RecID][]InstrID
}

// Arena returns the arena the circuit's handles live in.
func (c *Circuit) Arena() *Arena {
	return c.arena
}

// Len returns the number of instructions.
func (c *Circuit) Len() int {
	return len(c.instrs)
}

// At returns the instruction at position i.
func (c *Circuit) At(i int) *Instruction {
	return c.instrs[i]
}

// Instructions returns the instruction sequence. The slice is shared and
// must not be modified.
func (c *Circuit) Instructions() []*Instruction {
	return c.instrs
}

// IDs returns a copy of the instruction identities, in order.
func (c *Circuit) IDs() []InstrID {
	ids := make([]InstrID, len(c.instrs))
	for i, in := range c.instrs {
		ids[i] = in.id
	}
	return ids
}

func (c *Circuit) buildIndex() {
	c.indexOnce.Do(func() {
		c.instructionIndex = make(map[InstrID]int, len(c.instrs))
		c.recBias = make([]int, len(c.instrs))
		for i, in := range c.instrs {
			c.instructionIndex[in.id] = i
			c.recBias[i] = len(c.recs)
			c.recs = append(c.recs, in.recs...)
		}
		c.recIndex = make(map[RecID]int, len(c.recs))
		for i, r := range c.recs {
			c.recIndex[r] = i
		}
	})
}

func (c *Circuit) buildDetectors() {
	c.detectorOnce.Do(func() {
		c.detectorIndex = make(map[InstrID]int)
		c.recDetectors = make(map[RecID][]InstrID)
		for _, in := range c.instrs {
			if !in.IsDetector() {
				continue
			}
			c.detectorIndex[in.id] = len(c.detectors)
			c.detectors = append(c.detectors, in.id)
			for _, t := range in.targets {
				if t.IsRec {
					c.recDetectors[t.Rec] = append(c.recDetectors[t.Rec], in.id)
				}
			}
		}
	})
}

// Recs returns every measurement handle in production order.
func (c *Circuit) Recs() []RecID {
	c.buildIndex()
	return c.recs
}

// NumMeasurements returns the number of measurement handles.
func (c *Circuit) NumMeasurements() int {
	return len(c.Recs())
}

// RecIndex returns the absolute index of rec, or false if rec does not
// belong to this circuit.
func (c *Circuit) RecIndex(rec RecID) (int, bool) {
	c.buildIndex()
	i, ok := c.recIndex[rec]
	return i, ok
}

// InstructionIndex returns the position of the instruction, or false.
func (c *Circuit) InstructionIndex(id InstrID) (int, bool) {
	c.buildIndex()
	i, ok := c.instructionIndex[id]
	return i, ok
}

// RecBias returns the absolute index of the first measurement handle
// produced by the instruction, or false if it is not in the circuit.
func (c *Circuit) RecBias(id InstrID) (int, bool) {
	i, ok := c.InstructionIndex(id)
	if !ok {
		return 0, false
	}
	return c.recBias[i], true
}

// RelIndex returns the lookback offset (negative) at which rec is addressed
// by the instruction at position i.
func (c *Circuit) RelIndex(rec RecID, position int) (int, bool) {
	c.buildIndex()
	abs, ok := c.recIndex[rec]
	if !ok || position < 0 || position >= len(c.instrs) {
		return 0, false
	}
	return abs - c.recBias[position], true
}

// Detectors returns every DETECTOR instruction in order.
func (c *Circuit) Detectors() []InstrID {
	c.buildDetectors()
	return c.detectors
}

// NumDetectors returns the number of detectors.
func (c *Circuit) NumDetectors() int {
	return len(c.Detectors())
}

// DetectorIndex returns the absolute detector index of id, or false.
func (c *Circuit) DetectorIndex(id InstrID) (int, bool) {
	c.buildDetectors()
	i, ok := c.detectorIndex[id]
	return i, ok
}

// RecDetectors returns the detectors observing rec, in detector order.
func (c *Circuit) RecDetectors(rec RecID) []InstrID {
	c.buildDetectors()
	return c.recDetectors[rec]
}

// instruction looks up an instruction known to be in the circuit.
func (c *Circuit) instruction(id InstrID) *Instruction {
	i, ok := c.InstructionIndex(id)
	if !ok {
		return nil
	}
	return c.instrs[i]
}

// Instruction returns the instruction with the given id if it is part of
// this circuit.
func (c *Circuit) Instruction(id InstrID) (*Instruction, bool) {
	in := c.instruction(id)
	return in, in != nil
}

// sanityCheck validates invariants not already enforced by the Builder.
func (c *Circuit) sanityCheck() error {
	for pos, in := range c.instrs {
		for bias, r := range in.recs {
			owner, b, err := c.arena.Owner(r)
			if err != nil {
				return newError(ErrCodeMalformed, pos, "instruction %s holds a foreign measurement handle", in.name)
			}
			if owner != in.id || b != bias {
				return newError(ErrCodeMalformed, pos,
					"measurement %d claims owner %d bias %d, expected %d bias %d", r, owner, b, in.id, bias)
			}
		}
		rendered := make([]native.Target, len(in.targets))
		for i, t := range in.targets {
			if t.IsRec {
				rendered[i] = native.Rec(-1)
			} else {
				rendered[i] = t.Native
			}
		}
		if want := native.MeasurementCount(in.name, rendered); want != len(in.recs) {
			return newError(ErrCodeMalformed, pos,
				"instruction %s produces %d measurements but its native form implies %d", in.name, len(in.recs), want)
		}
		if in.IsDetector() {
			for _, t := range in.targets {
				if !t.IsRec {
					return newError(ErrCodeMalformed, pos, "detector targets %s, which is not a measurement", t.Native)
				}
			}
		}
	}
	return nil
}
