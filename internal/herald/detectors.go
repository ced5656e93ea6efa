package herald

import (
	"github.com/roach88/hyperdem/internal/native"
	"github.com/roach88/hyperdem/internal/refcircuit"
)

// AddHeraldDetectors returns c with a DETECTOR inserted right after each
// heralded instruction for every measurement of it that no detector
// observes. Inserted detectors follow the measurement order.
func AddHeraldDetectors(c *refcircuit.Circuit) (*refcircuit.Circuit, error) {
	b := refcircuit.NewBuilder(c.Arena())
	for _, in := range c.Instructions() {
		if err := b.Add(in.ID()); err != nil {
			return nil, err
		}
		if !native.IsHeralded(in.Name()) {
			continue
		}
		for _, rec := range in.Recs() {
			if len(c.RecDetectors(rec)) > 0 {
				continue
			}
			if _, err := b.Append("DETECTOR", "", nil, []refcircuit.Target{refcircuit.RecTarget(rec)}); err != nil {
				return nil, err
			}
		}
	}
	return b.Build()
}

// RemoveHeraldDetectors returns c without the detectors that observe a
// heralded measurement. Such a detector must observe that measurement only;
// a detector mixing it with other measurements is a
// COMPOSITE_HERALD_DETECTOR error.
func RemoveHeraldDetectors(c *refcircuit.Circuit) (*refcircuit.Circuit, error) {
	heralded := make(map[refcircuit.RecID]bool)
	for _, in := range c.Instructions() {
		if native.IsHeralded(in.Name()) {
			for _, rec := range in.Recs() {
				heralded[rec] = true
			}
		}
	}
	var deleting []int
	for idx, det := range c.Detectors() {
		d, _ := c.Instruction(det)
		observesHerald := false
		for _, t := range d.Targets() {
			if t.IsRec && heralded[t.Rec] {
				observesHerald = true
				break
			}
		}
		if !observesHerald {
			continue
		}
		if len(d.Targets()) != 1 {
			return nil, newError(ErrCodeCompositeHeraldDetector, idx,
				"detector mixes a heralded measurement with %d other targets", len(d.Targets())-1)
		}
		pos, _ := c.InstructionIndex(det)
		deleting = append(deleting, pos)
	}
	return c.Without(deleting)
}
