package refcircuit

import (
	"fmt"
	"sync"

	"github.com/roach88/hyperdem/internal/native"
)

// InstrID identifies an instruction within its Arena.
type InstrID int32

// RecID identifies a single measurement outcome within its Arena.
type RecID int32

// Target is an instruction target: either a native (non-record) target or
// a measurement handle.
type Target struct {
	Native native.Target
	Rec    RecID
	IsRec  bool
}

// NativeTarget wraps a non-record native target.
func NativeTarget(t native.Target) Target {
	return Target{Native: t}
}

// RecTarget wraps a measurement handle.
func RecTarget(r RecID) Target {
	return Target{Rec: r, IsRec: true}
}

// Instruction is an immutable, arena-allocated instruction.
//
// Slices returned by accessors are shared and must not be modified.
type Instruction struct {
	id      InstrID
	name    string
	tag     string
	args    []float64
	targets []Target
	recs    []RecID
}

// ID returns the instruction's identity within its arena.
func (in *Instruction) ID() InstrID { return in.id }

// Name returns the gate name.
func (in *Instruction) Name() string { return in.name }

// Tag returns the free-form tag ("" when absent).
func (in *Instruction) Tag() string { return in.tag }

// Args returns the numeric arguments.
func (in *Instruction) Args() []float64 { return in.args }

// Targets returns the instruction targets.
func (in *Instruction) Targets() []Target { return in.targets }

// Recs returns the measurement handles produced, in bias order.
func (in *Instruction) Recs() []RecID { return in.recs }

// NumMeasurements returns len(Recs()).
func (in *Instruction) NumMeasurements() int { return len(in.recs) }

// IsNoiseChannel reports whether the instruction emits noise.
func (in *Instruction) IsNoiseChannel() bool { return native.IsNoiseChannel(in.name) }

// IsDetector reports whether the instruction is a DETECTOR.
func (in *Instruction) IsDetector() bool { return in.name == "DETECTOR" }

// recOwner records which instruction produced a handle and at which bias.
type recOwner struct {
	instr InstrID
	bias  int
}

// Arena owns instructions and measurement handles. Handles from different
// arenas never compare equal, even when their indices coincide.
type Arena struct {
	mu           sync.RWMutex
	instructions []*Instruction
	owners       []recOwner
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewInstruction allocates an instruction together with its measurement
// handles. The number of handles is fixed by the gate table.
//
// The instruction is not part of any circuit until added through a Builder.
func (a *Arena) NewInstruction(name, tag string, args []float64, targets []Target) (*Instruction, error) {
	if _, ok := native.LookupGate(name); !ok {
		return nil, newError(ErrCodeMalformed, -1, "unknown instruction %q", name)
	}
	nativeTargets := make([]native.Target, len(targets))
	for i, t := range targets {
		if t.IsRec {
			nativeTargets[i] = native.Rec(-1)
		} else {
			nativeTargets[i] = t.Native
		}
	}
	n := native.MeasurementCount(name, nativeTargets)

	a.mu.Lock()
	defer a.mu.Unlock()

	in := &Instruction{
		id:      InstrID(len(a.instructions)),
		name:    name,
		tag:     tag,
		args:    append([]float64(nil), args...),
		targets: append([]Target(nil), targets...),
		recs:    make([]RecID, n),
	}
	for bias := 0; bias < n; bias++ {
		in.recs[bias] = RecID(len(a.owners))
		a.owners = append(a.owners, recOwner{instr: in.id, bias: bias})
	}
	a.instructions = append(a.instructions, in)
	return in, nil
}

// Instruction returns the instruction with the given id.
func (a *Arena) Instruction(id InstrID) (*Instruction, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id < 0 || int(id) >= len(a.instructions) {
		return nil, newError(ErrCodeMalformed, -1, "instruction %d is not allocated in this arena", id)
	}
	return a.instructions[id], nil
}

// Owner returns the instruction that produced rec and the rec's bias
// among that instruction's outputs.
func (a *Arena) Owner(rec RecID) (InstrID, int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if rec < 0 || int(rec) >= len(a.owners) {
		return 0, 0, newError(ErrCodeMalformed, -1, "measurement %d is not allocated in this arena", rec)
	}
	o := a.owners[rec]
	return o.instr, o.bias, nil
}

// Len returns the number of instructions allocated so far.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.instructions)
}

func (a *Arena) String() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return fmt.Sprintf("Arena{instructions: %d, recs: %d}", len(a.instructions), len(a.owners))
}
