package refcircuit

import (
	"fmt"
	"strings"

	"github.com/roach88/hyperdem/internal/native"
)

// FromNative builds a reference circuit in a fresh arena.
//
// REPEAT blocks are expanded. Every rec[-k] is resolved against the running
// list of measurement handles produced so far; a lookback before the start
// of the circuit, or a non-negative one naming a measurement not yet
// produced, fails with INVALID_CIRCUIT_REFERENCE.
func FromNative(c *native.Circuit) (*Circuit, error) {
	return FromNativeIn(NewArena(), c)
}

// FromNativeIn is FromNative allocating into an existing arena.
func FromNativeIn(arena *Arena, c *native.Circuit) (*Circuit, error) {
	b := NewBuilder(arena)
	var running []RecID
	for pos, in := range c.Instructions() {
		targets := make([]Target, len(in.Targets))
		for i, t := range in.Targets {
			if !t.IsRec() {
				targets[i] = NativeTarget(t)
				continue
			}
			abs := len(running) + t.Value
			if abs < 0 || abs >= len(running) {
				return nil, newError(ErrCodeInvalidReference, pos,
					"%s refers to %s but only %d measurements precede it", in.Name, t, len(running))
			}
			targets[i] = RecTarget(running[abs])
		}
		ref, err := b.Append(in.Name, in.Tag, in.Args, targets)
		if err != nil {
			return nil, err
		}
		running = append(running, ref.recs...)
	}
	return b.Build()
}

// ParseNative parses native circuit text into a reference circuit.
func ParseNative(text string) (*Circuit, error) {
	nc, err := native.Parse(text)
	if err != nil {
		return nil, err
	}
	return FromNative(nc)
}

// NativeInstructions renders every instruction with position-relative
// measurement lookbacks valid at its position.
func (c *Circuit) NativeInstructions() []*native.Instruction {
	c.buildIndex()
	out := make([]*native.Instruction, len(c.instrs))
	for pos, in := range c.instrs {
		targets := make([]native.Target, len(in.targets))
		for i, t := range in.targets {
			if t.IsRec {
				targets[i] = native.Rec(c.recIndex[t.Rec] - c.recBias[pos])
			} else {
				targets[i] = t.Native
			}
		}
		out[pos] = &native.Instruction{
			Name:    in.name,
			Tag:     in.tag,
			Args:    append([]float64(nil), in.args...),
			Targets: targets,
		}
	}
	return out
}

// ToNative renders the circuit in the position-relative native format.
// The result is flat (no REPEAT blocks).
func (c *Circuit) ToNative() *native.Circuit {
	out := &native.Circuit{}
	for _, in := range c.NativeInstructions() {
		out.Append(in)
	}
	return out
}

// String renders the circuit with absolute measurement handles (abs[n]).
// The output is for diagnostics only and is not valid native syntax.
func (c *Circuit) String() string {
	c.buildIndex()
	var b strings.Builder
	for pos, in := range c.instrs {
		if pos > 0 {
			b.WriteByte('\n')
		}
		rendered := make([]string, 0, len(in.targets))
		for _, t := range in.targets {
			if t.IsRec {
				rendered = append(rendered, fmt.Sprintf("abs[%d]", c.recIndex[t.Rec]))
			} else {
				rendered = append(rendered, t.Native.String())
			}
		}
		b.WriteString(native.FormatInstruction(in.name, in.tag, in.args, rendered))
	}
	return b.String()
}
