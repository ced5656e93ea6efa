package native

import (
	"strconv"
	"strings"
)

// Instruction is one line of a native circuit.
type Instruction struct {
	Name    string
	Tag     string
	Args    []float64
	Targets []Target
}

// NumMeasurements returns the number of measurement outcomes produced.
func (in *Instruction) NumMeasurements() int {
	return MeasurementCount(in.Name, in.Targets)
}

// Copy returns a deep copy of the instruction.
func (in *Instruction) Copy() *Instruction {
	return &Instruction{
		Name:    in.Name,
		Tag:     in.Tag,
		Args:    append([]float64(nil), in.Args...),
		Targets: append([]Target(nil), in.Targets...),
	}
}

// String renders the instruction in native syntax.
func (in *Instruction) String() string {
	return FormatInstruction(in.Name, in.Tag, in.Args, renderTargets(in.Targets))
}

// FormatInstruction renders an instruction header followed by already
// rendered targets. It is shared with renderers that replace the target
// syntax (for example absolute measurement handles).
func FormatInstruction(name, tag string, args []float64, targets []string) string {
	var b strings.Builder
	b.WriteString(name)
	if tag != "" {
		b.WriteByte('[')
		b.WriteString(tag)
		b.WriteByte(']')
	}
	if len(args) > 0 {
		b.WriteByte('(')
		for i, a := range args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatArg(a))
		}
		b.WriteByte(')')
	}
	for _, t := range targets {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return b.String()
}

// FormatArg renders a numeric argument as the shortest decimal that
// parses back to the same float64.
func FormatArg(a float64) string {
	return strconv.FormatFloat(a, 'g', -1, 64)
}

// renderTargets glues combiner-joined Pauli terms into one token (X0*Z1).
func renderTargets(targets []Target) []string {
	out := make([]string, 0, len(targets))
	glue := false
	for _, t := range targets {
		if t.Kind == TargetCombiner {
			if len(out) > 0 {
				out[len(out)-1] += "*"
			}
			glue = true
			continue
		}
		if glue && len(out) > 0 {
			out[len(out)-1] += t.String()
		} else {
			out = append(out, t.String())
		}
		glue = false
	}
	return out
}
