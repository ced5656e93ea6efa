package native

import (
	"strconv"
	"strings"
)

// Item is an element of a circuit body: an *Instruction or a *Repeat.
//
// This is a sealed interface; only types in this package implement it.
type Item interface {
	item()
}

func (*Instruction) item() {}
func (*Repeat) item()      {}

// Repeat is a REPEAT block.
type Repeat struct {
	Count int
	Body  *Circuit
}

// Circuit is a native circuit.
type Circuit struct {
	Items []Item
}

// Append adds an instruction to the end of the circuit.
func (c *Circuit) Append(in *Instruction) {
	c.Items = append(c.Items, in)
}

// AppendRepeat adds a REPEAT block to the end of the circuit.
func (c *Circuit) AppendRepeat(count int, body *Circuit) {
	c.Items = append(c.Items, &Repeat{Count: count, Body: body})
}

// Flattened returns a circuit with every REPEAT block expanded and every
// SHIFT_COORDS folded into the coordinates of later DETECTOR and
// QUBIT_COORDS instructions. The receiver is not modified.
func (c *Circuit) Flattened() *Circuit {
	out := &Circuit{}
	var shift []float64
	c.flattenInto(out, &shift)
	return out
}

func (c *Circuit) flattenInto(out *Circuit, shift *[]float64) {
	for _, it := range c.Items {
		switch v := it.(type) {
		case *Instruction:
			switch v.Name {
			case "SHIFT_COORDS":
				for i, a := range v.Args {
					if i >= len(*shift) {
						*shift = append(*shift, 0)
					}
					(*shift)[i] += a
				}
			case "DETECTOR", "QUBIT_COORDS":
				cp := v.Copy()
				for i := range cp.Args {
					if i < len(*shift) {
						cp.Args[i] += (*shift)[i]
					}
				}
				out.Append(cp)
			default:
				out.Append(v.Copy())
			}
		case *Repeat:
			for i := 0; i < v.Count; i++ {
				v.Body.flattenInto(out, shift)
			}
		}
	}
}

// Instructions returns the flattened instruction stream.
func (c *Circuit) Instructions() []*Instruction {
	flat := c.Flattened()
	out := make([]*Instruction, len(flat.Items))
	for i, it := range flat.Items {
		out[i] = it.(*Instruction)
	}
	return out
}

// NumMeasurements returns the total number of measurement outcomes.
func (c *Circuit) NumMeasurements() int {
	n := 0
	for _, it := range c.Items {
		switch v := it.(type) {
		case *Instruction:
			n += v.NumMeasurements()
		case *Repeat:
			n += v.Count * v.Body.NumMeasurements()
		}
	}
	return n
}

// NumDetectors returns the total number of DETECTOR instructions executed.
func (c *Circuit) NumDetectors() int {
	n := 0
	for _, it := range c.Items {
		switch v := it.(type) {
		case *Instruction:
			if v.Name == "DETECTOR" {
				n++
			}
		case *Repeat:
			n += v.Count * v.Body.NumDetectors()
		}
	}
	return n
}

// NumObservables returns one more than the largest observable index used.
func (c *Circuit) NumObservables() int {
	n := 0
	for _, it := range c.Items {
		switch v := it.(type) {
		case *Instruction:
			if v.Name == "OBSERVABLE_INCLUDE" && len(v.Args) > 0 {
				if k := int(v.Args[0]) + 1; k > n {
					n = k
				}
			}
		case *Repeat:
			if k := v.Body.NumObservables(); k > n {
				n = k
			}
		}
	}
	return n
}

// String renders the circuit in native syntax. Nested blocks are indented
// by four spaces.
func (c *Circuit) String() string {
	var b strings.Builder
	c.write(&b, "")
	return strings.TrimSuffix(b.String(), "\n")
}

func (c *Circuit) write(b *strings.Builder, indent string) {
	for _, it := range c.Items {
		switch v := it.(type) {
		case *Instruction:
			b.WriteString(indent)
			b.WriteString(v.String())
			b.WriteByte('\n')
		case *Repeat:
			b.WriteString(indent)
			b.WriteString("REPEAT ")
			b.WriteString(strconv.Itoa(v.Count))
			b.WriteString(" {\n")
			v.Body.write(b, indent+"    ")
			b.WriteString(indent)
			b.WriteString("}\n")
		}
	}
}
