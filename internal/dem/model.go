// Package dem implements the detector error model text format and the
// canonicalizer that turns a flattened error model into decoding-graph
// hyperedges.
//
// Model text:
//
//	error(0.01) D0 D1 ^ D2 L0
//	detector(1, 2, 0) D3
//	logical_observable L1
//	shift_detectors(0, 0, 1) 4
//	repeat 10 {
//	    ...
//	}
package dem

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/hyperdem/internal/native"
)

// Instruction types.
const (
	TypeError             = "error"
	TypeDetector          = "detector"
	TypeLogicalObservable = "logical_observable"
	TypeShiftDetectors    = "shift_detectors"
)

// TargetKind classifies an error model target.
type TargetKind uint8

const (
	// TargetDetector is a relative detector id (D#).
	TargetDetector TargetKind = iota

	// TargetObservable is a logical observable id (L#).
	TargetObservable

	// TargetSeparator is the '^' between components of a suggested decomposition.
	TargetSeparator

	// TargetNumber is a bare number (the shift_detectors offset).
	TargetNumber
)

// Target is an error model instruction target.
type Target struct {
	Kind  TargetKind
	Value int
}

// D returns a detector target.
func D(k int) Target { return Target{Kind: TargetDetector, Value: k} }

// L returns a logical observable target.
func L(k int) Target { return Target{Kind: TargetObservable, Value: k} }

// Separator returns the '^' target.
func Separator() Target { return Target{Kind: TargetSeparator} }

func (t Target) String() string {
	switch t.Kind {
	case TargetDetector:
		return "D" + strconv.Itoa(t.Value)
	case TargetObservable:
		return "L" + strconv.Itoa(t.Value)
	case TargetSeparator:
		return "^"
	default:
		return strconv.Itoa(t.Value)
	}
}

// Item is an *Instruction or a *Repeat.
type Item interface {
	item()
}

// Instruction is one line of an error model.
type Instruction struct {
	Type    string
	Tag     string
	Args    []float64
	Targets []Target
}

// Repeat is a repeat block.
type Repeat struct {
	Count int
	Body  *Model
}

func (*Instruction) item() {}
func (*Repeat) item()      {}

// String renders the instruction.
func (in *Instruction) String() string {
	targets := make([]string, len(in.Targets))
	for i, t := range in.Targets {
		targets[i] = t.String()
	}
	return native.FormatInstruction(in.Type, in.Tag, in.Args, targets)
}

// Model is a detector error model.
type Model struct {
	Items []Item
}

// Append adds an instruction.
func (m *Model) Append(in *Instruction) {
	m.Items = append(m.Items, in)
}

// AppendError adds an error mechanism.
func (m *Model) AppendError(p float64, targets ...Target) {
	m.Append(&Instruction{Type: TypeError, Args: []float64{p}, Targets: targets})
}

// String renders the model.
func (m *Model) String() string {
	var b strings.Builder
	m.write(&b, "")
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *Model) write(b *strings.Builder, indent string) {
	for _, it := range m.Items {
		switch v := it.(type) {
		case *Instruction:
			b.WriteString(indent)
			b.WriteString(v.String())
			b.WriteByte('\n')
		case *Repeat:
			fmt.Fprintf(b, "%srepeat %d {\n", indent, v.Count)
			v.Body.write(b, indent+"    ")
			b.WriteString(indent)
			b.WriteString("}\n")
		}
	}
}

// Flattened expands repeat blocks and folds shift_detectors into the
// detector ids and coordinates of later instructions.
func (m *Model) Flattened() *Model {
	out := &Model{}
	var offset int
	var coords []float64
	m.flattenInto(out, &offset, &coords)
	return out
}

func (m *Model) flattenInto(out *Model, offset *int, coords *[]float64) {
	for _, it := range m.Items {
		switch v := it.(type) {
		case *Instruction:
			if v.Type == TypeShiftDetectors {
				for i, a := range v.Args {
					if i >= len(*coords) {
						*coords = append(*coords, 0)
					}
					(*coords)[i] += a
				}
				for _, t := range v.Targets {
					if t.Kind == TargetNumber {
						*offset += t.Value
					}
				}
				continue
			}
			cp := &Instruction{
				Type:    v.Type,
				Tag:     v.Tag,
				Args:    append([]float64(nil), v.Args...),
				Targets: append([]Target(nil), v.Targets...),
			}
			for i := range cp.Targets {
				if cp.Targets[i].Kind == TargetDetector {
					cp.Targets[i].Value += *offset
				}
			}
			if v.Type == TypeDetector {
				for i := range cp.Args {
					if i < len(*coords) {
						cp.Args[i] += (*coords)[i]
					}
				}
			}
			out.Append(cp)
		case *Repeat:
			for i := 0; i < v.Count; i++ {
				v.Body.flattenInto(out, offset, coords)
			}
		}
	}
}

// NumDetectors returns one more than the largest detector id referenced
// after flattening.
func (m *Model) NumDetectors() int {
	n := 0
	for _, it := range m.Flattened().Items {
		for _, t := range it.(*Instruction).Targets {
			if t.Kind == TargetDetector && t.Value+1 > n {
				n = t.Value + 1
			}
		}
	}
	return n
}

// NumObservables returns one more than the largest observable id referenced.
func (m *Model) NumObservables() int {
	n := 0
	for _, it := range m.Flattened().Items {
		for _, t := range it.(*Instruction).Targets {
			if t.Kind == TargetObservable && t.Value+1 > n {
				n = t.Value + 1
			}
		}
	}
	return n
}

// ParseError reports a malformed line in error model text.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parse parses error model text.
func Parse(text string) (*Model, error) {
	return ParseReader(strings.NewReader(text))
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Model {
	m, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseReader parses error model text from r.
func ParseReader(r io.Reader) (*Model, error) {
	root := &Model{}
	stack := []*Model{root}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cur := stack[len(stack)-1]
		if line == "}" {
			if len(stack) == 1 {
				return nil, &ParseError{Line: lineNo, Message: "unmatched '}'"}
			}
			stack = stack[:len(stack)-1]
			continue
		}
		in, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}
		if in.Type == "repeat" {
			if len(in.Targets) != 2 || in.Targets[1].Kind != TargetSeparator {
				return nil, &ParseError{Line: lineNo, Message: "expected 'repeat count {'"}
			}
			body := &Model{}
			cur.Items = append(cur.Items, &Repeat{Count: in.Targets[0].Value, Body: body})
			stack = append(stack, body)
			continue
		}
		cur.Append(in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read error model: %w", err)
	}
	if len(stack) != 1 {
		return nil, &ParseError{Line: lineNo, Message: "unterminated repeat block"}
	}
	return root, nil
}

func parseLine(line string) (*Instruction, error) {
	i := 0
	for i < len(line) && (line[i] == '_' || (line[i] >= 'a' && line[i] <= 'z') || (line[i] >= 'A' && line[i] <= 'Z')) {
		i++
	}
	typ := strings.ToLower(line[:i])
	switch typ {
	case TypeError, TypeDetector, TypeLogicalObservable, TypeShiftDetectors, "repeat":
	default:
		return nil, fmt.Errorf("unknown instruction %q", line)
	}
	in := &Instruction{Type: typ}
	if i < len(line) && line[i] == '[' {
		end := strings.IndexByte(line[i:], ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated tag")
		}
		in.Tag = line[i+1 : i+end]
		i += end + 1
	}
	if i < len(line) && line[i] == '(' {
		end := strings.IndexByte(line[i:], ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated argument list")
		}
		inner := strings.TrimSpace(line[i+1 : i+end])
		if inner != "" {
			for _, part := range strings.Split(inner, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
				if err != nil {
					return nil, fmt.Errorf("invalid argument %q", strings.TrimSpace(part))
				}
				in.Args = append(in.Args, v)
			}
		}
		i += end + 1
	}
	for _, tok := range strings.Fields(line[i:]) {
		t, err := parseTarget(tok)
		if err != nil {
			return nil, err
		}
		in.Targets = append(in.Targets, t)
	}
	if typ == TypeError {
		if len(in.Args) != 1 {
			return nil, fmt.Errorf("error takes exactly one probability")
		}
		if p := in.Args[0]; p < 0 || p > 1 {
			return nil, fmt.Errorf("error probability %s out of range [0, 1]", native.FormatArg(p))
		}
	}
	return in, nil
}

func parseTarget(tok string) (Target, error) {
	switch {
	case tok == "^" || tok == "{":
		return Separator(), nil
	case tok[0] == 'D' || tok[0] == 'L':
		k, err := strconv.Atoi(tok[1:])
		if err != nil || k < 0 {
			return Target{}, fmt.Errorf("invalid target %q", tok)
		}
		if tok[0] == 'D' {
			return D(k), nil
		}
		return L(k), nil
	default:
		k, err := strconv.Atoi(tok)
		if err != nil || k < 0 {
			return Target{}, fmt.Errorf("invalid target %q", tok)
		}
		return Target{Kind: TargetNumber, Value: k}, nil
	}
}
