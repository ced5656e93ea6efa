package native

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a malformed line in circuit text.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parse parses native circuit text.
func Parse(text string) (*Circuit, error) {
	return ParseReader(strings.NewReader(text))
}

// ParseReader parses native circuit text from r.
func ParseReader(r io.Reader) (*Circuit, error) {
	root := &Circuit{}
	stack := []*Circuit{root}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
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

		name, tag, args, rest, err := splitHeader(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}

		if name == "REPEAT" {
			fields := strings.Fields(rest)
			if len(fields) != 2 || fields[1] != "{" {
				return nil, &ParseError{Line: lineNo, Message: "expected 'REPEAT count {'"}
			}
			count, err := strconv.Atoi(fields[0])
			if err != nil || count < 0 {
				return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("invalid repeat count %q", fields[0])}
			}
			body := &Circuit{}
			cur.AppendRepeat(count, body)
			stack = append(stack, body)
			continue
		}

		in, err := buildInstruction(name, tag, args, rest)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}
		cur.Append(in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read circuit: %w", err)
	}
	if len(stack) != 1 {
		return nil, &ParseError{Line: lineNo, Message: "unterminated REPEAT block"}
	}
	return root, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(text string) *Circuit {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// stripComment removes a trailing '#' comment that is not inside a tag.
func stripComment(line string) string {
	inTag := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '[':
			inTag = true
		case ']':
			inTag = false
		case '#':
			if !inTag {
				return line[:i]
			}
		}
	}
	return line
}

// splitHeader splits "NAME[tag](args) rest" into its parts.
func splitHeader(line string) (name, tag string, args []float64, rest string, err error) {
	i := 0
	for i < len(line) && isNameByte(line[i]) {
		i++
	}
	if i == 0 {
		return "", "", nil, "", fmt.Errorf("expected instruction name in %q", line)
	}
	name = strings.ToUpper(line[:i])

	if i < len(line) && line[i] == '[' {
		end := strings.IndexByte(line[i:], ']')
		if end < 0 {
			return "", "", nil, "", fmt.Errorf("unterminated tag")
		}
		tag = line[i+1 : i+end]
		i += end + 1
	}

	if i < len(line) && line[i] == '(' {
		end := strings.IndexByte(line[i:], ')')
		if end < 0 {
			return "", "", nil, "", fmt.Errorf("unterminated argument list")
		}
		inner := strings.TrimSpace(line[i+1 : i+end])
		if inner != "" {
			for _, part := range strings.Split(inner, ",") {
				v, perr := strconv.ParseFloat(strings.TrimSpace(part), 64)
				if perr != nil {
					return "", "", nil, "", fmt.Errorf("invalid argument %q", strings.TrimSpace(part))
				}
				args = append(args, v)
			}
		}
		i += end + 1
	}

	rest = line[i:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", "", nil, "", fmt.Errorf("unexpected %q after instruction header", rest)
	}
	return name, tag, args, rest, nil
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func buildInstruction(name, tag string, args []float64, rest string) (*Instruction, error) {
	g, ok := LookupGate(name)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %q", name)
	}
	if len(args) < g.MinArgs || (g.MaxArgs >= 0 && len(args) > g.MaxArgs) {
		return nil, fmt.Errorf("%s takes %s arguments, got %d", name, argRange(g), len(args))
	}

	var targets []Target
	for _, tok := range strings.Fields(rest) {
		parts := strings.Split(tok, "*")
		for j, part := range parts {
			if j > 0 {
				targets = append(targets, Combiner())
			}
			if part == "" {
				if len(parts) > 1 {
					return nil, fmt.Errorf("dangling '*' in %q", tok)
				}
				continue
			}
			t, err := ParseTarget(part)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
	}

	if err := checkTargets(g, args, targets); err != nil {
		return nil, err
	}
	return &Instruction{Name: name, Tag: tag, Args: args, Targets: targets}, nil
}

func checkTargets(g Gate, args []float64, targets []Target) error {
	switch g.Kind {
	case KindGate2, KindPairMeasurement:
		if len(targets)%2 != 0 {
			return fmt.Errorf("%s needs an even number of targets, got %d", g.Name, len(targets))
		}
	case KindDetector:
		for _, t := range targets {
			if t.Kind != TargetRec {
				return fmt.Errorf("DETECTOR targets must be measurement records, got %s", t)
			}
		}
	case KindObservable:
		if args[0] < 0 || args[0] != float64(int(args[0])) {
			return fmt.Errorf("OBSERVABLE_INCLUDE index must be a non-negative integer")
		}
	}
	if g.Name == "DEPOLARIZE2" || g.Name == "PAULI_CHANNEL_2" {
		if len(targets)%2 != 0 {
			return fmt.Errorf("%s needs an even number of targets, got %d", g.Name, len(targets))
		}
	}
	if g.Kind == KindNoise || g.Kind == KindHeraldedNoise {
		sum := 0.0
		for _, a := range args {
			if a < 0 || a > 1 {
				return fmt.Errorf("%s probability %s out of range [0, 1]", g.Name, FormatArg(a))
			}
			sum += a
		}
		if g.Name == "HERALDED_PAULI_CHANNEL_1" || g.Name == "PAULI_CHANNEL_1" || g.Name == "PAULI_CHANNEL_2" {
			if sum > 1+1e-12 {
				return fmt.Errorf("%s probabilities sum to %s > 1", g.Name, FormatArg(sum))
			}
		}
	}
	return nil
}

func argRange(g Gate) string {
	switch {
	case g.MaxArgs < 0:
		return fmt.Sprintf("at least %d", g.MinArgs)
	case g.MinArgs == g.MaxArgs:
		return strconv.Itoa(g.MinArgs)
	default:
		return fmt.Sprintf("%d to %d", g.MinArgs, g.MaxArgs)
	}
}
