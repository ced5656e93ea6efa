package native

import (
	"fmt"
	"strconv"
	"strings"
)

// TargetKind classifies an instruction target.
type TargetKind uint8

const (
	// TargetQubit is a plain qubit index.
	TargetQubit TargetKind = iota

	// TargetRec is a measurement lookback; Value is negative (rec[-1] has Value -1).
	TargetRec

	// TargetPauli is a Pauli term on a qubit (X3, Y0, Z7).
	TargetPauli

	// TargetCombiner is the '*' joining Pauli terms into one product.
	TargetCombiner
)

// Target is a single instruction target.
type Target struct {
	Kind     TargetKind
	Value    int
	Pauli    byte // 'X', 'Y' or 'Z' when Kind == TargetPauli
	Inverted bool
}

// Qubit returns a qubit target.
func Qubit(q int) Target {
	return Target{Kind: TargetQubit, Value: q}
}

// Rec returns a measurement lookback target. lookback must be negative.
func Rec(lookback int) Target {
	return Target{Kind: TargetRec, Value: lookback}
}

// PauliTarget returns a Pauli term target.
func PauliTarget(p byte, q int) Target {
	return Target{Kind: TargetPauli, Value: q, Pauli: p}
}

// Combiner returns the '*' product combiner.
func Combiner() Target {
	return Target{Kind: TargetCombiner}
}

// IsRec reports whether t is a measurement lookback.
func (t Target) IsRec() bool {
	return t.Kind == TargetRec
}

// String renders the target in native syntax.
func (t Target) String() string {
	prefix := ""
	if t.Inverted {
		prefix = "!"
	}
	switch t.Kind {
	case TargetRec:
		return fmt.Sprintf("%srec[%d]", prefix, t.Value)
	case TargetPauli:
		return fmt.Sprintf("%s%c%d", prefix, t.Pauli, t.Value)
	case TargetCombiner:
		return "*"
	default:
		return prefix + strconv.Itoa(t.Value)
	}
}

// ParseTarget parses a single target token.
func ParseTarget(token string) (Target, error) {
	if token == "*" {
		return Combiner(), nil
	}
	inverted := false
	body := token
	if strings.HasPrefix(body, "!") {
		inverted = true
		body = body[1:]
	}
	if body == "" {
		return Target{}, fmt.Errorf("empty target %q", token)
	}

	if strings.HasPrefix(body, "rec[") {
		if !strings.HasSuffix(body, "]") {
			return Target{}, fmt.Errorf("unterminated record target %q", token)
		}
		n, err := strconv.Atoi(body[len("rec[") : len(body)-1])
		if err != nil {
			return Target{}, fmt.Errorf("invalid record target %q: %w", token, err)
		}
		if n >= 0 {
			return Target{}, fmt.Errorf("record target %q must use a negative lookback", token)
		}
		return Target{Kind: TargetRec, Value: n, Inverted: inverted}, nil
	}

	switch c := body[0]; c {
	case 'X', 'Y', 'Z', 'x', 'y', 'z':
		q, err := strconv.Atoi(body[1:])
		if err != nil || q < 0 {
			return Target{}, fmt.Errorf("invalid Pauli target %q", token)
		}
		return Target{Kind: TargetPauli, Value: q, Pauli: upper(c), Inverted: inverted}, nil
	}

	q, err := strconv.Atoi(body)
	if err != nil || q < 0 {
		return Target{}, fmt.Errorf("invalid qubit target %q", token)
	}
	return Target{Kind: TargetQubit, Value: q, Inverted: inverted}, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
