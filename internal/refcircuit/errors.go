package refcircuit

import (
	"errors"
	"fmt"
)

// CircuitError is returned when a reference circuit cannot be constructed.
type CircuitError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Position is the index in the instruction sequence, or -1.
	Position int
}

// ErrorCode categorizes circuit construction errors.
type ErrorCode string

const (
	// ErrCodeInvalidReference indicates a measurement reference pointing
	// before the start of the circuit, forward, or at an absent owner.
	ErrCodeInvalidReference ErrorCode = "INVALID_CIRCUIT_REFERENCE"

	// ErrCodeDuplicateInstruction indicates the same instruction identity
	// appears twice in one circuit.
	ErrCodeDuplicateInstruction ErrorCode = "DUPLICATE_INSTRUCTION_IDENTITY"

	// ErrCodeMalformed indicates a structurally invalid instruction
	// (unknown gate, detector on a non-measurement target, foreign handle).
	ErrCodeMalformed ErrorCode = "MALFORMED_CIRCUIT"

	// ErrCodeInternalConsistency indicates a defect in the instruction or
	// detector graph rather than bad input.
	ErrCodeInternalConsistency ErrorCode = "INTERNAL_CONSISTENCY"
)

// Error implements the error interface.
func (e *CircuitError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s: %s (instruction %d)", e.Code, e.Message, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, position int, format string, args ...any) *CircuitError {
	return &CircuitError{Code: code, Message: fmt.Sprintf(format, args...), Position: position}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *CircuitError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsInvalidReference reports whether err is an INVALID_CIRCUIT_REFERENCE error.
func IsInvalidReference(err error) bool {
	return hasCode(err, ErrCodeInvalidReference)
}

// IsDuplicateInstruction reports whether err is a DUPLICATE_INSTRUCTION_IDENTITY error.
func IsDuplicateInstruction(err error) bool {
	return hasCode(err, ErrCodeDuplicateInstruction)
}

// IsMalformed reports whether err is a MALFORMED_CIRCUIT error.
func IsMalformed(err error) bool {
	return hasCode(err, ErrCodeMalformed)
}

// IsInternalConsistency reports whether err is an INTERNAL_CONSISTENCY error.
func IsInternalConsistency(err error) bool {
	return hasCode(err, ErrCodeInternalConsistency)
}
