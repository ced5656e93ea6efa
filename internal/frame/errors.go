package frame

import (
	"errors"
	"fmt"
)

// AnalysisError is returned when an error model cannot be extracted.
type AnalysisError struct {
	Code     ErrorCode
	Message  string
	Position int // flattened instruction index
}

// ErrorCode categorizes analysis errors.
type ErrorCode string

const (
	// ErrCodeIncompleteFeature indicates an instruction the native format
	// accepts but the analyzer has no propagation rule for.
	ErrCodeIncompleteFeature ErrorCode = "INCOMPLETE_FEATURE"

	// ErrCodeDisjointRequired indicates a disjoint channel analyzed without
	// the approximate-disjoint-errors option.
	ErrCodeDisjointRequired ErrorCode = "DISJOINT_REQUIRED"

	// ErrCodeInvalidProbability indicates a channel probability outside the
	// range its independent decomposition supports.
	ErrCodeInvalidProbability ErrorCode = "INVALID_PROBABILITY"

	// ErrCodeInvalidReference indicates a detector or observable target that
	// does not name an earlier measurement.
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"
)

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s (instruction %d)", e.Code, e.Message, e.Position)
}

// IsIncompleteFeature reports whether err is an INCOMPLETE_FEATURE error.
func IsIncompleteFeature(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeIncompleteFeature
	}
	return false
}

// IsDisjointRequired reports whether err is a DISJOINT_REQUIRED error.
func IsDisjointRequired(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeDisjointRequired
	}
	return false
}

// IsInvalidReference reports whether err is an INVALID_REFERENCE error.
func IsInvalidReference(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeInvalidReference
	}
	return false
}
