package herald

import (
	"errors"
	"fmt"
)

// HeraldError is returned when a circuit's heralds cannot be modelled.
type HeraldError struct {
	Code     ErrorCode
	Message  string
	Detector int // detector index, -1 when not applicable
}

// ErrorCode categorizes herald errors.
type ErrorCode string

const (
	// ErrCodeMultiplyDetectedHerald indicates a heralded measurement
	// observed by more than one detector.
	ErrCodeMultiplyDetectedHerald ErrorCode = "MULTIPLY_DETECTED_HERALD"

	// ErrCodeCompositeHeraldDetector indicates a detector that observes a
	// heralded measurement together with other measurements.
	ErrCodeCompositeHeraldDetector ErrorCode = "COMPOSITE_HERALD_DETECTOR"

	// ErrCodeUnknownHeraldHyperedge indicates a herald-conditional
	// hyperedge whose detector set is absent from the skeleton.
	ErrCodeUnknownHeraldHyperedge ErrorCode = "UNKNOWN_HERALD_HYPEREDGE"

	// ErrCodeInternalConsistency indicates a broken internal invariant.
	ErrCodeInternalConsistency ErrorCode = "INTERNAL_CONSISTENCY"
)

func (e *HeraldError) Error() string {
	if e.Detector >= 0 {
		return fmt.Sprintf("%s: %s (D%d)", e.Code, e.Message, e.Detector)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, detector int, format string, args ...any) *HeraldError {
	return &HeraldError{Code: code, Message: fmt.Sprintf(format, args...), Detector: detector}
}

func hasCode(err error, code ErrorCode) bool {
	var he *HeraldError
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}

// IsMultiplyDetectedHerald reports whether err is a MULTIPLY_DETECTED_HERALD error.
func IsMultiplyDetectedHerald(err error) bool {
	return hasCode(err, ErrCodeMultiplyDetectedHerald)
}

// IsCompositeHeraldDetector reports whether err is a COMPOSITE_HERALD_DETECTOR error.
func IsCompositeHeraldDetector(err error) bool {
	return hasCode(err, ErrCodeCompositeHeraldDetector)
}

// IsUnknownHeraldHyperedge reports whether err is an UNKNOWN_HERALD_HYPEREDGE error.
func IsUnknownHeraldHyperedge(err error) bool {
	return hasCode(err, ErrCodeUnknownHeraldHyperedge)
}
