package decoder

import (
	"errors"
	"fmt"

	"github.com/roach88/hyperdem/internal/solver"
)

// ErrCodeSolverFailure marks a shot the solver could not decode.
const ErrCodeSolverFailure = "SOLVER_FAILURE"

// SolverFailure carries everything needed to replay a failed shot: the
// model, the solver configuration and the syndrome.
type SolverFailure struct {
	Fingerprint string
	Shot        int
	Initializer solver.Initializer
	Config      solver.Config
	Syndrome    solver.SyndromePattern

	// RecordID is the stored failure id, empty when no recorder is set.
	RecordID string

	Err error
}

func (e *SolverFailure) Error() string {
	return fmt.Sprintf("%s: shot %d of model %.12s: %v", ErrCodeSolverFailure, e.Shot, e.Fingerprint, e.Err)
}

func (e *SolverFailure) Unwrap() error {
	return e.Err
}

// Reason returns the solver's failure reason, or "" when the cause is not
// a *solver.Failure.
func (e *SolverFailure) Reason() solver.FailureReason {
	var f *solver.Failure
	if errors.As(e.Err, &f) {
		return f.Reason
	}
	return ""
}

// IsSolverFailure reports whether err is or wraps a *SolverFailure.
func IsSolverFailure(err error) bool {
	var sf *SolverFailure
	return errors.As(err, &sf)
}
