package errors

import (
	"errors"
	"fmt"
)

// PhaseError names the import phase that failed. The wrapped error keeps its
// code, HTTP status and retry semantics.
type PhaseError struct {
	Phase string
	Err   error
}

func NewPhaseError(phase string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err}
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("import failed in phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// PhaseOf returns the phase recorded in err's chain, if any.
func PhaseOf(err error) (string, bool) {
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		return phaseErr.Phase, true
	}
	return "", false
}
