package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrParameterBounds indicates a physical parameter outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrBadConfig indicates an invalid run configuration.
	ErrBadConfig = errors.New("dynamo: invalid run configuration")

	// ErrStepTooSmall indicates the adaptive timestep collapsed below MinDt.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDeadlineExceeded indicates the run hit its wall-clock deadline.
	ErrDeadlineExceeded = errors.New("dynamo: deadline exceeded")
)

// SimulationError reports an integration failure mid-run. Partial holds the
// trajectory computed up to the failure so callers may salvage it; Time is
// the last time reached.
type SimulationError struct {
	Step    int
	Time    float64
	Partial *Result
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
