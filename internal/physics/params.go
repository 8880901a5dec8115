package physics

import (
	"fmt"

	"github.com/chaoslab/dpsim/internal/dynamo"
)

const (
	DefaultLength  = 1.0
	DefaultMass    = 1.0
	DefaultGravity = 9.81
)

// Params are the physical constants of the double pendulum. All fields must
// be strictly positive. Params are passed by value and never mutated during
// a run.
type Params struct {
	L1, L2  float64 // arm lengths (m)
	M1, M2  float64 // bob masses (kg)
	Gravity float64 // m/s^2
}

func DefaultParams() Params {
	return Params{
		L1: DefaultLength, L2: DefaultLength,
		M1: DefaultMass, M2: DefaultMass,
		Gravity: DefaultGravity,
	}
}

// ParamError reports a physical parameter outside its valid range. It
// unwraps to dynamo.ErrParameterBounds.
type ParamError struct {
	Field string
	Value float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("physics: %s must be positive, got %g", e.Field, e.Value)
}

func (e *ParamError) Unwrap() error { return dynamo.ErrParameterBounds }

// Validate checks that every parameter is strictly positive. The equations
// of motion divide by (m1+m2)*L1 - m2*L1*cos^2(delta) >= m1*L1, so positive
// parameters also guarantee a nonzero denominator for every state.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"L1", p.L1},
		{"L2", p.L2},
		{"m1", p.M1},
		{"m2", p.M2},
		{"g", p.Gravity},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return &ParamError{Field: f.name, Value: f.value}
		}
	}
	return nil
}
