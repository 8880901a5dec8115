package dynamo

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time-dependent ODE: dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// Hamiltonian is implemented by systems that can report total mechanical
// energy for a state. Used for drift diagnostics, never for integration.
type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator steps with an embedded error estimate. StepAdaptive
// returns the new state and the suggested size for the next step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(x State, t float64)
}

// Configurable is implemented by systems whose physical parameters can be
// inspected and adjusted by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Config controls a single integration run. Dt is the output sampling
// interval; with Adaptive set, the solver subdivides each sampling interval
// internally while output stays on the uniform grid.
type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MinDt         float64
	MaxDt         float64
	Adaptive      bool
	ValidateState bool

	// Deadline bounds wall-clock time for the whole run. Zero means no limit.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-8,
		MaxDt:         0.1,
		MinDt:         1e-10,
		Adaptive:      false,
		ValidateState: true,
	}
}

// Result is the trajectory of a run: States[i] is the state at Times[i],
// Times[0] == 0 and Times is strictly increasing. States are never mutated
// after Run returns.
type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Last returns the final sample of the trajectory.
func (r *Result) Last() (State, float64) {
	if len(r.States) == 0 {
		return nil, 0
	}
	i := len(r.States) - 1
	return r.States[i], r.Times[i]
}
