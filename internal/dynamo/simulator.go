package dynamo

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Simulator drives a System through an Integrator over a uniform output
// grid. Integration is sequential; each step depends on the previous state.
type Simulator struct {
	sys        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(sys System, integrator Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 over [0, cfg.Duration], sampled every cfg.Dt.
// The returned Result always starts with x0 at t=0. On failure the error is
// a *SimulationError carrying the partial trajectory and last reached time;
// output is never silently truncated.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.sys.Dim() {
		return nil, fmt.Errorf("%w: state dim %d, system dim %d", ErrBadConfig, len(x0), s.sys.Dim())
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	if steps < 1 {
		steps = 1
	}

	result := &Result{
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, 0)
	s.sample(x, 0)

	initialEnergy := s.energy(x)
	start := time.Now()
	dtNext := cfg.Dt

	for i := 0; i < steps; i++ {
		t := float64(i) * cfg.Dt

		select {
		case <-ctx.Done():
			return result, s.fail(result, i, t, ctx.Err())
		default:
		}
		if cfg.Deadline > 0 && time.Since(start) > cfg.Deadline {
			return result, s.fail(result, i, t, ErrDeadlineExceeded)
		}

		var newX State
		var err error
		if cfg.Adaptive {
			newX, dtNext, err = s.adaptiveInterval(x, t, cfg.Dt, dtNext, cfg, start)
			if err != nil {
				return result, s.fail(result, i, t, err)
			}
		} else {
			newX = s.integrator.Step(s.sys, x, t, cfg.Dt)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, s.fail(result, i, t, ErrInvalidState)
		}

		x = newX
		tNext := float64(i+1) * cfg.Dt
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, tNext)
		result.StepsTaken++
		s.sample(x, tNext)
	}

	if initialEnergy != 0 {
		finalEnergy := s.energy(x)
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// adaptiveInterval advances exactly one output interval [t, t+span] using
// the embedded error estimate to subdivide. dtNext seeds the inner step and
// the suggestion for the next interval is returned. The deadline is checked
// per inner step so a slow interval cannot overrun it by more than one step.
func (s *Simulator) adaptiveInterval(x State, t, span, dtNext float64, cfg Config, start time.Time) (State, float64, error) {
	ai, ok := s.integrator.(AdaptiveIntegrator)
	if !ok {
		return nil, 0, fmt.Errorf("%w: integrator has no error control", ErrBadConfig)
	}

	remaining := span
	local := t
	h := dtNext
	if h <= 0 || h > span {
		h = span
	}

	for remaining > 1e-14 {
		if cfg.Deadline > 0 && time.Since(start) > cfg.Deadline {
			return nil, 0, ErrDeadlineExceeded
		}
		if h > remaining {
			h = remaining
		}
		newX, hNext, err := ai.StepAdaptive(s.sys, x, local, h, cfg.Tolerance)
		if err != nil {
			return nil, 0, err
		}
		if hNext < cfg.MinDt {
			return nil, 0, ErrStepTooSmall
		}

		x = newX
		local += h
		remaining -= h
		h = math.Min(hNext, cfg.MaxDt)
	}

	return x, h, nil
}

func (s *Simulator) sample(x State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, o := range s.observers {
		o.OnSample(x, t)
	}
}

func (s *Simulator) energy(x State) float64 {
	if h, ok := s.sys.(Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

func (s *Simulator) fail(partial *Result, step int, t float64, cause error) error {
	for _, m := range s.metrics {
		partial.Metrics[m.Name()] = m.Value()
	}
	return &SimulationError{Step: step, Time: t, Partial: partial, Wrapped: cause}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrBadConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrBadConfig, cfg.Duration)
	}
	if cfg.Dt > cfg.Duration {
		return fmt.Errorf("%w: dt %f exceeds duration %f", ErrBadConfig, cfg.Dt, cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrBadConfig)
	}
	return nil
}
