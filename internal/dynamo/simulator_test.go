package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// decaySystem is dx/dt = -lambda*x with the exact solution x0*exp(-lambda*t).
type decaySystem struct {
	lambda float64
}

func (d *decaySystem) Derive(x State, t float64) State {
	return State{-d.lambda * x[0]}
}

func (d *decaySystem) Dim() int { return 1 }

// exactDecay steps the decay system analytically, so simulator tests are
// independent of integrator accuracy.
type exactDecay struct {
	lambda float64
}

func (e *exactDecay) Step(sys System, x State, t, dt float64) State {
	return State{x[0] * math.Exp(-e.lambda*dt)}
}

func (e *exactDecay) StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error) {
	return e.Step(sys, x, t, dt), dt, nil
}

// nanSystem produces an invalid state after a few steps.
type nanSystem struct {
	calls int
}

func (n *nanSystem) Derive(x State, t float64) State {
	n.calls++
	if n.calls > 3 {
		return State{math.NaN()}
	}
	return State{1.0}
}

func (n *nanSystem) Dim() int { return 1 }

type eulerStep struct{}

func (eulerStep) Step(sys System, x State, t, dt float64) State {
	dx := sys.Derive(x, t)
	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dt*dx[i]
	}
	return out
}

type countingMetric struct {
	observations int
}

func (c *countingMetric) Name() string               { return "count" }
func (c *countingMetric) Observe(x State, t float64) { c.observations++ }
func (c *countingMetric) Value() float64             { return float64(c.observations) }
func (c *countingMetric) Reset()                     { c.observations = 0 }

func TestRunSampleGrid(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("got %d samples, want 11", len(result.States))
	}
	if result.Times[0] != 0 {
		t.Errorf("Times[0] = %f, want 0", result.Times[0])
	}
	if last := result.Times[len(result.Times)-1]; math.Abs(last-1.0) > 1e-12 {
		t.Errorf("final time = %f, want 1.0", last)
	}
	for i := 1; i < len(result.Times); i++ {
		if result.Times[i] <= result.Times[i-1] {
			t.Fatalf("Times not strictly increasing at %d: %f <= %f",
				i, result.Times[i], result.Times[i-1])
		}
	}

	want := math.Exp(-1.0)
	got := result.States[len(result.States)-1][0]
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("final state = %f, want %f", got, want)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"dt exceeds duration", func(c *Config) { c.Dt = 5.0; c.Duration = 1.0 }},
		{"adaptive without tolerance", func(c *Config) { c.Adaptive = true; c.Tolerance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			_, err := sim.Run(context.Background(), State{1.0}, cfg)
			if !errors.Is(err, ErrBadConfig) {
				t.Errorf("got %v, want ErrBadConfig", err)
			}
		})
	}
}

func TestRunDimensionMismatch(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	_, err := sim.Run(context.Background(), State{1.0, 2.0}, DefaultConfig())
	if !errors.Is(err, ErrBadConfig) {
		t.Errorf("got %v, want ErrBadConfig for dimension mismatch", err)
	}
}

func TestRunInvalidStateDetection(t *testing.T) {
	sys := &nanSystem{}
	sim := New(sys, eulerStep{})

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 2.0

	_, err := sim.Run(context.Background(), State{0.0}, cfg)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("error is not a *SimulationError: %v", err)
	}
	if simErr.Partial == nil || len(simErr.Partial.States) == 0 {
		t.Errorf("partial trajectory missing from error")
	}
	for _, s := range simErr.Partial.States {
		if !s.IsValid() {
			t.Errorf("partial trajectory contains invalid state %v", s)
		}
	}
}

func TestRunContextCancellation(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, State{1.0}, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("error is not a *SimulationError: %v", err)
	}
	if simErr.Partial == nil || len(simErr.Partial.States) < 1 {
		t.Errorf("expected at least the initial sample in the partial result")
	}
}

func TestRunDeadline(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, slowStep{})

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 10.0
	cfg.Deadline = time.Millisecond

	_, err := sim.Run(context.Background(), State{1.0}, cfg)
	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("got %v, want ErrDeadlineExceeded", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("error is not a *SimulationError: %v", err)
	}
	if simErr.Partial == nil || len(simErr.Partial.States) == 0 {
		t.Errorf("partial trajectory missing from deadline error")
	}
}

type slowStep struct{}

func (slowStep) Step(sys System, x State, t, dt float64) State {
	time.Sleep(time.Millisecond)
	return x.Clone()
}

// slowAdaptive sleeps per inner step and suggests a tiny next step, forcing
// many subdivisions of each output interval.
type slowAdaptive struct{}

func (slowAdaptive) Step(sys System, x State, t, dt float64) State { return x.Clone() }

func (slowAdaptive) StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error) {
	time.Sleep(time.Millisecond)
	return x.Clone(), 1e-4, nil
}

func TestRunDeadlineInsideAdaptiveInterval(t *testing.T) {
	// One output interval subdivided into a thousand 1ms inner steps would
	// run for a second; the deadline must abort within the interval, not
	// only at the next output sample.
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, slowAdaptive{})

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 0.2
	cfg.Adaptive = true
	cfg.Deadline = 20 * time.Millisecond

	begin := time.Now()
	_, err := sim.Run(context.Background(), State{1.0}, cfg)
	elapsed := time.Since(begin)

	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("got %v, want ErrDeadlineExceeded", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("run overran its deadline by %v", elapsed-cfg.Deadline)
	}
}

func TestRunMetricsObserved(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	m := &countingMetric{}
	sim.AddMetric(m)

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// initial sample plus one per step
	if got := result.Metrics["count"]; got != 11 {
		t.Errorf("metric observed %v samples, want 11", got)
	}
}

func TestRunAdaptiveSubdivision(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0
	cfg.Adaptive = true

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("adaptive Run failed: %v", err)
	}

	// output stays on the uniform grid regardless of inner stepping
	if len(result.States) != 11 {
		t.Errorf("got %d samples, want 11", len(result.States))
	}
}

// collapseStep always suggests a step below any reasonable MinDt.
type collapseStep struct{}

func (collapseStep) Step(sys System, x State, t, dt float64) State { return x.Clone() }

func (collapseStep) StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error) {
	return x.Clone(), 1e-300, nil
}

func TestRunAdaptiveStepCollapse(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, collapseStep{})

	cfg := DefaultConfig()
	cfg.Adaptive = true

	_, err := sim.Run(context.Background(), State{1.0}, cfg)
	if !errors.Is(err, ErrStepTooSmall) {
		t.Errorf("got %v, want ErrStepTooSmall", err)
	}
}

func TestRunAdaptiveRequiresErrorControl(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, eulerStep{})

	cfg := DefaultConfig()
	cfg.Adaptive = true

	_, err := sim.Run(context.Background(), State{1.0}, cfg)
	if !errors.Is(err, ErrBadConfig) {
		t.Errorf("got %v, want ErrBadConfig for non-adaptive integrator", err)
	}
}

func TestRunDoesNotMutateInitialState(t *testing.T) {
	sys := &decaySystem{lambda: 1.0}
	sim := New(sys, &exactDecay{lambda: 1.0})

	x0 := State{1.0}
	cfg := DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 0.5

	if _, err := sim.Run(context.Background(), x0, cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if x0[0] != 1.0 {
		t.Errorf("initial state mutated: %v", x0)
	}
}

func TestSimulationErrorFormat(t *testing.T) {
	err := &SimulationError{Step: 7, Time: 0.35, Wrapped: ErrInvalidState}

	msg := err.Error()
	if msg != "step 7 (t=0.3500): dynamo: invalid state (NaN or Inf detected)" {
		t.Errorf("unexpected message: %q", msg)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("SimulationError does not unwrap to its cause")
	}
}

func TestParallelFor(t *testing.T) {
	n := 10000
	out := make([]int, n)

	ParallelFor(n, 100, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = i * 2
		}
	})

	for i := range out {
		if out[i] != i*2 {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], i*2)
		}
	}
}

func TestParallelForSmallInput(t *testing.T) {
	out := make([]int, 3)
	ParallelFor(3, 100, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = 1
		}
	})
	for i, v := range out {
		if v != 1 {
			t.Errorf("element %d not processed", i)
		}
	}
}
