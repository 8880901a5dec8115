package integrators

import (
	"math"
	"testing"

	"github.com/chaoslab/dpsim/internal/dynamo"
)

// oscillator is the unit harmonic oscillator x'' = -x with the exact
// solution x(t) = cos(t), v(t) = -sin(t) from (1, 0).
type oscillator struct{}

func (oscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (oscillator) Dim() int { return 2 }

func integrate(integ dynamo.Integrator, x dynamo.State, dt float64, steps int) dynamo.State {
	t := 0.0
	for i := 0; i < steps; i++ {
		x = integ.Step(oscillator{}, x, t, dt)
		t += dt
	}
	return x
}

func TestEulerFirstOrderAccuracy(t *testing.T) {
	// One Euler step has local error O(dt^2).
	dt := 0.001
	x := integrate(NewEuler(), dynamo.State{1, 0}, dt, 1)

	if math.Abs(x[0]-math.Cos(dt)) > dt*dt {
		t.Errorf("position after one step = %g, want %g", x[0], math.Cos(dt))
	}
	if math.Abs(x[1]+math.Sin(dt)) > dt*dt {
		t.Errorf("velocity after one step = %g, want %g", x[1], -math.Sin(dt))
	}
}

func TestEulerDoesNotMutateInput(t *testing.T) {
	x := dynamo.State{1, 0}
	NewEuler().Step(oscillator{}, x, 0, 0.1)
	if x[0] != 1 || x[1] != 0 {
		t.Errorf("input state mutated: %v", x)
	}
}

func TestRK4FullPeriod(t *testing.T) {
	// After one full period the oscillator returns to its start; RK4 with a
	// small step should land within 1e-8.
	steps := 10000
	dt := 2 * math.Pi / float64(steps)

	x := integrate(NewRK4(), dynamo.State{1, 0}, dt, steps)

	if math.Abs(x[0]-1) > 1e-8 {
		t.Errorf("position after full period = %g, want 1", x[0])
	}
	if math.Abs(x[1]) > 1e-8 {
		t.Errorf("velocity after full period = %g, want 0", x[1])
	}
}

func TestRK4ConvergenceOrder(t *testing.T) {
	// Halving the step should cut the global error by roughly 2^4.
	final := func(dt float64) float64 {
		steps := int(math.Round(1.0 / dt))
		x := integrate(NewRK4(), dynamo.State{1, 0}, dt, steps)
		return math.Abs(x[0] - math.Cos(1.0))
	}

	errCoarse := final(0.01)
	errFine := final(0.005)

	if errFine == 0 {
		t.Skip("fine solution at machine precision")
	}
	ratio := errCoarse / errFine
	if ratio < 8 || ratio > 32 {
		t.Errorf("error ratio %g for halved step, want ~16 for fourth order", ratio)
	}
}

func TestRK4ScratchReuse(t *testing.T) {
	// The same instance must give identical results across repeated use and
	// across dimension changes.
	r := NewRK4()

	a := r.Step(oscillator{}, dynamo.State{1, 0}, 0, 0.1)
	b := NewRK4().Step(oscillator{}, dynamo.State{1, 0}, 0, 0.1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("warm instance differs from fresh instance: %v vs %v", a, b)
		}
	}

	// dimension change reallocates scratch
	one := r.Step(oneDim{}, dynamo.State{1}, 0, 0.1)
	if len(one) != 1 {
		t.Fatalf("result dim = %d, want 1", len(one))
	}

	c := r.Step(oscillator{}, dynamo.State{1, 0}, 0, 0.1)
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("result changed after dimension switch: %v vs %v", a, c)
		}
	}
}

type oneDim struct{}

func (oneDim) Derive(x dynamo.State, t float64) dynamo.State { return dynamo.State{-x[0]} }
func (oneDim) Dim() int                                      { return 1 }

func TestRK45StepAccuracy(t *testing.T) {
	x, _, err := NewRK45().StepAdaptive(oscillator{}, dynamo.State{1, 0}, 0, 0.1, 1e-8)
	if err != nil {
		t.Fatalf("StepAdaptive failed: %v", err)
	}

	if math.Abs(x[0]-math.Cos(0.1)) > 1e-9 {
		t.Errorf("position = %.12f, want %.12f", x[0], math.Cos(0.1))
	}
	if math.Abs(x[1]+math.Sin(0.1)) > 1e-9 {
		t.Errorf("velocity = %.12f, want %.12f", x[1], -math.Sin(0.1))
	}
}

func TestRK45StepSizeControl(t *testing.T) {
	r := NewRK45()

	// A loose tolerance on an easy problem should grow the step.
	_, hNext, err := r.StepAdaptive(oscillator{}, dynamo.State{1, 0}, 0, 0.01, 1e-3)
	if err != nil {
		t.Fatalf("StepAdaptive failed: %v", err)
	}
	if hNext <= 0.01 {
		t.Errorf("suggested step %g did not grow under loose tolerance", hNext)
	}

	// A tight tolerance on a large step should shrink it.
	_, hNext, err = r.StepAdaptive(oscillator{}, dynamo.State{1, 0}, 0, 1.0, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive failed: %v", err)
	}
	if hNext >= 1.0 {
		t.Errorf("suggested step %g did not shrink under tight tolerance", hNext)
	}
}

func TestRK45StepDelegates(t *testing.T) {
	r := NewRK45()

	plain := r.Step(oscillator{}, dynamo.State{1, 0}, 0, 0.05)
	adaptive, _, err := r.StepAdaptive(oscillator{}, dynamo.State{1, 0}, 0, 0.05, 1e-8)
	if err != nil {
		t.Fatalf("StepAdaptive failed: %v", err)
	}

	for i := range plain {
		if plain[i] != adaptive[i] {
			t.Errorf("Step and StepAdaptive disagree at %d: %g vs %g", i, plain[i], adaptive[i])
		}
	}
}

func TestIntegratorEnergyBehavior(t *testing.T) {
	// Oscillator energy x^2 + v^2 starts at 1. Euler inflates it; RK4 holds
	// it nearly constant over ten periods.
	energy := func(x dynamo.State) float64 { return x[0]*x[0] + x[1]*x[1] }

	steps := 10000
	dt := 20 * math.Pi / float64(steps)

	eu := integrate(NewEuler(), dynamo.State{1, 0}, dt, steps)
	if energy(eu) <= 1.0 {
		t.Errorf("Euler energy %g did not grow as expected", energy(eu))
	}

	rk := integrate(NewRK4(), dynamo.State{1, 0}, dt, steps)
	if math.Abs(energy(rk)-1.0) > 1e-6 {
		t.Errorf("RK4 energy drifted to %g over ten periods", energy(rk))
	}
}

func BenchmarkRK4Step(b *testing.B) {
	r := NewRK4()
	x := dynamo.State{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = r.Step(oscillator{}, x, 0, 0.01)
	}
}

func BenchmarkRK45StepAdaptive(b *testing.B) {
	r := NewRK45()
	x := dynamo.State{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _, _ = r.StepAdaptive(oscillator{}, x, 0, 0.01, 1e-8)
	}
}
