package analysis

import (
	"math"

	"github.com/chaoslab/dpsim/internal/dynamo"
	"github.com/chaoslab/dpsim/internal/frames"
	"github.com/chaoslab/dpsim/internal/physics"
)

// Divergence holds the separation of two nearby trajectories over time.
type Divergence struct {
	Times    []float64
	Distance []float64 // Euclidean distance between bob positions
	Initial  float64   // bob distance at t=0
}

// MaxRatio returns the peak separation relative to the initial separation.
func (d *Divergence) MaxRatio() float64 {
	if d.Initial == 0 {
		return 0
	}
	max := 0.0
	for _, v := range d.Distance {
		if v > max {
			max = v
		}
	}
	return max / d.Initial
}

// BobDivergence integrates x0 and a copy with theta2 perturbed by perturb,
// and records the distance between the two bob positions at every step.
// Both trajectories use the same integrator coefficients, so the divergence
// measures sensitivity of the dynamics, not of the solver.
func BobDivergence(model *physics.DoublePendulum, integ dynamo.Integrator, x0 dynamo.State, perturb, dt, duration float64) *Divergence {
	p := model.Params()

	x := x0.Clone()
	xp := x0.Clone()
	xp[2] += perturb

	steps := int(math.Round(duration / dt))
	div := &Divergence{
		Times:    make([]float64, 0, steps),
		Distance: make([]float64, 0, steps),
		Initial:  bobDistance(p, x, xp),
	}

	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		x = integ.Step(model, x, t, dt)
		xp = integ.Step(model, xp, t, dt)

		div.Times = append(div.Times, float64(i+1)*dt)
		div.Distance = append(div.Distance, bobDistance(p, x, xp))
	}

	return div
}

func bobDistance(p physics.Params, a, b dynamo.State) float64 {
	_, _, ax, ay := frames.Positions(p, a)
	_, _, bx, by := frames.Positions(p, b)
	dx, dy := ax-bx, ay-by
	return math.Sqrt(dx*dx + dy*dy)
}

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method.
//
// Algorithm:
//  1. Run two nearby trajectories
//  2. Measure their divergence over time
//  3. lambda ~ (1/t) * ln(|dx(t)/dx(0)|), renormalizing to stay in the
//     linear regime
func LyapunovExponent(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, dt, duration, perturbation float64) float64 {
	if len(x0) == 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation
	d0 := perturbation

	t := 0.0
	sumLog := 0.0
	count := 0

	for t < duration {
		x = integ.Step(sys, x, t, dt)
		xp = integ.Step(sys, xp, t, dt)
		t += dt

		sep := xp.Sub(x).Norm()

		if sep > 0 && d0 > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// Renormalize to prevent overflow
		if sep > 1.0 {
			scale := d0 / sep
			for i := range xp {
				xp[i] = x[i] + (xp[i]-x[i])*scale
			}
		}
	}

	if count == 0 || t == 0 {
		return 0
	}

	return sumLog / (float64(count) * dt)
}
