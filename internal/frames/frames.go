// Package frames derives plottable quantities from a trajectory: Cartesian
// joint and bob positions, bob trail, and the energy time series. Every
// frame is a pure function of one sample and the immutable parameters, so
// extraction parallelizes across the trajectory.
package frames

import (
	"math"

	"github.com/chaoslab/dpsim/internal/dynamo"
	"github.com/chaoslab/dpsim/internal/physics"
)

// DefaultTrailLen is the bob trace length used by the animation views.
const DefaultTrailLen = 200

// parallelMinChunk keeps goroutine overhead below the per-frame work for
// short trajectories.
const parallelMinChunk = 512

// Frame is one trajectory sample in Cartesian form. (X1, Y1) is the joint
// at the end of arm 1, (X2, Y2) the bob at the end of arm 2, with the pivot
// at the origin and y pointing up.
type Frame struct {
	T      float64
	X1, Y1 float64
	X2, Y2 float64
	Energy float64
}

// Positions maps angles to Cartesian joint and bob positions.
func Positions(p physics.Params, x dynamo.State) (x1, y1, x2, y2 float64) {
	theta1, theta2 := x[0], x[2]
	x1 = p.L1 * math.Sin(theta1)
	y1 = -p.L1 * math.Cos(theta1)
	x2 = x1 + p.L2*math.Sin(theta2)
	y2 = y1 - p.L2*math.Cos(theta2)
	return
}

// FromResult extracts one Frame per trajectory sample. The result never
// aliases the trajectory; frames are always recomputable from it.
func FromResult(model *physics.DoublePendulum, res *dynamo.Result) []Frame {
	out := make([]Frame, len(res.States))
	p := model.Params()

	dynamo.ParallelFor(len(res.States), parallelMinChunk, func(start, end int) {
		for i := start; i < end; i++ {
			x := res.States[i]
			x1, y1, x2, y2 := Positions(p, x)
			out[i] = Frame{
				T:  res.Times[i],
				X1: x1, Y1: y1,
				X2: x2, Y2: y2,
				Energy: model.Energy(x),
			}
		}
	})

	return out
}

// EnergySeries derives total mechanical energy per sample without
// re-running integration.
func EnergySeries(model *physics.DoublePendulum, res *dynamo.Result) []float64 {
	out := make([]float64, len(res.States))
	dynamo.ParallelFor(len(res.States), parallelMinChunk, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = model.Energy(res.States[i])
		}
	})
	return out
}

// Trail returns the bob positions of the last n frames, oldest first.
func Trail(fs []Frame, n int) [][2]float64 {
	if n > len(fs) {
		n = len(fs)
	}
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		f := fs[len(fs)-n+i]
		out[i] = [2]float64{f.X2, f.Y2}
	}
	return out
}
