// Package dynamo provides the core primitives for numerical simulation
// of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [AdaptiveIntegrator]: integrator with embedded error control
//   - [Simulator]: orchestrates a run and produces a [Result]
//
// # Example
//
//	model, _ := physics.NewDoublePendulum(physics.DefaultParams())
//	integ := integrators.NewRK4()
//	sim := dynamo.New(model, integ)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Run independent Simulators for
// parallel trajectories; [ParallelFor] covers per-sample post-processing.
package dynamo
