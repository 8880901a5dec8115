// Package physics provides the double pendulum model: two rigid massless
// arms with point-mass bobs, connected end to end and free to rotate under
// gravity.
//
// The model implements [dynamo.System] with the closed-form equations of
// motion derived from the two-link Lagrangian, and [dynamo.Hamiltonian] for
// total mechanical energy. It keeps no mutable state beyond its parameters;
// Derive is a pure function.
//
// Angles are measured from the downward vertical, state ordering is
// (theta1, omega1, theta2, omega2). Angles are never wrapped; wrapping is a
// display concern.
package physics
