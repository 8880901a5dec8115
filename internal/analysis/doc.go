// Package analysis provides chaos diagnostics for the double pendulum:
//
//   - [BobDivergence]: separation of two trajectories differing by a tiny
//     perturbation, measured as Euclidean distance between bob positions
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory
//     separation with renormalization
//   - [PhasePortrait]: 2D phase space projection of a stored trajectory
//
// A positive largest Lyapunov exponent indicates chaotic dynamics.
package analysis
