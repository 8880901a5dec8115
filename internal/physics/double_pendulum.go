package physics

import (
	"fmt"
	"math"

	"github.com/chaoslab/dpsim/internal/dynamo"
)

// DoublePendulum is the two-link pendulum model. State layout:
//
//	x[0] = theta1  x[1] = omega1  x[2] = theta2  x[3] = omega2
type DoublePendulum struct {
	params Params
}

// NewDoublePendulum validates p and builds the model. Invalid parameters
// are rejected here, before any integration work begins.
func NewDoublePendulum(p Params) (*DoublePendulum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &DoublePendulum{params: p}, nil
}

func (d *DoublePendulum) Params() Params { return d.params }

func (d *DoublePendulum) Dim() int { return 4 }

// Derive computes (omega1, alpha1, omega2, alpha2) from the Lagrangian
// equations of motion. The denominator (m1+m2)*L1 - m2*L1*cos^2(delta) is
// bounded below by m1*L1 > 0, so no singular configuration exists for
// valid parameters.
func (d *DoublePendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta1, omega1, theta2, omega2 := x[0], x[1], x[2], x[3]
	m1, m2 := d.params.M1, d.params.M2
	l1, l2 := d.params.L1, d.params.L2
	g := d.params.Gravity

	delta := theta2 - theta1
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	den1 := (m1+m2)*l1 - m2*l1*cosD*cosD
	den2 := (l2 / l1) * den1

	alpha1 := (m2*l1*omega1*omega1*sinD*cosD +
		m2*g*math.Sin(theta2)*cosD +
		m2*l2*omega2*omega2*sinD -
		(m1+m2)*g*math.Sin(theta1)) / den1

	alpha2 := (-m2*l2*omega2*omega2*sinD*cosD +
		(m1+m2)*g*math.Sin(theta1)*cosD -
		(m1+m2)*l1*omega1*omega1*sinD -
		(m1+m2)*g*math.Sin(theta2)) / den2

	return dynamo.State{omega1, alpha1, omega2, alpha2}
}

// Energy returns total mechanical energy, kinetic plus potential, with the
// potential referenced to the pivot. The kinetic term carries the m2 cross
// term 2*L1*L2*omega1*omega2*cos(theta1-theta2).
func (d *DoublePendulum) Energy(x dynamo.State) float64 {
	theta1, omega1, theta2, omega2 := x[0], x[1], x[2], x[3]
	m1, m2 := d.params.M1, d.params.M2
	l1, l2 := d.params.L1, d.params.L2
	g := d.params.Gravity

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := v1sq + l2*l2*omega2*omega2 +
		2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq

	y1 := -l1 * math.Cos(theta1)
	y2 := y1 - l2*math.Cos(theta2)
	pe := m1*g*y1 + m2*g*y2

	return ke + pe
}

func (d *DoublePendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"l1": d.params.L1,
		"l2": d.params.L2,
		"m1": d.params.M1,
		"m2": d.params.M2,
		"g":  d.params.Gravity,
	}
}

func (d *DoublePendulum) SetParam(name string, value float64) error {
	if value <= 0 {
		return &ParamError{Field: name, Value: value}
	}
	switch name {
	case "l1":
		d.params.L1 = value
	case "l2":
		d.params.L2 = value
	case "m1":
		d.params.M1 = value
	case "m2":
		d.params.M2 = value
	case "g":
		d.params.Gravity = value
	default:
		return fmt.Errorf("physics: unknown param: %s", name)
	}
	return nil
}
