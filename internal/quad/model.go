// Package quad implements a closed-form rigid-body model of a quadrotor.
//
// The model is explicit: rotor spin-up, translation and rotation are all
// advanced by exact solutions under inputs held constant over the step, so
// accuracy does not degrade with large or irregular step sizes. This is what
// lets the delay engine advance by jittered steps without sub-stepping.
package quad

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Params are the physical parameters of the vehicle. The zero value is not
// usable; start from DefaultParams.
type Params struct {
	Gravity      float64 // m/s², magnitude; acts along +z (down)
	Mass         float64 // kg
	Inertia      Vec3    // principal moments of inertia, kg·m²
	ArmLength    float64 // half side length of the rotor square, m
	ThrustCoeff  float64 // rotor thrust coefficient
	RotorInertia float64 // rotor spin-up coefficient; speed relaxes by RotorInertia^h
	DragCoeff    float64 // rotor drag coefficient
}

// DefaultParams describe the reference vehicle used for policy training.
func DefaultParams() Params {
	return Params{
		Gravity:      9.80665,
		Mass:         1.43805,
		Inertia:      Vec3{0.01467, 0.01441, 0.02441},
		ArmLength:    0.16,
		ThrustCoeff:  1.018841e-5,
		RotorInertia: 6.32180911740998e-9,
		DragCoeff:    4.82e-8,
	}
}

// Model advances vehicle states under rotor-speed commands. It is immutable
// after construction and safe to share across simulation instances.
type Model struct {
	params Params
	mix    *mat.Dense // squared rotor speeds → (roll, pitch, yaw moment, thrust)
	mixInv *mat.Dense
	hover  float64
}

// NewModel validates the parameters and derives the mixing matrix, its
// inverse and the hovering rotor speed.
func NewModel(p Params) (*Model, error) {
	switch {
	case p.Gravity <= 0:
		return nil, fmt.Errorf("quad: gravity must be positive, got %v", p.Gravity)
	case p.Mass <= 0:
		return nil, fmt.Errorf("quad: mass must be positive, got %v", p.Mass)
	case p.Inertia.X <= 0 || p.Inertia.Y <= 0 || p.Inertia.Z <= 0:
		return nil, fmt.Errorf("quad: inertia components must be positive, got %v", p.Inertia)
	case p.ArmLength <= 0:
		return nil, fmt.Errorf("quad: arm length must be positive, got %v", p.ArmLength)
	case p.ThrustCoeff <= 0:
		return nil, fmt.Errorf("quad: thrust coefficient must be positive, got %v", p.ThrustCoeff)
	case p.RotorInertia <= 0 || p.RotorInertia >= 1:
		return nil, fmt.Errorf("quad: rotor inertia coefficient must be in (0, 1), got %v", p.RotorInertia)
	case p.DragCoeff <= 0:
		return nil, fmt.Errorf("quad: drag coefficient must be positive, got %v", p.DragCoeff)
	}

	lk := p.ArmLength * p.ThrustCoeff
	mix := mat.NewDense(4, 4, []float64{
		-lk, -lk, +lk, +lk,
		+lk, -lk, -lk, +lk,
		-p.DragCoeff, +p.DragCoeff, -p.DragCoeff, +p.DragCoeff,
		-p.ThrustCoeff, -p.ThrustCoeff, -p.ThrustCoeff, -p.ThrustCoeff,
	})

	var mixInv mat.Dense
	if err := mixInv.Inverse(mix); err != nil {
		return nil, fmt.Errorf("quad: mixing matrix is singular: %w", err)
	}

	return &Model{
		params: p,
		mix:    mix,
		mixInv: &mixInv,
		hover:  math.Sqrt(p.Mass * p.Gravity / p.ThrustCoeff / 4),
	}, nil
}

// Params returns the vehicle parameters.
func (m *Model) Params() Params { return m.params }

// HoverSpeed is the per-rotor speed at which total thrust equals weight.
func (m *Model) HoverSpeed() float64 { return m.hover }

// NextState computes the state after applying rotor command u for h seconds.
// h must be positive. The input state is not aliased.
func (m *Model) NextState(x State, u RotorSpeeds, h float64) State {
	// Rotor speeds relax toward the command by the exact solution of the
	// first-order lag: next = u + (prev - u) * ip^h.
	decay := math.Pow(m.params.RotorInertia, h)
	var rotor RotorSpeeds
	for i := range rotor {
		rotor[i] = u[i] + (x.RotorSpeed[i]-u[i])*decay
	}

	// Moments and total thrust from squared rotor speeds.
	sq := mat.NewVecDense(4, []float64{
		rotor[0] * rotor[0], rotor[1] * rotor[1], rotor[2] * rotor[2], rotor[3] * rotor[3],
	})
	var tf mat.VecDense
	tf.MulVec(m.mix, sq)
	moment := Vec3{tf.AtVec(0), tf.AtVec(1), tf.AtVec(2)}
	thrust := tf.AtVec(3)

	// Inertial acceleration: body-frame thrust rotated out, plus gravity.
	a := x.Rotation.Rotate(Vec3{0, 0, thrust / m.params.Mass}).
		Add(Vec3{0, 0, m.params.Gravity})

	pos := x.Position.Add(x.Velocity.Scale(h)).Add(a.Scale(h * h / 2))
	vel := x.Velocity.Add(a.Scale(h))

	// Orientation: quaternion exponential of half the exact angular
	// displacement under constant angular acceleration.
	angAccel := moment.Div(m.params.Inertia)
	halfDisp := x.AngularVelocity.Scale(h).Add(angAccel.Scale(h * h / 2)).Scale(0.5)
	rot := x.Rotation.Mul(QuatExp(halfDisp)).Normalize()

	omega := x.AngularVelocity.Add(angAccel.Scale(h))

	return State{
		Position:        pos,
		Velocity:        vel,
		Rotation:        rot,
		AngularVelocity: omega,
		RotorSpeed:      rotor,
	}
}

// MomentsToRotorSpeeds solves the inverse mixing problem: the rotor speeds
// producing the desired body moments and thrust. relThrust is relative to
// hover, 0 meaning none and 1 the hovering thrust. Infeasible commands (a
// negative squared speed) are shifted up uniformly, not reported as errors.
func (m *Model) MomentsToRotorSpeeds(moments Vec3, relThrust float64) RotorSpeeds {
	t := -m.params.Gravity * m.params.Mass * relThrust
	target := mat.NewVecDense(4, []float64{moments.X, moments.Y, moments.Z, t})
	var sq mat.VecDense
	sq.MulVec(m.mixInv, target)

	shift := 0.0
	for i := 0; i < 4; i++ {
		if v := sq.AtVec(i); v < shift {
			shift = v
		}
	}

	var out RotorSpeeds
	for i := range out {
		out[i] = math.Sqrt(sq.AtVec(i) - shift)
	}
	return out
}
