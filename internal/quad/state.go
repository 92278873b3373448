package quad

import "math"

// RotorSpeeds holds one angular speed per rotor, in the rotor numbering used
// by the mixing matrix (front-left, front-right, rear-right, rear-left).
type RotorSpeeds [4]float64

// IsNaN reports whether any speed is not-a-number.
func (r RotorSpeeds) IsNaN() bool {
	for _, s := range r {
		if math.IsNaN(s) {
			return true
		}
	}
	return false
}

// State is the full vehicle state. It is a value type: transitions return a
// new State and never mutate their input.
type State struct {
	Position        Vec3 // inertial frame, +z down
	Velocity        Vec3 // inertial frame
	Rotation        Quat // body → inertial, unit norm
	AngularVelocity Vec3 // body frame
	RotorSpeed      RotorSpeeds
}

// IsNaN reports whether any state component is not-a-number. Such a state is
// corrupted; detection is left to the caller, nothing auto-corrects it.
func (s State) IsNaN() bool {
	return s.Position.IsNaN() || s.Velocity.IsNaN() || s.Rotation.IsNaN() ||
		s.AngularVelocity.IsNaN() || s.RotorSpeed.IsNaN()
}
