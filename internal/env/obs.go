// Package env composes the rigid-body model and the delay engine into a
// reinforcement-learning environment: state to observation mapping, sensor
// noise, observation history windows, action to rotor-speed mapping, reward
// shaping and episode control.
package env

import (
	"fmt"

	"github.com/aerobench/quadsim/internal/quad"
)

// RotationMode selects how the vehicle orientation enters the observation
// vector.
type RotationMode string

const (
	// RotMatGlobal observes the full rotation matrix, row-major.
	RotMatGlobal RotationMode = "rotmat_global"
	// RotMatLocal rebuilds the matrix from the ZYX decomposition.
	RotMatLocal RotationMode = "rotmat_local"
	// RotMatLocalPartial drops the heading before rebuilding the matrix,
	// for policies that should be yaw-invariant.
	RotMatLocalPartial RotationMode = "rotmat_local_partial"
	// EulerGlobal observes roll, pitch and yaw.
	EulerGlobal RotationMode = "euler_global"
	// EulerLocal observes the ZYX decomposition.
	EulerLocal RotationMode = "euler_local"
	// EulerLocalPartial observes the ZYX decomposition without heading.
	EulerLocalPartial RotationMode = "euler_local_partial"
	// RotDirect observes the raw quaternion components.
	RotDirect RotationMode = "direct"
)

// ObservationConfig controls which state components are observed and how
// they are scaled. A zero scale excludes the component from the vector.
type ObservationConfig struct {
	Local                bool // express position and velocity in the body frame
	HuberScaling         bool // squash scaled components through invertedHuber
	PositionScale        float64
	VelocityScale        float64
	AngularVelocityScale float64
	RotorSpeedScale      float64
	DtScale              float64
	AgeScale             float64
	ObserveRotation      bool
	RotationMode         RotationMode
}

// DefaultObservationConfig observes position, velocity, rotation matrix and
// angular velocity in the body frame with balanced scales.
func DefaultObservationConfig() ObservationConfig {
	return ObservationConfig{
		Local:                true,
		PositionScale:        0.5,
		VelocityScale:        0.5,
		AngularVelocityScale: 0.15,
		ObserveRotation:      true,
		RotationMode:         RotMatGlobal,
	}
}

// ObservationMap turns vehicle states into flat observation vectors. The
// offsets can be mutated between steps to retarget the policy, e.g. to a
// moving setpoint.
type ObservationMap struct {
	cfg ObservationConfig

	PositionOffset        quad.Vec3
	VelocityOffset        quad.Vec3
	AngularVelocityOffset quad.Vec3
}

// NewObservationMap validates cfg and returns the mapping.
func NewObservationMap(cfg ObservationConfig) (*ObservationMap, error) {
	switch cfg.RotationMode {
	case RotMatGlobal, RotMatLocal, RotMatLocalPartial, EulerGlobal, EulerLocal, EulerLocalPartial, RotDirect:
	case "":
		cfg.RotationMode = RotMatGlobal
	default:
		return nil, fmt.Errorf("env: unknown rotation mode %q", cfg.RotationMode)
	}
	return &ObservationMap{cfg: cfg}, nil
}

// Len returns the length of the produced observation vector.
func (m *ObservationMap) Len() int {
	n := 0
	if m.cfg.PositionScale != 0 {
		n += 3
	}
	if m.cfg.VelocityScale != 0 {
		n += 3
	}
	if m.cfg.ObserveRotation {
		switch m.cfg.RotationMode {
		case RotMatGlobal, RotMatLocal, RotMatLocalPartial:
			n += 9
		case EulerGlobal, EulerLocal:
			n += 3
		case EulerLocalPartial:
			n += 2
		case RotDirect:
			n += 4
		}
	}
	if m.cfg.AngularVelocityScale != 0 {
		n += 3
	}
	if m.cfg.RotorSpeedScale != 0 {
		n += 4
	}
	if m.cfg.DtScale != 0 {
		n++
	}
	if m.cfg.AgeScale != 0 {
		n++
	}
	return n
}

// Observe maps a state plus step timing into the observation vector.
func (m *ObservationMap) Observe(s quad.State, dt, age float64) []float64 {
	out := make([]float64, 0, m.Len())

	if m.cfg.PositionScale != 0 {
		out = m.appendVec(out, s.Position.Sub(m.PositionOffset).Scale(m.cfg.PositionScale), s.Rotation)
	}
	if m.cfg.VelocityScale != 0 {
		out = m.appendVec(out, s.Velocity.Sub(m.VelocityOffset).Scale(m.cfg.VelocityScale), s.Rotation)
	}
	if m.cfg.ObserveRotation {
		out = m.appendRotation(out, s.Rotation)
	}
	if m.cfg.AngularVelocityScale != 0 {
		w := s.AngularVelocity.Sub(m.AngularVelocityOffset).Scale(m.cfg.AngularVelocityScale)
		out = m.appendScaled(out, w.X, w.Y, w.Z)
	}
	if m.cfg.RotorSpeedScale != 0 {
		for _, w := range s.RotorSpeed {
			out = m.appendScaled(out, w*m.cfg.RotorSpeedScale)
		}
	}
	if m.cfg.DtScale != 0 {
		out = append(out, dt*m.cfg.DtScale)
	}
	if m.cfg.AgeScale != 0 {
		out = append(out, age*m.cfg.AgeScale)
	}
	return out
}

func (m *ObservationMap) appendVec(out []float64, v quad.Vec3, rot quad.Quat) []float64 {
	if m.cfg.Local {
		v = rot.RotateInverse(v)
	}
	return m.appendScaled(out, v.X, v.Y, v.Z)
}

func (m *ObservationMap) appendScaled(out []float64, vals ...float64) []float64 {
	for _, v := range vals {
		if m.cfg.HuberScaling {
			v = invertedHuber(v)
		}
		out = append(out, v)
	}
	return out
}

func (m *ObservationMap) appendRotation(out []float64, q quad.Quat) []float64 {
	switch m.cfg.RotationMode {
	case RotMatLocal:
		r := quad.RotMatZYX(q.EulerZYX())
		return append(out, r[:]...)
	case RotMatLocalPartial:
		e := q.EulerZYX()
		e.X = 0
		r := quad.RotMatZYX(e)
		return append(out, r[:]...)
	case EulerGlobal:
		e := q.EulerRPY()
		return append(out, e.X, e.Y, e.Z)
	case EulerLocal:
		e := q.EulerZYX()
		return append(out, e.X, e.Y, e.Z)
	case EulerLocalPartial:
		e := q.EulerZYX()
		return append(out, e.Y, e.Z)
	case RotDirect:
		return append(out, q.W, q.X, q.Y, q.Z)
	default: // RotMatGlobal
		r := q.RotationMatrix()
		return append(out, r[:]...)
	}
}
