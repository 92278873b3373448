package env

import (
	"fmt"
	"math"

	"github.com/aerobench/quadsim/internal/quad"
)

// ControlMode selects what quantity a policy action in [-1, 1] commands.
type ControlMode string

const (
	// ControlDirect maps actions linearly onto relative rotor speeds.
	ControlDirect ControlMode = "direct"
	// ControlThrust maps actions onto relative thrust (squared speed).
	ControlThrust ControlMode = "thrust"
	// ControlAcceleration maps actions onto relative rotor accelerations.
	ControlAcceleration ControlMode = "acceleration"
)

// AccelLimitMode selects how rotor accelerations are constrained.
type AccelLimitMode string

const (
	// AccelClip hard-clips the acceleration at the limit.
	AccelClip AccelLimitMode = "clip"
	// AccelTanh squashes the acceleration smoothly toward the limit.
	AccelTanh AccelLimitMode = "tanh"
)

// RotorConfig parameterizes the action to rotor-speed mapping. Speeds and
// accelerations are relative to the hovering speed.
type RotorConfig struct {
	MinSpeed   float64 // relative lower speed bound
	MaxSpeed   float64 // relative upper speed bound
	MaxAccel   float64 // relative acceleration limit, +Inf for none
	AccelLimit AccelLimitMode
	Control    ControlMode
}

// DefaultRotorConfig drives the rotors directly up to three times the
// hovering speed with unconstrained acceleration.
func DefaultRotorConfig() RotorConfig {
	return RotorConfig{
		MinSpeed:   0,
		MaxSpeed:   3,
		MaxAccel:   math.Inf(1),
		AccelLimit: AccelClip,
		Control:    ControlDirect,
	}
}

// RotorMapping converts policy outputs into absolute rotor speeds while
// tracking the previous command so acceleration limits can be enforced. It
// is stateful; call Reset at episode start.
type RotorMapping struct {
	cfg   RotorConfig
	hover float64
	prev  [4]float64 // previous relative speed (or thrust)
}

// NewRotorMapping validates cfg against the vehicle's hovering speed.
func NewRotorMapping(hoverSpeed float64, cfg RotorConfig) (*RotorMapping, error) {
	switch cfg.Control {
	case "", ControlDirect:
		cfg.Control = ControlDirect
	case ControlThrust:
		if cfg.MinSpeed < 0 {
			return nil, fmt.Errorf("env: thrust control cannot reverse, min speed %v must not be negative", cfg.MinSpeed)
		}
	case ControlAcceleration:
		if math.IsInf(cfg.MaxAccel, 1) {
			return nil, fmt.Errorf("env: acceleration control needs a finite acceleration limit")
		}
	default:
		return nil, fmt.Errorf("env: unknown control mode %q", cfg.Control)
	}
	switch cfg.AccelLimit {
	case "", AccelClip:
		cfg.AccelLimit = AccelClip
	case AccelTanh:
	default:
		return nil, fmt.Errorf("env: unknown acceleration limit mode %q", cfg.AccelLimit)
	}
	if cfg.MinSpeed >= cfg.MaxSpeed {
		return nil, fmt.Errorf("env: speed bounds [%v, %v] are empty", cfg.MinSpeed, cfg.MaxSpeed)
	}
	if hoverSpeed <= 0 {
		return nil, fmt.Errorf("env: hovering speed must be positive, got %v", hoverSpeed)
	}
	return &RotorMapping{cfg: cfg, hover: hoverSpeed}, nil
}

// Reset sets the previous command from absolute initial rotor speeds and
// returns the relative form.
func (m *RotorMapping) Reset(initial quad.RotorSpeeds) [4]float64 {
	for i, w := range initial {
		rel := w / m.hover
		if m.cfg.Control == ControlThrust {
			rel = rel * rel
		}
		m.prev[i] = rel
	}
	return m.prev
}

// Map converts one policy action into absolute rotor speeds. It also
// returns the relative speeds and the realized relative accelerations, the
// quantities the reward function penalizes.
func (m *RotorMapping) Map(action [4]float64, dt float64) (speeds quad.RotorSpeeds, rel, accel [4]float64) {
	for i, a := range action {
		var next float64
		switch m.cfg.Control {
		case ControlAcceleration:
			target := m.prev[i] + a*m.cfg.MaxAccel*dt
			next = clampf(target, m.cfg.MinSpeed, m.cfg.MaxSpeed)
		default: // direct and thrust share the target-then-limit shape
			target := (a+1)/2*(m.cfg.MaxSpeed-m.cfg.MinSpeed) + m.cfg.MinSpeed
			next = m.prev[i] + m.limitAccel((target-m.prev[i])/dt)*dt
		}
		accel[i] = (next - m.prev[i]) / dt
		m.prev[i] = next
		rel[i] = next
		if m.cfg.Control == ControlThrust {
			speeds[i] = math.Sqrt(next) * m.hover
		} else {
			speeds[i] = next * m.hover
		}
	}
	return speeds, rel, accel
}

func (m *RotorMapping) limitAccel(a float64) float64 {
	if math.IsInf(m.cfg.MaxAccel, 1) {
		return a
	}
	if m.cfg.AccelLimit == AccelTanh {
		return math.Tanh(a/m.cfg.MaxAccel) * m.cfg.MaxAccel
	}
	return clampf(a, -m.cfg.MaxAccel, m.cfg.MaxAccel)
}

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
