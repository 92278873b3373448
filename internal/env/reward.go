package env

import (
	"math"

	"github.com/aerobench/quadsim/internal/quad"
)

// RewardConfig weighs the state components entering the reward. The reward
// is the negative weighted sum, so every weight penalizes deviation from
// hovering at the origin. Horizontal and vertical parts are weighed
// separately because lateral flight differs from climbing.
type RewardConfig struct {
	Scale float64 // global factor applied to the summed penalty

	// Combined weights over all three axes. Normally the split
	// horizontal/vertical weights below are used instead.
	Position        float64
	Velocity        float64
	AngularVelocity float64

	PositionH        float64
	PositionV        float64
	VelocityH        float64
	VelocityV        float64
	RotationH        float64
	RotationV        float64
	AngularVelocityH float64
	AngularVelocityV float64

	RotorSpeed          float64 // norm of the relative rotor speeds
	RotorSpeedDeviation float64 // squared spread around the mean speed
	RotorAcceleration   float64 // squared relative accelerations

	InvertedHuber bool // sharpen state penalties near the target
}

// DefaultRewardConfig holds the weights the hovering policies were trained
// with.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		Scale:               0.00076,
		PositionH:           9.5,
		PositionV:           2.2,
		VelocityH:           0.9,
		VelocityV:           1.5,
		RotationH:           2,
		RotationV:           2,
		AngularVelocityH:    2,
		AngularVelocityV:    2,
		RotorSpeedDeviation: 1,
		RotorAcceleration:   1,
		InvertedHuber:       true,
	}
}

// Reward scores states and rotor commands.
type Reward struct {
	cfg RewardConfig
}

// NewReward returns a reward function with the given weights. A zero Scale
// falls back to the default.
func NewReward(cfg RewardConfig) *Reward {
	if cfg.Scale == 0 {
		cfg.Scale = DefaultRewardConfig().Scale
	}
	return &Reward{cfg: cfg}
}

func (r *Reward) state(x float64) float64 {
	if r.cfg.InvertedHuber {
		return invertedHuber(x)
	}
	return x
}

// Score computes the reward for a state and the relative rotor speeds and
// accelerations that led to it. Higher is better; the maximum of 0 is
// reached hovering level at the origin.
func (r *Reward) Score(s quad.State, relSpeed, relAccel [4]float64) float64 {
	c := r.cfg
	total := 0.0

	add := func(weight, magnitude float64) {
		if weight != 0 {
			total += r.state(magnitude * weight)
		}
	}

	add(c.Position, s.Position.Norm())
	add(c.PositionH, math.Hypot(s.Position.X, s.Position.Y))
	add(c.PositionV, math.Abs(s.Position.Z))

	add(c.Velocity, s.Velocity.Norm())
	add(c.VelocityH, math.Hypot(s.Velocity.X, s.Velocity.Y))
	add(c.VelocityV, math.Abs(s.Velocity.Z))

	add(c.AngularVelocity, s.AngularVelocity.Norm())
	add(c.AngularVelocityH, math.Hypot(s.AngularVelocity.X, s.AngularVelocity.Y))
	add(c.AngularVelocityV, math.Abs(s.AngularVelocity.Z))

	if c.RotationH != 0 || c.RotationV != 0 {
		// ZYX decomposition keeps the heading penalty meaningful in the
		// global frame; X is the heading, Y and Z tilt away from level.
		e := s.Rotation.EulerZYX()
		add(c.RotationH, math.Hypot(e.Y, e.Z))
		add(c.RotationV, math.Abs(e.X))
	}

	if c.RotorSpeed != 0 {
		n := 0.0
		for _, w := range relSpeed {
			n += w * w
		}
		total += c.RotorSpeed * math.Sqrt(n)
	}
	if c.RotorSpeedDeviation != 0 {
		mean := (relSpeed[0] + relSpeed[1] + relSpeed[2] + relSpeed[3]) / 4
		dev := 0.0
		for _, w := range relSpeed {
			dev += (w - mean) * (w - mean)
		}
		total += c.RotorSpeedDeviation * dev
	}
	if c.RotorAcceleration != 0 {
		acc := 0.0
		for _, a := range relAccel {
			acc += a * a
		}
		total += c.RotorAcceleration * acc
	}

	return -c.Scale * total
}
