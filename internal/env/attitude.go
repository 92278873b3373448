package env

import (
	"github.com/aerobench/quadsim/internal/quad"
)

// PDConfig parameterizes the attitude support controller.
type PDConfig struct {
	P        float64
	D        float64
	YawScale float64 // yaw gains are multiplied by this factor
}

// DefaultPDConfig holds gains tuned for the reference vehicle.
func DefaultPDConfig() PDConfig {
	return PDConfig{P: 1.5, D: 0.4, YawScale: 1}
}

// AttitudePD is a proportional-differential controller on the vehicle's
// euler angles. Its output includes the hovering thrust, so it can fly the
// vehicle level on its own or stabilize a learning policy additively.
type AttitudePD struct {
	model *quad.Model
	kp    quad.Vec3
	kd    quad.Vec3
}

// NewAttitudePD builds the controller around the model used to convert
// moments into rotor speeds.
func NewAttitudePD(model *quad.Model, cfg PDConfig) *AttitudePD {
	if cfg.YawScale == 0 {
		cfg.YawScale = 1
	}
	return &AttitudePD{
		model: model,
		kp:    quad.Vec3{X: cfg.P, Y: cfg.P, Z: cfg.P * cfg.YawScale},
		kd:    quad.Vec3{X: cfg.D, Y: cfg.D, Z: cfg.D * cfg.YawScale},
	}
}

// Control computes rotor speeds steering the vehicle back to level flight.
func (c *AttitudePD) Control(s quad.State) quad.RotorSpeeds {
	e := s.Rotation.EulerRPY()
	w := s.AngularVelocity
	moments := quad.Vec3{
		X: -e.X*c.kp.X - w.X*c.kd.X,
		Y: -e.Y*c.kp.Y - w.Y*c.kd.Y,
		Z: -e.Z*c.kp.Z - w.Z*c.kd.Z,
	}
	return c.model.MomentsToRotorSpeeds(moments, 1)
}
