package env

import (
	"fmt"
	"math"

	"github.com/aerobench/quadsim/internal/quad"
)

// Bound is a closed interval applied per component.
type Bound struct {
	Lo, Hi float64
}

func (b Bound) valid() bool { return b.Lo < b.Hi }

// Symmetric returns the interval [-v, v].
func Symmetric(v float64) Bound { return Bound{Lo: -v, Hi: v} }

// ClipConfig bounds the state the simulation can reach. Out-of-bound
// components are clamped after every transition, keeping diverging policies
// inside a finite training volume.
type ClipConfig struct {
	Position        Bound
	Velocity        Bound
	AngularVelocity Bound
}

// DefaultClipConfig leaves the position unbounded and clamps velocity and
// angular velocity to the envelope of the reference vehicle.
func DefaultClipConfig() ClipConfig {
	return ClipConfig{
		Position:        Symmetric(math.Inf(1)),
		Velocity:        Symmetric(5),
		AngularVelocity: Symmetric(20),
	}
}

// ClippedModel wraps the rigid-body model and clamps each produced state.
// It satisfies the transition interface of the delay engine.
type ClippedModel struct {
	model *quad.Model
	cfg   ClipConfig
}

// NewClippedModel validates the bounds and wraps model.
func NewClippedModel(model *quad.Model, cfg ClipConfig) (*ClippedModel, error) {
	if (cfg.Position == Bound{}) {
		cfg.Position = Symmetric(math.Inf(1))
	}
	if (cfg.Velocity == Bound{}) {
		cfg.Velocity = Symmetric(math.Inf(1))
	}
	if (cfg.AngularVelocity == Bound{}) {
		cfg.AngularVelocity = Symmetric(math.Inf(1))
	}
	for _, b := range []Bound{cfg.Position, cfg.Velocity, cfg.AngularVelocity} {
		if !b.valid() {
			return nil, fmt.Errorf("env: empty clip bound [%v, %v]", b.Lo, b.Hi)
		}
	}
	return &ClippedModel{model: model, cfg: cfg}, nil
}

// Model returns the wrapped rigid-body model.
func (c *ClippedModel) Model() *quad.Model { return c.model }

// NextState advances the wrapped model and clamps the result.
func (c *ClippedModel) NextState(x quad.State, u quad.RotorSpeeds, h float64) quad.State {
	x = c.model.NextState(x, u, h)
	x.Position = clampVec(x.Position, c.cfg.Position)
	x.Velocity = clampVec(x.Velocity, c.cfg.Velocity)
	x.AngularVelocity = clampVec(x.AngularVelocity, c.cfg.AngularVelocity)
	return x
}

func clampVec(v quad.Vec3, b Bound) quad.Vec3 {
	return v.Clamp(b.Lo, b.Hi)
}
