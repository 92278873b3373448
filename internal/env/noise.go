package env

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aerobench/quadsim/internal/quad"
)

// Gaussian describes one additive noise source. The zero value is silent.
type Gaussian struct {
	Mean float64
	Std  float64
}

func (g Gaussian) enabled() bool { return g.Std != 0 || g.Mean != 0 }

// NoiseConfig sets per-component sensor noise. Scale multiplies every
// standard deviation, making it easy to fade all noise in or out together.
type NoiseConfig struct {
	Scale           float64
	Position        Gaussian
	Velocity        Gaussian
	Rotation        Gaussian
	AngularVelocity Gaussian
	RotorSpeed      Gaussian
}

// NoiseModel adds Gaussian sensor noise to observed states. The true state
// kept by the delay engine is never touched.
type NoiseModel struct {
	cfg  NoiseConfig
	dist distuv.Normal
}

// NewNoiseModel builds a noise model drawing from src. src may be nil when
// no component has noise configured.
func NewNoiseModel(cfg NoiseConfig, src rand.Source) *NoiseModel {
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	return &NoiseModel{
		cfg:  cfg,
		dist: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

func (n *NoiseModel) sample(g Gaussian) float64 {
	return n.dist.Rand()*g.Std*n.cfg.Scale + g.Mean
}

func (n *NoiseModel) noisedVec(v quad.Vec3, g Gaussian) quad.Vec3 {
	if !g.enabled() {
		return v
	}
	return quad.Vec3{
		X: v.X + n.sample(g),
		Y: v.Y + n.sample(g),
		Z: v.Z + n.sample(g),
	}
}

// Apply returns a copy of s with the configured noise added. Rotation noise
// perturbs the raw quaternion components; consumers that need a unit
// rotation normalize downstream.
func (n *NoiseModel) Apply(s quad.State) quad.State {
	s.Position = n.noisedVec(s.Position, n.cfg.Position)
	s.Velocity = n.noisedVec(s.Velocity, n.cfg.Velocity)
	s.AngularVelocity = n.noisedVec(s.AngularVelocity, n.cfg.AngularVelocity)
	if g := n.cfg.Rotation; g.enabled() {
		s.Rotation.W += n.sample(g)
		s.Rotation.X += n.sample(g)
		s.Rotation.Y += n.sample(g)
		s.Rotation.Z += n.sample(g)
	}
	if g := n.cfg.RotorSpeed; g.enabled() {
		for i := range s.RotorSpeed {
			s.RotorSpeed[i] += n.sample(g)
		}
	}
	return s
}
