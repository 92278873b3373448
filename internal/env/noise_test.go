package env

import (
	"math/rand/v2"
	"testing"

	"github.com/aerobench/quadsim/internal/quad"
)

func sampleState() quad.State {
	return quad.State{
		Position:        quad.Vec3{X: 1, Y: 2, Z: 3},
		Velocity:        quad.Vec3{X: -1, Z: 0.5},
		Rotation:        quad.QuatIdentity,
		AngularVelocity: quad.Vec3{Y: 4},
		RotorSpeed:      quad.RotorSpeeds{100, 100, 100, 100},
	}
}

func TestNoiseZeroConfigIsIdentity(t *testing.T) {
	n := NewNoiseModel(NoiseConfig{}, nil)
	s := sampleState()
	if got := n.Apply(s); got != s {
		t.Errorf("Apply() = %+v, want unchanged %+v", got, s)
	}
}

func TestNoisePerturbsOnlyConfiguredComponents(t *testing.T) {
	n := NewNoiseModel(NoiseConfig{
		Position: Gaussian{Std: 0.1},
	}, rand.NewPCG(4, 0))
	s := sampleState()
	got := n.Apply(s)

	if got.Position == s.Position {
		t.Error("position not perturbed")
	}
	if got.Velocity != s.Velocity || got.Rotation != s.Rotation ||
		got.AngularVelocity != s.AngularVelocity || got.RotorSpeed != s.RotorSpeed {
		t.Errorf("unconfigured components changed: %+v", got)
	}
}

func TestNoiseMeanOnly(t *testing.T) {
	// With zero standard deviation the offset is exact regardless of src.
	n := NewNoiseModel(NoiseConfig{
		Velocity: Gaussian{Mean: 2},
	}, rand.NewPCG(5, 0))
	s := sampleState()
	got := n.Apply(s)

	want := s.Velocity
	want.X += 2
	want.Y += 2
	want.Z += 2
	if got.Velocity != want {
		t.Errorf("velocity = %+v, want %+v", got.Velocity, want)
	}
}

func TestNoiseScale(t *testing.T) {
	// The same source with a doubled global scale doubles each deviation.
	// Starting from the origin keeps the comparison exact.
	s := quad.State{Rotation: quad.QuatIdentity}
	a := NewNoiseModel(NoiseConfig{Position: Gaussian{Std: 1}}, rand.NewPCG(6, 0)).Apply(s)
	b := NewNoiseModel(NoiseConfig{Scale: 2, Position: Gaussian{Std: 1}}, rand.NewPCG(6, 0)).Apply(s)

	if got, want := b.Position.X, 2*a.Position.X; got != want {
		t.Errorf("scaled deviation = %v, want %v", got, want)
	}
}

func TestNoiseRotationUnnormalized(t *testing.T) {
	n := NewNoiseModel(NoiseConfig{Rotation: Gaussian{Std: 0.2}}, rand.NewPCG(7, 0))
	got := n.Apply(sampleState()).Rotation
	if got == quad.QuatIdentity {
		t.Error("rotation not perturbed")
	}
}
