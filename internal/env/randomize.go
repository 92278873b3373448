package env

import (
	"math/rand/v2"

	"github.com/aerobench/quadsim/internal/quad"
)

// Interval is a uniform sampling range for a randomized parameter.
type Interval struct {
	Low, High float64
}

// Sample draws uniformly from the interval.
func (iv Interval) Sample(rng *rand.Rand) float64 {
	return iv.Low + rng.Float64()*(iv.High-iv.Low)
}

// SampleInt draws an integer uniformly from [Low, High). Used for tick
// counts such as delay lengths.
func (iv Interval) SampleInt(rng *rand.Rand) int {
	lo, hi := int(iv.Low), int(iv.High)
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo)
}

// ConfigSampler produces an environment configuration. Randomizing
// simulation parameters between episodes trains policies that survive
// model mismatch on real hardware.
type ConfigSampler func(rng *rand.Rand) Config

// RandomizedEnvironment rebuilds its inner environment with a freshly
// sampled configuration on every reset.
type RandomizedEnvironment struct {
	sampler ConfigSampler
	src     rand.Source
	rng     *rand.Rand
	env     *Environment
}

// NewRandomized validates the sampler by building one environment from it.
func NewRandomized(sampler ConfigSampler, src rand.Source) (*RandomizedEnvironment, error) {
	rng := rand.New(src)
	env, err := New(sampler(rng), src)
	if err != nil {
		return nil, err
	}
	return &RandomizedEnvironment{sampler: sampler, src: src, rng: rng, env: env}, nil
}

// Env returns the environment built for the current episode.
func (r *RandomizedEnvironment) Env() *Environment { return r.env }

// Reset samples a new configuration, rebuilds the environment and starts an
// episode in it.
func (r *RandomizedEnvironment) Reset(initial *quad.State, rotors *quad.RotorSpeeds) ([]float64, error) {
	env, err := New(r.sampler(r.rng), r.src)
	if err != nil {
		return nil, err
	}
	r.env = env
	return env.Reset(initial, rotors), nil
}

// Step forwards to the environment of the current episode.
func (r *RandomizedEnvironment) Step(action [4]float64) ([]float64, float64, bool, error) {
	return r.env.Step(action)
}

// Time forwards to the environment of the current episode.
func (r *RandomizedEnvironment) Time() float64 { return r.env.Time() }
