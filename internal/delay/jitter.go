package delay

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Jitter draws a symmetric perturbation applied to a nominal duration.
type Jitter interface {
	// Sample returns an offset in [-width, width).
	Sample() float64
}

type zeroJitter struct{}

func (zeroJitter) Sample() float64 { return 0 }

// NoJitter returns a sampler that always yields zero, keeping tick
// boundaries exactly on the nominal grid.
func NoJitter() Jitter { return zeroJitter{} }

type uniformJitter struct {
	dist distuv.Uniform
}

func (u uniformJitter) Sample() float64 { return u.dist.Rand() }

// UniformJitter returns a sampler drawing uniformly from [-width, width).
// A non-positive width degrades to NoJitter.
func UniformJitter(width float64, src rand.Source) Jitter {
	if width <= 0 {
		return NoJitter()
	}
	return uniformJitter{dist: distuv.Uniform{Min: -width, Max: width, Src: src}}
}
