package env

import "math"

// invertedHuber grows like sqrt near zero and linearly past the crossover,
// sharpening the gradient close to the target without exploding far away.
// It is odd: negative inputs map to negative outputs.
func invertedHuber(x float64) float64 {
	const d = 2
	if x < 0 {
		low := math.Sqrt(-2 * x)
		if low < d {
			return -low
		}
		return x/d - d/2
	}
	low := math.Sqrt(2 * x)
	if low < d {
		return low
	}
	return x/d + d/2
}
