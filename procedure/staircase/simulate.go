package staircase

import (
	"math"
	"math/rand/v2"
)

// Simulate draws a correct/incorrect response for a stimulus presented at
// value to a virtual listener with the given threshold. The hit probability
// follows a logistic psychometric function of (value - threshold):
//
//	p = 1 / (1 + exp(-(value-threshold)/width))
//
// so p = 0.5 at threshold. width > 0 controls the transition steepness;
// smaller widths approach a step function. The draw is deterministic for a
// seeded rng.
func Simulate(rng *rand.Rand, value, threshold, width float64) bool {
	if width <= 0 {
		return value >= threshold
	}

	p := 1 / (1 + math.Exp(-(value-threshold)/width))

	return rng.Float64() < p
}

// SimulateResponse draws a simulated response to the current intensity
// using the staircase's own random source.
func (s *Staircase) SimulateResponse(threshold, width float64) bool {
	return Simulate(s.rng, s.value, threshold, width)
}
