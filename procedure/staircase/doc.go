// Package staircase implements adaptive up-down staircase procedures for
// threshold estimation in psychoacoustic experiments.
//
// A staircase tracks a single stimulus intensity. After each trial the
// listener's response (correct/incorrect) is fed back in; a run of n_down
// consecutive correct responses moves the intensity down one step, a run of
// n_up consecutive incorrect responses moves it up. Each change of tracking
// direction is a reversal; the mean of the late reversal intensities
// estimates the listener's threshold. A 1-up-2-down rule converges on the
// ~70.7% correct point of the psychometric function.
//
// # Usage
//
// Drive the staircase from your trial loop:
//
//	s, _ := staircase.New(50,
//	    staircase.WithStepSizes(8, 4, 2),
//	    staircase.WithNDown(2),
//	    staircase.WithReversalTarget(10),
//	)
//	for !s.Finished() {
//	    level, _ := s.Next()
//	    // ... present stimulus at level, collect response ...
//	    s.AddResponse(correct)
//	}
//	threshold, _ := s.Threshold()
//
// Step sizes progress to the next list entry at each reversal and hold at
// the last entry. WithStepUpFactor makes up-steps larger than down-steps
// for asymmetric tracking (Kaernbach-style weighted up-down).
//
// The staircase is a synchronous, single-owner state machine: it advances
// only inside Next/AddResponse and must not be shared across goroutines.
// Randomness (used only by the simulated responder) is injectable via
// WithRNG for reproducible runs.
package staircase
