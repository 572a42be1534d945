// Package sequence generates and consumes trial sequences of experimental
// conditions.
//
// A Sequence hands out one condition label per trial. Three finite kinds
// materialize the whole sequence up front: KindNonRepeating shuffles n_reps
// copies of every condition so that no two adjacent trials share a label,
// KindRandom shuffles without the adjacency constraint, and KindOddball
// (built with NewOddball) produces a standard/deviant MMN sequence.
// KindInfinite draws a uniformly random condition on every call and never
// finishes.
//
// # Usage
//
//	seq, _ := sequence.New([]string{"left", "right", "center"},
//	    sequence.WithReps(10),
//	)
//	for {
//	    label, err := seq.Next()
//	    if errors.Is(err, sequence.ErrExhausted) {
//	        break
//	    }
//	    // ... present condition, collect response ...
//	    seq.AddResponse(answer)
//	}
//
// Transitions and ConditionProbabilities report empirical statistics over
// the materialized trials, useful for checking counterbalancing.
//
// Sequences are single-owner state machines; randomness is injectable via
// WithRNG so a seeded run reproduces exactly.
package sequence
