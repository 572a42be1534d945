package sequence

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Transitions returns the row-normalized condition transition matrix over
// the materialized trials: cell (i, j) is the fraction of trials with
// condition i that were immediately followed by condition j. Rows for
// conditions with no outgoing transitions are all zero. Requires at least
// two materialized trials.
func (s *Sequence) Transitions() ([][]float64, error) {
	if len(s.trials) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 trials for transitions, have %d", ErrInsufficientData, len(s.trials))
	}

	n := len(s.conditions)

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for t := 0; t+1 < len(s.trials); t++ {
		matrix[s.trials[t]][s.trials[t+1]]++
	}

	for _, row := range matrix {
		total := vecmath.Sum(row)
		if total > 0 {
			vecmath.ScaleBlockInPlace(row, 1/total)
		}
	}

	return matrix, nil
}

// ConditionProbabilities returns the empirical frequency of every condition
// across the materialized trials, in the order of Conditions.
func (s *Sequence) ConditionProbabilities() ([]float64, error) {
	if len(s.trials) == 0 {
		return nil, fmt.Errorf("%w: no trials materialized", ErrInsufficientData)
	}

	probs := make([]float64, len(s.conditions))
	for _, idx := range s.trials {
		probs[idx]++
	}

	vecmath.ScaleBlockInPlace(probs, 1/float64(len(s.trials)))

	return probs, nil
}
