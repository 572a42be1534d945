package sequence

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Condition labels of an oddball sequence.
const (
	StandardLabel = "standard"
	DeviantLabel  = "deviant"
)

// NewOddball builds a mismatch-negativity (MMN) stimulus sequence of
// nTrials trials: a stream of standards with round(nTrials*deviantFreq)
// deviants placed uniformly at random such that the first trial is a
// standard and no two deviants are adjacent. deviantFreq must lie in
// (0, 0.5]; frequencies whose deviant count cannot be placed without
// adjacency fail with ErrConfiguration.
//
// Of the options, only WithName and WithRNG apply; the kind and trial
// layout are fixed by the construction.
func NewOddball(nTrials int, deviantFreq float64, opts ...Option) (*Sequence, error) {
	if nTrials < 1 {
		return nil, fmt.Errorf("%w: trial count must be >= 1: %d", ErrConfiguration, nTrials)
	}

	if math.IsNaN(deviantFreq) || deviantFreq <= 0 || deviantFreq > 0.5 {
		return nil, fmt.Errorf("%w: deviant frequency must be in (0, 0.5]: %g", ErrConfiguration, deviantFreq)
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	deviants := int(math.Round(float64(nTrials) * deviantFreq))

	// Slots 1..nTrials-1 are eligible (the first trial is always standard).
	// Placing k non-adjacent deviants among m slots requires k <= (m+1)/2.
	m := nTrials - 1
	if m-deviants+1 < deviants {
		return nil, fmt.Errorf("%w: %d deviants cannot be placed in %d trials without adjacency",
			ErrConfiguration, deviants, nTrials)
	}

	trials := make([]int, nTrials) // all standard (index 0)

	for _, pos := range nonAdjacentPositions(cfg.rng, m, deviants) {
		trials[pos] = 1
	}

	return &Sequence{
		name:       cfg.name,
		conditions: []string{StandardLabel, DeviantLabel},
		kind:       KindOddball,
		nReps:      1,
		rng:        cfg.rng,
		trials:     trials,
	}, nil
}

// nonAdjacentPositions samples k positions uniformly from {1..m} such that
// no two are adjacent, via the standard gap bijection: a k-combination
// drawn from {0..m-k} maps to non-adjacent positions by adding the number
// of earlier choices to each sorted element.
func nonAdjacentPositions(rng *rand.Rand, m, k int) []int {
	if k == 0 {
		return nil
	}

	choices := rng.Perm(m - k + 1)[:k]
	slices.Sort(choices)

	positions := make([]int, k)
	for i, c := range choices {
		positions[i] = 1 + c + i
	}

	return positions
}
