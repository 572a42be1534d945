package sequence

import (
	"fmt"
	"math/rand/v2"
)

type config struct {
	name  string
	nReps int
	kind  Kind
	rng   *rand.Rand
}

func defaultConfig() config {
	return config{
		nReps: 1,
		kind:  KindNonRepeating,
	}
}

// Option configures a [Sequence].
type Option func(*config) error

// WithName sets a text label for the sequence.
func WithName(name string) Option {
	return func(cfg *config) error {
		cfg.name = name
		return nil
	}
}

// WithReps sets how many times each condition repeats (default 1).
func WithReps(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: repetitions must be >= 1: %d", ErrConfiguration, n)
		}

		cfg.nReps = n

		return nil
	}
}

// WithKind sets the generation discipline (default [KindNonRepeating]).
func WithKind(k Kind) Option {
	return func(cfg *config) error {
		if !k.Valid() {
			return fmt.Errorf("%w: invalid kind: %d", ErrConfiguration, k)
		}

		cfg.kind = k

		return nil
	}
}

// WithRNG sets a deterministic random number generator for reproducible
// sequences.
func WithRNG(rng *rand.Rand) Option {
	return func(cfg *config) error {
		cfg.rng = rng
		return nil
	}
}
