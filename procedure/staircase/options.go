package staircase

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// StepType selects how a step size modifies the current value.
type StepType int

const (
	// StepLinear adds or subtracts the step size.
	StepLinear StepType = iota
	// StepDecibel multiplies or divides by 10^(step/20).
	StepDecibel
	// StepLog multiplies or divides by 10^step.
	StepLog

	stepTypeCount // sentinel for validation
)

var stepTypeNames = [stepTypeCount]string{"lin", "db", "log"}

// String returns the name of the step type.
func (st StepType) String() string {
	if st.Valid() {
		return stepTypeNames[st]
	}
	return fmt.Sprintf("StepType(%d)", st)
}

// Valid reports whether st is a known step type.
func (st StepType) Valid() bool {
	return st >= 0 && st < stepTypeCount
}

func parseStepType(s string) (StepType, error) {
	for i, name := range stepTypeNames {
		if s == name {
			return StepType(i), nil
		}
	}
	return StepLinear, fmt.Errorf("%w: unknown step type %q", ErrSnapshot, s)
}

const (
	defaultNUp          = 1
	defaultNDown        = 1
	defaultStepUpFactor = 1.0
)

type config struct {
	name           string
	stepSizes      []float64
	nUp            int
	nDown          int
	stepUpFactor   float64
	stepType       StepType
	minVal         float64
	maxVal         float64
	hasMin         bool
	hasMax         bool
	reversalTarget int
	trialTarget    int
	rng            *rand.Rand
}

func defaultConfig() config {
	return config{
		stepSizes:    []float64{4},
		nUp:          defaultNUp,
		nDown:        defaultNDown,
		stepUpFactor: defaultStepUpFactor,
		stepType:     StepLinear,
	}
}

func (cfg *config) validate() error {
	if len(cfg.stepSizes) == 0 {
		return fmt.Errorf("%w: step sizes must not be empty", ErrConfiguration)
	}

	if cfg.hasMin && cfg.hasMax && cfg.minVal >= cfg.maxVal {
		return fmt.Errorf("%w: min value %g must be below max value %g", ErrConfiguration, cfg.minVal, cfg.maxVal)
	}

	// Exactly one termination target governs stopping.
	if (cfg.reversalTarget > 0) == (cfg.trialTarget > 0) {
		return fmt.Errorf("%w: exactly one of reversal target and trial target must be set", ErrConfiguration)
	}

	return nil
}

// Option configures a [Staircase].
type Option func(*config) error

// WithName sets a text label for the staircase.
func WithName(name string) Option {
	return func(cfg *config) error {
		cfg.name = name
		return nil
	}
}

// WithStepSizes sets the step magnitudes. The step progresses to the next
// entry at each reversal and holds at the last one. All sizes must be
// positive and finite.
func WithStepSizes(sizes ...float64) Option {
	return func(cfg *config) error {
		if len(sizes) == 0 {
			return fmt.Errorf("%w: step sizes must not be empty", ErrConfiguration)
		}

		for _, sz := range sizes {
			if sz <= 0 || math.IsNaN(sz) || math.IsInf(sz, 0) {
				return fmt.Errorf("%w: step size must be > 0 and finite: %f", ErrConfiguration, sz)
			}
		}

		cfg.stepSizes = append([]float64(nil), sizes...)

		return nil
	}
}

// WithNUp sets the number of consecutive incorrect responses required to
// move the intensity up (default 1).
func WithNUp(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: n_up must be >= 1: %d", ErrConfiguration, n)
		}

		cfg.nUp = n

		return nil
	}
}

// WithNDown sets the number of consecutive correct responses required to
// move the intensity down (default 1).
func WithNDown(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: n_down must be >= 1: %d", ErrConfiguration, n)
		}

		cfg.nDown = n

		return nil
	}
}

// WithStepUpFactor scales up-steps relative to down-steps for asymmetric
// (weighted) tracking (default 1.0).
func WithStepUpFactor(factor float64) Option {
	return func(cfg *config) error {
		if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
			return fmt.Errorf("%w: step-up factor must be > 0 and finite: %f", ErrConfiguration, factor)
		}

		cfg.stepUpFactor = factor

		return nil
	}
}

// WithStepType sets how steps are applied (default [StepLinear]).
func WithStepType(st StepType) Option {
	return func(cfg *config) error {
		if !st.Valid() {
			return fmt.Errorf("%w: invalid step type: %d", ErrConfiguration, st)
		}

		cfg.stepType = st

		return nil
	}
}

// WithMinValue sets the smallest legal intensity.
func WithMinValue(v float64) Option {
	return func(cfg *config) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: min value must be finite: %f", ErrConfiguration, v)
		}

		cfg.minVal = v
		cfg.hasMin = true

		return nil
	}
}

// WithMaxValue sets the largest legal intensity.
func WithMaxValue(v float64) Option {
	return func(cfg *config) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: max value must be finite: %f", ErrConfiguration, v)
		}

		cfg.maxVal = v
		cfg.hasMax = true

		return nil
	}
}

// WithReversalTarget finishes the staircase after n reversals. Mutually
// exclusive with WithTrialTarget.
func WithReversalTarget(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: reversal target must be >= 1: %d", ErrConfiguration, n)
		}

		cfg.reversalTarget = n

		return nil
	}
}

// WithTrialTarget finishes the staircase after n responded trials.
// Mutually exclusive with WithReversalTarget.
func WithTrialTarget(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: trial target must be >= 1: %d", ErrConfiguration, n)
		}

		cfg.trialTarget = n

		return nil
	}
}

// WithRNG sets a deterministic random number generator for reproducible
// simulated responses.
func WithRNG(rng *rand.Rand) Option {
	return func(cfg *config) error {
		cfg.rng = rng
		return nil
	}
}
