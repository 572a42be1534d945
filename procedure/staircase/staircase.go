package staircase

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by staircase operations.
var (
	ErrConfiguration    = errors.New("staircase: invalid configuration")
	ErrExhausted        = errors.New("staircase: procedure finished")
	ErrNoPendingTrial   = errors.New("staircase: no pending trial")
	ErrInsufficientData = errors.New("staircase: not enough data")
	ErrSnapshot         = errors.New("staircase: malformed snapshot")
)

// direction is the tracking direction of the most recent intensity move.
type direction int8

const (
	directionNone direction = iota
	directionUp
	directionDown
)

var directionNames = [...]string{"none", "up", "down"}

func (d direction) String() string {
	if d >= directionNone && d <= directionDown {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", d)
}

func parseDirection(s string) (direction, error) {
	for i, name := range directionNames {
		if s == name {
			return direction(i), nil
		}
	}
	return directionNone, fmt.Errorf("%w: unknown direction %q", ErrSnapshot, s)
}

// Staircase is an adaptive n-up/m-down level-tracking state machine.
//
// It is created in the Running state and becomes Finished once the
// configured reversal or trial target is reached. Finished is terminal:
// further Next/AddResponse calls return ErrExhausted.
type Staircase struct {
	name         string
	stepSizes    []float64
	nUp          int
	nDown        int
	stepUpFactor float64
	stepType     StepType

	minVal float64
	maxVal float64
	hasMin bool
	hasMax bool

	reversalTarget int
	trialTarget    int

	rng *rand.Rand

	value                float64
	stepIndex            int
	dir                  direction
	consecutiveCorrect   int
	consecutiveIncorrect int
	trialN               int

	intensities         []float64
	responses           []bool
	reversalIntensities []float64
	reversalPoints      []int

	finished bool
}

// New creates a staircase starting at startVal. Exactly one termination
// target (WithReversalTarget or WithTrialTarget) must be supplied.
func New(startVal float64, opts ...Option) (*Staircase, error) {
	if math.IsNaN(startVal) || math.IsInf(startVal, 0) {
		return nil, fmt.Errorf("%w: start value must be finite: %f", ErrConfiguration, startVal)
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.hasMin && startVal < cfg.minVal || cfg.hasMax && startVal > cfg.maxVal {
		return nil, fmt.Errorf("%w: start value %g outside bounds", ErrConfiguration, startVal)
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Staircase{
		name:           cfg.name,
		stepSizes:      cfg.stepSizes,
		nUp:            cfg.nUp,
		nDown:          cfg.nDown,
		stepUpFactor:   cfg.stepUpFactor,
		stepType:       cfg.stepType,
		minVal:         cfg.minVal,
		maxVal:         cfg.maxVal,
		hasMin:         cfg.hasMin,
		hasMax:         cfg.hasMax,
		reversalTarget: cfg.reversalTarget,
		trialTarget:    cfg.trialTarget,
		rng:            cfg.rng,
		value:          startVal,
	}, nil
}

// Next returns the intensity to present on the upcoming trial and logs it.
// Calling Next again before AddResponse returns the same pending intensity
// without logging it twice. Returns ErrExhausted once the staircase is
// finished.
func (s *Staircase) Next() (float64, error) {
	if s.finished {
		return 0, ErrExhausted
	}

	if len(s.intensities) == len(s.responses) {
		s.intensities = append(s.intensities, s.value)
	}

	return s.value, nil
}

// AddResponse records the listener's response to the pending trial and
// advances the staircase. correct=true counts toward the down rule,
// correct=false toward the up rule. Returns ErrExhausted after the
// staircase has finished and ErrNoPendingTrial when no intensity from
// Next awaits a response.
func (s *Staircase) AddResponse(correct bool) error {
	if s.finished {
		return ErrExhausted
	}

	if len(s.intensities) == len(s.responses) {
		return ErrNoPendingTrial
	}

	s.responses = append(s.responses, correct)
	trial := s.trialN
	s.trialN++

	if correct {
		s.consecutiveCorrect++
		s.consecutiveIncorrect = 0
	} else {
		s.consecutiveIncorrect++
		s.consecutiveCorrect = 0
	}

	move := directionNone

	switch {
	case s.consecutiveCorrect == s.nDown:
		move = directionDown
		s.consecutiveCorrect = 0
	case s.consecutiveIncorrect == s.nUp:
		move = directionUp
		s.consecutiveIncorrect = 0
	}

	if move != directionNone {
		// A direction change against the previous move is a reversal.
		// The very first move has no previous direction and never counts.
		// Clamping at a bound (below) does not suppress reversal detection.
		if s.dir != directionNone && move != s.dir {
			s.reversalIntensities = append(s.reversalIntensities, s.intensities[len(s.intensities)-1])
			s.reversalPoints = append(s.reversalPoints, trial)

			if s.stepIndex < len(s.stepSizes)-1 {
				s.stepIndex++
			}
		}

		s.applyStep(move)
		s.dir = move
	}

	if s.reversalTarget > 0 && len(s.reversalPoints) >= s.reversalTarget {
		s.finished = true
	}

	if s.trialTarget > 0 && s.trialN >= s.trialTarget {
		s.finished = true
	}

	return nil
}

// AddResponseAt is AddResponse for trials where the presented intensity
// differed from the recommended one (e.g. hardware limiting). The logged
// intensity for the pending trial is replaced before the response is
// processed.
func (s *Staircase) AddResponseAt(correct bool, intensity float64) error {
	if s.finished {
		return ErrExhausted
	}

	if len(s.intensities) == len(s.responses) {
		return ErrNoPendingTrial
	}

	if math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return fmt.Errorf("%w: intensity must be finite: %f", ErrConfiguration, intensity)
	}

	s.intensities[len(s.intensities)-1] = intensity

	return s.AddResponse(correct)
}

// applyStep moves the current value one step in the given direction and
// clamps it to the configured bounds.
func (s *Staircase) applyStep(move direction) {
	step := s.stepSizes[s.stepIndex]
	if move == directionUp {
		step *= s.stepUpFactor
	}

	switch s.stepType {
	case StepLinear:
		if move == directionUp {
			s.value += step
		} else {
			s.value -= step
		}
	case StepDecibel:
		factor := math.Pow(10, step/20)
		if move == directionUp {
			s.value *= factor
		} else {
			s.value /= factor
		}
	case StepLog:
		factor := math.Pow(10, step)
		if move == directionUp {
			s.value *= factor
		} else {
			s.value /= factor
		}
	}

	if s.hasMax && s.value > s.maxVal {
		s.value = s.maxVal
	}

	if s.hasMin && s.value < s.minVal {
		s.value = s.minVal
	}
}

// Value returns the current stimulus intensity.
func (s *Staircase) Value() float64 { return s.value }

// Finished reports whether the termination target has been reached.
func (s *Staircase) Finished() bool { return s.finished }

// TrialCount returns the number of completed (responded-to) trials.
func (s *Staircase) TrialCount() int { return s.trialN }

// Name returns the staircase label.
func (s *Staircase) Name() string { return s.name }

// Intensities returns a copy of the presented intensity log.
func (s *Staircase) Intensities() []float64 {
	out := make([]float64, len(s.intensities))
	copy(out, s.intensities)

	return out
}

// Responses returns a copy of the response log.
func (s *Staircase) Responses() []bool {
	out := make([]bool, len(s.responses))
	copy(out, s.responses)

	return out
}

// Reversals returns copies of the reversal intensities and the 0-based
// trial indices at which they occurred. Both slices always have equal
// length.
func (s *Staircase) Reversals() (intensities []float64, trials []int) {
	intensities = make([]float64, len(s.reversalIntensities))
	copy(intensities, s.reversalIntensities)

	trials = make([]int, len(s.reversalPoints))
	copy(trials, s.reversalPoints)

	return intensities, trials
}

// String summarizes the staircase state.
func (s *Staircase) String() string {
	target := fmt.Sprintf("%d reversals", s.reversalTarget)
	if s.trialTarget > 0 {
		target = fmt.Sprintf("%d trials", s.trialTarget)
	}

	return fmt.Sprintf("staircase %dup%ddown, trial %d, %d reversals, target %s",
		s.nUp, s.nDown, s.trialN, len(s.reversalPoints), target)
}

// thresholdTail returns the reversal intensities used for threshold
// estimation: all of them, minus the earliest one when the count is odd,
// so early warm-up reversals do not bias the mean.
func (s *Staircase) thresholdTail() []float64 {
	tail := s.reversalIntensities
	if len(tail)%2 == 1 {
		tail = tail[1:]
	}

	return tail
}

// Threshold returns the arithmetic mean of the late reversal intensities.
// With an odd reversal count the first reversal is excluded. Returns
// ErrInsufficientData before the first reversal pair exists.
func (s *Staircase) Threshold() (float64, error) {
	tail := s.thresholdTail()
	if len(tail) == 0 {
		return 0, fmt.Errorf("%w: no reversals yet", ErrInsufficientData)
	}

	return vecmath.Sum(tail) / float64(len(tail)), nil
}

// ThresholdTail returns the arithmetic mean of the last n reversal
// intensities. Returns ErrInsufficientData when fewer than n reversals
// exist.
func (s *Staircase) ThresholdTail(n int) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: tail length must be >= 1: %d", ErrConfiguration, n)
	}

	if len(s.reversalIntensities) < n {
		return 0, fmt.Errorf("%w: %d reversals, need %d", ErrInsufficientData, len(s.reversalIntensities), n)
	}

	tail := s.reversalIntensities[len(s.reversalIntensities)-n:]

	return vecmath.Sum(tail) / float64(len(tail)), nil
}

// GeometricThreshold returns the geometric mean of the late reversal
// intensities (the conventional estimator for dB-stepped staircases).
// All contributing intensities must be positive.
func (s *Staircase) GeometricThreshold() (float64, error) {
	tail := s.thresholdTail()
	if len(tail) == 0 {
		return 0, fmt.Errorf("%w: no reversals yet", ErrInsufficientData)
	}

	logs := make([]float64, len(tail))

	for i, v := range tail {
		if v <= 0 {
			return 0, fmt.Errorf("%w: geometric mean requires positive intensities, got %g", ErrInsufficientData, v)
		}

		logs[i] = math.Log(v)
	}

	return math.Exp(vecmath.Sum(logs) / float64(len(logs))), nil
}

// PsychometricFunction bins the responded trials by presented intensity and
// returns, per bin, the intensity, the fraction of correct responses, and
// the number of contributing trials. Intensities are rounded to 1e-8 before
// binning and returned in ascending order. Returns ErrInsufficientData
// before any response has been recorded.
func (s *Staircase) PsychometricFunction() (intensities, hitRates []float64, counts []int, err error) {
	if len(s.responses) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no responses yet", ErrInsufficientData)
	}

	type bin struct {
		correct int
		total   int
	}

	bins := make(map[float64]*bin)
	order := make([]float64, 0)

	for i, resp := range s.responses {
		key := math.Round(s.intensities[i]*1e8) / 1e8

		b, ok := bins[key]
		if !ok {
			b = &bin{}
			bins[key] = b
			order = append(order, key)
		}

		b.total++

		if resp {
			b.correct++
		}
	}

	slices.Sort(order)

	intensities = make([]float64, len(order))
	hitRates = make([]float64, len(order))
	counts = make([]int, len(order))

	for i, key := range order {
		b := bins[key]
		intensities[i] = key
		hitRates[i] = float64(b.correct) / float64(b.total)
		counts[i] = b.total
	}

	return intensities, hitRates, counts, nil
}
