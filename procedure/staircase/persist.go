package staircase

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
)

// Snapshot is the serializable state of a staircase: full configuration
// plus full trial history. A restored staircase continues the procedure
// exactly where the original left off.
type Snapshot struct {
	Name                 string    `json:"name,omitempty"`
	StepSizes            []float64 `json:"step_sizes"`
	StepIndex            int       `json:"step_index"`
	NUp                  int       `json:"n_up"`
	NDown                int       `json:"n_down"`
	StepUpFactor         float64   `json:"step_up_factor"`
	StepType             string    `json:"step_type"`
	MinVal               *float64  `json:"min_val,omitempty"`
	MaxVal               *float64  `json:"max_val,omitempty"`
	ReversalTarget       int       `json:"n_reversals,omitempty"`
	TrialTarget          int       `json:"n_trials,omitempty"`
	Value                float64   `json:"current_value"`
	Direction            string    `json:"direction"`
	ConsecutiveCorrect   int       `json:"consecutive_correct"`
	ConsecutiveIncorrect int       `json:"consecutive_incorrect"`
	TrialN               int       `json:"this_trial_n"`
	Intensities          []float64 `json:"intensities"`
	Responses            []bool    `json:"responses"`
	ReversalIntensities  []float64 `json:"reversal_intensities"`
	ReversalPoints       []int     `json:"reversal_points"`
	Finished             bool      `json:"finished"`
}

// Snapshot captures the complete current state.
func (s *Staircase) Snapshot() Snapshot {
	snap := Snapshot{
		Name:                 s.name,
		StepSizes:            append([]float64(nil), s.stepSizes...),
		StepIndex:            s.stepIndex,
		NUp:                  s.nUp,
		NDown:                s.nDown,
		StepUpFactor:         s.stepUpFactor,
		StepType:             s.stepType.String(),
		ReversalTarget:       s.reversalTarget,
		TrialTarget:          s.trialTarget,
		Value:                s.value,
		Direction:            s.dir.String(),
		ConsecutiveCorrect:   s.consecutiveCorrect,
		ConsecutiveIncorrect: s.consecutiveIncorrect,
		TrialN:               s.trialN,
		Intensities:          append([]float64(nil), s.intensities...),
		Responses:            append([]bool(nil), s.responses...),
		ReversalIntensities:  append([]float64(nil), s.reversalIntensities...),
		ReversalPoints:       append([]int(nil), s.reversalPoints...),
		Finished:             s.finished,
	}

	if s.hasMin {
		v := s.minVal
		snap.MinVal = &v
	}

	if s.hasMax {
		v := s.maxVal
		snap.MaxVal = &v
	}

	return snap
}

// Restore reconstructs a staircase from a snapshot. The snapshot supplies
// the full configuration and history; options may override runtime-only
// settings such as the random source (WithRNG). Inconsistent snapshots
// fail with ErrSnapshot rather than resuming from a corrupt point.
func Restore(snap Snapshot, opts ...Option) (*Staircase, error) {
	if err := snap.validate(); err != nil {
		return nil, err
	}

	stepType, err := parseStepType(snap.StepType)
	if err != nil {
		return nil, err
	}

	dir, err := parseDirection(snap.Direction)
	if err != nil {
		return nil, err
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

	s := &Staircase{
		name:                 snap.Name,
		stepSizes:            append([]float64(nil), snap.StepSizes...),
		stepIndex:            snap.StepIndex,
		nUp:                  snap.NUp,
		nDown:                snap.NDown,
		stepUpFactor:         snap.StepUpFactor,
		stepType:             stepType,
		reversalTarget:       snap.ReversalTarget,
		trialTarget:          snap.TrialTarget,
		rng:                  cfg.rng,
		value:                snap.Value,
		dir:                  dir,
		consecutiveCorrect:   snap.ConsecutiveCorrect,
		consecutiveIncorrect: snap.ConsecutiveIncorrect,
		trialN:               snap.TrialN,
		intensities:          append([]float64(nil), snap.Intensities...),
		responses:            append([]bool(nil), snap.Responses...),
		reversalIntensities:  append([]float64(nil), snap.ReversalIntensities...),
		reversalPoints:       append([]int(nil), snap.ReversalPoints...),
		finished:             snap.Finished,
	}

	if snap.MinVal != nil {
		s.minVal = *snap.MinVal
		s.hasMin = true
	}

	if snap.MaxVal != nil {
		s.maxVal = *snap.MaxVal
		s.hasMax = true
	}

	if s.hasMin && s.value < s.minVal || s.hasMax && s.value > s.maxVal {
		return nil, fmt.Errorf("%w: current value %g outside bounds", ErrSnapshot, s.value)
	}

	return s, nil
}

func (snap *Snapshot) validate() error {
	if len(snap.StepSizes) == 0 {
		return fmt.Errorf("%w: step sizes must not be empty", ErrSnapshot)
	}

	for _, sz := range snap.StepSizes {
		if sz <= 0 || math.IsNaN(sz) || math.IsInf(sz, 0) {
			return fmt.Errorf("%w: step size must be > 0 and finite: %f", ErrSnapshot, sz)
		}
	}

	if snap.StepIndex < 0 || snap.StepIndex >= len(snap.StepSizes) {
		return fmt.Errorf("%w: step index %d out of range", ErrSnapshot, snap.StepIndex)
	}

	if snap.NUp < 1 || snap.NDown < 1 {
		return fmt.Errorf("%w: n_up and n_down must be >= 1", ErrSnapshot)
	}

	if snap.StepUpFactor <= 0 || math.IsNaN(snap.StepUpFactor) || math.IsInf(snap.StepUpFactor, 0) {
		return fmt.Errorf("%w: step-up factor must be > 0 and finite: %f", ErrSnapshot, snap.StepUpFactor)
	}

	if (snap.ReversalTarget > 0) == (snap.TrialTarget > 0) {
		return fmt.Errorf("%w: exactly one termination target must be set", ErrSnapshot)
	}

	if snap.TrialN != len(snap.Responses) {
		return fmt.Errorf("%w: trial counter %d does not match %d responses", ErrSnapshot, snap.TrialN, len(snap.Responses))
	}

	if n := len(snap.Intensities); n != len(snap.Responses) && n != len(snap.Responses)+1 {
		return fmt.Errorf("%w: %d intensities for %d responses", ErrSnapshot, n, len(snap.Responses))
	}

	if len(snap.ReversalIntensities) != len(snap.ReversalPoints) {
		return fmt.Errorf("%w: %d reversal intensities but %d reversal points",
			ErrSnapshot, len(snap.ReversalIntensities), len(snap.ReversalPoints))
	}

	for _, p := range snap.ReversalPoints {
		if p < 0 || p >= snap.TrialN {
			return fmt.Errorf("%w: reversal point %d outside trial history", ErrSnapshot, p)
		}
	}

	if snap.MinVal != nil && snap.MaxVal != nil && *snap.MinVal >= *snap.MaxVal {
		return fmt.Errorf("%w: min value %g must be below max value %g", ErrSnapshot, *snap.MinVal, *snap.MaxVal)
	}

	return nil
}

// Save writes the snapshot as indented JSON.
func (s *Staircase) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("staircase: save: %w", err)
	}

	return nil
}

// Load reads a JSON snapshot and restores the staircase from it.
func Load(r io.Reader, opts ...Option) (*Staircase, error) {
	var snap Snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	return Restore(snap, opts...)
}
