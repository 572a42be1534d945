package sequence

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
)

// Snapshot is the serializable state of a sequence: configuration,
// materialized trials, cursor, and response log.
type Snapshot struct {
	Name       string   `json:"name,omitempty"`
	Conditions []string `json:"conditions"`
	Kind       string   `json:"kind"`
	NReps      int      `json:"n_reps"`
	Trials     []int    `json:"trials"`
	Cursor     int      `json:"this_trial_n"`
	Responses  []string `json:"responses"`
}

// Snapshot captures the complete current state.
func (s *Sequence) Snapshot() Snapshot {
	return Snapshot{
		Name:       s.name,
		Conditions: append([]string(nil), s.conditions...),
		Kind:       s.kind.String(),
		NReps:      s.nReps,
		Trials:     append([]int(nil), s.trials...),
		Cursor:     s.cursor,
		Responses:  append([]string(nil), s.responses...),
	}
}

// Restore reconstructs a sequence from a snapshot. Options may override
// runtime-only settings such as the random source; the trial layout comes
// from the snapshot unchanged. Inconsistent snapshots fail with
// ErrSnapshot.
func Restore(snap Snapshot, opts ...Option) (*Sequence, error) {
	kind, err := snap.validate()
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

	return &Sequence{
		name:       snap.Name,
		conditions: append([]string(nil), snap.Conditions...),
		kind:       kind,
		nReps:      snap.NReps,
		rng:        cfg.rng,
		trials:     append([]int(nil), snap.Trials...),
		cursor:     snap.Cursor,
		responses:  append([]string(nil), snap.Responses...),
	}, nil
}

func (snap *Snapshot) validate() (Kind, error) {
	if len(snap.Conditions) == 0 {
		return 0, fmt.Errorf("%w: conditions must not be empty", ErrSnapshot)
	}

	kind, err := parseKind(snap.Kind)
	if err != nil {
		return 0, err
	}

	if snap.NReps < 1 {
		return 0, fmt.Errorf("%w: repetitions must be >= 1: %d", ErrSnapshot, snap.NReps)
	}

	for i, idx := range snap.Trials {
		if idx < 0 || idx >= len(snap.Conditions) {
			return 0, fmt.Errorf("%w: trial %d references condition %d of %d", ErrSnapshot, i, idx, len(snap.Conditions))
		}
	}

	if snap.Cursor < 0 || snap.Cursor > len(snap.Trials) {
		return 0, fmt.Errorf("%w: cursor %d outside %d trials", ErrSnapshot, snap.Cursor, len(snap.Trials))
	}

	if len(snap.Responses) > snap.Cursor {
		return 0, fmt.Errorf("%w: %d responses for %d presented trials", ErrSnapshot, len(snap.Responses), snap.Cursor)
	}

	switch kind {
	case KindNonRepeating, KindRandom:
		if want := snap.NReps * len(snap.Conditions); len(snap.Trials) != want {
			return 0, fmt.Errorf("%w: %d trials, want %d (%d conditions x %d reps)",
				ErrSnapshot, len(snap.Trials), want, len(snap.Conditions), snap.NReps)
		}

		if kind == KindNonRepeating {
			for i := 1; i < len(snap.Trials); i++ {
				if snap.Trials[i] == snap.Trials[i-1] {
					return 0, fmt.Errorf("%w: trials %d and %d repeat condition %d",
						ErrSnapshot, i-1, i, snap.Trials[i])
				}
			}
		}
	case KindOddball:
		if len(snap.Conditions) != 2 {
			return 0, fmt.Errorf("%w: oddball needs exactly 2 conditions, got %d", ErrSnapshot, len(snap.Conditions))
		}

		if len(snap.Trials) > 0 && snap.Trials[0] != 0 {
			return 0, fmt.Errorf("%w: oddball must open with a standard trial", ErrSnapshot)
		}

		for i := 1; i < len(snap.Trials); i++ {
			if snap.Trials[i] == 1 && snap.Trials[i-1] == 1 {
				return 0, fmt.Errorf("%w: adjacent deviants at trials %d and %d", ErrSnapshot, i-1, i)
			}
		}
	}

	return kind, nil
}

// Save writes the snapshot as indented JSON.
func (s *Sequence) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("sequence: save: %w", err)
	}

	return nil
}

// Load reads a JSON snapshot and restores the sequence from it.
func Load(r io.Reader, opts ...Option) (*Sequence, error) {
	var snap Snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	return Restore(snap, opts...)
}
