package sequence

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Errors returned by sequence operations.
var (
	ErrConfiguration    = errors.New("sequence: invalid configuration")
	ErrExhausted        = errors.New("sequence: trials exhausted")
	ErrNoCurrentTrial   = errors.New("sequence: no current trial")
	ErrInsufficientData = errors.New("sequence: not enough trials")
	ErrSnapshot         = errors.New("sequence: malformed snapshot")
)

// Kind selects the sequence generation discipline.
type Kind int

const (
	// KindNonRepeating materializes n_reps copies of every condition in
	// random order with no two adjacent trials sharing a label.
	KindNonRepeating Kind = iota
	// KindRandom materializes n_reps copies of every condition in fully
	// random order.
	KindRandom
	// KindInfinite draws one condition uniformly at random per call,
	// without materializing a finite sequence.
	KindInfinite
	// KindOddball is a standard/deviant sequence built by NewOddball.
	KindOddball

	kindCount // sentinel for validation
)

var kindNames = [kindCount]string{"non_repeating", "random", "infinite", "oddball"}

// String returns the name of the sequence kind.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Valid reports whether k is a known sequence kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func parseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if s == name {
			return Kind(i), nil
		}
	}
	return KindNonRepeating, fmt.Errorf("%w: unknown kind %q", ErrSnapshot, s)
}

// Sequence produces one condition label per trial and logs responses
// aligned to the trial counter. Finite kinds become exhausted after the
// last materialized trial; the infinite kind never finishes.
type Sequence struct {
	name       string
	conditions []string
	kind       Kind
	nReps      int
	rng        *rand.Rand

	trials    []int // condition indices; the draw log for KindInfinite
	cursor    int   // number of trials handed out by Next
	responses []string
}

// Numbered returns the labels "0".."n-1", the conventional stand-in when
// conditions are identified by index only.
func Numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}

	return out
}

// New creates a sequence over the given condition labels. Duplicate labels
// count as additional multiplicity of that label. The default kind is
// KindNonRepeating with one repetition per condition.
func New(conditions []string, opts ...Option) (*Sequence, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: conditions must not be empty", ErrConfiguration)
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

	if cfg.kind == KindOddball {
		return nil, fmt.Errorf("%w: oddball sequences are built with NewOddball", ErrConfiguration)
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &Sequence{
		name:       cfg.name,
		conditions: append([]string(nil), conditions...),
		kind:       cfg.kind,
		nReps:      cfg.nReps,
		rng:        cfg.rng,
	}

	switch cfg.kind {
	case KindNonRepeating:
		trials, err := interleave(s.conditions, cfg.nReps, cfg.rng)
		if err != nil {
			return nil, err
		}

		s.trials = trials
	case KindRandom:
		s.trials = make([]int, 0, cfg.nReps*len(conditions))
		for range cfg.nReps {
			for i := range conditions {
				s.trials = append(s.trials, i)
			}
		}

		cfg.rng.Shuffle(len(s.trials), func(i, j int) {
			s.trials[i], s.trials[j] = s.trials[j], s.trials[i]
		})
	case KindInfinite:
		// trials fills up as draws happen
	}

	return s, nil
}

// interleave arranges nReps copies of every condition with no two adjacent
// equal labels. Greedy construction: any label holding a strict majority of
// the remaining slots must be placed next; otherwise one of the remaining
// units with a different label than the previous trial is drawn uniformly.
// Terminates in bounded time for any satisfiable multiplicity distribution.
func interleave(conditions []string, nReps int, rng *rand.Rand) ([]int, error) {
	total := nReps * len(conditions)

	labelTotals := make(map[string]int, len(conditions))
	for _, label := range conditions {
		labelTotals[label] += nReps
	}

	for label, count := range labelTotals {
		if 2*count > total+1 {
			return nil, fmt.Errorf("%w: condition %q occupies %d of %d trials, no non-repeating order exists",
				ErrConfiguration, label, count, total)
		}
	}

	remaining := make([]int, len(conditions))
	for i := range remaining {
		remaining[i] = nReps
	}

	labelRemaining := make(map[string]int, len(labelTotals))
	for label, count := range labelTotals {
		labelRemaining[label] = count
	}

	trials := make([]int, 0, total)
	prevLabel := ""
	remTotal := total

	for remTotal > 0 {
		pickLabel := ""

		for label, count := range labelRemaining {
			if count > 0 && 2*count > remTotal && label != prevLabel {
				pickLabel = label
				break
			}
		}

		var pick int

		if pickLabel != "" {
			pick = pickCondition(conditions, remaining, rng, func(label string) bool {
				return label == pickLabel
			})
		} else {
			pick = pickCondition(conditions, remaining, rng, func(label string) bool {
				return label != prevLabel
			})
		}

		if pick < 0 {
			// Unreachable after the feasibility check above.
			return nil, fmt.Errorf("%w: non-repeating interleave stalled", ErrConfiguration)
		}

		trials = append(trials, pick)
		remaining[pick]--
		labelRemaining[conditions[pick]]--
		prevLabel = conditions[pick]
		remTotal--
	}

	return trials, nil
}

// pickCondition draws one remaining unit uniformly among condition slots
// whose label satisfies ok. Returns -1 when none qualifies.
func pickCondition(conditions []string, remaining []int, rng *rand.Rand, ok func(string) bool) int {
	eligible := 0

	for i, count := range remaining {
		if count > 0 && ok(conditions[i]) {
			eligible += count
		}
	}

	if eligible == 0 {
		return -1
	}

	n := rng.IntN(eligible)

	for i, count := range remaining {
		if count > 0 && ok(conditions[i]) {
			if n < count {
				return i
			}

			n -= count
		}
	}

	return -1
}

// Next advances to the next trial and returns its condition label. Finite
// sequences return ErrExhausted after the last trial; the infinite kind
// draws and logs a fresh condition on every call.
func (s *Sequence) Next() (string, error) {
	if s.kind == KindInfinite {
		idx := s.rng.IntN(len(s.conditions))
		s.trials = append(s.trials, idx)
		s.cursor++

		return s.conditions[idx], nil
	}

	if s.cursor >= len(s.trials) {
		return "", ErrExhausted
	}

	idx := s.trials[s.cursor]
	s.cursor++

	return s.conditions[idx], nil
}

// Finished reports whether all materialized trials have been handed out.
// Always false for the infinite kind.
func (s *Sequence) Finished() bool {
	return s.kind != KindInfinite && s.cursor >= len(s.trials)
}

// Current returns the label of the most recently presented trial.
func (s *Sequence) Current() (string, error) {
	if s.cursor == 0 {
		return "", ErrNoCurrentTrial
	}

	return s.conditions[s.trials[s.cursor-1]], nil
}

// Peek returns the condition n trials away from the current one without
// advancing: negative n looks back, 0 is the current trial, positive n
// looks ahead. ok is false beyond either end of the (so far materialized)
// sequence.
func (s *Sequence) Peek(n int) (label string, ok bool) {
	idx := s.cursor - 1 + n
	if s.cursor == 0 || idx < 0 || idx >= len(s.trials) {
		return "", false
	}

	return s.conditions[s.trials[idx]], true
}

// AddResponse logs a response label for the current trial. Each trial takes
// at most one response; calling again before the next trial fails.
func (s *Sequence) AddResponse(response string) error {
	if s.cursor == 0 {
		return ErrNoCurrentTrial
	}

	if len(s.responses) >= s.cursor {
		return fmt.Errorf("%w: trial %d already has a response", ErrConfiguration, s.cursor-1)
	}

	// Unanswered earlier trials keep empty placeholders so the log stays
	// aligned to trial indices.
	for len(s.responses) < s.cursor-1 {
		s.responses = append(s.responses, "")
	}

	s.responses = append(s.responses, response)

	return nil
}

// TrialCount returns the number of materialized trials (drawn so far for
// the infinite kind).
func (s *Sequence) TrialCount() int { return len(s.trials) }

// Remaining returns the number of trials left; -1 for the infinite kind.
func (s *Sequence) Remaining() int {
	if s.kind == KindInfinite {
		return -1
	}

	return len(s.trials) - s.cursor
}

// CurrentRep returns the 0-based repetition block of the current trial.
func (s *Sequence) CurrentRep() int {
	if s.cursor == 0 {
		return 0
	}

	return (s.cursor - 1) / len(s.conditions)
}

// Kind returns the sequence kind.
func (s *Sequence) Kind() Kind { return s.kind }

// Name returns the sequence label.
func (s *Sequence) Name() string { return s.name }

// Conditions returns a copy of the condition labels.
func (s *Sequence) Conditions() []string {
	out := make([]string, len(s.conditions))
	copy(out, s.conditions)

	return out
}

// Trials returns the materialized trial labels (the draw history so far
// for the infinite kind).
func (s *Sequence) Trials() []string {
	out := make([]string, len(s.trials))
	for i, idx := range s.trials {
		out[i] = s.conditions[idx]
	}

	return out
}

// Responses returns a copy of the response log; unanswered trials hold "".
func (s *Sequence) Responses() []string {
	out := make([]string, len(s.responses))
	copy(out, s.responses)

	return out
}

// String summarizes the sequence state.
func (s *Sequence) String() string {
	if s.kind == KindInfinite {
		return fmt.Sprintf("sequence %s, %d conditions, %d trials drawn", s.kind, len(s.conditions), len(s.trials))
	}

	return fmt.Sprintf("sequence %s, %d conditions, trial %d of %d", s.kind, len(s.conditions), s.cursor, len(s.trials))
}
