// Package precomputed manages a fixed pool of pre-built stimuli and draws
// from it in constrained-random order: every draw is uniform over all items
// except the one drawn immediately before, so no stimulus is ever presented
// twice in a row. The full draw history is logged for later analysis and
// survives snapshot round-trips, including the non-repeat rule across the
// save point.
package precomputed

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Errors returned by pool operations.
var (
	ErrConfiguration = errors.New("precomputed: invalid configuration")
	ErrSnapshot      = errors.New("precomputed: malformed snapshot")
)

// Presenter is the capability a stimulus-like object must offer: present
// itself to the listener. How presentation happens (audio playback,
// display, ...) is entirely the collaborator's concern.
type Presenter interface {
	Present() error
}

// Pool owns a fixed set of stimuli and an append-only log of drawn indices.
type Pool struct {
	items    []Presenter
	rng      *rand.Rand
	sequence []int
}

// Option configures a [Pool].
type Option func(*Pool) error

// WithRNG sets a deterministic random number generator for reproducible
// draw orders.
func WithRNG(rng *rand.Rand) Option {
	return func(p *Pool) error {
		p.rng = rng
		return nil
	}
}

// NewPool wraps the given stimuli. The pool holds the slice it is given;
// callers must not mutate it afterwards.
func NewPool(items []Presenter, opts ...Option) (*Pool, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: pool must hold at least one item", ErrConfiguration)
	}

	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: item %d is nil", ErrConfiguration, i)
		}
	}

	p := &Pool{items: items}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return p, nil
}

// Draw returns one stimulus, selected uniformly at random from all items
// except the one drawn immediately before, and logs its index. A one-item
// pool always returns its item; a two-item pool alternates.
func (p *Pool) Draw() Presenter {
	idx := 0

	if n := len(p.items); n > 1 {
		if len(p.sequence) == 0 {
			idx = p.rng.IntN(n)
		} else {
			last := p.sequence[len(p.sequence)-1]

			idx = p.rng.IntN(n - 1)
			if idx >= last {
				idx++
			}
		}
	}

	p.sequence = append(p.sequence, idx)

	return p.items[idx]
}

// Play draws one stimulus and presents it.
func (p *Pool) Play() error {
	return p.Draw().Present()
}

// Len returns the number of items in the pool.
func (p *Pool) Len() int { return len(p.items) }

// History returns a copy of the drawn-index log.
func (p *Pool) History() []int {
	out := make([]int, len(p.sequence))
	copy(out, p.sequence)

	return out
}

// String summarizes the pool state.
func (p *Pool) String() string {
	return fmt.Sprintf("precomputed pool, %d items, %d draws", len(p.items), len(p.sequence))
}
