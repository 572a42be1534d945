package precomputed

import (
	"encoding/json"
	"fmt"
	"io"
)

// Snapshot is the serializable state of a pool: the item count and the
// draw history. The stimuli themselves are rebuilt by the collaborator
// that synthesized them and passed back in on restore.
type Snapshot struct {
	ItemCount int   `json:"n_items"`
	Sequence  []int `json:"sequence"`
}

// Snapshot captures the current state.
func (p *Pool) Snapshot() Snapshot {
	return Snapshot{
		ItemCount: len(p.items),
		Sequence:  append([]int(nil), p.sequence...),
	}
}

// NewPoolFromSnapshot reconstructs a pool over the given stimuli with the
// snapshot's draw history. Future draws respect the no-immediate-repeat
// rule relative to the last historical entry. The item slice must match
// the snapshot's item count; inconsistent histories fail with ErrSnapshot.
func NewPoolFromSnapshot(items []Presenter, snap Snapshot, opts ...Option) (*Pool, error) {
	if err := snap.validate(); err != nil {
		return nil, err
	}

	if len(items) != snap.ItemCount {
		return nil, fmt.Errorf("%w: %d items supplied, snapshot holds %d", ErrSnapshot, len(items), snap.ItemCount)
	}

	p, err := NewPool(items, opts...)
	if err != nil {
		return nil, err
	}

	p.sequence = append([]int(nil), snap.Sequence...)

	return p, nil
}

func (snap *Snapshot) validate() error {
	if snap.ItemCount < 1 {
		return fmt.Errorf("%w: item count must be >= 1: %d", ErrSnapshot, snap.ItemCount)
	}

	for i, idx := range snap.Sequence {
		if idx < 0 || idx >= snap.ItemCount {
			return fmt.Errorf("%w: draw %d references item %d of %d", ErrSnapshot, i, idx, snap.ItemCount)
		}

		if snap.ItemCount >= 2 && i > 0 && snap.Sequence[i-1] == idx {
			return fmt.Errorf("%w: draws %d and %d repeat item %d", ErrSnapshot, i-1, i, idx)
		}
	}

	return nil
}

// Save writes the snapshot as indented JSON.
func (p *Pool) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(p.Snapshot()); err != nil {
		return fmt.Errorf("precomputed: save: %w", err)
	}

	return nil
}

// Load reads a JSON snapshot and reconstructs a pool over the given
// stimuli.
func Load(r io.Reader, items []Presenter, opts ...Option) (*Pool, error) {
	var snap Snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	return NewPoolFromSnapshot(items, snap, opts...)
}
