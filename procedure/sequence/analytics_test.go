package sequence

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-12

// fixedSequence restores a sequence with a hand-picked trial history so
// analytics can be checked against known counts. The infinite kind places
// no constraints on the history layout.
func fixedSequence(t *testing.T, conditions []string, trials []int) *Sequence {
	t.Helper()

	s, err := Restore(Snapshot{
		Conditions: conditions,
		Kind:       "infinite",
		NReps:      1,
		Trials:     trials,
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	return s
}

func TestTransitions_RowNormalized(t *testing.T) {
	s := fixedSequence(t, []string{"a", "b"}, []int{0, 1, 0, 0, 1})

	matrix, err := s.Transitions()
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}

	// From a: a->b twice, a->a once. From b: b->a once.
	want := [][]float64{
		{1.0 / 3, 2.0 / 3},
		{1, 0},
	}

	for i := range want {
		for j := range want[i] {
			if math.Abs(matrix[i][j]-want[i][j]) > tolerance {
				t.Errorf("cell (%d,%d): got %g, want %g", i, j, matrix[i][j], want[i][j])
			}
		}
	}
}

func TestTransitions_ZeroRowStaysZero(t *testing.T) {
	// "b" only appears as the final trial: no outgoing transitions.
	s := fixedSequence(t, []string{"a", "b"}, []int{0, 0, 1})

	matrix, err := s.Transitions()
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}

	for j, v := range matrix[1] {
		if v != 0 {
			t.Errorf("cell (1,%d): got %g, want 0 (not NaN)", j, v)
		}

		if math.IsNaN(v) {
			t.Errorf("cell (1,%d) is NaN", j)
		}
	}
}

func TestTransitions_InsufficientData(t *testing.T) {
	s := fixedSequence(t, []string{"a", "b"}, []int{0})

	if _, err := s.Transitions(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestConditionProbabilities(t *testing.T) {
	s := fixedSequence(t, []string{"a", "b"}, []int{0, 1, 0, 0, 1})

	probs, err := s.ConditionProbabilities()
	if err != nil {
		t.Fatalf("ConditionProbabilities: %v", err)
	}

	want := []float64{0.6, 0.4}

	for i := range want {
		if math.Abs(probs[i]-want[i]) > tolerance {
			t.Errorf("condition %d: got %g, want %g", i, probs[i], want[i])
		}
	}
}

func TestConditionProbabilities_EmptyHistory(t *testing.T) {
	s := mustNew(t, []string{"a", "b"}, WithKind(KindInfinite), WithRNG(newTestRNG(1)))

	if _, err := s.ConditionProbabilities(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestAnalytics_InfiniteUsesHistory(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c"}, WithKind(KindInfinite), WithRNG(newTestRNG(8)))

	for range 300 {
		if _, err := s.Next(); err != nil {
			t.Fatal(err)
		}
	}

	probs, err := s.ConditionProbabilities()
	if err != nil {
		t.Fatalf("ConditionProbabilities: %v", err)
	}

	sum := 0.0
	for _, p := range probs {
		sum += p
	}

	if math.Abs(sum-1) > tolerance {
		t.Errorf("probabilities sum to %g, want 1", sum)
	}

	matrix, err := s.Transitions()
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}

	for i, row := range matrix {
		rowSum := 0.0
		for _, v := range row {
			rowSum += v
		}

		if rowSum != 0 && math.Abs(rowSum-1) > tolerance {
			t.Errorf("row %d sums to %g, want 1", i, rowSum)
		}
	}
}
