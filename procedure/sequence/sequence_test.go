package sequence

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func newTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func mustNew(t *testing.T, conditions []string, opts ...Option) *Sequence {
	t.Helper()

	s, err := New(conditions, opts...)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}

	return s
}

// drain pulls every remaining trial label from a finite sequence.
func drain(t *testing.T, s *Sequence) []string {
	t.Helper()

	var out []string

	for {
		label, err := s.Next()
		if errors.Is(err, ErrExhausted) {
			return out
		}

		if err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}

		out = append(out, label)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		conditions []string
		opts       []Option
	}{
		{"empty conditions", nil, nil},
		{"zero reps", []string{"A", "B"}, []Option{WithReps(0)}},
		{"invalid kind", []string{"A", "B"}, []Option{WithKind(Kind(99))}},
		{"oddball via New", []string{"A", "B"}, []Option{WithKind(KindOddball)}},
		{"single condition repeated", []string{"A"}, []Option{WithReps(2)}},
		{"majority label", []string{"A", "A", "A", "B"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.conditions, tt.opts...)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestNonRepeating_NoAdjacentRepeats(t *testing.T) {
	conditions := []string{"A", "B", "C"}

	for seed := uint64(0); seed < 50; seed++ {
		s := mustNew(t, conditions, WithReps(2), WithRNG(newTestRNG(seed)))

		trials := drain(t, s)
		if len(trials) != 6 {
			t.Fatalf("seed %d: got %d trials, want 6", seed, len(trials))
		}

		counts := map[string]int{}

		for i, label := range trials {
			counts[label]++

			if i > 0 && trials[i-1] == label {
				t.Errorf("seed %d: adjacent repeat of %q at trial %d: %v", seed, label, i, trials)
			}
		}

		for _, cond := range conditions {
			if counts[cond] != 2 {
				t.Errorf("seed %d: condition %q appears %d times, want 2", seed, cond, counts[cond])
			}
		}
	}
}

// Duplicate labels raise that label's multiplicity; the adjacency
// constraint still holds on label equality even at the feasibility bound.
func TestNonRepeating_SkewedMultiplicity(t *testing.T) {
	// "A" fills half of every repetition: the only valid orders alternate
	// A with the other labels.
	conditions := []string{"A", "A", "B", "C"}

	for seed := uint64(0); seed < 50; seed++ {
		s := mustNew(t, conditions, WithReps(3), WithRNG(newTestRNG(seed)))

		trials := drain(t, s)
		if len(trials) != 12 {
			t.Fatalf("seed %d: got %d trials, want 12", seed, len(trials))
		}

		counts := map[string]int{}

		for i, label := range trials {
			counts[label]++

			if i > 0 && trials[i-1] == label {
				t.Errorf("seed %d: adjacent repeat of %q at trial %d: %v", seed, label, i, trials)
			}
		}

		if counts["A"] != 6 || counts["B"] != 3 || counts["C"] != 3 {
			t.Errorf("seed %d: counts %v, want A:6 B:3 C:3", seed, counts)
		}
	}
}

func TestNonRepeating_SingleTrial(t *testing.T) {
	s := mustNew(t, []string{"A"})

	trials := drain(t, s)
	if len(trials) != 1 || trials[0] != "A" {
		t.Errorf("got %v, want [A]", trials)
	}
}

func TestRandom_ExactCounts(t *testing.T) {
	s := mustNew(t, []string{"A", "B"}, WithReps(5), WithKind(KindRandom), WithRNG(newTestRNG(3)))

	trials := drain(t, s)
	if len(trials) != 10 {
		t.Fatalf("got %d trials, want 10", len(trials))
	}

	counts := map[string]int{}
	for _, label := range trials {
		counts[label]++
	}

	if counts["A"] != 5 || counts["B"] != 5 {
		t.Errorf("counts %v, want A:5 B:5", counts)
	}
}

func TestInfinite_DrawsForever(t *testing.T) {
	s := mustNew(t, []string{"A", "B", "C"}, WithKind(KindInfinite), WithRNG(newTestRNG(9)))

	seen := map[string]bool{}

	for range 1000 {
		label, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}

		seen[label] = true
	}

	if s.Finished() {
		t.Error("infinite sequence reported finished")
	}

	if got := s.Remaining(); got != -1 {
		t.Errorf("Remaining: got %d, want -1", got)
	}

	if got := s.TrialCount(); got != 1000 {
		t.Errorf("TrialCount: got %d, want 1000", got)
	}

	for _, cond := range []string{"A", "B", "C"} {
		if !seen[cond] {
			t.Errorf("condition %q never drawn in 1000 trials", cond)
		}
	}
}

func TestNext_Exhausted(t *testing.T) {
	s := mustNew(t, []string{"A", "B"}, WithRNG(newTestRNG(1)))

	drain(t, s)

	if !s.Finished() {
		t.Error("drained sequence should be finished")
	}

	if _, err := s.Next(); !errors.Is(err, ErrExhausted) {
		t.Errorf("got %v, want ErrExhausted", err)
	}
}

func TestAddResponse_Alignment(t *testing.T) {
	s := mustNew(t, []string{"A", "B", "C"}, WithRNG(newTestRNG(2)))

	if err := s.AddResponse("yes"); !errors.Is(err, ErrNoCurrentTrial) {
		t.Errorf("before first trial: got %v, want ErrNoCurrentTrial", err)
	}

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}

	if err := s.AddResponse("yes"); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}

	if err := s.AddResponse("again"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("double response: got %v, want ErrConfiguration", err)
	}

	// Skip a trial's response; the log keeps a placeholder for alignment.
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}

	if err := s.AddResponse("late"); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}

	got := s.Responses()
	want := []string{"yes", "", "late"}

	if len(got) != len(want) {
		t.Fatalf("responses %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("response %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPeek(t *testing.T) {
	s := mustNew(t, []string{"A", "B", "C"}, WithRNG(newTestRNG(4)))

	if _, ok := s.Peek(0); ok {
		t.Error("Peek before first trial should fail")
	}

	first, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := s.Peek(0); !ok || got != first {
		t.Errorf("Peek(0): got %q/%v, want %q/true", got, ok, first)
	}

	if got, err := s.Current(); err != nil || got != first {
		t.Errorf("Current: got %q/%v, want %q", got, err, first)
	}

	upcoming, ok := s.Peek(1)
	if !ok {
		t.Fatal("Peek(1) should see the next trial")
	}

	second, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}

	if second != upcoming {
		t.Errorf("Next returned %q, Peek(1) promised %q", second, upcoming)
	}

	if got, ok := s.Peek(-1); !ok || got != first {
		t.Errorf("Peek(-1): got %q/%v, want %q/true", got, ok, first)
	}

	if _, ok := s.Peek(10); ok {
		t.Error("Peek beyond the last trial should fail")
	}

	if _, ok := s.Peek(-10); ok {
		t.Error("Peek before the first trial should fail")
	}
}

func TestCurrentRep(t *testing.T) {
	s := mustNew(t, []string{"A", "B"}, WithReps(3), WithRNG(newTestRNG(5)))

	wantReps := []int{0, 0, 1, 1, 2, 2}

	for i, want := range wantReps {
		if _, err := s.Next(); err != nil {
			t.Fatal(err)
		}

		if got := s.CurrentRep(); got != want {
			t.Errorf("trial %d: CurrentRep got %d, want %d", i, got, want)
		}
	}
}

func TestReproducible_SameSeed(t *testing.T) {
	a := mustNew(t, []string{"A", "B", "C", "D"}, WithReps(5), WithRNG(newTestRNG(11)))
	b := mustNew(t, []string{"A", "B", "C", "D"}, WithReps(5), WithRNG(newTestRNG(11)))

	ta, tb := drain(t, a), drain(t, b)

	if len(ta) != len(tb) {
		t.Fatalf("lengths diverged: %d vs %d", len(ta), len(tb))
	}

	for i := range ta {
		if ta[i] != tb[i] {
			t.Fatalf("trial %d diverged: %q vs %q", i, ta[i], tb[i])
		}
	}
}

func TestNumbered(t *testing.T) {
	got := Numbered(3)
	want := []string{"0", "1", "2"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestString(t *testing.T) {
	s := mustNew(t, []string{"A", "B"}, WithReps(2), WithRNG(newTestRNG(6)))

	want := "sequence non_repeating, 2 conditions, trial 0 of 4"
	if got := s.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}
