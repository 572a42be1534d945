package precomputed_test

import (
	"fmt"
	"math/rand/v2"

	"github.com/cwbudde/algo-psychometrics/procedure/precomputed"
)

type tone struct {
	name   string
	played int
}

func (t *tone) Present() error {
	t.played++
	return nil
}

func ExamplePool_Play() {
	items := []precomputed.Presenter{
		&tone{name: "500 Hz"},
		&tone{name: "1 kHz"},
	}

	pool, _ := precomputed.NewPool(items,
		precomputed.WithRNG(rand.New(rand.NewPCG(1, 2))),
	)

	// A two-item pool alternates after the first draw.
	for range 4 {
		pool.Play()
	}

	history := pool.History()
	alternating := true

	for i := 1; i < len(history); i++ {
		if history[i] == history[i-1] {
			alternating = false
		}
	}

	fmt.Printf("draws=%d alternating=%v\n", len(history), alternating)

	// Output:
	// draws=4 alternating=true
}
