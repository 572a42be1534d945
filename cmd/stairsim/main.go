// Command stairsim runs a simulated adaptive staircase session against a
// virtual listener and reports the estimated threshold.
//
// Usage:
//
//	stairsim [flags]
//
// Examples:
//
//	stairsim
//	stairsim -start 60 -listener 30 -reversals 12
//	stairsim -steps 8,4,2,1 -ndown 2 -seed 7
//	stairsim -json run.json -db results.db
//
// With -json the full staircase snapshot is written for later resumption;
// with -db every trial is recorded to a SQLite results database.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	_ "modernc.org/sqlite"

	"github.com/cwbudde/algo-psychometrics/procedure/staircase"
	"github.com/cwbudde/algo-psychometrics/results"
)

func main() {
	var (
		start     = flag.Float64("start", 60, "starting intensity")
		minVal    = flag.Float64("min", 0, "smallest legal intensity")
		maxVal    = flag.Float64("max", 80, "largest legal intensity")
		steps     = flag.String("steps", "8,4,2,1", "comma-separated step sizes")
		nUp       = flag.Int("nup", 1, "consecutive incorrect responses per up-step")
		nDown     = flag.Int("ndown", 2, "consecutive correct responses per down-step")
		reversals = flag.Int("reversals", 10, "reversal count that ends the run")
		listener  = flag.Float64("listener", 30, "simulated listener threshold")
		width     = flag.Float64("width", 2, "simulated psychometric transition width")
		seed      = flag.Uint64("seed", 1, "random seed")
		jsonPath  = flag.String("json", "", "write the staircase snapshot to this file")
		dbPath    = flag.String("db", "", "record trials to this SQLite database")
		verbose   = flag.Bool("v", false, "log every trial")
	)

	flag.Parse()

	level := slog.LevelInfo
	if !*verbose {
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	))

	if err := run(*start, *minVal, *maxVal, *steps, *nUp, *nDown, *reversals,
		*listener, *width, *seed, *jsonPath, *dbPath); err != nil {
		slog.Error("stairsim failed", "err", err)
		os.Exit(1)
	}
}

func run(start, minVal, maxVal float64, steps string, nUp, nDown, reversals int,
	listener, width float64, seed uint64, jsonPath, dbPath string,
) error {
	stepSizes, err := parseSteps(steps)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(seed, seed+1))

	s, err := staircase.New(start,
		staircase.WithStepSizes(stepSizes...),
		staircase.WithNUp(nUp),
		staircase.WithNDown(nDown),
		staircase.WithReversalTarget(reversals),
		staircase.WithMinValue(minVal),
		staircase.WithMaxValue(maxVal),
		staircase.WithRNG(rng),
	)
	if err != nil {
		return err
	}

	var store *results.Store

	session := results.NewSessionID()

	if dbPath != "" {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return fmt.Errorf("open results database: %w", err)
		}
		defer db.Close()

		store, err = results.NewStore(db)
		if err != nil {
			return err
		}

		slog.Info("recording results", "db", dbPath, "session", session)
	}

	for !s.Finished() {
		value, err := s.Next()
		if err != nil {
			return err
		}

		correct := s.SimulateResponse(listener, width)

		if err := s.AddResponse(correct); err != nil {
			return err
		}

		slog.Info("trial",
			"n", s.TrialCount()-1,
			"level", value,
			"correct", correct,
		)

		if store != nil {
			err := store.RecordTrial(results.TrialRecord{
				SessionID: session,
				Procedure: "staircase",
				TrialN:    s.TrialCount() - 1,
				Value:     value,
				Correct:   correct,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return err
			}
		}
	}

	threshold, err := s.Threshold()
	if err != nil {
		return err
	}

	intensities, points := s.Reversals()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "trials\t%d\n", s.TrialCount())
	fmt.Fprintf(w, "reversals\t%d\n", len(points))
	fmt.Fprintf(w, "reversal levels\t%s\n", formatLevels(intensities))
	fmt.Fprintf(w, "estimated threshold\t%.2f\n", threshold)
	fmt.Fprintf(w, "simulated listener\t%.2f\n", listener)

	if err := w.Flush(); err != nil {
		return err
	}

	if jsonPath != "" {
		f, err := os.Create(jsonPath)
		if err != nil {
			return fmt.Errorf("create snapshot file: %w", err)
		}
		defer f.Close()

		if err := s.Save(f); err != nil {
			return err
		}

		slog.Info("snapshot written", "path", jsonPath)
	}

	return nil
}

func parseSteps(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))

	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid step size %q: %w", part, err)
		}

		out = append(out, v)
	}

	return out, nil
}

func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, v := range levels {
		parts[i] = strconv.FormatFloat(v, 'g', 4, 64)
	}

	return strings.Join(parts, " ")
}
