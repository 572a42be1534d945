// Package results persists trial-by-trial experiment outcomes to SQLite so
// sessions survive crashes and can be analyzed offline. One row per trial,
// grouped by session ID; procedure snapshots (see the procedure packages)
// cover resumption, this store covers the collected data.
package results

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors returned by store operations.
var (
	ErrInvalidRecord = errors.New("results: invalid trial record")
	ErrNoSession     = errors.New("results: no trials for session")
)

const trialsSchema = `
CREATE TABLE IF NOT EXISTS trials (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    procedure   TEXT NOT NULL,
    trial_n     INTEGER NOT NULL,
    value       REAL NOT NULL DEFAULT 0,
    label       TEXT NOT NULL DEFAULT '',
    response    TEXT NOT NULL DEFAULT '',
    correct     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);
`

const trialsIndex = `
CREATE INDEX IF NOT EXISTS idx_trials_session
ON trials(session_id, trial_n);
`

// Store writes and reads trial outcomes through a SQL database, typically
// SQLite via modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the trials table and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(trialsSchema); err != nil {
		return nil, fmt.Errorf("results: create schema: %w", err)
	}

	if _, err := db.Exec(trialsIndex); err != nil {
		return nil, fmt.Errorf("results: create index: %w", err)
	}

	return &Store{db: db}, nil
}

// NewSessionID returns a fresh unique session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// TrialRecord is one presented trial and its outcome. Value carries the
// staircase intensity, Label the sequence condition; either may be unused
// depending on the procedure.
type TrialRecord struct {
	SessionID string
	Procedure string
	TrialN    int
	Value     float64
	Label     string
	Response  string
	Correct   bool
	CreatedAt time.Time
}

// RecordTrial persists a single trial row. A zero CreatedAt is stamped
// with the current time.
func (s *Store) RecordTrial(rec TrialRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("%w: empty session ID", ErrInvalidRecord)
	}

	if rec.Procedure == "" {
		return fmt.Errorf("%w: empty procedure", ErrInvalidRecord)
	}

	if rec.TrialN < 0 {
		return fmt.Errorf("%w: negative trial number %d", ErrInvalidRecord, rec.TrialN)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	correct := 0
	if rec.Correct {
		correct = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO trials
		(session_id, procedure, trial_n, value, label, response, correct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Procedure,
		rec.TrialN,
		rec.Value,
		rec.Label,
		rec.Response,
		correct,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("results: record trial: %w", err)
	}

	return nil
}

// SessionTrials returns every trial of a session in trial order.
func (s *Store) SessionTrials(sessionID string) ([]TrialRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, procedure, trial_n, value, label, response, correct, created_at
		FROM trials
		WHERE session_id = ?
		ORDER BY trial_n`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("results: query session: %w", err)
	}
	defer rows.Close()

	var out []TrialRecord

	for rows.Next() {
		var (
			rec       TrialRecord
			correct   int
			createdAt string
		)

		if err := rows.Scan(&rec.SessionID, &rec.Procedure, &rec.TrialN,
			&rec.Value, &rec.Label, &rec.Response, &correct, &createdAt); err != nil {
			return nil, fmt.Errorf("results: scan trial: %w", err)
		}

		rec.Correct = correct != 0

		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("results: malformed created_at %q: %w", createdAt, err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: iterate session: %w", err)
	}

	return out, nil
}

// SessionSummary aggregates a session's outcomes.
type SessionSummary struct {
	SessionID      string
	Trials         int
	PercentCorrect float64
}

// SessionSummary returns the trial count and percent-correct of a session.
// Returns ErrNoSession when the session has no trials.
func (s *Store) SessionSummary(sessionID string) (SessionSummary, error) {
	var (
		trials  int
		correct int
	)

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(correct), 0)
		FROM trials
		WHERE session_id = ?`,
		sessionID,
	).Scan(&trials, &correct)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("results: summarize session: %w", err)
	}

	if trials == 0 {
		return SessionSummary{}, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}

	return SessionSummary{
		SessionID:      sessionID,
		Trials:         trials,
		PercentCorrect: 100 * float64(correct) / float64(trials),
	}, nil
}
