package store

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/cadence/internal/difficulty"
)

// sequenceCounter hands out the global monotonic sequence number stamped on
// every transition event, so events keep their append order even when
// timestamps collide.
//
// Uses raw SQL because the increment must be atomic at the database level.
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic across processes.
type sequenceCounter struct {
	mu sync.Mutex
	db *stdsql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *stdsql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// TransitionEventData is one difficulty transition, decay or remediation.
type TransitionEventData struct {
	RunID      string
	Kind       string
	SubtopicID string
	From       string
	To         string
	Detail     int
	Timestamp  time.Time
}

// TransitionEvent is a stored TransitionEventData with its sequence.
type TransitionEvent struct {
	Sequence int64
	TransitionEventData
}

// EventRepo is the append-only transition event log.
type EventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

// AppendTransition records one event.
func (r *EventRepo) AppendTransition(ctx context.Context, data TransitionEventData) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(transitionEventsTable.Name).
		Columns("sequence", "timestamp", "run_id", "kind", "subtopic_id", "from_level", "to_level", "detail").
		Values(seq, ts.UnixMilli(), data.RunID, data.Kind, data.SubtopicID, data.From, data.To, data.Detail).
		Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("append transition event: %w", err)
	}
	return nil
}

// Record implements difficulty.Recorder.
func (r *EventRepo) Record(ctx context.Context, ev difficulty.Event) error {
	return r.AppendTransition(ctx, TransitionEventData{
		RunID:      ev.RunID,
		Kind:       string(ev.Kind),
		SubtopicID: ev.SubtopicID,
		From:       string(ev.From),
		To:         string(ev.To),
		Detail:     ev.Detail,
		Timestamp:  ev.At,
	})
}

// TransitionCounts returns the number of events per kind for a run, or for
// all runs when runID is empty.
func (r *EventRepo) TransitionCounts(ctx context.Context, runID string) (map[string]int, error) {
	b := entsql.Dialect(dialect.SQLite).
		Select("kind", entsql.Count("*")).
		From(entsql.Table(transitionEventsTable.Name)).
		GroupBy("kind")
	if runID != "" {
		b = b.Where(entsql.EQ("run_id", runID))
	}
	query, args := b.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("count transition events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan transition count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// RecentTransitions returns the latest events of a run, newest first.
func (r *EventRepo) RecentTransitions(ctx context.Context, runID string, limit int) ([]TransitionEvent, error) {
	b := entsql.Dialect(dialect.SQLite).
		Select("sequence", "timestamp", "run_id", "kind", "subtopic_id", "from_level", "to_level", "detail").
		From(entsql.Table(transitionEventsTable.Name)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		b = b.Limit(limit)
	}
	query, args := b.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query transition events: %w", err)
	}
	defer rows.Close()

	var events []TransitionEvent
	for rows.Next() {
		var ev TransitionEvent
		var ms int64
		if err := rows.Scan(&ev.Sequence, &ms, &ev.RunID, &ev.Kind, &ev.SubtopicID, &ev.From, &ev.To, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan transition event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ms)
		events = append(events, ev)
	}
	return events, rows.Err()
}
