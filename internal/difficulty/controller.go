package difficulty

import (
	"context"
	"log/slog"
	"time"
)

const (
	TriggerStreak   = "streak"
	TriggerFailures = "consecutive-failures"
)

// Config holds the promotion, demotion and decay thresholds.
type Config struct {
	// StreakToPromote is the correct-answer streak that promotes the
	// current subtopic in normal mode.
	StreakToPromote int

	// AggressiveStreakToPromote replaces StreakToPromote in aggressive mode.
	AggressiveStreakToPromote int

	// FailuresToDemote is the consecutive incorrect attempts on one
	// subtopic that demote it. A single miss never demotes.
	FailuresToDemote int

	// DecayAfter is the idle time after which the streak is halved on load.
	DecayAfter time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		StreakToPromote:           3,
		AggressiveStreakToPromote: 2,
		FailuresToDemote:          2,
		DecayAfter:                24 * time.Hour,
	}
}

// Controller applies the difficulty state machine and reports every
// transition to a Recorder. Recording never blocks a transition.
type Controller struct {
	cfg      Config
	recorder Recorder
	logger   *slog.Logger
}

// NewController creates a Controller. recorder may be nil.
func NewController(cfg Config, recorder Recorder, logger *slog.Logger) *Controller {
	if cfg.FailuresToDemote < 2 {
		cfg.FailuresToDemote = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{cfg: cfg, recorder: recorder, logger: logger}
}

// Config returns the controller's thresholds.
func (c *Controller) Config() Config {
	return c.cfg
}

// Threshold returns the streak that triggers promotion.
func (c *Controller) Threshold(aggressive bool) int {
	if aggressive && c.cfg.AggressiveStreakToPromote > 0 {
		return c.cfg.AggressiveStreakToPromote
	}
	return c.cfg.StreakToPromote
}

// ShouldPromote reports whether a streak has just reached the promotion
// threshold. The streak keeps counting across subtopics, so promotion
// fires each time it reaches another multiple of the threshold.
func (c *Controller) ShouldPromote(streak int, aggressive bool) bool {
	t := c.Threshold(aggressive)
	return t > 0 && streak > 0 && streak%t == 0
}

// ShouldDemote reports whether a subtopic's failure run demotes it.
func (c *Controller) ShouldDemote(consecutiveFailures int) bool {
	return consecutiveFailures >= c.cfg.FailuresToDemote
}

// Promote raises subtopicID one level and records the transition.
// Returns nil when the subtopic is already Advanced.
func (c *Controller) Promote(ctx context.Context, runID string, p Pointer, subtopicID string, streak int) *Transition {
	t := Promote(p, subtopicID)
	if t == nil {
		return nil
	}
	t.Trigger = TriggerStreak
	c.record(ctx, Event{
		RunID:      runID,
		Kind:       EventPromotion,
		SubtopicID: subtopicID,
		From:       t.From,
		To:         t.To,
		Detail:     streak,
	})
	return t
}

// Demote lowers subtopicID one level and records the transition.
// Returns nil when the subtopic is already Beginner.
func (c *Controller) Demote(ctx context.Context, runID string, p Pointer, subtopicID string, failures int) *Transition {
	t := Demote(p, subtopicID)
	if t == nil {
		return nil
	}
	t.Trigger = TriggerFailures
	c.record(ctx, Event{
		RunID:      runID,
		Kind:       EventDemotion,
		SubtopicID: subtopicID,
		From:       t.From,
		To:         t.To,
		Detail:     failures,
	})
	return t
}

// Decay halves streak when the run has been idle longer than DecayAfter.
// Difficulty levels are untouched. Returns the new streak and whether
// decay applied.
func (c *Controller) Decay(ctx context.Context, runID string, streak int, lastUpdated, now time.Time) (int, bool) {
	if streak <= 0 || c.cfg.DecayAfter <= 0 {
		return streak, false
	}
	if now.Sub(lastUpdated) <= c.cfg.DecayAfter {
		return streak, false
	}
	decayed := streak / 2
	c.record(ctx, Event{
		RunID:  runID,
		Kind:   EventDecay,
		Detail: streak,
	})
	return decayed, true
}

// RecordRemediation reports injected remediation entries.
func (c *Controller) RecordRemediation(ctx context.Context, runID, subtopicID string, injected int) {
	c.record(ctx, Event{
		RunID:      runID,
		Kind:       EventRemediation,
		SubtopicID: subtopicID,
		Detail:     injected,
	})
}

func (c *Controller) record(ctx context.Context, ev Event) {
	if c.recorder == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	// Analytics failures must not undo or block the transition.
	if err := c.recorder.Record(ctx, ev); err != nil {
		c.logger.Warn("failed to record difficulty event",
			"kind", ev.Kind, "run", ev.RunID, "subtopic", ev.SubtopicID, "error", err)
	}
}
