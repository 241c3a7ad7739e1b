// Package runstate holds the persisted run aggregate and the store that
// creates, loads, migrates, imports and exports it.
package runstate

import (
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/mastery"
	"github.com/abhisek/cadence/internal/queue"
)

// SchemaVersion is the current run document version.
const SchemaVersion = 2

// RecentArchetypesLimit bounds RunState.RecentArchetypes.
const RecentArchetypesLimit = 20

// Status is the lifecycle state of a run.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	if st := Status(s); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Config is the per-run tuning. Zero fields take DefaultConfig values.
type Config struct {
	StreakToPromote           int `json:"streakToPromote" yaml:"streak_to_promote"`
	AggressiveStreakToPromote int `json:"aggressiveStreakToPromote" yaml:"aggressive_streak_to_promote"`
	ExtraRemediationCount     int `json:"extraRemediationCount" yaml:"extra_remediation_count"`
	MiniCurriculumSize        int `json:"miniCurriculumSize" yaml:"mini_curriculum_size"`
	DecayHours                int `json:"decayHours" yaml:"decay_hours"`
	PrefetchBufferSize        int `json:"prefetchBufferSize" yaml:"prefetch_buffer_size"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		StreakToPromote:           3,
		AggressiveStreakToPromote: 2,
		ExtraRemediationCount:     1,
		MiniCurriculumSize:        12,
		DecayHours:                24,
		PrefetchBufferSize:        3,
	}
}

// WithDefaults fills zero or negative fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	fill := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&c.StreakToPromote, def.StreakToPromote)
	fill(&c.AggressiveStreakToPromote, def.AggressiveStreakToPromote)
	fill(&c.ExtraRemediationCount, def.ExtraRemediationCount)
	fill(&c.MiniCurriculumSize, def.MiniCurriculumSize)
	fill(&c.DecayHours, def.DecayHours)
	fill(&c.PrefetchBufferSize, def.PrefetchBufferSize)
	return c
}

// Difficulty converts the tuning into controller thresholds.
func (c Config) Difficulty() difficulty.Config {
	c = c.WithDefaults()
	cfg := difficulty.DefaultConfig()
	cfg.StreakToPromote = c.StreakToPromote
	cfg.AggressiveStreakToPromote = c.AggressiveStreakToPromote
	cfg.DecayAfter = time.Duration(c.DecayHours) * time.Hour
	return cfg
}

// RunState is the aggregate root of one practice run.
type RunState struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name"`
	CreatedAt     int64  `json:"createdAt"`     // unix millis
	LastUpdatedAt int64  `json:"lastUpdatedAt"` // unix millis
	Status        Status `json:"status"`

	queue.Cursor

	Streak             int                `json:"streak"`
	DifficultyPointer  difficulty.Pointer `json:"difficultyPointer"`
	CompletedQuestions int                `json:"completedQuestions"`
	PerSubtopicStats   mastery.Stats      `json:"perSubtopicStats"`
	RecentArchetypes   []string           `json:"recentArchetypes"`

	AggressiveProgression bool    `json:"aggressiveProgression"`
	RemediationMode       bool    `json:"remediationMode"`
	Config                *Config `json:"config,omitempty"`
}

// CreateOptions configures a new run.
type CreateOptions struct {
	Name                  string
	AggressiveProgression bool
	RemediationMode       bool
	Config                *Config
}

// New builds a fresh run around an initial queue.
func New(id string, opts CreateOptions, initial []curriculum.Node, now time.Time) *RunState {
	ms := now.UnixMilli()
	name := opts.Name
	if name == "" {
		name = "Run " + now.Format("2006-01-02 15:04")
	}
	s := &RunState{
		ID:                    id,
		SchemaVersion:         SchemaVersion,
		Name:                  name,
		CreatedAt:             ms,
		LastUpdatedAt:         ms,
		Status:                StatusActive,
		Cursor:                queue.Cursor{Queue: slices.Clone(initial)},
		AggressiveProgression: opts.AggressiveProgression,
		RemediationMode:       opts.RemediationMode,
	}
	if opts.Config != nil {
		cfg := opts.Config.WithDefaults()
		s.Config = &cfg
	}
	s.ensure(curriculum.DefaultNode)
	return s
}

// Tuning returns the run's effective tuning.
func (s *RunState) Tuning() Config {
	if s.Config == nil {
		return DefaultConfig()
	}
	return s.Config.WithDefaults()
}

// Level returns the difficulty of a subtopic.
func (s *RunState) Level(subtopicID string) difficulty.Level {
	return s.DifficultyPointer.Get(subtopicID)
}

// PushArchetype appends a served archetype, keeping the newest
// RecentArchetypesLimit entries.
func (s *RunState) PushArchetype(id string) {
	if id == "" {
		return
	}
	s.RecentArchetypes = append(s.RecentArchetypes, id)
	if over := len(s.RecentArchetypes) - RecentArchetypesLimit; over > 0 {
		s.RecentArchetypes = slices.Delete(s.RecentArchetypes, 0, over)
	}
}

// LastUpdated returns LastUpdatedAt as a time.
func (s *RunState) LastUpdated() time.Time {
	return time.UnixMilli(s.LastUpdatedAt)
}

// ensure replaces nil collections and restores the cursor invariants.
func (s *RunState) ensure(fallback curriculum.Node) {
	if s.DifficultyPointer == nil {
		s.DifficultyPointer = difficulty.Pointer{}
	}
	if s.PerSubtopicStats == nil {
		s.PerSubtopicStats = mastery.Stats{}
	}
	if s.RecentArchetypes == nil {
		s.RecentArchetypes = []string{}
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.Streak < 0 {
		s.Streak = 0
	}
	s.Cursor.Normalize(fallback)
}
