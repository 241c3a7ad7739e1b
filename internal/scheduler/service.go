// Package scheduler is the entry point to the adaptive practice core: it
// decides what to serve next and folds attempt outcomes back into a run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/diversity"
	"github.com/abhisek/cadence/internal/mastery"
	"github.com/abhisek/cadence/internal/queue"
	"github.com/abhisek/cadence/internal/remediation"
	"github.com/abhisek/cadence/internal/runstate"
)

// ErrIndexOutOfRange is returned by JumpTo for an index outside the queue.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// Target is the next thing to practice.
type Target struct {
	RunID      string
	Node       curriculum.Node
	Difficulty difficulty.Level

	// Fallback is set when the queued subtopic is no longer in the catalog
	// and Node is the catalog's fallback instead.
	Fallback bool

	// Archetypes are the subtopic's archetypes, least served first.
	Archetypes []string

	// Avoid lists recently served archetypes and tags in the same module.
	Avoid diversity.AvoidList
}

// Outcome is the effect of one recorded attempt.
type Outcome struct {
	Run        *runstate.RunState
	SubtopicID string
	Result     mastery.Result
	Elapsed    time.Duration

	// Transition is the promotion or demotion the attempt caused, if any.
	Transition *difficulty.Transition

	// Injected is the number of remediation entries spliced into the queue.
	Injected int
}

// Options configures a Service.
type Options struct {
	Recorder  difficulty.Recorder
	Diversity diversity.Config
	Logger    *slog.Logger
}

// Service runs the scheduling operations against stored runs. Each
// operation is a load, mutate, save sequence; concurrent writers to the
// same run are last-write-wins.
type Service struct {
	runs      *runstate.Store
	queues    *queue.Generator
	recorder  difficulty.Recorder
	diversity diversity.Config
	logger    *slog.Logger
}

// New creates a Service.
func New(runs *runstate.Store, queues *queue.Generator, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		runs:      runs,
		queues:    queues,
		recorder:  opts.Recorder,
		diversity: opts.Diversity,
		logger:    opts.Logger,
	}
}

// Runs returns the underlying run store.
func (s *Service) Runs() *runstate.Store {
	return s.runs
}

func (s *Service) controller(st *runstate.RunState) *difficulty.Controller {
	return difficulty.NewController(st.Tuning().Difficulty(), s.recorder, s.logger)
}

// current resolves the run's current queue entry against the catalog. A
// subtopic missing from the catalog resolves to the catalog fallback.
func (s *Service) current(st *runstate.RunState) (curriculum.Node, bool) {
	cat := s.runs.Catalog()
	st.Cursor.Normalize(cat.Fallback())
	entry, _ := st.Current()

	n, err := cat.Lookup(entry.SubtopicID)
	if err != nil {
		s.logger.Warn("queued subtopic not in catalog, using fallback",
			"run", st.ID, "subtopic", entry.SubtopicID, "fallback", cat.Fallback().SubtopicID)
		return cat.Fallback(), true
	}
	return n, false
}

// NextTarget returns the subtopic and difficulty to serve next.
func (s *Service) NextTarget(ctx context.Context, runID string) (Target, error) {
	st, err := s.runs.Load(ctx, runID)
	if err != nil {
		return Target{}, err
	}
	return s.target(st, s.engine(ctx, st)), nil
}

func (s *Service) target(st *runstate.RunState, eng *diversity.Engine) Target {
	node, fallback := s.current(st)
	archetypes := s.runs.Catalog().Archetypes(node.SubtopicID)
	return Target{
		RunID:      st.ID,
		Node:       node,
		Difficulty: st.Level(node.SubtopicID),
		Fallback:   fallback,
		Archetypes: eng.LeastUsedArchetypes(archetypes, len(archetypes)),
		Avoid:      eng.AvoidList(diversity.Filter{ModuleID: node.ModuleID}),
	}
}

// RecordAttempt applies one attempt on the current subtopic:
//
//   - correct: solved, failure run cleared, streak extended, promotion when
//     the streak reaches the threshold;
//   - incorrect: streak reset, failure run extended, demotion after two
//     consecutive misses, plus remediation when the run enables it;
//   - partial: counted as an attempt, streak reset, failure run unchanged.
func (s *Service) RecordAttempt(ctx context.Context, runID string, result mastery.Result, elapsed time.Duration) (*Outcome, error) {
	if _, err := mastery.ParseResult(string(result)); err != nil {
		return nil, err
	}
	st, err := s.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	node, _ := s.current(st)
	id := node.SubtopicID

	stats := st.PerSubtopicStats.Record(id, result, s.runs.Now())
	st.CompletedQuestions++
	out := &Outcome{Run: st, SubtopicID: id, Result: result, Elapsed: elapsed}
	ctrl := s.controller(st)

	switch result {
	case mastery.ResultCorrect:
		st.Streak++
		if ctrl.ShouldPromote(st.Streak, st.AggressiveProgression) {
			out.Transition = ctrl.Promote(ctx, st.ID, st.DifficultyPointer, id, st.Streak)
		}
	case mastery.ResultIncorrect:
		st.Streak = 0
		if ctrl.ShouldDemote(stats.ConsecutiveFailures) {
			out.Transition = ctrl.Demote(ctx, st.ID, st.DifficultyPointer, id, stats.ConsecutiveFailures)
			st.PerSubtopicStats.ClearFailures(id)
			if st.RemediationMode {
				out.Injected = s.remediate(ctx, ctrl, st, node)
			}
		}
	case mastery.ResultPartial:
		st.Streak = 0
	}

	if err := s.runs.Save(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Debug("attempt recorded",
		"run", st.ID, "subtopic", id, "result", result,
		"elapsed_ms", elapsed.Milliseconds(), "streak", st.Streak)
	if t := out.Transition; t != nil {
		s.logger.Info("difficulty changed",
			"run", st.ID, "subtopic", id, "from", t.From, "to", t.To, "trigger", t.Trigger)
	}
	return out, nil
}

func (s *Service) remediate(ctx context.Context, ctrl *difficulty.Controller, st *runstate.RunState, node curriculum.Node) int {
	inj := remediation.NewInjector(st.Tuning().ExtraRemediationCount, remediation.DefaultLookahead)
	q, n := inj.Inject(st.Queue, st.CurrentIndex, node)
	if n == 0 {
		return 0
	}
	st.Queue = q
	ctrl.RecordRemediation(ctx, st.ID, node.SubtopicID, n)
	return n
}

// Advance moves the run to its next queue entry, regenerating the queue
// when it runs out.
func (s *Service) Advance(ctx context.Context, runID string) (*runstate.RunState, error) {
	st, err := s.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if s.queues.Advance(&st.Cursor, st.PerSubtopicStats) {
		s.logger.Info("queue regenerated", "run", st.ID, "entries", len(st.Queue))
	}
	if err := s.runs.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// JumpTo moves the run to an arbitrary queue index. Streak and difficulty
// are untouched.
func (s *Service) JumpTo(ctx context.Context, runID string, index int) (*runstate.RunState, error) {
	st, err := s.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(st.Queue) {
		return nil, fmt.Errorf("%w: %d (queue has %d entries)", ErrIndexOutOfRange, index, len(st.Queue))
	}
	st.CurrentIndex = index
	if err := s.runs.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Export encodes a run as a portable document.
func (s *Service) Export(ctx context.Context, runID string) ([]byte, error) {
	return s.runs.Export(ctx, runID)
}

// Import stores the run of a portable document.
func (s *Service) Import(ctx context.Context, data []byte) (runstate.ImportResult, error) {
	return s.runs.Import(ctx, data)
}

// engine rebuilds the run's diversity memory: the persisted snapshot when
// there is one, otherwise exposure seeded from recentArchetypes.
func (s *Service) engine(ctx context.Context, st *runstate.RunState) *diversity.Engine {
	eng := diversity.NewEngine(s.diversity, s.logger)
	mem, ok, err := s.runs.LoadMemory(ctx, st.ID)
	if err != nil {
		s.logger.Warn("diversity memory unavailable", "run", st.ID, "error", err)
	}
	if ok && eng.Restore(mem) {
		return eng
	}
	eng.Seed(st.RecentArchetypes)
	return eng
}
