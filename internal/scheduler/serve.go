package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/diversity"
)

// Request asks a ContentGenerator for one question.
type Request struct {
	Node       curriculum.Node
	Difficulty difficulty.Level
	Avoid      diversity.AvoidList

	// Preferred archetypes, least served first.
	Preferred []string

	// Attempt is the number of candidates already rejected for this slot.
	Attempt int
}

// ContentGenerator produces question content. It lives outside the core;
// the core only screens and records what it returns.
type ContentGenerator interface {
	Generate(ctx context.Context, req Request) (diversity.Question, error)
}

// Served is a question accepted for the learner.
type Served struct {
	Target      Target
	Question    diversity.Question
	Fingerprint diversity.Fingerprint
	Verdict     diversity.Verdict

	// Attempts is the number of candidates generated, including the
	// accepted one.
	Attempts int
}

// Serve obtains the next question from gen, regenerating candidates that
// are too similar to recent history. Regeneration is bounded; the last
// candidate is accepted regardless. The accepted fingerprint is recorded
// and the run and its diversity memory are persisted.
func (s *Service) Serve(ctx context.Context, runID string, gen ContentGenerator) (*Served, error) {
	st, err := s.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	eng := s.engine(ctx, st)
	target := s.target(st, eng)
	node := target.Node
	req := Request{
		Node:       node,
		Difficulty: target.Difficulty,
		Avoid:      target.Avoid,
		Preferred:  target.Archetypes,
	}

	var (
		q  diversity.Question
		fp diversity.Fingerprint
		v  diversity.Verdict
	)
	for {
		q, err = gen.Generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("generate question: %w", err)
		}
		if q.ModuleID == "" {
			q.ModuleID = node.ModuleID
		}
		if q.SubtopicID == "" {
			q.SubtopicID = node.SubtopicID
		}
		if q.Difficulty == "" {
			q.Difficulty = target.Difficulty
		}
		fp = diversity.NewFingerprint(q, q.ArchetypeID, s.runs.Now())
		v = eng.Check(fp, req.Attempt)
		if !v.Regenerate {
			break
		}
		s.logger.Debug("candidate too similar, regenerating",
			"run", st.ID, "archetype", fp.ArchetypeID, "score", v.Score, "attempt", req.Attempt)
		req.Attempt++
		if !req.Avoid.HasArchetype(fp.ArchetypeID) {
			req.Avoid.Archetypes = append(slices.Clone(req.Avoid.Archetypes), fp.ArchetypeID)
		}
	}

	eng.Record(fp)
	st.PushArchetype(fp.ArchetypeID)
	if err := s.runs.Save(ctx, st); err != nil {
		return nil, err
	}
	if err := s.runs.SaveMemory(ctx, st.ID, eng.Snapshot()); err != nil {
		// Diversity memory is disposable; losing it only weakens screening.
		s.logger.Warn("failed to save diversity memory", "run", st.ID, "error", err)
	}

	return &Served{
		Target:      target,
		Question:    q,
		Fingerprint: fp,
		Verdict:     v,
		Attempts:    req.Attempt + 1,
	}, nil
}

// CatalogGenerator is a deterministic ContentGenerator that names an
// archetype from the catalog instead of writing question text. It honors
// the avoid list when any preferred archetype is still allowed.
type CatalogGenerator struct {
	Catalog *curriculum.Catalog
}

// Generate implements ContentGenerator.
func (g CatalogGenerator) Generate(_ context.Context, req Request) (diversity.Question, error) {
	candidates := req.Preferred
	if len(candidates) == 0 {
		candidates = g.Catalog.Archetypes(req.Node.SubtopicID)
	}
	if len(candidates) == 0 {
		candidates = []string{req.Node.SubtopicID}
	}

	archetype := candidates[req.Attempt%len(candidates)]
	for _, a := range candidates {
		if !req.Avoid.HasArchetype(a) {
			archetype = a
			break
		}
	}

	return diversity.Question{
		ModuleID:    req.Node.ModuleID,
		SubtopicID:  req.Node.SubtopicID,
		ArchetypeID: archetype,
		Difficulty:  req.Difficulty,
		Text:        fmt.Sprintf("%s (%s): %s", req.Node.SubtopicName, req.Difficulty, humanize(archetype)),
	}, nil
}

func humanize(id string) string {
	s := strings.ReplaceAll(id, "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
