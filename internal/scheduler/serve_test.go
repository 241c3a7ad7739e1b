package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/diversity"
	"github.com/abhisek/cadence/internal/runstate"
)

// repeatGenerator always proposes the same archetype.
type repeatGenerator struct {
	archetype string
	requests  []Request
}

func (g *repeatGenerator) Generate(_ context.Context, req Request) (diversity.Question, error) {
	g.requests = append(g.requests, req)
	return diversity.Question{ArchetypeID: g.archetype, Text: "same again"}, nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, Request) (diversity.Question, error) {
	return diversity.Question{}, errors.New("model unavailable")
}

func TestServe_RegenerationBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newRun(t, runstate.CreateOptions{}, nil)
	gen := &repeatGenerator{archetype: "string-length"}

	first, err := f.svc.Serve(ctx, id, gen)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempts)
	assert.False(t, first.Verdict.Exhausted)
	assert.Equal(t, "string-basics", first.Question.SubtopicID, "missing fields filled from the target")
	assert.Equal(t, difficulty.Beginner, first.Question.Difficulty)

	gen.requests = nil
	second, err := f.svc.Serve(ctx, id, gen)
	require.NoError(t, err)
	limit := diversity.DefaultConfig().MaxRegenerations
	assert.Equal(t, limit+1, second.Attempts)
	assert.Len(t, gen.requests, limit+1)
	assert.True(t, second.Verdict.Exhausted)
	for i, req := range gen.requests {
		assert.Equal(t, i, req.Attempt)
		assert.True(t, req.Avoid.HasArchetype("string-length"), "request %d", i)
	}

	st := f.load(t, id)
	assert.Equal(t, []string{"string-length", "string-length"}, st.RecentArchetypes)

	mem, ok, err := f.runs.LoadMemory(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, mem.History, 2)
}

func TestServe_CatalogGeneratorRotatesArchetypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newRun(t, runstate.CreateOptions{}, nil)
	gen := CatalogGenerator{Catalog: curriculum.Default()}

	var served []string
	for range 3 {
		s, err := f.svc.Serve(ctx, id, gen)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Attempts)
		served = append(served, s.Fingerprint.ArchetypeID)
	}
	assert.Equal(t, []string{"string-length", "first-and-last-char", "is-empty-check"}, served)

	target, err := f.svc.NextTarget(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, served, target.Avoid.Archetypes)
}

func TestServe_SeedsFromRecentArchetypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newRun(t, runstate.CreateOptions{}, func(st *runstate.RunState) {
		st.RecentArchetypes = []string{"string-length", "first-and-last-char"}
	})

	target, err := f.svc.NextTarget(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "is-empty-check", target.Archetypes[0], "unserved archetype leads without saved memory")

	s, err := f.svc.Serve(ctx, id, CatalogGenerator{Catalog: curriculum.Default()})
	require.NoError(t, err)
	assert.Equal(t, "is-empty-check", s.Fingerprint.ArchetypeID)
}

func TestServe_GeneratorError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newRun(t, runstate.CreateOptions{}, nil)

	_, err := f.svc.Serve(ctx, id, failingGenerator{})
	assert.ErrorContains(t, err, "model unavailable")
	assert.Empty(t, f.load(t, id).RecentArchetypes)

	_, ok, err := f.runs.LoadMemory(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogGenerator(t *testing.T) {
	gen := CatalogGenerator{Catalog: curriculum.Default()}
	node, err := curriculum.Default().Lookup("string-counting")
	require.NoError(t, err)

	q, err := gen.Generate(context.Background(), Request{Node: node, Difficulty: difficulty.Intermediate})
	require.NoError(t, err)
	assert.Equal(t, "count-vowels", q.ArchetypeID)
	assert.Equal(t, "Character Counting (intermediate): Count vowels", q.Text)

	q, err = gen.Generate(context.Background(), Request{
		Node:  node,
		Avoid: diversity.AvoidList{Archetypes: []string{"count-vowels", "char-frequency"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "most-common-char", q.ArchetypeID)

	all := diversity.AvoidList{Archetypes: []string{"count-vowels", "char-frequency", "most-common-char"}}
	q, err = gen.Generate(context.Background(), Request{Node: node, Avoid: all, Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, "char-frequency", q.ArchetypeID, "everything avoided rotates by attempt")

	q, err = gen.Generate(context.Background(), Request{Node: curriculum.Node{SubtopicID: "unlisted"}})
	require.NoError(t, err)
	assert.Equal(t, "unlisted", q.ArchetypeID)
}
