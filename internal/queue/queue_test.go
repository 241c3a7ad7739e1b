package queue

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/mastery"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func smallCatalog(t *testing.T, ids ...string) *curriculum.Catalog {
	t.Helper()
	var subs []curriculum.Subtopic
	for _, id := range ids {
		subs = append(subs, curriculum.Subtopic{ID: id, Name: id, Archetypes: []string{"iterate-" + id}})
	}
	c, err := curriculum.New([]curriculum.Module{{ID: "m", Name: "M", Subtopics: subs}})
	require.NoError(t, err)
	return c
}

func nodes(ids ...string) []curriculum.Node {
	out := make([]curriculum.Node, len(ids))
	for i, id := range ids {
		out[i] = curriculum.Node{ModuleID: "m", ModuleName: "M", SubtopicID: id, SubtopicName: id}
	}
	return out
}

func subtopics(q []curriculum.Node) []string {
	out := make([]string, len(q))
	for i, n := range q {
		out[i] = n.SubtopicID
	}
	return out
}

func TestGenerateInitialQueue_StringManipulation(t *testing.T) {
	g := NewGenerator(curriculum.Default(), Config{}, seeded(1), nil)

	q := g.GenerateInitialQueue(12)
	require.Len(t, q, 12)
	for _, n := range q {
		assert.Equal(t, "string-manipulation", n.ModuleID)
		assert.Equal(t, "String Manipulation", n.ModuleName)
	}
	assert.Equal(t, []string{
		"string-basics", "string-operations", "string-indexing", "string-slicing",
		"string-concatenation", "string-case", "string-search", "string-formatting",
		"string-palindromes", "string-anagrams", "string-splitting", "string-counting",
	}, subtopics(q))
}

func TestGenerateInitialQueue_SizeLargerThanModule(t *testing.T) {
	g := NewGenerator(curriculum.Default(), Config{}, seeded(1), nil)
	q := g.GenerateInitialQueue(100)
	assert.Len(t, q, len(curriculum.Default().ModuleNodes(curriculum.FocusModuleID)))

	assert.Len(t, g.GenerateInitialQueue(0), len(q), "zero size means the whole module")
}

func TestGenerateInitialQueue_UnknownFocusUsesCatalog(t *testing.T) {
	c := smallCatalog(t, "loops", "slice-basics")
	g := NewGenerator(c, Config{FocusModule: "nope"}, seeded(1), nil)
	assert.Equal(t, []string{"slice-basics", "loops"}, subtopics(g.GenerateInitialQueue(10)))
}

func TestGenerateQueues_EmptyCatalog(t *testing.T) {
	c, err := curriculum.New(nil)
	require.NoError(t, err)
	g := NewGenerator(c, Config{}, seeded(1), nil)

	assert.Equal(t, []curriculum.Node{curriculum.DefaultNode}, g.GenerateInitialQueue(12))
	assert.Equal(t, []curriculum.Node{curriculum.DefaultNode}, g.GenerateWeaknessQueue(nil))
}

func TestGenerateWeaknessQueue_AscendingMastery(t *testing.T) {
	now := time.Now()
	stats := mastery.Stats{}
	stats.Record("string-basics", mastery.ResultCorrect, now) // 100
	stats.Record("string-case", mastery.ResultCorrect, now)
	stats.Record("string-case", mastery.ResultIncorrect, now) // 50
	stats.Record("loops", mastery.ResultIncorrect, now)       // 0 with attempts

	g := NewGenerator(curriculum.Default(), Config{}, seeded(7), nil)
	q := g.GenerateWeaknessQueue(stats)
	require.Len(t, q, curriculum.Default().Len())

	for i := 1; i < len(q); i++ {
		assert.LessOrEqual(t, stats.Percent(q[i-1].SubtopicID), stats.Percent(q[i].SubtopicID),
			"entry %d out of order", i)
	}
	assert.Equal(t, "string-basics", q[len(q)-1].SubtopicID)
	assert.Equal(t, "string-case", q[len(q)-2].SubtopicID)
}

func TestGenerateWeaknessQueue_ShufflesWithinTier(t *testing.T) {
	orders := make(map[string]bool)
	for seed := range uint64(10) {
		g := NewGenerator(curriculum.Default(), Config{}, seeded(seed), nil)
		q := g.GenerateWeaknessQueue(nil)
		key := ""
		for _, id := range subtopics(q) {
			key += id + ","
		}
		orders[key] = true
	}
	assert.Greater(t, len(orders), 2, "equal-score tier should not keep a fixed order")
}

func TestGenerateWeaknessQueue_Deterministic(t *testing.T) {
	a := NewGenerator(curriculum.Default(), Config{}, seeded(42), nil).GenerateWeaknessQueue(nil)
	b := NewGenerator(curriculum.Default(), Config{}, seeded(42), nil).GenerateWeaknessQueue(nil)
	assert.Equal(t, a, b)
}

func TestGenerateWeaknessQueue_Window(t *testing.T) {
	g := NewGenerator(curriculum.Default(), Config{Window: 5}, seeded(1), nil)
	assert.Len(t, g.GenerateWeaknessQueue(nil), 5)
}

func TestAdvance(t *testing.T) {
	g := NewGenerator(smallCatalog(t, "a", "b", "c"), Config{}, seeded(1), nil)
	c := &Cursor{Queue: nodes("a", "b", "c")}

	assert.False(t, g.Advance(c, nil))
	assert.Equal(t, 1, c.CurrentIndex)
	assert.False(t, c.MiniCurriculumComplete)

	assert.False(t, g.Advance(c, nil))
	assert.True(t, g.Advance(c, nil), "advancing past the end regenerates")
	assert.Equal(t, 0, c.CurrentIndex)
	assert.True(t, c.MiniCurriculumComplete)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, subtopics(c.Queue))
	assert.NotEqual(t, "c", c.Queue[0].SubtopicID, "regenerated head must not repeat the last served subtopic")
}

func TestAdvance_SwapsBackToBack(t *testing.T) {
	g := NewGenerator(smallCatalog(t, "a", "b"), Config{}, seeded(1), nil)
	c := &Cursor{Queue: nodes("a", "a", "a", "b", "a")}

	g.Advance(c, nil)
	assert.Equal(t, 1, c.CurrentIndex)
	assert.Equal(t, []string{"a", "b", "a", "a", "a"}, subtopics(c.Queue))
}

func TestAdvance_NoAlternativeKeepsRepeat(t *testing.T) {
	g := NewGenerator(smallCatalog(t, "a", "b"), Config{}, seeded(1), nil)
	c := &Cursor{Queue: nodes("b", "a", "a")}
	c.CurrentIndex = 1

	g.Advance(c, nil)
	assert.Equal(t, []string{"b", "a", "a"}, subtopics(c.Queue))
	assert.Equal(t, 2, c.CurrentIndex)
}

func TestAdvance_AcrossRegeneration(t *testing.T) {
	stats := mastery.Stats{}
	stats.Record("b", mastery.ResultCorrect, time.Now()) // a stays weakest, so it leads
	g := NewGenerator(smallCatalog(t, "a", "b"), Config{}, seeded(1), nil)
	c := &Cursor{Queue: nodes("a")}

	assert.True(t, g.Advance(c, stats))
	assert.Equal(t, []string{"b", "a"}, subtopics(c.Queue))
}

func TestAdvance_NeverBackToBack(t *testing.T) {
	cat := smallCatalog(t, "a", "b", "c")
	g := NewGenerator(cat, Config{}, seeded(3), nil)
	rng := seeded(99)
	ids := []string{"a", "b", "c"}

	for range 200 {
		var q []string
		for range 1 + rng.IntN(6) {
			q = append(q, ids[rng.IntN(2)])
		}
		c := &Cursor{Queue: nodes(q...), CurrentIndex: rng.IntN(len(q))}
		prev := c.Queue[c.CurrentIndex].SubtopicID
		later := slices.Clone(c.Queue[c.CurrentIndex+1:])

		g.Advance(c, nil)
		cur := c.Queue[c.CurrentIndex].SubtopicID

		alternative := slices.ContainsFunc(later, func(n curriculum.Node) bool { return n.SubtopicID != prev })
		if len(later) == 0 {
			alternative = true // regeneration covers every subtopic
		}
		if alternative {
			assert.NotEqual(t, prev, cur, "queue %v", q)
		}
	}
}

func TestAdvance_EmptyCursorNormalized(t *testing.T) {
	g := NewGenerator(smallCatalog(t, "a", "b"), Config{}, seeded(1), nil)
	c := &Cursor{}

	g.Advance(c, nil)
	require.NotEmpty(t, c.Queue)
	assert.GreaterOrEqual(t, c.CurrentIndex, 0)
	assert.Less(t, c.CurrentIndex, len(c.Queue))
}

func TestCursor(t *testing.T) {
	c := &Cursor{Queue: nodes("a", "b", "c", "d"), CurrentIndex: 1}

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.SubtopicID)
	assert.Equal(t, []string{"c", "d"}, subtopics(c.Upcoming(5)))
	assert.Equal(t, []string{"c"}, subtopics(c.Upcoming(1)))
	assert.Equal(t, 2, c.Remaining())

	c.CurrentIndex = 9
	_, ok = c.Current()
	assert.False(t, ok)
	assert.True(t, c.Normalize(curriculum.DefaultNode))
	assert.Equal(t, 3, c.CurrentIndex)
	assert.False(t, c.Normalize(curriculum.DefaultNode))
}
