package queue

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/mastery"
)

// DefaultWindow caps the length of a weakness queue.
const DefaultWindow = 50

// foundationalKeywords put a subtopic at the front of the mini-curriculum
// when its name or ID contains one of them.
var foundationalKeywords = []string{"basic", "operation", "index", "slic"}

// Config holds the generator settings.
type Config struct {
	// FocusModule is the module the mini-curriculum is drawn from.
	FocusModule string

	// Window caps weakness queues. Zero means DefaultWindow.
	Window int
}

// Generator builds practice queues from a catalog.
type Generator struct {
	catalog *curriculum.Catalog
	cfg     Config
	logger  *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewGenerator creates a Generator. A nil rng is replaced by a randomly
// seeded one; tests pass a seeded source for reproducible shuffles.
func NewGenerator(catalog *curriculum.Catalog, cfg Config, rng *rand.Rand, logger *slog.Logger) *Generator {
	if cfg.FocusModule == "" {
		cfg.FocusModule = curriculum.FocusModuleID
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{catalog: catalog, cfg: cfg, rng: rng, logger: logger}
}

// Catalog returns the catalog queues are drawn from.
func (g *Generator) Catalog() *curriculum.Catalog {
	return g.catalog
}

// GenerateInitialQueue returns the mini-curriculum: one entry per subtopic
// of the focus module, foundational subtopics first (ties keep catalog
// order), truncated to size. It never returns an empty queue.
func (g *Generator) GenerateInitialQueue(size int) []curriculum.Node {
	nodes := g.catalog.ModuleNodes(g.cfg.FocusModule)
	if len(nodes) == 0 {
		g.logger.Warn("focus module not in catalog, using whole catalog",
			"module", g.cfg.FocusModule)
		nodes = g.catalog.Nodes()
	}
	if len(nodes) == 0 {
		return []curriculum.Node{g.catalog.Fallback()}
	}

	slices.SortStableFunc(nodes, func(a, b curriculum.Node) int {
		return foundationalRank(a) - foundationalRank(b)
	})
	if size > 0 && size < len(nodes) {
		nodes = nodes[:size]
	}
	return nodes
}

func foundationalRank(n curriculum.Node) int {
	name := strings.ToLower(n.SubtopicName + " " + n.SubtopicID)
	for _, kw := range foundationalKeywords {
		if strings.Contains(name, kw) {
			return 0
		}
	}
	return 1
}

// GenerateWeaknessQueue orders every catalog subtopic by ascending mastery
// percent. Subtopics sharing a score are shuffled within their tier. The
// result is capped at the configured window and is never empty.
func (g *Generator) GenerateWeaknessQueue(stats mastery.Stats) []curriculum.Node {
	nodes := g.catalog.Nodes()
	if len(nodes) == 0 {
		return []curriculum.Node{g.catalog.Fallback()}
	}

	tiers := make(map[int][]curriculum.Node)
	for _, n := range nodes {
		p := stats.Percent(n.SubtopicID)
		tiers[p] = append(tiers[p], n)
	}
	scores := make([]int, 0, len(tiers))
	for p := range tiers {
		scores = append(scores, p)
	}
	slices.Sort(scores)

	g.mu.Lock()
	out := make([]curriculum.Node, 0, len(nodes))
	for _, p := range scores {
		tier := tiers[p]
		g.rng.Shuffle(len(tier), func(i, j int) {
			tier[i], tier[j] = tier[j], tier[i]
		})
		out = append(out, tier...)
	}
	g.mu.Unlock()

	if len(out) > g.cfg.Window {
		out = out[:g.cfg.Window]
	}
	return out
}

// Advance moves the cursor to the next entry. When the queue is exhausted
// it marks the mini-curriculum complete and replaces the queue with a
// weakness queue, reporting true. The new current entry never repeats the
// previously served subtopic when a later entry differs.
func (g *Generator) Advance(c *Cursor, stats mastery.Stats) bool {
	c.Normalize(g.catalog.Fallback())
	prev := c.Queue[c.CurrentIndex].SubtopicID

	regenerated := false
	c.CurrentIndex++
	if c.CurrentIndex >= len(c.Queue) {
		c.MiniCurriculumComplete = true
		c.Queue = g.GenerateWeaknessQueue(stats)
		c.CurrentIndex = 0
		regenerated = true
	}
	avoidRepeat(c, prev)
	return regenerated
}

// avoidRepeat swaps the current entry with the nearest later entry of a
// different subtopic if the current one equals prev.
func avoidRepeat(c *Cursor, prev string) {
	i := c.CurrentIndex
	if c.Queue[i].SubtopicID != prev {
		return
	}
	for j := i + 1; j < len(c.Queue); j++ {
		if c.Queue[j].SubtopicID != prev {
			c.Queue[i], c.Queue[j] = c.Queue[j], c.Queue[i]
			return
		}
	}
}
