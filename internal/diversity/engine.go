package diversity

import (
	"log/slog"
	"slices"
	"sync"
)

// Config controls the diversity memory and the regeneration policy.
type Config struct {
	// HistorySize is the number of recent fingerprints kept for
	// similarity checks. Oldest entries are pruned first.
	HistorySize int

	// AvoidWindow is how many of the most recent fingerprints feed the
	// avoid list handed to the content generator.
	AvoidWindow int

	// ExposureCapacity bounds the number of distinct archetypes with an
	// exposure counter. The least recently served archetype is evicted.
	ExposureCapacity int

	// Threshold is the similarity above which a candidate is regenerated.
	Threshold float64

	// RelaxStep raises the threshold for each regeneration already made.
	RelaxStep float64

	// MaxRegenerations bounds regeneration; after this many rejected
	// candidates the next one is accepted regardless.
	MaxRegenerations int
}

// DefaultConfig returns the standard diversity settings.
func DefaultConfig() Config {
	return Config{
		HistorySize:      20,
		AvoidWindow:      8,
		ExposureCapacity: 200,
		Threshold:        0.85,
		RelaxStep:        0.05,
		MaxRegenerations: 3,
	}
}

// AvoidList is the set of archetypes and tags a new question should not
// repeat. An empty list imposes no constraint.
type AvoidList struct {
	Archetypes []string       `json:"archetypes"`
	Tags       []OperationTag `json:"operationTags"`
}

// Empty reports whether the list constrains nothing.
func (a AvoidList) Empty() bool {
	return len(a.Archetypes) == 0 && len(a.Tags) == 0
}

// HasArchetype reports whether id is on the list.
func (a AvoidList) HasArchetype(id string) bool {
	return slices.Contains(a.Archetypes, id)
}

// Filter narrows an avoid list to one module and/or subtopic. Empty
// fields match everything.
type Filter struct {
	ModuleID   string
	SubtopicID string
}

func (f Filter) match(fp Fingerprint) bool {
	if f.ModuleID != "" && fp.ModuleID != f.ModuleID {
		return false
	}
	if f.SubtopicID != "" && fp.SubtopicID != f.SubtopicID {
		return false
	}
	return true
}

// Verdict is the outcome of screening one candidate.
type Verdict struct {
	Regenerate bool
	// Score is the highest similarity against recent history.
	Score float64
	// Closest is the archetype of the most similar recent fingerprint.
	Closest string
	// Threshold is the effective threshold for this attempt.
	Threshold float64
	// Exhausted is set when the candidate was too similar but accepted
	// because the regeneration budget ran out.
	Exhausted bool
}

// Engine owns the recent-fingerprint history and exposure counters. It is
// a diversity memory, not an audit log: Reset loses nothing else.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	logger   *slog.Logger
	history  []Fingerprint
	exposure map[string]int
	order    []string // archetypes, least recently served first
}

// NewEngine creates an Engine with empty memory. Zero sizes, threshold and
// regeneration budget fall back to DefaultConfig values; a zero RelaxStep
// keeps the threshold fixed.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.AvoidWindow <= 0 {
		cfg.AvoidWindow = def.AvoidWindow
	}
	if cfg.ExposureCapacity <= 0 {
		cfg.ExposureCapacity = def.ExposureCapacity
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MaxRegenerations <= 0 {
		cfg.MaxRegenerations = def.MaxRegenerations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		exposure: make(map[string]int),
	}
}

// Config returns the engine settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// threshold returns the effective threshold after `regenerations`
// rejected candidates.
func (e *Engine) threshold(regenerations int) float64 {
	t := e.cfg.Threshold + e.cfg.RelaxStep*float64(regenerations)
	if t > 1 {
		return 1
	}
	return t
}

// Check screens a candidate. attempt is the number of candidates already
// rejected for this slot (0 for the first candidate).
func (e *Engine) Check(candidate Fingerprint, attempt int) Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := Verdict{Threshold: e.threshold(attempt)}
	for _, fp := range e.history {
		if s := Similarity(candidate, fp); s > v.Score {
			v.Score = s
			v.Closest = fp.ArchetypeID
		}
	}

	if attempt >= e.cfg.MaxRegenerations {
		// The relaxed threshold may have reached 1; exhaustion is judged
		// against the base threshold.
		if v.Score <= e.cfg.Threshold {
			return v
		}
		v.Exhausted = true
		e.logger.Warn("diversity exhausted, accepting similar candidate",
			"archetype", candidate.ArchetypeID,
			"closest", v.Closest,
			"score", v.Score,
			"attempt", attempt)
		return v
	}
	v.Regenerate = v.Score > v.Threshold
	return v
}

// ShouldRegenerate reports whether candidate is too similar to recent
// history. It is always false once attempt reaches MaxRegenerations.
func (e *Engine) ShouldRegenerate(candidate Fingerprint, attempt int) bool {
	return e.Check(candidate, attempt).Regenerate
}

// Record adds a served fingerprint to history and bumps its archetype's
// exposure count.
func (e *Engine) Record(fp Fingerprint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fp.Tags = sortTags(fp.Tags)
	e.history = append(e.history, fp)
	if over := len(e.history) - e.cfg.HistorySize; over > 0 {
		e.history = slices.Delete(e.history, 0, over)
	}
	if fp.ArchetypeID != "" {
		e.touch(fp.ArchetypeID, 1)
	}
}

// touch adds n to an archetype's exposure and marks it most recent,
// evicting the least recent archetype when over capacity.
func (e *Engine) touch(archetype string, n int) {
	if i := slices.Index(e.order, archetype); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}
	e.order = append(e.order, archetype)
	e.exposure[archetype] += n

	for len(e.order) > e.cfg.ExposureCapacity {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.exposure, oldest)
	}
}

// Seed rebuilds exposure counts from a list of recently served archetypes
// (oldest first) without fingerprint history.
func (e *Engine) Seed(archetypes []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range archetypes {
		if a != "" {
			e.touch(a, 1)
		}
	}
}

// AvoidList returns the archetypes and tags of the most recent
// fingerprints matching f.
func (e *Engine) AvoidList(f Filter) AvoidList {
	e.mu.Lock()
	defer e.mu.Unlock()

	var list AvoidList
	seenArch := make(map[string]bool)
	var tags []OperationTag

	matched := 0
	for i := len(e.history) - 1; i >= 0 && matched < e.cfg.AvoidWindow; i-- {
		fp := e.history[i]
		if !f.match(fp) {
			continue
		}
		matched++
		if fp.ArchetypeID != "" && !seenArch[fp.ArchetypeID] {
			seenArch[fp.ArchetypeID] = true
			list.Archetypes = append(list.Archetypes, fp.ArchetypeID)
		}
		tags = append(tags, fp.Tags...)
	}
	if len(tags) > 0 {
		list.Tags = sortTags(tags)
	}
	return list
}

// Exposure returns how often an archetype has been served.
func (e *Engine) Exposure(archetype string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exposure[archetype]
}

// LeastUsedArchetypes orders available by ascending exposure, keeping the
// given (catalog) order among equals, and returns the first count.
func (e *Engine) LeastUsedArchetypes(available []string, count int) []string {
	if count <= 0 || len(available) == 0 {
		return nil
	}
	e.mu.Lock()
	counts := make(map[string]int, len(available))
	for _, a := range available {
		counts[a] = e.exposure[a]
	}
	e.mu.Unlock()

	sorted := slices.Clone(available)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return counts[a] - counts[b]
	})
	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}

// History returns a copy of the recent fingerprints, oldest first.
func (e *Engine) History() []Fingerprint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// Reset clears all diversity memory.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.order = nil
	clear(e.exposure)
}
