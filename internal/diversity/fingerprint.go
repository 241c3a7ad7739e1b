package diversity

import (
	"slices"
	"time"

	"github.com/abhisek/cadence/internal/difficulty"
)

// Question is a served or freshly generated practice question, as far as
// diversity screening is concerned.
type Question struct {
	ModuleID    string
	SubtopicID  string
	ArchetypeID string
	Difficulty  difficulty.Level
	Text        string
}

// Fingerprint is a compact, disposable signature of a question used only
// for similarity comparison.
type Fingerprint struct {
	ModuleID    string           `json:"module"`
	SubtopicID  string           `json:"subtopic"`
	ArchetypeID string           `json:"archetypeId"`
	Tags        []OperationTag   `json:"operationTags"`
	Difficulty  difficulty.Level `json:"difficulty"`
	Timestamp   int64            `json:"timestamp"` // unix millis
}

// NewFingerprint derives a fingerprint from q. A non-empty archetypeID
// overrides q.ArchetypeID. Tags are inferred from the archetype.
func NewFingerprint(q Question, archetypeID string, now time.Time) Fingerprint {
	if archetypeID == "" {
		archetypeID = q.ArchetypeID
	}
	return Fingerprint{
		ModuleID:    q.ModuleID,
		SubtopicID:  q.SubtopicID,
		ArchetypeID: archetypeID,
		Tags:        InferTags(archetypeID),
		Difficulty:  q.Difficulty,
		Timestamp:   now.UnixMilli(),
	}
}

// Similarity weights in percent; they sum to 100 so identical
// fingerprints score exactly 1.0.
const (
	weightArchetype  = 45
	weightSubtopic   = 15
	weightModule     = 10
	weightTags       = 20
	weightDifficulty = 10
)

// Similarity scores two fingerprints in [0, 1]. Archetype identity carries
// the largest weight, then tag overlap (Jaccard), subtopic, module and
// difficulty. Timestamps are ignored.
func Similarity(a, b Fingerprint) float64 {
	var fixed int
	if a.ArchetypeID == b.ArchetypeID {
		fixed += weightArchetype
	}
	if a.SubtopicID == b.SubtopicID {
		fixed += weightSubtopic
	}
	if a.ModuleID == b.ModuleID {
		fixed += weightModule
	}
	if a.Difficulty == b.Difficulty {
		fixed += weightDifficulty
	}
	return (float64(fixed) + weightTags*Jaccard(a.Tags, b.Tags)) / 100
}

// Jaccard returns |a ∩ b| / |a ∪ b| over tag sets. Two empty sets are
// identical and score 1.
func Jaccard(a, b []OperationTag) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[OperationTag]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seenB := make(map[OperationTag]bool, len(b))
	for _, t := range b {
		if seenB[t] {
			continue
		}
		seenB[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if inter == union {
		return 1
	}
	return float64(inter) / float64(union)
}

// sortTags orders tags by vocabulary position and drops duplicates.
func sortTags(tags []OperationTag) []OperationTag {
	out := slices.Clone(tags)
	slices.SortFunc(out, func(a, b OperationTag) int {
		return tagIndex[a] - tagIndex[b]
	})
	return slices.Compact(out)
}
