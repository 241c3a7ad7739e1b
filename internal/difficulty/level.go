package difficulty

import "fmt"

// Level is a subtopic's position on the difficulty ladder.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Levels returns the ladder from easiest to hardest.
func Levels() []Level {
	return []Level{Beginner, Intermediate, Advanced}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown difficulty level %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the three ladder levels.
func (l Level) Valid() bool {
	return l == Beginner || l == Intermediate || l == Advanced
}

// Rank returns 0, 1 or 2 for beginner, intermediate and advanced.
// Unknown levels rank as beginner.
func (l Level) Rank() int {
	switch l {
	case Intermediate:
		return 1
	case Advanced:
		return 2
	default:
		return 0
	}
}

// LevelFromRank is the inverse of Rank, clamped to the ladder.
func LevelFromRank(r int) Level {
	switch {
	case r <= 0:
		return Beginner
	case r == 1:
		return Intermediate
	default:
		return Advanced
	}
}

// Up returns the next harder level; Advanced stays Advanced.
func (l Level) Up() Level {
	return LevelFromRank(l.Rank() + 1)
}

// Down returns the next easier level; Beginner stays Beginner.
func (l Level) Down() Level {
	return LevelFromRank(l.Rank() - 1)
}

// Pointer maps subtopic ID to its current level. A missing key is Beginner.
type Pointer map[string]Level

// Get returns the level of a subtopic.
func (p Pointer) Get(subtopicID string) Level {
	if l, ok := p[subtopicID]; ok && l.Valid() {
		return l
	}
	return Beginner
}

// Promote moves a subtopic one level up. Returns nil at Advanced.
func Promote(p Pointer, subtopicID string) *Transition {
	from := p.Get(subtopicID)
	to := from.Up()
	if to == from {
		return nil
	}
	p[subtopicID] = to
	return &Transition{SubtopicID: subtopicID, From: from, To: to}
}

// Demote moves a subtopic one level down. Returns nil at Beginner.
func Demote(p Pointer, subtopicID string) *Transition {
	from := p.Get(subtopicID)
	to := from.Down()
	if to == from {
		return nil
	}
	p[subtopicID] = to
	return &Transition{SubtopicID: subtopicID, From: from, To: to}
}
