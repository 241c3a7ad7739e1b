package mastery

import (
	"fmt"
	"math"
	"time"
)

// Result is the outcome of one attempt at a question.
type Result string

const (
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
	ResultPartial   Result = "partial"
)

// ParseResult converts a string to a Result.
func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case ResultCorrect, ResultIncorrect, ResultPartial:
		return r, nil
	}
	return "", fmt.Errorf("unknown result %q (want correct, incorrect or partial)", s)
}

// SubtopicStats holds the attempt counters for one subtopic. Counters only
// grow; they are cleared by an explicit user reset, never by scheduling.
type SubtopicStats struct {
	Attempts            int   `json:"attempts"`
	Solved              int   `json:"solved"`
	LastAttemptAt       int64 `json:"lastAttemptAt"` // unix millis, 0 if never
	ConsecutiveFailures int   `json:"consecutiveFailures"`
}

// Record applies one attempt. A partial answer counts as an attempt but
// neither solves the subtopic nor extends the failure run.
func (s *SubtopicStats) Record(r Result, now time.Time) {
	s.Attempts++
	s.LastAttemptAt = now.UnixMilli()
	switch r {
	case ResultCorrect:
		s.Solved++
		s.ConsecutiveFailures = 0
	case ResultIncorrect:
		s.ConsecutiveFailures++
	}
}

// Percent returns round(solved/attempts*100), or 0 with no attempts.
func (s SubtopicStats) Percent() int {
	if s.Attempts == 0 {
		return 0
	}
	return int(math.Round(float64(s.Solved) / float64(s.Attempts) * 100))
}

// Accuracy returns the solved ratio in [0, 1].
func (s SubtopicStats) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0.0
	}
	return float64(s.Solved) / float64(s.Attempts)
}

// Stats maps subtopic ID to its counters.
type Stats map[string]SubtopicStats

// Get returns the counters for a subtopic; zero value if never attempted.
func (s Stats) Get(subtopicID string) SubtopicStats {
	return s[subtopicID]
}

// Percent returns the mastery percent of a subtopic.
func (s Stats) Percent(subtopicID string) int {
	return s[subtopicID].Percent()
}

// Record applies one attempt to a subtopic and returns the updated counters.
func (s Stats) Record(subtopicID string, r Result, now time.Time) SubtopicStats {
	st := s[subtopicID]
	st.Record(r, now)
	s[subtopicID] = st
	return st
}

// ClearFailures zeroes the consecutive failure counter of a subtopic.
func (s Stats) ClearFailures(subtopicID string) {
	st, ok := s[subtopicID]
	if !ok {
		return
	}
	st.ConsecutiveFailures = 0
	s[subtopicID] = st
}

// Reset removes the counters for one subtopic, or for all subtopics when
// subtopicID is empty. Only explicit user action should call this.
func (s Stats) Reset(subtopicID string) {
	if subtopicID == "" {
		clear(s)
		return
	}
	delete(s, subtopicID)
}
