package difficulty

import (
	"context"
	"sync"
	"time"
)

// EventKind classifies an analytics event.
type EventKind string

const (
	EventPromotion   EventKind = "promotion"
	EventDemotion    EventKind = "demotion"
	EventDecay       EventKind = "decay"
	EventRemediation EventKind = "remediation"
)

// Transition records a single level change of one subtopic.
type Transition struct {
	SubtopicID string
	From       Level
	To         Level
	Trigger    string // "streak" or "consecutive-failures"
}

// Event is one analytics record. Detail carries the kind-specific number:
// the streak for promotions and decays, the failure run for demotions and
// the injected entry count for remediation.
type Event struct {
	RunID      string
	Kind       EventKind
	SubtopicID string
	From       Level
	To         Level
	Detail     int
	At         time.Time
}

// Recorder receives analytics events. Implementations may fail; callers
// log the failure and carry on.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Counter is an in-memory Recorder keeping per-kind totals.
type Counter struct {
	mu     sync.Mutex
	counts map[EventKind]int
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[EventKind]int)}
}

func (c *Counter) Record(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ev.Kind]++
	return nil
}

// Count returns the number of events recorded for kind.
func (c *Counter) Count(kind EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Counts returns a copy of all totals.
func (c *Counter) Counts() map[EventKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[EventKind]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Recorders fans one event out to several recorders. Every recorder is
// called; the first error is returned.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, ev Event) error {
	var first error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
