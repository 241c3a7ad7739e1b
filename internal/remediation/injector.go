// Package remediation splices extra practice entries into a queue after a
// subtopic has been failing persistently.
package remediation

import (
	"slices"

	"github.com/abhisek/cadence/internal/curriculum"
)

const (
	// DefaultCount is the number of entries injected per remediation.
	DefaultCount = 1

	// DefaultLookahead is how many upcoming entries are checked for an
	// existing occurrence of the subtopic.
	DefaultLookahead = 5
)

// Injector inserts remediation entries immediately after the current
// queue position.
type Injector struct {
	Count     int
	Lookahead int
}

// NewInjector returns an Injector; non-positive values take the defaults.
func NewInjector(count, lookahead int) Injector {
	if count <= 0 {
		count = DefaultCount
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return Injector{Count: count, Lookahead: lookahead}
}

// Inject returns queue with Count copies of node spliced in right after
// index, and the number of entries added. Nothing is added when node's
// subtopic already appears within the next Lookahead entries. The input
// slice is never modified.
func (in Injector) Inject(queue []curriculum.Node, index int, node curriculum.Node) ([]curriculum.Node, int) {
	if in.Count <= 0 || index < 0 || index >= len(queue) {
		return queue, 0
	}

	end := min(index+1+in.Lookahead, len(queue))
	for _, n := range queue[index+1 : end] {
		if n.SubtopicID == node.SubtopicID {
			return queue, 0
		}
	}

	extra := make([]curriculum.Node, in.Count)
	for i := range extra {
		extra[i] = node
	}
	return slices.Insert(slices.Clone(queue), index+1, extra...), in.Count
}
