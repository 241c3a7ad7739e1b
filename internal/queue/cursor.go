package queue

import "github.com/abhisek/cadence/internal/curriculum"

// Cursor is the queue position of a run: the ordered practice targets,
// the index of the one being served, and whether the initial
// mini-curriculum has been worked through.
type Cursor struct {
	Queue                  []curriculum.Node `json:"queue"`
	CurrentIndex           int               `json:"currentIndex"`
	MiniCurriculumComplete bool              `json:"miniCurriculumComplete"`
}

// Current returns the entry at CurrentIndex. ok is false when the cursor
// is out of range, which only happens before Normalize.
func (c *Cursor) Current() (curriculum.Node, bool) {
	if c.CurrentIndex < 0 || c.CurrentIndex >= len(c.Queue) {
		return curriculum.Node{}, false
	}
	return c.Queue[c.CurrentIndex], true
}

// Upcoming returns up to n entries after the current one.
func (c *Cursor) Upcoming(n int) []curriculum.Node {
	start := c.CurrentIndex + 1
	if start < 0 || start >= len(c.Queue) || n <= 0 {
		return nil
	}
	end := min(start+n, len(c.Queue))
	out := make([]curriculum.Node, end-start)
	copy(out, c.Queue[start:end])
	return out
}

// Remaining returns the number of entries after the current one.
func (c *Cursor) Remaining() int {
	return max(len(c.Queue)-c.CurrentIndex-1, 0)
}

// Normalize restores 0 <= CurrentIndex < len(Queue). An empty queue is
// replaced by a single fallback entry. It reports whether anything changed.
func (c *Cursor) Normalize(fallback curriculum.Node) bool {
	changed := false
	if len(c.Queue) == 0 {
		c.Queue = []curriculum.Node{fallback}
		changed = true
	}
	if c.CurrentIndex < 0 {
		c.CurrentIndex = 0
		changed = true
	}
	if c.CurrentIndex >= len(c.Queue) {
		c.CurrentIndex = len(c.Queue) - 1
		changed = true
	}
	return changed
}
