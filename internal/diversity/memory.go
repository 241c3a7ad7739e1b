package diversity

import "slices"

// MemoryVersion is the current version of the persisted diversity memory.
const MemoryVersion = 1

// ExposureCount is one archetype's exposure counter.
type ExposureCount struct {
	Archetype string `json:"archetype"`
	Count     int    `json:"count"`
}

// Memory is the serializable form of an Engine's state. It is stored
// beside a run, never inside it, and may be discarded at any time.
type Memory struct {
	Version  int             `json:"version"`
	History  []Fingerprint   `json:"history"`
	Exposure []ExposureCount `json:"exposure"` // least recently served first
}

// Snapshot exports the engine's memory.
func (e *Engine) Snapshot() Memory {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := Memory{
		Version: MemoryVersion,
		History: slices.Clone(e.history),
	}
	for _, a := range e.order {
		m.Exposure = append(m.Exposure, ExposureCount{Archetype: a, Count: e.exposure[a]})
	}
	return m
}

// Restore replaces the engine's memory with m, applying the engine's
// capacity bounds. A memory of an unknown version is ignored and reported
// as false.
func (e *Engine) Restore(m Memory) bool {
	if m.Version != MemoryVersion {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = nil
	e.order = nil
	clear(e.exposure)

	for _, ec := range m.Exposure {
		if ec.Archetype == "" || ec.Count <= 0 {
			continue
		}
		e.touch(ec.Archetype, ec.Count)
	}
	history := m.History
	if over := len(history) - e.cfg.HistorySize; over > 0 {
		history = history[over:]
	}
	for _, fp := range history {
		fp.Tags = sortTags(fp.Tags)
		e.history = append(e.history, fp)
	}
	return true
}
