package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
)

// ErrUnsupportedVersion is returned for documents written by a newer schema.
var ErrUnsupportedVersion = errors.New("unsupported schema version")

// legacyLevels maps the numeric difficulty encoding of version 1.
var legacyLevels = map[int]difficulty.Level{
	0: difficulty.Beginner,
	1: difficulty.Intermediate,
	2: difficulty.Advanced,
}

// Migrate decodes a stored run of any known shape into the current schema.
// changed reports whether the result differs from what was stored and
// should be written back. Migrating a current document is a no-op.
func Migrate(raw []byte, catalog *curriculum.Catalog) (*RunState, bool, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("decode run: %w", err)
	}
	if doc == nil {
		return nil, false, errors.New("decode run: not an object")
	}

	version := 1
	if v, ok := doc["schemaVersion"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, false, fmt.Errorf("decode schemaVersion: %w", err)
		}
	}
	if version > SchemaVersion {
		return nil, false, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	changed := false
	if version < SchemaVersion {
		if err := upgradeV1(doc, catalog); err != nil {
			return nil, false, fmt.Errorf("migrate v%d: %w", version, err)
		}
		doc["schemaVersion"] = json.RawMessage(fmt.Sprint(SchemaVersion))
		changed = true
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("encode run: %w", err)
	}
	var s RunState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false, fmt.Errorf("decode run: %w", err)
	}
	if s.ID == "" {
		return nil, false, errors.New("decode run: missing id")
	}
	if !s.Status.Valid() && s.Status != "" {
		return nil, false, fmt.Errorf("decode run: unknown status %q", s.Status)
	}
	for id, l := range s.DifficultyPointer {
		if !l.Valid() {
			return nil, false, fmt.Errorf("decode run: unknown level %q for %s", l, id)
		}
	}

	if s.Cursor.Normalize(catalog.Fallback()) {
		changed = true
	}
	s.ensure(catalog.Fallback())
	return &s, changed, nil
}

// upgradeV1 rewrites version 1 shapes in place: bare-string queue entries,
// numeric difficulty levels, the old tuningConfig key and a missing
// createdAt.
func upgradeV1(doc map[string]json.RawMessage, catalog *curriculum.Catalog) error {
	if raw, ok := doc["queue"]; ok && !isNull(raw) {
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("queue: %w", err)
		}
		nodes := make([]curriculum.Node, 0, len(entries))
		for i, e := range entries {
			var id string
			if err := json.Unmarshal(e, &id); err == nil {
				nodes = append(nodes, legacyNode(id, catalog))
				continue
			}
			var n curriculum.Node
			if err := json.Unmarshal(e, &n); err != nil {
				return fmt.Errorf("queue[%d]: %w", i, err)
			}
			nodes = append(nodes, n)
		}
		if err := setJSON(doc, "queue", nodes); err != nil {
			return err
		}
	}

	if raw, ok := doc["difficultyPointer"]; ok && !isNull(raw) {
		var levels map[string]json.RawMessage
		if err := json.Unmarshal(raw, &levels); err != nil {
			return fmt.Errorf("difficultyPointer: %w", err)
		}
		p := make(difficulty.Pointer, len(levels))
		for id, v := range levels {
			var n int
			if err := json.Unmarshal(v, &n); err == nil {
				if l, ok := legacyLevels[n]; ok {
					p[id] = l
				}
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("difficultyPointer[%s]: %w", id, err)
			}
			if l, err := difficulty.ParseLevel(s); err == nil {
				p[id] = l
			}
		}
		if err := setJSON(doc, "difficultyPointer", p); err != nil {
			return err
		}
	}

	if raw, ok := doc["tuningConfig"]; ok {
		if _, has := doc["config"]; !has && !isNull(raw) {
			doc["config"] = raw
		}
		delete(doc, "tuningConfig")
	}

	if _, ok := doc["createdAt"]; !ok {
		if v, ok := doc["lastUpdatedAt"]; ok {
			doc["createdAt"] = v
		}
	}
	return nil
}

// legacyNode resolves a bare queue entry. Entries are a subtopic ID,
// optionally prefixed by "module/" or "module:".
func legacyNode(entry string, catalog *curriculum.Catalog) curriculum.Node {
	module, id := "", entry
	if i := strings.LastIndexAny(entry, "/:"); i >= 0 {
		module, id = entry[:i], entry[i+1:]
	}
	if n, err := catalog.Lookup(id); err == nil {
		return n
	}
	return curriculum.Node{
		ModuleID:     module,
		ModuleName:   module,
		SubtopicID:   id,
		SubtopicName: id,
	}
}

// legacyFields are the scattered keys a pre-aggregate installation kept,
// one document per field.
var legacyFields = []string{
	"id", "name", "status", "createdAt", "lastUpdatedAt",
	"queue", "currentIndex", "miniCurriculumComplete",
	"streak", "difficultyPointer", "completedQuestions",
	"perSubtopicStats", "recentArchetypes",
	"aggressiveProgression", "remediationMode",
	"config", "tuningConfig",
}

// FoldLegacyKeys assembles scattered per-field documents into one version 1
// run document. Values that are not valid JSON are kept as strings.
// Unknown keys are returned so the caller can report them.
func FoldLegacyKeys(fields map[string][]byte) ([]byte, []string, error) {
	doc := make(map[string]json.RawMessage, len(fields))
	var unknown []string
	for key, val := range fields {
		if !slices.Contains(legacyFields, key) {
			unknown = append(unknown, key)
			continue
		}
		if json.Valid(val) {
			doc[key] = json.RawMessage(val)
			continue
		}
		if err := setJSON(doc, key, string(val)); err != nil {
			return nil, nil, err
		}
	}
	if len(doc) == 0 {
		return nil, unknown, errors.New("no legacy run fields")
	}
	doc["schemaVersion"] = json.RawMessage("1")
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("encode legacy run: %w", err)
	}
	return b, unknown, nil
}

func setJSON(doc map[string]json.RawMessage, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	doc[key] = b
	return nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
