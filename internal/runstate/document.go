package runstate

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

// DocumentFormat identifies an exported run document.
const DocumentFormat = "cadence-run"

// ValidationError reasons.
const (
	ReasonInvalidJSON    = "invalid_json"
	ReasonBadVersion     = "bad_version"
	ReasonMissingArray   = "missing_array"
	ReasonMalformedEntry = "malformed_entry"
	ReasonSchema         = "schema"
	ReasonInvalidValue   = "invalid_value"
)

// ValidationError is returned when an import document is rejected.
type ValidationError struct {
	Reason string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid run document (%s at %s): %v", e.Reason, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid run document (%s): %v", e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Generator names the program that wrote a document.
type Generator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Document is the self-describing export format of a single run.
type Document struct {
	Format        string    `json:"format"`
	SchemaVersion int       `json:"schemaVersion"`
	ExportedAt    int64     `json:"exportedAt"`
	Generator     Generator `json:"generator"`
	Run           *RunState `json:"run"`
}

// NewDocument wraps a run for export.
func NewDocument(s *RunState, gen Generator, now time.Time) Document {
	return Document{
		Format:        DocumentFormat,
		SchemaVersion: SchemaVersion,
		ExportedAt:    now.UnixMilli(),
		Generator:     gen,
		Run:           s,
	}
}

// Marshal encodes the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// NewerMajor reports whether the document was written by a release with a
// higher major version than current. Non-semver versions never compare
// newer.
func (d Document) NewerMajor(current string) bool {
	v := d.Generator.Version
	if !semver.IsValid(v) || !semver.IsValid(current) {
		return false
	}
	return semver.Compare(semver.Major(v), semver.Major(current)) > 0
}

// ParseDocument validates data and decodes it. Every rejection is a
// *ValidationError; nothing is decoded past the first problem.
func ParseDocument(data []byte) (*Document, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &ValidationError{Reason: ReasonInvalidJSON, Err: err}
	}
	root, ok := parsed.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: ReasonInvalidJSON, Err: fmt.Errorf("document is not an object")}
	}

	if err := checkVersion(root, "schemaVersion"); err != nil {
		return nil, err
	}
	run, ok := root["run"].(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: ReasonSchema, Field: "run", Err: fmt.Errorf("missing run object")}
	}
	if err := checkVersion(run, "run.schemaVersion"); err != nil {
		return nil, err
	}
	if err := checkQueue(run); err != nil {
		return nil, err
	}

	compiled, err := documentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, &ValidationError{Reason: ReasonSchema, Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Reason: ReasonSchema, Err: err}
	}
	if doc.Run.CurrentIndex >= len(doc.Run.Queue) {
		return nil, &ValidationError{
			Reason: ReasonInvalidValue,
			Field:  "run.currentIndex",
			Err:    fmt.Errorf("index %d outside queue of %d", doc.Run.CurrentIndex, len(doc.Run.Queue)),
		}
	}
	return &doc, nil
}

func checkVersion(obj map[string]any, field string) error {
	v, ok := obj["schemaVersion"].(float64)
	if !ok {
		return &ValidationError{Reason: ReasonBadVersion, Field: field, Err: fmt.Errorf("missing or non-numeric version")}
	}
	if v != SchemaVersion {
		return &ValidationError{Reason: ReasonBadVersion, Field: field, Err: fmt.Errorf("version %v, want %d", v, SchemaVersion)}
	}
	return nil
}

func checkQueue(run map[string]any) error {
	entries, ok := run["queue"].([]any)
	if !ok || len(entries) == 0 {
		return &ValidationError{Reason: ReasonMissingArray, Field: "run.queue", Err: fmt.Errorf("queue must be a non-empty array")}
	}
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return &ValidationError{Reason: ReasonMalformedEntry, Field: fmt.Sprintf("run.queue[%d]", i), Err: fmt.Errorf("entry is not an object")}
		}
		if id, _ := m["subtopicId"].(string); id == "" {
			return &ValidationError{Reason: ReasonMalformedEntry, Field: fmt.Sprintf("run.queue[%d]", i), Err: fmt.Errorf("missing subtopicId")}
		}
	}
	return nil
}

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var def any
	if err := json.Unmarshal([]byte(documentSchemaJSON), &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}
	c := jsonschema.NewCompiler()
	const url = "schema://cadence-run.json"
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
})

const documentSchemaJSON = `{
  "type": "object",
  "required": ["format", "schemaVersion", "run"],
  "properties": {
    "format": {"const": "cadence-run"},
    "schemaVersion": {"type": "integer"},
    "exportedAt": {"type": "integer", "minimum": 0},
    "generator": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "version": {"type": "string"}
      }
    },
    "run": {
      "type": "object",
      "required": ["id", "schemaVersion", "createdAt", "lastUpdatedAt", "queue", "currentIndex", "streak"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "schemaVersion": {"type": "integer"},
        "name": {"type": "string"},
        "createdAt": {"type": "integer", "minimum": 0},
        "lastUpdatedAt": {"type": "integer", "minimum": 0},
        "status": {"enum": ["active", "paused", "completed"]},
        "queue": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/node"}},
        "currentIndex": {"type": "integer", "minimum": 0},
        "miniCurriculumComplete": {"type": "boolean"},
        "streak": {"type": "integer", "minimum": 0},
        "difficultyPointer": {
          "type": ["object", "null"],
          "additionalProperties": {"enum": ["beginner", "intermediate", "advanced"]}
        },
        "completedQuestions": {"type": "integer", "minimum": 0},
        "perSubtopicStats": {
          "type": ["object", "null"],
          "additionalProperties": {"$ref": "#/$defs/stats"}
        },
        "recentArchetypes": {"type": ["array", "null"], "items": {"type": "string"}},
        "aggressiveProgression": {"type": "boolean"},
        "remediationMode": {"type": "boolean"},
        "config": {"$ref": "#/$defs/config"}
      }
    }
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["subtopicId"],
      "properties": {
        "moduleId": {"type": "string"},
        "subtopicId": {"type": "string", "minLength": 1},
        "moduleName": {"type": "string"},
        "subtopicName": {"type": "string"}
      }
    },
    "stats": {
      "type": "object",
      "properties": {
        "attempts": {"type": "integer", "minimum": 0},
        "solved": {"type": "integer", "minimum": 0},
        "lastAttemptAt": {"type": "integer", "minimum": 0},
        "consecutiveFailures": {"type": "integer", "minimum": 0}
      }
    },
    "config": {
      "type": "object",
      "properties": {
        "streakToPromote": {"type": "integer", "minimum": 0},
        "aggressiveStreakToPromote": {"type": "integer", "minimum": 0},
        "extraRemediationCount": {"type": "integer", "minimum": 0},
        "miniCurriculumSize": {"type": "integer", "minimum": 0},
        "decayHours": {"type": "integer", "minimum": 0},
        "prefetchBufferSize": {"type": "integer", "minimum": 0}
      }
    }
  }
}`
