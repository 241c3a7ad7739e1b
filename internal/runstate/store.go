package runstate

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/cadence/internal/curriculum"
	"github.com/abhisek/cadence/internal/difficulty"
	"github.com/abhisek/cadence/internal/diversity"
	"github.com/abhisek/cadence/internal/queue"
	"github.com/abhisek/cadence/internal/store"
)

// ErrRunNotFound is returned for unknown runs and for runs whose stored
// document cannot be decoded.
var ErrRunNotFound = errors.New("run not found")

// Backend key prefixes.
const (
	RunPrefix       = "run/"
	DiversityPrefix = "diversity/"
	LegacyPrefix    = "legacy/"
)

func runKey(id string) string       { return RunPrefix + id }
func diversityKey(id string) string { return DiversityPrefix + id }

// Options configures a Store. Zero values are usable.
type Options struct {
	// Recorder receives decay events. May be nil.
	Recorder difficulty.Recorder

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	Logger *slog.Logger

	// Exporter is stamped into exported documents.
	Exporter Generator
}

// Store persists runs in a Backend, one document per run.
type Store struct {
	backend  store.Backend
	queues   *queue.Generator
	recorder difficulty.Recorder
	now      func() time.Time
	logger   *slog.Logger
	exporter Generator
}

// NewStore creates a Store over backend. queues builds the initial queue
// of new runs and supplies the catalog used by migration.
func NewStore(backend store.Backend, queues *queue.Generator, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Exporter.Name == "" {
		opts.Exporter.Name = "cadence"
	}
	return &Store{
		backend:  backend,
		queues:   queues,
		recorder: opts.Recorder,
		now:      opts.Clock,
		logger:   opts.Logger,
		exporter: opts.Exporter,
	}
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Catalog returns the catalog runs are resolved against.
func (s *Store) Catalog() *curriculum.Catalog {
	return s.queues.Catalog()
}

// Create builds and persists a fresh run with a new mini-curriculum.
func (s *Store) Create(ctx context.Context, opts CreateOptions) (*RunState, error) {
	size := DefaultConfig().MiniCurriculumSize
	if opts.Config != nil {
		size = opts.Config.WithDefaults().MiniCurriculumSize
	}
	st := New(uuid.NewString(), opts, s.queues.GenerateInitialQueue(size), s.now())
	if err := s.put(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("run created", "run", st.ID, "name", st.Name, "queue", len(st.Queue))
	return st, nil
}

// Load reads a run, migrating it and applying streak decay. Any change is
// written back before returning.
func (s *Store) Load(ctx context.Context, id string) (*RunState, error) {
	st, changed, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}

	ctrl := difficulty.NewController(st.Tuning().Difficulty(), s.recorder, s.logger)
	now := s.now()
	if streak, ok := ctrl.Decay(ctx, st.ID, st.Streak, st.LastUpdated(), now); ok {
		s.logger.Debug("streak decayed", "run", st.ID, "from", st.Streak, "to", streak)
		st.Streak = streak
		st.LastUpdatedAt = now.UnixMilli()
		changed = true
	}
	if changed {
		if err := s.put(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// read decodes a stored run without decay. Undecodable documents are
// logged and reported as ErrRunNotFound.
func (s *Store) read(ctx context.Context, id string) (*RunState, bool, error) {
	raw, err := s.backend.Get(ctx, runKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load run %s: %w", id, err)
	}

	st, changed, err := Migrate(raw, s.Catalog())
	if err != nil {
		s.logger.Warn("corrupted run document", "run", id, "error", err)
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if st.ID != id {
		s.logger.Warn("run document id mismatch", "key", id, "id", st.ID)
		st.ID = id
		changed = true
	}
	return st, changed, nil
}

// Save stamps lastUpdatedAt and upserts the run.
func (s *Store) Save(ctx context.Context, st *RunState) error {
	st.LastUpdatedAt = s.now().UnixMilli()
	return s.put(ctx, st)
}

func (s *Store) put(ctx context.Context, st *RunState) error {
	st.SchemaVersion = SchemaVersion
	st.ensure(s.Catalog().Fallback())
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", st.ID, err)
	}
	if err := s.backend.Put(ctx, runKey(st.ID), b); err != nil {
		return fmt.Errorf("save run %s: %w", st.ID, err)
	}
	return nil
}

// List returns every readable run, most recently updated first. Decay is
// not applied.
func (s *Store) List(ctx context.Context) ([]*RunState, error) {
	keys, err := s.backend.List(ctx, RunPrefix)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]*RunState, 0, len(keys))
	for _, k := range keys {
		st, _, err := s.read(ctx, strings.TrimPrefix(k, RunPrefix))
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, st)
	}
	slices.SortFunc(runs, func(a, b *RunState) int {
		if c := cmp.Compare(b.LastUpdatedAt, a.LastUpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return runs, nil
}

// Delete removes a run and its diversity memory.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.backend.Delete(ctx, runKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if err := s.backend.Delete(ctx, diversityKey(id)); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("delete diversity memory", "run", id, "error", err)
	}
	s.logger.Info("run deleted", "run", id)
	return nil
}

// Export loads a run and encodes it as a Document.
func (s *Store) Export(ctx context.Context, id string) ([]byte, error) {
	st, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewDocument(st, s.exporter, s.now()).Marshal()
}

// ImportOutcome describes how an imported run was stored.
type ImportOutcome string

const (
	ImportCreated  ImportOutcome = "created"
	ImportReplaced ImportOutcome = "replaced" // incoming was newer
	ImportKept     ImportOutcome = "kept"     // existing was newer; nothing written
	ImportRenamed  ImportOutcome = "renamed"  // equal timestamps; stored under a new id
)

// ImportResult is the run as stored after an import.
type ImportResult struct {
	Run     *RunState
	Outcome ImportOutcome
}

// Import validates a document and stores its run. An invalid document is
// rejected with a *ValidationError before anything is written. On an id
// collision the newer lastUpdatedAt wins; equal timestamps store the
// incoming run under a fresh id.
func (s *Store) Import(ctx context.Context, data []byte) (ImportResult, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return ImportResult{}, err
	}
	if doc.NewerMajor(s.exporter.Version) {
		s.logger.Warn("document written by a newer major version",
			"exporter", doc.Generator.Name, "version", doc.Generator.Version, "current", s.exporter.Version)
	}

	incoming := doc.Run
	outcome := ImportCreated
	existing, _, err := s.read(ctx, incoming.ID)
	switch {
	case errors.Is(err, ErrRunNotFound):
	case err != nil:
		return ImportResult{}, err
	case incoming.LastUpdatedAt > existing.LastUpdatedAt:
		outcome = ImportReplaced
	case incoming.LastUpdatedAt < existing.LastUpdatedAt:
		s.logger.Info("import skipped, stored run is newer", "run", existing.ID)
		return ImportResult{Run: existing, Outcome: ImportKept}, nil
	default:
		incoming.ID = uuid.NewString()
		outcome = ImportRenamed
	}

	if err := s.put(ctx, incoming); err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("run imported", "run", incoming.ID, "outcome", outcome)
	return ImportResult{Run: incoming, Outcome: outcome}, nil
}

// ResetStats clears the stats of one subtopic, or all stats when
// subtopicID is empty.
func (s *Store) ResetStats(ctx context.Context, id, subtopicID string) (*RunState, error) {
	st, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	st.PerSubtopicStats.Reset(subtopicID)
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("stats reset", "run", id, "subtopic", subtopicID)
	return st, nil
}

// MigrateLegacy folds scattered legacy/<field> documents into one run and
// removes them. It returns nil when there is nothing to migrate, so
// running it again is a no-op.
func (s *Store) MigrateLegacy(ctx context.Context) (*RunState, error) {
	keys, err := s.backend.List(ctx, LegacyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list legacy keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fields := make(map[string][]byte, len(keys))
	for _, k := range keys {
		raw, err := s.backend.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		fields[strings.TrimPrefix(k, LegacyPrefix)] = raw
	}
	if _, ok := fields["id"]; !ok {
		fields["id"] = []byte(strconv.Quote(uuid.NewString()))
	}

	doc, unknown, err := FoldLegacyKeys(fields)
	if err != nil {
		return nil, fmt.Errorf("fold legacy keys: %w", err)
	}
	if len(unknown) > 0 {
		s.logger.Warn("ignoring unknown legacy keys", "keys", unknown)
	}
	st, _, err := Migrate(doc, s.Catalog())
	if err != nil {
		return nil, fmt.Errorf("migrate legacy run: %w", err)
	}

	now := s.now().UnixMilli()
	if st.LastUpdatedAt == 0 {
		st.LastUpdatedAt = now
	}
	if st.CreatedAt == 0 {
		st.CreatedAt = st.LastUpdatedAt
	}
	if st.Name == "" {
		st.Name = "Migrated run"
	}
	if err := s.put(ctx, st); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := s.backend.Delete(ctx, k); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("delete %s: %w", k, err)
		}
	}
	s.logger.Info("legacy run migrated", "run", st.ID, "keys", len(keys))
	return st, nil
}

// LoadMemory returns a run's persisted diversity memory. ok is false when
// none is stored or it cannot be decoded.
func (s *Store) LoadMemory(ctx context.Context, id string) (diversity.Memory, bool, error) {
	raw, err := s.backend.Get(ctx, diversityKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return diversity.Memory{}, false, nil
	}
	if err != nil {
		return diversity.Memory{}, false, fmt.Errorf("load diversity memory %s: %w", id, err)
	}
	var m diversity.Memory
	if err := json.Unmarshal(raw, &m); err != nil {
		s.logger.Warn("discarding corrupted diversity memory", "run", id, "error", err)
		return diversity.Memory{}, false, nil
	}
	return m, true, nil
}

// SaveMemory persists a run's diversity memory beside the run.
func (s *Store) SaveMemory(ctx context.Context, id string, m diversity.Memory) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode diversity memory: %w", err)
	}
	if err := s.backend.Put(ctx, diversityKey(id), b); err != nil {
		return fmt.Errorf("save diversity memory %s: %w", id, err)
	}
	return nil
}
