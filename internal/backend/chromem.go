package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("membank.backend.chromem")

// referencesKey holds the serialized reference list in chromem metadata.
// chromem metadata values are strings, so references are pipe-joined.
const referencesKey = "_references"

const referencesSep = "|"

// ChromemConfig holds configuration for the chromem-go backed store.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means in-memory.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the chromem collection name.
	// Default: "membank_entries"
	Collection string

	// VectorSize is the expected embedding dimension.
	// Default: 384
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "membank_entries"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store on top of chromem-go, an embeddable vector
// database with no external service dependency.
//
// Entries always carry precomputed embeddings, so no embedding provider is
// wired in: similarity search goes through QueryEmbedding directly. Because
// chromem has no scan API, the store keeps an id-ordered side index to serve
// Query; the index is rebuilt from inserts, so a persistent database should
// be re-imported through BulkInsert on startup.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger

	mu    sync.RWMutex
	index map[string]Entry
	order []string
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path := filepath.Clean(config.Path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", config.Collection, err)
	}

	store := &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
		index:      make(map[string]Entry),
	}

	logger.Info("chromem backend initialized",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Int("vector_size", config.VectorSize),
	)

	return store, nil
}

// rejectEmbedding is the chromem embedding func. Entries always arrive with
// precomputed embeddings, so reaching this is a caller bug.
func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("backend stores precomputed embeddings only")
}

// Store inserts or replaces a single entry.
func (s *ChromemStore) Store(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return ErrEmptyEntryID
	}

	if len(entry.Embedding) > 0 {
		doc := chromem.Document{
			ID:        entry.ID,
			Content:   entry.Content,
			Embedding: entry.Embedding,
			Metadata:  encodeMetadata(entry),
		}
		if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
			return fmt.Errorf("adding document %s: %w", entry.ID, err)
		}
	}

	s.mu.Lock()
	if _, exists := s.index[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.index[entry.ID] = entry
	s.mu.Unlock()

	return nil
}

// Query returns entries matching the filter from the side index, in
// insertion order.
func (s *ChromemStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idSet map[string]bool
	if len(filter.IDs) > 0 {
		idSet = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			idSet[id] = true
		}
	}

	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entry := s.index[id]
		if idSet != nil && !idSet[id] {
			continue
		}
		if !matchesMetadata(entry, filter.Metadata) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, nil
}

// Search returns entries most similar to the embedding, best first.
func (s *ChromemStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]Match, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	span.SetAttributes(attribute.Int("limit", limit))

	// chromem requires nResults <= document count.
	count := s.collection.Count()
	if count == 0 {
		return []Match{}, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{Entry: s.resultToEntry(r), Score: score})
	}

	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("searched chromem collection",
		zap.String("collection", s.config.Collection),
		zap.Int("limit", limit),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// BulkInsert inserts or replaces many entries in one pass.
func (s *ChromemStore) BulkInsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyEntries
	}

	ctx, span := chromemTracer.Start(ctx, "ChromemStore.BulkInsert")
	defer span.End()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	docs := make([]chromem.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			return ErrEmptyEntryID
		}
		if len(entry.Embedding) > 0 {
			docs = append(docs, chromem.Document{
				ID:        entry.ID,
				Content:   entry.Content,
				Embedding: entry.Embedding,
				Metadata:  encodeMetadata(entry),
			})
		}
	}

	if len(docs) > 0 {
		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("adding documents: %w", err)
		}
	}

	s.mu.Lock()
	for _, entry := range entries {
		if _, exists := s.index[entry.ID]; !exists {
			s.order = append(s.order, entry.ID)
		}
		s.index[entry.ID] = entry
	}
	s.mu.Unlock()

	span.SetStatus(codes.Ok, "success")
	return nil
}

// BulkDelete removes entries by id. Unknown ids are skipped silently.
func (s *ChromemStore) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		s.mu.RLock()
		entry, ok := s.index[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if len(entry.Embedding) > 0 {
			if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
				return fmt.Errorf("deleting document %s: %w", id, err)
			}
		}
	}

	s.mu.Lock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			delete(s.index, id)
			removed[id] = true
		}
	}
	if len(removed) > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if !removed[id] {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	s.mu.Unlock()

	return nil
}

// Close releases backend resources.
func (s *ChromemStore) Close() error {
	return nil
}

// encodeMetadata flattens entry metadata and references into chromem's
// string-valued metadata map.
func encodeMetadata(entry Entry) map[string]string {
	out := make(map[string]string, len(entry.Metadata)+1)
	for k, v := range entry.Metadata {
		out[k] = fmt.Sprintf("%v", v)
	}
	if len(entry.References) > 0 {
		out[referencesKey] = strings.Join(entry.References, referencesSep)
	}
	return out
}

// resultToEntry reconstructs an Entry from a chromem result, preferring the
// richer side-index copy when present.
func (s *ChromemStore) resultToEntry(r chromem.Result) Entry {
	s.mu.RLock()
	entry, ok := s.index[r.ID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	metadata := make(map[string]interface{}, len(r.Metadata))
	var references []string
	for k, v := range r.Metadata {
		if k == referencesKey {
			references = strings.Split(v, referencesSep)
			continue
		}
		metadata[k] = v
	}

	return Entry{
		ID:         r.ID,
		Content:    r.Content,
		Embedding:  r.Embedding,
		References: references,
		Metadata:   metadata,
	}
}
