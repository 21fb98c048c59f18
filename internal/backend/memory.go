package backend

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/vectormath"
)

// DefaultSearchLimit caps Search results when SearchOptions.Limit is unset.
const DefaultSearchLimit = 10

// MemoryStore is an in-memory Store implementation.
//
// It preserves insertion order for Query, which makes graph construction and
// retrieval deterministic in tests. Similarity search is a brute-force cosine
// scan, which is adequate at the engine's target scale (thousands of entries).
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Store inserts or replaces a single entry.
func (s *MemoryStore) Store(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return ErrEmptyEntryID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry

	return nil
}

// Query returns entries matching the filter, in insertion order.
func (s *MemoryStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
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
		entry := s.entries[id]
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
// Entries without an embedding are skipped. Ties are broken by insertion
// order so results are stable.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type scored struct {
		match Match
		pos   int
	}

	candidates := make([]scored, 0, len(s.order))
	for pos, id := range s.order {
		entry := s.entries[id]
		if len(entry.Embedding) == 0 {
			continue
		}
		score := vectormath.CosineSimilarity(embedding, entry.Embedding)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		candidates = append(candidates, scored{match: Match{Entry: entry, Score: score}, pos: pos})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		return candidates[i].pos < candidates[j].pos
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Match, len(candidates))
	for i, c := range candidates {
		out[i] = c.match
	}

	return out, nil
}

// BulkInsert inserts or replaces many entries in one pass.
func (s *MemoryStore) BulkInsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyEntries
	}

	for _, entry := range entries {
		if err := s.Store(ctx, entry); err != nil {
			return err
		}
	}

	return nil
}

// BulkDelete removes entries by id. Unknown ids are skipped silently.
func (s *MemoryStore) BulkDelete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
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

	return nil
}

// Close implements Store. The in-memory store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matchesMetadata(entry Entry, want map[string]interface{}) bool {
	if len(want) == 0 {
		return true
	}
	for k, v := range want {
		got, ok := entry.Metadata[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}
