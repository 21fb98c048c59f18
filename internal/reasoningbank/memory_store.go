package reasoningbank

import (
	"sort"

	"go.uber.org/zap"
)

// MemoryStore holds a bounded, insertion-ordered set of distilled memories.
//
// Insertion order is exposed through List and is load-bearing: the MMR
// retriever iterates candidates in that order, which makes tie-breaks
// deterministic.
type MemoryStore struct {
	max      int
	memories map[string]*DistilledMemory
	order    []string
	logger   *zap.Logger
}

// NewMemoryStore creates a store bounded at max memories.
func NewMemoryStore(max int, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		max:      max,
		memories: make(map[string]*DistilledMemory),
		logger:   logger,
	}
}

// Insert adds or replaces a memory. When the insert pushes the store over
// capacity the lowest-quality memory is evicted, which may be the memory
// just inserted.
func (s *MemoryStore) Insert(m *DistilledMemory) error {
	if m == nil || m.ID == "" {
		return ErrEmptyMemoryID
	}

	if _, exists := s.memories[m.ID]; !exists {
		s.order = append(s.order, m.ID)
	}
	s.memories[m.ID] = m

	for len(s.memories) > s.max {
		s.evictLowestQuality()
	}

	return nil
}

// Get returns the memory with the given id, or nil when absent.
func (s *MemoryStore) Get(id string) *DistilledMemory {
	return s.memories[id]
}

// Delete removes a memory. No-op when the id is absent.
func (s *MemoryStore) Delete(id string) {
	if _, ok := s.memories[id]; !ok {
		return
	}
	delete(s.memories, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// List returns all memories in insertion order, including soft-excluded
// ones. Retrieval filters on Consolidated itself.
func (s *MemoryStore) List() []*DistilledMemory {
	out := make([]*DistilledMemory, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.memories[id])
	}
	return out
}

// Active returns retrievable memories (not soft-excluded) in insertion order.
func (s *MemoryStore) Active() []*DistilledMemory {
	out := make([]*DistilledMemory, 0, len(s.order))
	for _, id := range s.order {
		if m := s.memories[id]; !m.Consolidated {
			out = append(out, m)
		}
	}
	return out
}

// RecordUsage increments a memory's usage count and stamps LastUsed.
// No-op when the id is absent.
func (s *MemoryStore) RecordUsage(id string) {
	m, ok := s.memories[id]
	if !ok {
		return
	}
	m.UsageCount++
	m.LastUsed = timeNow()
}

// Len returns the number of stored memories.
func (s *MemoryStore) Len() int {
	return len(s.memories)
}

func (s *MemoryStore) evictLowestQuality() {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.memories[ids[i]].Quality < s.memories[ids[j]].Quality
	})
	if len(ids) == 0 {
		return
	}

	victim := ids[0]
	s.Delete(victim)
	s.logger.Debug("memory evicted at capacity", zap.String("memory_id", victim))
}
