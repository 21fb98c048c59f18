package reasoningbank

import (
	"sort"

	"go.uber.org/zap"
)

// trimFactor is the fraction of capacity the pool is trimmed back to after
// an insert pushes it over the limit. Eviction order is lowest quality
// first; this is load-bearing behavior, not incidental.
const trimFactor = 0.8

// TrajectoryStore holds a bounded pool of trajectories.
//
// When an insert pushes the pool past its capacity, the pool is trimmed back
// to 80% of capacity by evicting the lowest-quality trajectories. Callers
// that need to detect eviction compare Len before and after storing.
type TrajectoryStore struct {
	max          int
	trajectories map[string]*Trajectory
	order        []string
	logger       *zap.Logger
}

// NewTrajectoryStore creates a store bounded at max trajectories.
func NewTrajectoryStore(max int, logger *zap.Logger) *TrajectoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrajectoryStore{
		max:          max,
		trajectories: make(map[string]*Trajectory),
		logger:       logger,
	}
}

// Store inserts or replaces a trajectory, then trims the pool if the insert
// pushed it over capacity.
func (s *TrajectoryStore) Store(t *Trajectory) error {
	if t == nil || t.ID == "" {
		return ErrEmptyTrajectoryID
	}

	if _, exists := s.trajectories[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.trajectories[t.ID] = t

	if len(s.trajectories) > s.max {
		s.trim()
	}

	return nil
}

// Get returns the trajectory with the given id, or nil when absent.
func (s *TrajectoryStore) Get(id string) *Trajectory {
	return s.trajectories[id]
}

// List returns trajectories in insertion order.
func (s *TrajectoryStore) List() []*Trajectory {
	out := make([]*Trajectory, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.trajectories[id])
	}
	return out
}

// Len returns the number of stored trajectories.
func (s *TrajectoryStore) Len() int {
	return len(s.trajectories)
}

// trim evicts lowest-quality trajectories until the pool is back at 80% of
// capacity.
func (s *TrajectoryStore) trim() {
	target := int(float64(s.max) * trimFactor)
	if target < 1 {
		target = 1
	}
	evictCount := len(s.trajectories) - target
	if evictCount <= 0 {
		return
	}

	// Sort candidates by quality ascending; stable on insertion order so
	// equal-quality eviction is deterministic.
	candidates := make([]string, len(s.order))
	copy(candidates, s.order)
	sort.SliceStable(candidates, func(i, j int) bool {
		return s.trajectories[candidates[i]].QualityScore < s.trajectories[candidates[j]].QualityScore
	})

	evicted := make(map[string]bool, evictCount)
	for _, id := range candidates[:evictCount] {
		delete(s.trajectories, id)
		evicted[id] = true
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if !evicted[id] {
			kept = append(kept, id)
		}
	}
	s.order = kept

	s.logger.Debug("trajectory pool trimmed",
		zap.Int("evicted", evictCount),
		zap.Int("remaining", len(s.trajectories)),
	)
}
