package reasoningbank

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// qualityHistoryCap bounds a pattern's quality sample ring.
const qualityHistoryCap = 100

// EvolutionType classifies pattern evolution events.
type EvolutionType string

const (
	// EvolutionImprovement records a quality update from reuse.
	EvolutionImprovement EvolutionType = "improvement"

	// EvolutionMerge records absorption of a near-duplicate pattern.
	EvolutionMerge EvolutionType = "merge"

	// EvolutionSplit is reserved. Nothing in the engine produces it.
	EvolutionSplit EvolutionType = "split"

	// EvolutionPrune records removal of a stale, low-usage pattern.
	EvolutionPrune EvolutionType = "prune"
)

// PatternEvolution is one append-only entry in a pattern's history.
type PatternEvolution struct {
	Timestamp       time.Time     `json:"timestamp"`
	Type            EvolutionType `json:"type"`
	PreviousQuality float64       `json:"previous_quality"`
	NewQuality      float64       `json:"new_quality"`
	Description     string        `json:"description"`
}

// Pattern is a long-lived aggregate over repeated use of a memory.
//
// Invariant: SuccessRate is always the arithmetic mean of the current
// QualityHistory, which keeps the most recent 100 samples.
type Pattern struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Domain           string             `json:"domain"`
	Embedding        []float32          `json:"embedding"`
	Strategy         string             `json:"strategy"`
	SuccessRate      float64            `json:"success_rate"`
	UsageCount       int                `json:"usage_count"`
	QualityHistory   []float64          `json:"quality_history"`
	EvolutionHistory []PatternEvolution `json:"evolution_history"`
	LastUsed         time.Time          `json:"last_used"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// addQuality appends a sample to the capped history and restores the
// SuccessRate invariant.
func (p *Pattern) addQuality(q float64) {
	p.QualityHistory = append(p.QualityHistory, q)
	if len(p.QualityHistory) > qualityHistoryCap {
		p.QualityHistory = p.QualityHistory[len(p.QualityHistory)-qualityHistoryCap:]
	}
	p.recomputeSuccessRate()
	p.UpdatedAt = timeNow()
}

func (p *Pattern) recomputeSuccessRate() {
	if len(p.QualityHistory) == 0 {
		p.SuccessRate = 0
		return
	}
	var sum float64
	for _, q := range p.QualityHistory {
		sum += q
	}
	p.SuccessRate = sum / float64(len(p.QualityHistory))
}

// RecordUsage counts a reuse of this pattern.
func (p *Pattern) RecordUsage() {
	p.UsageCount++
	p.LastUsed = timeNow()
	p.UpdatedAt = timeNow()
}

// PatternStore holds promoted patterns keyed by id.
type PatternStore struct {
	patterns map[string]*Pattern
	order    []string
	logger   *zap.Logger
}

// NewPatternStore creates an empty pattern store.
func NewPatternStore(logger *zap.Logger) *PatternStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternStore{
		patterns: make(map[string]*Pattern),
		logger:   logger,
	}
}

// Promote creates a pattern from a distilled memory. The pattern starts with
// the memory's quality as its only history sample.
func (s *PatternStore) Promote(memory *DistilledMemory, name, domain string) *Pattern {
	if memory == nil {
		return nil
	}

	now := timeNow()
	pattern := &Pattern{
		ID:             uuid.New().String(),
		Name:           name,
		Domain:         domain,
		Embedding:      memory.Embedding,
		Strategy:       memory.Strategy,
		QualityHistory: []float64{memory.Quality},
		SuccessRate:    memory.Quality,
		UsageCount:     0,
		LastUsed:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.patterns[pattern.ID] = pattern
	s.order = append(s.order, pattern.ID)

	s.logger.Info("memory promoted to pattern",
		zap.String("pattern_id", pattern.ID),
		zap.String("memory_id", memory.ID),
		zap.String("domain", domain),
	)

	return pattern
}

// Evolve records a new quality sample for a pattern and appends an
// improvement event.
//
// Unknown pattern ids are a silent no-op returning nil: this keeps pattern
// maintenance idempotent when evolutions race with pruning.
func (s *PatternStore) Evolve(id string, quality float64, description string) *PatternEvolution {
	pattern, ok := s.patterns[id]
	if !ok {
		return nil
	}

	previous := pattern.SuccessRate
	pattern.addQuality(quality)

	evolution := PatternEvolution{
		Timestamp:       timeNow(),
		Type:            EvolutionImprovement,
		PreviousQuality: previous,
		NewQuality:      pattern.SuccessRate,
		Description:     description,
	}
	pattern.EvolutionHistory = append(pattern.EvolutionHistory, evolution)

	return &evolution
}

// Get returns the pattern with the given id, or nil when absent.
func (s *PatternStore) Get(id string) *Pattern {
	return s.patterns[id]
}

// Delete removes a pattern. No-op when the id is absent.
func (s *PatternStore) Delete(id string) {
	if _, ok := s.patterns[id]; !ok {
		return
	}
	delete(s.patterns, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// List returns patterns in promotion order.
func (s *PatternStore) List() []*Pattern {
	out := make([]*Pattern, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.patterns[id])
	}
	return out
}

// Len returns the number of stored patterns.
func (s *PatternStore) Len() int {
	return len(s.patterns)
}
