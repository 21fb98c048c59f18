package reasoningbank

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/config"
	"github.com/fyrsmithlabs/membank/internal/events"
	"github.com/fyrsmithlabs/membank/internal/vectormath"
)

// Contradiction gate: pairs this similar with this large a quality gap are
// pointing at the same situation with incompatible outcomes.
const (
	contradictionSimilarity = 0.8
	contradictionQualityGap = 0.4
)

// ConsolidationResult reports one maintenance pass.
type ConsolidationResult struct {
	// RemovedDuplicates counts deleted near-identical memories.
	RemovedDuplicates int `json:"removed_duplicates"`

	// ContradictionsDetected counts memories soft-excluded as the losing
	// side of a contradiction.
	ContradictionsDetected int `json:"contradictions_detected"`

	// PrunedPatterns counts deleted stale patterns.
	PrunedPatterns int `json:"pruned_patterns"`

	// MergedPatterns counts patterns absorbed into a survivor.
	MergedPatterns int `json:"merged_patterns"`

	// FinalMemoryCount is the memory store size after the pass.
	FinalMemoryCount int `json:"final_memory_count"`

	// Duration is how long the pass took.
	Duration time.Duration `json:"duration"`
}

// Consolidator runs periodic maintenance over memories and patterns: dedup,
// optional contradiction soft-exclusion, pattern pruning, and pattern
// merging.
//
// Consolidation is best-effort and never fails for data-quality reasons. It
// is triggered explicitly by the caller, not on a timer.
type Consolidator struct {
	memories *MemoryStore
	patterns *PatternStore
	cfg      config.BankConfig
	observer events.Observer
	logger   *zap.Logger
}

// NewConsolidator creates a consolidator over the given stores.
func NewConsolidator(memories *MemoryStore, patterns *PatternStore, cfg config.BankConfig, observer events.Observer, logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		memories: memories,
		patterns: patterns,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Consolidate runs one maintenance pass and emits a completion event with
// the final memory count.
func (c *Consolidator) Consolidate() ConsolidationResult {
	start := timeNow()

	result := ConsolidationResult{}
	result.RemovedDuplicates = c.dedupMemories()
	if c.cfg.DetectContradictions {
		result.ContradictionsDetected = c.detectContradictions()
	}
	result.PrunedPatterns = c.prunePatterns()
	result.MergedPatterns = c.mergePatterns()
	result.FinalMemoryCount = c.memories.Len()
	result.Duration = timeNow().Sub(start)

	events.Emit(c.observer, events.ConsolidationCompleted, map[string]interface{}{
		"removed_duplicates":      result.RemovedDuplicates,
		"contradictions_detected": result.ContradictionsDetected,
		"pruned_patterns":         result.PrunedPatterns,
		"merged_patterns":         result.MergedPatterns,
		"final_memory_count":      result.FinalMemoryCount,
	})

	c.logger.Info("consolidation completed",
		zap.Int("removed_duplicates", result.RemovedDuplicates),
		zap.Int("contradictions_detected", result.ContradictionsDetected),
		zap.Int("pruned_patterns", result.PrunedPatterns),
		zap.Int("merged_patterns", result.MergedPatterns),
		zap.Int("final_memory_count", result.FinalMemoryCount),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// dedupMemories deletes the lower-quality member of every pair more similar
// than the dedup threshold. On equal quality the first-indexed memory is
// kept. The pairwise scan is O(n²), which is fine at the target scale of
// thousands of memories.
func (c *Consolidator) dedupMemories() int {
	memories := c.memories.List()
	deleted := make(map[string]bool)
	removed := 0

	for i := 0; i < len(memories); i++ {
		if deleted[memories[i].ID] {
			continue
		}
		for j := i + 1; j < len(memories); j++ {
			if deleted[memories[j].ID] {
				continue
			}

			sim := vectormath.CosineSimilarity(memories[i].Embedding, memories[j].Embedding)
			if sim <= c.cfg.DedupThreshold {
				continue
			}

			victim := memories[j]
			if memories[j].Quality > memories[i].Quality {
				victim = memories[i]
			}
			c.memories.Delete(victim.ID)
			deleted[victim.ID] = true
			removed++

			if victim.ID == memories[i].ID {
				break
			}
		}
	}

	return removed
}

// detectContradictions soft-excludes the lower-quality member of highly
// similar pairs with a large quality gap. Nothing is deleted: the losing
// memory stays for audit with Consolidated set.
func (c *Consolidator) detectContradictions() int {
	memories := c.memories.List()
	detected := 0

	for i := 0; i < len(memories); i++ {
		for j := i + 1; j < len(memories); j++ {
			sim := vectormath.CosineSimilarity(memories[i].Embedding, memories[j].Embedding)
			if sim <= contradictionSimilarity {
				continue
			}

			gap := memories[i].Quality - memories[j].Quality
			if gap < 0 {
				gap = -gap
			}
			if gap <= contradictionQualityGap {
				continue
			}

			loser := memories[j]
			if memories[j].Quality > memories[i].Quality {
				loser = memories[i]
			}
			if !loser.Consolidated {
				loser.Consolidated = true
				detected++
			}
		}
	}

	return detected
}

// prunePatterns deletes patterns that are both stale and rarely used.
func (c *Consolidator) prunePatterns() int {
	now := timeNow()
	pruned := 0

	for _, pattern := range c.patterns.List() {
		age := now.Sub(pattern.UpdatedAt)
		if age > c.cfg.MaxPatternAge.Duration() && pattern.UsageCount < c.cfg.MinUsageForRetention {
			c.patterns.Delete(pattern.ID)
			pruned++
			c.logger.Debug("pattern pruned",
				zap.String("pattern_id", pattern.ID),
				zap.Duration("age", age),
				zap.Int("usage_count", pattern.UsageCount),
			)
		}
	}

	return pruned
}

// mergePatterns folds near-duplicate same-domain patterns into the
// higher-success-rate survivor: usage counts are summed, quality histories
// concatenated (capped to the most recent 100), and a merge event appended.
func (c *Consolidator) mergePatterns() int {
	patterns := c.patterns.List()
	deleted := make(map[string]bool)
	merged := 0

	for i := 0; i < len(patterns); i++ {
		if deleted[patterns[i].ID] {
			continue
		}
		for j := i + 1; j < len(patterns); j++ {
			if deleted[patterns[j].ID] {
				continue
			}
			if patterns[i].Domain != patterns[j].Domain {
				continue
			}

			sim := vectormath.CosineSimilarity(patterns[i].Embedding, patterns[j].Embedding)
			if sim <= c.cfg.MergeThreshold {
				continue
			}

			survivor, loser := patterns[i], patterns[j]
			if loser.SuccessRate > survivor.SuccessRate {
				survivor, loser = loser, survivor
			}

			c.mergeInto(survivor, loser)
			c.patterns.Delete(loser.ID)
			deleted[loser.ID] = true
			merged++

			if loser.ID == patterns[i].ID {
				break
			}
		}
	}

	return merged
}

func (c *Consolidator) mergeInto(survivor, loser *Pattern) {
	previous := survivor.SuccessRate

	survivor.UsageCount += loser.UsageCount
	survivor.QualityHistory = append(survivor.QualityHistory, loser.QualityHistory...)
	if len(survivor.QualityHistory) > qualityHistoryCap {
		survivor.QualityHistory = survivor.QualityHistory[len(survivor.QualityHistory)-qualityHistoryCap:]
	}
	survivor.recomputeSuccessRate()
	survivor.UpdatedAt = timeNow()

	survivor.EvolutionHistory = append(survivor.EvolutionHistory, PatternEvolution{
		Timestamp:       timeNow(),
		Type:            EvolutionMerge,
		PreviousQuality: previous,
		NewQuality:      survivor.SuccessRate,
		Description:     fmt.Sprintf("absorbed pattern %s", loser.ID),
	})
}
