package reasoningbank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/membank/internal/config"
	"github.com/fyrsmithlabs/membank/internal/events"
)

func newConsolidatorFixture(t *testing.T, mutate func(*config.BankConfig)) (*Consolidator, *MemoryStore, *PatternStore, *events.Recorder) {
	t.Helper()
	cfg := config.NewDefaultConfig().Bank
	if mutate != nil {
		mutate(&cfg)
	}
	memories := NewMemoryStore(cfg.MaxMemories, nil)
	patterns := NewPatternStore(nil)
	recorder := &events.Recorder{}
	return NewConsolidator(memories, patterns, cfg, recorder, nil), memories, patterns, recorder
}

func TestConsolidateDedup(t *testing.T) {
	consolidator, memories, _, _ := newConsolidatorFixture(t, nil)

	require.NoError(t, memories.Insert(newMemory("weak", 0.5, []float32{1, 0})))
	require.NoError(t, memories.Insert(newMemory("strong", 0.9, []float32{1, 0.01})))
	require.NoError(t, memories.Insert(newMemory("distinct", 0.3, []float32{0, 1})))

	result := consolidator.Consolidate()
	assert.Equal(t, 1, result.RemovedDuplicates)
	assert.Equal(t, 2, result.FinalMemoryCount)

	// Higher quality survives the pair.
	assert.Nil(t, memories.Get("weak"))
	assert.NotNil(t, memories.Get("strong"))
	assert.NotNil(t, memories.Get("distinct"))
}

func TestConsolidateDedupEqualQualityKeepsFirst(t *testing.T) {
	consolidator, memories, _, _ := newConsolidatorFixture(t, nil)

	require.NoError(t, memories.Insert(newMemory("first", 0.5, []float32{1, 0})))
	require.NoError(t, memories.Insert(newMemory("second", 0.5, []float32{1, 0})))

	result := consolidator.Consolidate()
	assert.Equal(t, 1, result.RemovedDuplicates)
	assert.NotNil(t, memories.Get("first"))
	assert.Nil(t, memories.Get("second"))
}

func TestConsolidateIdempotent(t *testing.T) {
	consolidator, memories, _, _ := newConsolidatorFixture(t, nil)

	require.NoError(t, memories.Insert(newMemory("a", 0.5, []float32{1, 0})))
	require.NoError(t, memories.Insert(newMemory("b", 0.9, []float32{1, 0})))

	first := consolidator.Consolidate()
	assert.Equal(t, 1, first.RemovedDuplicates)

	second := consolidator.Consolidate()
	assert.Equal(t, 0, second.RemovedDuplicates)
	assert.Equal(t, first.FinalMemoryCount, second.FinalMemoryCount)
}

func TestConsolidateContradictions(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		consolidator, memories, _, _ := newConsolidatorFixture(t, nil)

		// Similar direction, large quality gap, below dedup threshold.
		require.NoError(t, memories.Insert(newMemory("good", 0.9, []float32{1, 0.5})))
		require.NoError(t, memories.Insert(newMemory("bad", 0.2, []float32{1, 0})))

		result := consolidator.Consolidate()
		assert.Equal(t, 0, result.ContradictionsDetected)
		assert.False(t, memories.Get("bad").Consolidated)
	})

	t.Run("soft-excludes the lower quality side", func(t *testing.T) {
		consolidator, memories, _, _ := newConsolidatorFixture(t, func(cfg *config.BankConfig) {
			cfg.DetectContradictions = true
		})

		require.NoError(t, memories.Insert(newMemory("good", 0.9, []float32{1, 0.5})))
		require.NoError(t, memories.Insert(newMemory("bad", 0.2, []float32{1, 0})))

		result := consolidator.Consolidate()
		assert.Equal(t, 1, result.ContradictionsDetected)

		// The loser stays in the store but leaves active retrieval.
		require.NotNil(t, memories.Get("bad"))
		assert.True(t, memories.Get("bad").Consolidated)
		assert.False(t, memories.Get("good").Consolidated)
		assert.Len(t, memories.Active(), 1)
	})

	t.Run("small quality gap is not a contradiction", func(t *testing.T) {
		consolidator, memories, _, _ := newConsolidatorFixture(t, func(cfg *config.BankConfig) {
			cfg.DetectContradictions = true
		})

		require.NoError(t, memories.Insert(newMemory("one", 0.6, []float32{1, 0.5})))
		require.NoError(t, memories.Insert(newMemory("two", 0.5, []float32{1, 0})))

		result := consolidator.Consolidate()
		assert.Equal(t, 0, result.ContradictionsDetected)
	})
}

func TestConsolidatePrunePatterns(t *testing.T) {
	consolidator, _, patterns, _ := newConsolidatorFixture(t, nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := timeNow
	timeNow = func() time.Time { return base }
	defer func() { timeNow = restore }()

	stale := patterns.Promote(newMemory("m1", 0.6, []float32{1, 0}), "stale", "testing")
	protected := patterns.Promote(newMemory("m2", 0.6, []float32{0, 1}), "protected", "testing")
	protected.UsageCount = 10

	// Jump past the retention window. Usage protects, age alone does not.
	timeNow = func() time.Time { return base.Add(31 * 24 * time.Hour) }

	result := consolidator.Consolidate()
	assert.Equal(t, 1, result.PrunedPatterns)
	assert.Nil(t, patterns.Get(stale.ID))
	assert.NotNil(t, patterns.Get(protected.ID))
}

func TestConsolidateMergePatterns(t *testing.T) {
	consolidator, _, patterns, _ := newConsolidatorFixture(t, nil)

	strong := patterns.Promote(newMemory("m1", 0.9, []float32{1, 0}), "strong", "testing")
	weak := patterns.Promote(newMemory("m2", 0.5, []float32{1, 0.01}), "weak", "testing")
	weak.UsageCount = 3
	otherDomain := patterns.Promote(newMemory("m3", 0.5, []float32{1, 0}), "elsewhere", "planning")

	result := consolidator.Consolidate()
	assert.Equal(t, 1, result.MergedPatterns)

	// The weaker same-domain pattern folds into the stronger one.
	require.Nil(t, patterns.Get(weak.ID))
	require.NotNil(t, patterns.Get(otherDomain.ID))

	survivor := patterns.Get(strong.ID)
	require.NotNil(t, survivor)
	assert.Equal(t, 3, survivor.UsageCount)
	assert.Equal(t, []float64{0.9, 0.5}, survivor.QualityHistory)
	assert.InDelta(t, 0.7, survivor.SuccessRate, 1e-9)

	require.Len(t, survivor.EvolutionHistory, 1)
	assert.Equal(t, EvolutionMerge, survivor.EvolutionHistory[0].Type)
	assert.InDelta(t, 0.9, survivor.EvolutionHistory[0].PreviousQuality, 1e-9)
}

func TestConsolidateEmitsEvent(t *testing.T) {
	consolidator, memories, _, recorder := newConsolidatorFixture(t, nil)

	require.NoError(t, memories.Insert(newMemory("a", 0.5, []float32{1, 0})))
	require.NoError(t, memories.Insert(newMemory("b", 0.9, []float32{1, 0})))

	consolidator.Consolidate()

	emitted := recorder.Named(events.ConsolidationCompleted)
	require.Len(t, emitted, 1)
	assert.Equal(t, 1, emitted[0].Fields["removed_duplicates"])
	assert.Equal(t, 1, emitted[0].Fields["final_memory_count"])
}
