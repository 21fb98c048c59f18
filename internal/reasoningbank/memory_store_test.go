package reasoningbank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(id string, quality float64, embedding []float32) *DistilledMemory {
	return &DistilledMemory{
		ID:        id,
		Quality:   quality,
		Embedding: embedding,
	}
}

func TestMemoryStoreInsert(t *testing.T) {
	store := NewMemoryStore(10, nil)

	t.Run("rejects empty id", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(&DistilledMemory{}), ErrEmptyMemoryID)
		assert.ErrorIs(t, store.Insert(nil), ErrEmptyMemoryID)
	})

	t.Run("insert and get", func(t *testing.T) {
		m := newMemory("m1", 0.7, nil)
		require.NoError(t, store.Insert(m))
		assert.Same(t, m, store.Get("m1"))
	})
}

func TestMemoryStoreCapacityEvictsLowestQuality(t *testing.T) {
	store := NewMemoryStore(3, nil)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Insert(newMemory(fmt.Sprintf("m%d", i), float64(i)/10, nil)))
	}

	// Overflow: m1 (quality 0.1) is the eviction victim.
	require.NoError(t, store.Insert(newMemory("m4", 0.9, nil)))

	assert.Equal(t, 3, store.Len())
	assert.Nil(t, store.Get("m1"))
	assert.NotNil(t, store.Get("m4"))
}

func TestMemoryStoreActiveFiltersConsolidated(t *testing.T) {
	store := NewMemoryStore(10, nil)
	require.NoError(t, store.Insert(newMemory("keep", 0.8, nil)))

	excluded := newMemory("excluded", 0.3, nil)
	excluded.Consolidated = true
	require.NoError(t, store.Insert(excluded))

	assert.Len(t, store.List(), 2)

	active := store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "keep", active[0].ID)
}

func TestMemoryStoreRecordUsage(t *testing.T) {
	store := NewMemoryStore(10, nil)
	require.NoError(t, store.Insert(newMemory("m1", 0.8, nil)))

	store.RecordUsage("m1")
	store.RecordUsage("m1")
	store.RecordUsage("missing") // silent no-op

	m := store.Get("m1")
	assert.Equal(t, 2, m.UsageCount)
	assert.False(t, m.LastUsed.IsZero())
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(10, nil)
	require.NoError(t, store.Insert(newMemory("m1", 0.8, nil)))
	require.NoError(t, store.Insert(newMemory("m2", 0.8, nil)))

	store.Delete("m1")
	store.Delete("missing") // no-op

	assert.Equal(t, 1, store.Len())
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "m2", list[0].ID)
}
