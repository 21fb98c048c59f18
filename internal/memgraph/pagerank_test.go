package memgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/membank/internal/events"
)

func sumRanks(ranks map[string]float64) float64 {
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	return sum
}

func TestComputePageRankEmptyGraph(t *testing.T) {
	g := newTestGraph(t, nil)
	ranks := g.ComputePageRank()
	assert.Empty(t, ranks)
}

func TestComputePageRankSingleNode(t *testing.T) {
	g := newTestGraph(t, nil)
	g.AddNode(Node{ID: "only"})

	ranks := g.ComputePageRank()
	require.Len(t, ranks, 1)
	assert.InDelta(t, 1.0, ranks["only"], 1e-5)
}

func TestComputePageRankConservation(t *testing.T) {
	g := newTestGraph(t, nil)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge("a", "b", EdgeReference, 0.5)
	g.AddEdge("b", "c", EdgeReference, 0.5)
	g.AddEdge("c", "a", EdgeReference, 0.5)
	g.AddEdge("d", "a", EdgeReference, 0.5)
	// e is dangling: its mass must be redistributed, not leaked.

	ranks := g.ComputePageRank()
	assert.InDelta(t, 1.0, sumRanks(ranks), 1e-2)
}

func TestComputePageRankStructuralSensitivity(t *testing.T) {
	g := newTestGraph(t, nil)
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddNode(Node{ID: "c"})
	g.AddEdge("a", "c", EdgeReference, 0.5)
	g.AddEdge("b", "c", EdgeReference, 0.5)

	ranks := g.ComputePageRank()
	assert.Greater(t, ranks["c"], ranks["a"])
	assert.Greater(t, ranks["c"], ranks["b"])
	assert.InDelta(t, 1.0, sumRanks(ranks), 1e-2)
}

func TestComputePageRankEmitsEvent(t *testing.T) {
	recorder := &events.Recorder{}
	g := newTestGraph(t, nil, WithObserver(recorder))
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddEdge("a", "b", EdgeReference, 0.5)

	g.ComputePageRank()

	emitted := recorder.Named(events.PageRankComputed)
	require.Len(t, emitted, 1)
	assert.Equal(t, 2, emitted[0].Fields["node_count"])
	iterations, ok := emitted[0].Fields["iterations"].(int)
	require.True(t, ok)
	assert.Greater(t, iterations, 0)
	assert.LessOrEqual(t, iterations, 50)
}

func TestMutationInvalidatesPageRank(t *testing.T) {
	g := newTestGraph(t, nil)
	g.AddNode(Node{ID: "a"})
	g.ComputePageRank()
	assert.True(t, g.GetStats().PageRankComputed)

	g.AddNode(Node{ID: "b"})
	assert.False(t, g.GetStats().PageRankComputed)

	g.ComputePageRank()
	assert.True(t, g.GetStats().PageRankComputed)

	g.AddEdge("a", "b", EdgeReference, 0.5)
	assert.False(t, g.GetStats().PageRankComputed)

	g.ComputePageRank()
	g.RemoveNode("b")
	assert.False(t, g.GetStats().PageRankComputed)
}
