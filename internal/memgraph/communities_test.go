package memgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/membank/internal/events"
)

func TestDetectCommunitiesEmptyGraph(t *testing.T) {
	g := newTestGraph(t, nil)
	assert.Empty(t, g.DetectCommunities())
}

func TestDetectCommunitiesIsolatedNodes(t *testing.T) {
	g := newTestGraph(t, nil)
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})

	labels := g.DetectCommunities()
	assert.Equal(t, "a", labels["a"])
	assert.Equal(t, "b", labels["b"])
	assert.Equal(t, 2, distinctLabels(labels))
}

func TestDetectCommunitiesSplitsDisjointPairs(t *testing.T) {
	g := newTestGraph(t, nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge("a", "b", EdgeReference, 0.5)
	g.AddEdge("b", "a", EdgeReference, 0.5)
	g.AddEdge("c", "d", EdgeReference, 0.5)
	g.AddEdge("d", "c", EdgeReference, 0.5)

	labels := g.DetectCommunities()
	assert.Equal(t, labels["a"], labels["b"])
	assert.Equal(t, labels["c"], labels["d"])
	assert.NotEqual(t, labels["a"], labels["c"])
	assert.Equal(t, 2, distinctLabels(labels))
}

func TestDetectCommunitiesDenseCluster(t *testing.T) {
	g := newTestGraph(t, nil)
	for _, id := range []string{"a", "b", "c", "x"} {
		g.AddNode(Node{ID: id})
	}
	// Triangle a-b-c plus an isolated x.
	g.AddEdge("a", "b", EdgeReference, 0.5)
	g.AddEdge("b", "c", EdgeReference, 0.5)
	g.AddEdge("c", "a", EdgeReference, 0.5)

	labels := g.DetectCommunities()
	assert.Equal(t, labels["a"], labels["b"])
	assert.Equal(t, labels["b"], labels["c"])
	assert.Equal(t, "x", labels["x"])
	assert.Equal(t, 2, distinctLabels(labels))
}

func TestDetectCommunitiesDeterministic(t *testing.T) {
	build := func() *Graph {
		g := newTestGraph(t, nil)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			g.AddNode(Node{ID: id})
		}
		g.AddEdge("a", "b", EdgeReference, 0.5)
		g.AddEdge("b", "c", EdgeReference, 0.5)
		g.AddEdge("d", "e", EdgeReference, 0.5)
		g.AddEdge("e", "d", EdgeReference, 0.5)
		return g
	}

	first := build().DetectCommunities()
	second := build().DetectCommunities()
	assert.Equal(t, first, second)
}

func TestDetectCommunitiesEmitsEvent(t *testing.T) {
	recorder := &events.Recorder{}
	g := newTestGraph(t, nil, WithObserver(recorder))
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddEdge("a", "b", EdgeReference, 0.5)
	g.AddEdge("b", "a", EdgeReference, 0.5)

	g.DetectCommunities()

	emitted := recorder.Named(events.CommunitiesDetected)
	require.Len(t, emitted, 1)
	assert.Equal(t, 2, emitted[0].Fields["node_count"])
	assert.Equal(t, 1, emitted[0].Fields["community_count"])
}
