package memgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/membank/internal/backend"
)

// hubGraph builds a star where "hub" receives edges from three spokes.
func hubGraph(t *testing.T) *Graph {
	t.Helper()
	g := newTestGraph(t, nil)
	for _, id := range []string{"hub", "s1", "s2", "s3"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge("s1", "hub", EdgeReference, 0.5)
	g.AddEdge("s2", "hub", EdgeReference, 0.5)
	g.AddEdge("s3", "hub", EdgeReference, 0.5)
	return g
}

func TestRankWithGraphBlends(t *testing.T) {
	g := hubGraph(t)
	g.ComputePageRank()

	// The spoke wins on vector score alone, but the hub's centrality
	// overtakes it under the blend.
	matches := []backend.Match{
		{Entry: backend.Entry{ID: "s1"}, Score: 0.8},
		{Entry: backend.Entry{ID: "hub"}, Score: 0.7},
	}

	results := g.RankWithGraph(matches, 0.5)
	require.Len(t, results, 2)
	assert.Equal(t, "hub", results[0].Entry.ID)
	assert.Equal(t, "s1", results[1].Entry.ID)

	// The hub has the maximum rank, so its normalized rank is 1.
	assert.InDelta(t, 1.0, results[0].PageRank, 1e-9)
	assert.InDelta(t, 0.5*0.7+0.5*1.0, results[0].CombinedScore, 1e-9)
	assert.Greater(t, results[0].CombinedScore, results[1].CombinedScore)
}

func TestRankWithGraphUnknownEntries(t *testing.T) {
	g := hubGraph(t)
	g.ComputePageRank()

	matches := []backend.Match{
		{Entry: backend.Entry{ID: "outsider"}, Score: 0.9},
		{Entry: backend.Entry{ID: "hub"}, Score: 0.1},
	}

	results := g.RankWithGraph(matches, 0.5)
	require.Len(t, results, 2)

	var outsider RankedResult
	for _, r := range results {
		if r.Entry.ID == "outsider" {
			outsider = r
		}
	}
	assert.Equal(t, 0.0, outsider.PageRank)
	assert.InDelta(t, 0.5*0.9, outsider.CombinedScore, 1e-9)
}

func TestRankWithGraphDefaultAlpha(t *testing.T) {
	g := hubGraph(t)
	g.ComputePageRank()

	matches := []backend.Match{{Entry: backend.Entry{ID: "hub"}, Score: 0.6}}

	// Negative alpha falls back to the configured 0.7.
	results := g.RankWithGraph(matches, -1)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7*0.6+0.3*1.0, results[0].CombinedScore, 1e-9)
}

func TestRankWithGraphWithoutPageRank(t *testing.T) {
	g := hubGraph(t)

	matches := []backend.Match{
		{Entry: backend.Entry{ID: "hub"}, Score: 0.3},
		{Entry: backend.Entry{ID: "s1"}, Score: 0.9},
	}

	// Without a computed PageRank only the vector score counts.
	results := g.RankWithGraph(matches, 0.5)
	require.Len(t, results, 2)
	assert.Equal(t, "s1", results[0].Entry.ID)
	assert.Equal(t, 0.0, results[0].PageRank)
	assert.Empty(t, results[0].Community)
}

func TestRankWithGraphCommunityLabels(t *testing.T) {
	g := hubGraph(t)
	g.AddEdge("hub", "s1", EdgeReference, 0.5)
	g.ComputePageRank()
	g.DetectCommunities()

	matches := []backend.Match{{Entry: backend.Entry{ID: "s1"}, Score: 0.9}}
	results := g.RankWithGraph(matches, 0.5)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Community)
}

func TestGetTopNodes(t *testing.T) {
	g := hubGraph(t)
	g.ComputePageRank()

	top := g.GetTopNodes(2)
	require.Len(t, top, 2)
	assert.Equal(t, "hub", top[0].ID)
	assert.Greater(t, top[0].Rank, top[1].Rank)

	// Asking for more than exists returns everything.
	assert.Len(t, g.GetTopNodes(10), 4)
	assert.Nil(t, g.GetTopNodes(0))

	empty := newTestGraph(t, nil)
	assert.Nil(t, empty.GetTopNodes(3))
}

func TestGetStats(t *testing.T) {
	g := newTestGraph(t, nil)

	empty := g.GetStats()
	assert.Equal(t, 0, empty.NodeCount)
	assert.Equal(t, 0.0, empty.AvgOutDegree)

	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddEdge("a", "b", EdgeReference, 0.5)

	stats := g.GetStats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.InDelta(t, 0.5, stats.AvgOutDegree, 1e-9)
	assert.False(t, stats.PageRankComputed)
	assert.Equal(t, 0.0, stats.MinRank)
	assert.Equal(t, 0.0, stats.MaxRank)
	assert.Equal(t, 0, stats.CommunityCount)

	g.ComputePageRank()
	g.DetectCommunities()

	stats = g.GetStats()
	assert.True(t, stats.PageRankComputed)
	assert.Greater(t, stats.MaxRank, stats.MinRank)
	assert.Greater(t, stats.MinRank, 0.0)
	assert.InDelta(t, 1.0, stats.MinRank+stats.MaxRank, 1e-2)
	assert.Equal(t, 1, stats.CommunityCount)
}
