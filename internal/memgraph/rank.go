package memgraph

import (
	"sort"

	"github.com/fyrsmithlabs/membank/internal/backend"
)

// RankedResult is a search match reordered with graph centrality.
type RankedResult struct {
	Entry backend.Entry `json:"entry"`

	// VectorScore is the similarity score from the backend search.
	VectorScore float64 `json:"vector_score"`

	// PageRank is the entry's normalized rank, 0 when the entry is not in
	// the graph or PageRank has not been computed.
	PageRank float64 `json:"pagerank"`

	// CombinedScore is the alpha blend driving the final order.
	CombinedScore float64 `json:"combined_score"`

	// Community is the entry's community label when communities have been
	// computed, empty otherwise.
	Community string `json:"community,omitempty"`
}

// RankWithGraph reorders backend search matches by blending the vector score
// with max-normalized PageRank: alpha·vectorScore + (1-alpha)·rank. A
// negative alpha falls back to the configured rank_alpha. Matches absent
// from the graph contribute rank 0. The cached PageRank is used as-is; call
// ComputePageRank first for fresh ranks.
func (g *Graph) RankWithGraph(matches []backend.Match, alpha float64) []RankedResult {
	if alpha < 0 {
		alpha = g.cfg.RankAlpha
	}

	maxRank := 0.0
	if g.pageRankComputed {
		for _, rank := range g.ranks {
			if rank > maxRank {
				maxRank = rank
			}
		}
	}

	results := make([]RankedResult, 0, len(matches))
	for _, match := range matches {
		result := RankedResult{
			Entry:       match.Entry,
			VectorScore: match.Score,
		}
		if maxRank > 0 {
			result.PageRank = g.ranks[match.Entry.ID] / maxRank
		}
		if g.communitiesFound {
			result.Community = g.communities[match.Entry.ID]
		}
		result.CombinedScore = alpha*result.VectorScore + (1-alpha)*result.PageRank
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
	return results
}

// NodeRank is one entry in a centrality listing.
type NodeRank struct {
	ID string `json:"id"`

	// Rank is the raw PageRank value, 0 when not computed.
	Rank float64 `json:"rank"`

	// Community is the node's community label when computed.
	Community string `json:"community,omitempty"`
}

// GetTopNodes returns the n highest-ranked nodes, fewer when the graph is
// smaller. Without a computed PageRank all ranks are 0 and nodes come back
// in insertion order.
func (g *Graph) GetTopNodes(n int) []NodeRank {
	if n <= 0 || len(g.nodes) == 0 {
		return nil
	}

	all := make([]NodeRank, 0, len(g.nodes))
	for _, id := range g.order {
		nr := NodeRank{ID: id}
		if g.pageRankComputed {
			nr.Rank = g.ranks[id]
		}
		if g.communitiesFound {
			nr.Community = g.communities[id]
		}
		all = append(all, nr)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Rank > all[j].Rank
	})

	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// Stats summarizes the graph.
type Stats struct {
	NodeCount        int     `json:"node_count"`
	EdgeCount        int     `json:"edge_count"`
	AvgOutDegree     float64 `json:"avg_out_degree"`
	CommunityCount   int     `json:"community_count"`
	PageRankComputed bool    `json:"pagerank_computed"`

	// MinRank and MaxRank are 0 when PageRank has not been computed.
	MinRank float64 `json:"min_rank"`
	MaxRank float64 `json:"max_rank"`
}

// GetStats returns current graph statistics.
func (g *Graph) GetStats() Stats {
	stats := Stats{
		NodeCount:        len(g.nodes),
		EdgeCount:        g.edgeCount,
		PageRankComputed: g.pageRankComputed,
	}
	if len(g.nodes) > 0 {
		stats.AvgOutDegree = float64(g.edgeCount) / float64(len(g.nodes))
	}
	if g.communitiesFound {
		stats.CommunityCount = distinctLabels(g.communities)
	}
	if g.pageRankComputed && len(g.ranks) > 0 {
		first := true
		for _, rank := range g.ranks {
			if first || rank < stats.MinRank {
				stats.MinRank = rank
			}
			if first || rank > stats.MaxRank {
				stats.MaxRank = rank
			}
			first = false
		}
	}
	return stats
}
