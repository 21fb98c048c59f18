package memgraph

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/events"
)

// DetectCommunities partitions the graph by label propagation and caches the
// result.
//
// Every node starts with its own id as label. Each pass, every node adopts
// the most frequent label among its neighbors, treating edges as undirected;
// ties break to the lexicographically smallest label. Passes repeat until no
// label changes or the iteration cap is reached. Isolated nodes keep their
// own label and form singleton communities.
//
// The returned map is the cache itself; callers must not mutate it.
func (g *Graph) DetectCommunities() map[string]string {
	labels := make(map[string]string, len(g.nodes))
	for _, id := range g.order {
		labels[id] = id
	}

	iterations := 0
	for iter := 0; iter < g.cfg.CommunityMaxIterations; iter++ {
		iterations = iter + 1
		changed := false

		for _, id := range g.order {
			best, ok := g.majorityLabel(id, labels)
			if !ok {
				continue
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	g.communities = labels
	g.communitiesFound = true

	count := distinctLabels(labels)
	events.Emit(g.observer, events.CommunitiesDetected, map[string]interface{}{
		"node_count":      len(g.nodes),
		"community_count": count,
		"iterations":      iterations,
	})
	g.logger.Debug("communities detected",
		zap.Int("node_count", len(g.nodes)),
		zap.Int("community_count", count),
		zap.Int("iterations", iterations),
	)

	return g.communities
}

// majorityLabel returns the most frequent label among a node's undirected
// neighbors, ties broken to the smallest label. ok is false for isolated
// nodes.
func (g *Graph) majorityLabel(id string, labels map[string]string) (string, bool) {
	counts := make(map[string]int)
	for target := range g.outgoing[id] {
		counts[labels[target]]++
	}
	for source := range g.incoming[id] {
		counts[labels[source]]++
	}
	if len(counts) == 0 {
		return "", false
	}

	best := ""
	bestCount := 0
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
		}
	}
	return best, true
}

func distinctLabels(labels map[string]string) int {
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		seen[label] = true
	}
	return len(seen)
}
