package memgraph

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/events"
)

// ComputePageRank runs power iteration over the graph and caches the result.
//
// Each iteration distributes rank as (1-d)/N plus d times the rank flowing
// in from predecessors, where each predecessor splits its rank evenly across
// its outgoing edges. The rank mass of dangling nodes is redistributed
// uniformly, which keeps the total rank at 1.0. Iteration stops when the L1
// change drops below the configured tolerance or the iteration cap is
// reached.
//
// The returned map is the cache itself; callers must not mutate it. An empty
// graph yields an empty map without iterating.
func (g *Graph) ComputePageRank() map[string]float64 {
	n := len(g.nodes)
	if n == 0 {
		g.ranks = map[string]float64{}
		g.pageRankComputed = true
		return g.ranks
	}

	d := g.cfg.PageRankDamping
	ranks := make(map[string]float64, n)
	for _, id := range g.order {
		ranks[id] = 1.0 / float64(n)
	}

	iterations := 0
	for iter := 0; iter < g.cfg.PageRankMaxIterations; iter++ {
		iterations = iter + 1

		danglingMass := 0.0
		for _, id := range g.order {
			if g.outDegree(id) == 0 {
				danglingMass += ranks[id]
			}
		}
		base := (1.0-d)/float64(n) + d*danglingMass/float64(n)

		next := make(map[string]float64, n)
		for _, id := range g.order {
			incoming := 0.0
			for src := range g.incoming[id] {
				incoming += ranks[src] / float64(g.outDegree(src))
			}
			next[id] = base + d*incoming
		}

		delta := 0.0
		for _, id := range g.order {
			diff := next[id] - ranks[id]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		ranks = next

		if delta < g.cfg.PageRankTolerance {
			break
		}
	}

	g.ranks = ranks
	g.pageRankComputed = true

	events.Emit(g.observer, events.PageRankComputed, map[string]interface{}{
		"node_count": n,
		"iterations": iterations,
	})
	g.logger.Debug("pagerank computed",
		zap.Int("node_count", n),
		zap.Int("iterations", iterations),
	)

	return g.ranks
}
