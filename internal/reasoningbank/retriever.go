package reasoningbank

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/vectormath"
)

// Retriever selects memories for a query embedding using Maximal Marginal
// Relevance: a greedy loop that balances similarity to the query against
// redundancy with memories already selected.
type Retriever struct {
	memories *MemoryStore
	lambda   float64
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the given store. lambda is the MMR
// trade-off: 1.0 is pure relevance, 0.0 pure diversity.
func NewRetriever(memories *MemoryStore, lambda float64, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		memories: memories,
		lambda:   lambda,
		logger:   logger,
	}
}

// Retrieve returns up to k memories ranked by MMR score.
//
// Candidates are scanned in memory-store insertion order every round, so the
// first candidate wins score ties and repeated calls over an unchanged store
// return identical orderings. Soft-excluded memories are invisible here.
//
// The reported DiversityScore of a result is its diversity at selection
// time: 1 minus the maximum similarity to everything selected before it
// (1.0 for the first pick).
func (r *Retriever) Retrieve(query []float32, k int) []RetrievalResult {
	if k <= 0 {
		return nil
	}

	candidates := r.memories.Active()
	if len(candidates) == 0 {
		return nil
	}

	relevance := make([]float64, len(candidates))
	for i, m := range candidates {
		relevance[i] = vectormath.CosineSimilarity(query, m.Embedding)
	}

	selected := make([]RetrievalResult, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		var bestScore, bestDiversity float64

		for i, m := range candidates {
			if used[i] {
				continue
			}

			maxSim := 0.0
			for _, picked := range selected {
				sim := vectormath.CosineSimilarity(m.Embedding, picked.Memory.Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}
			diversity := 1 - maxSim
			score := r.lambda*relevance[i] + (1-r.lambda)*diversity

			// Strictly greater keeps the first candidate on ties.
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
				bestDiversity = diversity
			}
		}

		if bestIdx == -1 {
			break
		}

		used[bestIdx] = true
		selected = append(selected, RetrievalResult{
			Memory:         candidates[bestIdx],
			RelevanceScore: relevance[bestIdx],
			DiversityScore: bestDiversity,
			CombinedScore:  bestScore,
		})
	}

	r.logger.Debug("memories retrieved",
		zap.Int("k", k),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
	)

	return selected
}
