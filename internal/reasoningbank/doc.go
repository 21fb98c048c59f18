// Package reasoningbank implements trajectory-based memory learning:
// episodic task executions are judged, distilled into reusable memories,
// retrieved with diversity-aware ranking, and periodically consolidated.
//
// The pipeline has four steps:
//
//  1. Judge: evaluate a completed trajectory into a verdict (success,
//     confidence, strengths, weaknesses, relevance).
//  2. Distill: turn a successful judged trajectory into a DistilledMemory
//     with a recency-weighted aggregate embedding.
//  3. Retrieve: select top-k memories for a query embedding using Maximal
//     Marginal Relevance (MMR), balancing relevance against redundancy.
//  4. Consolidate: deduplicate near-identical memories, soft-exclude
//     contradictions, and prune or merge derived patterns.
//
// All stores are bounded. The trajectory pool trims itself to 80% of
// capacity evicting lowest quality first; the memory store evicts its
// lowest-quality entry on overflow. Components are single-writer per
// instance and offer no internal synchronization beyond that.
package reasoningbank
