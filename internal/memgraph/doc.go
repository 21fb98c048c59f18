// Package memgraph maintains a directed weighted graph over memory entries
// and blends graph centrality into vector search rankings.
//
// Edges come from two sources: explicit references declared by entries, and
// similarity edges discovered through a backend search. PageRank and
// community labels are derived caches: any mutation marks them stale, and
// they are recomputed only by explicit ComputePageRank and DetectCommunities
// calls.
//
// A Graph is single-writer. Callers must serialize access per instance;
// there is no internal locking.
package memgraph
