package memgraph

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/backend"
	"github.com/fyrsmithlabs/membank/internal/config"
	"github.com/fyrsmithlabs/membank/internal/events"
)

// graphTracer for OpenTelemetry instrumentation of backend-touching
// operations.
var graphTracer = otel.Tracer("membank.memgraph")

// Edge types produced by the graph itself. Callers may use their own types;
// the graph treats the type as an opaque tag.
const (
	// EdgeReference marks an edge derived from an entry's declared
	// references.
	EdgeReference = "reference"

	// EdgeSimilar marks an edge discovered through backend similarity
	// search.
	EdgeSimilar = "similar"
)

// Node is one memory entry in the graph.
type Node struct {
	// ID is the entry id this node wraps.
	ID string `json:"id"`

	// Category is the entry's category metadata, if any.
	Category string `json:"category,omitempty"`

	// Embedding is the entry's vector, used for similarity edge discovery.
	Embedding []float32 `json:"-"`
}

// Edge is a directed weighted link between two nodes.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Graph is a capacity-bounded directed graph over memory entries with
// derived PageRank and community caches.
type Graph struct {
	cfg config.GraphConfig

	nodes map[string]*Node
	order []string

	// outgoing[src][dst] holds the edge; incoming[dst] is the reverse
	// index that keeps PageRank and node removal O(degree).
	outgoing  map[string]map[string]*Edge
	incoming  map[string]map[string]bool
	edgeCount int

	ranks            map[string]float64
	pageRankComputed bool

	communities      map[string]string
	communitiesFound bool

	observer events.Observer
	logger   *zap.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithObserver injects an observer for graph events.
func WithObserver(obs events.Observer) Option {
	return func(g *Graph) {
		g.observer = obs
	}
}

// New creates an empty graph from config.
func New(cfg config.GraphConfig, logger *zap.Logger, opts ...Option) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Graph{
		cfg:      cfg,
		nodes:    make(map[string]*Node),
		outgoing: make(map[string]map[string]*Edge),
		incoming: make(map[string]map[string]bool),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// AddNode inserts or refreshes a node. Re-adding an existing id updates the
// category and embedding in place. A new id is silently dropped when the
// graph is at capacity; callers detect the drop by checking NodeCount.
func (g *Graph) AddNode(node Node) {
	if node.ID == "" {
		return
	}

	if existing, ok := g.nodes[node.ID]; ok {
		existing.Category = node.Category
		existing.Embedding = node.Embedding
		g.markDirty()
		return
	}

	if len(g.nodes) >= g.cfg.MaxNodes {
		g.logger.Debug("graph at capacity, node dropped",
			zap.String("node_id", node.ID),
			zap.Int("max_nodes", g.cfg.MaxNodes),
		)
		return
	}

	n := node
	g.nodes[node.ID] = &n
	g.order = append(g.order, node.ID)
	g.markDirty()
}

// RemoveNode deletes a node, every edge touching it, and its cached rank and
// community entries. No-op when the id is absent.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}

	for dst := range g.outgoing[id] {
		delete(g.incoming[dst], id)
		g.edgeCount--
	}
	delete(g.outgoing, id)

	for src := range g.incoming[id] {
		delete(g.outgoing[src], id)
		g.edgeCount--
	}
	delete(g.incoming, id)

	delete(g.nodes, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	delete(g.ranks, id)
	delete(g.communities, id)
	g.markDirty()
}

// AddEdge links source to target. A non-positive weight falls back to the
// configured default. No-op when either endpoint is absent. Re-adding an
// existing edge keeps the maximum of the old and new weight, so weights
// never decrease.
func (g *Graph) AddEdge(source, target, edgeType string, weight float64) {
	g.addEdge(source, target, edgeType, weight)
}

func (g *Graph) addEdge(source, target, edgeType string, weight float64) bool {
	if _, ok := g.nodes[source]; !ok {
		return false
	}
	if _, ok := g.nodes[target]; !ok {
		return false
	}
	if weight <= 0 {
		weight = g.cfg.DefaultEdgeWeight
	}

	if existing, ok := g.outgoing[source][target]; ok {
		if weight > existing.Weight {
			existing.Weight = weight
		}
		g.markDirty()
		return false
	}

	if g.outgoing[source] == nil {
		g.outgoing[source] = make(map[string]*Edge)
	}
	g.outgoing[source][target] = &Edge{
		Source: source,
		Target: target,
		Type:   edgeType,
		Weight: weight,
	}

	if g.incoming[target] == nil {
		g.incoming[target] = make(map[string]bool)
	}
	g.incoming[target][source] = true

	g.edgeCount++
	g.markDirty()
	return true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// Node returns the node with the given id, or nil when absent.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Edge returns the edge from source to target, or nil when absent.
func (g *Graph) Edge(source, target string) *Edge {
	return g.outgoing[source][target]
}

// BuildFromBackend bulk-loads up to MaxNodes entries from the backend and
// adds a reference edge for every reference pointing at another loaded
// entry. References to entries outside the loaded set are skipped.
func (g *Graph) BuildFromBackend(ctx context.Context, store backend.Store) error {
	ctx, span := graphTracer.Start(ctx, "Graph.BuildFromBackend")
	defer span.End()

	entries, err := store.Query(ctx, backend.QueryFilter{Limit: g.cfg.MaxNodes})
	if err != nil {
		return fmt.Errorf("querying backend: %w", err)
	}

	for _, entry := range entries {
		g.AddNode(Node{
			ID:        entry.ID,
			Category:  entry.Category(),
			Embedding: entry.Embedding,
		})
	}

	edges := 0
	for _, entry := range entries {
		for _, ref := range entry.References {
			if g.addEdge(entry.ID, ref, EdgeReference, 0) {
				edges++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("nodes", len(g.nodes)),
		attribute.Int("edges", edges),
	)
	events.Emit(g.observer, events.GraphBuilt, map[string]interface{}{
		"node_count": len(g.nodes),
	})
	g.logger.Info("graph built from backend",
		zap.Int("entries", len(entries)),
		zap.Int("node_count", len(g.nodes)),
		zap.Int("reference_edges", edges),
	)

	return nil
}

// AddSimilarityEdges searches the backend for entries similar to the given
// node's embedding and links the node to each sufficiently similar distinct
// result that is present in the graph. Returns the number of edges added.
// A missing node or a node without an embedding yields 0 without error.
func (g *Graph) AddSimilarityEdges(ctx context.Context, store backend.Store, id string) (int, error) {
	ctx, span := graphTracer.Start(ctx, "Graph.AddSimilarityEdges")
	defer span.End()
	span.SetAttributes(attribute.String("node_id", id))

	node, ok := g.nodes[id]
	if !ok || len(node.Embedding) == 0 {
		return 0, nil
	}

	matches, err := store.Search(ctx, node.Embedding, backend.SearchOptions{
		Limit:    g.cfg.SimilarityLimit,
		MinScore: g.cfg.SimilarityThreshold,
	})
	if err != nil {
		return 0, fmt.Errorf("searching backend: %w", err)
	}

	added := 0
	for _, match := range matches {
		if match.Entry.ID == id {
			continue
		}
		if g.addEdge(id, match.Entry.ID, EdgeSimilar, match.Score) {
			added++
		}
	}

	span.SetAttributes(attribute.Int("edges_added", added))
	return added, nil
}

// GetNeighbors returns the ids reachable from the start node over outgoing
// edges within depth hops, excluding the start node. A non-positive depth
// means one hop. The result is sorted for determinism.
func (g *Graph) GetNeighbors(id string, depth int) []string {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	if depth <= 0 {
		depth = 1
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, current := range frontier {
			for target := range g.outgoing[current] {
				if visited[target] {
					continue
				}
				visited[target] = true
				next = append(next, target)
			}
		}
		frontier = next
	}

	delete(visited, id)
	neighbors := make([]string, 0, len(visited))
	for n := range visited {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors
}

func (g *Graph) markDirty() {
	g.pageRankComputed = false
	g.communitiesFound = false
}

func (g *Graph) outDegree(id string) int {
	return len(g.outgoing[id])
}
