// Package config provides configuration loading for the membank engine.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file,
// and MEMBANK_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the engine.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Bank    BankConfig    `koanf:"bank"`
	Graph   GraphConfig   `koanf:"graph"`
	Backend BackendConfig `koanf:"backend"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the encoder: json or console.
	Format string `koanf:"format"`
}

// BankConfig holds reasoning-bank tunables.
type BankConfig struct {
	// MaxTrajectories bounds the trajectory pool. When exceeded, the pool
	// is trimmed back to 80% of max, evicting lowest quality first.
	MaxTrajectories int `koanf:"max_trajectories"`

	// MaxMemories bounds the distilled-memory store.
	MaxMemories int `koanf:"max_memories"`

	// VectorDimension is the embedding dimension for distilled memories.
	VectorDimension int `koanf:"vector_dimension"`

	// DistillationThreshold is the minimum trajectory quality for
	// distillation and for a successful verdict.
	DistillationThreshold float64 `koanf:"distillation_threshold"`

	// MMRLambda balances relevance against diversity in retrieval.
	// Higher values favor relevance.
	MMRLambda float64 `koanf:"mmr_lambda"`

	// RetrievalK is the default number of memories to retrieve.
	RetrievalK int `koanf:"retrieval_k"`

	// DedupThreshold is the similarity above which two memories are
	// duplicates.
	DedupThreshold float64 `koanf:"dedup_threshold"`

	// MergeThreshold is the similarity above which two same-domain
	// patterns are merged.
	MergeThreshold float64 `koanf:"merge_threshold"`

	// DetectContradictions gates the consolidator's contradiction pass.
	DetectContradictions bool `koanf:"detect_contradictions"`

	// MaxPatternAge is the age beyond which low-usage patterns are pruned.
	MaxPatternAge Duration `koanf:"max_pattern_age"`

	// MinUsageForRetention is the usage count that protects a pattern
	// from age-based pruning.
	MinUsageForRetention int `koanf:"min_usage_for_retention"`
}

// GraphConfig holds memory-graph tunables.
type GraphConfig struct {
	// MaxNodes caps the graph. At capacity, adding a new node id is a
	// silent no-op.
	MaxNodes int `koanf:"max_nodes"`

	// PageRankDamping is the PageRank damping factor d.
	PageRankDamping float64 `koanf:"pagerank_damping"`

	// PageRankMaxIterations bounds power iteration.
	PageRankMaxIterations int `koanf:"pagerank_max_iterations"`

	// PageRankTolerance is the L1 convergence threshold.
	PageRankTolerance float64 `koanf:"pagerank_tolerance"`

	// CommunityMaxIterations bounds label propagation.
	CommunityMaxIterations int `koanf:"community_max_iterations"`

	// DefaultEdgeWeight is used when AddEdge is called without a weight.
	DefaultEdgeWeight float64 `koanf:"default_edge_weight"`

	// SimilarityThreshold is the minimum score for AddSimilarityEdges.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// SimilarityLimit caps backend search results in AddSimilarityEdges.
	SimilarityLimit int `koanf:"similarity_limit"`

	// RankAlpha blends vector score against normalized PageRank in
	// RankWithGraph. Higher values favor the vector score.
	RankAlpha float64 `koanf:"rank_alpha"`
}

// BackendConfig selects and configures the storage backend.
type BackendConfig struct {
	// Kind is the backend implementation: "memory" or "chromem".
	Kind string `koanf:"kind"`

	// Chromem configures the chromem-go backend when Kind is "chromem".
	Chromem ChromemBackendConfig `koanf:"chromem"`
}

// ChromemBackendConfig mirrors backend.ChromemConfig for file/env loading.
type ChromemBackendConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Bank: BankConfig{
			MaxTrajectories:       1000,
			MaxMemories:           5000,
			VectorDimension:       384,
			DistillationThreshold: 0.6,
			MMRLambda:             0.7,
			RetrievalK:            5,
			DedupThreshold:        0.95,
			MergeThreshold:        0.9,
			DetectContradictions:  false,
			MaxPatternAge:         Duration(30 * 24 * time.Hour),
			MinUsageForRetention:  5,
		},
		Graph: GraphConfig{
			MaxNodes:               10000,
			PageRankDamping:        0.85,
			PageRankMaxIterations:  50,
			PageRankTolerance:      1e-6,
			CommunityMaxIterations: 20,
			DefaultEdgeWeight:      0.5,
			SimilarityThreshold:    0.7,
			SimilarityLimit:        5,
			RankAlpha:              0.7,
		},
		Backend: BackendConfig{
			Kind: "memory",
			Chromem: ChromemBackendConfig{
				Collection: "membank_entries",
				VectorSize: 384,
			},
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if err := c.Bank.Validate(); err != nil {
		return fmt.Errorf("bank: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	switch c.Backend.Kind {
	case "memory", "chromem":
	default:
		return fmt.Errorf("backend: unknown kind %q", c.Backend.Kind)
	}
	return nil
}

// Validate checks bank tunables.
func (c *BankConfig) Validate() error {
	if c.MaxTrajectories <= 0 {
		return fmt.Errorf("max_trajectories must be positive")
	}
	if c.MaxMemories <= 0 {
		return fmt.Errorf("max_memories must be positive")
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("vector_dimension must be positive")
	}
	if c.DistillationThreshold < 0 || c.DistillationThreshold > 1 {
		return fmt.Errorf("distillation_threshold must be in [0,1]")
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("mmr_lambda must be in [0,1]")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("dedup_threshold must be in (0,1]")
	}
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		return fmt.Errorf("merge_threshold must be in (0,1]")
	}
	return nil
}

// Validate checks graph tunables.
func (c *GraphConfig) Validate() error {
	if c.MaxNodes <= 0 {
		return fmt.Errorf("max_nodes must be positive")
	}
	if c.PageRankDamping <= 0 || c.PageRankDamping >= 1 {
		return fmt.Errorf("pagerank_damping must be in (0,1)")
	}
	if c.PageRankMaxIterations <= 0 {
		return fmt.Errorf("pagerank_max_iterations must be positive")
	}
	if c.PageRankTolerance <= 0 {
		return fmt.Errorf("pagerank_tolerance must be positive")
	}
	if c.DefaultEdgeWeight <= 0 || c.DefaultEdgeWeight > 1 {
		return fmt.Errorf("default_edge_weight must be in (0,1]")
	}
	if c.RankAlpha < 0 || c.RankAlpha > 1 {
		return fmt.Errorf("rank_alpha must be in [0,1]")
	}
	return nil
}
