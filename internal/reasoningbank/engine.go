package reasoningbank

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/config"
	"github.com/fyrsmithlabs/membank/internal/events"
)

// Engine wires the full pipeline: trajectories in, verdicts, distilled
// memories, MMR retrieval, pattern promotion, and consolidation.
//
// The engine is single-writer: callers must serialize access per instance.
type Engine struct {
	cfg config.BankConfig

	trajectories *TrajectoryStore
	memories     *MemoryStore
	patterns     *PatternStore

	judge        *Judge
	distiller    *Distiller
	retriever    *Retriever
	consolidator *Consolidator

	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	observer events.Observer
}

// WithObserver injects an observer for engine events.
func WithObserver(obs events.Observer) EngineOption {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// NewEngine creates an engine from config.
func NewEngine(cfg config.BankConfig, logger *zap.Logger, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	trajectories := NewTrajectoryStore(cfg.MaxTrajectories, logger.Named("trajectories"))
	memories := NewMemoryStore(cfg.MaxMemories, logger.Named("memories"))
	patterns := NewPatternStore(logger.Named("patterns"))

	judge := NewJudge(cfg.DistillationThreshold, logger.Named("judge"))
	distiller := NewDistiller(judge, memories, cfg.DistillationThreshold, logger.Named("distiller"))
	retriever := NewRetriever(memories, cfg.MMRLambda, logger.Named("retriever"))
	consolidator := NewConsolidator(memories, patterns, cfg, options.observer, logger.Named("consolidator"))

	return &Engine{
		cfg:          cfg,
		trajectories: trajectories,
		memories:     memories,
		patterns:     patterns,
		judge:        judge,
		distiller:    distiller,
		retriever:    retriever,
		consolidator: consolidator,
		logger:       logger,
	}, nil
}

// RecordTrajectory stores a trajectory in the bounded pool.
func (e *Engine) RecordTrajectory(t *Trajectory) error {
	return e.trajectories.Store(t)
}

// Trajectory returns a stored trajectory, or nil when absent.
func (e *Engine) Trajectory(id string) *Trajectory {
	return e.trajectories.Get(id)
}

// Judge evaluates a completed trajectory.
func (e *Engine) Judge(t *Trajectory) (*TrajectoryVerdict, error) {
	return e.judge.Judge(t)
}

// Distill extracts a memory from a trajectory. Nil memory with nil error
// means nothing was worth keeping.
func (e *Engine) Distill(t *Trajectory) (*DistilledMemory, error) {
	return e.distiller.Distill(t)
}

// Retrieve returns up to k memories for the query embedding, MMR-ranked.
// Usage counts of the returned memories are incremented.
func (e *Engine) Retrieve(query []float32, k int) []RetrievalResult {
	if k <= 0 {
		k = e.cfg.RetrievalK
	}
	results := e.retriever.Retrieve(query, k)
	for _, r := range results {
		e.memories.RecordUsage(r.Memory.ID)
	}
	return results
}

// Consolidate runs one maintenance pass over memories and patterns.
func (e *Engine) Consolidate() ConsolidationResult {
	return e.consolidator.Consolidate()
}

// Memory returns a distilled memory by id, or nil when absent.
func (e *Engine) Memory(id string) *DistilledMemory {
	return e.memories.Get(id)
}

// PromoteMemory creates a pattern from a distilled memory.
func (e *Engine) PromoteMemory(memoryID, name, domain string) *Pattern {
	return e.patterns.Promote(e.memories.Get(memoryID), name, domain)
}

// EvolvePattern records a quality sample for a pattern. Unknown ids are a
// silent no-op returning nil.
func (e *Engine) EvolvePattern(patternID string, quality float64, description string) *PatternEvolution {
	return e.patterns.Evolve(patternID, quality, description)
}

// Pattern returns a pattern by id, or nil when absent.
func (e *Engine) Pattern(id string) *Pattern {
	return e.patterns.Get(id)
}

// LearnOutcome reports one pass of the learn pipeline.
type LearnOutcome struct {
	// Success mirrors the verdict.
	Success bool `json:"success"`

	// MemoryID is the distilled memory, when one was created.
	MemoryID string `json:"memory_id,omitempty"`

	// Confidence is the verdict confidence.
	Confidence float64 `json:"confidence"`
}

// Learn runs the full store -> judge -> distill pipeline for a trajectory.
// Failing to distill (nothing worth keeping) is a normal outcome, not an
// error.
func (e *Engine) Learn(t *Trajectory) (*LearnOutcome, error) {
	if err := e.trajectories.Store(t); err != nil {
		return nil, fmt.Errorf("storing trajectory: %w", err)
	}

	verdict, err := e.judge.Judge(t)
	if err != nil {
		return nil, fmt.Errorf("judging trajectory: %w", err)
	}

	outcome := &LearnOutcome{
		Success:    verdict.Success,
		Confidence: verdict.Confidence,
	}

	if verdict.Success {
		memory, err := e.distiller.Distill(t)
		if err != nil {
			return nil, fmt.Errorf("distilling trajectory: %w", err)
		}
		if memory != nil {
			outcome.MemoryID = memory.ID
		}
	}

	return outcome, nil
}

// Stats summarizes the engine's stores.
type Stats struct {
	TrajectoryCount int     `json:"trajectory_count"`
	MemoryCount     int     `json:"memory_count"`
	PatternCount    int     `json:"pattern_count"`
	AvgQuality      float64 `json:"avg_quality"`
	AvgSuccessRate  float64 `json:"avg_success_rate"`
}

// Stats returns store sizes and quality averages.
func (e *Engine) Stats() Stats {
	stats := Stats{
		TrajectoryCount: e.trajectories.Len(),
		MemoryCount:     e.memories.Len(),
		PatternCount:    e.patterns.Len(),
	}

	memories := e.memories.List()
	if len(memories) > 0 {
		var sum float64
		for _, m := range memories {
			sum += m.Quality
		}
		stats.AvgQuality = sum / float64(len(memories))
	}

	patterns := e.patterns.List()
	if len(patterns) > 0 {
		var sum float64
		for _, p := range patterns {
			sum += p.SuccessRate
		}
		stats.AvgSuccessRate = sum / float64(len(patterns))
	}

	return stats
}
