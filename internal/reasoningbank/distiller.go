package reasoningbank

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/membank/internal/vectormath"
)

// maxDistinctActionsInline is the cutoff between the "Apply A -> B -> C"
// strategy form and the multi-step summary form.
const maxDistinctActionsInline = 3

// maxKeyLearnings caps the learnings rendered into a distilled memory.
const maxKeyLearnings = 2

// Distiller turns judged trajectories into distilled memories.
type Distiller struct {
	judge     *Judge
	memories  *MemoryStore
	threshold float64
	logger    *zap.Logger
}

// NewDistiller creates a distiller writing into the given memory store.
func NewDistiller(judge *Judge, memories *MemoryStore, threshold float64, logger *zap.Logger) *Distiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distiller{
		judge:     judge,
		memories:  memories,
		threshold: threshold,
		logger:    logger,
	}
}

// Distill extracts a reusable memory from a trajectory.
//
// If the trajectory has no verdict yet it is judged first (which requires it
// to be complete). A nil memory with a nil error means "nothing worth
// keeping": the verdict was unsuccessful or the quality is below threshold.
// A trajectory is distilled at most once; repeated calls return the existing
// memory.
func (d *Distiller) Distill(t *Trajectory) (*DistilledMemory, error) {
	if t == nil {
		return nil, ErrIncompleteTrajectory
	}

	if t.DistilledMemoryID != "" {
		return d.memories.Get(t.DistilledMemoryID), nil
	}

	if t.Verdict == nil {
		if _, err := d.judge.Judge(t); err != nil {
			return nil, fmt.Errorf("judging trajectory %s: %w", t.ID, err)
		}
	}

	if !t.Verdict.Success || t.QualityScore < d.threshold {
		d.logger.Debug("trajectory not worth keeping",
			zap.String("trajectory_id", t.ID),
			zap.Bool("success", t.Verdict.Success),
			zap.Float64("quality", t.QualityScore),
		)
		return nil, nil
	}

	now := timeNow()
	memory := &DistilledMemory{
		ID:           uuid.New().String(),
		TrajectoryID: t.ID,
		Strategy:     summarizeStrategy(t.Steps),
		KeyLearnings: extractKeyLearnings(t.Verdict),
		Embedding:    aggregateEmbedding(t.Steps),
		Quality:      t.QualityScore,
		UsageCount:   0,
		LastUsed:     now,
		CreatedAt:    now,
	}

	if err := d.memories.Insert(memory); err != nil {
		return nil, fmt.Errorf("storing memory: %w", err)
	}
	t.DistilledMemoryID = memory.ID

	d.logger.Info("memory distilled",
		zap.String("memory_id", memory.ID),
		zap.String("trajectory_id", t.ID),
		zap.Float64("quality", memory.Quality),
		zap.Int("embedding_dim", len(memory.Embedding)),
	)

	return memory, nil
}

// summarizeStrategy compacts the distinct action names, preserving first
// occurrence order. Up to three distinct actions render inline; longer
// sequences show the first three.
func summarizeStrategy(steps []TrajectoryStep) string {
	seen := make(map[string]bool, len(steps))
	distinct := make([]string, 0, len(steps))
	for _, step := range steps {
		if step.Action == "" || seen[step.Action] {
			continue
		}
		seen[step.Action] = true
		distinct = append(distinct, step.Action)
	}

	if len(distinct) == 0 {
		return "No recorded actions"
	}
	if len(distinct) <= maxDistinctActionsInline {
		return "Apply " + strings.Join(distinct, " -> ")
	}
	return fmt.Sprintf("Multi-step approach: %s...", strings.Join(distinct[:maxDistinctActionsInline], ", "))
}

// extractKeyLearnings renders up to two takeaways from the verdict,
// preferring strengths over improvement suggestions.
func extractKeyLearnings(verdict *TrajectoryVerdict) []string {
	learnings := make([]string, 0, maxKeyLearnings)
	for _, s := range verdict.Strengths {
		if len(learnings) >= maxKeyLearnings {
			break
		}
		learnings = append(learnings, "Strength: "+s)
	}
	for _, imp := range verdict.Improvements {
		if len(learnings) >= maxKeyLearnings {
			break
		}
		learnings = append(learnings, "Improve: "+imp)
	}
	return learnings
}

// aggregateEmbedding averages step state vectors with weight (i+1)/N, so
// later steps contribute more. The output dimension matches the step state
// vectors.
func aggregateEmbedding(steps []TrajectoryStep) []float32 {
	dim := 0
	for _, step := range steps {
		if len(step.StateAfter) > 0 {
			dim = len(step.StateAfter)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	vectors := make([][]float32, len(steps))
	weights := make([]float64, len(steps))
	n := float64(len(steps))
	for i, step := range steps {
		vectors[i] = step.StateAfter
		weights[i] = float64(i+1) / n
	}

	return vectormath.WeightedAverage(vectors, weights, dim)
}
