package reasoningbank

import (
	"errors"
	"time"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Common errors for reasoning-bank operations.
var (
	// ErrIncompleteTrajectory is returned when judging a trajectory whose
	// IsComplete flag is false. The caller must fix the precondition; the
	// judge never retries internally.
	ErrIncompleteTrajectory = errors.New("cannot judge incomplete trajectory")

	// ErrEmptyTrajectoryID is returned when storing a trajectory without an id.
	ErrEmptyTrajectoryID = errors.New("trajectory ID cannot be empty")

	// ErrEmptyMemoryID is returned when inserting a memory without an id.
	ErrEmptyMemoryID = errors.New("memory ID cannot be empty")
)

// TrajectoryStep is one state transition in a task execution.
// Steps are immutable once appended.
type TrajectoryStep struct {
	// Action is an opaque identifier of the action taken.
	Action string `json:"action"`

	// StateAfter is the dense state vector after the action. All steps of
	// a trajectory share one dimension.
	StateAfter []float32 `json:"state_after"`

	// Reward is the step reward. Higher is better; roughly 0..1 by
	// convention but not clamped.
	Reward float64 `json:"reward"`
}

// TrajectoryVerdict is the judge's evaluation of a completed trajectory.
type TrajectoryVerdict struct {
	// Success indicates the trajectory met the distillation threshold and
	// had a majority of positive steps.
	Success bool `json:"success"`

	// Confidence is the judge's confidence in the verdict (0..1).
	Confidence float64 `json:"confidence"`

	// Strengths lists observed positives.
	Strengths []string `json:"strengths"`

	// Weaknesses lists observed negatives.
	Weaknesses []string `json:"weaknesses"`

	// Improvements lists suggestions keyed off the weaknesses.
	Improvements []string `json:"improvements"`

	// RelevanceScore blends quality with recency decay (0..1).
	RelevanceScore float64 `json:"relevance_score"`

	// JudgedAt is when the verdict was produced.
	JudgedAt time.Time `json:"judged_at"`
}

// Trajectory is an ordered record of a multi-step task execution.
//
// Trajectories and their distilled memories cross-reference each other by id
// only, never by pointer, so the two stores stay independently owned.
type Trajectory struct {
	// ID is the unique trajectory identifier.
	ID string `json:"id"`

	// Domain is a free-text category (e.g. "code", "planning").
	Domain string `json:"domain"`

	// StartTime is when the trajectory began.
	StartTime time.Time `json:"start_time"`

	// QualityScore summarizes overall trajectory quality, supplied by the
	// caller.
	QualityScore float64 `json:"quality_score"`

	// IsComplete must be true before the trajectory can be judged.
	IsComplete bool `json:"is_complete"`

	// Steps is the ordered step sequence.
	Steps []TrajectoryStep `json:"steps"`

	// Verdict is set once by the judge. Re-judging overwrites it;
	// guarding against that is the caller's responsibility.
	Verdict *TrajectoryVerdict `json:"verdict,omitempty"`

	// DistilledMemoryID links to the memory distilled from this
	// trajectory, if any. A trajectory is distilled at most once.
	DistilledMemoryID string `json:"distilled_memory_id,omitempty"`
}

// DistilledMemory is a reusable strategy extracted from a successful
// trajectory.
type DistilledMemory struct {
	// ID is the unique memory identifier, generated at distill time.
	ID string `json:"id"`

	// TrajectoryID back-references the source trajectory.
	TrajectoryID string `json:"trajectory_id"`

	// Strategy is a compact text summary of the action sequence.
	Strategy string `json:"strategy"`

	// KeyLearnings are short takeaways rendered from the verdict.
	KeyLearnings []string `json:"key_learnings"`

	// Embedding is the recency-weighted average of step state vectors.
	Embedding []float32 `json:"embedding"`

	// Quality is inherited from the source trajectory.
	Quality float64 `json:"quality"`

	// UsageCount counts external reuse; starts at 0.
	UsageCount int `json:"usage_count"`

	// Consolidated soft-excludes the memory from retrieval while
	// preserving it for audit. Set by the consolidator's contradiction
	// pass.
	Consolidated bool `json:"consolidated"`

	// LastUsed is updated when usage is recorded.
	LastUsed time.Time `json:"last_used"`

	// CreatedAt is when the memory was distilled.
	CreatedAt time.Time `json:"created_at"`
}

// RetrievalResult is one retrieved memory with its MMR scores.
type RetrievalResult struct {
	// Memory is the retrieved memory.
	Memory *DistilledMemory `json:"memory"`

	// RelevanceScore is the cosine similarity to the query (0 for
	// unrelated or mismatched vectors).
	RelevanceScore float64 `json:"relevance_score"`

	// DiversityScore is 1 minus the maximum similarity to the memories
	// selected before this one (1.0 for the first selection).
	DiversityScore float64 `json:"diversity_score"`

	// CombinedScore is the MMR score at selection time.
	CombinedScore float64 `json:"combined_score"`
}
