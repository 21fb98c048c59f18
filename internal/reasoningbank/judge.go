package reasoningbank

import (
	"math"

	"go.uber.org/zap"
)

// Threshold rules for strengths and weaknesses. The exact values are part of
// the judge's contract and are asserted by tests.
const (
	highAvgRewardThreshold   = 0.7
	positiveSlopeThreshold   = 0.2
	highQualityThreshold     = 0.8
	efficientStepCount       = 5
	efficientQualityFloor    = 0.6
	lowAvgRewardThreshold    = 0.4
	decliningSlopeThreshold  = -0.1
	positiveRatioFloor       = 0.5
	longTrajectoryStepCount  = 10
	mediocreQualityCeiling   = 0.7
	positiveStepReward       = 0.5
	successPositiveRatioGate = 0.6

	// relevanceDecayDays controls the recency decay of relevance scores.
	relevanceDecayDays = 30.0
)

// Judge evaluates completed trajectories into verdicts. It is a pure
// function of the trajectory's steps, quality score, and age; the only side
// effect is attaching the verdict to the trajectory.
type Judge struct {
	distillationThreshold float64
	logger                *zap.Logger
}

// NewJudge creates a judge with the given distillation threshold.
func NewJudge(distillationThreshold float64, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{
		distillationThreshold: distillationThreshold,
		logger:                logger,
	}
}

// Judge evaluates a trajectory and attaches the verdict to it.
//
// Returns ErrIncompleteTrajectory when the trajectory is not complete.
// Re-judging simply recomputes and overwrites; there is no guard.
func (j *Judge) Judge(t *Trajectory) (*TrajectoryVerdict, error) {
	if t == nil || !t.IsComplete {
		return nil, ErrIncompleteTrajectory
	}

	stats := computeStepStats(t.Steps)

	verdict := &TrajectoryVerdict{
		Success:    t.QualityScore >= j.distillationThreshold && stats.positiveRatio > successPositiveRatioGate,
		Confidence: j.confidence(t, stats),
		JudgedAt:   timeNow(),
	}

	verdict.Strengths = j.strengths(t, stats)
	verdict.Weaknesses = j.weaknesses(t, stats)
	verdict.Improvements = j.improvements(verdict.Weaknesses)
	verdict.RelevanceScore = j.relevance(t)

	t.Verdict = verdict

	j.logger.Debug("trajectory judged",
		zap.String("trajectory_id", t.ID),
		zap.Bool("success", verdict.Success),
		zap.Float64("confidence", verdict.Confidence),
		zap.Float64("relevance", verdict.RelevanceScore),
	)

	return verdict, nil
}

type stepStats struct {
	avgReward     float64
	positiveRatio float64
	slope         float64
	count         int
}

// computeStepStats derives reward statistics. Slope is the last reward minus
// the first, 0 when the trajectory has at most one step.
func computeStepStats(steps []TrajectoryStep) stepStats {
	stats := stepStats{count: len(steps)}
	if len(steps) == 0 {
		return stats
	}

	var sum float64
	var positive int
	for _, step := range steps {
		sum += step.Reward
		if step.Reward > positiveStepReward {
			positive++
		}
	}

	stats.avgReward = sum / float64(len(steps))
	stats.positiveRatio = float64(positive) / float64(len(steps))
	if len(steps) > 1 {
		stats.slope = steps[len(steps)-1].Reward - steps[0].Reward
	}

	return stats
}

// confidence blends step count, positive ratio, and how decisive the quality
// score is (distance from 0.5).
func (j *Judge) confidence(t *Trajectory, stats stepStats) float64 {
	stepTerm := float64(stats.count) / 10.0
	if stepTerm > 1 {
		stepTerm = 1
	}
	decisiveness := math.Abs(t.QualityScore-0.5) * 2

	return 0.3*stepTerm + 0.4*stats.positiveRatio + 0.3*decisiveness
}

func (j *Judge) strengths(t *Trajectory, stats stepStats) []string {
	strengths := make([]string, 0, 4)

	if stats.avgReward > highAvgRewardThreshold {
		strengths = append(strengths, "high average reward")
	}
	if stats.slope > positiveSlopeThreshold {
		strengths = append(strengths, "positive trajectory")
	}
	if t.QualityScore > highQualityThreshold {
		strengths = append(strengths, "high quality")
	}
	if stats.count < efficientStepCount && t.QualityScore > efficientQualityFloor {
		strengths = append(strengths, "efficient")
	}

	return strengths
}

func (j *Judge) weaknesses(t *Trajectory, stats stepStats) []string {
	weaknesses := make([]string, 0, 4)

	if stats.avgReward < lowAvgRewardThreshold {
		weaknesses = append(weaknesses, "low average reward")
	}
	if stats.slope < decliningSlopeThreshold {
		weaknesses = append(weaknesses, "declining")
	}
	if stats.positiveRatio < positiveRatioFloor {
		weaknesses = append(weaknesses, "many negative/neutral steps")
	}
	if stats.count > longTrajectoryStepCount && t.QualityScore < mediocreQualityCeiling {
		weaknesses = append(weaknesses, "long trajectory, mediocre outcome")
	}

	return weaknesses
}

// improvements maps each fired weakness to a templated suggestion.
func (j *Judge) improvements(weaknesses []string) []string {
	templates := map[string]string{
		"low average reward":                "favor actions with higher expected reward",
		"declining":                         "reassess the strategy when rewards start declining",
		"many negative/neutral steps":       "increase the proportion of clearly positive steps",
		"long trajectory, mediocre outcome": "reduce step count or split the task",
	}

	improvements := make([]string, 0, len(weaknesses))
	for _, w := range weaknesses {
		if suggestion, ok := templates[w]; ok {
			improvements = append(improvements, suggestion)
		}
	}

	return improvements
}

// relevance decays with trajectory age: 0.7*quality + 0.3*exp(-ageDays/30).
func (j *Judge) relevance(t *Trajectory) float64 {
	ageDays := timeNow().Sub(t.StartTime).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 0.7*t.QualityScore + 0.3*math.Exp(-ageDays/relevanceDecayDays)
}
