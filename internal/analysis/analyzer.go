// Package analysis computes pre/post-sanitization noise reduction
// metrics from stored telemetry. Analysis is a deterministic pure
// function of the store contents: recomputing for the same triple
// yields the same row, so upserts are safe to repeat as telemetry
// arrives incrementally.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ChrisDHolman/EDR-Proof/internal/config"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/db"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
	"github.com/ChrisDHolman/EDR-Proof/internal/log"
)

// Rating thresholds on the composite noise reduction score.
const (
	excellentThreshold = 80
	goodThreshold      = 60
	fairThreshold      = 40
)

// Analyzer computes NoiseReductionAnalysis rows from the result store.
type Analyzer struct {
	store db.ResultStore
	cfg   config.Analysis
	now   func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock overrides the analysis timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer over the given store and scoring policy.
func New(store db.ResultStore, cfg config.Analysis, opts ...Option) (*Analyzer, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	a := &Analyzer{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze computes and upserts the noise reduction analysis for one
// (job, file, sanitizer) triple. If either the pre or post telemetry
// bucket is empty the result carries the insufficient_data status with
// zero derived fields; an empty bucket is never misread as a zero count.
func (a *Analyzer) Analyze(ctx context.Context, jobID string, fileID uint, sanitizerID string) (*model.NoiseReductionAnalysis, error) {
	if sanitizerID == "" {
		return nil, fmt.Errorf("sanitizer id is required")
	}
	logger := log.NewLogger(ctx)

	preSummaries, err := a.store.SummariesFor(ctx, fileID, model.VersionPreSanitization, "")
	if err != nil {
		return nil, fmt.Errorf("error fetching pre-sanitization telemetry: %w", err)
	}
	postSummaries, err := a.store.SummariesFor(ctx, fileID, model.VersionPostSanitization, sanitizerID)
	if err != nil {
		return nil, fmt.Errorf("error fetching post-sanitization telemetry: %w", err)
	}

	result := &model.NoiseReductionAnalysis{
		JobID:       jobID,
		FileID:      fileID,
		SanitizerID: sanitizerID,
		AnalyzedAt:  a.now().UTC(),
	}

	if len(preSummaries) == 0 || len(postSummaries) == 0 {
		result.Status = model.AnalysisInsufficientData
		logger.Info("analysis skipped, telemetry bucket empty",
			zap.String("job_id", jobID),
			zap.Uint("file_id", fileID),
			zap.Int("pre_summaries", len(preSummaries)),
			zap.Int("post_summaries", len(postSummaries)))
		if err := a.store.UpsertAnalysis(ctx, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	preDetections, err := a.store.DetectionsFor(ctx, fileID, model.VersionPreSanitization, "")
	if err != nil {
		return nil, fmt.Errorf("error fetching pre-sanitization detections: %w", err)
	}
	postDetections, err := a.store.DetectionsFor(ctx, fileID, model.VersionPostSanitization, sanitizerID)
	if err != nil {
		return nil, fmt.Errorf("error fetching post-sanitization detections: %w", err)
	}

	result.Status = model.AnalysisComplete
	result.AVPreDetections = countMalicious(preDetections)
	result.AVPostDetections = countMalicious(postDetections)
	result.AVDetectionReduction = result.AVPreDetections - result.AVPostDetections
	result.AVDetectionReductionPct = ReductionPct(result.AVPreDetections, result.AVPostDetections)
	result.AVPreAvgConfidence = avgConfidence(preDetections)
	result.AVPostAvgConfidence = avgConfidence(postDetections)

	var highPre, highPost int
	for i := range preSummaries {
		result.EDRPreAlerts += preSummaries[i].TotalAlerts
		highPre += preSummaries[i].HighSeverityAlerts
	}
	for i := range postSummaries {
		result.EDRPostAlerts += postSummaries[i].TotalAlerts
		highPost += postSummaries[i].HighSeverityAlerts
	}
	result.EDRAlertReduction = result.EDRPreAlerts - result.EDRPostAlerts
	result.EDRAlertReductionPct = ReductionPct(result.EDRPreAlerts, result.EDRPostAlerts)
	result.HighSeverityPre = highPre
	result.HighSeverityPost = highPost
	result.HighSeverityReduction = highPre - highPost

	result.NoiseReductionScore = round2(
		a.cfg.AVWeight*result.AVDetectionReductionPct +
			a.cfg.EDRWeight*result.EDRAlertReductionPct)
	result.EffectivenessRating = rate(result.NoiseReductionScore)
	result.RecommendedForProduction = result.EffectivenessRating == model.RatingExcellent ||
		result.EffectivenessRating == model.RatingGood

	result.AnalystTimeSavedHours = round2(float64(result.HighSeverityReduction) * a.cfg.TriageMinutesPerHighAlert / 60)
	result.EstimatedCostSavings = round2(result.AnalystTimeSavedHours * a.cfg.AnalystHourlyRate)

	if err := a.store.UpsertAnalysis(ctx, result); err != nil {
		return nil, err
	}
	logger.Info("analysis computed",
		zap.String("job_id", jobID),
		zap.Uint("file_id", fileID),
		zap.String("sanitizer", sanitizerID),
		zap.Float64("score", result.NoiseReductionScore),
		zap.String("rating", string(result.EffectivenessRating)))
	return result, nil
}

// ReductionPct computes the percentage reduction from pre to post.
// Zero when pre is zero. Post counts exceeding pre produce a negative
// reduction; they are never clamped to zero.
func ReductionPct(pre, post int) float64 {
	if pre == 0 {
		return 0
	}
	pct := float64(pre-post) / float64(pre) * 100
	if pct > 100 {
		pct = 100
	}
	return round2(pct)
}

func countMalicious(detections []model.Detection) int {
	var count int
	for i := range detections {
		if detections[i].Malicious {
			count++
		}
	}
	return count
}

// avgConfidence averages detection confidence over the malicious rows
// in a bucket. Zero when the bucket has no malicious rows.
func avgConfidence(detections []model.Detection) float64 {
	var sum, count int
	for i := range detections {
		if detections[i].Malicious {
			sum += detections[i].Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return round2(float64(sum) / float64(count))
}

func rate(score float64) model.EffectivenessRating {
	switch {
	case score >= excellentThreshold:
		return model.RatingExcellent
	case score >= goodThreshold:
		return model.RatingGood
	case score >= fairThreshold:
		return model.RatingFair
	default:
		return model.RatingPoor
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
