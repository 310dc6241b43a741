// Package report exposes read-only aggregation views over the result
// store and computed analyses. Every operation is a pure projection:
// nothing here mutates state, and all views are safe to call while
// ingestion is running.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/db"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// Reporter composes reporting views from the result store.
type Reporter struct {
	store db.ResultStore
}

// New creates a Reporter over the given store.
func New(store db.ResultStore) (*Reporter, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &Reporter{store: store}, nil
}

// JobSummary is the job-level rollup across all files in a job.
type JobSummary struct {
	JobID                  string          `json:"JobID"`
	Status                 model.JobStatus `json:"Status"`
	TotalFiles             int             `json:"TotalFiles"`
	ProcessedFiles         int             `json:"ProcessedFiles"`
	AnalyzedFiles          int             `json:"AnalyzedFiles"`
	InsufficientDataFiles  int             `json:"InsufficientDataFiles"`
	PreAlerts              int             `json:"PreAlerts"`
	PostAlerts             int             `json:"PostAlerts"`
	AvgNoiseReductionScore float64         `json:"AvgNoiseReductionScore"`
	AnalystTimeSavedHours  float64         `json:"AnalystTimeSavedHours"`
	EstimatedCostSavings   float64         `json:"EstimatedCostSavings"`
}

// JobSummary aggregates counts, averages and savings across every
// analysis computed for a job.
func (r *Reporter) JobSummary(ctx context.Context, jobID string) (*JobSummary, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	analyses, err := r.store.ListAnalyses(ctx, jobID)
	if err != nil {
		return nil, err
	}

	summary := &JobSummary{
		JobID:          job.ID,
		Status:         job.Status,
		TotalFiles:     job.TotalFiles,
		ProcessedFiles: job.ProcessedFiles,
	}
	var scoreSum float64
	for i := range analyses {
		a := &analyses[i]
		if a.Status != model.AnalysisComplete {
			summary.InsufficientDataFiles++
			continue
		}
		summary.AnalyzedFiles++
		summary.PreAlerts += a.EDRPreAlerts
		summary.PostAlerts += a.EDRPostAlerts
		summary.AnalystTimeSavedHours += a.AnalystTimeSavedHours
		summary.EstimatedCostSavings += a.EstimatedCostSavings
		scoreSum += a.NoiseReductionScore
	}
	if summary.AnalyzedFiles > 0 {
		summary.AvgNoiseReductionScore = scoreSum / float64(summary.AnalyzedFiles)
	}
	return summary, nil
}

// NoisiestFiles ranks files by pre-sanitization total alert count,
// descending, tie-broken by high-severity count descending. These are
// the strongest candidates to demonstrate sanitization value.
func (r *Reporter) NoisiestFiles(ctx context.Context, jobID string, limit int) ([]db.FileAlertTotals, error) {
	totals, err := r.store.AlertTotalsByFile(ctx, jobID, model.VersionPreSanitization)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].TotalAlerts != totals[j].TotalAlerts {
			return totals[i].TotalAlerts > totals[j].TotalAlerts
		}
		return totals[i].HighSeverityAlerts > totals[j].HighSeverityAlerts
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals, nil
}

// CategoryBreakdown returns per-category alert counts for one file and
// version, for charting which alert categories sanitization eliminates.
func (r *Reporter) CategoryBreakdown(ctx context.Context, jobID string, fileID uint, version model.Version) ([]db.CategoryCount, error) {
	return r.store.CategoryBreakdown(ctx, jobID, fileID, version)
}

// ExportRow is one flattened record of the full-job export: file
// identity joined with its computed analysis.
type ExportRow struct {
	JobID                    string  `json:"JobID"`
	FileName                 string  `json:"FileName"`
	FileHash                 string  `json:"FileHash"`
	SanitizerID              string  `json:"SanitizerID"`
	Status                   string  `json:"Status"`
	AVPreDetections          int     `json:"AVPreDetections"`
	AVPostDetections         int     `json:"AVPostDetections"`
	AVDetectionReductionPct  float64 `json:"AVDetectionReductionPct"`
	EDRPreAlerts             int     `json:"EDRPreAlerts"`
	EDRPostAlerts            int     `json:"EDRPostAlerts"`
	EDRAlertReductionPct     float64 `json:"EDRAlertReductionPct"`
	NoiseReductionScore      float64 `json:"NoiseReductionScore"`
	EffectivenessRating      string  `json:"EffectivenessRating"`
	RecommendedForProduction bool    `json:"RecommendedForProduction"`
	AnalystTimeSavedHours    float64 `json:"AnalystTimeSavedHours"`
	EstimatedCostSavings     float64 `json:"EstimatedCostSavings"`
}

// JobExport is the flattened full-job record set, suitable for CSV or
// JSON serialization.
type JobExport struct {
	JobID      string      `json:"JobID"`
	ExportedAt time.Time   `json:"ExportedAt"`
	Rows       []ExportRow `json:"Rows"`
}

// ExportJob builds the flattened export for a job.
func (r *Reporter) ExportJob(ctx context.Context, jobID string) (*JobExport, error) {
	files, err := r.store.ListFiles(ctx, jobID)
	if err != nil {
		return nil, err
	}
	analyses, err := r.store.ListAnalyses(ctx, jobID)
	if err != nil {
		return nil, err
	}

	fileByID := make(map[uint]*model.File, len(files))
	for i := range files {
		fileByID[files[i].ID] = &files[i]
	}

	export := &JobExport{JobID: jobID, ExportedAt: time.Now().UTC()}
	for i := range analyses {
		a := &analyses[i]
		row := ExportRow{
			JobID:                    a.JobID,
			SanitizerID:              a.SanitizerID,
			Status:                   string(a.Status),
			AVPreDetections:          a.AVPreDetections,
			AVPostDetections:         a.AVPostDetections,
			AVDetectionReductionPct:  a.AVDetectionReductionPct,
			EDRPreAlerts:             a.EDRPreAlerts,
			EDRPostAlerts:            a.EDRPostAlerts,
			EDRAlertReductionPct:     a.EDRAlertReductionPct,
			NoiseReductionScore:      a.NoiseReductionScore,
			EffectivenessRating:      string(a.EffectivenessRating),
			RecommendedForProduction: a.RecommendedForProduction,
			AnalystTimeSavedHours:    a.AnalystTimeSavedHours,
			EstimatedCostSavings:     a.EstimatedCostSavings,
		}
		if file, ok := fileByID[a.FileID]; ok {
			row.FileName = file.Name
			row.FileHash = file.Hash
		}
		export.Rows = append(export.Rows, row)
	}
	return export, nil
}
