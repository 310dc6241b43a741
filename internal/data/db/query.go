package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// CategoryCount is one row of a per-category alert aggregation.
type CategoryCount struct {
	Category model.AlertCategory `json:"Category"`
	Severity model.Severity      `json:"Severity"`
	Count    int                 `json:"Count"`
}

// FileAlertTotals is the per-file alert aggregate used for ranking.
type FileAlertTotals struct {
	FileID             uint   `json:"FileID"`
	FileName           string `json:"FileName"`
	FileHash           string `json:"FileHash"`
	TotalAlerts        int    `json:"TotalAlerts"`
	HighSeverityAlerts int    `json:"HighSeverityAlerts"`
}

// GetJob retrieves a job by its identifier.
func (store *GormResultStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	if err := store.db.WithContext(ctx).Preload("Files").First(&job, "id = ?", jobID).Error; err != nil {
		return nil, storeErr("error retrieving job", err)
	}
	return &job, nil
}

// ListFiles returns all files recorded under a job.
func (store *GormResultStore) ListFiles(ctx context.Context, jobID string) ([]model.File, error) {
	var files []model.File
	if err := store.db.WithContext(ctx).Where("job_id = ?", jobID).Order("id").Find(&files).Error; err != nil {
		return nil, storeErr("error listing files", err)
	}
	return files, nil
}

// DetectionsFor returns all detections in one (file, version, sanitizer)
// bucket, oldest first. Reads always partition on the version
// discriminator; pre/post joins happen only in the analyzer.
func (store *GormResultStore) DetectionsFor(ctx context.Context, fileID uint, version model.Version, sanitizerID string) ([]model.Detection, error) {
	var detections []model.Detection
	err := store.db.WithContext(ctx).
		Where("file_id = ? AND version = ? AND sanitizer_id = ?", fileID, version, sanitizerID).
		Order("id").
		Find(&detections).Error
	if err != nil {
		return nil, storeErr("error retrieving detections", err)
	}
	return detections, nil
}

// SummariesFor returns all telemetry summaries in one (file, version,
// sanitizer) bucket with their alert children preloaded.
func (store *GormResultStore) SummariesFor(ctx context.Context, fileID uint, version model.Version, sanitizerID string) ([]model.TelemetrySummary, error) {
	var summaries []model.TelemetrySummary
	err := store.db.WithContext(ctx).
		Preload("Alerts").
		Where("file_id = ? AND version = ? AND sanitizer_id = ?", fileID, version, sanitizerID).
		Order("id").
		Find(&summaries).Error
	if err != nil {
		return nil, storeErr("error retrieving telemetry summaries", err)
	}
	return summaries, nil
}

// GetAnalysis retrieves the analysis for a (job, file, sanitizer) triple.
// Returns nil without error when no analysis has been computed yet.
func (store *GormResultStore) GetAnalysis(ctx context.Context, jobID string, fileID uint, sanitizerID string) (*model.NoiseReductionAnalysis, error) {
	var analysis model.NoiseReductionAnalysis
	err := store.db.WithContext(ctx).
		Where("job_id = ? AND file_id = ? AND sanitizer_id = ?", jobID, fileID, sanitizerID).
		First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("error retrieving analysis", err)
	}
	return &analysis, nil
}

// ListAnalyses returns every analysis computed for a job.
func (store *GormResultStore) ListAnalyses(ctx context.Context, jobID string) ([]model.NoiseReductionAnalysis, error) {
	var analyses []model.NoiseReductionAnalysis
	if err := store.db.WithContext(ctx).Where("job_id = ?", jobID).Order("file_id").Find(&analyses).Error; err != nil {
		return nil, storeErr("error listing analyses", err)
	}
	return analyses, nil
}

// CategoryBreakdown aggregates alert counts per (category, severity) for
// one file and version, largest groups first.
func (store *GormResultStore) CategoryBreakdown(ctx context.Context, jobID string, fileID uint, version model.Version) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := store.db.WithContext(ctx).
		Model(&model.AlertDetail{}).
		Select("alert_details.category AS category, alert_details.severity AS severity, COUNT(*) AS count").
		Joins("JOIN telemetry_summaries ON telemetry_summaries.id = alert_details.summary_id").
		Where("telemetry_summaries.job_id = ? AND telemetry_summaries.file_id = ? AND telemetry_summaries.version = ?",
			jobID, fileID, version).
		Group("alert_details.category, alert_details.severity").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("error aggregating category breakdown", err)
	}
	return rows, nil
}

// AlertTotalsByFile aggregates per-file alert totals for one version
// across a job.
func (store *GormResultStore) AlertTotalsByFile(ctx context.Context, jobID string, version model.Version) ([]FileAlertTotals, error) {
	var rows []FileAlertTotals
	err := store.db.WithContext(ctx).
		Model(&model.TelemetrySummary{}).
		Select(`files.id AS file_id, files.name AS file_name, files.hash AS file_hash,
			SUM(telemetry_summaries.total_alerts) AS total_alerts,
			SUM(telemetry_summaries.high_severity_alerts) AS high_severity_alerts`).
		Joins("JOIN files ON files.id = telemetry_summaries.file_id").
		Where("telemetry_summaries.job_id = ? AND telemetry_summaries.version = ?", jobID, version).
		Group("files.id, files.name, files.hash").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("error aggregating alert totals", err)
	}
	return rows, nil
}
