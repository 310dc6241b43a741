package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
	"github.com/ChrisDHolman/EDR-Proof/internal/log"
)

// InsertJob records a new batch job.
func (store *GormResultStore) InsertJob(ctx context.Context, job *model.Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("%w: job id is required", ErrIntegrityViolation)
	}
	if err := store.db.WithContext(ctx).Create(job).Error; err != nil {
		return storeErr("error creating job", err)
	}
	return nil
}

// UpdateJobProgress mutates a job's processed counter and lifecycle status.
func (store *GormResultStore) UpdateJobProgress(ctx context.Context, jobID string, processed int, status model.JobStatus) error {
	result := store.db.WithContext(ctx).Model(&model.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{"processed_files": processed, "status": status})
	if result.Error != nil {
		return storeErr("error updating job progress", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// InsertFile records one input artifact under a job.
func (store *GormResultStore) InsertFile(ctx context.Context, file *model.File) error {
	if file == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if file.JobID == "" {
		return fmt.Errorf("%w: file requires a job id", ErrIntegrityViolation)
	}
	logger := log.NewLogger(ctx)
	logger.Debug("InsertFile", zap.String("job_id", file.JobID), zap.String("name", file.Name))

	if err := store.db.WithContext(ctx).Create(file).Error; err != nil {
		return storeErr("error creating file", err)
	}
	return nil
}

// InsertDetection appends one anti-malware scan outcome. Detections are
// append-only history; there is no update path.
func (store *GormResultStore) InsertDetection(ctx context.Context, d *model.Detection) error {
	if d == nil {
		return fmt.Errorf("detection cannot be nil")
	}
	if err := checkVersionDiscipline(d.Version, d.SanitizerID); err != nil {
		return err
	}
	logger := log.NewLogger(ctx)
	logger.Debug("InsertDetection",
		zap.Uint("file_id", d.FileID),
		zap.String("engine", d.Engine),
		zap.String("version", string(d.Version)))

	if err := store.db.WithContext(ctx).Create(d).Error; err != nil {
		return storeErr("error creating detection", err)
	}
	return nil
}

// InsertTelemetrySummary writes a summary and its alert children in one
// transaction. The count caches are recomputed from the children before
// the write; vendor-reported totals are never trusted.
func (store *GormResultStore) InsertTelemetrySummary(ctx context.Context, s *model.TelemetrySummary) error {
	if s == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	if err := checkVersionDiscipline(s.Version, s.SanitizerID); err != nil {
		return err
	}
	logger := log.NewLogger(ctx)
	logger.Debug("InsertTelemetrySummary",
		zap.Uint("file_id", s.FileID),
		zap.String("vendor", s.Vendor),
		zap.String("version", string(s.Version)),
		zap.Int("alerts", len(s.Alerts)))

	s.RecountFromChildren()

	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return fmt.Errorf("error inserting telemetry summary: %w", err)
		}
		if s.ID == 0 {
			return fmt.Errorf("%w: telemetry summary id is 0 after insert", ErrIntegrityViolation)
		}
		return nil
	})
	if err != nil {
		return storeErr("transaction failed", err)
	}
	return nil
}

// UpsertAnalysis writes an analysis row keyed by (job, file, sanitizer).
// Concurrent upserts for the same key resolve last-write-wins, which is
// acceptable because analysis is a deterministic function of stored
// telemetry.
func (store *GormResultStore) UpsertAnalysis(ctx context.Context, a *model.NoiseReductionAnalysis) error {
	if a == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	if a.JobID == "" || a.FileID == 0 {
		return fmt.Errorf("%w: analysis requires job and file ids", ErrIntegrityViolation)
	}
	logger := log.NewLogger(ctx)
	logger.Debug("UpsertAnalysis",
		zap.String("job_id", a.JobID),
		zap.Uint("file_id", a.FileID),
		zap.String("sanitizer", a.SanitizerID))

	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "file_id"}, {Name: "sanitizer_id"}},
		UpdateAll: true,
	}).Create(a).Error
	if err != nil {
		return storeErr("error upserting analysis", err)
	}
	return nil
}
