package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// ErrStoreUnavailable indicates the persistence layer cannot be
// reached. It is retryable; retry policy belongs to the caller.
var ErrStoreUnavailable = errors.New("result store unavailable")

// ErrIntegrityViolation indicates a write that would break a store
// invariant. The whole write group is rejected, never partially applied.
var ErrIntegrityViolation = errors.New("integrity violation")

// ResultStore defines the persistence contract for telemetry, scan
// results and computed analyses.
type ResultStore interface {
	// InsertJob records a new batch job.
	InsertJob(ctx context.Context, job *model.Job) error
	// UpdateJobProgress mutates a job's processed counter and lifecycle status.
	UpdateJobProgress(ctx context.Context, jobID string, processed int, status model.JobStatus) error
	// GetJob retrieves a job by its identifier.
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	// InsertFile records one input artifact under a job.
	InsertFile(ctx context.Context, file *model.File) error
	// ListFiles returns all files recorded under a job.
	ListFiles(ctx context.Context, jobID string) ([]model.File, error)
	// InsertDetection appends one anti-malware scan outcome.
	InsertDetection(ctx context.Context, d *model.Detection) error
	// InsertTelemetrySummary writes a summary and its alert children as
	// one atomic unit; either all children are visible with the parent
	// or none are.
	InsertTelemetrySummary(ctx context.Context, s *model.TelemetrySummary) error
	// UpsertAnalysis writes an analysis keyed by (job, file, sanitizer)
	// with last-write-wins semantics.
	UpsertAnalysis(ctx context.Context, a *model.NoiseReductionAnalysis) error
	// GetAnalysis retrieves the analysis for a (job, file, sanitizer) triple.
	GetAnalysis(ctx context.Context, jobID string, fileID uint, sanitizerID string) (*model.NoiseReductionAnalysis, error)
	// ListAnalyses returns every analysis computed for a job.
	ListAnalyses(ctx context.Context, jobID string) ([]model.NoiseReductionAnalysis, error)
	// DetectionsFor returns all detections in one (file, version, sanitizer) bucket.
	DetectionsFor(ctx context.Context, fileID uint, version model.Version, sanitizerID string) ([]model.Detection, error)
	// SummariesFor returns all telemetry summaries in one (file, version, sanitizer) bucket.
	SummariesFor(ctx context.Context, fileID uint, version model.Version, sanitizerID string) ([]model.TelemetrySummary, error)
	// CategoryBreakdown aggregates alert counts per category and
	// severity for one file and version.
	CategoryBreakdown(ctx context.Context, jobID string, fileID uint, version model.Version) ([]CategoryCount, error)
	// AlertTotalsByFile aggregates per-file alert totals for one
	// version across a job.
	AlertTotalsByFile(ctx context.Context, jobID string, version model.Version) ([]FileAlertTotals, error)
}

// GormResultStore implements the ResultStore interface using a GORM DB connection.
type GormResultStore struct {
	db *gorm.DB
}

// NewGormResultStore creates a new GormResultStore.
func NewGormResultStore(db *gorm.DB) (*GormResultStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	return &GormResultStore{db: db}, nil
}

// Migrate creates or updates the schema for every stored entity.
func (store *GormResultStore) Migrate() error {
	err := store.db.AutoMigrate(
		&model.Job{},
		&model.File{},
		&model.Detection{},
		&model.TelemetrySummary{},
		&model.AlertDetail{},
		&model.NoiseReductionAnalysis{},
	)
	if err != nil {
		return fmt.Errorf("error migrating schema: %w", err)
	}
	return nil
}

// storeErr wraps a database error, classifying connection-level
// failures onto ErrStoreUnavailable so callers can branch on
// retryability with errors.Is.
func storeErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable reports whether err indicates the store cannot be
// reached, as opposed to a rejected statement.
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// database/sql reports a closed pool with an unexported error value.
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// checkVersionDiscipline enforces the sanitizer discipline: a
// post-sanitization row must carry the sanitizer that produced its
// input, a pre-sanitization row must not.
func checkVersionDiscipline(version model.Version, sanitizerID string) error {
	if !version.Valid() {
		return fmt.Errorf("%w: unknown version %q", ErrIntegrityViolation, version)
	}
	if version == model.VersionPostSanitization && sanitizerID == "" {
		return fmt.Errorf("%w: post-sanitization row requires a sanitizer id", ErrIntegrityViolation)
	}
	if version == model.VersionPreSanitization && sanitizerID != "" {
		return fmt.Errorf("%w: pre-sanitization row cannot carry a sanitizer id", ErrIntegrityViolation)
	}
	return nil
}
