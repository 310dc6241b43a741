package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ChrisDHolman/EDR-Proof/internal/config"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/db"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

func setupStore(t *testing.T) *db.GormResultStore {
	t.Helper()
	// Using a unique identifier for each database instance to ensure it's unique
	uniqueDBIdentifier := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(uniqueDBIdentifier), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	store, err := db.NewGormResultStore(conn)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	return store
}

func seedJobAndFile(t *testing.T, store *db.GormResultStore, jobID string) *model.File {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InsertJob(ctx, &model.Job{ID: jobID, Status: model.JobRunning, TotalFiles: 1}))
	file := &model.File{JobID: jobID, Name: "invoice.docm", Hash: "aabbcc", Size: 4096, Type: "docm"}
	require.NoError(t, store.InsertFile(ctx, file))
	return file
}

// makeAlerts builds total alerts of which high are high severity.
func makeAlerts(total, high int) []model.AlertDetail {
	alerts := make([]model.AlertDetail, 0, total)
	for i := 0; i < high; i++ {
		alerts = append(alerts, model.AlertDetail{Severity: model.SeverityHigh, Category: model.CategoryMalware})
	}
	for i := high; i < total; i++ {
		alerts = append(alerts, model.AlertDetail{Severity: model.SeverityLow, Category: model.CategoryNetwork})
	}
	return alerts
}

func seedSummary(t *testing.T, store *db.GormResultStore, file *model.File, version model.Version, sanitizerID string, total, high int) {
	t.Helper()
	require.NoError(t, store.InsertTelemetrySummary(context.Background(), &model.TelemetrySummary{
		JobID:       file.JobID,
		FileID:      file.ID,
		Vendor:      "crowdstrike",
		Version:     version,
		SanitizerID: sanitizerID,
		Success:     true,
		Alerts:      makeAlerts(total, high),
	}))
}

func seedDetection(t *testing.T, store *db.GormResultStore, file *model.File, version model.Version, sanitizerID string, malicious bool, confidence int) {
	t.Helper()
	require.NoError(t, store.InsertDetection(context.Background(), &model.Detection{
		JobID:       file.JobID,
		FileID:      file.ID,
		Engine:      "clamav",
		Version:     version,
		SanitizerID: sanitizerID,
		Malicious:   malicious,
		Confidence:  confidence,
		Severity:    model.SeverityHigh,
	}))
}

func TestAnalyzeMalwareSample(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	file := seedJobAndFile(t, store, "job-1")

	// A noisy malicious document fully defanged by sanitization: all AV
	// engines flag the original, none flag the sanitized copy.
	seedSummary(t, store, file, model.VersionPreSanitization, "", 47, 12)
	seedSummary(t, store, file, model.VersionPostSanitization, "glasswall", 6, 0)
	for _, confidence := range []int{100, 90, 95} {
		seedDetection(t, store, file, model.VersionPreSanitization, "", true, confidence)
	}
	seedDetection(t, store, file, model.VersionPreSanitization, "", false, 0)
	seedDetection(t, store, file, model.VersionPostSanitization, "glasswall", false, 0)

	analyzer, err := New(store, config.Default().Analysis)
	require.NoError(t, err)
	result, err := analyzer.Analyze(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)

	assert.Equal(t, model.AnalysisComplete, result.Status)
	assert.Equal(t, 3, result.AVPreDetections, "clean scans are not counted")
	assert.Equal(t, 0, result.AVPostDetections)
	assert.Equal(t, 100.0, result.AVDetectionReductionPct)
	assert.Equal(t, 95.0, result.AVPreAvgConfidence, "averaged over malicious rows only")
	assert.Equal(t, 0.0, result.AVPostAvgConfidence)
	assert.Equal(t, 47, result.EDRPreAlerts)
	assert.Equal(t, 6, result.EDRPostAlerts)
	assert.Equal(t, 87.23, result.EDRAlertReductionPct)
	assert.Equal(t, 12, result.HighSeverityReduction)
	assert.Equal(t, 91.06, result.NoiseReductionScore)
	assert.Equal(t, model.RatingExcellent, result.EffectivenessRating)
	assert.True(t, result.RecommendedForProduction)
	assert.Equal(t, 1.0, result.AnalystTimeSavedHours, "12 high alerts at 5 minutes each")
	assert.Equal(t, 50.0, result.EstimatedCostSavings)

	stored, err := store.GetAnalysis(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 91.06, stored.NoiseReductionScore)
}

func TestAnalyzeCleanFile(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	file := seedJobAndFile(t, store, "job-1")

	// A benign file emits the same background noise before and after
	// sanitization: five informational alerts on both sides, so there is
	// reduction neither in volume nor severity.
	infoAlerts := func() []model.AlertDetail {
		alerts := make([]model.AlertDetail, 5)
		for i := range alerts {
			alerts[i] = model.AlertDetail{Severity: model.SeverityInfo, Category: model.CategoryProcess}
		}
		return alerts
	}
	require.NoError(t, store.InsertTelemetrySummary(ctx, &model.TelemetrySummary{
		JobID: "job-1", FileID: file.ID, Vendor: "crowdstrike",
		Version: model.VersionPreSanitization, Alerts: infoAlerts(),
	}))
	require.NoError(t, store.InsertTelemetrySummary(ctx, &model.TelemetrySummary{
		JobID: "job-1", FileID: file.ID, Vendor: "crowdstrike",
		Version: model.VersionPostSanitization, SanitizerID: "glasswall", Alerts: infoAlerts(),
	}))

	analyzer, err := New(store, config.Default().Analysis)
	require.NoError(t, err)
	result, err := analyzer.Analyze(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)

	assert.Equal(t, model.AnalysisComplete, result.Status)
	assert.Equal(t, 5, result.EDRPreAlerts)
	assert.Equal(t, 5, result.EDRPostAlerts)
	assert.Equal(t, 0.0, result.EDRAlertReductionPct, "no reduction on a nonzero base")
	assert.Equal(t, 0.0, result.NoiseReductionScore)
	assert.Equal(t, model.RatingPoor, result.EffectivenessRating)
	assert.False(t, result.RecommendedForProduction)
	assert.Equal(t, 0.0, result.EstimatedCostSavings)
}

func TestAnalyzeInsufficientData(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	file := seedJobAndFile(t, store, "job-1")

	// Pre-sanitization telemetry only; the post bucket is missing, which
	// must never be misread as zero alerts.
	seedSummary(t, store, file, model.VersionPreSanitization, "", 47, 12)

	analyzer, err := New(store, config.Default().Analysis)
	require.NoError(t, err)
	result, err := analyzer.Analyze(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)

	assert.Equal(t, model.AnalysisInsufficientData, result.Status)
	assert.Zero(t, result.NoiseReductionScore)
	assert.Zero(t, result.EDRPreAlerts, "derived fields stay zero on insufficient data")
	assert.Empty(t, result.EffectivenessRating)

	stored, err := store.GetAnalysis(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)
	require.NotNil(t, stored, "insufficient_data results are persisted too")
	assert.Equal(t, model.AnalysisInsufficientData, stored.Status)
}

func TestAnalyzeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	file := seedJobAndFile(t, store, "job-1")

	seedSummary(t, store, file, model.VersionPreSanitization, "", 10, 2)
	seedSummary(t, store, file, model.VersionPostSanitization, "glasswall", 4, 1)

	fixed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	analyzer, err := New(store, config.Default().Analysis, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	first, err := analyzer.Analyze(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)
	second, err := analyzer.Analyze(ctx, "job-1", file.ID, "glasswall")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(model.NoiseReductionAnalysis{}, "ID")); diff != "" {
		t.Errorf("recomputed analysis differs (-first +second):\n%s", diff)
	}

	all, err := store.ListAnalyses(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAnalyzeRequiresSanitizer(t *testing.T) {
	store := setupStore(t)
	analyzer, err := New(store, config.Default().Analysis)
	require.NoError(t, err)
	_, err = analyzer.Analyze(context.Background(), "job-1", 1, "")
	require.Error(t, err)
}

func TestReductionPct(t *testing.T) {
	tests := []struct {
		name      string
		pre, post int
		want      float64
	}{
		{name: "both zero", pre: 0, post: 0, want: 0},
		{name: "zero pre nonzero post", pre: 0, post: 5, want: 0},
		{name: "full reduction", pre: 10, post: 0, want: 100},
		{name: "negative on regression", pre: 10, post: 15, want: -50},
		{name: "rounded", pre: 47, post: 6, want: 87.23},
		{name: "two thirds", pre: 3, post: 1, want: 66.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReductionPct(tt.pre, tt.post))
		})
	}
}

func TestRateThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  model.EffectivenessRating
	}{
		{score: 95, want: model.RatingExcellent},
		{score: 80, want: model.RatingExcellent},
		{score: 79.99, want: model.RatingGood},
		{score: 60, want: model.RatingGood},
		{score: 59.99, want: model.RatingFair},
		{score: 40, want: model.RatingFair},
		{score: 39.99, want: model.RatingPoor},
		{score: -50, want: model.RatingPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rate(tt.score), "score %v", tt.score)
	}
}
