package model

import (
	"time"
)

// NoiseReductionAnalysis is one computed pre/post comparison for a
// (job, file, sanitizer) triple. It is derived from stored Detection
// and TelemetrySummary rows, never hand-edited, and keeps the raw
// pre/post counts it was derived from for auditability. Recomputing
// for the same triple upserts the single row for that key.
type NoiseReductionAnalysis struct {
	ID          uint   `json:"ID" gorm:"primaryKey;autoIncrement"`
	JobID       string `json:"JobID" gorm:"size:64;not null;uniqueIndex:idx_analysis_key"`
	FileID      uint   `json:"FileID" gorm:"not null;uniqueIndex:idx_analysis_key"`
	SanitizerID string `json:"SanitizerID" gorm:"size:64;not null;uniqueIndex:idx_analysis_key"`

	Status AnalysisStatus `json:"Status" gorm:"size:32;not null"`

	AVPreDetections         int     `json:"AVPreDetections"`
	AVPostDetections        int     `json:"AVPostDetections"`
	AVDetectionReduction    int     `json:"AVDetectionReduction"`
	AVDetectionReductionPct float64 `json:"AVDetectionReductionPct"`
	AVPreAvgConfidence      float64 `json:"AVPreAvgConfidence"`
	AVPostAvgConfidence     float64 `json:"AVPostAvgConfidence"`

	EDRPreAlerts         int     `json:"EDRPreAlerts"`
	EDRPostAlerts        int     `json:"EDRPostAlerts"`
	EDRAlertReduction    int     `json:"EDRAlertReduction"`
	EDRAlertReductionPct float64 `json:"EDRAlertReductionPct"`

	HighSeverityPre       int `json:"HighSeverityPre"`
	HighSeverityPost      int `json:"HighSeverityPost"`
	HighSeverityReduction int `json:"HighSeverityReduction"`

	NoiseReductionScore      float64             `json:"NoiseReductionScore"`
	EffectivenessRating      EffectivenessRating `json:"EffectivenessRating" gorm:"size:16"`
	RecommendedForProduction bool                `json:"RecommendedForProduction"`

	AnalystTimeSavedHours float64 `json:"AnalystTimeSavedHours"`
	EstimatedCostSavings  float64 `json:"EstimatedCostSavings"`

	AnalyzedAt time.Time `json:"AnalyzedAt"`
}
