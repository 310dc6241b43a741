package model

// Version discriminates telemetry captured from the original file from
// telemetry captured from the sanitized output of one sanitizer engine.
type Version string

const (
	// VersionPreSanitization marks telemetry generated by the original file.
	VersionPreSanitization Version = "pre-sanitization"
	// VersionPostSanitization marks telemetry generated by the output of a sanitizer engine.
	VersionPostSanitization Version = "post-sanitization"
)

// Valid reports whether v is one of the two known version discriminators.
func (v Version) Valid() bool {
	return v == VersionPreSanitization || v == VersionPostSanitization
}

// Severity is the canonical 5-tier ordinal severity scale.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity, info lowest.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// AlertCategory classifies what kind of activity an alert describes.
// The set is open: vendors may report categories this module has never
// seen, and those must still ingest. The constants below are the
// categories the summary counters track.
type AlertCategory string

const (
	CategoryMalware            AlertCategory = "malware"
	CategorySuspiciousBehavior AlertCategory = "suspicious_behavior"
	CategoryNetwork            AlertCategory = "network"
	CategoryFileSystem         AlertCategory = "file_system"
	CategoryRegistry           AlertCategory = "registry"
	CategoryProcess            AlertCategory = "process"
	// CategoryUncategorized tags alerts that could not be confidently
	// classified. They are kept, never dropped.
	CategoryUncategorized AlertCategory = "uncategorized"
)

// DetectionMethod identifies how a security tool produced an alert or detection.
type DetectionMethod string

const (
	MethodSignature       DetectionMethod = "signature"
	MethodBehavioral      DetectionMethod = "behavioral"
	MethodMachineLearning DetectionMethod = "machine_learning"
)

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// AnalysisStatus distinguishes a computed analysis from one that could
// not be computed because a pre or post telemetry bucket was empty.
type AnalysisStatus string

const (
	AnalysisComplete         AnalysisStatus = "complete"
	AnalysisInsufficientData AnalysisStatus = "insufficient_data"
)

// EffectivenessRating is the qualitative rating derived from the noise reduction score.
type EffectivenessRating string

const (
	RatingExcellent EffectivenessRating = "excellent"
	RatingGood      EffectivenessRating = "good"
	RatingFair      EffectivenessRating = "fair"
	RatingPoor      EffectivenessRating = "poor"
)
