package model

import (
	"encoding/json"
	"time"
)

// TelemetrySummary is one file-execution-and-observation session on one
// isolated execution host, as reported by an endpoint-detection vendor.
// The per-tier, per-category and per-method counters are a cache over
// the Alerts children: RecountFromChildren recomputes them and must
// always be idempotent.
type TelemetrySummary struct {
	ID          uint    `json:"ID" gorm:"primaryKey;autoIncrement"`
	JobID       string  `json:"JobID" gorm:"size:64;not null;index"`
	FileID      uint    `json:"FileID" gorm:"not null;index:idx_telemetry_bucket"`
	Vendor      string  `json:"Vendor" gorm:"size:100;not null"`
	Version     Version `json:"Version" gorm:"size:32;not null;index:idx_telemetry_bucket"`
	SanitizerID string  `json:"SanitizerID" gorm:"size:64;index:idx_telemetry_bucket"`

	HostID    string    `json:"HostID" gorm:"size:100"`
	StartedAt time.Time `json:"StartedAt"`
	EndedAt   time.Time `json:"EndedAt"`
	Success   bool      `json:"Success"`

	TotalAlerts          int `json:"TotalAlerts"`
	HighSeverityAlerts   int `json:"HighSeverityAlerts"`
	MediumSeverityAlerts int `json:"MediumSeverityAlerts"`
	LowSeverityAlerts    int `json:"LowSeverityAlerts"`
	InfoAlerts           int `json:"InfoAlerts"`

	MalwareAlerts            int `json:"MalwareAlerts"`
	SuspiciousBehaviorAlerts int `json:"SuspiciousBehaviorAlerts"`
	NetworkAlerts            int `json:"NetworkAlerts"`
	FileSystemAlerts         int `json:"FileSystemAlerts"`
	RegistryAlerts           int `json:"RegistryAlerts"`
	ProcessAlerts            int `json:"ProcessAlerts"`

	SignatureDetections  int `json:"SignatureDetections"`
	BehavioralDetections int `json:"BehavioralDetections"`
	MLDetections         int `json:"MLDetections"`

	CreatedAt time.Time     `json:"CreatedAt" gorm:"autoCreateTime"`
	Alerts    []AlertDetail `json:"Alerts" gorm:"foreignKey:SummaryID;constraint:OnDelete:CASCADE"`
}

// RecountFromChildren recomputes every counter on the summary from the
// Alerts slice. Critical alerts count into the high severity tier.
// Calling it repeatedly yields the same counters.
func (s *TelemetrySummary) RecountFromChildren() {
	s.TotalAlerts = len(s.Alerts)
	s.HighSeverityAlerts = 0
	s.MediumSeverityAlerts = 0
	s.LowSeverityAlerts = 0
	s.InfoAlerts = 0
	s.MalwareAlerts = 0
	s.SuspiciousBehaviorAlerts = 0
	s.NetworkAlerts = 0
	s.FileSystemAlerts = 0
	s.RegistryAlerts = 0
	s.ProcessAlerts = 0
	s.SignatureDetections = 0
	s.BehavioralDetections = 0
	s.MLDetections = 0

	for i := range s.Alerts {
		a := &s.Alerts[i]
		switch a.Severity {
		case SeverityCritical, SeverityHigh:
			s.HighSeverityAlerts++
		case SeverityMedium:
			s.MediumSeverityAlerts++
		case SeverityLow:
			s.LowSeverityAlerts++
		default:
			s.InfoAlerts++
		}
		switch a.Category {
		case CategoryMalware:
			s.MalwareAlerts++
		case CategorySuspiciousBehavior:
			s.SuspiciousBehaviorAlerts++
		case CategoryNetwork:
			s.NetworkAlerts++
		case CategoryFileSystem:
			s.FileSystemAlerts++
		case CategoryRegistry:
			s.RegistryAlerts++
		case CategoryProcess:
			s.ProcessAlerts++
		}
		switch a.DetectionMethod {
		case MethodSignature:
			s.SignatureDetections++
		case MethodBehavioral:
			s.BehavioralDetections++
		case MethodMachineLearning:
			s.MLDetections++
		}
	}
}

// AlertDetail is one individual alert belonging to exactly one
// TelemetrySummary. Rows are immutable once stored. The context fields
// are optional and populated only when relevant to the alert category.
// RawAlert retains the original vendor payload verbatim for forensic
// replay.
type AlertDetail struct {
	ID        uint `json:"ID" gorm:"primaryKey;autoIncrement"`
	SummaryID uint `json:"SummaryID" gorm:"not null;index"`

	ExternalID      string          `json:"ExternalID" gorm:"size:128"`
	Name            string          `json:"Name"`
	Type            string          `json:"Type" gorm:"size:100"`
	Category        AlertCategory   `json:"Category" gorm:"size:64;index"`
	Severity        Severity        `json:"Severity" gorm:"size:16;index"`
	Confidence      int             `json:"Confidence"`
	RiskScore       float64         `json:"RiskScore"`
	DetectionMethod DetectionMethod `json:"DetectionMethod" gorm:"size:32"`
	Technique       string          `json:"Technique" gorm:"size:32"`
	Tactic          string          `json:"Tactic" gorm:"size:64"`

	ProcessName        string `json:"ProcessName"`
	ProcessPath        string `json:"ProcessPath"`
	ProcessCommandLine string `json:"ProcessCommandLine"`
	ProcessHash        string `json:"ProcessHash" gorm:"size:64"`
	ParentProcessName  string `json:"ParentProcessName"`

	FilePath      string `json:"FilePath"`
	FileHash      string `json:"FileHash" gorm:"size:64"`
	FileOperation string `json:"FileOperation" gorm:"size:32"`

	RemoteIP        string `json:"RemoteIP" gorm:"size:45"`
	RemotePort      int    `json:"RemotePort"`
	RemoteDomain    string `json:"RemoteDomain"`
	NetworkProtocol string `json:"NetworkProtocol" gorm:"size:16"`

	RegistryKey       string `json:"RegistryKey"`
	RegistryValue     string `json:"RegistryValue"`
	RegistryOperation string `json:"RegistryOperation" gorm:"size:32"`

	Timestamp           time.Time       `json:"Timestamp"`
	RemediationAction   string          `json:"RemediationAction" gorm:"size:100"`
	FalsePositiveLikely bool            `json:"FalsePositiveLikely"`
	RawAlert            json.RawMessage `json:"RawAlert" gorm:"type:text"`
	CreatedAt           time.Time       `json:"CreatedAt" gorm:"autoCreateTime"`
}
