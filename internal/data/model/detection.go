package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Detection is one anti-malware scan outcome for one file by one
// scanning engine. Rows are append-only history: the analyzer always
// aggregates over every row in a (file, engine, version, sanitizer)
// bucket and never assumes exactly one scan.
type Detection struct {
	ID               uint            `json:"ID" gorm:"primaryKey;autoIncrement"`
	JobID            string          `json:"JobID" gorm:"size:64;not null;index"`
	FileID           uint            `json:"FileID" gorm:"not null;index:idx_detection_bucket"`
	Engine           string          `json:"Engine" gorm:"size:100;not null"`
	Version          Version         `json:"Version" gorm:"size:32;not null;index:idx_detection_bucket"`
	SanitizerID      string          `json:"SanitizerID" gorm:"size:64;index:idx_detection_bucket"`
	Malicious        bool            `json:"Malicious"`
	ThreatName       string          `json:"ThreatName"`
	ThreatType       string          `json:"ThreatType"`
	ThreatFamily     string          `json:"ThreatFamily"`
	Confidence       int             `json:"Confidence"`
	Severity         Severity        `json:"Severity" gorm:"size:16"`
	DetectionMethods JSONStringArray `json:"DetectionMethods" gorm:"type:text"`
	ScanLatencyMS    int64           `json:"ScanLatencyMS"`
	FileReputation   string          `json:"FileReputation" gorm:"size:64"`
	ScannedAt        time.Time       `json:"ScannedAt"`
	CreatedAt        time.Time       `json:"CreatedAt" gorm:"autoCreateTime"`
}

// JSONStringArray custom type for handling JSON serialization of string arrays.
type JSONStringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("JSONStringArray Scan error: expected []byte or string, got %T", value)
	}
}
