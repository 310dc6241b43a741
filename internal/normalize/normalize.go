// Package normalize translates vendor-specific security telemetry
// payloads into the canonical model. One normalizer exists per
// endpoint-detection vendor family; anti-malware scan payloads are
// handled by NormalizeDetection. No alert is ever discarded during
// normalization: records that cannot be classified are tagged
// uncategorized rather than dropped.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// ErrMalformedPayload indicates a vendor payload could not be parsed
// into a list of records at all. Partial or missing fields within a
// record never produce this error.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrUnknownVendor indicates no normalizer is registered for a vendor id.
var ErrUnknownVendor = errors.New("unknown vendor")

// ExecutionContext carries the identity of one file-execution session,
// supplied by the external scheduler.
type ExecutionContext struct {
	JobID       string
	FileID      uint
	SanitizerID string
	Version     model.Version
	HostID      string
	StartedAt   time.Time
	EndedAt     time.Time
	Success     bool
}

// Normalizer translates one vendor's raw alert payload into a
// TelemetrySummary with its AlertDetail children. Implementations are
// pure computation over in-memory payloads.
type Normalizer interface {
	// Vendor returns the vendor id the normalizer handles.
	Vendor() string
	// Normalize parses the raw payload and returns a summary whose
	// counters are recomputed from the normalized children.
	Normalize(raw []byte, exec ExecutionContext) (*model.TelemetrySummary, error)
}

// ForVendor returns the normalizer for a vendor id. Dispatch is a
// closed set at this boundary; adding a vendor means adding a case.
func ForVendor(vendor string) (Normalizer, error) {
	switch vendor {
	case VendorCrowdStrike:
		return &crowdStrikeNormalizer{}, nil
	case VendorSentinelOne:
		return &sentinelOneNormalizer{}, nil
	case VendorSophos:
		return &sophosNormalizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, vendor)
	}
}

// decodeAlertList extracts the list of raw alert records from a
// payload. Vendors wrap their alert lists in different envelopes; a
// bare JSON array is accepted for all of them.
func decodeAlertList(raw []byte, envelopeKey string) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	inner, ok := envelope[envelopeKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q list", ErrMalformedPayload, envelopeKey)
	}
	if err := json.Unmarshal(inner, &list); err != nil {
		return nil, fmt.Errorf("%w: %q is not a list: %v", ErrMalformedPayload, envelopeKey, err)
	}
	return list, nil
}

// newSummary builds the summary shell shared by all vendors.
func newSummary(vendor string, exec ExecutionContext) *model.TelemetrySummary {
	return &model.TelemetrySummary{
		JobID:       exec.JobID,
		FileID:      exec.FileID,
		Vendor:      vendor,
		Version:     exec.Version,
		SanitizerID: exec.SanitizerID,
		HostID:      exec.HostID,
		StartedAt:   exec.StartedAt,
		EndedAt:     exec.EndedAt,
		Success:     exec.Success,
	}
}

// degradedAlert is the fallback for a record that is not a JSON object.
// The record is kept with its raw payload; dropping it would corrupt
// the pre/post comparison.
func degradedAlert(raw json.RawMessage) model.AlertDetail {
	return model.AlertDetail{
		Category:  model.CategoryUncategorized,
		Severity:  model.SeverityInfo,
		Timestamp: time.Time{},
		RawAlert:  append(json.RawMessage(nil), raw...),
	}
}

// parseTimestamp accepts the RFC3339 variants the vendor consoles emit.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
