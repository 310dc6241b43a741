package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// Anti-malware vendor ids.
const (
	EngineDefender      = "defender"
	EngineClamAV        = "clamav"
	EngineVirusTotal    = "virustotal"
	EngineOPSWAT        = "opswat"
	EngineReversingLabs = "reversinglabs"
)

// ScanContext carries the identity of one anti-malware scan, supplied
// by the external scanning layer.
type ScanContext struct {
	JobID       string
	FileID      uint
	SanitizerID string
	Version     model.Version
	ScannedAt   time.Time
}

// NormalizeDetection translates one anti-malware vendor payload into a
// canonical Detection. Fails with ErrMalformedPayload only when the
// payload cannot be parsed into a result record at all.
func NormalizeDetection(engine string, raw []byte, scan ScanContext) (*model.Detection, error) {
	detection := &model.Detection{
		JobID:       scan.JobID,
		FileID:      scan.FileID,
		Engine:      engine,
		Version:     scan.Version,
		SanitizerID: scan.SanitizerID,
		ScannedAt:   scan.ScannedAt,
	}

	switch engine {
	case EngineDefender:
		return normalizeDefender(raw, detection)
	case EngineClamAV:
		return normalizeClamAV(raw, detection)
	case EngineVirusTotal:
		return normalizeVirusTotal(raw, detection)
	case EngineOPSWAT:
		return normalizeOPSWAT(raw, detection)
	case EngineReversingLabs:
		return normalizeReversingLabs(raw, detection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, engine)
	}
}

// defenderResult is the subset of a Microsoft Defender scan report the
// normalizer reads.
type defenderResult struct {
	Threats []struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Family   string `json:"family"`
		Severity string `json:"severity"`
	} `json:"threats"`
	DetectionSource string `json:"detection_source"`
	ScanTimeMS      int64  `json:"scan_time_ms"`
}

// defenderSeverities maps Defender threat severity labels onto the
// canonical scale.
var defenderSeverities = map[string]model.Severity{
	"severe":   model.SeverityCritical,
	"high":     model.SeverityHigh,
	"moderate": model.SeverityMedium,
	"low":      model.SeverityLow,
}

func normalizeDefender(raw []byte, d *model.Detection) (*model.Detection, error) {
	var result defenderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d.Malicious = len(result.Threats) > 0
	d.ScanLatencyMS = result.ScanTimeMS
	if d.Malicious {
		threat := result.Threats[0]
		d.ThreatName = threat.Name
		d.ThreatType = threat.Type
		d.ThreatFamily = threat.Family
		d.Confidence = 100
		if severity, ok := defenderSeverities[strings.ToLower(threat.Severity)]; ok {
			d.Severity = severity
		} else {
			d.Severity = model.SeverityMedium
		}
	}
	if result.DetectionSource != "" {
		d.DetectionMethods = model.JSONStringArray{result.DetectionSource}
	}
	return d, nil
}

// clamAVResult is the subset of a ClamAV scan report the normalizer reads.
type clamAVResult struct {
	Infected   *bool  `json:"infected"`
	VirusName  string `json:"virus_name"`
	ScanTimeMS int64  `json:"scan_time_ms"`
}

func normalizeClamAV(raw []byte, d *model.Detection) (*model.Detection, error) {
	var result clamAVResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Infected == nil {
		return nil, fmt.Errorf("%w: not a clamav scan result", ErrMalformedPayload)
	}
	d.Malicious = *result.Infected
	d.ScanLatencyMS = result.ScanTimeMS
	if d.Malicious {
		d.ThreatName = result.VirusName
		d.Confidence = 100
		d.Severity = model.SeverityHigh
		d.DetectionMethods = model.JSONStringArray{"signature"}
	}
	return d, nil
}

// opswatResult is the subset of an OPSWAT MetaDefender scan report the
// normalizer reads. Per-engine verdicts live under scan_details.
type opswatResult struct {
	ScanResults *struct {
		ScanAllResult string `json:"scan_all_result_a"`
		ScanDetails   map[string]struct {
			ThreatFound bool   `json:"threat_found"`
			DefName     string `json:"def_name"`
		} `json:"scan_details"`
		TotalTimeMS int64 `json:"total_time"`
	} `json:"scan_results"`
}

func normalizeOPSWAT(raw []byte, d *model.Detection) (*model.Detection, error) {
	var result opswatResult
	if err := json.Unmarshal(raw, &result); err != nil || result.ScanResults == nil {
		return nil, fmt.Errorf("%w: not a metadefender scan result", ErrMalformedPayload)
	}
	d.Malicious = strings.Contains(strings.ToLower(result.ScanResults.ScanAllResult), "infected")
	d.ScanLatencyMS = result.ScanResults.TotalTimeMS
	if d.Malicious {
		for _, engine := range result.ScanResults.ScanDetails {
			if engine.ThreatFound {
				d.ThreatName = engine.DefName
				break
			}
		}
		d.Confidence = 100
		d.Severity = model.SeverityHigh
		d.DetectionMethods = model.JSONStringArray{"signature"}
	}
	return d, nil
}

// reversingLabsResult is the subset of a ReversingLabs A1000 report the
// normalizer reads. ThreatLevel runs 0-10.
type reversingLabsResult struct {
	Classification string `json:"classification"`
	ThreatName     string `json:"threat_name"`
	ThreatLevel    int    `json:"threat_level"`
}

func normalizeReversingLabs(raw []byte, d *model.Detection) (*model.Detection, error) {
	var result reversingLabsResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Classification == "" {
		return nil, fmt.Errorf("%w: not a reversinglabs report", ErrMalformedPayload)
	}
	classification := strings.ToLower(result.Classification)
	d.Malicious = classification == "malicious" || classification == "suspicious"
	if d.Malicious {
		d.ThreatName = result.ThreatName
		d.Confidence = result.ThreatLevel * 10
		if classification == "malicious" {
			d.Severity = model.SeverityHigh
		} else {
			d.Severity = model.SeverityMedium
		}
		d.DetectionMethods = model.JSONStringArray{"signature", "reputation"}
	}
	return d, nil
}

// virusTotalResult is the subset of a VirusTotal file report the
// normalizer reads.
type virusTotalResult struct {
	Positives  *int   `json:"positives"`
	Total      int    `json:"total"`
	ThreatName string `json:"threat_name"`
	Reputation string `json:"reputation"`
}

func normalizeVirusTotal(raw []byte, d *model.Detection) (*model.Detection, error) {
	var result virusTotalResult
	if err := json.Unmarshal(raw, &result); err != nil || result.Positives == nil {
		return nil, fmt.Errorf("%w: not a virustotal report", ErrMalformedPayload)
	}
	positives := *result.Positives
	d.Malicious = positives > 0
	d.FileReputation = result.Reputation
	if d.Malicious {
		d.ThreatName = result.ThreatName
		if result.Total > 0 {
			d.Confidence = positives * 100 / result.Total
		}
		// Consensus across many engines drives severity: a lookup over
		// coarse bands keeps the ordering explicit.
		switch {
		case result.Total > 0 && positives*2 >= result.Total:
			d.Severity = model.SeverityCritical
		case positives >= 5:
			d.Severity = model.SeverityHigh
		case positives >= 2:
			d.Severity = model.SeverityMedium
		default:
			d.Severity = model.SeverityLow
		}
		d.DetectionMethods = model.JSONStringArray{"signature", "reputation"}
	}
	return d, nil
}
