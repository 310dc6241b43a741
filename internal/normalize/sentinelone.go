package normalize

import (
	"encoding/json"
	"strings"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// VendorSentinelOne is the vendor id for SentinelOne consoles.
const VendorSentinelOne = "sentinelone"

// sentinelOneThreat is the subset of a SentinelOne threat document the
// normalizer reads. The interesting fields live under threatInfo.
type sentinelOneThreat struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"createdAt"`
	Mitigation string `json:"mitigationStatus"`
	ThreatInfo struct {
		ThreatName         string   `json:"threatName"`
		Classification     string   `json:"classification"`
		ClassificationType string   `json:"classificationType"`
		ConfidenceLevel    string   `json:"confidenceLevel"`
		ThreatScore        float64  `json:"threatScore"`
		Engines            []string `json:"engines"`
		MitreTechnique     string   `json:"mitreTechnique"`
		MitreTactic        string   `json:"mitreTactic"`
		FilePath           string   `json:"filePath"`
		SHA256             string   `json:"sha256"`
		ProcessUser        string   `json:"processUser"`
		Description        string   `json:"description"`
	} `json:"threatInfo"`
}

// sentinelOneSeverities maps SentinelOne confidence levels onto the
// canonical scale. The console reports verdicts, not severities, so
// the lookup is verdict-based.
var sentinelOneSeverities = map[string]model.Severity{
	"malicious":  model.SeverityHigh,
	"high":       model.SeverityHigh,
	"suspicious": model.SeverityMedium,
	"low":        model.SeverityLow,
}

type sentinelOneNormalizer struct{}

func (n *sentinelOneNormalizer) Vendor() string { return VendorSentinelOne }

// Normalize parses a SentinelOne threats payload. The console wraps the
// threat list in a "data" envelope.
func (n *sentinelOneNormalizer) Normalize(raw []byte, exec ExecutionContext) (*model.TelemetrySummary, error) {
	records, err := decodeAlertList(raw, "data")
	if err != nil {
		return nil, err
	}

	summary := newSummary(VendorSentinelOne, exec)
	for _, record := range records {
		var threat sentinelOneThreat
		if err := json.Unmarshal(record, &threat); err != nil {
			summary.Alerts = append(summary.Alerts, degradedAlert(record))
			continue
		}
		info := threat.ThreatInfo

		severity, ok := sentinelOneSeverities[strings.ToLower(info.ConfidenceLevel)]
		if !ok {
			severity = model.SeverityLow
		}

		summary.Alerts = append(summary.Alerts, model.AlertDetail{
			ExternalID:        threat.ID,
			Name:              info.ThreatName,
			Type:              info.Classification,
			Category:          classifyCategory(info.ClassificationType, info.Classification),
			Severity:          severity,
			RiskScore:         info.ThreatScore,
			DetectionMethod:   sentinelOneMethod(info.Engines),
			Technique:         info.MitreTechnique,
			Tactic:            info.MitreTactic,
			ProcessName:       info.ProcessUser,
			ProcessPath:       info.FilePath,
			ProcessHash:       info.SHA256,
			FilePath:          info.FilePath,
			FileHash:          info.SHA256,
			Timestamp:         parseTimestamp(threat.CreatedAt),
			RemediationAction: threat.Mitigation,
			RawAlert:          append(json.RawMessage(nil), record...),
		})
	}

	summary.RecountFromChildren()
	return summary, nil
}

// sentinelOneMethod derives the canonical detection method from the
// engine list the console reports. Static and reputation engines count
// as signature detections.
func sentinelOneMethod(engines []string) model.DetectionMethod {
	for _, engine := range engines {
		if method := classifyMethod(engine); method != "" {
			return method
		}
	}
	return ""
}
