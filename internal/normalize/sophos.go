package normalize

import (
	"encoding/json"
	"strings"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// VendorSophos is the vendor id for Sophos Central consoles.
const VendorSophos = "sophos"

// sophosAlert is the subset of a Sophos Central alert document the
// normalizer reads.
type sophosAlert struct {
	ID            string  `json:"id"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Severity      string  `json:"severity"`
	RiskScore     float64 `json:"riskScore"`
	DetectionType string  `json:"detectionType"`
	When          string  `json:"when"`
	Data          struct {
		ProcessName string `json:"processName"`
		ProcessPath string `json:"processPath"`
		FilePath    string `json:"filePath"`
		RemoteIP    string `json:"remoteIp"`
		URL         string `json:"url"`
	} `json:"data"`
}

// sophosSeverities maps Sophos Central severity labels onto the
// canonical scale.
var sophosSeverities = map[string]model.Severity{
	"critical": model.SeverityCritical,
	"high":     model.SeverityHigh,
	"medium":   model.SeverityMedium,
	"low":      model.SeverityLow,
	"info":     model.SeverityInfo,
}

type sophosNormalizer struct{}

func (n *sophosNormalizer) Vendor() string { return VendorSophos }

// Normalize parses a Sophos Central alerts payload. Central wraps the
// alert list in an "items" envelope.
func (n *sophosNormalizer) Normalize(raw []byte, exec ExecutionContext) (*model.TelemetrySummary, error) {
	records, err := decodeAlertList(raw, "items")
	if err != nil {
		return nil, err
	}

	summary := newSummary(VendorSophos, exec)
	for _, record := range records {
		var alert sophosAlert
		if err := json.Unmarshal(record, &alert); err != nil {
			summary.Alerts = append(summary.Alerts, degradedAlert(record))
			continue
		}

		severity, ok := sophosSeverities[strings.ToLower(alert.Severity)]
		if !ok {
			severity = model.SeverityLow
		}

		summary.Alerts = append(summary.Alerts, model.AlertDetail{
			ExternalID:      alert.ID,
			Name:            alert.Description,
			Type:            alert.Type,
			Category:        classifyCategory(alert.Category, alert.Type),
			Severity:        severity,
			RiskScore:       alert.RiskScore,
			DetectionMethod: sophosMethod(alert.DetectionType, alert.Type),
			ProcessName:     alert.Data.ProcessName,
			ProcessPath:     alert.Data.ProcessPath,
			FilePath:        alert.Data.FilePath,
			RemoteIP:        alert.Data.RemoteIP,
			RemoteDomain:    alert.Data.URL,
			Timestamp:       parseTimestamp(alert.When),
			RawAlert:        append(json.RawMessage(nil), record...),
		})
	}

	summary.RecountFromChildren()
	return summary, nil
}

// sophosMethod derives the detection method, falling back on the alert
// type: malware/virus alerts are signature detections, runtime alerts
// behavioral.
func sophosMethod(detectionType, alertType string) model.DetectionMethod {
	if method := classifyMethod(detectionType); method != "" {
		return method
	}
	switch t := strings.ToLower(alertType); {
	case strings.Contains(t, "malware"), strings.Contains(t, "virus"):
		return model.MethodSignature
	case strings.Contains(t, "runtime"), strings.Contains(t, "behavioral"):
		return model.MethodBehavioral
	default:
		return ""
	}
}
