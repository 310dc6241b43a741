package normalize

import (
	"encoding/json"
	"strings"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

// VendorCrowdStrike is the vendor id for CrowdStrike Falcon consoles.
const VendorCrowdStrike = "crowdstrike"

// crowdStrikeAlert is the subset of a Falcon detection document the
// normalizer reads. Missing fields degrade to zero values.
type crowdStrikeAlert struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Category        string  `json:"category"`
	Severity        string  `json:"severity"`
	SeverityNumber  float64 `json:"severity_number"`
	Confidence      int     `json:"confidence"`
	DetectionMethod string  `json:"detection_method"`
	Technique       string  `json:"technique"`
	Tactic          string  `json:"tactic"`
	Timestamp       string  `json:"timestamp"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	IOCValue        string  `json:"ioc_value"`
	FileOperation   string  `json:"file_operation"`
	Process         struct {
		FileName    string `json:"file_name"`
		FilePath    string `json:"file_path"`
		CommandLine string `json:"command_line"`
		SHA256      string `json:"sha256"`
	} `json:"process"`
	ParentProcess struct {
		FileName string `json:"file_name"`
	} `json:"parent_process"`
	File struct {
		FilePath string `json:"file_path"`
		SHA256   string `json:"sha256"`
	} `json:"file"`
	Network struct {
		RemoteIP   string `json:"remote_ip"`
		RemotePort int    `json:"remote_port"`
		Domain     string `json:"domain"`
		Protocol   string `json:"protocol"`
	} `json:"network"`
	Registry struct {
		KeyName   string `json:"key_name"`
		ValueName string `json:"value_name"`
	} `json:"registry"`
	RegistryOperation string `json:"registry_operation"`
}

// crowdStrikeSeverities maps Falcon severity labels onto the canonical
// scale. A lookup, not a numeric rescale, so ordering cannot invert.
var crowdStrikeSeverities = map[string]model.Severity{
	"critical":      model.SeverityCritical,
	"high":          model.SeverityHigh,
	"medium":        model.SeverityMedium,
	"low":           model.SeverityLow,
	"informational": model.SeverityInfo,
}

type crowdStrikeNormalizer struct{}

func (n *crowdStrikeNormalizer) Vendor() string { return VendorCrowdStrike }

// Normalize parses a Falcon alerts payload. Falcon wraps the alert list
// in a "resources" envelope.
func (n *crowdStrikeNormalizer) Normalize(raw []byte, exec ExecutionContext) (*model.TelemetrySummary, error) {
	records, err := decodeAlertList(raw, "resources")
	if err != nil {
		return nil, err
	}

	summary := newSummary(VendorCrowdStrike, exec)
	for _, record := range records {
		var alert crowdStrikeAlert
		if err := json.Unmarshal(record, &alert); err != nil {
			summary.Alerts = append(summary.Alerts, degradedAlert(record))
			continue
		}

		name := alert.Name
		if name == "" {
			name = alert.Tactic
		}
		severity, ok := crowdStrikeSeverities[strings.ToLower(alert.Severity)]
		if !ok {
			severity = model.SeverityInfo
		}

		summary.Alerts = append(summary.Alerts, model.AlertDetail{
			ExternalID:          alert.ID,
			Name:                name,
			Type:                alert.Type,
			Category:            classifyCategory(alert.Category, alert.Type),
			Severity:            severity,
			Confidence:          alert.Confidence,
			RiskScore:           alert.SeverityNumber,
			DetectionMethod:     classifyMethod(alert.DetectionMethod),
			Technique:           alert.Technique,
			Tactic:              alert.Tactic,
			ProcessName:         alert.Process.FileName,
			ProcessPath:         alert.Process.FilePath,
			ProcessCommandLine:  alert.Process.CommandLine,
			ProcessHash:         alert.Process.SHA256,
			ParentProcessName:   alert.ParentProcess.FileName,
			FilePath:            alert.File.FilePath,
			FileHash:            alert.File.SHA256,
			FileOperation:       alert.FileOperation,
			RemoteIP:            alert.Network.RemoteIP,
			RemotePort:          alert.Network.RemotePort,
			RemoteDomain:        alert.Network.Domain,
			NetworkProtocol:     alert.Network.Protocol,
			RegistryKey:         alert.Registry.KeyName,
			RegistryValue:       alert.Registry.ValueName,
			RegistryOperation:   alert.RegistryOperation,
			Timestamp:           parseTimestamp(alert.Timestamp),
			RemediationAction:   alert.Status,
			FalsePositiveLikely: alert.IOCValue == "false_positive",
			RawAlert:            append(json.RawMessage(nil), record...),
		})
	}

	summary.RecountFromChildren()
	return summary, nil
}

// classifyCategory maps vendor category and type hints onto the
// canonical category set. Best effort: anything unrecognized is tagged
// uncategorized, never dropped.
func classifyCategory(hints ...string) model.AlertCategory {
	for _, hint := range hints {
		switch h := strings.ToLower(hint); {
		case strings.Contains(h, "malware"), strings.Contains(h, "virus"), strings.Contains(h, "ransom"):
			return model.CategoryMalware
		case strings.Contains(h, "behavioral"), strings.Contains(h, "suspicious"), strings.Contains(h, "pua"), strings.Contains(h, "runtime"):
			return model.CategorySuspiciousBehavior
		case strings.Contains(h, "network"), strings.Contains(h, "web"), strings.Contains(h, "dns"):
			return model.CategoryNetwork
		case strings.Contains(h, "registry"):
			return model.CategoryRegistry
		case strings.Contains(h, "file"):
			return model.CategoryFileSystem
		case strings.Contains(h, "process"):
			return model.CategoryProcess
		}
	}
	// Carry the first unknown non-empty hint through as-is; the
	// category set is open and new vendors may extend it.
	for _, hint := range hints {
		if h := strings.ToLower(hint); h != "" {
			return model.AlertCategory(h)
		}
	}
	return model.CategoryUncategorized
}

// classifyMethod maps vendor detection-method hints onto the canonical
// method set.
func classifyMethod(hint string) model.DetectionMethod {
	switch h := strings.ToLower(hint); {
	case strings.Contains(h, "signature"), strings.Contains(h, "ioc"), strings.Contains(h, "static"), strings.Contains(h, "reputation"):
		return model.MethodSignature
	case strings.Contains(h, "behavioral"), strings.Contains(h, "ioa"), strings.Contains(h, "runtime"):
		return model.MethodBehavioral
	case strings.Contains(h, "ml"), strings.Contains(h, "machine"):
		return model.MethodMachineLearning
	default:
		return ""
	}
}
