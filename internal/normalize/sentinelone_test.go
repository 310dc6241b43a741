package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

func TestSentinelOneNormalize(t *testing.T) {
	payload := []byte(`{
		"data": [
			{
				"id": "s1-42",
				"createdAt": "2025-06-01T12:02:00Z",
				"mitigationStatus": "mitigated",
				"threatInfo": {
					"threatName": "Emotet dropper",
					"classification": "Malware",
					"classificationType": "static",
					"confidenceLevel": "malicious",
					"threatScore": 88,
					"engines": ["reputation", "pre_execution"],
					"mitreTechnique": "T1059",
					"mitreTactic": "Execution",
					"filePath": "/tmp/dropper.bin",
					"sha256": "cafef00d"
				}
			},
			{
				"id": "s1-43",
				"threatInfo": {
					"threatName": "Odd macro",
					"classification": "Suspicious Activity",
					"confidenceLevel": "suspicious",
					"engines": ["behavioral_ai"]
				}
			}
		]
	}`)

	normalizer, err := ForVendor(VendorSentinelOne)
	require.NoError(t, err)
	summary, err := normalizer.Normalize(payload, testExec)
	require.NoError(t, err)
	require.Len(t, summary.Alerts, 2)

	first := summary.Alerts[0]
	assert.Equal(t, "s1-42", first.ExternalID)
	assert.Equal(t, model.SeverityHigh, first.Severity, "malicious verdict maps to high")
	assert.Equal(t, model.CategoryMalware, first.Category)
	assert.Equal(t, model.MethodSignature, first.DetectionMethod, "reputation engine counts as signature")
	assert.Equal(t, "mitigated", first.RemediationAction)
	assert.Equal(t, "/tmp/dropper.bin", first.FilePath)
	assert.Equal(t, "cafef00d", first.FileHash)

	second := summary.Alerts[1]
	assert.Equal(t, model.SeverityMedium, second.Severity, "suspicious verdict maps to medium")
	assert.Equal(t, model.CategorySuspiciousBehavior, second.Category)
	assert.Equal(t, model.MethodBehavioral, second.DetectionMethod)

	assert.Equal(t, 1, summary.HighSeverityAlerts)
	assert.Equal(t, 1, summary.MediumSeverityAlerts)
}

func TestSentinelOneVerdictLookup(t *testing.T) {
	tests := []struct {
		verdict string
		want    model.Severity
	}{
		{verdict: "malicious", want: model.SeverityHigh},
		{verdict: "High", want: model.SeverityHigh},
		{verdict: "suspicious", want: model.SeverityMedium},
		{verdict: "low", want: model.SeverityLow},
		{verdict: "benign-but-weird", want: model.SeverityLow},
		{verdict: "", want: model.SeverityLow},
	}
	normalizer, _ := ForVendor(VendorSentinelOne) //nolint:errcheck
	for _, tt := range tests {
		payload := []byte(fmt.Sprintf(`[{"threatInfo":{"confidenceLevel":%q}}]`, tt.verdict))
		summary, err := normalizer.Normalize(payload, testExec)
		require.NoError(t, err)
		require.Len(t, summary.Alerts, 1)
		assert.Equal(t, tt.want, summary.Alerts[0].Severity, "verdict %q", tt.verdict)
	}
}

func TestSentinelOneMalformedPayload(t *testing.T) {
	normalizer, _ := ForVendor(VendorSentinelOne) //nolint:errcheck
	_, err := normalizer.Normalize([]byte(`{"pagination": {}}`), testExec)
	require.ErrorIs(t, err, ErrMalformedPayload)
}
