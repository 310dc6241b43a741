package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
)

var testScan = ScanContext{
	JobID:     "job-1",
	FileID:    7,
	Version:   model.VersionPreSanitization,
	ScannedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
}

func TestNormalizeDefender(t *testing.T) {
	payload := []byte(`{
		"threats": [
			{"name": "Trojan:W97M/Obfuse", "type": "trojan", "family": "Obfuse", "severity": "Severe"}
		],
		"detection_source": "antimalware",
		"scan_time_ms": 840
	}`)

	detection, err := NormalizeDetection(EngineDefender, payload, testScan)
	require.NoError(t, err)
	assert.True(t, detection.Malicious)
	assert.Equal(t, "Trojan:W97M/Obfuse", detection.ThreatName)
	assert.Equal(t, model.SeverityCritical, detection.Severity, "severe maps to critical")
	assert.Equal(t, int64(840), detection.ScanLatencyMS)
	assert.Equal(t, model.JSONStringArray{"antimalware"}, detection.DetectionMethods)
	assert.Equal(t, "job-1", detection.JobID)
	assert.Equal(t, model.VersionPreSanitization, detection.Version)

	clean, err := NormalizeDetection(EngineDefender, []byte(`{"threats": []}`), testScan)
	require.NoError(t, err)
	assert.False(t, clean.Malicious)
	assert.Empty(t, clean.ThreatName)
}

func TestNormalizeClamAV(t *testing.T) {
	detection, err := NormalizeDetection(EngineClamAV, []byte(`{"infected": true, "virus_name": "Doc.Dropper.Agent"}`), testScan)
	require.NoError(t, err)
	assert.True(t, detection.Malicious)
	assert.Equal(t, "Doc.Dropper.Agent", detection.ThreatName)
	assert.Equal(t, model.SeverityHigh, detection.Severity)

	clean, err := NormalizeDetection(EngineClamAV, []byte(`{"infected": false}`), testScan)
	require.NoError(t, err)
	assert.False(t, clean.Malicious)

	// A report missing the verdict field entirely is malformed, not clean.
	_, err = NormalizeDetection(EngineClamAV, []byte(`{"virus_name": "x"}`), testScan)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeVirusTotal(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		malicious bool
		severity  model.Severity
	}{
		{name: "consensus critical", payload: `{"positives": 40, "total": 70}`, malicious: true, severity: model.SeverityCritical},
		{name: "several engines high", payload: `{"positives": 6, "total": 70}`, malicious: true, severity: model.SeverityHigh},
		{name: "two engines medium", payload: `{"positives": 2, "total": 70}`, malicious: true, severity: model.SeverityMedium},
		{name: "single engine low", payload: `{"positives": 1, "total": 70}`, malicious: true, severity: model.SeverityLow},
		{name: "clean", payload: `{"positives": 0, "total": 70}`, malicious: false, severity: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detection, err := NormalizeDetection(EngineVirusTotal, []byte(tt.payload), testScan)
			require.NoError(t, err)
			assert.Equal(t, tt.malicious, detection.Malicious)
			assert.Equal(t, tt.severity, detection.Severity)
		})
	}

	_, err := NormalizeDetection(EngineVirusTotal, []byte(`{"total": 70}`), testScan)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeOPSWAT(t *testing.T) {
	payload := []byte(`{
		"scan_results": {
			"scan_all_result_a": "Infected",
			"total_time": 1200,
			"scan_details": {
				"engine-a": {"threat_found": true, "def_name": "Exploit.CVE-2017-11882"}
			}
		}
	}`)

	detection, err := NormalizeDetection(EngineOPSWAT, payload, testScan)
	require.NoError(t, err)
	assert.True(t, detection.Malicious)
	assert.Equal(t, "Exploit.CVE-2017-11882", detection.ThreatName)
	assert.Equal(t, model.SeverityHigh, detection.Severity)
	assert.Equal(t, int64(1200), detection.ScanLatencyMS)

	clean, err := NormalizeDetection(EngineOPSWAT, []byte(`{"scan_results": {"scan_all_result_a": "No Threat Detected"}}`), testScan)
	require.NoError(t, err)
	assert.False(t, clean.Malicious)

	// A report without the scan_results envelope is malformed, not clean.
	_, err = NormalizeDetection(EngineOPSWAT, []byte(`{"data_id": "x"}`), testScan)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeReversingLabs(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		malicious bool
		severity  model.Severity
		conf      int
	}{
		{name: "malicious", payload: `{"classification": "MALICIOUS", "threat_name": "Win32.Trojan.Emotet", "threat_level": 9}`,
			malicious: true, severity: model.SeverityHigh, conf: 90},
		{name: "suspicious", payload: `{"classification": "SUSPICIOUS", "threat_level": 4}`,
			malicious: true, severity: model.SeverityMedium, conf: 40},
		{name: "known clean", payload: `{"classification": "KNOWN"}`, malicious: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detection, err := NormalizeDetection(EngineReversingLabs, []byte(tt.payload), testScan)
			require.NoError(t, err)
			assert.Equal(t, tt.malicious, detection.Malicious)
			assert.Equal(t, tt.severity, detection.Severity)
			assert.Equal(t, tt.conf, detection.Confidence)
		})
	}

	_, err := NormalizeDetection(EngineReversingLabs, []byte(`{"threat_level": 9}`), testScan)
	require.ErrorIs(t, err, ErrMalformedPayload, "report without a classification is malformed")
}

func TestNormalizeDetectionUnknownEngine(t *testing.T) {
	_, err := NormalizeDetection("kaspersky", []byte(`{}`), testScan)
	require.ErrorIs(t, err, ErrUnknownVendor)
}
