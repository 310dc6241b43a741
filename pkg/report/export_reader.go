package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// exportReader serializes a JobExport as CSV or JSON.
type exportReader struct {
	export *JobExport
}

// NewExportReader wraps a JobExport in a reader for serialization.
func NewExportReader(export *JobExport) *exportReader {
	return &exportReader{export: export}
}

// GetJobID returns the identifier of the exported job.
func (r *exportReader) GetJobID() string {
	return r.export.JobID
}

// WriteToCSV writes the export rows in CSV format.
func (r *exportReader) WriteToCSV(w io.Writer, includeHeader bool) error {
	csvWriter := csv.NewWriter(w)

	if includeHeader {
		err := csvWriter.Write([]string{
			"JobID",
			"FileName",
			"FileHash",
			"SanitizerID",
			"Status",
			"AVPreDetections",
			"AVPostDetections",
			"AVDetectionReductionPct",
			"EDRPreAlerts",
			"EDRPostAlerts",
			"EDRAlertReductionPct",
			"NoiseReductionScore",
			"EffectivenessRating",
			"RecommendedForProduction",
			"AnalystTimeSavedHours",
			"EstimatedCostSavings",
		})
		if err != nil {
			return fmt.Errorf("error writing csv header: %w", err)
		}
	}

	for _, row := range r.export.Rows {
		err := csvWriter.Write([]string{
			row.JobID,
			row.FileName,
			row.FileHash,
			row.SanitizerID,
			row.Status,
			strconv.Itoa(row.AVPreDetections),
			strconv.Itoa(row.AVPostDetections),
			strconv.FormatFloat(row.AVDetectionReductionPct, 'f', 2, 64),
			strconv.Itoa(row.EDRPreAlerts),
			strconv.Itoa(row.EDRPostAlerts),
			strconv.FormatFloat(row.EDRAlertReductionPct, 'f', 2, 64),
			strconv.FormatFloat(row.NoiseReductionScore, 'f', 2, 64),
			row.EffectivenessRating,
			strconv.FormatBool(row.RecommendedForProduction),
			strconv.FormatFloat(row.AnalystTimeSavedHours, 'f', 2, 64),
			strconv.FormatFloat(row.EstimatedCostSavings, 'f', 2, 64),
		})
		if err != nil {
			return fmt.Errorf("error writing csv record: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}

// WriteToJSON writes the full export, rows and timestamp, in JSON format.
func (r *exportReader) WriteToJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r.export); err != nil {
		return fmt.Errorf("error writing json export: %w", err)
	}
	return nil
}
