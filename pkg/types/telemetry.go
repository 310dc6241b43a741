package types

import (
	"io"
)

// ExportReader is an interface for reading flattened job export rows.
type ExportReader interface {
	// GetJobID returns the identifier of the exported job.
	GetJobID() string
	// WriteToCSV writes the export rows in CSV format.
	WriteToCSV(w io.Writer, includeHeader bool) error
	// WriteToJSON writes the export rows in JSON format.
	WriteToJSON(w io.Writer) error
}
