package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
	"github.com/ChrisDHolman/EDR-Proof/pkg/report"
	"github.com/ChrisDHolman/EDR-Proof/pkg/types"
)

// newReportCmd creates the report command group.
func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Read-only reporting views over stored results",
	}
	reportCmd.PersistentFlags().StringP("job", "j", "", "Job identifier")

	reportCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Print the job-level rollup",
		RunE:  runReportSummary,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job")
		},
	})

	noisiestCmd := &cobra.Command{
		Use:   "noisiest",
		Short: "Rank files by pre-sanitization alert volume",
		RunE:  runReportNoisiest,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job")
		},
	}
	noisiestCmd.Flags().IntP("limit", "l", 10, "Maximum number of files to return")
	reportCmd.AddCommand(noisiestCmd)

	breakdownCmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Per-category alert counts for one file and version",
		RunE:  runReportBreakdown,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job", "version")
		},
	}
	breakdownCmd.Flags().UintP("file-id", "f", 0, "File identifier")
	breakdownCmd.Flags().StringP("version", "v", "", "pre-sanitization or post-sanitization")
	reportCmd.AddCommand(breakdownCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the flattened job record set",
		RunE:  runReportExport,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job")
		},
	}
	exportCmd.Flags().String("format", "json", "Export format: json or csv")
	exportCmd.Flags().StringP("output-file", "f", "", "Output file for results (stdout when empty)")
	reportCmd.AddCommand(exportCmd)

	return reportCmd
}

func newReporter(cmd *cobra.Command) (*report.Reporter, error) {
	store, _, err := openStore(cmd.Context(), cmd)
	if err != nil {
		return nil, err
	}
	return report.New(store)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job") //nolint:errcheck
	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	summary, err := reporter.JobSummary(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func runReportNoisiest(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job") //nolint:errcheck
	limit, _ := cmd.Flags().GetInt("limit")  //nolint:errcheck
	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	files, err := reporter.NoisiestFiles(cmd.Context(), jobID, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, files)
}

func runReportBreakdown(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job")       //nolint:errcheck
	fileID, _ := cmd.Flags().GetUint("file-id")    //nolint:errcheck
	version, _ := cmd.Flags().GetString("version") //nolint:errcheck
	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	breakdown, err := reporter.CategoryBreakdown(cmd.Context(), jobID, fileID, model.Version(version))
	if err != nil {
		return err
	}
	return printJSON(cmd, breakdown)
}

func runReportExport(cmd *cobra.Command, args []string) error {
	jobID, _ := cmd.Flags().GetString("job")              //nolint:errcheck
	format, _ := cmd.Flags().GetString("format")          //nolint:errcheck
	outputFile, _ := cmd.Flags().GetString("output-file") //nolint:errcheck

	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	export, err := reporter.ExportJob(cmd.Context(), jobID)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	var reader types.ExportReader = report.NewExportReader(export)
	switch format {
	case "csv":
		return reader.WriteToCSV(w, true)
	case "json":
		return reader.WriteToJSON(w)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
