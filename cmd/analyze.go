package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisDHolman/EDR-Proof/internal/analysis"
)

// newAnalyzeCmd creates the command that computes one noise reduction analysis.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the noise reduction analysis for one (job, file, sanitizer) triple",
		RunE:  runAnalyze,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job", "sanitizer")
		},
	}
	analyzeCmd.Flags().StringP("job", "j", "", "Job identifier")
	analyzeCmd.Flags().UintP("file-id", "f", 0, "File identifier")
	analyzeCmd.Flags().StringP("sanitizer", "s", "", "Sanitizer engine id")
	return analyzeCmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobID, _ := cmd.Flags().GetString("job")           //nolint:errcheck
	fileID, _ := cmd.Flags().GetUint("file-id")        //nolint:errcheck
	sanitizer, _ := cmd.Flags().GetString("sanitizer") //nolint:errcheck

	store, cfg, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	analyzer, err := analysis.New(store, cfg.Analysis)
	if err != nil {
		return err
	}

	result, err := analyzer.Analyze(ctx, jobID, fileID, sanitizer)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding analysis: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
