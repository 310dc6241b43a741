package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
	"github.com/ChrisDHolman/EDR-Proof/internal/log"
	"github.com/ChrisDHolman/EDR-Proof/internal/metrics"
	"github.com/ChrisDHolman/EDR-Proof/internal/normalize"
)

const metricsNamespace = "edr_proof"

// newIngestCmd creates the ingest command group.
func newIngestCmd() *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Normalize and store vendor telemetry or scan payloads",
	}
	ingestCmd.AddCommand(newIngestTelemetryCmd())
	ingestCmd.AddCommand(newIngestDetectionCmd())
	return ingestCmd
}

// newIngestTelemetryCmd creates the command that ingests one EDR telemetry payload.
func newIngestTelemetryCmd() *cobra.Command {
	telemetryCmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Normalize an EDR alert payload and store it with its execution context",
		RunE:  runIngestTelemetry,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "vendor", "job", "payload", "version"); err != nil {
				return err
			}
			return nil
		},
	}
	telemetryCmd.Flags().StringP("vendor", "e", "", "EDR vendor id (crowdstrike|sentinelone|sophos)")
	telemetryCmd.Flags().StringP("job", "j", "", "Job identifier")
	telemetryCmd.Flags().UintP("file-id", "f", 0, "File identifier")
	telemetryCmd.Flags().StringP("version", "v", "", "pre-sanitization or post-sanitization")
	telemetryCmd.Flags().StringP("sanitizer", "s", "", "Sanitizer engine id (required for post-sanitization)")
	telemetryCmd.Flags().String("host", "", "Execution host identifier")
	telemetryCmd.Flags().StringP("payload", "p", "", "Path to the raw vendor payload")
	telemetryCmd.Flags().Bool("success", true, "Whether the file execution succeeded")
	telemetryCmd.Flags().String("start", "", "Execution start time, RFC3339")
	telemetryCmd.Flags().String("end", "", "Execution end time, RFC3339 (defaults to now)")
	return telemetryCmd
}

// parseTimeFlag parses an RFC3339 string flag. An empty flag yields the
// zero time without error.
func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", errFlagRetrieval, name, err)
	}
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing --%s: %w", name, err)
	}
	return ts, nil
}

func runIngestTelemetry(cmd *cobra.Command, args []string) error {
	ctx := metrics.WithMetrics(cmd.Context(), metricsNamespace)
	logger := log.NewLogger(ctx)

	vendor, _ := cmd.Flags().GetString("vendor")       //nolint:errcheck
	jobID, _ := cmd.Flags().GetString("job")           //nolint:errcheck
	fileID, _ := cmd.Flags().GetUint("file-id")        //nolint:errcheck
	version, _ := cmd.Flags().GetString("version")     //nolint:errcheck
	sanitizer, _ := cmd.Flags().GetString("sanitizer") //nolint:errcheck
	host, _ := cmd.Flags().GetString("host")           //nolint:errcheck
	payloadPath, _ := cmd.Flags().GetString("payload") //nolint:errcheck
	success, _ := cmd.Flags().GetBool("success")       //nolint:errcheck

	startedAt, err := parseTimeFlag(cmd, "start")
	if err != nil {
		return err
	}
	endedAt, err := parseTimeFlag(cmd, "end")
	if err != nil {
		return err
	}
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	normalizer, err := normalize.ForVendor(vendor)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("error reading payload: %w", err)
	}

	summary, err := normalizer.Normalize(payload, normalize.ExecutionContext{
		JobID:       jobID,
		FileID:      fileID,
		SanitizerID: sanitizer,
		Version:     model.Version(version),
		HostID:      host,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Success:     success,
	})
	if err != nil {
		return fmt.Errorf("error normalizing %s payload: %w", vendor, err)
	}

	store, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	if err := store.InsertTelemetrySummary(ctx, summary); err != nil {
		return err
	}

	collector := metrics.FromContext(ctx, metricsNamespace)
	if _, err := collector.RegisterCounter(ctx, "alerts_ingested", "vendor"); err == nil {
		collector.AddCounter(ctx, "alerts_ingested", float64(summary.TotalAlerts), vendor) //nolint:errcheck
	}

	logger.Info("telemetry ingested",
		zap.String("vendor", vendor),
		zap.String("job_id", jobID),
		zap.Uint("file_id", fileID),
		zap.Int("alerts", summary.TotalAlerts))
	return nil
}

// newIngestDetectionCmd creates the command that ingests one AV scan payload.
func newIngestDetectionCmd() *cobra.Command {
	detectionCmd := &cobra.Command{
		Use:   "detection",
		Short: "Normalize an anti-malware scan payload and store it",
		RunE:  runIngestDetection,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "engine", "job", "payload", "version")
		},
	}
	detectionCmd.Flags().StringP("engine", "e", "", "AV engine id (defender|clamav|virustotal)")
	detectionCmd.Flags().StringP("job", "j", "", "Job identifier")
	detectionCmd.Flags().UintP("file-id", "f", 0, "File identifier")
	detectionCmd.Flags().StringP("version", "v", "", "pre-sanitization or post-sanitization")
	detectionCmd.Flags().StringP("sanitizer", "s", "", "Sanitizer engine id (required for post-sanitization)")
	detectionCmd.Flags().StringP("payload", "p", "", "Path to the raw vendor payload")
	return detectionCmd
}

func runIngestDetection(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.NewLogger(ctx)

	engine, _ := cmd.Flags().GetString("engine")       //nolint:errcheck
	jobID, _ := cmd.Flags().GetString("job")           //nolint:errcheck
	fileID, _ := cmd.Flags().GetUint("file-id")        //nolint:errcheck
	version, _ := cmd.Flags().GetString("version")     //nolint:errcheck
	sanitizer, _ := cmd.Flags().GetString("sanitizer") //nolint:errcheck
	payloadPath, _ := cmd.Flags().GetString("payload") //nolint:errcheck

	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("error reading payload: %w", err)
	}

	detection, err := normalize.NormalizeDetection(engine, payload, normalize.ScanContext{
		JobID:       jobID,
		FileID:      fileID,
		SanitizerID: sanitizer,
		Version:     model.Version(version),
		ScannedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("error normalizing %s result: %w", engine, err)
	}

	store, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	if err := store.InsertDetection(ctx, detection); err != nil {
		return err
	}

	logger.Info("detection ingested",
		zap.String("engine", engine),
		zap.String("job_id", jobID),
		zap.Uint("file_id", fileID),
		zap.Bool("malicious", detection.Malicious))
	return nil
}
