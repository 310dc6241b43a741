package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisDHolman/EDR-Proof/internal/config"
	"github.com/ChrisDHolman/EDR-Proof/internal/data/db"
	"github.com/ChrisDHolman/EDR-Proof/internal/pprof"
	"github.com/ChrisDHolman/EDR-Proof/internal/sql"
	"github.com/ChrisDHolman/EDR-Proof/pkg/version"
)

// errFlagRetrieval is the error message for when a flag cannot be retrieved.
var errFlagRetrieval = errors.New("error getting flag")

// errRequiredFlagEmpty is the error message for a required flag that is empty.
var errRequiredFlagEmpty = errors.New("is required and cannot be empty")

// Execute is the main entry point for the CLI.
func Execute(args []string) {
	rootCmd := newRootCmd()
	rootCmd.Version = fmt.Sprintf(`{"version": "%s", "commit": "%s"}`, version.Version, version.CommitSHA)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "edr-proof",
		Short: "edr-proof measures how much security-tool noise CDR sanitization removes.",
		Long: "edr-proof ingests anti-malware detections and EDR telemetry captured before and " +
			"after file sanitization, and computes noise reduction scores from the stored results.",
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("pprof-addr", "", "Address to serve pprof on (disabled when empty)")

	rootCmd.AddCommand(newJobCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newReportCmd())
	return rootCmd
}

// requireFlags rejects empty values for the named string flags.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errFlagRetrieval, name, err)
		}
		if value == "" {
			return fmt.Errorf("%s %w", name, errRequiredFlagEmpty)
		}
	}
	return nil
}

// openStore loads the config, connects to the configured database and
// migrates the schema. It also starts the pprof server when requested.
func openStore(ctx context.Context, cmd *cobra.Command) (*db.GormResultStore, *config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config") //nolint:errcheck
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if pprofAddr, _ := cmd.Flags().GetString("pprof-addr"); pprofAddr != "" { //nolint:errcheck
		go pprof.StartPprofServer(ctx, pprofAddr) //nolint:errcheck
	}

	conn, err := sql.CreateDBConnector(cfg.DB).Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}
	store, err := db.NewGormResultStore(conn)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
