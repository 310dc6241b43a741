package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisDHolman/EDR-Proof/internal/data/model"
	"github.com/ChrisDHolman/EDR-Proof/internal/log"
)

// newJobCmd creates the job command group.
func newJobCmd() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage batch jobs and their registered files",
	}
	jobCmd.AddCommand(newJobCreateCmd())
	jobCmd.AddCommand(newJobAddFileCmd())
	jobCmd.AddCommand(newJobCompleteCmd())
	return jobCmd
}

// newJobCreateCmd creates the command that registers a new batch job.
func newJobCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new batch job and print its identifier",
		RunE:  runJobCreate,
	}
	createCmd.Flags().String("collection", "", "Reference to the file collection under test")
	createCmd.Flags().Int("total-files", 0, "Number of files the job will process")
	return createCmd
}

func runJobCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.NewLogger(ctx)

	collection, _ := cmd.Flags().GetString("collection") //nolint:errcheck
	totalFiles, _ := cmd.Flags().GetInt("total-files")   //nolint:errcheck

	store, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}

	job := &model.Job{
		ID:            uuid.NewString(),
		CollectionRef: collection,
		Status:        model.JobRunning,
		TotalFiles:    totalFiles,
	}
	if err := store.InsertJob(ctx, job); err != nil {
		return err
	}

	logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.Int("total_files", totalFiles))
	fmt.Fprintln(cmd.OutOrStdout(), job.ID)
	return nil
}

// newJobAddFileCmd creates the command that registers one file under a job.
func newJobAddFileCmd() *cobra.Command {
	addFileCmd := &cobra.Command{
		Use:   "add-file",
		Short: "Register one input file under a job and print its identifier",
		RunE:  runJobAddFile,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job", "name")
		},
	}
	addFileCmd.Flags().StringP("job", "j", "", "Job identifier")
	addFileCmd.Flags().StringP("name", "n", "", "File name")
	addFileCmd.Flags().String("hash", "", "SHA-256 of the file contents")
	addFileCmd.Flags().Int64("size", 0, "File size in bytes")
	addFileCmd.Flags().String("type", "", "File type, e.g. docm or pdf")
	return addFileCmd
}

func runJobAddFile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.NewLogger(ctx)

	jobID, _ := cmd.Flags().GetString("job")     //nolint:errcheck
	name, _ := cmd.Flags().GetString("name")     //nolint:errcheck
	hash, _ := cmd.Flags().GetString("hash")     //nolint:errcheck
	size, _ := cmd.Flags().GetInt64("size")      //nolint:errcheck
	fileType, _ := cmd.Flags().GetString("type") //nolint:errcheck

	store, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}

	file := &model.File{
		JobID: jobID,
		Name:  name,
		Hash:  hash,
		Size:  size,
		Type:  fileType,
	}
	if err := store.InsertFile(ctx, file); err != nil {
		return err
	}

	logger.Info("file registered",
		zap.String("job_id", jobID),
		zap.Uint("file_id", file.ID),
		zap.String("name", name))
	fmt.Fprintln(cmd.OutOrStdout(), file.ID)
	return nil
}

// newJobCompleteCmd creates the command that marks a job completed.
func newJobCompleteCmd() *cobra.Command {
	completeCmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a job completed with its final processed file count",
		RunE:  runJobComplete,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireFlags(cmd, "job")
		},
	}
	completeCmd.Flags().StringP("job", "j", "", "Job identifier")
	completeCmd.Flags().Int("processed-files", 0, "Number of files processed")
	completeCmd.Flags().Bool("failed", false, "Mark the job failed instead of completed")
	return completeCmd
}

func runJobComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.NewLogger(ctx)

	jobID, _ := cmd.Flags().GetString("job")              //nolint:errcheck
	processed, _ := cmd.Flags().GetInt("processed-files") //nolint:errcheck
	failed, _ := cmd.Flags().GetBool("failed")            //nolint:errcheck

	status := model.JobCompleted
	if failed {
		status = model.JobFailed
	}

	store, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	if err := store.UpdateJobProgress(ctx, jobID, processed, status); err != nil {
		return err
	}

	logger.Info("job finished",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.Int("processed_files", processed))
	return nil
}
