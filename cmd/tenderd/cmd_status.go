package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/repository"
)

var statusFlags struct {
	all bool
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the ledger state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.all, "all", false, "list every attempt, not just the latest")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if cfg.Ledger.Driver == "" {
		return common.NewAppError("CONFIG_ERROR", "status needs LEDGER_DRIVER and LEDGER_DSN", common.ErrInvalidConfiguration)
	}
	db, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	repo := repository.NewJobRunRepository(db, logger)

	jobID := args[0]
	out := cmd.OutOrStdout()
	if !statusFlags.all {
		run, err := repo.Latest(cmd.Context(), jobID)
		if errors.Is(err, common.ErrNotFound) {
			fmt.Fprintf(out, "No runs recorded for job %s\n", jobID)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Job:       %s\n", run.JobID)
		fmt.Fprintf(out, "Checklist: %s\n", run.ChecklistID)
		fmt.Fprintf(out, "Attempt:   %d\n", run.Attempt)
		fmt.Fprintf(out, "State:     %s\n", run.State)
		fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Updated:   %s\n", run.UpdatedAt.Format(time.RFC3339))
		if run.ErrorMessage != nil {
			fmt.Fprintf(out, "Error:     %s\n", *run.ErrorMessage)
		}
		return nil
	}

	runs, err := repo.List(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded for job %s\n", jobID)
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("#%d  %-24s %s", r.Attempt, r.State, r.UpdatedAt.Format(time.RFC3339))
		if r.ErrorMessage != nil {
			line += "  " + *r.ErrorMessage
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
