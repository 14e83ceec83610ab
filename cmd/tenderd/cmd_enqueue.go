package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tender-checklist/internal/workflows"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <message.json|->",
	Short: "Submit a job message to the Temporal task queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	msg, err := readMessage(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	tc, err := dialTemporal()
	if err != nil {
		return err
	}
	defer tc.Close()

	runID, err := workflows.Enqueue(cmd.Context(), tc, cfg.Queue.TaskQueue, msg, workflows.PolicyFromConfig(cfg.Queue))
	if err != nil {
		return err
	}
	logger.Info("enqueue.ok", "job_id", msg.JobID, "workflow_id", workflows.WorkflowID(msg.JobID), "run_id", runID)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", workflows.WorkflowID(msg.JobID), runID)
	return nil
}
