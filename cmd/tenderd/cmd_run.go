package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tender-checklist/internal/async"
)

var runCmd = &cobra.Command{
	Use:   "run <message.json>...",
	Short: "Process job messages in-process without Temporal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLocal,
}

func runLocal(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		mu     sync.Mutex
		failed int
	)
	enc := json.NewEncoder(cmd.OutOrStdout())
	q := async.NewProcessorQueue(a.orchestrator, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithTimeLimit(cfg.Queue.TimeLimit),
		async.WithMaxRetries(cfg.Queue.MaxRetries),
		async.WithRetryBackoff(cfg.Queue.RetryBackoff),
		async.WithResultHook(func(r async.Result) {
			mu.Lock()
			defer mu.Unlock()
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: failed after %d attempt(s): %v\n", r.Job.Message.JobID, r.Attempts, r.Err)
				return
			}
			_ = enc.Encode(r.Summary)
		}),
	)

	for _, path := range args {
		msg, err := readMessage(path, cmd.InOrStdin())
		if err != nil {
			q.Shutdown(ctx)
			return err
		}
		if err := q.Enqueue(ctx, async.Job{Message: msg}); err != nil {
			q.Shutdown(ctx)
			return err
		}
	}
	// Shutdown waits for every job and its retries; an interrupt abandons pending retries.
	q.Shutdown(ctx)
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted before all jobs finished: %w", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed", failed, len(args))
	}
	return nil
}
