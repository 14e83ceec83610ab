package workflows

import (
	"context"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/joseph-ayodele/tender-checklist/internal/async"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// RunPolicy bounds one job: each attempt gets TimeLimit, and a failed job is retried up to
// MaxRetries times with exponential backoff starting at RetryBackoff.
type RunPolicy struct {
	TimeLimit    time.Duration `json:"time_limit"`
	MaxRetries   int           `json:"max_retries"`
	RetryBackoff time.Duration `json:"retry_backoff"`
}

// DefaultRunPolicy is 60 minutes per attempt, 3 retries, 15s backoff doubling each time.
func DefaultRunPolicy() RunPolicy {
	return RunPolicy{TimeLimit: 60 * time.Minute, MaxRetries: 3, RetryBackoff: 15 * time.Second}
}

// PolicyFromConfig reads the run policy from the queue settings.
func PolicyFromConfig(cfg common.QueueConfig) RunPolicy {
	p := DefaultRunPolicy()
	if cfg.TimeLimit > 0 {
		p.TimeLimit = cfg.TimeLimit
	}
	if cfg.MaxRetries >= 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBackoff > 0 {
		p.RetryBackoff = cfg.RetryBackoff
	}
	return p
}

type ProcessTenderInput struct {
	Message entity.JobMessage `json:"message"`
	Policy  RunPolicy         `json:"policy"`
}

// ProcessTenderWorkflow runs the whole job as a single retried activity.
func ProcessTenderWorkflow(ctx workflow.Context, in ProcessTenderInput) (entity.JobSummary, error) {
	policy := in.Policy
	if policy.TimeLimit <= 0 {
		policy = DefaultRunPolicy()
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: policy.TimeLimit,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    policy.RetryBackoff,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    int32(policy.MaxRetries + 1),
		},
	})

	var summary entity.JobSummary
	err := workflow.ExecuteActivity(ctx, (*Activities).ProcessTender, in.Message).Get(ctx, &summary)
	return summary, err
}

// Activities adapts a JobRunner to Temporal.
type Activities struct {
	runner async.JobRunner
	logger *slog.Logger
}

func NewActivities(runner async.JobRunner, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{runner: runner, logger: logger}
}

// ProcessTender runs one attempt. Temporal's attempt counter is passed on so the
// ledger keys each attempt separately.
func (a *Activities) ProcessTender(ctx context.Context, msg entity.JobMessage) (entity.JobSummary, error) {
	info := activity.GetInfo(ctx)
	attempt := int(info.Attempt)
	ctx = common.WithRequestID(common.WithAttempt(ctx, attempt), info.WorkflowExecution.ID)

	start := time.Now()
	summary, err := a.runner.Process(ctx, msg)
	if err != nil {
		a.logger.Error("workflow.activity.failed",
			"workflow_id", info.WorkflowExecution.ID,
			"attempt", attempt,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return summary, err
	}
	a.logger.Info("workflow.activity.ok",
		"workflow_id", info.WorkflowExecution.ID,
		"attempt", attempt,
		"items", summary.Items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

// Register adds the workflow and its activities to a worker.
func Register(r worker.Registry, acts *Activities) {
	r.RegisterWorkflow(ProcessTenderWorkflow)
	r.RegisterActivity(acts)
}

// WorkflowStarter is the part of client.Client used to submit jobs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// WorkflowID is stable per job so a duplicate submission is rejected by Temporal.
func WorkflowID(jobID string) string { return "tender-" + jobID }

// Enqueue submits msg to taskQueue and returns the workflow run id.
func Enqueue(ctx context.Context, c WorkflowStarter, taskQueue string, msg entity.JobMessage, policy RunPolicy) (string, error) {
	msg = msg.Normalized()
	if msg.JobID == "" {
		return "", common.NewAppError("PRECONDITION", "job_id or checklist_id is required", common.ErrPrecondition)
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(msg.JobID),
		TaskQueue: taskQueue,
	}, ProcessTenderWorkflow, ProcessTenderInput{Message: msg, Policy: policy})
	if err != nil {
		return "", common.WrapError(err, "start workflow "+WorkflowID(msg.JobID))
	}
	return run.GetRunID(), nil
}
