package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

// jobRun tracks the state machine of one attempt. Ledger writes are best-effort.
type jobRun struct {
	jobID       string
	checklistID string
	attempt     int
	state       constants.JobState
	keys        storage.JobKeys
	ledger      Ledger
	logger      *slog.Logger
}

func (o *Orchestrator) newRun(ctx context.Context, msg entity.JobMessage) *jobRun {
	attempt := common.AttemptFromContext(ctx)
	return &jobRun{
		jobID:       msg.JobID,
		checklistID: msg.ChecklistID,
		attempt:     attempt,
		keys:        storage.KeysFor(msg.JobID),
		ledger:      o.deps.Ledger,
		logger: o.logger.With(
			"job_id", msg.JobID,
			"checklist_id", msg.ChecklistID,
			"attempt", attempt,
		),
	}
}

func (r *jobRun) begin(ctx context.Context) {
	r.state = constants.JobStateStarted
	r.logger.Info("job.state", "state", r.state)
	if err := r.ledger.Start(ctx, r.jobID, r.attempt, r.checklistID); err != nil {
		r.logger.Warn("job.ledger.error", "state", r.state, "error", err)
	}
}

func (r *jobRun) transition(ctx context.Context, next constants.JobState) {
	if r.state.Terminal() {
		r.logger.Warn("job.state.ignored", "state", r.state, "next", next)
		return
	}
	r.logger.Info("job.state", "from", r.state, "state", next)
	r.state = next
	if err := r.ledger.Transition(ctx, r.jobID, r.attempt, next); err != nil {
		r.logger.Warn("job.ledger.error", "state", next, "error", err)
	}
}

func (r *jobRun) finish(ctx context.Context, final constants.JobState, errMsg string) {
	if r.state.Terminal() {
		return
	}
	r.logger.Info("job.state", "from", r.state, "state", final)
	r.state = final
	if err := r.ledger.Finish(ctx, r.jobID, r.attempt, final, errMsg); err != nil {
		r.logger.Warn("job.ledger.error", "state", final, "error", err)
	}
}
