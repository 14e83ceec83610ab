package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

const (
	jobRunsTable    = "job_runs"
	colJobID        = "job_id"
	colAttempt      = "attempt"
	colChecklistID  = "checklist_id"
	colState        = "state"
	colErrorMessage = "error_message"
	colStartedAt    = "started_at"
	colUpdatedAt    = "updated_at"
	colFinishedAt   = "finished_at"
)

var jobRunColumns = []string{
	colJobID, colAttempt, colChecklistID, colState, colErrorMessage,
	colStartedAt, colUpdatedAt, colFinishedAt,
}

// JobRunRepository is the per-attempt state ledger.
type JobRunRepository interface {
	Start(ctx context.Context, jobID string, attempt int, checklistID string) error
	Transition(ctx context.Context, jobID string, attempt int, state constants.JobState) error
	Finish(ctx context.Context, jobID string, attempt int, state constants.JobState, errMsg string) error
	Latest(ctx context.Context, jobID string) (*entity.JobRun, error)
	List(ctx context.Context, jobID string) ([]entity.JobRun, error)
}

type jobRunRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewJobRunRepository(db *DB, log *slog.Logger) JobRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRunRepo{db: db, log: log, now: time.Now}
}

func (r *jobRunRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.drv.Dialect())
}

// Start records a fresh attempt in STARTED. Re-recording the same attempt resets it.
func (r *jobRunRepo) Start(ctx context.Context, jobID string, attempt int, checklistID string) error {
	now := r.now().UnixMilli()
	q, args := r.builder().
		Insert(jobRunsTable).
		Columns(colJobID, colAttempt, colChecklistID, colState, colErrorMessage, colStartedAt, colUpdatedAt, colFinishedAt).
		Values(jobID, attempt, checklistID, string(constants.JobStateStarted), nil, now, now, nil).
		OnConflict(
			entsql.ConflictColumns(colJobID, colAttempt),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("job_run start failed", "job_id", jobID, "attempt", attempt, "err", err)
		return fmt.Errorf("%w: start job run: %v", common.ErrDatabase, err)
	}
	r.log.Debug("job_run started", "job_id", jobID, "attempt", attempt)
	return nil
}

func (r *jobRunRepo) Transition(ctx context.Context, jobID string, attempt int, state constants.JobState) error {
	q, args := r.builder().
		Update(jobRunsTable).
		Set(colState, string(state)).
		Set(colUpdatedAt, r.now().UnixMilli()).
		Where(entsql.And(entsql.EQ(colJobID, jobID), entsql.EQ(colAttempt, attempt))).
		Query()
	return r.exec(ctx, "transition", jobID, attempt, q, args)
}

// Finish moves the attempt to a terminal state. errMsg is stored only when non-empty.
func (r *jobRunRepo) Finish(ctx context.Context, jobID string, attempt int, state constants.JobState, errMsg string) error {
	if !state.Terminal() {
		return fmt.Errorf("%w: %s is not a terminal state", common.ErrInvalidInput, state)
	}
	now := r.now().UnixMilli()
	upd := r.builder().
		Update(jobRunsTable).
		Set(colState, string(state)).
		Set(colUpdatedAt, now).
		Set(colFinishedAt, now).
		Where(entsql.And(entsql.EQ(colJobID, jobID), entsql.EQ(colAttempt, attempt)))
	if errMsg != "" {
		upd.Set(colErrorMessage, errMsg)
	} else {
		upd.SetNull(colErrorMessage)
	}
	q, args := upd.Query()
	return r.exec(ctx, "finish", jobID, attempt, q, args)
}

func (r *jobRunRepo) exec(ctx context.Context, op, jobID string, attempt int, q string, args []any) error {
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.log.Error("job_run "+op+" failed", "job_id", jobID, "attempt", attempt, "err", err)
		return fmt.Errorf("%w: %s job run: %v", common.ErrDatabase, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job run %s/%d: %w", jobID, attempt, common.ErrNotFound)
	}
	return nil
}

// Latest returns the highest attempt recorded for jobID.
func (r *jobRunRepo) Latest(ctx context.Context, jobID string) (*entity.JobRun, error) {
	runs, err := r.query(ctx, jobID, entsql.Desc(colAttempt), 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	return &runs[0], nil
}

// List returns every attempt for jobID in attempt order.
func (r *jobRunRepo) List(ctx context.Context, jobID string) ([]entity.JobRun, error) {
	return r.query(ctx, jobID, entsql.Asc(colAttempt), 0)
}

func (r *jobRunRepo) query(ctx context.Context, jobID, order string, limit int) ([]entity.JobRun, error) {
	b := r.builder()
	sel := b.Select(jobRunColumns...).
		From(b.Table(jobRunsTable)).
		Where(entsql.EQ(colJobID, jobID)).
		OrderBy(order)
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		r.log.Error("job_run query failed", "job_id", jobID, "err", err)
		return nil, fmt.Errorf("%w: query job runs: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.JobRun
	for rows.Next() {
		var (
			run              entity.JobRun
			errMsg           sql.NullString
			started, updated int64
			finished         sql.NullInt64
		)
		if err := rows.Scan(&run.JobID, &run.Attempt, &run.ChecklistID, &run.State, &errMsg,
			&started, &updated, &finished); err != nil {
			return nil, fmt.Errorf("%w: scan job run: %v", common.ErrDatabase, err)
		}
		if errMsg.Valid {
			run.ErrorMessage = &errMsg.String
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.UpdatedAt = time.UnixMilli(updated).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate job runs: %v", common.ErrDatabase, err)
	}
	return out, nil
}
