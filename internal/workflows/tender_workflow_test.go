package workflows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

type scriptedRunner struct {
	mu       sync.Mutex
	errs     []error
	attempts []int
}

func (r *scriptedRunner) Process(ctx context.Context, msg entity.JobMessage) (entity.JobSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, common.AttemptFromContext(ctx))
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return entity.JobSummary{}, err
		}
	}
	return entity.JobSummary{JobID: msg.JobID, Items: 2}, nil
}

func testPolicy() RunPolicy {
	return RunPolicy{TimeLimit: time.Minute, MaxRetries: 3, RetryBackoff: time.Second}
}

func TestProcessTenderWorkflowSucceeds(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	runner := &scriptedRunner{}
	env.RegisterWorkflow(ProcessTenderWorkflow)
	env.RegisterActivity(NewActivities(runner, nil))

	env.ExecuteWorkflow(ProcessTenderWorkflow, ProcessTenderInput{
		Message: entity.JobMessage{JobID: "job-1", ChecklistID: "cl-1"},
		Policy:  testPolicy(),
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var summary entity.JobSummary
	require.NoError(t, env.GetWorkflowResult(&summary))
	assert.Equal(t, "job-1", summary.JobID)
	assert.Equal(t, 2, summary.Items)
	assert.Equal(t, []int{1}, runner.attempts)
}

func TestProcessTenderWorkflowRetriesActivity(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	runner := &scriptedRunner{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	env.RegisterWorkflow(ProcessTenderWorkflow)
	env.RegisterActivity(NewActivities(runner, nil))

	env.ExecuteWorkflow(ProcessTenderWorkflow, ProcessTenderInput{
		Message: entity.JobMessage{JobID: "job-1"},
		Policy:  testPolicy(),
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, []int{1, 2, 3}, runner.attempts, "attempt numbers reach the runner")
}

func TestProcessTenderWorkflowStopsAtMaxRetries(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	fail := errors.New("upstream down")
	runner := &scriptedRunner{errs: []error{fail, fail, fail, fail, fail}}
	env.RegisterWorkflow(ProcessTenderWorkflow)
	env.RegisterActivity(NewActivities(runner, nil))

	policy := testPolicy()
	policy.MaxRetries = 1
	env.ExecuteWorkflow(ProcessTenderWorkflow, ProcessTenderInput{
		Message: entity.JobMessage{JobID: "job-1"},
		Policy:  policy,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.Len(t, runner.attempts, 2)
}

func TestProcessTenderWorkflowRetriesPreconditionFailures(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	noDocs := common.NewAppError("PRECONDITION", "no documents supplied", common.ErrPrecondition)
	runner := &scriptedRunner{errs: []error{noDocs, noDocs, noDocs, noDocs}}
	env.RegisterWorkflow(ProcessTenderWorkflow)
	env.RegisterActivity(NewActivities(runner, nil))

	env.ExecuteWorkflow(ProcessTenderWorkflow, ProcessTenderInput{
		Message: entity.JobMessage{JobID: "job-1"},
		Policy:  testPolicy(),
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.False(t, appErr.NonRetryable())
	assert.Equal(t, []int{1, 2, 3, 4}, runner.attempts)
}

type fakeRun struct {
	client.WorkflowRun
	runID string
}

func (r fakeRun) GetRunID() string { return r.runID }

type fakeStarter struct {
	opts client.StartWorkflowOptions
	args []interface{}
	err  error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, opts client.StartWorkflowOptions, _ interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.opts = opts
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return fakeRun{runID: "run-1"}, nil
}

func TestEnqueue(t *testing.T) {
	starter := &fakeStarter{}
	runID, err := Enqueue(context.Background(), starter, "tenders",
		entity.JobMessage{ChecklistID: "cl-9"}, DefaultRunPolicy())
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, "tender-cl-9", starter.opts.ID)
	assert.Equal(t, "tenders", starter.opts.TaskQueue)
	require.Len(t, starter.args, 1)
	in := starter.args[0].(ProcessTenderInput)
	assert.Equal(t, "cl-9", in.Message.JobID)
	assert.Equal(t, 60*time.Minute, in.Policy.TimeLimit)

	_, err = Enqueue(context.Background(), starter, "tenders", entity.JobMessage{}, DefaultRunPolicy())
	require.ErrorIs(t, err, common.ErrPrecondition)

	starter.err = errors.New("namespace not found")
	_, err = Enqueue(context.Background(), starter, "tenders", entity.JobMessage{JobID: "x"}, DefaultRunPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tender-x")
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(common.QueueConfig{MaxRetries: 5, TimeLimit: 10 * time.Minute})
	assert.Equal(t, RunPolicy{TimeLimit: 10 * time.Minute, MaxRetries: 5, RetryBackoff: 15 * time.Second}, p)
}
