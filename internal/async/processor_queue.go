package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

type ProcessorQueue struct {
	runner       JobRunner
	logger       *slog.Logger
	workers      int
	timeLimit    time.Duration
	maxRetries   int
	retryBackoff time.Duration
	onResult     func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// closing is cancelled when a Shutdown deadline passes, cutting retry backoffs short
	closing context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithTimeLimit bounds each attempt, not the job as a whole.
func WithTimeLimit(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeLimit = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(q *ProcessorQueue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d >= 0 {
			q.retryBackoff = d
		}
	}
}

// WithResultHook is called from the worker goroutine once a job is finished.
func WithResultHook(fn func(Result)) Option {
	return func(q *ProcessorQueue) {
		q.onResult = fn
	}
}

func NewProcessorQueue(runner JobRunner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:       runner,
		logger:       logger,
		workers:      2,
		timeLimit:    60 * time.Minute,
		maxRetries:   3,
		retryBackoff: 15 * time.Second,
		ch:           make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.closing, q.stop = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.start", "worker_id", workerID)

				for job := range q.ch {
					res := q.run(workerID, job)
					if q.onResult != nil {
						q.onResult(res)
					}
				}

				q.logger.Info("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// run retries the whole job up to maxRetries times. Every attempt gets a fresh deadline.
func (q *ProcessorQueue) run(workerID int, job Job) Result {
	res := Result{Job: job}
	log := q.logger.With("worker_id", workerID, "job_id", job.Message.JobID, "trace_id", job.TraceID)

	for attempt := 1; attempt <= q.maxRetries+1; attempt++ {
		res.Attempts = attempt
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeLimit)
		ctx = common.WithAttempt(common.WithRequestID(ctx, job.TraceID), attempt)
		res.Summary, res.Err = q.runner.Process(ctx, job.Message)
		cancel()

		if res.Err == nil {
			log.Info("queue.job.ok", "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())
			return res
		}
		log.Error("queue.job.failed", "attempt", attempt, "error", res.Err,
			"elapsed_ms", time.Since(start).Milliseconds())

		if attempt > q.maxRetries || !q.backoff(attempt) {
			break
		}
	}
	log.Error("queue.job.gave_up", "attempts", res.Attempts, "error", res.Err)
	return res
}

// backoff sleeps retryBackoff * 2^(attempt-1). It returns false if the queue is shutting down.
func (q *ProcessorQueue) backoff(attempt int) bool {
	d := q.retryBackoff << (attempt - 1)
	if d <= 0 {
		return q.closing.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.closing.Done():
		return false
	}
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	job.Message = job.Message.Normalized()
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "job_id", job.Message.JobID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "job_id", job.Message.JobID, "trace_id", job.TraceID)
		return nil
	default:
	}

	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.Message.JobID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs, retries included, to finish. If ctx
// ends first, pending retry backoffs are abandoned and Shutdown returns without waiting.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.stop()
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.stop()
		q.logger.Info("queue.shutdown.ok")
	}
}
