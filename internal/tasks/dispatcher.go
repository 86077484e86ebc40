package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"qorsense-cloud/internal/observability/metrics"
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 64
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 2 * time.Second
	defaultJobTimeout   = 5 * time.Minute
)

// Job is the unit of background work. It reports progress through the
// callback and returns the task's result payload.
type Job func(ctx context.Context, report func(done, total int)) (any, error)

type queued struct {
	id  string
	job Job
}

// Dispatcher runs submitted jobs on a fixed worker pool with bounded
// retries.
type Dispatcher struct {
	store        *Store
	queue        chan queued
	workers      int
	maxAttempts  int
	retryBackoff time.Duration
	jobTimeout   time.Duration
	logger       *log.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the worker count.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxAttempts sets how many times a failing job is tried.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the pause between attempts.
func WithRetryBackoff(backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.retryBackoff = backoff
		}
	}
}

// WithJobTimeout bounds a single attempt.
func WithJobTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.jobTimeout = timeout
		}
	}
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(store *Store, logger *log.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("tasks: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{
		store:        store,
		queue:        make(chan queued, defaultQueueSize),
		workers:      defaultWorkers,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
		jobTimeout:   defaultJobTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start launches the worker pool. Workers drain until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Wait blocks until all workers exit.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit registers a task and queues its job.
func (d *Dispatcher) Submit(kind string, job Job) (Task, error) {
	if job == nil {
		return Task{}, errors.New("tasks: nil job")
	}
	task, err := d.store.Create(kind)
	if err != nil {
		return Task{}, err
	}
	select {
	case d.queue <- queued{id: task.ID, job: job}:
		return task, nil
	default:
		d.store.update(task.ID, func(t *Task) {
			t.Status = StatusFailed
			t.Error = "queue full"
			now := time.Now().UTC()
			t.FinishedAt = &now
		})
		return Task{}, errors.New("tasks: queue full")
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			d.run(ctx, item)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, item queued) {
	start := time.Now()
	now := start.UTC()
	d.store.update(item.id, func(t *Task) {
		t.Status = StatusRunning
		t.StartedAt = &now
	})

	report := func(done, total int) {
		d.store.update(item.id, func(t *Task) {
			t.Done = done
			t.Total = total
		})
	}

	var result any
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		d.store.update(item.id, func(t *Task) { t.Attempts = attempt })

		attemptCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
		result, err = item.job(attemptCtx, report)
		cancel()

		if err == nil {
			break
		}
		if ctx.Err() != nil {
			d.finish(item.id, StatusCancelled, nil, ctx.Err(), start)
			return
		}
		d.logger.Printf("task %s attempt %d/%d failed: %v", item.id, attempt, d.maxAttempts, err)
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				d.finish(item.id, StatusCancelled, nil, ctx.Err(), start)
				return
			case <-time.After(d.retryBackoff):
			}
		}
	}

	if err != nil {
		d.finish(item.id, StatusFailed, nil, err, start)
		return
	}
	d.finish(item.id, StatusCompleted, result, nil, start)
}

func (d *Dispatcher) finish(id string, status Status, result any, err error, start time.Time) {
	now := time.Now().UTC()
	d.store.update(id, func(t *Task) {
		t.Status = status
		t.Result = result
		if err != nil {
			t.Error = err.Error()
		}
		t.FinishedAt = &now
	})
	metrics.ObserveTask(string(status), time.Since(start))
}
