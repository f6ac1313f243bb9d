package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig holds configuration for a queue worker.
type WorkerConfig struct {
	// Queue is the name of the queue to consume.
	Queue string
	// Concurrency is the number of jobs processed in parallel.
	Concurrency int
	// DequeueWait bounds each blocking dequeue call.
	DequeueWait time.Duration
	// ShutdownTimeout bounds how long Stop waits for in-flight jobs.
	ShutdownTimeout time.Duration
}

// DefaultWorkerConfig returns sensible worker defaults for the named queue.
func DefaultWorkerConfig(queue string) WorkerConfig {
	return WorkerConfig{
		Queue:           queue,
		Concurrency:     1,
		DequeueWait:     5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Worker consumes jobs from a single queue and dispatches them to handlers
// registered by job type. Failed jobs are retried with exponential backoff
// until their attempts are exhausted or the handler returns a Permanent
// error.
type Worker struct {
	backend  Backend
	config   WorkerConfig
	logger   *slog.Logger
	handlers map[string]HandlerFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewWorker creates a worker for the configured queue.
func NewWorker(backend Backend, config WorkerConfig, logger *slog.Logger) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.DequeueWait <= 0 {
		config.DequeueWait = 5 * time.Second
	}
	return &Worker{
		backend:  backend,
		config:   config,
		logger:   logger.With(slog.String("component", "queue_worker"), slog.String("queue", config.Queue)),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a job type. Jobs of an unregistered type fail
// permanently. Register must be called before Start.
func (w *Worker) Register(jobType string, handler HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches the worker goroutines. It returns an error if the worker is
// already running.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("worker for queue %q already started", w.config.Queue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			w.loop(ctx, worker)
		}(i)
	}
	go func() {
		wg.Wait()
		close(w.done)
	}()

	w.logger.Info("worker started",
		slog.Int("concurrency", w.config.Concurrency))
	return nil
}

// Stop signals the worker goroutines and waits for in-flight jobs to finish,
// up to the configured shutdown timeout.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()

	timeout := w.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
		w.logger.Info("worker stopped")
		return nil
	case <-time.After(timeout):
		w.logger.Warn("worker shutdown timed out with jobs in flight",
			slog.Duration("timeout", timeout))
		return fmt.Errorf("worker for queue %q did not drain within %s", w.config.Queue, timeout)
	}
}

// loop is the per-goroutine dequeue and dispatch cycle.
func (w *Worker) loop(ctx context.Context, worker int) {
	log := w.logger.With(slog.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.backend.Dequeue(ctx, w.config.Queue, w.config.DequeueWait)
		if err != nil {
			switch {
			case errors.Is(err, ErrDequeueTimeout):
				continue
			case errors.Is(err, ErrQueueClosed), errors.Is(err, context.Canceled):
				return
			default:
				log.Error("dequeue failed",
					slog.String("error", err.Error()))
				// Back off briefly so a broken backend does not spin.
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
		}

		w.process(ctx, log, job)
	}
}

// process runs the job's handler and settles the job with the backend.
func (w *Worker) process(ctx context.Context, log *slog.Logger, job *Job) {
	log = log.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", job.Type),
		slog.Int("attempt", job.Attempts))

	handler, ok := w.handlerFor(job.Type)
	if !ok {
		log.Error("no handler registered for job type")
		w.settle(ctx, log, job, fmt.Errorf("no handler for job type %q", job.Type), true)
		return
	}

	start := time.Now()
	err := w.run(ctx, handler, job)
	if err == nil {
		// Settlement must outlive worker shutdown so the outcome is not lost.
		completeCtx, cancel := settleContext(ctx)
		defer cancel()
		if cErr := w.backend.Complete(completeCtx, job); cErr != nil {
			log.Error("failed to mark job completed",
				slog.String("error", cErr.Error()))
			return
		}
		log.Info("job completed",
			slog.Duration("duration", time.Since(start)))
		return
	}

	w.settle(ctx, log, job, err, IsPermanent(err))
}

// run invokes the handler, converting panics into permanent errors.
func (w *Worker) run(ctx context.Context, handler HandlerFunc, job *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Permanent(fmt.Errorf("handler panicked: %v", p))
		}
	}()
	return handler(ctx, job)
}

// settle records a failed attempt, logging whether the job was retried or
// moved to the failed set.
func (w *Worker) settle(ctx context.Context, log *slog.Logger, job *Job, cause error, permanent bool) {
	settleCtx, cancel := settleContext(ctx)
	defer cancel()

	retried, err := w.backend.Fail(settleCtx, job, cause, permanent)
	if err != nil {
		log.Error("failed to record job failure",
			slog.String("error", err.Error()),
			slog.String("cause", cause.Error()))
		return
	}
	if retried {
		log.Warn("job attempt failed, retrying",
			slog.String("error", cause.Error()),
			slog.Duration("backoff", job.Options.Backoff.Delay(job.Attempts)))
		return
	}
	log.Error("job failed",
		slog.String("error", cause.Error()),
		slog.Bool("permanent", permanent))
}

// settleContext returns ctx unless it is already cancelled, in which case a
// short-lived background context is used so the job outcome is still
// recorded during shutdown.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (w *Worker) handlerFor(jobType string) (HandlerFunc, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.handlers[jobType]
	return h, ok
}
