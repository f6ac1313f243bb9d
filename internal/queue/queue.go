package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common queue errors.
var (
	// ErrJobNotFound is returned when the referenced job does not exist in
	// the backend.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueClosed is returned when operating on a closed backend.
	ErrQueueClosed = errors.New("queue closed")

	// ErrDequeueTimeout is returned by Dequeue when no job becomes ready
	// within the wait window.
	ErrDequeueTimeout = errors.New("dequeue timed out")
)

// permanentError marks an error as non-retryable regardless of the job's
// remaining attempts.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the worker fails the job immediately instead of
// retrying. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or any error it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backend is the storage contract for queues. Implementations must be safe
// for concurrent use.
type Backend interface {
	// Enqueue stores a new job on the named queue and returns its ID.
	// If opts.Delay is positive the job is scheduled, otherwise it joins
	// the waiting set immediately.
	Enqueue(ctx context.Context, queue, jobType string, payload json.RawMessage, opts EnqueueOptions) (string, error)

	// GetJob retrieves a job by ID. Returns ErrJobNotFound if the job is
	// unknown or has been pruned by retention.
	GetJob(ctx context.Context, queue, id string) (*Job, error)

	// Dequeue blocks until a waiting job is available or wait elapses,
	// promoting due scheduled jobs first. The returned job is marked active.
	// Returns ErrDequeueTimeout when the wait window expires empty.
	Dequeue(ctx context.Context, queue string, wait time.Duration) (*Job, error)

	// Complete marks an active job as completed, subject to the job's
	// KeepCompleted retention bound.
	Complete(ctx context.Context, job *Job) error

	// Fail records a failed attempt. When the job has attempts remaining and
	// permanent is false, it is rescheduled per its backoff policy and Fail
	// reports retried=true. Otherwise the job moves to the failed set,
	// subject to KeepFailed retention.
	Fail(ctx context.Context, job *Job, cause error, permanent bool) (retried bool, err error)

	// PromoteScheduled moves all scheduled jobs whose ready time has passed
	// into the waiting set, returning how many were promoted.
	PromoteScheduled(ctx context.Context, queue string) (int, error)

	// PendingCount returns the number of waiting plus scheduled jobs on the
	// queue.
	PendingCount(ctx context.Context, queue string) (int, error)

	// Close releases backend resources. Blocked Dequeue calls return
	// ErrQueueClosed.
	Close() error
}

// HandlerFunc processes a single job. Returning nil completes the job.
// Returning an error triggers a retry unless the error is wrapped with
// Permanent or the job's attempts are exhausted.
type HandlerFunc func(ctx context.Context, job *Job) error

// EncodePayload marshals a payload value for Enqueue.
func EncodePayload(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}
	return data, nil
}

// DecodePayload unmarshals a job's payload into v.
func DecodePayload(job *Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("failed to decode payload for job %s: %w", job.ID, err)
	}
	return nil
}
