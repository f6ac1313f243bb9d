// Package queue provides a durable, priority-aware job queue with delayed
// scheduling, bounded retries with exponential backoff, and pluggable
// backends (in-memory and Redis).
package queue

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

// Job statuses.
const (
	// StatusWaiting means the job is eligible for immediate processing.
	StatusWaiting JobStatus = "waiting"
	// StatusScheduled means the job is delayed and not yet eligible.
	StatusScheduled JobStatus = "scheduled"
	// StatusActive means a worker is currently processing the job.
	StatusActive JobStatus = "active"
	// StatusCompleted means the job finished successfully.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means the job exhausted its attempts or failed permanently.
	StatusFailed JobStatus = "failed"
	// StatusRetrying means the job failed and is scheduled for another attempt.
	StatusRetrying JobStatus = "retrying"
)

// BackoffPolicy controls the delay between retry attempts.
type BackoffPolicy struct {
	// Base is the delay before the first retry. Subsequent retries double it.
	Base time.Duration `json:"base"`
}

// Delay returns the backoff delay preceding the given attempt number.
// Attempt 1 is the first retry. The delay doubles with each attempt:
// Base, 2*Base, 4*Base, and so on. Non-positive attempts get no delay.
func (b BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 || b.Base <= 0 {
		return 0
	}
	if attempt > 32 {
		attempt = 32
	}
	return b.Base << uint(attempt-1)
}

// EnqueueOptions controls how a job is enqueued and processed.
type EnqueueOptions struct {
	// Priority orders waiting jobs; higher values are dequeued first.
	// Jobs with equal priority are dequeued in enqueue order.
	Priority int `json:"priority"`

	// Delay defers the job's eligibility for processing. Zero means the job
	// is immediately eligible.
	Delay time.Duration `json:"delay"`

	// MaxAttempts bounds the total number of processing attempts, including
	// the first. Zero or negative means a single attempt.
	MaxAttempts int `json:"max_attempts"`

	// Backoff is the retry delay policy applied between attempts.
	Backoff BackoffPolicy `json:"backoff"`

	// KeepCompleted bounds how many completed jobs are retained for
	// inspection. Zero keeps none.
	KeepCompleted int `json:"keep_completed"`

	// KeepFailed bounds how many failed jobs are retained for inspection.
	// Zero keeps none.
	KeepFailed int `json:"keep_failed"`
}

// Job is a unit of work flowing through a queue. Payload carries the
// type-specific data as JSON so jobs survive serialization across backends.
type Job struct {
	ID       string          `json:"id"`
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Status   JobStatus       `json:"status"`
	Options  EnqueueOptions  `json:"options"`
	Attempts int             `json:"attempts"`

	// LastError holds the message of the most recent failed attempt.
	LastError string `json:"last_error,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	// ReadyAt is the earliest time the job may be processed.
	ReadyAt    time.Time  `json:"ready_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// maxAttempts returns the effective attempt bound for the job.
func (j *Job) maxAttempts() int {
	if j.Options.MaxAttempts <= 0 {
		return 1
	}
	return j.Options.MaxAttempts
}

// attemptsRemaining reports whether the job may be retried after a failure.
func (j *Job) attemptsRemaining() bool {
	return j.Attempts < j.maxAttempts()
}
