// Package worker wires domain job types to the queue: payload shapes,
// enqueue policies, and the processors that handle each job type.
package worker

import (
	"time"

	"github.com/yeschef/yeschef-api/internal/queue"
)

// Queue names.
const (
	// QueueAnalysis carries AI meal analysis jobs.
	QueueAnalysis = "ai-analysis-queue"
	// QueueEmail carries transactional email jobs.
	QueueEmail = "email-queue"
)

// Job types.
const (
	TypeMealAnalysis      = "meal-analysis"
	TypeVerificationEmail = "verification-email"
)

// AnalysisJobPayload is the payload of a meal analysis job. The meal's
// descriptive fields ride along so the processor can build the AI prompt
// without an extra read.
type AnalysisJobPayload struct {
	MealID      string `json:"meal_id"`
	MealName    string `json:"meal_name"`
	MealTime    string `json:"meal_time"`
	Description string `json:"description"`
}

// VerificationEmailPayload is the payload of a verification email job.
type VerificationEmailPayload struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// Analysis job policy: three attempts with exponential backoff starting at
// two seconds, retaining the last 100 completed and 200 failed jobs.
const (
	analysisMaxAttempts   = 3
	analysisBackoffBase   = 2 * time.Second
	analysisKeepCompleted = 100
	analysisKeepFailed    = 200

	// A new meal's analysis is enqueued at normal priority after a short
	// delay so the creating transaction is visible to the processor.
	AnalysisPriorityNew = 10
	AnalysisDelayNew    = 1 * time.Second

	// Retries requested by the user jump the line with a shorter delay.
	AnalysisPriorityRetry = 15
	AnalysisDelayRetry    = 500 * time.Millisecond
)

// Email job policy: three attempts, retaining the last 50 completed and 100
// failed jobs.
const (
	emailMaxAttempts   = 3
	emailBackoffBase   = 2 * time.Second
	emailKeepCompleted = 50
	emailKeepFailed    = 100
)

// AnalysisEnqueueOptions returns the enqueue policy for a new meal's
// analysis job.
func AnalysisEnqueueOptions() queue.EnqueueOptions {
	return queue.EnqueueOptions{
		Priority:      AnalysisPriorityNew,
		Delay:         AnalysisDelayNew,
		MaxAttempts:   analysisMaxAttempts,
		Backoff:       queue.BackoffPolicy{Base: analysisBackoffBase},
		KeepCompleted: analysisKeepCompleted,
		KeepFailed:    analysisKeepFailed,
	}
}

// AnalysisRetryEnqueueOptions returns the enqueue policy for a user-requested
// analysis retry.
func AnalysisRetryEnqueueOptions() queue.EnqueueOptions {
	opts := AnalysisEnqueueOptions()
	opts.Priority = AnalysisPriorityRetry
	opts.Delay = AnalysisDelayRetry
	return opts
}

// EmailEnqueueOptions returns the enqueue policy for transactional email
// jobs.
func EmailEnqueueOptions() queue.EnqueueOptions {
	return queue.EnqueueOptions{
		MaxAttempts:   emailMaxAttempts,
		Backoff:       queue.BackoffPolicy{Base: emailBackoffBase},
		KeepCompleted: emailKeepCompleted,
		KeepFailed:    emailKeepFailed,
	}
}
