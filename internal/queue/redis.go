package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key layout, all prefixed with "yeschef:q:<queue>":
//
//	:job:<id>   job record as JSON
//	:ready      zset of waiting job IDs, scored so that higher priority
//	            and earlier enqueue order pop first
//	:scheduled  zset of delayed job IDs scored by ready time (unix ms)
//	:seq        monotonic enqueue counter
//	:completed  list of retained completed job IDs, oldest first
//	:failed     list of retained failed job IDs, oldest first
const redisKeyPrefix = "yeschef:q"

// priorityBand spaces priority tiers in the ready zset so the sequence
// counter never crosses tiers.
const priorityBand = 1e12

// RedisBackend is a Redis-backed Backend suitable for multi-process
// deployments. Jobs survive process restarts.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a backend on top of an existing Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisBackendFromURL connects to Redis using a redis:// URL and verifies
// the connection before returning.
func NewRedisBackendFromURL(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) jobKey(queue, id string) string {
	return fmt.Sprintf("%s:%s:job:%s", redisKeyPrefix, queue, id)
}

func (r *RedisBackend) queueKey(queue, suffix string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, queue, suffix)
}

// readyScore orders the ready zset. Lower scores pop first, so priority is
// negated; the sequence counter breaks ties in enqueue order.
func readyScore(priority int, seq int64) float64 {
	return float64(-priority)*priorityBand + float64(seq)
}

func (r *RedisBackend) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	if err := r.client.Set(ctx, r.jobKey(job.Queue, job.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *RedisBackend) loadJob(ctx context.Context, queue, id string) (*Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(queue, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// Enqueue implements Backend.
func (r *RedisBackend) Enqueue(ctx context.Context, queue, jobType string, payload json.RawMessage, opts EnqueueOptions) (string, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Queue:      queue,
		Type:       jobType,
		Payload:    payload,
		Options:    opts,
		EnqueuedAt: now,
		ReadyAt:    now.Add(opts.Delay),
	}

	if opts.Delay > 0 {
		job.Status = StatusScheduled
	} else {
		job.Status = StatusWaiting
	}
	if err := r.saveJob(ctx, job); err != nil {
		return "", err
	}

	if opts.Delay > 0 {
		err := r.client.ZAdd(ctx, r.queueKey(queue, "scheduled"), redis.Z{
			Score:  float64(job.ReadyAt.UnixMilli()),
			Member: job.ID,
		}).Err()
		if err != nil {
			return "", fmt.Errorf("failed to schedule job %s: %w", job.ID, err)
		}
		return job.ID, nil
	}

	if err := r.pushReady(ctx, queue, job.ID, opts.Priority); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (r *RedisBackend) pushReady(ctx context.Context, queue, id string, priority int) error {
	seq, err := r.client.Incr(ctx, r.queueKey(queue, "seq")).Result()
	if err != nil {
		return fmt.Errorf("failed to advance queue sequence: %w", err)
	}
	err = r.client.ZAdd(ctx, r.queueKey(queue, "ready"), redis.Z{
		Score:  readyScore(priority, seq),
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to push job %s to ready set: %w", id, err)
	}
	return nil
}

// GetJob implements Backend.
func (r *RedisBackend) GetJob(ctx context.Context, queue, id string) (*Job, error) {
	return r.loadJob(ctx, queue, id)
}

// PromoteScheduled implements Backend.
func (r *RedisBackend) PromoteScheduled(ctx context.Context, queue string) (int, error) {
	nowMs := fmt.Sprintf("%d", time.Now().UnixMilli())
	due, err := r.client.ZRangeByScore(ctx, r.queueKey(queue, "scheduled"), &redis.ZRangeBy{
		Min: "-inf",
		Max: nowMs,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read scheduled set: %w", err)
	}

	promoted := 0
	for _, id := range due {
		removed, err := r.client.ZRem(ctx, r.queueKey(queue, "scheduled"), id).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to remove job %s from scheduled set: %w", id, err)
		}
		if removed == 0 {
			// Another worker promoted it first.
			continue
		}
		job, err := r.loadJob(ctx, queue, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return promoted, err
		}
		job.Status = StatusWaiting
		if err := r.saveJob(ctx, job); err != nil {
			return promoted, err
		}
		if err := r.pushReady(ctx, queue, id, job.Options.Priority); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// Dequeue implements Backend.
func (r *RedisBackend) Dequeue(ctx context.Context, queue string, wait time.Duration) (*Job, error) {
	deadline := time.Now().Add(wait)

	for {
		if _, err := r.PromoteScheduled(ctx, queue); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrDequeueTimeout
		}
		// Poll in short windows so newly due scheduled jobs are promoted
		// even while blocked on the ready set.
		window := remaining
		if window > time.Second {
			window = time.Second
		}

		res, err := r.client.BZPopMin(ctx, window, r.queueKey(queue, "ready")).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to pop from ready set: %w", err)
		}

		id, ok := res.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected ready set member type %T", res.Member)
		}
		job, err := r.loadJob(ctx, queue, id)
		if errors.Is(err, ErrJobNotFound) {
			// Record pruned between pop and load.
			continue
		}
		if err != nil {
			return nil, err
		}

		now := time.Now()
		job.Status = StatusActive
		job.Attempts++
		job.StartedAt = &now
		if err := r.saveJob(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}
}

// Complete implements Backend.
func (r *RedisBackend) Complete(ctx context.Context, job *Job) error {
	now := time.Now()
	job.Status = StatusCompleted
	job.FinishedAt = &now
	if err := r.saveJob(ctx, job); err != nil {
		return err
	}
	return r.retain(ctx, job, "completed", job.Options.KeepCompleted)
}

// Fail implements Backend.
func (r *RedisBackend) Fail(ctx context.Context, job *Job, cause error, permanent bool) (bool, error) {
	now := time.Now()
	if cause != nil {
		job.LastError = cause.Error()
	}

	if !permanent && job.attemptsRemaining() {
		delay := job.Options.Backoff.Delay(job.Attempts)
		job.ReadyAt = now.Add(delay)
		job.Status = StatusRetrying
		if err := r.saveJob(ctx, job); err != nil {
			return false, err
		}
		err := r.client.ZAdd(ctx, r.queueKey(job.Queue, "scheduled"), redis.Z{
			Score:  float64(job.ReadyAt.UnixMilli()),
			Member: job.ID,
		}).Err()
		if err != nil {
			return false, fmt.Errorf("failed to schedule retry for job %s: %w", job.ID, err)
		}
		return true, nil
	}

	job.Status = StatusFailed
	job.FinishedAt = &now
	if err := r.saveJob(ctx, job); err != nil {
		return false, err
	}
	if err := r.retain(ctx, job, "failed", job.Options.KeepFailed); err != nil {
		return false, err
	}
	return false, nil
}

// retain appends the job to the named retention list and prunes entries
// beyond keep, deleting their job records.
func (r *RedisBackend) retain(ctx context.Context, job *Job, list string, keep int) error {
	key := r.queueKey(job.Queue, list)
	if keep <= 0 {
		if err := r.client.Del(ctx, r.jobKey(job.Queue, job.ID)).Err(); err != nil {
			return fmt.Errorf("failed to drop unretained job %s: %w", job.ID, err)
		}
		return nil
	}

	if err := r.client.RPush(ctx, key, job.ID).Err(); err != nil {
		return fmt.Errorf("failed to record job %s in %s list: %w", job.ID, list, err)
	}
	size, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to size %s list: %w", list, err)
	}
	for size > int64(keep) {
		old, err := r.client.LPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to prune %s list: %w", list, err)
		}
		if err := r.client.Del(ctx, r.jobKey(job.Queue, old)).Err(); err != nil {
			return fmt.Errorf("failed to drop pruned job %s: %w", old, err)
		}
		size--
	}
	return nil
}

// PendingCount implements Backend.
func (r *RedisBackend) PendingCount(ctx context.Context, queue string) (int, error) {
	ready, err := r.client.ZCard(ctx, r.queueKey(queue, "ready")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to size ready set: %w", err)
	}
	scheduled, err := r.client.ZCard(ctx, r.queueKey(queue, "scheduled")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to size scheduled set: %w", err)
	}
	return int(ready + scheduled), nil
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
