package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorkerConfig(queue string) WorkerConfig {
	return WorkerConfig{
		Queue:           queue,
		Concurrency:     2,
		DequeueWait:     50 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestWorker_ProcessesJob(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	var processed atomic.Int32
	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("test-job", func(ctx context.Context, job *Job) error {
		processed.Add(1)
		return nil
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id := enqueue(t, b, "q", EnqueueOptions{KeepCompleted: 10})

	waitFor(t, 2*time.Second, func() bool { return processed.Load() == 1 })

	job, err := b.GetJob(context.Background(), "q", id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestWorker_RetriesUntilSuccess(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	var attempts atomic.Int32
	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("flaky", func(ctx context.Context, job *Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id, err := b.Enqueue(context.Background(), "q", "flaky", []byte(`{}`), EnqueueOptions{
		MaxAttempts:   3,
		Backoff:       BackoffPolicy{Base: 10 * time.Millisecond},
		KeepCompleted: 10,
	})
	require.NoError(t, err)

	waitFor(t, 3*time.Second, func() bool {
		job, err := b.GetJob(context.Background(), "q", id)
		return err == nil && job.Status == StatusCompleted
	})
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWorker_ExhaustedAttemptsFailJob(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	var attempts atomic.Int32
	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("broken", func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return errors.New("always fails")
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id, err := b.Enqueue(context.Background(), "q", "broken", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 3,
		Backoff:     BackoffPolicy{Base: 10 * time.Millisecond},
		KeepFailed:  10,
	})
	require.NoError(t, err)

	waitFor(t, 3*time.Second, func() bool {
		job, err := b.GetJob(context.Background(), "q", id)
		return err == nil && job.Status == StatusFailed
	})

	job, err := b.GetJob(context.Background(), "q", id)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, "always fails", job.LastError)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWorker_PermanentErrorFailsImmediately(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	var attempts atomic.Int32
	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("rejecting", func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return Permanent(errors.New("bad payload"))
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id, err := b.Enqueue(context.Background(), "q", "rejecting", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 5,
		Backoff:     BackoffPolicy{Base: 10 * time.Millisecond},
		KeepFailed:  10,
	})
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		job, err := b.GetJob(context.Background(), "q", id)
		return err == nil && job.Status == StatusFailed
	})
	assert.Equal(t, int32(1), attempts.Load(), "permanent errors must not be retried")
}

func TestWorker_UnknownJobTypeFailsPermanently(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id, err := b.Enqueue(context.Background(), "q", "mystery", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 3,
		KeepFailed:  10,
	})
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		job, err := b.GetJob(context.Background(), "q", id)
		return err == nil && job.Status == StatusFailed
	})

	job, err := b.GetJob(context.Background(), "q", id)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)
}

func TestWorker_RecoversFromHandlerPanic(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("panicky", func(ctx context.Context, job *Job) error {
		panic("unexpected")
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	id, err := b.Enqueue(context.Background(), "q", "panicky", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 3,
		KeepFailed:  10,
	})
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		job, err := b.GetJob(context.Background(), "q", id)
		return err == nil && job.Status == StatusFailed
	})

	job, err := b.GetJob(context.Background(), "q", id)
	require.NoError(t, err)
	assert.Contains(t, job.LastError, "handler panicked")
}

func TestWorker_ConcurrencyBound(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	var mu sync.Mutex
	inFlight, peak := 0, 0

	cfg := testWorkerConfig("q")
	cfg.Concurrency = 2
	w := NewWorker(b, cfg, discardLogger())

	var done atomic.Int32
	w.Register("slow", func(ctx context.Context, job *Job) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		done.Add(1)
		return nil
	})
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	for i := 0; i < 6; i++ {
		_, err := b.Enqueue(context.Background(), "q", "slow", []byte(`{}`), EnqueueOptions{})
		require.NoError(t, err)
	}

	waitFor(t, 5*time.Second, func() bool { return done.Load() == 6 })

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2, "worker exceeded its concurrency bound")
}

func TestWorker_StartTwiceFails(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	assert.Error(t, w.Start())
}

func TestWorker_StopDrainsInFlightJob(t *testing.T) {
	b := NewMemoryBackend()
	defer func() { _ = b.Close() }()

	started := make(chan struct{})
	w := NewWorker(b, testWorkerConfig("q"), discardLogger())
	w.Register("slow", func(ctx context.Context, job *Job) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	require.NoError(t, w.Start())

	id, err := b.Enqueue(context.Background(), "q", "slow", []byte(`{}`), EnqueueOptions{KeepCompleted: 10})
	require.NoError(t, err)

	<-started
	require.NoError(t, w.Stop())

	job, err := b.GetJob(context.Background(), "q", id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status, "in-flight job should finish during drain")
}
