package queue

import (
	"container/heap"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// readyItem is an entry in a queue's ready heap. seq preserves enqueue order
// among jobs of equal priority.
type readyItem struct {
	job *Job
	seq uint64
}

// readyHeap orders jobs by priority descending, then enqueue sequence
// ascending.
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].job.Options.Priority != h[j].job.Options.Priority {
		return h[i].job.Options.Priority > h[j].job.Options.Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(*readyItem)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// memQueue holds the per-queue state of the memory backend.
type memQueue struct {
	ready     readyHeap
	scheduled []*readyItem
	jobs      map[string]*Job
	completed []string
	failed    []string

	// wake is closed and replaced whenever a job becomes ready, releasing
	// blocked Dequeue calls.
	wake chan struct{}
}

// MemoryBackend is an in-process Backend for single-node deployments and
// tests. Jobs do not survive process restarts.
type MemoryBackend struct {
	mu     sync.Mutex
	queues map[string]*memQueue
	seq    uint64
	closed bool
	now    func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		queues: make(map[string]*memQueue),
		now:    time.Now,
	}
}

// queueLocked returns the named queue, creating it if needed. Caller holds mu.
func (m *MemoryBackend) queueLocked(name string) *memQueue {
	q, ok := m.queues[name]
	if !ok {
		q = &memQueue{
			jobs: make(map[string]*Job),
			wake: make(chan struct{}),
		}
		m.queues[name] = q
	}
	return q
}

// signalLocked wakes all blocked Dequeue calls on q. Caller holds mu.
func (q *memQueue) signalLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Enqueue implements Backend.
func (m *MemoryBackend) Enqueue(ctx context.Context, queue, jobType string, payload json.RawMessage, opts EnqueueOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrQueueClosed
	}

	now := m.now()
	job := &Job{
		ID:         uuid.NewString(),
		Queue:      queue,
		Type:       jobType,
		Payload:    payload,
		Options:    opts,
		EnqueuedAt: now,
		ReadyAt:    now.Add(opts.Delay),
	}

	q := m.queueLocked(queue)
	q.jobs[job.ID] = job
	m.seq++
	item := &readyItem{job: job, seq: m.seq}

	if opts.Delay > 0 {
		job.Status = StatusScheduled
		q.scheduled = append(q.scheduled, item)
	} else {
		job.Status = StatusWaiting
		heap.Push(&q.ready, item)
		q.signalLocked()
	}
	return job.ID, nil
}

// GetJob implements Backend.
func (m *MemoryBackend) GetJob(ctx context.Context, queue, id string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[queue]
	if !ok {
		return nil, ErrJobNotFound
	}
	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

// promoteLocked moves due scheduled jobs to the ready heap. Caller holds mu.
func (m *MemoryBackend) promoteLocked(q *memQueue, now time.Time) int {
	promoted := 0
	remaining := q.scheduled[:0]
	for _, item := range q.scheduled {
		if !item.job.ReadyAt.After(now) {
			item.job.Status = StatusWaiting
			heap.Push(&q.ready, item)
			promoted++
		} else {
			remaining = append(remaining, item)
		}
	}
	q.scheduled = remaining
	if promoted > 0 {
		q.signalLocked()
	}
	return promoted
}

// nextWakeLocked returns the earliest ready time among scheduled jobs, or
// zero when none are scheduled. Caller holds mu.
func (q *memQueue) nextWakeLocked() time.Time {
	var earliest time.Time
	for _, item := range q.scheduled {
		if earliest.IsZero() || item.job.ReadyAt.Before(earliest) {
			earliest = item.job.ReadyAt
		}
	}
	return earliest
}

// Dequeue implements Backend.
func (m *MemoryBackend) Dequeue(ctx context.Context, queue string, wait time.Duration) (*Job, error) {
	deadline := m.now().Add(wait)

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrQueueClosed
		}

		q := m.queueLocked(queue)
		now := m.now()
		m.promoteLocked(q, now)

		if q.ready.Len() > 0 {
			item := heap.Pop(&q.ready).(*readyItem)
			job := item.job
			job.Status = StatusActive
			job.Attempts++
			started := now
			job.StartedAt = &started
			copied := *job
			m.mu.Unlock()
			return &copied, nil
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			m.mu.Unlock()
			return nil, ErrDequeueTimeout
		}

		// Sleep until a job is enqueued, the next scheduled job comes due,
		// the wait window closes, or the context is cancelled.
		wake := q.wake
		sleep := remaining
		if next := q.nextWakeLocked(); !next.IsZero() {
			if until := next.Sub(now); until < sleep {
				sleep = until
			}
		}
		m.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Complete implements Backend.
func (m *MemoryBackend) Complete(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[job.Queue]
	if !ok {
		return ErrJobNotFound
	}
	stored, ok := q.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}

	now := m.now()
	stored.Status = StatusCompleted
	stored.Attempts = job.Attempts
	stored.FinishedAt = &now

	q.completed = append(q.completed, stored.ID)
	pruneLocked(q.jobs, &q.completed, stored.Options.KeepCompleted)
	return nil
}

// Fail implements Backend.
func (m *MemoryBackend) Fail(ctx context.Context, job *Job, cause error, permanent bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[job.Queue]
	if !ok {
		return false, ErrJobNotFound
	}
	stored, ok := q.jobs[job.ID]
	if !ok {
		return false, ErrJobNotFound
	}

	now := m.now()
	stored.Attempts = job.Attempts
	if cause != nil {
		stored.LastError = cause.Error()
	}

	if !permanent && stored.attemptsRemaining() {
		stored.Status = StatusRetrying
		stored.ReadyAt = now.Add(stored.Options.Backoff.Delay(stored.Attempts))
		m.seq++
		item := &readyItem{job: stored, seq: m.seq}
		if stored.ReadyAt.After(now) {
			q.scheduled = append(q.scheduled, item)
			q.signalLocked()
		} else {
			stored.Status = StatusWaiting
			heap.Push(&q.ready, item)
			q.signalLocked()
		}
		return true, nil
	}

	stored.Status = StatusFailed
	stored.FinishedAt = &now
	q.failed = append(q.failed, stored.ID)
	pruneLocked(q.jobs, &q.failed, stored.Options.KeepFailed)
	return false, nil
}

// pruneLocked drops the oldest retained job IDs beyond keep. Caller holds mu.
func pruneLocked(jobs map[string]*Job, ids *[]string, keep int) {
	if keep < 0 {
		keep = 0
	}
	for len(*ids) > keep {
		delete(jobs, (*ids)[0])
		*ids = (*ids)[1:]
	}
}

// PromoteScheduled implements Backend.
func (m *MemoryBackend) PromoteScheduled(ctx context.Context, queue string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrQueueClosed
	}
	q := m.queueLocked(queue)
	return m.promoteLocked(q, m.now()), nil
}

// PendingCount implements Backend.
func (m *MemoryBackend) PendingCount(ctx context.Context, queue string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[queue]
	if !ok {
		return 0, nil
	}
	return q.ready.Len() + len(q.scheduled), nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, q := range m.queues {
		q.signalLocked()
	}
	return nil
}
