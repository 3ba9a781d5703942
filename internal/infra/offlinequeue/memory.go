package offlinequeue

import (
	"context"
	"sync"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

// MemoryQueue is an in-memory FIFO implementation of the offline queue for
// tests/dev. Items survive only for the lifetime of the process.
type MemoryQueue struct {
	mu    sync.Mutex
	items []screening.QueueItem
}

// NewMemoryQueue constructs a queue backed by process memory.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Enqueue appends an item behind everything already waiting.
func (q *MemoryQueue) Enqueue(_ context.Context, item screening.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

// Drain replays pending items oldest first. The pending set is snapshotted
// up front, so items enqueued while a drain runs wait for the next cycle.
// Successful items leave the queue; failed items stay in place with their
// attempt counter bumped.
func (q *MemoryQueue) Drain(ctx context.Context, handler screening.DrainHandler) (screening.DrainReport, error) {
	q.mu.Lock()
	snapshot := make([]screening.QueueItem, len(q.items))
	copy(snapshot, q.items)
	q.mu.Unlock()

	var report screening.DrainReport
	done := make(map[string]bool, len(snapshot))
	failed := make(map[string]bool)
	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := handler(ctx, item); err != nil {
			failed[item.ID] = true
			report.Failed++
			continue
		}
		done[item.ID] = true
		report.Succeeded++
	}

	q.mu.Lock()
	remaining := q.items[:0]
	for _, item := range q.items {
		if done[item.ID] {
			continue
		}
		if failed[item.ID] {
			item.Attempts++
		}
		remaining = append(remaining, item)
	}
	q.items = remaining
	q.mu.Unlock()
	return report, nil
}

// Pending reports how many items wait and when the oldest was enqueued.
func (q *MemoryQueue) Pending(context.Context) (screening.QueueStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	status := screening.QueueStatus{Pending: len(q.items)}
	for _, item := range q.items {
		if status.OldestQueued.IsZero() || item.EnqueuedAt.Before(status.OldestQueued) {
			status.OldestQueued = item.EnqueuedAt
		}
	}
	return status, nil
}

var _ screening.OfflineQueue = (*MemoryQueue)(nil)
