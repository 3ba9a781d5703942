package offlinequeue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

func queueItem(id string, enqueuedAt time.Time) screening.QueueItem {
	return screening.QueueItem{
		ID: id,
		Request: screening.AnalysisRequest{
			ImageData:  []byte("jpeg-bytes"),
			AgeMonths:  24,
			Sex:        growth.SexFemale,
			ScanAngle:  screening.AngleFront,
			SessionID:  "session-" + id,
			CapturedAt: enqueuedAt,
		},
		EnqueuedAt: enqueuedAt,
	}
}

func TestMemoryQueueDrainsInFIFOOrder(t *testing.T) {
	q := NewMemoryQueue()
	base := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), queueItem(id, base.Add(time.Duration(i)*time.Minute))))
	}

	var seen []string
	report, err := q.Drain(context.Background(), func(_ context.Context, item screening.QueueItem) error {
		seen = append(seen, item.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, screening.DrainReport{Succeeded: 3, Failed: 0}, report)
	require.Equal(t, []string{"a", "b", "c"}, seen)

	status, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Zero(t, status.Pending)

	// Nothing left for a second drain.
	report, err = q.Drain(context.Background(), func(context.Context, screening.QueueItem) error {
		t.Fatal("unexpected handler call")
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, report.Succeeded+report.Failed)
}

func TestMemoryQueueRetainsFailedItems(t *testing.T) {
	q := NewMemoryQueue()
	base := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), queueItem(id, base.Add(time.Duration(i)*time.Minute))))
	}

	report, err := q.Drain(context.Background(), func(_ context.Context, item screening.QueueItem) error {
		if item.ID == "b" {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, screening.DrainReport{Succeeded: 2, Failed: 1}, report)

	status, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status.Pending)
	require.Equal(t, base.Add(time.Minute), status.OldestQueued)

	// The failed item is retried with its attempt counter bumped.
	var retried screening.QueueItem
	report, err = q.Drain(context.Background(), func(_ context.Context, item screening.QueueItem) error {
		retried = item
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, screening.DrainReport{Succeeded: 1, Failed: 0}, report)
	require.Equal(t, "b", retried.ID)
	require.Equal(t, 1, retried.Attempts)
}

func TestMemoryQueuePendingReportsOldest(t *testing.T) {
	q := NewMemoryQueue()
	base := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, q.Enqueue(context.Background(), queueItem("late", base.Add(time.Hour))))
	require.NoError(t, q.Enqueue(context.Background(), queueItem("early", base)))

	status, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, status.Pending)
	require.Equal(t, base, status.OldestQueued)
}

func TestMemoryQueueEnqueueDuringDrainWaitsForNextCycle(t *testing.T) {
	q := NewMemoryQueue()
	base := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, q.Enqueue(context.Background(), queueItem("a", base)))

	var wg sync.WaitGroup
	report, err := q.Drain(context.Background(), func(_ context.Context, item screening.QueueItem) error {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(context.Background(), queueItem("b", base.Add(time.Minute)))
		}()
		wg.Wait()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)

	status, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status.Pending, "the item enqueued mid-drain waits for the next cycle")
}

func TestMemoryQueueDrainStopsOnCanceledContext(t *testing.T) {
	q := NewMemoryQueue()
	base := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), queueItem(id, base.Add(time.Duration(i)*time.Minute))))
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	report, err := q.Drain(ctx, func(context.Context, screening.QueueItem) error {
		calls++
		cancel()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, report.Succeeded)

	status, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, status.Pending, "unattempted items stay queued")
}
