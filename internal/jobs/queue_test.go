package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInFIFOOrder(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		q.Enqueue(Job{Run: func(context.Context) (string, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return "", nil
		}})
	}
	q.Wait()

	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestQueue_SingleWorker(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	var running, peak atomic.Int32
	for i := 0; i < 10; i++ {
		q.Enqueue(Job{Run: func(context.Context) (string, error) {
			n := running.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return "", nil
		}})
	}
	q.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestQueue_StatusTransitions(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := q.Enqueue(Job{DocumentID: "doc-1", Kind: "ingest", Run: func(context.Context) (string, error) {
		close(started)
		<-release
		return "", nil
	}})
	failing := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", errors.New("no text") }})

	<-started
	info, ok := q.Get(blocking)
	require.True(t, ok)
	assert.Equal(t, StatusRunning, info.Status)
	assert.Equal(t, "doc-1", info.DocumentID)
	assert.NotNil(t, info.StartedAt)

	info, _ = q.Get(failing)
	assert.Equal(t, StatusQueued, info.Status)

	close(release)
	q.Wait()

	info, _ = q.Get(blocking)
	assert.Equal(t, StatusDone, info.Status)
	assert.NotNil(t, info.FinishedAt)

	info, _ = q.Get(failing)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, "no text", info.Error)

	_, ok = q.Get("unknown")
	assert.False(t, ok)
}

func TestQueue_PanicBecomesFailure(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	bad := q.Enqueue(Job{Run: func(context.Context) (string, error) { panic("boom") }})
	good := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	q.Wait()

	info, _ := q.Get(bad)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Contains(t, info.Error, "boom")

	info, _ = q.Get(good)
	assert.Equal(t, StatusDone, info.Status, "worker must survive a panicking job")
}

func TestQueue_DoneChannel(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	id := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	select {
	case info := <-q.Done():
		assert.Equal(t, id, info.ID)
		assert.Equal(t, StatusDone, info.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no completion published")
	}
}

func TestQueue_DoneChannelNeverBlocks(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	for i := 0; i < DoneBuffer*2; i++ {
		q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	}

	finished := make(chan struct{})
	go func() {
		q.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("worker blocked on an unread Done channel")
	}
	assert.Len(t, q.Done(), DoneBuffer)
}

func TestQueue_NoLostWakeup(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	// Enqueue from many goroutines while the worker repeatedly drains to
	// empty and exits. Every job must still run.
	var ran atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q.Enqueue(Job{Run: func(context.Context) (string, error) {
					ran.Add(1)
					return "", nil
				}})
			}
		}()
	}
	wg.Wait()

	finished := make(chan struct{})
	go func() {
		q.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatalf("jobs stranded: ran %d of 1600", ran.Load())
	}
	assert.Equal(t, int32(1600), ran.Load())
	assert.Eventually(t, func() bool { return !q.draining.Load() }, time.Second, time.Millisecond,
		"worker should exit when idle")
}

func TestQueue_JobContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, nil)
	cancel()

	id := q.Enqueue(Job{Run: func(ctx context.Context) (string, error) { return "", ctx.Err() }})
	q.Wait()

	info, _ := q.Get(id)
	assert.Equal(t, StatusFailed, info.Status)
}

func TestQueue_WarningKeptOnSuccess(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	id := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "template not saved", nil }})
	failed := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "ignored", errors.New("boom") }})
	q.Wait()

	info, _ := q.Get(id)
	assert.Equal(t, StatusDone, info.Status)
	assert.Equal(t, "template not saved", info.Warning)

	info, _ = q.Get(failed)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Empty(t, info.Warning)
}

func TestQueue_EvictsFinishedJobs(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	q := NewQueue(context.Background(), nil, WithRetention(time.Hour), WithClock(clock))

	old := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	q.Wait()

	advance(30 * time.Minute)
	recent := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	q.Wait()

	release := make(chan struct{})
	advance(30 * time.Minute)
	running := q.Enqueue(Job{Run: func(context.Context) (string, error) {
		<-release
		return "", nil
	}})

	_, ok := q.Get(old)
	assert.False(t, ok, "job finished an hour ago should be evicted")
	_, ok = q.Get(recent)
	assert.True(t, ok)
	_, ok = q.Get(running)
	assert.True(t, ok)

	// Unfinished jobs are never evicted.
	advance(2 * time.Hour)
	q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	_, ok = q.Get(recent)
	assert.False(t, ok)
	_, ok = q.Get(running)
	assert.True(t, ok)

	close(release)
	q.Wait()
}

func TestQueue_CloseEndsDone(t *testing.T) {
	q := NewQueue(context.Background(), nil)

	for i := 0; i < 3; i++ {
		q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	}

	drained := make(chan int)
	go func() {
		n := 0
		for range q.Done() {
			n++
		}
		drained <- n
	}()

	q.Close()
	select {
	case n := <-drained:
		assert.Equal(t, 3, n)
	case <-time.After(5 * time.Second):
		t.Fatal("Done was not closed")
	}

	id := q.Enqueue(Job{Run: func(context.Context) (string, error) { return "", nil }})
	info, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, ErrClosed.Error(), info.Error)

	q.Close()
}
