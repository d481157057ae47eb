// Package jobs runs background work one job at a time in FIFO order.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is a unit of background work.
type Job struct {
	// ID is assigned on Enqueue when empty.
	ID         string
	DocumentID string
	Kind       string
	// Run does the work. A non-empty warning is kept on a successful
	// job's Info.
	Run func(ctx context.Context) (warning string, err error)
}

// Info is the observable state of a job.
type Info struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Warning    string     `json:"warning,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Queue is a FIFO with at most one worker goroutine. The worker exists
// only while there is work.
type Queue struct {
	ctx       context.Context
	log       *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	pending []Job
	jobs    map[string]*Info
	closed  bool

	draining  atomic.Bool
	wg        sync.WaitGroup
	done      chan Info
	closeOnce sync.Once
}

const (
	// DoneBuffer is the capacity of the Done channel.
	DoneBuffer = 64

	// DefaultRetention is how long a finished job stays visible to Get.
	DefaultRetention = time.Hour
)

// ErrClosed is the error recorded for jobs enqueued after Close.
var ErrClosed = errors.New("queue closed")

// Option configures a Queue.
type Option func(*Queue)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.retention = d
		}
	}
}

// WithClock replaces time.Now for job timestamps and eviction.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue returns a Queue whose jobs run with ctx. A nil logger uses
// slog.Default().
func NewQueue(ctx context.Context, log *slog.Logger, opts ...Option) *Queue {
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		ctx:       ctx,
		log:       log,
		retention: DefaultRetention,
		now:       time.Now,
		jobs:      make(map[string]*Info),
		done:      make(chan Info, DoneBuffer),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends job and returns its ID. A worker is started if none is
// running.
func (q *Queue) Enqueue(job Job) string {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	q.mu.Lock()
	now := q.now().UTC()
	q.evictLocked(now)
	info := &Info{
		ID:         job.ID,
		DocumentID: job.DocumentID,
		Kind:       job.Kind,
		Status:     StatusQueued,
		CreatedAt:  now,
	}
	q.jobs[job.ID] = info
	if q.closed {
		info.Status = StatusFailed
		info.Error = ErrClosed.Error()
		info.FinishedAt = &now
		q.mu.Unlock()
		return job.ID
	}
	q.pending = append(q.pending, job)
	q.wg.Add(1)
	q.mu.Unlock()

	if q.draining.CompareAndSwap(false, true) {
		go q.drain()
	}
	return job.ID
}

// Get returns a snapshot of the job's state.
func (q *Queue) Get(id string) (Info, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[id]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Wait blocks until every enqueued job has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Done publishes each finished job. Reading it is optional; when the
// buffer is full, notifications are dropped. The channel is closed by
// Close.
func (q *Queue) Done() <-chan Info {
	return q.done
}

// Close stops accepting jobs, waits for the queued ones to finish and
// closes the Done channel. Jobs enqueued afterwards fail with ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	q.closeOnce.Do(func() { close(q.done) })
}

// evictLocked forgets jobs that finished more than the retention period
// before now.
func (q *Queue) evictLocked(now time.Time) {
	for id, info := range q.jobs {
		if info.FinishedAt != nil && now.Sub(*info.FinishedAt) >= q.retention {
			delete(q.jobs, id)
		}
	}
}

func (q *Queue) drain() {
	for {
		for {
			job, ok := q.pop()
			if !ok {
				break
			}
			q.run(job)
		}

		q.draining.Store(false)

		// An Enqueue between the last pop and the Store saw draining set
		// and left the job for us.
		if !q.hasPending() || !q.draining.CompareAndSwap(false, true) {
			return
		}
	}
}

func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Job{}, false
	}
	job := q.pending[0]
	q.pending[0] = Job{}
	q.pending = q.pending[1:]

	now := q.now().UTC()
	info := q.jobs[job.ID]
	info.Status = StatusRunning
	info.StartedAt = &now
	return job, true
}

func (q *Queue) hasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0
}

func (q *Queue) run(job Job) {
	defer q.wg.Done()

	warning, err := q.call(job)

	q.mu.Lock()
	now := q.now().UTC()
	info := q.jobs[job.ID]
	info.FinishedAt = &now
	if err != nil {
		info.Status = StatusFailed
		info.Error = err.Error()
	} else {
		info.Status = StatusDone
		info.Warning = warning
	}
	snapshot := *info
	q.mu.Unlock()

	switch {
	case err != nil:
		q.log.Warn("job failed", "job", job.ID, "kind", job.Kind, "document", job.DocumentID, "error", err)
	case warning != "":
		q.log.Warn("job done with warning", "job", job.ID, "kind", job.Kind, "document", job.DocumentID, "warning", warning)
	default:
		q.log.Info("job done", "job", job.ID, "kind", job.Kind, "document", job.DocumentID)
	}

	select {
	case q.done <- snapshot:
	default:
	}
}

// call runs the job, turning a panic into an error so one bad job does not
// take the worker down.
func (q *Queue) call(job Job) (warning string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if job.Run == nil {
		return "", fmt.Errorf("job %s has nothing to run", job.ID)
	}
	return job.Run(q.ctx)
}
