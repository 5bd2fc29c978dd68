// Package recovery implements the index recovery queue (component G): a
// process-lived, in-memory backlog of deferred index mutations, retried by a
// single background worker with exponential backoff. It exists so that a
// successful on-disk note mutation is never blocked on — or rolled back by —
// a failing search-index write; the write is deferred here instead. Grounded
// in the teacher's cache.Service watch/stale-ticker worker shape (a single
// background goroutine woken on a timer, reconciling a dirty set under a
// mutex) adapted from "revalidate dirty cache entries" to "retry deferred
// index mutations with backoff."
package recovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Operation is the kind of index mutation a queue entry represents.
type Operation string

const (
	OpIndex  Operation = "index"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Key is the uniqueness key for a queue entry: enqueuing the same key
// replaces the prior entry rather than appending a duplicate.
type Key struct {
	UID string
	Op  Operation
}

// Entry is one deferred index mutation.
type Entry struct {
	Key             Key
	FilePath        string
	FirstEnqueuedAt time.Time
	Retries         int
	LastError       string
}

// Apply performs one queue entry's underlying index mutation. Implementations
// close over the note store / search index and are supplied by the caller
// (pkg/mcptools) so this package stays free of those dependencies.
type Apply func(ctx context.Context, e Entry) error

// Options configures worker timing and retry limits.
type Options struct {
	WorkerInterval time.Duration // how often the worker wakes to check for due entries
	BaseDelay      time.Duration // backoff base used by the due() computation
	MaxRetries     int
	Logger         zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.WorkerInterval <= 0 {
		o.WorkerInterval = 2 * time.Second
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 1 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	return o
}

// Queue is the recovery queue. Enqueue starts the background worker lazily
// if one is not already running; the worker stops itself once the queue
// empties and restarts on the next Enqueue.
type Queue struct {
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	entries map[Key]*Entry
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	apply Apply

	// stats feed the metrics collector's queue gauges.
	processed int64
	succeeded int64
	failed    int64
}

// New builds a Queue. apply performs the actual index mutation for a due
// entry; it is invoked by the worker goroutine only.
func New(opts Options, apply Apply) *Queue {
	return &Queue{
		opts:    opts.withDefaults(),
		now:     time.Now,
		entries: make(map[Key]*Entry),
		apply:   apply,
	}
}

// Enqueue upserts entry by its key and starts the worker if idle.
func (q *Queue) Enqueue(key Key, filePath string) {
	q.mu.Lock()
	q.entries[key] = &Entry{
		Key:             key,
		FilePath:        filePath,
		FirstEnqueuedAt: q.now(),
	}
	needsStart := !q.running
	if needsStart {
		q.running = true
		q.stopCh = make(chan struct{})
		q.doneCh = make(chan struct{})
	}
	q.mu.Unlock()

	if needsStart {
		go q.runWorker()
	}
}

// Status is a snapshot of queue size, whether the background worker is
// running, and a copy of the current entries.
type Status struct {
	Size       int
	Processing bool
	Entries    []Entry
	Processed  int64
	Succeeded  int64
	Failed     int64
}

// Status returns a point-in-time snapshot.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FirstEnqueuedAt.Before(entries[j].FirstEnqueuedAt)
	})

	return Status{
		Size:       len(q.entries),
		Processing: q.running,
		Entries:    entries,
		Processed:  q.processed,
		Succeeded:  q.succeeded,
		Failed:     q.failed,
	}
}

// Cleanup stops the worker (if running) and logs any residual entries. It
// does not attempt a final drain: residual entries are simply dropped, since
// the recovery queue does not survive a process restart by design.
func (q *Queue) Cleanup() {
	q.mu.Lock()
	running := q.running
	stopCh := q.stopCh
	doneCh := q.doneCh
	residual := len(q.entries)
	q.mu.Unlock()

	if running {
		close(stopCh)
		<-doneCh
		q.mu.Lock()
		if q.stopCh == stopCh {
			q.running = false
		}
		q.mu.Unlock()
	}
	if residual > 0 {
		q.opts.Logger.Error().Int("residual", residual).Msg("recovery queue stopped with residual entries; they are dropped")
	}
}

func (q *Queue) runWorker() {
	defer close(q.doneCh)
	ticker := time.NewTicker(q.opts.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if q.drainDue() {
				q.mu.Lock()
				empty := len(q.entries) == 0
				if empty {
					q.running = false
				}
				q.mu.Unlock()
				if empty {
					return
				}
			}
		}
	}
}

// drainDue takes a snapshot of due entries and processes them sequentially.
// Entries enqueued while processing are appended atomically by Enqueue and
// are not preempted mid-drain. It returns true once the drain cycle (however
// small) has completed, so the caller can decide whether to stop the worker.
func (q *Queue) drainDue() bool {
	now := q.now()

	q.mu.Lock()
	var due []Entry
	for _, e := range q.entries {
		wait := time.Duration(float64(q.opts.BaseDelay) * pow2(e.Retries))
		if wait > 0 && now.Before(e.FirstEnqueuedAt.Add(wait)) {
			continue
		}
		due = append(due, *e)
	}
	q.mu.Unlock()

	for _, e := range due {
		q.processEntry(e)
	}
	return true
}

func (q *Queue) processEntry(e Entry) {
	q.mu.Lock()
	q.processed++
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := q.apply(ctx, e)
	cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	current, ok := q.entries[e.Key]
	if !ok {
		// Superseded or already removed while we were working; nothing to do.
		return
	}
	if err == nil {
		delete(q.entries, e.Key)
		q.succeeded++
		return
	}

	current.Retries++
	current.LastError = err.Error()
	current.FirstEnqueuedAt = q.now() // §4.5: wait is measured from the last attempt, not the original enqueue
	q.failed++

	if current.Retries >= q.opts.MaxRetries {
		delete(q.entries, e.Key)
		q.opts.Logger.Error().
			Str("uid", e.Key.UID).
			Str("op", string(e.Key.Op)).
			Int("retries", current.Retries).
			Str("lastError", current.LastError).
			Msg("recovery queue entry abandoned after exhausting retries")
	}
}

func pow2(n int) float64 {
	if n <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 2
	}
	return result
}
