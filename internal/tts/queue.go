package tts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one queued synthesis request.
type Entry struct {
	ID         uuid.UUID
	Text       string
	Language   string
	VoiceHint  string
	EnqueuedAt time.Time
	Done       chan Result
}

// Result is delivered on an Entry's Done channel exactly once.
type Result struct {
	Audio    <-chan []byte
	Err      error
	Rejected bool
}

// Queue is a FIFO exclusively owned by one (session, language) worker. It
// supports dropping the oldest entries once depth passes the overflow
// threshold, per the dispatcher's overflow policy.
type Queue struct {
	mu      chan struct{} // binary semaphore; cheaper than sync.Mutex to select on
	entries []*Entry
	notify  chan struct{}
	closed  bool
}

// NewQueue builds an empty queue.
func NewQueue() *Queue {
	q := &Queue{mu: make(chan struct{}, 1), notify: make(chan struct{}, 1)}
	q.mu <- struct{}{}
	return q
}

func (q *Queue) lock()   { <-q.mu }
func (q *Queue) unlock() { q.mu <- struct{}{} }

// Push appends an entry. It returns false if the queue has been closed.
func (q *Queue) Push(e *Entry) bool {
	q.lock()
	if q.closed {
		q.unlock()
		return false
	}
	q.entries = append(q.entries, e)
	q.unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.lock()
	defer q.unlock()
	return len(q.entries)
}

// Pop blocks until an entry is available, the context is cancelled, or the
// queue is closed and drained.
func (q *Queue) Pop(ctx context.Context) (*Entry, bool) {
	for {
		q.lock()
		if len(q.entries) > 0 {
			e := q.entries[0]
			q.entries = q.entries[1:]
			q.unlock()
			return e, true
		}
		closed := q.closed
		q.unlock()
		if closed {
			return nil, false
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// DropOverflow enforces the overflow policy: once depth exceeds
// 2*criticalSize, the oldest entries are dropped down to criticalSize and
// their handles rejected by the caller. Returns the dropped entries.
func (q *Queue) DropOverflow(criticalSize int) []*Entry {
	q.lock()
	defer q.unlock()
	if len(q.entries) <= 2*criticalSize {
		return nil
	}
	dropCount := len(q.entries) - criticalSize
	dropped := q.entries[:dropCount]
	q.entries = q.entries[dropCount:]
	return dropped
}

// Close marks the queue closed; any entries still queued are returned so
// the caller can reject their handles.
func (q *Queue) Close() []*Entry {
	q.lock()
	defer q.unlock()
	q.closed = true
	drained := q.entries
	q.entries = nil
	return drained
}
