package tts

import (
	"context"
	"testing"
	"time"
)

func newTestEntry(text string) *Entry {
	return &Entry{Text: text, Done: make(chan Result, 1)}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Push(newTestEntry("first"))
	q.Push(newTestEntry("second"))
	q.Push(newTestEntry("third"))

	ctx := context.Background()
	for _, want := range []string{"first", "second", "third"} {
		e, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("expected an entry, got none")
		}
		if e.Text != want {
			t.Errorf("Pop = %q, want %q", e.Text, want)
		}
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	result := make(chan *Entry, 1)
	go func() {
		e, _ := q.Pop(ctx)
		result <- e
	}()

	select {
	case <-result:
		t.Fatal("expected Pop to block with an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(newTestEntry("late arrival"))
	select {
	case e := <-result:
		if e.Text != "late arrival" {
			t.Errorf("got %q, want %q", e.Text, "late arrival")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestQueuePopRespectsContextCancellation(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Pop(ctx)
	if ok {
		t.Error("expected Pop to report no entry once context is cancelled")
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue()
	if q.Len() != 0 {
		t.Fatalf("expected an empty queue, got len=%d", q.Len())
	}
	q.Push(newTestEntry("a"))
	q.Push(newTestEntry("b"))
	if q.Len() != 2 {
		t.Errorf("expected len=2, got %d", q.Len())
	}
}

func TestQueueDropOverflowBelowThreshold(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(newTestEntry("x"))
	}
	if dropped := q.DropOverflow(10); dropped != nil {
		t.Errorf("expected no drops below 2x critical size, got %d", len(dropped))
	}
}

func TestQueueDropOverflowAboveThreshold(t *testing.T) {
	q := NewQueue()
	const criticalSize = 5
	for i := 0; i < 2*criticalSize+3; i++ {
		q.Push(newTestEntry("x"))
	}
	dropped := q.DropOverflow(criticalSize)
	if len(dropped) == 0 {
		t.Fatal("expected entries to be dropped once depth exceeded 2x critical size")
	}
	if q.Len() != criticalSize {
		t.Errorf("expected queue depth to settle at criticalSize=%d, got %d", criticalSize, q.Len())
	}
}

func TestQueuePushAfterCloseFails(t *testing.T) {
	q := NewQueue()
	q.Push(newTestEntry("a"))
	q.Close()
	if q.Push(newTestEntry("b")) {
		t.Error("expected Push to fail after Close")
	}
}

func TestQueueCloseReturnsDrainedEntries(t *testing.T) {
	q := NewQueue()
	q.Push(newTestEntry("a"))
	q.Push(newTestEntry("b"))
	drained := q.Close()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained entries, got %d", len(drained))
	}
	if q.Len() != 0 {
		t.Errorf("expected queue to be empty after Close, got len=%d", q.Len())
	}
}

func TestQueuePopReturnsFalseOnceClosedAndDrained(t *testing.T) {
	q := NewQueue()
	q.Close()
	_, ok := q.Pop(context.Background())
	if ok {
		t.Error("expected Pop to report no entry on a closed, empty queue")
	}
}
