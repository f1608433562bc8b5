package engine

import (
	"sync"

	"github.com/roach88/rete/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeAssert adds Fields to working memory.
	EventTypeAssert EventType = iota + 1
	// EventTypeRetract removes the fact named by FactID.
	EventTypeRetract
)

// Event is one queued working memory change.
//
// Done, when set, is called from the Run goroutine with the fact ID and the
// outcome once the transaction has been applied.
type Event struct {
	Type   EventType
	Fields ir.IRArray
	FactID string
	Done   func(id string, err error)
}

// AssertEvent builds an assertion event.
func AssertEvent(fields ...ir.IRValue) Event {
	return Event{Type: EventTypeAssert, Fields: fields}
}

// RetractEvent builds a retraction event.
func RetractEvent(id string) Event {
	return Event{Type: EventTypeRetract, FactID: id}
}

// eventQueue is an unbounded FIFO of events shared between producers and
// the Run loop. Producers never block.
//
// ready holds at most one pending wakeup. It is closed by Close, so a Run
// loop selecting on it together with ctx.Done never hangs.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	head   int
	closed bool
	ready  chan struct{}
}

// compactAfter is the number of consumed slots that may sit at the front of
// a backlog before it is shifted down.
const compactAfter = 64

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

// Enqueue appends e. It returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest event, or reports false when none is queued.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.events) {
		return Event{}, false
	}
	e := q.events[q.head]
	q.events[q.head] = Event{}
	q.head++

	switch {
	case q.head == len(q.events):
		q.events = q.events[:0]
		q.head = 0
	case q.head >= compactAfter && 2*q.head >= len(q.events):
		n := copy(q.events, q.events[q.head:])
		clear(q.events[n:])
		q.events = q.events[:n]
		q.head = 0
	}
	return e, true
}

// Wait returns the wakeup channel. A receive means events may be queued or
// the queue was closed; callers re-check with TryDequeue or drained.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events) - q.head
}

// drained reports whether the queue is closed with nothing left to process.
func (q *eventQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.head == len(q.events)
}

// Close stops further enqueues and wakes the Run loop. Closing twice is a
// no-op.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ready)
	}
}
