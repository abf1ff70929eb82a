package engine

// eventQueue is an unbounded FIFO of events.
//
// It backs both the Control's bus and every machine inbox. There is no
// locking: the engine is single-threaded and each queue has exactly one
// consumer.
type eventQueue struct {
	events []Event
}

// newEventQueue creates an empty queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
	}
}

// Enqueue adds an event to the back of the queue.
func (q *eventQueue) Enqueue(e Event) {
	q.events = append(q.events, e)
}

// TryDequeue removes and returns the front event.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Clear the slot so the payload can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Filter keeps only the events for which keep returns true, preserving order.
// Returns the number of events removed.
func (q *eventQueue) Filter(keep func(Event) bool) int {
	kept := q.events[:0]
	removed := 0
	for _, e := range q.events {
		if keep(e) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	// Clear the tail left behind by compaction.
	for i := len(kept); i < len(q.events); i++ {
		q.events[i] = Event{}
	}
	q.events = kept
	return removed
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	return len(q.events)
}

// Snapshot returns a copy of the queued events, front first.
func (q *eventQueue) Snapshot() []Event {
	out := make([]Event, len(q.events))
	copy(out, q.events)
	return out
}
