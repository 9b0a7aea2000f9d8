package feed

import "container/heap"

// ScheduledEvent is a timer event bound to its vehicle, queued until the
// simulation clock passes its due time.
type ScheduledEvent struct {
	VehicleID string
	Kind      EventKind
	Type      string
	Due       float64
	OffsetX   float64
	OffsetY   float64
}

// EventQueue is a min-heap of scheduled events keyed by due time. It replaces
// per-tick floating-point window comparisons ("is the event within 0.5s of
// now") with an explicit pop-when-due queue. Events are registered once per
// vehicle lifetime; the engine is responsible for not re-registering.
type EventQueue struct {
	h eventHeap
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push schedules an event.
func (q *EventQueue) Push(ev ScheduledEvent) {
	heap.Push(&q.h, ev)
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return q.h.Len() }

// PopDue removes and returns all events with Due <= now, in due order.
func (q *EventQueue) PopDue(now float64) []ScheduledEvent {
	var due []ScheduledEvent
	for q.h.Len() > 0 && q.h[0].Due <= now {
		due = append(due, heap.Pop(&q.h).(ScheduledEvent))
	}
	return due
}

type eventHeap []ScheduledEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].Due < h[j].Due }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(ScheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
