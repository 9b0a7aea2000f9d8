package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueuePopDue(t *testing.T) {
	t.Parallel()

	q := NewEventQueue()
	q.Push(ScheduledEvent{VehicleID: "c", Kind: EventIncident, Due: 30})
	q.Push(ScheduledEvent{VehicleID: "a", Kind: EventIncident, Due: 10})
	q.Push(ScheduledEvent{VehicleID: "b", Kind: EventFakeReport, Due: 20})

	// Nothing due before the earliest timer.
	assert.Empty(t, q.PopDue(9.99))
	assert.Equal(t, 3, q.Len())

	// Pop in due order, inclusive of the boundary.
	due := q.PopDue(20)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].VehicleID)
	assert.Equal(t, "b", due[1].VehicleID)

	// Popped events do not fire twice.
	assert.Empty(t, q.PopDue(20))

	due = q.PopDue(1000)
	require.Len(t, due, 1)
	assert.Equal(t, "c", due[0].VehicleID)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueueEmpty(t *testing.T) {
	t.Parallel()
	q := NewEventQueue()
	assert.Empty(t, q.PopDue(1e9))
}
