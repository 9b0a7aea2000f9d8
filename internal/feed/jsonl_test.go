package feed

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayFeed(t *testing.T) {
	t.Parallel()

	t.Run("replays snapshots in order", func(t *testing.T) {
		t.Parallel()
		input := strings.Join([]string{
			`{"time": 1, "vehicles": [{"id": "veh_001", "x": 100, "y": -20}]}`,
			`{"time": 2, "vehicles": [{"id": "veh_001", "x": 130, "y": -20}]}`,
		}, "\n")

		f := NewReplayFeed(strings.NewReader(input))
		ctx := context.Background()

		first, err := f.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1.0, first.Time)
		require.Len(t, first.Vehicles, 1)
		assert.Equal(t, "veh_001", first.Vehicles[0].ID)

		second, err := f.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2.0, second.Time)

		_, err = f.Next(ctx)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("skips malformed lines", func(t *testing.T) {
		t.Parallel()
		input := strings.Join([]string{
			`{"time": 1, "vehicles": []}`,
			`{"time": not json`,
			`{"time": 3, "vehicles": []}`,
		}, "\n")

		f := NewReplayFeed(strings.NewReader(input))
		ctx := context.Background()

		first, err := f.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1.0, first.Time)

		// The malformed middle line is skipped, not surfaced.
		third, err := f.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3.0, third.Time)
		assert.Equal(t, 1, f.SkippedLines)
	})

	t.Run("drops events with unknown kind", func(t *testing.T) {
		t.Parallel()
		input := `{"time": 1, "vehicles": [{"id": "v", "x": 0, "y": 0, "events": [` +
			`{"kind": "incident", "type": "accident", "due": 5},` +
			`{"kind": "teleport", "type": "accident", "due": 5}]}]}`

		f := NewReplayFeed(strings.NewReader(input))
		snap, err := f.Next(context.Background())
		require.NoError(t, err)

		require.Len(t, snap.Vehicles[0].Events, 1)
		assert.Equal(t, EventIncident, snap.Vehicles[0].Events[0].Kind)
		assert.Equal(t, 1, f.SkippedEvents)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := NewReplayFeed(strings.NewReader(`{"time": 1, "vehicles": []}`))
		_, err := f.Next(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Time: 42.5,
		Vehicles: []VehicleRecord{
			{
				ID: "veh_007", X: 1234.5, Y: -12,
				Flags: RoleFlags{Malicious: true},
				Events: []TimerEvent{
					{Kind: EventFakeReport, Type: "hazard", Due: 100, OffsetX: 350, OffsetY: -40},
				},
			},
			{ID: "veh_008", X: 900, Y: 8, Flags: RoleFlags{Honest: true}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap))

	f := NewReplayFeed(&buf)
	got, err := f.Next(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoleFlagsResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoleMalicious, RoleFlags{Malicious: true}.Resolve())
	assert.Equal(t, RoleHonest, RoleFlags{Honest: true}.Resolve())
	assert.Equal(t, RoleEmergency, RoleFlags{Emergency: true}.Resolve())
	assert.Equal(t, RoleUnclassified, RoleFlags{}.Resolve())
	// malicious wins when a feed sets contradictory flags
	assert.Equal(t, RoleMalicious, RoleFlags{Malicious: true, Honest: true}.Resolve())
}
