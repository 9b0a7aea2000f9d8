package trustnet

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/roadtrust/internal/feed"
	"github.com/banshee-data/roadtrust/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRecorder captures everything the engine emits.
type memRecorder struct {
	mu         sync.Mutex
	reports    []*IncidentReport
	stats      []StatsRow
	dispatches []DispatchEvent
}

func (m *memRecorder) RecordReport(r *IncidentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memRecorder) RecordStats(row StatsRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, row)
	return nil
}

func (m *memRecorder) RecordDispatch(ev DispatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, ev)
	return nil
}

// scriptedFeed serves a fixed snapshot sequence.
type scriptedFeed struct {
	snaps []feed.Snapshot
	idx   int
}

func (f *scriptedFeed) Next(ctx context.Context) (feed.Snapshot, error) {
	if f.idx >= len(f.snaps) {
		return feed.Snapshot{}, io.EOF
	}
	snap := f.snaps[f.idx]
	f.idx++
	return snap, nil
}

func testEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.StatsIntervalTicks = 1
	return cfg
}

func TestEngineEndToEnd(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), rec)

	reporter := feed.VehicleRecord{
		ID: "veh_r", X: 2000, Y: -40,
		Events: []feed.TimerEvent{{Kind: feed.EventIncident, Type: "accident", Due: 1}},
	}
	witness := feed.VehicleRecord{
		ID: "wit_1", X: 2050, Y: -40,
		Flags: feed.RoleFlags{Honest: true},
	}
	malicious := feed.VehicleRecord{
		ID: "veh_m", X: 3900, Y: -50,
		Flags:  feed.RoleFlags{Malicious: true},
		Events: []feed.TimerEvent{{Kind: feed.EventFakeReport, Type: "hazard", Due: 2, OffsetX: 550}},
	}
	// Present only at t=0; its incident is due after it leaves.
	ghost := feed.VehicleRecord{
		ID: "veh_gone", X: 100, Y: -50,
		Events: []feed.TimerEvent{{Kind: feed.EventIncident, Type: "breakdown", Due: 2}},
	}

	e.Tick(feed.Snapshot{Time: 0, Vehicles: []feed.VehicleRecord{reporter, witness, malicious, ghost}})
	e.Tick(feed.Snapshot{Time: 1, Vehicles: []feed.VehicleRecord{reporter, witness, malicious}})
	e.Tick(feed.Snapshot{Time: 2, Vehicles: []feed.VehicleRecord{reporter, witness, malicious}})

	totals := e.Stats().Totals()
	assert.Equal(t, 1, totals.RealIncidents)
	assert.Equal(t, 1, totals.FakeReports)
	// incident + witness report + fake report all reached coverage
	assert.Equal(t, 3, totals.TotalReports)
	assert.Equal(t, 0, totals.DroppedReports)
	assert.Equal(t, 1, totals.DetectedFakes, "the displaced fake scores 0.0 and is flagged")
	assert.Equal(t, 1, totals.SkippedEvents, "the departed vehicle's incident is skipped")
	assert.Equal(t, 1, totals.Dispatches, "only the corroborated incident clears 0.7")

	// Reputation moved by validation outcomes only.
	assert.InDelta(t, 0.6, e.Reputation().Get("veh_r"), 1e-9)
	assert.InDelta(t, 0.6, e.Reputation().Get("wit_1"), 1e-9)
	assert.InDelta(t, 0.2, e.Reputation().Get("veh_m"), 1e-9)

	// All three reports recorded, each validated exactly once.
	require.Len(t, rec.reports, 3)
	for _, r := range rec.reports {
		assert.True(t, r.Validated())
		require.NotNil(t, r.NodeID)
	}

	require.Len(t, rec.dispatches, 1)
	assert.Equal(t, "veh_r", rec.dispatches[0].Reporter)
	assert.Equal(t, 1.0, rec.dispatches[0].Timestamp)

	// One stats row per tick at interval 1.
	require.Len(t, rec.stats, 3)
	last := rec.stats[2]
	assert.Equal(t, 2.0, last.Timestamp)
	assert.Equal(t, 3, last.ActiveVehicles)
	assert.Equal(t, 3, last.TotalReports)
	assert.InDelta(t, 1.0, last.DetectionAccuracy, 1e-9)
}

func TestEngineIncidentScoring(t *testing.T) {
	t.Parallel()

	// One witness, reporter at the declared location: 0.5 + 0 + 0.2 + 0.2 = 0.9.
	rec := &memRecorder{}
	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), rec)

	vehicles := []feed.VehicleRecord{
		{ID: "veh_r", X: 2000, Y: -40, Events: []feed.TimerEvent{{Kind: feed.EventIncident, Type: "accident", Due: 0}}},
		{ID: "wit_1", X: 2050, Y: -40, Flags: feed.RoleFlags{Honest: true}},
	}
	e.Tick(feed.Snapshot{Time: 0, Vehicles: vehicles})

	require.Len(t, rec.reports, 2)
	var incident *IncidentReport
	for _, r := range rec.reports {
		if r.Reporter == "veh_r" {
			incident = r
		}
	}
	require.NotNil(t, incident)
	assert.Equal(t, []string{"wit_1"}, incident.Witnesses)
	assert.InDelta(t, 0.9, incident.Score, 1e-9)
	assert.False(t, incident.IsFake)
}

func TestEngineNoWitnessesForFakes(t *testing.T) {
	t.Parallel()

	// Honest vehicles sit right next to the fake's declared location; the
	// fake still gets no witnesses.
	rec := &memRecorder{}
	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), rec)

	vehicles := []feed.VehicleRecord{
		{
			ID: "veh_m", X: 2000, Y: -40,
			Flags:  feed.RoleFlags{Malicious: true},
			Events: []feed.TimerEvent{{Kind: feed.EventFakeReport, Type: "accident", Due: 0, OffsetX: 50}},
		},
		{ID: "wit_1", X: 2050, Y: -40, Flags: feed.RoleFlags{Honest: true}},
		{ID: "wit_2", X: 2060, Y: -40, Flags: feed.RoleFlags{Honest: true}},
	}
	e.Tick(feed.Snapshot{Time: 0, Vehicles: vehicles})

	require.Len(t, rec.reports, 1)
	assert.True(t, rec.reports[0].IsFake)
	assert.Empty(t, rec.reports[0].Witnesses)
}

func TestEngineSameReporterTwoNodesSerialized(t *testing.T) {
	t.Parallel()

	// Two fabricated reports from one reporter in the same tick land at two
	// different nodes; both reputation penalties must apply.
	rec := &memRecorder{}
	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), rec)

	vehicles := []feed.VehicleRecord{
		{
			ID: "veh_m", X: 3000, Y: -50,
			Flags: feed.RoleFlags{Malicious: true},
			Events: []feed.TimerEvent{
				{Kind: feed.EventFakeReport, Type: "hazard", Due: 0, OffsetX: -700},
				{Kind: feed.EventFakeReport, Type: "hazard", Due: 0, OffsetX: 700},
			},
		},
	}
	e.Tick(feed.Snapshot{Time: 0, Vehicles: vehicles})

	require.Len(t, rec.reports, 2)
	nodeIDs := map[int]bool{}
	for _, r := range rec.reports {
		require.NotNil(t, r.NodeID)
		nodeIDs[*r.NodeID] = true
	}
	assert.Len(t, nodeIDs, 2, "the two reports must land at distinct nodes")

	// 0.5 -> 0.2 -> 0.0 with no lost update.
	assert.Equal(t, 0.0, e.Reputation().Get("veh_m"))
	assert.Equal(t, 2, e.Stats().Totals().DetectedFakes)
}

func TestEngineOutOfCoverageNeverCounted(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), rec)

	// Declared location far off the strip: nearest node is out of range.
	vehicles := []feed.VehicleRecord{
		{
			ID: "veh_m", X: 1000, Y: -50,
			Flags:  feed.RoleFlags{Malicious: true},
			Events: []feed.TimerEvent{{Kind: feed.EventFakeReport, Type: "accident", Due: 0, OffsetY: 5000}},
		},
	}
	e.Tick(feed.Snapshot{Time: 0, Vehicles: vehicles})

	totals := e.Stats().Totals()
	assert.Equal(t, 0, totals.TotalReports)
	assert.Equal(t, 1, totals.DroppedReports)
	assert.Equal(t, 1, totals.FakeReports, "ground truth counts the attempt")
	assert.Empty(t, rec.reports, "a dropped report is never validated or recorded")
}

func TestEngineStickyRoles(t *testing.T) {
	t.Parallel()

	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), nil)

	// First seen unflagged: classified unclassified forever, even if the
	// feed later claims honesty.
	v := feed.VehicleRecord{ID: "veh_x", X: 2000, Y: -40}
	e.Tick(feed.Snapshot{Time: 0, Vehicles: []feed.VehicleRecord{v}})

	v.Flags = feed.RoleFlags{Honest: true}
	e.Tick(feed.Snapshot{Time: 1, Vehicles: []feed.VehicleRecord{
		v,
		{ID: "veh_r", X: 2000, Y: -40, Events: []feed.TimerEvent{{Kind: feed.EventIncident, Type: "accident", Due: 1}}},
	}})
	e.Tick(feed.Snapshot{Time: 2, Vehicles: []feed.VehicleRecord{v}})

	assert.Equal(t, feed.RoleUnclassified, e.roles["veh_x"])
}

func TestEngineRunStopsAtFeedEnd(t *testing.T) {
	t.Parallel()

	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), nil)
	f := &scriptedFeed{snaps: []feed.Snapshot{
		{Time: 0}, {Time: 1}, {Time: 2},
	}}

	clock := timeutil.NewMockClock(time.Now())
	err := e.Run(context.Background(), f, clock, 0)
	require.NoError(t, err, "feed exhaustion ends the run cleanly")
	assert.Equal(t, 3, e.Status().Tick)
}

func TestEngineRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	e := NewEngine(testEngineConfig(), NewHighwayNodes(500), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An endless feed; only cancellation can stop the run.
	err := e.Run(ctx, endlessFeed{}, timeutil.RealClock{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type endlessFeed struct{}

func (endlessFeed) Next(ctx context.Context) (feed.Snapshot, error) {
	return feed.Snapshot{}, nil
}
