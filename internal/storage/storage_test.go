package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadtrust/internal/geo"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.BeginRun(RunInfo{
		Feed:              "synthetic",
		CoverageRadius:    500,
		WitnessRadius:     200,
		FakeThreshold:     0.3,
		DispatchThreshold: 0.7,
	}))
	return s
}

func validatedReport(reporter string, simTime, score float64, fake bool) *trustnet.IncidentReport {
	r := trustnet.NewIncidentReport(reporter, "accident", geo.Point{X: 2000, Y: -40}, simTime, fake)
	nodeID := 1
	r.NodeID = &nodeID
	r.Status = trustnet.StatusValidated
	r.Score = score
	return r
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.MigrateUp())
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Up again is a no-op, not an error.
	require.NoError(t, s.MigrateUp())

	// One step down removes the reputation table.
	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestRecordAndReadReports(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	r := validatedReport("veh_001", 120, 0.9, false)
	r.Witnesses = []string{"wit_1", "wit_2"}
	require.NoError(t, s.RecordReport(r))
	require.NoError(t, s.RecordReport(validatedReport("veh_002", 130, 0.1, true)))

	reports, err := s.Reports(10)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Newest first.
	assert.Equal(t, "veh_002", reports[0].Reporter)
	assert.True(t, reports[0].IsFake)
	assert.Empty(t, reports[0].Witnesses)

	got := reports[1]
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "veh_001", got.Reporter)
	assert.Equal(t, []string{"wit_1", "wit_2"}, got.Witnesses)
	require.NotNil(t, got.NodeID)
	assert.Equal(t, 1, *got.NodeID)
	assert.Equal(t, "validated", got.Status)
	assert.InDelta(t, 0.9, got.Score, 1e-9)
}

func TestRecordStatsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	rows := []trustnet.StatsRow{
		{Timestamp: 100, ActiveVehicles: 180, TotalReports: 4, FakeReports: 1, DetectedFakes: 1, DetectionAccuracy: 1.0},
		{Timestamp: 200, ActiveVehicles: 175, TotalReports: 9, FakeReports: 3, DetectedFakes: 2, DetectionAccuracy: 2.0 / 3.0},
	}
	for _, row := range rows {
		require.NoError(t, s.RecordStats(row))
	}

	got, err := s.StatsRows()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestRecordDispatches(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	require.NoError(t, s.RecordDispatch(trustnet.DispatchEvent{
		Reporter: "veh_001", Timestamp: 50, Location: geo.Point{X: 2100, Y: -45},
	}))

	got, err := s.Dispatches()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "veh_001", got[0].Reporter)
	assert.Equal(t, 50.0, got[0].SimTime)
	assert.Equal(t, 2100.0, got[0].X)
}

func TestSaveReputationRewrites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	require.NoError(t, s.SaveReputation(map[string]float64{
		"veh_001": 0.6,
		"veh_002": 0.2,
	}))
	// A second snapshot replaces the first entirely.
	require.NoError(t, s.SaveReputation(map[string]float64{
		"veh_001": 0.7,
	}))

	got, err := s.Reputation()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"veh_001": 0.7}, got)
}

func TestRunsAreIsolated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "shared.db")

	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.MigrateUp())
	require.NoError(t, first.BeginRun(RunInfo{Feed: "synthetic"}))
	require.NoError(t, first.RecordDispatch(trustnet.DispatchEvent{Reporter: "veh_001", Timestamp: 10}))

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.MigrateUp())
	require.NoError(t, second.BeginRun(RunInfo{Feed: "replay"}))

	assert.NotEqual(t, first.RunID(), second.RunID())

	// The second run sees only its own rows.
	got, err := second.Dispatches()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFinishRunStampsEndTime(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.FinishRun())

	var finished *string
	err := s.QueryRow("SELECT finished_at FROM runs WHERE id = ?", s.RunID()).Scan(&finished)
	require.NoError(t, err)
	require.NotNil(t, finished)
	assert.NotEmpty(t, *finished)
}
