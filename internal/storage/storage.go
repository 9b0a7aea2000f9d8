// Package storage persists pipeline output to SQLite. One Store instance
// covers one run: reports, periodic stats rows, dispatch events, and the
// final reputation snapshot, all keyed by a run UUID.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/roadtrust/internal/trustnet"
)

type Store struct {
	*sql.DB

	runID string
}

// compile-time check: the engine records through this store.
var _ trustnet.Recorder = (*Store)(nil)

// Open opens (or creates) the database at path and applies the connection
// pragmas. It does not touch the schema; call MigrateUp for that.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &Store{DB: db, runID: uuid.NewString()}, nil
}

// RunID returns the UUID rows written by this store are keyed under.
func (s *Store) RunID() string { return s.runID }

// UseRun re-keys the store onto an existing run, for offline analysis of a
// database produced by an earlier daemon run.
func (s *Store) UseRun(runID string) { s.runID = runID }

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID                string  `json:"id"`
	Feed              string  `json:"feed"`
	FakeThreshold     float64 `json:"fake_threshold"`
	DispatchThreshold float64 `json:"dispatch_threshold"`
	StartedAt         string  `json:"started_at"`
	FinishedAt        *string `json:"finished_at"`
}

// Runs lists all recorded runs, newest first.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.Query(
		`SELECT id, feed, fake_threshold, dispatch_threshold, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(
			&run.ID, &run.Feed, &run.FakeThreshold, &run.DispatchThreshold,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// RunInfo describes one run for the runs table.
type RunInfo struct {
	Feed              string  `json:"feed"`
	CoverageRadius    float64 `json:"coverage_radius"`
	WitnessRadius     float64 `json:"witness_radius"`
	FakeThreshold     float64 `json:"fake_threshold"`
	DispatchThreshold float64 `json:"dispatch_threshold"`
}

// BeginRun inserts the run row. Call once before recording anything.
func (s *Store) BeginRun(info RunInfo) error {
	_, err := s.Exec(
		`INSERT INTO runs (
			id, feed, coverage_radius, witness_radius,
			fake_threshold, dispatch_threshold
		) VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID, info.Feed, info.CoverageRadius, info.WitnessRadius,
		info.FakeThreshold, info.DispatchThreshold,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run row: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time.
func (s *Store) FinishRun() error {
	_, err := s.Exec(
		"UPDATE runs SET finished_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), s.runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run row: %w", err)
	}
	return nil
}

// RecordReport persists one validated report.
func (s *Store) RecordReport(r *trustnet.IncidentReport) error {
	witnesses, err := json.Marshal(r.Witnesses)
	if err != nil {
		return fmt.Errorf("failed to encode witnesses: %w", err)
	}

	var nodeID any
	if r.NodeID != nil {
		nodeID = *r.NodeID
	}

	_, err = s.Exec(
		`INSERT INTO reports (
			id, run_id, reporter, type, x, y, sim_time,
			is_fake, witnesses, node_id, status, score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, s.runID, r.Reporter, r.Type, r.Location.X, r.Location.Y,
		r.Timestamp, boolToInt(r.IsFake), string(witnesses), nodeID,
		string(r.Status), r.Score,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", r.ID, err)
	}
	return nil
}

// RecordStats persists one periodic stats row.
func (s *Store) RecordStats(row trustnet.StatsRow) error {
	_, err := s.Exec(
		`INSERT INTO stats (
			run_id, sim_time, active_vehicles, total_reports,
			fake_reports, detected_fakes, detection_accuracy
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, row.Timestamp, row.ActiveVehicles, row.TotalReports,
		row.FakeReports, row.DetectedFakes, row.DetectionAccuracy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stats row: %w", err)
	}
	return nil
}

// RecordDispatch persists one emergency dispatch event.
func (s *Store) RecordDispatch(ev trustnet.DispatchEvent) error {
	_, err := s.Exec(
		`INSERT INTO dispatches (run_id, reporter, sim_time, x, y)
		 VALUES (?, ?, ?, ?, ?)`,
		s.runID, ev.Reporter, ev.Timestamp, ev.Location.X, ev.Location.Y,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch: %w", err)
	}
	return nil
}

// SaveReputation writes the end-of-run reputation snapshot. Rewrites any
// previous snapshot for this run.
func (s *Store) SaveReputation(snapshot map[string]float64) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reputation WHERE run_id = ?", s.runID); err != nil {
		return fmt.Errorf("failed to clear reputation snapshot: %w", err)
	}
	for vehicleID, score := range snapshot {
		if _, err := tx.Exec(
			"INSERT INTO reputation (run_id, vehicle_id, score) VALUES (?, ?, ?)",
			s.runID, vehicleID, score,
		); err != nil {
			return fmt.Errorf("failed to insert reputation for %s: %w", vehicleID, err)
		}
	}
	return tx.Commit()
}

// ReportRow is a persisted report as read back from the database.
type ReportRow struct {
	ID        string   `json:"id"`
	Reporter  string   `json:"reporter"`
	Type      string   `json:"type"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	SimTime   float64  `json:"sim_time"`
	IsFake    bool     `json:"is_fake"`
	Witnesses []string `json:"witnesses"`
	NodeID    *int     `json:"node_id"`
	Status    string   `json:"status"`
	Score     float64  `json:"score"`
}

// Reports returns up to limit reports for this run, newest first.
func (s *Store) Reports(limit int) ([]ReportRow, error) {
	rows, err := s.Query(
		`SELECT id, reporter, type, x, y, sim_time, is_fake,
			witnesses, node_id, status, score
		 FROM reports WHERE run_id = ?
		 ORDER BY sim_time DESC LIMIT ?`,
		s.runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []ReportRow
	for rows.Next() {
		var (
			r            ReportRow
			isFake       int
			witnessesRaw string
		)
		if err := rows.Scan(
			&r.ID, &r.Reporter, &r.Type, &r.X, &r.Y, &r.SimTime,
			&isFake, &witnessesRaw, &r.NodeID, &r.Status, &r.Score,
		); err != nil {
			return nil, err
		}
		r.IsFake = isFake != 0
		if err := json.Unmarshal([]byte(witnessesRaw), &r.Witnesses); err != nil {
			return nil, fmt.Errorf("failed to decode witnesses for %s: %w", r.ID, err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

// StatsRows returns this run's stats rows in time order.
func (s *Store) StatsRows() ([]trustnet.StatsRow, error) {
	rows, err := s.Query(
		`SELECT sim_time, active_vehicles, total_reports,
			fake_reports, detected_fakes, detection_accuracy
		 FROM stats WHERE run_id = ? ORDER BY sim_time ASC`,
		s.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trustnet.StatsRow
	for rows.Next() {
		var row trustnet.StatsRow
		if err := rows.Scan(
			&row.Timestamp, &row.ActiveVehicles, &row.TotalReports,
			&row.FakeReports, &row.DetectedFakes, &row.DetectionAccuracy,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// DispatchRow is a persisted dispatch event.
type DispatchRow struct {
	Reporter string  `json:"reporter"`
	SimTime  float64 `json:"sim_time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Dispatches returns this run's dispatch events in time order.
func (s *Store) Dispatches() ([]DispatchRow, error) {
	rows, err := s.Query(
		`SELECT reporter, sim_time, x, y FROM dispatches
		 WHERE run_id = ? ORDER BY sim_time ASC`,
		s.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DispatchRow
	for rows.Next() {
		var d DispatchRow
		if err := rows.Scan(&d.Reporter, &d.SimTime, &d.X, &d.Y); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Reputation returns this run's stored reputation snapshot.
func (s *Store) Reputation() (map[string]float64, error) {
	rows, err := s.Query(
		"SELECT vehicle_id, score FROM reputation WHERE run_id = ?",
		s.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			id    string
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		out[id] = score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
