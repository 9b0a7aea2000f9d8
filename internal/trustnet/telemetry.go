package trustnet

import "sync"

// Stats are the run-wide aggregate counters. Dropped reports are counted
// separately and deliberately excluded from TotalReports.
type Stats struct {
	mu sync.Mutex

	totalReports   int
	droppedReports int
	fakeReports    int // ground truth
	realIncidents  int // ground truth
	detectedFakes  int // score-based
	dispatches     int
	skippedEvents  int // events whose vehicle had left the feed
}

// AddReport counts a routed report.
func (s *Stats) AddReport() {
	s.mu.Lock()
	s.totalReports++
	s.mu.Unlock()
}

// AddDropped counts an out-of-coverage drop.
func (s *Stats) AddDropped() {
	s.mu.Lock()
	s.droppedReports++
	s.mu.Unlock()
}

// AddFakeReport counts a ground-truth fake report entering the system.
func (s *Stats) AddFakeReport() {
	s.mu.Lock()
	s.fakeReports++
	s.mu.Unlock()
}

// AddRealIncident counts a ground-truth genuine incident.
func (s *Stats) AddRealIncident() {
	s.mu.Lock()
	s.realIncidents++
	s.mu.Unlock()
}

// AddDetectedFake counts a report the validator flagged fake.
func (s *Stats) AddDetectedFake() {
	s.mu.Lock()
	s.detectedFakes++
	s.mu.Unlock()
}

// AddDispatch counts an issued emergency dispatch.
func (s *Stats) AddDispatch() {
	s.mu.Lock()
	s.dispatches++
	s.mu.Unlock()
}

// AddSkippedEvent counts an event skipped because its vehicle was absent.
func (s *Stats) AddSkippedEvent() {
	s.mu.Lock()
	s.skippedEvents++
	s.mu.Unlock()
}

// Totals returns a consistent snapshot of the counters.
func (s *Stats) Totals() StatsTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsTotals{
		TotalReports:   s.totalReports,
		DroppedReports: s.droppedReports,
		FakeReports:    s.fakeReports,
		RealIncidents:  s.realIncidents,
		DetectedFakes:  s.detectedFakes,
		Dispatches:     s.dispatches,
		SkippedEvents:  s.skippedEvents,
	}
}

// StatsTotals is an immutable snapshot of Stats.
type StatsTotals struct {
	TotalReports   int `json:"total_reports"`
	DroppedReports int `json:"dropped_reports"`
	FakeReports    int `json:"fake_reports"`
	RealIncidents  int `json:"real_incidents"`
	DetectedFakes  int `json:"detected_fakes"`
	Dispatches     int `json:"emergency_dispatches"`
	SkippedEvents  int `json:"skipped_events"`
}

// DetectionAccuracy is detected fakes over ground-truth fakes, defined as 0
// while no fake report has been seen.
func (t StatsTotals) DetectionAccuracy() float64 {
	if t.FakeReports == 0 {
		return 0
	}
	return float64(t.DetectedFakes) / float64(t.FakeReports)
}

// StatsRow is one per-interval entry of the append-only statistics series.
type StatsRow struct {
	Timestamp         float64 `json:"timestamp"`
	ActiveVehicles    int     `json:"active_vehicle_count"`
	TotalReports      int     `json:"total_reports"`
	FakeReports       int     `json:"fake_reports"`
	DetectedFakes     int     `json:"detected_fakes"`
	DetectionAccuracy float64 `json:"detection_accuracy"`
}

// Recorder receives the pipeline's structured output records. Implementations
// persist them (SQLite) or append them to run artifacts (JSONL/CSV); a nil
// recorder on the engine discards everything.
type Recorder interface {
	RecordReport(r *IncidentReport) error
	RecordStats(row StatsRow) error
	RecordDispatch(ev DispatchEvent) error
}
