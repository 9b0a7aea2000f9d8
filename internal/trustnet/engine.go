package trustnet

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/roadtrust/internal/config"
	"github.com/banshee-data/roadtrust/internal/feed"
	"github.com/banshee-data/roadtrust/internal/geo"
	"github.com/banshee-data/roadtrust/internal/monitoring"
	"github.com/banshee-data/roadtrust/internal/timeutil"
)

// EngineConfig holds the pipeline parameters.
type EngineConfig struct {
	CoverageRadius     float64
	WitnessRadius      float64
	FakeThreshold      float64
	DispatchThreshold  float64
	NearDistance       float64
	FarDistance        float64
	DefaultReputation  float64
	ReputationReward   float64
	ReputationPenalty  float64
	DedupKeyMode       DispatchKeyMode
	StatsIntervalTicks int
}

// EngineConfigFromTuning builds an EngineConfig from a loaded TuningConfig.
func EngineConfigFromTuning(cfg *config.TuningConfig) EngineConfig {
	return EngineConfig{
		CoverageRadius:     cfg.GetCoverageRadius(),
		WitnessRadius:      cfg.GetWitnessRadius(),
		FakeThreshold:      cfg.GetFakeThreshold(),
		DispatchThreshold:  cfg.GetDispatchThreshold(),
		NearDistance:       cfg.GetNearPlausibleDistance(),
		FarDistance:        cfg.GetFarImplausibleDistance(),
		DefaultReputation:  cfg.GetDefaultReputation(),
		ReputationReward:   cfg.GetReputationReward(),
		ReputationPenalty:  cfg.GetReputationPenalty(),
		DedupKeyMode:       DispatchKeyMode(cfg.GetDedupKeyMode()),
		StatsIntervalTicks: cfg.GetStatsIntervalTicks(),
	}
}

// DefaultEngineConfig returns the canonical parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfigFromTuning(config.EmptyTuningConfig())
}

// Engine sequences the pipeline once per tick: snapshot ingestion, role
// classification, due-event materialization, witness corroboration, coverage
// routing, validation, dispatch, telemetry.
type Engine struct {
	cfg EngineConfig

	stats        *Stats
	nodes        []*RoadsideNode
	router       *CoverageRouter
	corroborator *Corroborator
	validator    *Validator
	reputation   *ReputationStore
	dispatcher   *Dispatcher

	events *feed.EventQueue
	// roles caches each vehicle's classification; resolved once per lifetime
	// on first sight, never re-queried (flags are sticky).
	roles map[string]feed.Role

	recorder Recorder

	// mu guards the per-tick scalars read by Status while Run is ticking.
	mu             sync.Mutex
	tick           int
	lastTime       float64
	activeVehicles int
}

// NewEngine creates an engine over the given nodes. recorder may be nil.
func NewEngine(cfg EngineConfig, nodes []*RoadsideNode, recorder Recorder) *Engine {
	stats := &Stats{}
	reputation := NewReputationStore(cfg.DefaultReputation, cfg.ReputationReward, cfg.ReputationPenalty)
	return &Engine{
		cfg:          cfg,
		stats:        stats,
		nodes:        nodes,
		router:       NewCoverageRouter(nodes, stats),
		corroborator: NewCorroborator(cfg.WitnessRadius),
		validator: NewValidator(ValidatorConfig{
			FakeThreshold: cfg.FakeThreshold,
			NearDistance:  cfg.NearDistance,
			FarDistance:   cfg.FarDistance,
		}, reputation),
		reputation: reputation,
		dispatcher: NewDispatcher(cfg.DispatchThreshold, cfg.DedupKeyMode),
		events:     feed.NewEventQueue(),
		roles:      make(map[string]feed.Role),
		recorder:   recorder,
	}
}

// Reputation exposes the engine's reputation store.
func (e *Engine) Reputation() *ReputationStore { return e.reputation }

// Stats exposes the engine's run counters.
func (e *Engine) Stats() *Stats { return e.stats }

// Nodes returns the roadside node set.
func (e *Engine) Nodes() []*RoadsideNode { return e.nodes }

// Tick processes one snapshot through the full pipeline.
func (e *Engine) Tick(snap feed.Snapshot) {
	e.mu.Lock()
	e.tick++
	e.lastTime = snap.Time
	e.activeVehicles = len(snap.Vehicles)
	e.mu.Unlock()

	// Per-tick derived state, rebuilt from scratch and discarded at tick end.
	positions := make(map[string]geo.Point, len(snap.Vehicles))
	honest := make(map[string]geo.Point)

	for _, rec := range snap.Vehicles {
		positions[rec.ID] = rec.Position()

		if _, known := e.roles[rec.ID]; !known {
			// First sight: classify and register the vehicle's timers.
			e.roles[rec.ID] = rec.Flags.Resolve()
			for _, ev := range rec.Events {
				if !ev.Kind.Valid() {
					continue
				}
				e.events.Push(feed.ScheduledEvent{
					VehicleID: rec.ID,
					Kind:      ev.Kind,
					Type:      ev.Type,
					Due:       ev.Due,
					OffsetX:   ev.OffsetX,
					OffsetY:   ev.OffsetY,
				})
			}
		}
		if e.roles[rec.ID] == feed.RoleHonest {
			honest[rec.ID] = rec.Position()
		}
	}

	// Materialize due events into reports and route them.
	for _, ev := range e.events.PopDue(snap.Time) {
		reporterPos, present := positions[ev.VehicleID]
		if !present {
			// The vehicle left the feed before its event fired: skip the
			// dependent operation for this tick, never fatal.
			e.stats.AddSkippedEvent()
			monitoring.Logf("trustnet: skipping %s event for absent vehicle %s", ev.Kind, ev.VehicleID)
			continue
		}

		switch ev.Kind {
		case feed.EventIncident:
			e.stats.AddRealIncident()
			incident := NewIncidentReport(ev.VehicleID, ev.Type, reporterPos, snap.Time, false)
			// Witness set grows before the incident is routed; each witness
			// report then routes independently.
			for _, wr := range e.corroborator.Corroborate(incident, honest) {
				e.router.Route(wr)
			}
			e.router.Route(incident)

		case feed.EventFakeReport:
			e.stats.AddFakeReport()
			declared := geo.Point{X: reporterPos.X + ev.OffsetX, Y: reporterPos.Y + ev.OffsetY}
			fake := NewIncidentReport(ev.VehicleID, ev.Type, declared, snap.Time, true)
			e.router.Route(fake)
		}
	}

	// Recompute coverage sets.
	for _, n := range e.nodes {
		n.UpdateCoverage(positions)
	}

	// Validate queued reports node by node, then offer each for dispatch.
	for _, n := range e.nodes {
		for _, r := range n.Drain() {
			reporterPos, posKnown := positions[r.Reporter]
			out := e.validator.Validate(r, reporterPos, posKnown)
			if out.AlreadyValidated {
				// Must not happen under correct queue discipline.
				monitoring.Logf("trustnet: report %s re-entered validation, ignoring", r.ID)
				continue
			}
			if out.FlaggedFake {
				e.stats.AddDetectedFake()
			}
			e.record(func(rec Recorder) error { return rec.RecordReport(r) })

			if ev, dispatched := e.dispatcher.MaybeDispatch(r); dispatched {
				e.stats.AddDispatch()
				e.record(func(rec Recorder) error { return rec.RecordDispatch(ev) })
			}
		}
	}

	if e.cfg.StatsIntervalTicks > 0 && e.tick%e.cfg.StatsIntervalTicks == 0 {
		row := e.statsRow()
		e.record(func(rec Recorder) error { return rec.RecordStats(row) })
	}
}

func (e *Engine) statsRow() StatsRow {
	totals := e.stats.Totals()
	e.mu.Lock()
	lastTime, activeVehicles := e.lastTime, e.activeVehicles
	e.mu.Unlock()
	return StatsRow{
		Timestamp:         lastTime,
		ActiveVehicles:    activeVehicles,
		TotalReports:      totals.TotalReports,
		FakeReports:       totals.FakeReports,
		DetectedFakes:     totals.DetectedFakes,
		DetectionAccuracy: totals.DetectionAccuracy(),
	}
}

// record applies fn to the recorder. Persistence failures are logged, never
// allowed to stall the tick loop.
func (e *Engine) record(fn func(Recorder) error) {
	if e.recorder == nil {
		return
	}
	if err := fn(e.recorder); err != nil {
		monitoring.Logf("trustnet: recorder error: %v", err)
	}
}

// Status is a point-in-time view of the running engine for the HTTP API.
type Status struct {
	Tick              int          `json:"tick"`
	SimTime           float64      `json:"sim_time"`
	ActiveVehicles    int          `json:"active_vehicles"`
	TrackedReputation int          `json:"tracked_reputation"`
	Totals            StatsTotals  `json:"totals"`
	DetectionAccuracy float64      `json:"detection_accuracy"`
	Nodes             []NodeStatus `json:"nodes"`
}

// NodeStatus summarizes one roadside node.
type NodeStatus struct {
	ID              int     `json:"id"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Radius          float64 `json:"radius"`
	VehiclesInRange int     `json:"vehicles_in_range"`
	QueueLength     int     `json:"queue_length"`
}

// Status returns the engine's current status.
func (e *Engine) Status() Status {
	totals := e.stats.Totals()
	e.mu.Lock()
	tick, lastTime, activeVehicles := e.tick, e.lastTime, e.activeVehicles
	e.mu.Unlock()
	nodes := make([]NodeStatus, len(e.nodes))
	for i, n := range e.nodes {
		nodes[i] = NodeStatus{
			ID:              n.ID,
			X:               n.Position.X,
			Y:               n.Position.Y,
			Radius:          n.Radius,
			VehiclesInRange: n.VehiclesInRange(),
			QueueLength:     n.QueueLen(),
		}
	}
	return Status{
		Tick:              tick,
		SimTime:           lastTime,
		ActiveVehicles:    activeVehicles,
		TrackedReputation: e.reputation.Len(),
		Totals:            totals,
		DetectionAccuracy: totals.DetectionAccuracy(),
		Nodes:             nodes,
	}
}

// Run consumes the feed until exhaustion or cancellation, pacing ticks with
// the clock when tickInterval is positive. Feed exhaustion ends the run
// cleanly; it is not an error.
func (e *Engine) Run(ctx context.Context, f feed.Feed, clock timeutil.Clock, tickInterval time.Duration) error {
	var ticker timeutil.Ticker
	if tickInterval > 0 {
		ticker = clock.NewTicker(tickInterval)
		defer ticker.Stop()
	}

	for {
		snap, err := f.Next(ctx)
		if errors.Is(err, io.EOF) {
			monitoring.Logf("trustnet: feed exhausted after %d ticks", e.tick)
			return nil
		}
		if err != nil {
			return err
		}

		e.Tick(snap)

		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ticker.C():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
