package feed

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
)

// SyntheticConfig parameterizes the built-in highway scenario: a straight
// 10km strip with vehicles cruising in the +x direction and wrapping at the
// end, a share of honest reporters, and a schedule of incident and fake
// report events spread over the run.
type SyntheticConfig struct {
	Seed            int64
	Vehicles        int     // active vehicle count (default 200)
	DurationSeconds float64 // simulated run length (default 1000)
	TickSeconds     float64 // snapshot period (default 1)
	FakeRatio       float64 // share of events that are fabricated (default 0.3)
	HonestShare     float64 // share of vehicles flagged honest reporters (default 0.4)
	HighwayLength   float64 // strip length in metres (default 10000)
	LaneHalfWidth   float64 // |y| bound in metres (default 50)
}

func (c SyntheticConfig) withDefaults() SyntheticConfig {
	if c.Vehicles == 0 {
		c.Vehicles = 200
	}
	if c.DurationSeconds == 0 {
		c.DurationSeconds = 1000
	}
	if c.TickSeconds == 0 {
		c.TickSeconds = 1
	}
	if c.FakeRatio == 0 {
		c.FakeRatio = 0.3
	}
	if c.HonestShare == 0 {
		c.HonestShare = 0.4
	}
	if c.HighwayLength == 0 {
		c.HighwayLength = 10000
	}
	if c.LaneHalfWidth == 0 {
		c.LaneHalfWidth = 50
	}
	return c
}

type syntheticVehicle struct {
	id     string
	x, y   float64
	speed  float64 // m/s, +x direction
	flags  RoleFlags
	events []TimerEvent
}

// Synthetic is a deterministic (seeded) mobility feed implementing the
// scenario of the offline data generator: incidents and fabricated reports
// fire at pre-drawn times throughout the run.
type Synthetic struct {
	cfg      SyntheticConfig
	vehicles []syntheticVehicle
	now      float64
	started  bool
}

// NewSynthetic builds the scenario. The same seed yields the same run.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	vehicles := make([]syntheticVehicle, cfg.Vehicles)
	for i := range vehicles {
		vehicles[i] = syntheticVehicle{
			id:    fmt.Sprintf("veh_%03d", i),
			x:     rng.Float64() * cfg.HighwayLength,
			y:     -cfg.LaneHalfWidth + rng.Float64()*2*cfg.LaneHalfWidth,
			speed: 20 + rng.Float64()*15,
		}
		if rng.Float64() < cfg.HonestShare {
			vehicles[i].flags.Honest = true
		}
	}

	// One event per ~10 simulated seconds, away from the run edges.
	eventCount := int(cfg.DurationSeconds / 10)
	times := make([]float64, eventCount)
	for i := range times {
		times[i] = 50 + rng.Float64()*(cfg.DurationSeconds-100)
	}
	sort.Float64s(times)

	types := []string{"accident", "breakdown", "hazard"}
	for _, due := range times {
		vi := rng.Intn(len(vehicles))
		v := &vehicles[vi]
		typ := types[rng.Intn(len(types))]

		if rng.Float64() < cfg.FakeRatio {
			// Fabricated report: mark the vehicle malicious and displace the
			// declared location well away from the reporter.
			v.flags.Malicious = true
			v.flags.Honest = false
			v.events = append(v.events, TimerEvent{
				Kind:    EventFakeReport,
				Type:    typ,
				Due:     due,
				OffsetX: signed(rng, 100+rng.Float64()*700),
				OffsetY: signed(rng, rng.Float64()*100),
			})
		} else {
			v.events = append(v.events, TimerEvent{
				Kind: EventIncident,
				Type: typ,
				Due:  due,
			})
		}
	}

	return &Synthetic{cfg: cfg, vehicles: vehicles}
}

func signed(rng *rand.Rand, magnitude float64) float64 {
	if rng.Intn(2) == 0 {
		return -magnitude
	}
	return magnitude
}

// Next advances the scenario one tick and returns its snapshot.
func (s *Synthetic) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if s.started {
		s.now += s.cfg.TickSeconds
	}
	s.started = true
	if s.now > s.cfg.DurationSeconds {
		return Snapshot{}, io.EOF
	}

	records := make([]VehicleRecord, len(s.vehicles))
	for i := range s.vehicles {
		v := &s.vehicles[i]
		if s.now > 0 {
			v.x += v.speed * s.cfg.TickSeconds
			if v.x > s.cfg.HighwayLength {
				v.x -= s.cfg.HighwayLength
			}
		}
		records[i] = VehicleRecord{
			ID:     v.id,
			X:      v.x,
			Y:      v.y,
			Flags:  v.flags,
			Events: v.events,
		}
	}

	return Snapshot{Time: s.now, Vehicles: records}, nil
}
