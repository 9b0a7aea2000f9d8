// Package feed defines the mobility-feed contract consumed by the trust
// pipeline: per-tick snapshots of active vehicles with their positions, role
// flags and scheduled event timers. Implementations include a JSONL replay
// feed and a synthetic highway scenario generator.
package feed

import (
	"context"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// Role classifies a vehicle for the run. Roles are sticky: the first
// role-indicating flag observed wins and the vehicle is never reclassified.
type Role string

const (
	RoleUnclassified Role = "unclassified"
	RoleHonest       Role = "honest"
	RoleMalicious    Role = "malicious"
	RoleEmergency    Role = "emergency"
)

// RoleFlags are the raw role indicators carried by the feed. They are
// resolved to a Role once per vehicle lifetime by the engine.
type RoleFlags struct {
	Malicious bool `json:"malicious,omitempty"`
	Honest    bool `json:"honest,omitempty"`
	Emergency bool `json:"emergency,omitempty"`
}

// Resolve maps the raw flags to a Role. Malicious wins over honest when a
// feed sets both, matching first-seen-wins resolution order.
func (f RoleFlags) Resolve() Role {
	switch {
	case f.Malicious:
		return RoleMalicious
	case f.Honest:
		return RoleHonest
	case f.Emergency:
		return RoleEmergency
	default:
		return RoleUnclassified
	}
}

// EventKind identifies a scheduled timer event carried by the feed.
type EventKind string

const (
	// EventIncident marks a genuine incident (breakdown, crash) due at the
	// event's time.
	EventIncident EventKind = "incident"
	// EventFakeReport marks a malicious vehicle's scheduled fabricated report.
	EventFakeReport EventKind = "fake_report"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	return k == EventIncident || k == EventFakeReport
}

// TimerEvent is a scheduled event attached to a vehicle record. A missing or
// unparseable event is treated as "not yet due" and skipped, never an error.
//
// OffsetX/OffsetY displace the declared report location from the reporter's
// position at fire time. Genuine incidents leave them zero; a fabricated
// report lies about where the incident is.
type TimerEvent struct {
	Kind    EventKind `json:"kind"`
	Type    string    `json:"type"` // accident | breakdown | hazard
	Due     float64   `json:"due"`  // simulation time the event fires
	OffsetX float64   `json:"offset_x,omitempty"`
	OffsetY float64   `json:"offset_y,omitempty"`
}

// VehicleRecord is the per-tick view of one active vehicle.
type VehicleRecord struct {
	ID     string       `json:"id"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Flags  RoleFlags    `json:"flags,omitempty"`
	Events []TimerEvent `json:"events,omitempty"`
}

// Position returns the record's location as a geo.Point.
func (v VehicleRecord) Position() geo.Point {
	return geo.Point{X: v.X, Y: v.Y}
}

// Snapshot is the read-only view of all active vehicles at one tick.
type Snapshot struct {
	Time     float64         `json:"time"`
	Vehicles []VehicleRecord `json:"vehicles"`
}

// Feed supplies snapshots tick by tick. Next returns io.EOF when the feed is
// exhausted, which ends the run cleanly.
type Feed interface {
	Next(ctx context.Context) (Snapshot, error)
}
