package trustnet

import (
	"sync"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// RoadsideNode is a fixed collection point with a bounded coverage radius.
// It queues received reports until the Validator drains them and derives a
// per-tick set of vehicles currently inside its radius.
type RoadsideNode struct {
	ID       int
	Position geo.Point
	Radius   float64

	mu      sync.Mutex
	queue   []*IncidentReport
	inRange map[string]struct{}
}

// NewRoadsideNode creates a node at the given position.
func NewRoadsideNode(id int, pos geo.Point, radius float64) *RoadsideNode {
	return &RoadsideNode{
		ID:       id,
		Position: pos,
		Radius:   radius,
		inRange:  make(map[string]struct{}),
	}
}

// NewHighwayNodes returns the canonical six-node deployment along a 10km
// strip: nodes every 2000m at y=-50.
func NewHighwayNodes(radius float64) []*RoadsideNode {
	nodes := make([]*RoadsideNode, 6)
	for i := range nodes {
		nodes[i] = NewRoadsideNode(i, geo.Point{X: float64(i) * 2000, Y: -50}, radius)
	}
	return nodes
}

// Covers reports whether p lies within the node's coverage radius.
func (n *RoadsideNode) Covers(p geo.Point) bool {
	return geo.Distance(n.Position, p) <= n.Radius
}

// Enqueue appends a report to the node's pending queue.
func (n *RoadsideNode) Enqueue(r *IncidentReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, r)
}

// Drain removes and returns all pending reports. Draining rather than
// iterating makes double-processing structurally impossible.
func (n *RoadsideNode) Drain() []*IncidentReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	pending := n.queue
	n.queue = nil
	return pending
}

// QueueLen returns the number of pending reports.
func (n *RoadsideNode) QueueLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// UpdateCoverage recomputes the set of vehicles inside the node's radius.
// The set is pure derived state, rebuilt from scratch every tick.
func (n *RoadsideNode) UpdateCoverage(positions map[string]geo.Point) {
	fresh := make(map[string]struct{})
	for id, pos := range positions {
		if n.Covers(pos) {
			fresh[id] = struct{}{}
		}
	}
	n.mu.Lock()
	n.inRange = fresh
	n.mu.Unlock()
}

// VehiclesInRange returns the size of the current coverage set.
func (n *RoadsideNode) VehiclesInRange() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inRange)
}
