package trustnet

import (
	"sort"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// CoverageRouter assigns each report to the nearest node whose coverage
// radius contains the report's declared location, or drops it. Node counts
// are single digits, so a linear scan beats any spatial index here.
type CoverageRouter struct {
	nodes []*RoadsideNode
	stats *Stats
}

// NewCoverageRouter creates a router over the given nodes. Accepted and
// dropped reports are counted on stats. The nodes are copied and sorted
// ascending by id; the tie-break scan in Route depends on that order.
func NewCoverageRouter(nodes []*RoadsideNode, stats *Stats) *CoverageRouter {
	sorted := make([]*RoadsideNode, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &CoverageRouter{nodes: sorted, stats: stats}
}

// Route finds the nearest covering node for the report. On acceptance the
// report is stamped with the node id, enqueued there, and counted in total
// reports. A report outside every node's radius is dropped and counted
// separately: out-of-coverage drop is admission control, not an error.
//
// Ties on distance break toward the lowest node id, which the ascending scan
// with a strict less-than comparison guarantees.
func (cr *CoverageRouter) Route(r *IncidentReport) (*RoadsideNode, bool) {
	var best *RoadsideNode
	bestDist := 0.0
	for _, n := range cr.nodes {
		d := geo.Distance(n.Position, r.Location)
		if best == nil || d < bestDist {
			best = n
			bestDist = d
		}
	}

	if best == nil || bestDist > best.Radius {
		cr.stats.AddDropped()
		return nil, false
	}

	nodeID := best.ID
	r.NodeID = &nodeID
	best.Enqueue(r)
	cr.stats.AddReport()
	return best, true
}

// Nodes returns the router's node set.
func (cr *CoverageRouter) Nodes() []*RoadsideNode {
	return cr.nodes
}
