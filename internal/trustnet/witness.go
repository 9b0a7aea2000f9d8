package trustnet

import (
	"sort"

	"github.com/banshee-data/roadtrust/internal/geo"
)

// Corroborator materializes witness reports for genuine incidents: every
// honest vehicle within the corroboration radius of the incident location
// independently re-reports it. Fake reports never get witnesses.
type Corroborator struct {
	radius float64
}

// NewCorroborator creates a corroborator with the given radius (canonically
// 200 distance units).
func NewCorroborator(radius float64) *Corroborator {
	return &Corroborator{radius: radius}
}

// Corroborate finds honest vehicles near the incident, records them on the
// incident's witness set, and returns one new pending report per witness.
// The witness set strengthens the incident's own credibility; each returned
// report carries the witness as its reporter and is routed independently.
//
// An incident with no honest vehicle nearby yields no witness reports, which
// is fine: the incident still goes through routing on its own.
func (c *Corroborator) Corroborate(incident *IncidentReport, honest map[string]geo.Point) []*IncidentReport {
	ids := make([]string, 0, len(honest))
	for id := range honest {
		ids = append(ids, id)
	}
	sort.Strings(ids) // stable witness order for reproducible runs

	var reports []*IncidentReport
	for _, id := range ids {
		if id == incident.Reporter {
			continue
		}
		if geo.Distance(honest[id], incident.Location) >= c.radius {
			continue
		}
		incident.AddWitness(id)
		reports = append(reports, NewIncidentReport(
			id, incident.Type, incident.Location, incident.Timestamp, false))
	}
	return reports
}
